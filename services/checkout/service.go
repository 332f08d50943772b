package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v74"

	"github.com/MarcGrol/paymentforms/lib/myerrors"
	"github.com/MarcGrol/paymentforms/lib/mylog"
	"github.com/MarcGrol/paymentforms/lib/mymoney"
	"github.com/MarcGrol/paymentforms/lib/mypublisher"
	"github.com/MarcGrol/paymentforms/lib/mystore"
	"github.com/MarcGrol/paymentforms/lib/mytime"
	"github.com/MarcGrol/paymentforms/lib/myuuid"
	"github.com/MarcGrol/paymentforms/services/checkoutevents"
	"github.com/MarcGrol/paymentforms/services/formapi"
	"github.com/MarcGrol/paymentforms/services/plans"
	"github.com/MarcGrol/paymentforms/services/settings"
)

type service struct {
	formStore  mystore.Store[formapi.PaymentFormConfig]
	orderStore mystore.Store[Order]
	serializer *PublicDataSerializer
	catalog    plans.Catalog
	settings   settings.Reader
	payer      Payer
	nower      mytime.Nower
	uuider     myuuid.UUIDer
	publisher  mypublisher.Publisher
	logger     mylog.Logger
}

// Use dependency injection to isolate the infrastructure and easy testing
func newService(formStore mystore.Store[formapi.PaymentFormConfig], orderStore mystore.Store[Order], catalog plans.Catalog, settingsReader settings.Reader,
	payer Payer, nower mytime.Nower, uuider myuuid.UUIDer, pub mypublisher.Publisher, logger mylog.Logger) *service {
	return &service{
		formStore:  formStore,
		orderStore: orderStore,
		serializer: NewPublicDataSerializer(catalog, settingsReader, logger),
		catalog:    catalog,
		settings:   settingsReader,
		payer:      payer,
		nower:      nower,
		uuider:     uuider,
		publisher:  pub,
		logger:     logger,
	}
}

func (s *service) getForm(c context.Context, handle string) (formapi.PaymentFormConfig, error) {
	form, found, err := s.formStore.Get(c, handle)
	if err != nil {
		return formapi.PaymentFormConfig{}, myerrors.NewInternalError(fmt.Errorf("error fetching payment form %s: %s", handle, err))
	}
	if !found || !form.Enabled {
		return formapi.PaymentFormConfig{}, myerrors.NewNotFoundError(fmt.Errorf("payment form with handle %s not found", handle))
	}
	return form, nil
}

func quantityOf(form formapi.PaymentFormConfig, submission formapi.Submission) int {
	if !form.CustomerQuantity {
		return 1
	}
	return submission.QuantityOrDefault()
}

func (s *service) publicData(c context.Context, handle string, options formapi.PayloadOptions) (formapi.PublicCheckoutPayload, error) {
	form, err := s.getForm(c, handle)
	if err != nil {
		return formapi.PublicCheckoutPayload{}, err
	}

	return s.serializer.Serialize(c, form, options)
}

func (s *service) checkoutPage(c context.Context, handle string, status string) (CheckoutPageInfo, error) {
	form, err := s.getForm(c, handle)
	if err != nil {
		return CheckoutPageInfo{}, err
	}

	payload, err := s.serializer.Serialize(c, form, formapi.PayloadOptions{})
	if err != nil {
		return CheckoutPageInfo{}, err
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return CheckoutPageInfo{}, myerrors.NewInternalError(fmt.Errorf("error marshalling payload of %s: %s", handle, err))
	}

	planOptions := []PlanOption{}
	for _, ref := range form.MultiplePlans {
		if _, found := payload.MultiplePlansAmounts[ref.PlanID]; !found || !form.IsMultiPlan() {
			continue
		}
		plan, found, err := s.catalog.GetPlan(c, ref.PlanID)
		if err != nil || !found {
			continue
		}
		planOptions = append(planOptions, PlanOption{ID: plan.ID, Name: plans.DefaultPlanName(plan)})
	}

	buttonText := form.PaymentFormText("")
	if form.IsHostedCheckout() {
		buttonText = form.PaymentFormText(formapi.DefaultButtonText)
	}

	return CheckoutPageInfo{
		Form:           form,
		Payload:        payload,
		PayloadJSON:    string(payloadJSON),
		Integration:    IntegrationFor(form).Name(),
		PaymentMethods: payload.PaymentTypeIDs,
		Plans:          planOptions,
		ButtonText:     buttonText,
		Status:         status,
	}, nil
}

func (s *service) previewAmount(c context.Context, handle string, submission formapi.Submission) (AmountPreview, error) {
	form, err := s.getForm(c, handle)
	if err != nil {
		return AmountPreview{}, err
	}

	payload, err := s.serializer.Serialize(c, form, formapi.PayloadOptions{Quantity: quantityOf(form, submission)})
	if err != nil {
		return AmountPreview{}, err
	}

	amount := CalculateFinalAmount(payload, AmountInputFromSubmission(submission))

	return AmountPreview{
		Base:       amount.Base,
		Fee:        amount.Fee,
		Tax:        amount.Tax,
		Final:      amount.Final,
		Currency:   amount.Currency,
		MinorUnits: amount.MinorUnits(),
		TaxLabel:   TaxLabel(payload, amount),
	}, nil
}

// submit revalidates what the browser computed and hands the payment to the provider. It returns
// the url to send the customer to.
func (s *service) submit(c context.Context, handle string, submission formapi.Submission, baseURL string) (string, error) {
	s.logger.Log(c, handle, mylog.SeverityInfo, "Submit payment form %s", handle)

	form, err := s.getForm(c, handle)
	if err != nil {
		return "", err
	}

	quantity := quantityOf(form, submission)

	payload, err := s.serializer.Serialize(c, form, formapi.PayloadOptions{Quantity: quantity})
	if err != nil {
		return "", err
	}

	integration := IntegrationFor(form)
	collected, err := integration.Collect(payload, &submission)
	if err != nil {
		return "", err
	}

	amount := CalculateFinalAmount(payload, AmountInputFromSubmission(submission))
	err = checkAmount(form, submission, amount)
	if err != nil {
		return "", err
	}

	if !form.InStock(quantity) {
		message := form.SoldOutMessage
		if message == "" {
			message = "sold out"
		}
		return "", validationError("%s", message)
	}

	secretKey, err := s.settings.SecretKey(c)
	if err != nil {
		return "", err
	}
	s.payer.UseAPIKey(secretKey)

	now := s.nower.Now()
	order := Order{
		UID:                s.uuider.Create(),
		FormHandle:         form.Handle,
		CreatedAt:          now,
		Email:              collected.Email,
		AmountInMinorUnits: amount.MinorUnits(),
		Currency:           strings.ToUpper(amount.Currency),
		TaxAmount:          amount.Tax.InexactFloat64(),
		Quantity:           quantity,
		PaymentMethod:      collected.Method.String(),
		Integration:        integration.Name(),
		TestMode:           payload.TestMode,
		BillingAddress:     collected.Billing,
		ShippingAddress:    collected.Shipping,
		Status:             checkoutevents.OrderStatusPending,
	}

	returnURL := fmt.Sprintf("%s/paymentform/%s/return/%s", baseURL, form.Handle, order.UID)

	providerRedirect, err := s.charge(c, form, payload, submission, collected, amount, &order, returnURL)
	if err != nil {
		return "", err
	}

	err = s.orderStore.RunInTransaction(c, func(c context.Context) error {
		err := s.orderStore.Put(c, order.UID, order)
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error storing order %s: %s", order.UID, err))
		}

		if !form.HasUnlimitedStock {
			err = s.decrementStock(c, form.Handle, quantity)
			if err != nil {
				return err
			}
		}

		err = s.publisher.Publish(c, checkoutevents.TopicName, checkoutevents.OrderCreated{
			OrderUID:           order.UID,
			FormHandle:         order.FormHandle,
			AmountInMinorUnits: order.AmountInMinorUnits,
			Currency:           order.Currency,
			TaxAmount:          order.TaxAmount,
			Quantity:           order.Quantity,
			PaymentMethod:      order.PaymentMethod,
			Integration:        order.Integration,
			PlanID:             order.PlanID,
			Email:              order.Email,
			TestMode:           order.TestMode,
		})
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error publishing event: %s", err))
		}

		if order.IsFinal() {
			err = s.publishCompleted(c, order)
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return "", err
	}

	if providerRedirect != "" {
		return providerRedirect, nil
	}

	return completionURL(form, baseURL, order.UID, statusParam(order.Status))
}

func checkAmount(form formapi.PaymentFormConfig, submission formapi.Submission, amount FinalAmount) error {
	posted, err := submission.AmountInMinorUnits()
	if err != nil {
		return err
	}

	if !amount.Final.IsPositive() {
		return validationError("amount must be positive")
	}
	if posted != amount.MinorUnits() {
		return validationError("posted amount %d does not match %d", posted, amount.MinorUnits())
	}

	if !form.EnableSubscriptions && form.AmountType == formapi.AmountTypeCustom && form.MinimumAmount > 0 &&
		amount.Base.LessThan(decimal.NewFromFloat(form.MinimumAmount)) {
		return validationError("amount is below the minimum of %v", form.MinimumAmount)
	}
	if form.IsSinglePlan() && form.EnableCustomPlanAmount && form.CustomPlanMinimumAmount > 0 &&
		amount.Base.LessThan(decimal.NewFromFloat(form.CustomPlanMinimumAmount)) {
		return validationError("amount is below the minimum of %v", form.CustomPlanMinimumAmount)
	}

	return nil
}

func (s *service) decrementStock(c context.Context, handle string, quantity int) error {
	return s.formStore.RunInTransaction(c, func(c context.Context) error {
		form, found, err := s.formStore.Get(c, handle)
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error fetching payment form %s: %s", handle, err))
		}
		if !found {
			return myerrors.NewNotFoundError(fmt.Errorf("payment form with handle %s not found", handle))
		}
		if !form.InStock(quantity) {
			return validationError("sold out")
		}

		form.Quantity -= quantity

		err = s.formStore.Put(c, handle, form)
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error storing payment form %s: %s", handle, err))
		}
		return nil
	})
}

// charge creates the provider objects for the order and returns the url of the bank when the
// payment method needs a redirect.
func (s *service) charge(c context.Context, form formapi.PaymentFormConfig, payload formapi.PublicCheckoutPayload, submission formapi.Submission,
	collected Collected, amount FinalAmount, order *Order, returnURL string) (string, error) {

	currency := strings.ToLower(amount.Currency)
	recurringCustomAmount := !form.EnableSubscriptions && form.AmountType == formapi.AmountTypeCustom && form.EnableRecurringPayment && submission.Recurring()

	if (form.EnableSubscriptions || recurringCustomAmount) && collected.Method != formapi.PaymentMethodCard {
		return "", validationError("recurring payments require a card")
	}

	paymentMethod, err := s.payer.CreatePaymentMethod(c, paymentMethodParams(collected))
	if err != nil {
		return "", err
	}

	customer, err := s.payer.CreateCustomer(c, customerParams(collected, paymentMethod.ID, order.UID))
	if err != nil {
		return "", err
	}
	order.StripeCustomerID = customer.ID

	if !form.EnableSubscriptions && !recurringCustomAmount {
		params := stripe.PaymentIntentParams{
			Amount:             stripe.Int64(order.AmountInMinorUnits),
			Currency:           stripe.String(currency),
			Customer:           stripe.String(customer.ID),
			PaymentMethod:      stripe.String(paymentMethod.ID),
			PaymentMethodTypes: stripe.StringSlice([]string{collected.Method.String()}),
			Confirm:            stripe.Bool(true),
			ReturnURL:          stripe.String(returnURL),
			Description:        stripe.String(payload.Stripe.Description),
		}
		if collected.Email != "" {
			params.ReceiptEmail = stripe.String(collected.Email)
		}
		if collected.Shipping.Complete() {
			params.Shipping = &stripe.ShippingDetailsParams{
				Name:    stripe.String(collected.Shipping.Name),
				Address: addressParams(collected.Shipping),
			}
		}
		params.AddMetadata(orderMetadataKey, order.UID)

		intent, err := s.payer.CreatePaymentIntent(c, params)
		if err != nil {
			return "", err
		}
		order.StripeObjectID = intent.ID

		switch intent.Status {
		case stripe.PaymentIntentStatusSucceeded:
			order.Status = checkoutevents.OrderStatusSucceeded
			order.Success = true
		case stripe.PaymentIntentStatusCanceled, stripe.PaymentIntentStatusRequiresPaymentMethod:
			order.Status = checkoutevents.OrderStatusFailed
		}
		if intent.NextAction != nil && intent.NextAction.RedirectToURL != nil {
			return intent.NextAction.RedirectToURL.URL, nil
		}
		return "", nil
	}

	sub, err := s.subscriptionPlan(c, form, submission, amount, currency, order.Quantity)
	if err != nil {
		return "", err
	}
	order.PlanID = sub.PlanID

	if amount.Fee.IsPositive() {
		_, err = s.payer.CreateInvoiceItem(c, invoiceItemParams(customer.ID, currency, mymoney.MinorUnits(amount.Fee, currency), "Setup fee"))
		if err != nil {
			return "", err
		}
	}
	if amount.Tax.IsPositive() {
		_, err = s.payer.CreateInvoiceItem(c, invoiceItemParams(customer.ID, currency, mymoney.MinorUnits(amount.Tax, currency), payload.TaxLabel))
		if err != nil {
			return "", err
		}
	}

	params := stripe.SubscriptionParams{
		Customer:             stripe.String(customer.ID),
		DefaultPaymentMethod: stripe.String(paymentMethod.ID),
		Items: []*stripe.SubscriptionItemsParams{
			{
				Plan:     stripe.String(sub.PlanID),
				Quantity: stripe.Int64(int64(sub.Quantity)),
			},
		},
	}
	if sub.TrialDays > 0 {
		params.TrialPeriodDays = stripe.Int64(int64(sub.TrialDays))
	}
	params.AddMetadata(orderMetadataKey, order.UID)

	subscription, err := s.payer.CreateSubscription(c, params)
	if err != nil {
		return "", err
	}
	order.StripeObjectID = subscription.ID

	switch subscription.Status {
	case stripe.SubscriptionStatusActive, stripe.SubscriptionStatusTrialing:
		order.Status = checkoutevents.OrderStatusSucceeded
		order.Success = true
	case stripe.SubscriptionStatusIncompleteExpired, stripe.SubscriptionStatusCanceled:
		order.Status = checkoutevents.OrderStatusFailed
	}

	return "", nil
}

type subscriptionItem struct {
	PlanID    string
	TrialDays int
	Quantity  int
}

// subscriptionPlan returns the plan to subscribe to. Custom amounts get a plan of their own, priced at
// the checked base amount, so they are subscribed to once regardless of the quantity.
func (s *service) subscriptionPlan(c context.Context, form formapi.PaymentFormConfig, submission formapi.Submission, amount FinalAmount, currency string, quantity int) (subscriptionItem, error) {
	if form.IsMultiPlan() {
		if _, found := form.SetupFeeOf(submission.MultiPlan); !found || submission.MultiPlan == "" {
			return subscriptionItem{}, validationError("plan %q is not offered by this form", submission.MultiPlan)
		}
		return subscriptionItem{PlanID: submission.MultiPlan, Quantity: quantity}, nil
	}

	if form.IsSinglePlan() && !form.EnableCustomPlanAmount {
		return subscriptionItem{PlanID: form.SinglePlanID, TrialDays: form.SinglePlanTrialPeriod, Quantity: quantity}, nil
	}

	interval := form.CustomPlanInterval
	count := form.CustomPlanFrequency
	if !form.EnableSubscriptions {
		interval = form.RecurringPaymentType
		count = 1
	}
	if interval == "" {
		return subscriptionItem{}, validationError("no interval configured for recurring payments")
	}
	if count <= 0 {
		count = 1
	}

	plan, err := s.payer.CreatePlan(c, stripe.PlanParams{
		Amount:        stripe.Int64(mymoney.MinorUnits(amount.Base, currency)),
		Currency:      stripe.String(currency),
		Interval:      stripe.String(interval),
		IntervalCount: stripe.Int64(int64(count)),
		Product: &stripe.PlanProductParams{
			Name: stripe.String(form.Name),
		},
	})
	if err != nil {
		return subscriptionItem{}, err
	}
	return subscriptionItem{PlanID: plan.ID, Quantity: 1}, nil
}

func paymentMethodParams(collected Collected) stripe.PaymentMethodParams {
	params := stripe.PaymentMethodParams{
		Type:           stripe.String(collected.Method.String()),
		BillingDetails: &stripe.PaymentMethodBillingDetailsParams{},
	}
	if collected.Email != "" {
		params.BillingDetails.Email = stripe.String(collected.Email)
	}
	if !collected.Billing.IsEmpty() {
		params.BillingDetails.Name = stripe.String(collected.Billing.Name)
		params.BillingDetails.Address = addressParams(collected.Billing)
	}

	switch collected.Method {
	case formapi.PaymentMethodCard:
		params.Card = &stripe.PaymentMethodCardParams{Token: stripe.String(collected.Token)}
	case formapi.PaymentMethodIDEAL:
		params.IDEAL = &stripe.PaymentMethodIDEALParams{Bank: stripe.String(collected.IdealBank)}
	case formapi.PaymentMethodSOFORT:
		params.Sofort = &stripe.PaymentMethodSofortParams{Country: stripe.String(collected.Billing.Country)}
	}

	return params
}

func customerParams(collected Collected, paymentMethodID string, orderUID string) stripe.CustomerParams {
	params := stripe.CustomerParams{
		PaymentMethod: stripe.String(paymentMethodID),
	}
	if collected.Email != "" {
		params.Email = stripe.String(collected.Email)
	}
	if !collected.Billing.IsEmpty() {
		params.Name = stripe.String(collected.Billing.Name)
		params.Address = addressParams(collected.Billing)
	}
	if collected.Shipping.Complete() {
		params.Shipping = &stripe.CustomerShippingParams{
			Name:    stripe.String(collected.Shipping.Name),
			Address: addressParams(collected.Shipping),
		}
	}
	params.AddMetadata(orderMetadataKey, orderUID)
	return params
}

func invoiceItemParams(customerID string, currency string, amount int64, description string) stripe.InvoiceItemParams {
	return stripe.InvoiceItemParams{
		Customer:    stripe.String(customerID),
		Currency:    stripe.String(currency),
		Amount:      stripe.Int64(amount),
		Description: stripe.String(description),
	}
}

func addressParams(a formapi.Address) *stripe.AddressParams {
	return &stripe.AddressParams{
		Line1:      stripe.String(a.Line1),
		City:       stripe.String(a.City),
		State:      stripe.String(a.State),
		PostalCode: stripe.String(a.Zip),
		Country:    stripe.String(a.Country),
	}
}

// finalizeRedirect is called when the bank sends the customer back
func (s *service) finalizeRedirect(c context.Context, handle string, orderUID string, redirectStatus string) (string, error) {
	s.logger.Log(c, orderUID, mylog.SeverityInfo, "Redirect: order %s returned with %s", orderUID, redirectStatus)

	form, err := s.getForm(c, handle)
	if err != nil {
		return "", err
	}

	now := s.nower.Now()

	err = s.orderStore.RunInTransaction(c, func(c context.Context) error {
		order, found, err := s.orderStore.Get(c, orderUID)
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error fetching order %s: %s", orderUID, err))
		}
		if !found || order.FormHandle != handle {
			return myerrors.NewNotFoundError(fmt.Errorf("order with uid %s not found", orderUID))
		}

		order.RedirectStatus = redirectStatus
		order.LastModified = &now

		err = s.orderStore.Put(c, orderUID, order)
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error storing order %s: %s", orderUID, err))
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	status := "pending"
	switch redirectStatus {
	case "succeeded":
		status = "success"
	case "failed", "canceled":
		status = "failed"
	}

	return completionURL(form, "", orderUID, status)
}

func (s *service) completeOrder(c context.Context, orderUID string, providerEvent string, success bool) error {
	s.logger.Log(c, orderUID, mylog.SeverityInfo, "Webhook: order %s -> %s", orderUID, providerEvent)

	now := s.nower.Now()

	return s.orderStore.RunInTransaction(c, func(c context.Context) error {
		order, found, err := s.orderStore.Get(c, orderUID)
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error fetching order %s: %s", orderUID, err))
		}
		if !found {
			return myerrors.NewNotFoundError(fmt.Errorf("order with uid %s not found", orderUID))
		}

		if order.IsFinal() && order.Success == success {
			s.logger.Log(c, orderUID, mylog.SeverityInfo, "Order %s already completed", orderUID)
			return nil
		}

		order.ProviderEvent = providerEvent
		order.Success = success
		order.Status = checkoutevents.OrderStatusFailed
		if success {
			order.Status = checkoutevents.OrderStatusSucceeded
		}
		order.LastModified = &now

		err = s.orderStore.Put(c, orderUID, order)
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error storing order %s: %s", orderUID, err))
		}

		return s.publishCompleted(c, order)
	})
}

func (s *service) publishCompleted(c context.Context, order Order) error {
	err := s.publisher.Publish(c, checkoutevents.TopicName, checkoutevents.OrderCompleted{
		OrderUID:      order.UID,
		FormHandle:    order.FormHandle,
		ProviderEvent: order.ProviderEvent,
		Status:        order.Status,
		Success:       order.Success,
	})
	if err != nil {
		return myerrors.NewInternalError(fmt.Errorf("error publishing event: %s", err))
	}
	return nil
}

func (s *service) getOrder(c context.Context, uid string) (Order, error) {
	order, found, err := s.orderStore.Get(c, uid)
	if err != nil {
		return Order{}, myerrors.NewInternalError(fmt.Errorf("error fetching order %s: %s", uid, err))
	}
	if !found {
		return Order{}, myerrors.NewNotFoundError(fmt.Errorf("order with uid %s not found", uid))
	}
	return order, nil
}

func (s *service) listOrders(c context.Context, formHandle string) ([]Order, error) {
	var orders []Order
	var err error
	if formHandle != "" {
		orders, err = s.orderStore.Query(c, []mystore.Filter{{Field: "FormHandle", Compare: "=", Value: formHandle}}, "")
	} else {
		orders, err = s.orderStore.List(c)
	}
	if err != nil {
		return nil, myerrors.NewInternalError(fmt.Errorf("error fetching orders: %s", err))
	}

	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})

	return orders, nil
}

func statusParam(status checkoutevents.OrderStatus) string {
	switch status {
	case checkoutevents.OrderStatusSucceeded:
		return "success"
	case checkoutevents.OrderStatusFailed:
		return "failed"
	default:
		return "pending"
	}
}

// completionURL is the return url of the form, or the checkout page itself when there is none
func completionURL(form formapi.PaymentFormConfig, baseURL string, orderUID string, status string) (string, error) {
	target := form.ReturnURL
	if target == "" {
		target = fmt.Sprintf("%s/paymentform/%s/checkout", baseURL, form.Handle)
	}

	u, err := url.Parse(target)
	if err != nil {
		return "", myerrors.NewInternalError(fmt.Errorf("error parsing return url %s: %s", target, err))
	}
	params := u.Query()
	params.Set("status", status)
	params.Set("order", orderUID)
	u.RawQuery = params.Encode()
	return u.String(), nil
}
