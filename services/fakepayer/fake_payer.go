// Package fakepayer is an in-memory stand-in for the stripe api, used to run the service without stripe
// credentials. It behaves like stripe in test-mode for the calls the checkout makes.
package fakepayer

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/stripe/stripe-go/v74"

	"github.com/MarcGrol/paymentforms/lib/myerrors"
	"github.com/MarcGrol/paymentforms/lib/mystore"
	"github.com/MarcGrol/paymentforms/lib/myuuid"
	"github.com/MarcGrol/paymentforms/services/checkout"
	"github.com/MarcGrol/paymentforms/services/plans"
)

const (
	// TokenDeclined is accepted as payment method but every charge on it is declined
	TokenDeclined = "tok_chargeDeclined"
)

type paymentMethod struct {
	Method stripe.PaymentMethod
	Token  string
}

type FakePayer struct {
	sync.Mutex
	apiKey         string
	uuider         myuuid.UUIDer
	paymentMethods *mystore.InMemoryStore[paymentMethod]
	customers      *mystore.InMemoryStore[stripe.Customer]
	plans          *mystore.InMemoryStore[stripe.Plan]
	Intents        *mystore.InMemoryStore[stripe.PaymentIntent]
	InvoiceItems   *mystore.InMemoryStore[stripe.InvoiceItem]
	Subscriptions  *mystore.InMemoryStore[stripe.Subscription]
}

func New() *FakePayer {
	c := context.Background()
	paymentMethods, _, _ := mystore.NewInMemoryStore[paymentMethod](c)
	customers, _, _ := mystore.NewInMemoryStore[stripe.Customer](c)
	planStore, _, _ := mystore.NewInMemoryStore[stripe.Plan](c)
	intents, _, _ := mystore.NewInMemoryStore[stripe.PaymentIntent](c)
	invoiceItems, _, _ := mystore.NewInMemoryStore[stripe.InvoiceItem](c)
	subscriptions, _, _ := mystore.NewInMemoryStore[stripe.Subscription](c)

	return &FakePayer{
		uuider:         myuuid.RealUUIDer{},
		paymentMethods: paymentMethods,
		customers:      customers,
		plans:          planStore,
		Intents:        intents,
		InvoiceItems:   invoiceItems,
		Subscriptions:  subscriptions,
	}
}

func (p *FakePayer) UseAPIKey(key string) {
	p.Lock()
	defer p.Unlock()

	p.apiKey = key
}

func (p *FakePayer) checkKey() error {
	p.Lock()
	defer p.Unlock()

	if p.apiKey == "" {
		return myerrors.NewUnavailableError(fmt.Errorf("no stripe api key configured"))
	}
	return nil
}

func (p *FakePayer) newID(prefix string) string {
	return prefix + "_" + strings.ReplaceAll(p.uuider.Create(), "-", "")
}

func invalidRequest(what string, format string, args ...any) error {
	return checkout.ProviderError(what, &stripe.Error{
		Type: stripe.ErrorTypeInvalidRequest,
		Code: stripe.ErrorCodeResourceMissing,
		Msg:  fmt.Sprintf(format, args...),
	})
}

func (p *FakePayer) CreatePaymentMethod(c context.Context, params stripe.PaymentMethodParams) (stripe.PaymentMethod, error) {
	err := p.checkKey()
	if err != nil {
		return stripe.PaymentMethod{}, err
	}
	if params.Type == nil {
		return stripe.PaymentMethod{}, invalidRequest("payment method", "missing required param: type")
	}

	pm := paymentMethod{
		Method: stripe.PaymentMethod{
			ID:   p.newID("pm"),
			Type: stripe.PaymentMethodType(*params.Type),
		},
	}
	switch pm.Method.Type {
	case stripe.PaymentMethodTypeCard:
		if params.Card == nil || params.Card.Token == nil {
			return stripe.PaymentMethod{}, invalidRequest("payment method", "missing required param: card")
		}
		pm.Token = *params.Card.Token
	case stripe.PaymentMethodTypeIDEAL, stripe.PaymentMethodTypeSofort:
	default:
		return stripe.PaymentMethod{}, invalidRequest("payment method", "invalid type: %s", *params.Type)
	}

	err = p.paymentMethods.Put(c, pm.Method.ID, pm)
	if err != nil {
		return stripe.PaymentMethod{}, err
	}
	return pm.Method, nil
}

func (p *FakePayer) CreateCustomer(c context.Context, params stripe.CustomerParams) (stripe.Customer, error) {
	err := p.checkKey()
	if err != nil {
		return stripe.Customer{}, err
	}
	if params.PaymentMethod != nil {
		_, found, err := p.paymentMethods.Get(c, *params.PaymentMethod)
		if err != nil {
			return stripe.Customer{}, err
		}
		if !found {
			return stripe.Customer{}, invalidRequest("customer", "no such PaymentMethod: '%s'", *params.PaymentMethod)
		}
	}

	customer := stripe.Customer{
		ID:       p.newID("cus"),
		Email:    stripe.StringValue(params.Email),
		Name:     stripe.StringValue(params.Name),
		Metadata: params.Metadata,
	}
	err = p.customers.Put(c, customer.ID, customer)
	if err != nil {
		return stripe.Customer{}, err
	}
	return customer, nil
}

func (p *FakePayer) customer(c context.Context, what string, id *string) (stripe.Customer, error) {
	if id == nil {
		return stripe.Customer{}, invalidRequest(what, "missing required param: customer")
	}
	customer, found, err := p.customers.Get(c, *id)
	if err != nil {
		return stripe.Customer{}, err
	}
	if !found {
		return stripe.Customer{}, invalidRequest(what, "no such customer: '%s'", *id)
	}
	return customer, nil
}

// CreatePaymentIntent confirms card payments at once; bank payments redirect straight back to the
// return url as if the customer approved the payment at the bank.
func (p *FakePayer) CreatePaymentIntent(c context.Context, params stripe.PaymentIntentParams) (stripe.PaymentIntent, error) {
	err := p.checkKey()
	if err != nil {
		return stripe.PaymentIntent{}, err
	}
	customer, err := p.customer(c, "payment intent", params.Customer)
	if err != nil {
		return stripe.PaymentIntent{}, err
	}
	if stripe.Int64Value(params.Amount) <= 0 {
		return stripe.PaymentIntent{}, invalidRequest("payment intent", "amount must be greater than zero")
	}
	if params.PaymentMethod == nil {
		return stripe.PaymentIntent{}, invalidRequest("payment intent", "missing required param: payment_method")
	}
	pm, found, err := p.paymentMethods.Get(c, *params.PaymentMethod)
	if err != nil {
		return stripe.PaymentIntent{}, err
	}
	if !found {
		return stripe.PaymentIntent{}, invalidRequest("payment intent", "no such PaymentMethod: '%s'", *params.PaymentMethod)
	}

	intent := stripe.PaymentIntent{
		ID:            p.newID("pi"),
		Amount:        *params.Amount,
		Currency:      stripe.Currency(stripe.StringValue(params.Currency)),
		Customer:      &customer,
		Description:   stripe.StringValue(params.Description),
		PaymentMethod: &pm.Method,
		Metadata:      params.Metadata,
		Status:        stripe.PaymentIntentStatusRequiresConfirmation,
	}

	if stripe.BoolValue(params.Confirm) {
		switch {
		case pm.Token == TokenDeclined:
			return stripe.PaymentIntent{}, checkout.ProviderError("payment intent", &stripe.Error{
				Type: stripe.ErrorTypeCard,
				Code: stripe.ErrorCodeCardDeclined,
				Msg:  "Your card was declined.",
			})
		case pm.Method.Type == stripe.PaymentMethodTypeCard:
			intent.Status = stripe.PaymentIntentStatusSucceeded
		default:
			if params.ReturnURL == nil {
				return stripe.PaymentIntent{}, invalidRequest("payment intent", "missing required param: return_url")
			}
			intent.Status = stripe.PaymentIntentStatusRequiresAction
			intent.NextAction = &stripe.PaymentIntentNextAction{
				RedirectToURL: &stripe.PaymentIntentNextActionRedirectToURL{
					URL: redirectURL(*params.ReturnURL, intent.ID),
				},
			}
		}
	}

	err = p.Intents.Put(c, intent.ID, intent)
	if err != nil {
		return stripe.PaymentIntent{}, err
	}
	return intent, nil
}

func redirectURL(returnURL string, intentID string) string {
	separator := "?"
	if strings.Contains(returnURL, "?") {
		separator = "&"
	}
	return fmt.Sprintf("%s%spayment_intent=%s&redirect_status=succeeded", returnURL, separator, intentID)
}

func (p *FakePayer) CreatePlan(c context.Context, params stripe.PlanParams) (stripe.Plan, error) {
	err := p.checkKey()
	if err != nil {
		return stripe.Plan{}, err
	}
	if params.Interval == nil || params.Currency == nil || params.Amount == nil {
		return stripe.Plan{}, invalidRequest("plan", "missing required param: interval, currency or amount")
	}

	plan := stripe.Plan{
		ID:            p.newID("plan"),
		Active:        true,
		Amount:        *params.Amount,
		Currency:      stripe.Currency(*params.Currency),
		Interval:      stripe.PlanInterval(*params.Interval),
		IntervalCount: stripe.Int64Value(params.IntervalCount),
	}
	if params.Product != nil {
		plan.Nickname = stripe.StringValue(params.Product.Name)
	}
	if plan.IntervalCount == 0 {
		plan.IntervalCount = 1
	}

	err = p.plans.Put(c, plan.ID, plan)
	if err != nil {
		return stripe.Plan{}, err
	}
	return plan, nil
}

func (p *FakePayer) CreateInvoiceItem(c context.Context, params stripe.InvoiceItemParams) (stripe.InvoiceItem, error) {
	err := p.checkKey()
	if err != nil {
		return stripe.InvoiceItem{}, err
	}
	customer, err := p.customer(c, "invoice item", params.Customer)
	if err != nil {
		return stripe.InvoiceItem{}, err
	}

	item := stripe.InvoiceItem{
		ID:          p.newID("ii"),
		Amount:      stripe.Int64Value(params.Amount),
		Currency:    stripe.Currency(stripe.StringValue(params.Currency)),
		Customer:    &customer,
		Description: stripe.StringValue(params.Description),
	}
	err = p.InvoiceItems.Put(c, item.ID, item)
	if err != nil {
		return stripe.InvoiceItem{}, err
	}
	return item, nil
}

func (p *FakePayer) CreateSubscription(c context.Context, params stripe.SubscriptionParams) (stripe.Subscription, error) {
	err := p.checkKey()
	if err != nil {
		return stripe.Subscription{}, err
	}
	customer, err := p.customer(c, "subscription", params.Customer)
	if err != nil {
		return stripe.Subscription{}, err
	}
	if len(params.Items) == 0 {
		return stripe.Subscription{}, invalidRequest("subscription", "missing required param: items")
	}
	for _, item := range params.Items {
		_, found, err := p.plans.Get(c, stripe.StringValue(item.Plan))
		if err != nil {
			return stripe.Subscription{}, err
		}
		if !found {
			return stripe.Subscription{}, invalidRequest("subscription", "no such plan: '%s'", stripe.StringValue(item.Plan))
		}
	}

	subscription := stripe.Subscription{
		ID:       p.newID("sub"),
		Customer: &customer,
		Metadata: params.Metadata,
		Status:   stripe.SubscriptionStatusActive,
	}
	if stripe.Int64Value(params.TrialPeriodDays) > 0 {
		subscription.Status = stripe.SubscriptionStatusTrialing
	}

	err = p.Subscriptions.Put(c, subscription.ID, subscription)
	if err != nil {
		return stripe.Subscription{}, err
	}
	return subscription, nil
}

// GetPlan makes the fake usable as plan catalog for the plans it created
func (p *FakePayer) GetPlan(c context.Context, planID string) (plans.Plan, bool, error) {
	plan, found, err := p.plans.Get(c, planID)
	if err != nil || !found {
		return plans.Plan{}, found, err
	}
	return plans.Plan{
		ID:            plan.ID,
		Nickname:      plan.Nickname,
		Currency:      strings.ToUpper(string(plan.Currency)),
		AmountMinor:   plan.Amount,
		Interval:      string(plan.Interval),
		IntervalCount: plan.IntervalCount,
		Active:        plan.Active,
	}, true, nil
}
