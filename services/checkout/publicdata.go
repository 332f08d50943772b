package checkout

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/MarcGrol/paymentforms/lib/mycontext"
	"github.com/MarcGrol/paymentforms/lib/mylog"
	"github.com/MarcGrol/paymentforms/lib/mymoney"
	"github.com/MarcGrol/paymentforms/services/formapi"
	"github.com/MarcGrol/paymentforms/services/plans"
	"github.com/MarcGrol/paymentforms/services/settings"
)

const defaultLocale = "auto"

// PublicDataSerializer projects a payment form onto the data the browser needs to render and
// price it.
type PublicDataSerializer struct {
	catalog  plans.Catalog
	settings settings.Reader
	logger   mylog.Logger
}

func NewPublicDataSerializer(catalog plans.Catalog, settingsReader settings.Reader, logger mylog.Logger) *PublicDataSerializer {
	return &PublicDataSerializer{
		catalog:  catalog,
		settings: settingsReader,
		logger:   logger,
	}
}

func (s *PublicDataSerializer) Serialize(c context.Context, form formapi.PaymentFormConfig, options formapi.PayloadOptions) (formapi.PublicCheckoutPayload, error) {
	globalSettings, err := s.settings.GetSettings(c)
	if err != nil {
		return formapi.PublicCheckoutPayload{}, err
	}

	publishableKey, err := s.settings.PublishableKey(c)
	if err != nil {
		return formapi.PublicCheckoutPayload{}, err
	}

	quantity := options.QuantityOrDefault()

	amount := decimal.NewFromFloat(form.Amount)
	if options.Amount != nil {
		amount = decimal.NewFromFloat(*options.Amount)
	}
	if options.ShouldCalculateFinalAmount() {
		amount = amount.Mul(decimal.NewFromInt(int64(quantity)))
	}

	currency := form.Currency
	if currency == "" {
		currency = globalSettings.CurrencyOrDefault()
	}
	if options.Currency != "" {
		currency = strings.ToUpper(options.Currency)
	}

	description := form.Name
	if options.Description != "" {
		description = options.Description
	}
	logo := form.LogoURL
	if options.Logo != "" {
		logo = options.Logo
	}

	multiplePlansAmounts := map[string]formapi.PlanAmount{}
	setupFees := map[string]float64{}

	if form.IsSinglePlan() && !form.EnableCustomPlanAmount {
		plan, err := s.resolvePlan(c, form.SinglePlanID)
		if err != nil {
			s.logger.Log(c, form.Handle, mylog.SeverityWarn, "Keeping form amount of %s: %s", form.Handle, err)
		} else {
			currency = plan.Currency
			amount = plans.PlanAmount(plan, quantity)
		}
	}

	if form.IsMultiPlan() {
		for _, ref := range form.MultiplePlans {
			plan, err := s.resolvePlan(c, ref.PlanID)
			if err != nil {
				s.logger.Log(c, form.Handle, mylog.SeverityWarn, "Omitting plan from %s: %s", form.Handle, err)
				continue
			}
			multiplePlansAmounts[plan.ID] = formapi.PlanAmount{
				Amount:   plans.PlanAmount(plan, quantity).InexactFloat64(),
				Currency: plan.Currency,
				SetupFee: ref.SetupFee,
			}
			setupFees[plan.ID] = ref.SetupFee
		}
	}

	email := ""
	if globalSettings.CurrentUserEmail {
		email = mycontext.UserEmailFromContext(c)
	}

	paymentTypes := form.PaymentTypes
	if len(paymentTypes) == 0 {
		paymentTypes = []formapi.PaymentMethod{formapi.PaymentMethodCard}
	}

	panelLabel := form.CheckoutButtonText
	if panelLabel == "" {
		panelLabel = formapi.DefaultCheckoutButtonText
	}

	name := form.CompanyName
	if name == "" {
		name = globalSettings.SiteName
	}

	locale := form.Language
	if locale == "" {
		locale = defaultLocale
	}

	payload := formapi.PublicCheckoutPayload{
		PaymentFormID:               form.UID,
		Handle:                      form.Handle,
		AmountType:                  form.AmountType,
		CustomerQuantity:            form.CustomerQuantity,
		ButtonText:                  form.PaymentFormText(""),
		PaymentButtonProcessingText: form.ProcessingText(),
		PublishableKey:              publishableKey,
		TestMode:                    globalSettings.TestMode,
		EnableRecurringPayment:      form.EnableRecurringPayment,
		RecurringPaymentType:        form.RecurringPaymentType,
		CustomAmountLabel:           form.CustomLabel(),
		EnableSubscriptions:         form.EnableSubscriptions,
		SubscriptionType:            form.SubscriptionType,
		SubscriptionStyle:           form.SubscriptionStyle,
		SingleSetupFee:              form.SinglePlanSetupFee,
		EnableCustomPlanAmount:      form.EnableCustomPlanAmount,
		MultiplePlansAmounts:        multiplePlansAmounts,
		SetupFees:                   setupFees,
		ApplyTax:                    form.EnableSubscriptions,
		EnableTaxes:                 globalSettings.EnableTaxes,
		Tax:                         globalSettings.Tax,
		CurrencySymbol:              mymoney.CurrencySymbol(currency, form.Language),
		TaxLabel:                    formapi.DefaultTaxLabel,
		PaymentTypeIDs:              paymentTypes,
		EnableShippingAddress:       form.EnableShippingAddress,
		EnableBillingAddress:        form.EnableBillingAddress || form.EnableShippingAddress,
		Stripe: formapi.StripeOptions{
			Description:     description,
			PanelLabel:      panelLabel,
			Name:            name,
			Currency:        currency,
			Locale:          locale,
			Amount:          amount.InexactFloat64(),
			Image:           logo,
			Email:           email,
			AllowRememberMe: form.EnableRememberMe,
			ZipCode:         form.VerifyZip,
		},
	}

	// the provider refuses a shipping address without a billing address
	if form.EnableShippingAddress {
		payload.Stripe.ShippingAddress = true
		payload.Stripe.BillingAddress = true
	}
	if form.EnableBillingAddress {
		payload.Stripe.BillingAddress = true
	}

	return payload, nil
}

func (s *PublicDataSerializer) resolvePlan(c context.Context, planID string) (plans.Plan, error) {
	if planID == "" {
		return plans.Plan{}, configurationError("no plan configured")
	}
	plan, found, err := s.catalog.GetPlan(c, planID)
	if err != nil {
		return plans.Plan{}, configurationError("error resolving plan %s: %s", planID, err)
	}
	if !found {
		return plans.Plan{}, configurationError("plan %s not found", planID)
	}
	return plan, nil
}
