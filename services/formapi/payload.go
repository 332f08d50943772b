package formapi

// PublicCheckoutPayload is what the browser gets to see of a payment form. It is embedded in the
// checkout page and is the input of the amount calculation. Secret keys never go in here.
type PublicCheckoutPayload struct {
	PaymentFormID               string                `json:"paymentFormId"`
	Handle                      string                `json:"handle"`
	AmountType                  AmountType            `json:"amountType"`
	CustomerQuantity            bool                  `json:"customerQuantity"`
	ButtonText                  string                `json:"buttonText"`
	PaymentButtonProcessingText string                `json:"paymentButtonProcessingText"`
	PublishableKey              string                `json:"pbk"`
	TestMode                    bool                  `json:"testMode"`
	EnableRecurringPayment      bool                  `json:"enableRecurringPayment"`
	RecurringPaymentType        string                `json:"recurringPaymentType"`
	CustomAmountLabel           string                `json:"customAmountLabel"`
	EnableSubscriptions         bool                  `json:"enableSubscriptions"`
	SubscriptionType            SubscriptionType      `json:"subscriptionType"`
	SubscriptionStyle           SubscriptionStyle     `json:"subscriptionStyle"`
	SingleSetupFee              float64               `json:"singleSetupFee"`
	EnableCustomPlanAmount      bool                  `json:"enableCustomPlanAmount"`
	MultiplePlansAmounts        map[string]PlanAmount `json:"multiplePlansAmounts"`
	SetupFees                   map[string]float64    `json:"setupFees"`
	ApplyTax                    bool                  `json:"applyTax"`
	EnableTaxes                 bool                  `json:"enableTaxes"`
	Tax                         float64               `json:"tax"`
	CurrencySymbol              string                `json:"currencySymbol"`
	TaxLabel                    string                `json:"taxLabel"`
	PaymentTypeIDs              []PaymentMethod       `json:"paymentTypeIds"`
	EnableShippingAddress       bool                  `json:"enableShippingAddress"`
	EnableBillingAddress        bool                  `json:"enableBillingAddress"`
	Stripe                      StripeOptions         `json:"stripe"`
}

// StripeOptions is handed unchanged to the provider's client library
type StripeOptions struct {
	Description     string  `json:"description"`
	PanelLabel      string  `json:"panelLabel"`
	Name            string  `json:"name"`
	Currency        string  `json:"currency"`
	Locale          string  `json:"locale"`
	Amount          float64 `json:"amount"`
	Image           string  `json:"image,omitempty"`
	Email           string  `json:"email"`
	AllowRememberMe bool    `json:"allowRememberMe"`
	ZipCode         bool    `json:"zipCode"`
	BillingAddress  bool    `json:"billingAddress,omitempty"`
	ShippingAddress bool    `json:"shippingAddress,omitempty"`
}

// PlanAmount is derived from the plan catalog each time a payload is generated
type PlanAmount struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	SetupFee float64 `json:"setupFee"`
}

// PayloadOptions override form settings for a single rendering of a form
type PayloadOptions struct {
	Amount               *float64
	Currency             string
	Description          string
	Logo                 string
	Quantity             int
	CalculateFinalAmount *bool
}

func (o PayloadOptions) QuantityOrDefault() int {
	if o.Quantity <= 0 {
		return 1
	}
	return o.Quantity
}

func (o PayloadOptions) ShouldCalculateFinalAmount() bool {
	return o.CalculateFinalAmount == nil || *o.CalculateFinalAmount
}
