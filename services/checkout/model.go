package checkout

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/MarcGrol/paymentforms/services/checkoutevents"
	"github.com/MarcGrol/paymentforms/services/formapi"
)

const orderMetadataKey = "orderUID"

type Order struct {
	UID                string
	FormHandle         string
	CreatedAt          time.Time
	LastModified       *time.Time
	Email              string
	AmountInMinorUnits int64
	Currency           string
	TaxAmount          float64
	Quantity           int
	PaymentMethod      string
	Integration        string
	TestMode           bool
	BillingAddress     formapi.Address
	ShippingAddress    formapi.Address
	PlanID             string
	StripeCustomerID   string
	StripeObjectID     string
	RedirectStatus     string
	ProviderEvent      string
	Status             checkoutevents.OrderStatus
	Success            bool
}

func (o Order) IsFinal() bool {
	return o.Status == checkoutevents.OrderStatusSucceeded || o.Status == checkoutevents.OrderStatusFailed
}

// AmountPreview is the answer to a price recalculation of the checkout page
type AmountPreview struct {
	Base       decimal.Decimal
	Fee        decimal.Decimal
	Tax        decimal.Decimal
	Final      decimal.Decimal
	Currency   string
	MinorUnits int64
	TaxLabel   string
}

type PlanOption struct {
	ID   string
	Name string
}

// CheckoutPageInfo feeds the checkout page template
type CheckoutPageInfo struct {
	Form           formapi.PaymentFormConfig
	Payload        formapi.PublicCheckoutPayload
	PayloadJSON    string
	Integration    string
	PaymentMethods []formapi.PaymentMethod
	Plans          []PlanOption
	ButtonText     string
	Status         string
}

func (i CheckoutPageInfo) IsHosted() bool {
	return i.Integration == IntegrationHostedOverlay
}
