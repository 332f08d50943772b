package formapi

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	formcodec "github.com/go-playground/form/v4"

	"github.com/MarcGrol/paymentforms/lib/myerrors"
)

// Submission is the html form as posted by the checkout page after the payment method was collected
type Submission struct {
	PaymentType       string            `form:"paymentType"`
	Token             string            `form:"token"`
	Email             string            `form:"email"`
	Amount            string            `form:"amount"`
	TestMode          string            `form:"testMode"`
	CustomAmount      string            `form:"customAmount"`
	CustomPlanAmount  string            `form:"customPlanAmount"`
	MultiPlan         string            `form:"enupalMultiPlan"`
	TaxAmount         string            `form:"taxAmount"`
	SameAddressToggle string            `form:"sameAddressToggle"`
	RecurringToggle   string            `form:"recurringToggle"`
	StripeData        string            `form:"stripeData"`
	IdealBank         string            `form:"idealBank"`
	Quantity          string            `form:"quantity"`
	OverlayArgs       string            `form:"overlayArgs"`
	ShippingFields    map[string]string `form:"address"`
	BillingFields     map[string]string `form:"billingAddress"`
}

type AddressKind int

const (
	AddressKindBilling AddressKind = iota
	AddressKindShipping
)

func (k AddressKind) String() string {
	if k == AddressKindShipping {
		return "shipping"
	}
	return "billing"
}

// FieldGroup is the name of the posted field group holding the address
func (k AddressKind) FieldGroup() string {
	if k == AddressKindShipping {
		return "address"
	}
	return "billingAddress"
}

type Address struct {
	Name    string
	Line1   string
	City    string
	State   string
	Zip     string
	Country string
}

func (a Address) IsEmpty() bool {
	return a == Address{}
}

func (a Address) Complete() bool {
	return a.Name != "" && a.Line1 != "" && a.City != "" && a.Zip != "" && a.Country != ""
}

func addressFromFields(fields map[string]string) Address {
	get := func(key string) string {
		return strings.TrimSpace(fields[key])
	}
	return Address{
		Name:    get("name"),
		Line1:   get("line1"),
		City:    get("city"),
		State:   get("state"),
		Zip:     get("zip"),
		Country: get("country"),
	}
}

func (a Address) fields() map[string]string {
	return map[string]string{
		"name":    a.Name,
		"line1":   a.Line1,
		"city":    a.City,
		"state":   a.State,
		"zip":     a.Zip,
		"country": a.Country,
	}
}

func NewSubmissionFromRequest(r *http.Request) (Submission, error) {
	err := r.ParseForm()
	if err != nil {
		return Submission{}, myerrors.NewInvalidInputError(err)
	}
	return NewSubmissionFromValues(r.Form)
}

func NewSubmissionFromValues(values url.Values) (Submission, error) {
	submission := Submission{}
	err := formcodec.NewDecoder().Decode(&submission, values)
	if err != nil {
		return submission, myerrors.NewInvalidInputError(fmt.Errorf("error decoding form: %s", err))
	}

	return submission, nil
}

func (s Submission) ToForm() (url.Values, error) {
	values, err := formcodec.NewEncoder().Encode(s)
	if err != nil {
		return nil, fmt.Errorf("error encoding form: %s", err)
	}

	return values, nil
}

func (s *Submission) SetAddress(kind AddressKind, address Address) {
	if kind == AddressKindShipping {
		s.ShippingFields = address.fields()
		return
	}
	s.BillingFields = address.fields()
}

// Address returns the posted address of the given kind. When the customer indicated that shipping
// equals billing, the billing address is returned as shipping address.
func (s Submission) Address(kind AddressKind) (Address, bool) {
	if kind == AddressKindShipping && s.SameAddress() {
		kind = AddressKindBilling
	}
	fields := s.BillingFields
	if kind == AddressKindShipping {
		fields = s.ShippingFields
	}
	address := addressFromFields(fields)
	return address, !address.IsEmpty()
}

func (s Submission) SameAddress() bool {
	return isChecked(s.SameAddressToggle)
}

func (s Submission) Recurring() bool {
	return isChecked(s.RecurringToggle)
}

func (s Submission) IsTestMode() bool {
	return isChecked(s.TestMode)
}

// PaymentMethod returns the selected method; posts without one are card payments
func (s Submission) PaymentMethod() (PaymentMethod, error) {
	if strings.TrimSpace(s.PaymentType) == "" {
		return PaymentMethodCard, nil
	}
	id, err := strconv.Atoi(strings.TrimSpace(s.PaymentType))
	if err != nil {
		return 0, myerrors.NewInvalidInputError(fmt.Errorf("invalid payment type %q", s.PaymentType))
	}
	m := PaymentMethod(id)
	switch m {
	case PaymentMethodCard, PaymentMethodIDEAL, PaymentMethodSOFORT:
		return m, nil
	default:
		return 0, myerrors.NewInvalidInputError(fmt.Errorf("unknown payment type %d", id))
	}
}

func (s Submission) QuantityOrDefault() int {
	q, err := strconv.Atoi(strings.TrimSpace(s.Quantity))
	if err != nil || q <= 0 {
		return 1
	}
	return q
}

// AmountInMinorUnits is the final amount as computed by the browser
func (s Submission) AmountInMinorUnits() (int64, error) {
	amount, err := strconv.ParseInt(strings.TrimSpace(s.Amount), 10, 64)
	if err != nil {
		return 0, myerrors.NewInvalidInputError(fmt.Errorf("invalid amount %q", s.Amount))
	}
	return amount, nil
}

func isChecked(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "0", "false", "off", "no":
		return false
	default:
		return true
	}
}
