package formapi

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MarcGrol/paymentforms/lib/myerrors"
)

func validForm() PaymentFormConfig {
	return PaymentFormConfig{
		Name:           "Donation",
		Handle:         "donation",
		EnableCheckout: true,
		Currency:       "EUR",
		Amount:         25,
	}
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name   string
		modify func(f *PaymentFormConfig)
		field  string
	}{
		{name: "valid", modify: func(f *PaymentFormConfig) {}},
		{name: "missing name", modify: func(f *PaymentFormConfig) { f.Name = "" }, field: "Name"},
		{name: "invalid handle", modify: func(f *PaymentFormConfig) { f.Handle = "my handle" }, field: "Handle"},
		{name: "invalid currency", modify: func(f *PaymentFormConfig) { f.Currency = "EURO" }, field: "Currency"},
		{name: "discount rate above 100", modify: func(f *PaymentFormConfig) { f.Discount = 120 }, field: "Discount"},
		{name: "discount amount above 100", modify: func(f *PaymentFormConfig) { f.DiscountType = DiscountTypeAmount; f.Discount = 120 }},
		{name: "negative discount", modify: func(f *PaymentFormConfig) { f.Discount = -1 }, field: "Discount"},
		{name: "elements without payment types", modify: func(f *PaymentFormConfig) { f.EnableCheckout = false }, field: "PaymentTypes"},
		{name: "elements with ideal", modify: func(f *PaymentFormConfig) {
			f.EnableCheckout = false
			f.PaymentTypes = []PaymentMethod{PaymentMethodCard, PaymentMethodIDEAL}
		}},
		{name: "unknown payment type", modify: func(f *PaymentFormConfig) {
			f.EnableCheckout = false
			f.PaymentTypes = []PaymentMethod{4}
		}, field: "PaymentTypes"},
		{name: "shipping without billing", modify: func(f *PaymentFormConfig) { f.EnableShippingAddress = true }, field: "EnableBillingAddress"},
		{name: "shipping with billing", modify: func(f *PaymentFormConfig) {
			f.EnableShippingAddress = true
			f.EnableBillingAddress = true
		}},
		{name: "single plan without plan", modify: func(f *PaymentFormConfig) { f.EnableSubscriptions = true }, field: "SinglePlanID"},
		{name: "multi plan without plans", modify: func(f *PaymentFormConfig) {
			f.EnableSubscriptions = true
			f.SubscriptionType = SubscriptionTypeMultiPlan
		}, field: "MultiplePlans"},
		{name: "multi plan with duplicate plans", modify: func(f *PaymentFormConfig) {
			f.EnableSubscriptions = true
			f.SubscriptionType = SubscriptionTypeMultiPlan
			f.MultiplePlans = []PlanRef{{PlanID: "gold"}, {PlanID: "gold"}}
		}, field: "MultiplePlans"},
		{name: "negative setup fee", modify: func(f *PaymentFormConfig) {
			f.EnableSubscriptions = true
			f.SubscriptionType = SubscriptionTypeMultiPlan
			f.MultiplePlans = []PlanRef{{PlanID: "gold", SetupFee: -5}}
		}, field: "SetupFee"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := validForm()
			tc.modify(&f)

			err := Validate(f)

			if tc.field == "" {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
			assert.Equal(t, 422, myerrors.GetHTTPStatus(err))
			assert.Contains(t, err.Error(), tc.field)
		})
	}
}

func TestButtonTexts(t *testing.T) {
	f := validForm()
	assert.Equal(t, "Pay with card", f.PaymentFormText(""))
	assert.Equal(t, "Pay with card", f.ProcessingText())

	f.ButtonText = "Support {{.Name}}"
	assert.Equal(t, "Support Donation", f.PaymentFormText(""))
	assert.Equal(t, "Support Donation", f.ProcessingText())

	f.PaymentButtonProcessingText = "Processing..."
	assert.Equal(t, "Processing...", f.ProcessingText())

	f.ButtonText = "Broken {{.Name"
	assert.Equal(t, "Broken {{.Name", f.PaymentFormText(""))
}

func TestDiscountTypeName(t *testing.T) {
	f := validForm()
	assert.Equal(t, "discount_rate", f.DiscountTypeName())
	f.DiscountType = DiscountTypeAmount
	assert.Equal(t, "discount_amount", f.DiscountTypeName())
}

func TestDecodeSubmission(t *testing.T) {
	values := url.Values{
		"paymentType":             {"2"},
		"email":                   {"marc@home.nl"},
		"amount":                  {"13200"},
		"customAmount":            {"abc"},
		"enupalMultiPlan":         {"gold"},
		"quantity":                {"3"},
		"idealBank":               {"ing"},
		"billingAddress[name]":    {"Marc Grol"},
		"billingAddress[line1]":   {"Main street 1"},
		"billingAddress[city]":    {"Utrecht"},
		"billingAddress[zip]":     {"1234AB"},
		"billingAddress[country]": {"NL"},
		"address[name]":           {"Eva Grol"},
		"address[city]":           {"Amsterdam"},
	}

	s, err := NewSubmissionFromValues(values)
	assert.NoError(t, err)

	m, err := s.PaymentMethod()
	assert.NoError(t, err)
	assert.Equal(t, PaymentMethodIDEAL, m)
	assert.False(t, m.NeedsToken())

	amount, err := s.AmountInMinorUnits()
	assert.NoError(t, err)
	assert.Equal(t, int64(13200), amount)
	assert.Equal(t, 3, s.QuantityOrDefault())
	assert.Equal(t, "gold", s.MultiPlan)

	billing, found := s.Address(AddressKindBilling)
	assert.True(t, found)
	assert.True(t, billing.Complete())
	assert.Equal(t, Address{Name: "Marc Grol", Line1: "Main street 1", City: "Utrecht", Zip: "1234AB", Country: "NL"}, billing)

	shipping, found := s.Address(AddressKindShipping)
	assert.True(t, found)
	assert.Equal(t, "Eva Grol", shipping.Name)
	assert.False(t, shipping.Complete())

	t.Run("same address toggle copies billing", func(t *testing.T) {
		s.SameAddressToggle = "on"
		shipping, found := s.Address(AddressKindShipping)
		assert.True(t, found)
		assert.Equal(t, billing, shipping)
	})
}

func TestSubmissionFormRoundtripKeepsAddressGroups(t *testing.T) {
	s := Submission{PaymentType: "1", Token: "tok_123"}
	s.SetAddress(AddressKindShipping, Address{Name: "Eva", City: "Amsterdam"})

	values, err := s.ToForm()
	assert.NoError(t, err)
	assert.Equal(t, "Eva", values.Get("address[name]"))
	assert.Equal(t, "tok_123", values.Get("token"))
}

func TestInvalidSubmission(t *testing.T) {
	s := Submission{PaymentType: "7", Amount: "12.5"}

	_, err := s.PaymentMethod()
	assert.Equal(t, 400, myerrors.GetHTTPStatus(err))

	_, err = s.AmountInMinorUnits()
	assert.Equal(t, 400, myerrors.GetHTTPStatus(err))

	assert.Equal(t, 1, s.QuantityOrDefault())
}
