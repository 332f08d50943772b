package checkout

import (
	"encoding/json"
	"strings"

	"github.com/MarcGrol/paymentforms/services/formapi"
)

const (
	IntegrationHostedOverlay    = "checkout"
	IntegrationEmbeddedElements = "elements"
)

// Collected is the payment method and customer details gathered by the browser
type Collected struct {
	Method    formapi.PaymentMethod
	Token     string
	Email     string
	IdealBank string
	Billing   formapi.Address
	Shipping  formapi.Address
}

// Integration is the way a form collects the payment method in the browser. The server side
// checks that a submission carries what that way of collecting should have produced.
type Integration interface {
	Name() string
	Collect(payload formapi.PublicCheckoutPayload, submission *formapi.Submission) (Collected, error)
}

func IntegrationFor(form formapi.PaymentFormConfig) Integration {
	if form.IsHostedCheckout() {
		return hostedOverlay{}
	}
	return embeddedElements{}
}

// hostedOverlay: the provider's modal tokenizes the card and asks for the addresses
type hostedOverlay struct{}

func (hostedOverlay) Name() string {
	return IntegrationHostedOverlay
}

func (i hostedOverlay) Collect(payload formapi.PublicCheckoutPayload, submission *formapi.Submission) (Collected, error) {
	if submission.OverlayArgs != "" {
		args := map[string]string{}
		err := json.Unmarshal([]byte(submission.OverlayArgs), &args)
		if err != nil {
			return Collected{}, submissionError("invalid overlay arguments: %s", err)
		}
		ApplyOverlayArgs(submission, payload, args)
	}

	method, err := submission.PaymentMethod()
	if err != nil {
		return Collected{}, submissionError("%s", err)
	}
	if method != formapi.PaymentMethodCard {
		return Collected{}, validationError("payment method %s is not supported by the hosted checkout", method)
	}

	collected := Collected{
		Method: method,
		Token:  strings.TrimSpace(submission.Token),
		Email:  strings.TrimSpace(submission.Email),
	}
	if collected.Token == "" {
		return Collected{}, tokenizationError("card was not tokenized")
	}

	err = collectAddresses(&collected, submission, payload.Stripe.BillingAddress, payload.Stripe.ShippingAddress)
	if err != nil {
		return Collected{}, err
	}

	return collected, nil
}

// ApplyOverlayArgs copies the addresses the customer typed in the hosted modal into the posted
// address field groups.
func ApplyOverlayArgs(submission *formapi.Submission, payload formapi.PublicCheckoutPayload, args map[string]string) {
	if payload.Stripe.ShippingAddress {
		submission.SetAddress(formapi.AddressKindShipping, overlayAddress("shipping", args))
	}
	if payload.Stripe.BillingAddress {
		submission.SetAddress(formapi.AddressKindBilling, overlayAddress("billing", args))
	}
}

func overlayAddress(prefix string, args map[string]string) formapi.Address {
	return formapi.Address{
		Name:    args[prefix+"_name"],
		Line1:   args[prefix+"_address_line1"],
		City:    args[prefix+"_address_city"],
		State:   args[prefix+"_address_state"],
		Zip:     args[prefix+"_address_zip"],
		Country: args[prefix+"_address_country_code"],
	}
}

// embeddedElements: card and bank widgets mounted in the page, one tab per payment method
type embeddedElements struct{}

func (embeddedElements) Name() string {
	return IntegrationEmbeddedElements
}

func (i embeddedElements) Collect(payload formapi.PublicCheckoutPayload, submission *formapi.Submission) (Collected, error) {
	method, err := submission.PaymentMethod()
	if err != nil {
		return Collected{}, submissionError("%s", err)
	}
	if !acceptsPaymentMethod(payload, method) {
		return Collected{}, validationError("payment method %s is not enabled on this form", method)
	}

	collected := Collected{
		Method:    method,
		Token:     strings.TrimSpace(submission.Token),
		Email:     strings.TrimSpace(submission.Email),
		IdealBank: strings.TrimSpace(submission.IdealBank),
	}
	if collected.Email == "" {
		return Collected{}, validationError("email is required")
	}

	err = collectAddresses(&collected, submission, payload.EnableBillingAddress, payload.EnableShippingAddress)
	if err != nil {
		return Collected{}, err
	}

	switch method {
	case formapi.PaymentMethodCard:
		if collected.Token == "" {
			return Collected{}, tokenizationError("card was not tokenized")
		}
	case formapi.PaymentMethodIDEAL:
		if collected.IdealBank == "" {
			return Collected{}, validationError("no bank selected")
		}
	case formapi.PaymentMethodSOFORT:
		if collected.Billing.Country == "" {
			return Collected{}, validationError("country of the billing address is required")
		}
	}

	return collected, nil
}

func acceptsPaymentMethod(payload formapi.PublicCheckoutPayload, method formapi.PaymentMethod) bool {
	for _, m := range payload.PaymentTypeIDs {
		if m == method {
			return true
		}
	}
	return false
}

func collectAddresses(collected *Collected, submission *formapi.Submission, billingRequired bool, shippingRequired bool) error {
	billing, _ := submission.Address(formapi.AddressKindBilling)
	shipping, _ := submission.Address(formapi.AddressKindShipping)

	if billingRequired && !billing.Complete() {
		return validationError("billing address is incomplete")
	}
	if shippingRequired && !shipping.Complete() {
		return validationError("shipping address is incomplete")
	}

	collected.Billing = billing
	collected.Shipping = shipping
	return nil
}
