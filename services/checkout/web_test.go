package checkout

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stripe/stripe-go/v74"
	"go.uber.org/mock/gomock"

	"github.com/MarcGrol/paymentforms/lib/myhttp"
	"github.com/MarcGrol/paymentforms/lib/mypublisher"
	"github.com/MarcGrol/paymentforms/lib/mystore"
	"github.com/MarcGrol/paymentforms/lib/mytime"
	"github.com/MarcGrol/paymentforms/lib/myuuid"
	"github.com/MarcGrol/paymentforms/services/checkoutevents"
	"github.com/MarcGrol/paymentforms/services/formapi"
	"github.com/MarcGrol/paymentforms/services/plans"
	"github.com/MarcGrol/paymentforms/services/settings"
)

const webhookSecret = "whsec_test"

type testContext struct {
	c          context.Context
	router     *mux.Router
	formStore  mystore.Store[formapi.PaymentFormConfig]
	orderStore mystore.Store[Order]
	catalog    *plans.MockCatalog
	reader     *settings.MockReader
	payer      *MockPayer
	nower      *mytime.MockNower
	uuider     *myuuid.MockUUIDer
	publisher  *mypublisher.MockPublisher
}

func donationForm() formapi.PaymentFormConfig {
	return formapi.PaymentFormConfig{
		UID:               "form-1",
		Name:              "Donate",
		Handle:            "donate",
		Enabled:           true,
		PaymentTypes:      []formapi.PaymentMethod{formapi.PaymentMethodCard, formapi.PaymentMethodIDEAL},
		Currency:          "EUR",
		Amount:            10,
		HasUnlimitedStock: true,
		ReturnURL:         "https://example.com/thanks",
	}
}

func cardSubmission(amount string) url.Values {
	return url.Values{
		"paymentType": {"1"},
		"token":       {"tok_visa"},
		"email":       {"marc@example.com"},
		"amount":      {amount},
	}
}

func TestCheckoutSubmit(t *testing.T) {

	t.Run("Card payment succeeds", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		tc := setup(t, ctrl, donationForm())

		// given
		tc.reader.EXPECT().SecretKey(gomock.Any()).Return("sk_test_123", nil)
		tc.payer.EXPECT().UseAPIKey("sk_test_123")
		tc.nower.EXPECT().Now().Return(mytime.ExampleTime)
		tc.uuider.EXPECT().Create().Return("order-1")
		tc.payer.EXPECT().CreatePaymentMethod(gomock.Any(), gomock.Any()).DoAndReturn(func(c context.Context, params stripe.PaymentMethodParams) (stripe.PaymentMethod, error) {
			assert.Equal(t, "card", *params.Type)
			assert.Equal(t, "tok_visa", *params.Card.Token)
			return stripe.PaymentMethod{ID: "pm_1"}, nil
		})
		tc.payer.EXPECT().CreateCustomer(gomock.Any(), gomock.Any()).Return(stripe.Customer{ID: "cus_1"}, nil)
		tc.payer.EXPECT().CreatePaymentIntent(gomock.Any(), gomock.Any()).DoAndReturn(func(c context.Context, params stripe.PaymentIntentParams) (stripe.PaymentIntent, error) {
			assert.Equal(t, int64(1000), *params.Amount)
			assert.Equal(t, "eur", *params.Currency)
			assert.Equal(t, "cus_1", *params.Customer)
			assert.Equal(t, "pm_1", *params.PaymentMethod)
			assert.Equal(t, "order-1", params.Metadata["orderUID"])
			return stripe.PaymentIntent{ID: "pi_1", Status: stripe.PaymentIntentStatusSucceeded}, nil
		})
		tc.publisher.EXPECT().Publish(gomock.Any(), checkoutevents.TopicName, checkoutevents.OrderCreated{
			OrderUID:           "order-1",
			FormHandle:         "donate",
			AmountInMinorUnits: 1000,
			Currency:           "EUR",
			Quantity:           1,
			PaymentMethod:      "card",
			Integration:        IntegrationEmbeddedElements,
			Email:              "marc@example.com",
		}).Return(nil)
		tc.publisher.EXPECT().Publish(gomock.Any(), checkoutevents.TopicName, checkoutevents.OrderCompleted{
			OrderUID:   "order-1",
			FormHandle: "donate",
			Status:     checkoutevents.OrderStatusSucceeded,
			Success:    true,
		}).Return(nil)

		// when
		response := postForm(t, tc.router, "/paymentform/donate/submit", cardSubmission("1000"))

		// then
		assert.Equal(t, http.StatusSeeOther, response.Code)
		assert.Equal(t, "https://example.com/thanks?order=order-1&status=success", response.Header().Get("Location"))
		order, found, _ := tc.orderStore.Get(tc.c, "order-1")
		assert.True(t, found)
		assert.Equal(t, "pi_1", order.StripeObjectID)
		assert.Equal(t, "cus_1", order.StripeCustomerID)
		assert.Equal(t, mytime.ExampleTime, order.CreatedAt)
		assert.True(t, order.Success)
	})

	t.Run("Posted amount does not match", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		tc := setup(t, ctrl, donationForm())

		// when
		response := postForm(t, tc.router, "/paymentform/donate/submit", cardSubmission("999"))

		// then
		assert.Equal(t, http.StatusUnprocessableEntity, response.Code)
		_, found, _ := tc.orderStore.Get(tc.c, "order-1")
		assert.False(t, found)
	})

	t.Run("Amount below minimum", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		form := donationForm()
		form.AmountType = formapi.AmountTypeCustom
		form.MinimumAmount = 5
		tc := setup(t, ctrl, form)
		values := cardSubmission("300")
		values.Set("customAmount", "3")

		// when
		response := postForm(t, tc.router, "/paymentform/donate/submit", values)

		// then
		assert.Equal(t, http.StatusUnprocessableEntity, response.Code)
	})

	t.Run("Hosted checkout without token", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		form := donationForm()
		form.EnableCheckout = true
		tc := setup(t, ctrl, form)

		// when
		response := postForm(t, tc.router, "/paymentform/donate/submit", url.Values{"amount": {"1000"}})

		// then
		assert.Equal(t, http.StatusPaymentRequired, response.Code)
	})

	t.Run("Sold out", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		form := donationForm()
		form.HasUnlimitedStock = false
		form.Quantity = 1
		form.CustomerQuantity = true
		form.SoldOutMessage = "All tickets are gone"
		tc := setup(t, ctrl, form)
		values := cardSubmission("2000")
		values.Set("quantity", "2")

		// when
		response := postForm(t, tc.router, "/paymentform/donate/submit", values)

		// then
		assert.Equal(t, http.StatusUnprocessableEntity, response.Code)
		assert.Contains(t, response.Body.String(), "All tickets are gone")
	})

	t.Run("Pending payment decrements stock", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		form := donationForm()
		form.HasUnlimitedStock = false
		form.Quantity = 5
		form.CustomerQuantity = true
		form.ReturnURL = ""
		tc := setup(t, ctrl, form)
		values := cardSubmission("2000")
		values.Set("quantity", "2")

		// given
		tc.reader.EXPECT().SecretKey(gomock.Any()).Return("sk_test_123", nil)
		tc.payer.EXPECT().UseAPIKey("sk_test_123")
		tc.nower.EXPECT().Now().Return(mytime.ExampleTime)
		tc.uuider.EXPECT().Create().Return("order-1")
		tc.payer.EXPECT().CreatePaymentMethod(gomock.Any(), gomock.Any()).Return(stripe.PaymentMethod{ID: "pm_1"}, nil)
		tc.payer.EXPECT().CreateCustomer(gomock.Any(), gomock.Any()).Return(stripe.Customer{ID: "cus_1"}, nil)
		tc.payer.EXPECT().CreatePaymentIntent(gomock.Any(), gomock.Any()).Return(stripe.PaymentIntent{ID: "pi_1", Status: stripe.PaymentIntentStatusProcessing}, nil)
		tc.publisher.EXPECT().Publish(gomock.Any(), checkoutevents.TopicName, gomock.AssignableToTypeOf(checkoutevents.OrderCreated{})).Return(nil)

		// when
		response := postForm(t, tc.router, "/paymentform/donate/submit", values)

		// then
		assert.Equal(t, http.StatusSeeOther, response.Code)
		assert.Equal(t, "http://example.com/paymentform/donate/checkout?order=order-1&status=pending", response.Header().Get("Location"))
		stored, _, _ := tc.formStore.Get(tc.c, "donate")
		assert.Equal(t, 3, stored.Quantity)
		order, _, _ := tc.orderStore.Get(tc.c, "order-1")
		assert.Equal(t, checkoutevents.OrderStatusPending, order.Status)
		assert.Equal(t, 2, order.Quantity)
	})

	t.Run("Provider declines card", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		tc := setup(t, ctrl, donationForm())

		// given
		tc.reader.EXPECT().SecretKey(gomock.Any()).Return("sk_test_123", nil)
		tc.payer.EXPECT().UseAPIKey("sk_test_123")
		tc.nower.EXPECT().Now().Return(mytime.ExampleTime)
		tc.uuider.EXPECT().Create().Return("order-1")
		tc.payer.EXPECT().CreatePaymentMethod(gomock.Any(), gomock.Any()).Return(stripe.PaymentMethod{}, ProviderError("payment method", &stripe.Error{Type: stripe.ErrorTypeCard, Msg: "Your card was declined"}))

		// when
		response := postForm(t, tc.router, "/paymentform/donate/submit", cardSubmission("1000"))

		// then
		assert.Equal(t, http.StatusPaymentRequired, response.Code)
		_, found, _ := tc.orderStore.Get(tc.c, "order-1")
		assert.False(t, found)
	})

	t.Run("iDEAL redirects to bank", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		tc := setup(t, ctrl, donationForm())

		// given
		tc.reader.EXPECT().SecretKey(gomock.Any()).Return("sk_test_123", nil)
		tc.payer.EXPECT().UseAPIKey("sk_test_123")
		tc.nower.EXPECT().Now().Return(mytime.ExampleTime).Times(2)
		tc.uuider.EXPECT().Create().Return("order-1")
		tc.payer.EXPECT().CreatePaymentMethod(gomock.Any(), gomock.Any()).DoAndReturn(func(c context.Context, params stripe.PaymentMethodParams) (stripe.PaymentMethod, error) {
			assert.Equal(t, "ideal", *params.Type)
			assert.Equal(t, "ing", *params.IDEAL.Bank)
			return stripe.PaymentMethod{ID: "pm_1"}, nil
		})
		tc.payer.EXPECT().CreateCustomer(gomock.Any(), gomock.Any()).Return(stripe.Customer{ID: "cus_1"}, nil)
		tc.payer.EXPECT().CreatePaymentIntent(gomock.Any(), gomock.Any()).DoAndReturn(func(c context.Context, params stripe.PaymentIntentParams) (stripe.PaymentIntent, error) {
			assert.Equal(t, "http://example.com/paymentform/donate/return/order-1", *params.ReturnURL)
			return stripe.PaymentIntent{
				ID:     "pi_1",
				Status: stripe.PaymentIntentStatusRequiresAction,
				NextAction: &stripe.PaymentIntentNextAction{
					RedirectToURL: &stripe.PaymentIntentNextActionRedirectToURL{URL: "https://bank.example.com/pay"},
				},
			}, nil
		})
		tc.publisher.EXPECT().Publish(gomock.Any(), checkoutevents.TopicName, gomock.AssignableToTypeOf(checkoutevents.OrderCreated{})).Return(nil)

		// when
		response := postForm(t, tc.router, "/paymentform/donate/submit", url.Values{
			"paymentType": {"2"},
			"idealBank":   {"ing"},
			"email":       {"marc@example.com"},
			"amount":      {"1000"},
		})

		// then
		assert.Equal(t, http.StatusSeeOther, response.Code)
		assert.Equal(t, "https://bank.example.com/pay", response.Header().Get("Location"))

		// when
		response = doRequest(t, tc.router, http.MethodGet, "/paymentform/donate/return/order-1?redirect_status=succeeded", "")

		// then
		assert.Equal(t, http.StatusSeeOther, response.Code)
		assert.Equal(t, "https://example.com/thanks?order=order-1&status=success", response.Header().Get("Location"))
		order, _, _ := tc.orderStore.Get(tc.c, "order-1")
		assert.Equal(t, "succeeded", order.RedirectStatus)
		assert.Equal(t, checkoutevents.OrderStatusPending, order.Status)
	})

	t.Run("Return of unknown order", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		tc := setup(t, ctrl, donationForm())

		// given
		tc.nower.EXPECT().Now().Return(mytime.ExampleTime)

		// when
		response := doRequest(t, tc.router, http.MethodGet, "/paymentform/donate/return/order-x?redirect_status=succeeded", "")

		// then
		assert.Equal(t, http.StatusNotFound, response.Code)
	})

	t.Run("Subscription with setup fee and tax", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		form := donationForm()
		form.EnableSubscriptions = true
		form.SubscriptionType = formapi.SubscriptionTypeSinglePlan
		form.SinglePlanID = "plan_gold"
		form.SinglePlanSetupFee = 5
		form.SinglePlanTrialPeriod = 14
		tc := setup(t, ctrl, form)

		// given
		tc.catalog.EXPECT().GetPlan(gomock.Any(), "plan_gold").Return(plans.Plan{ID: "plan_gold", Currency: "EUR", AmountMinor: 1500, Interval: "month"}, true, nil)
		tc.reader.EXPECT().SecretKey(gomock.Any()).Return("sk_test_123", nil)
		tc.payer.EXPECT().UseAPIKey("sk_test_123")
		tc.nower.EXPECT().Now().Return(mytime.ExampleTime)
		tc.uuider.EXPECT().Create().Return("order-1")
		tc.payer.EXPECT().CreatePaymentMethod(gomock.Any(), gomock.Any()).Return(stripe.PaymentMethod{ID: "pm_1"}, nil)
		tc.payer.EXPECT().CreateCustomer(gomock.Any(), gomock.Any()).Return(stripe.Customer{ID: "cus_1"}, nil)
		tc.payer.EXPECT().CreateInvoiceItem(gomock.Any(), invoiceItemParams("cus_1", "eur", 500, "Setup fee")).Return(stripe.InvoiceItem{ID: "ii_1"}, nil)
		tc.payer.EXPECT().CreateInvoiceItem(gomock.Any(), invoiceItemParams("cus_1", "eur", 200, "Tax Amount")).Return(stripe.InvoiceItem{ID: "ii_2"}, nil)
		tc.payer.EXPECT().CreateSubscription(gomock.Any(), gomock.Any()).DoAndReturn(func(c context.Context, params stripe.SubscriptionParams) (stripe.Subscription, error) {
			assert.Equal(t, "plan_gold", *params.Items[0].Plan)
			assert.Equal(t, int64(14), *params.TrialPeriodDays)
			assert.Equal(t, "pm_1", *params.DefaultPaymentMethod)
			return stripe.Subscription{ID: "sub_1", Status: stripe.SubscriptionStatusTrialing}, nil
		})
		tc.publisher.EXPECT().Publish(gomock.Any(), checkoutevents.TopicName, gomock.AssignableToTypeOf(checkoutevents.OrderCreated{})).Return(nil)
		tc.publisher.EXPECT().Publish(gomock.Any(), checkoutevents.TopicName, gomock.AssignableToTypeOf(checkoutevents.OrderCompleted{})).Return(nil)

		// when
		response := postForm(t, tc.router, "/paymentform/donate/submit", cardSubmission("2200"))

		// then
		assert.Equal(t, http.StatusSeeOther, response.Code)
		order, _, _ := tc.orderStore.Get(tc.c, "order-1")
		assert.Equal(t, "sub_1", order.StripeObjectID)
		assert.Equal(t, "plan_gold", order.PlanID)
		assert.Equal(t, 2.0, order.TaxAmount)
		assert.Equal(t, checkoutevents.OrderStatusSucceeded, order.Status)
	})

	t.Run("Custom plan amount with quantity is billed once per cycle", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		form := donationForm()
		form.EnableSubscriptions = true
		form.SubscriptionType = formapi.SubscriptionTypeSinglePlan
		form.EnableCustomPlanAmount = true
		form.CustomPlanInterval = "month"
		form.CustomPlanFrequency = 1
		form.CustomerQuantity = true
		tc := setup(t, ctrl, form)

		// given
		var planAmount int64
		tc.reader.EXPECT().SecretKey(gomock.Any()).Return("sk_test_123", nil)
		tc.payer.EXPECT().UseAPIKey("sk_test_123")
		tc.nower.EXPECT().Now().Return(mytime.ExampleTime)
		tc.uuider.EXPECT().Create().Return("order-1")
		tc.payer.EXPECT().CreatePaymentMethod(gomock.Any(), gomock.Any()).Return(stripe.PaymentMethod{ID: "pm_1"}, nil)
		tc.payer.EXPECT().CreateCustomer(gomock.Any(), gomock.Any()).Return(stripe.Customer{ID: "cus_1"}, nil)
		tc.payer.EXPECT().CreatePlan(gomock.Any(), gomock.Any()).DoAndReturn(func(c context.Context, params stripe.PlanParams) (stripe.Plan, error) {
			planAmount = *params.Amount
			return stripe.Plan{ID: "plan_custom"}, nil
		})
		tc.payer.EXPECT().CreateInvoiceItem(gomock.Any(), invoiceItemParams("cus_1", "eur", 200, "Tax Amount")).Return(stripe.InvoiceItem{ID: "ii_1"}, nil)
		tc.payer.EXPECT().CreateSubscription(gomock.Any(), gomock.Any()).DoAndReturn(func(c context.Context, params stripe.SubscriptionParams) (stripe.Subscription, error) {
			assert.Equal(t, "plan_custom", *params.Items[0].Plan)
			assert.Equal(t, int64(2000), planAmount*(*params.Items[0].Quantity))
			return stripe.Subscription{ID: "sub_1", Status: stripe.SubscriptionStatusActive}, nil
		})
		tc.publisher.EXPECT().Publish(gomock.Any(), checkoutevents.TopicName, gomock.AssignableToTypeOf(checkoutevents.OrderCreated{})).Return(nil)
		tc.publisher.EXPECT().Publish(gomock.Any(), checkoutevents.TopicName, gomock.AssignableToTypeOf(checkoutevents.OrderCompleted{})).Return(nil)

		submission := cardSubmission("2200")
		submission.Set("customPlanAmount", "20")
		submission.Set("quantity", "3")

		// when
		response := postForm(t, tc.router, "/paymentform/donate/submit", submission)

		// then
		assert.Equal(t, http.StatusSeeOther, response.Code)
		order, _, _ := tc.orderStore.Get(tc.c, "order-1")
		assert.Equal(t, 3, order.Quantity)
		assert.Equal(t, int64(2200), order.AmountInMinorUnits)
		assert.Equal(t, order.AmountInMinorUnits, planAmount+200)
	})

	t.Run("Disabled form", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		form := donationForm()
		form.Enabled = false
		tc := setup(t, ctrl, form)

		// when
		response := postForm(t, tc.router, "/paymentform/donate/submit", cardSubmission("1000"))

		// then
		assert.Equal(t, http.StatusNotFound, response.Code)
	})
}

func TestCheckoutWebhook(t *testing.T) {

	t.Run("Payment intent succeeded", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		tc := setup(t, ctrl, donationForm())

		// given
		storePendingOrder(t, tc, Order{UID: "order-1", FormHandle: "donate", StripeObjectID: "pi_1"})
		tc.reader.EXPECT().WebhookSecret(gomock.Any()).Return(webhookSecret, nil).Times(2)
		tc.nower.EXPECT().Now().Return(mytime.ExampleTime).Times(2)
		tc.publisher.EXPECT().Publish(gomock.Any(), checkoutevents.TopicName, checkoutevents.OrderCompleted{
			OrderUID:      "order-1",
			FormHandle:    "donate",
			ProviderEvent: "payment_intent.succeeded",
			Status:        checkoutevents.OrderStatusSucceeded,
			Success:       true,
		}).Return(nil)
		payload := stripeEvent("payment_intent.succeeded", `{"id":"pi_1","object":"payment_intent","metadata":{"orderUID":"order-1"}}`)

		// when
		response := postWebhook(t, tc.router, payload, sign(payload, webhookSecret))
		redelivery := postWebhook(t, tc.router, payload, sign(payload, webhookSecret))

		// then
		assert.Equal(t, http.StatusOK, response.Code)
		assert.Equal(t, http.StatusOK, redelivery.Code)
		order, _, _ := tc.orderStore.Get(tc.c, "order-1")
		assert.Equal(t, checkoutevents.OrderStatusSucceeded, order.Status)
		assert.True(t, order.Success)
		assert.Equal(t, "payment_intent.succeeded", order.ProviderEvent)
	})

	t.Run("Invoice payment failed", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		tc := setup(t, ctrl, donationForm())

		// given
		storePendingOrder(t, tc, Order{UID: "order-2", FormHandle: "donate", StripeObjectID: "sub_1"})
		tc.reader.EXPECT().WebhookSecret(gomock.Any()).Return(webhookSecret, nil)
		tc.nower.EXPECT().Now().Return(mytime.ExampleTime)
		tc.publisher.EXPECT().Publish(gomock.Any(), checkoutevents.TopicName, checkoutevents.OrderCompleted{
			OrderUID:      "order-2",
			FormHandle:    "donate",
			ProviderEvent: "invoice.payment_failed",
			Status:        checkoutevents.OrderStatusFailed,
		}).Return(nil)
		payload := stripeEvent("invoice.payment_failed", `{"id":"in_1","object":"invoice","subscription":"sub_1"}`)

		// when
		response := postWebhook(t, tc.router, payload, sign(payload, webhookSecret))

		// then
		assert.Equal(t, http.StatusOK, response.Code)
		order, _, _ := tc.orderStore.Get(tc.c, "order-2")
		assert.Equal(t, checkoutevents.OrderStatusFailed, order.Status)
	})

	t.Run("Payment intent of someone else", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		tc := setup(t, ctrl, donationForm())

		// given
		tc.reader.EXPECT().WebhookSecret(gomock.Any()).Return(webhookSecret, nil)
		payload := stripeEvent("payment_intent.succeeded", `{"id":"pi_9","object":"payment_intent","metadata":{}}`)

		// when
		response := postWebhook(t, tc.router, payload, sign(payload, webhookSecret))

		// then
		assert.Equal(t, http.StatusOK, response.Code)
	})

	t.Run("Ignored event type", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		tc := setup(t, ctrl, donationForm())

		// given
		tc.reader.EXPECT().WebhookSecret(gomock.Any()).Return(webhookSecret, nil)
		payload := stripeEvent("customer.created", `{"id":"cus_1","object":"customer"}`)

		// when
		response := postWebhook(t, tc.router, payload, sign(payload, webhookSecret))

		// then
		assert.Equal(t, http.StatusOK, response.Code)
	})

	t.Run("Invalid signature", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		tc := setup(t, ctrl, donationForm())

		// given
		tc.reader.EXPECT().WebhookSecret(gomock.Any()).Return(webhookSecret, nil)
		payload := stripeEvent("payment_intent.succeeded", `{"id":"pi_1","object":"payment_intent","metadata":{"orderUID":"order-1"}}`)

		// when
		response := postWebhook(t, tc.router, payload, sign(payload, "whsec_other"))

		// then
		assert.Equal(t, http.StatusForbidden, response.Code)
	})
}

func TestCheckoutPage(t *testing.T) {

	t.Run("Public data", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		tc := setup(t, ctrl, donationForm())

		// when
		response := doRequest(t, tc.router, http.MethodGet, "/paymentform/donate/publicdata?quantity=3", "")

		// then
		assert.Equal(t, http.StatusOK, response.Code)
		payload := formapi.PublicCheckoutPayload{}
		err := json.Unmarshal(response.Body.Bytes(), &payload)
		assert.NoError(t, err)
		assert.Equal(t, 30.0, payload.Stripe.Amount)
		assert.Equal(t, "EUR", payload.Stripe.Currency)
		assert.Equal(t, "pk_test_123", payload.PublishableKey)
		assert.Contains(t, response.Body.String(), `"pbk": "pk_test_123"`)
	})

	t.Run("Public data with invalid quantity", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		tc := setup(t, ctrl, donationForm())

		// when
		response := doRequest(t, tc.router, http.MethodGet, "/paymentform/donate/publicdata?quantity=many", "")

		// then
		assert.Equal(t, http.StatusBadRequest, response.Code)
	})

	t.Run("Public data of unknown form", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		tc := setup(t, ctrl, donationForm())

		// when
		response := doRequest(t, tc.router, http.MethodGet, "/paymentform/unknown/publicdata", "")

		// then
		assert.Equal(t, http.StatusNotFound, response.Code)
	})

	t.Run("Amount preview", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		form := donationForm()
		form.AmountType = formapi.AmountTypeCustom
		tc := setup(t, ctrl, form)

		// when
		response := postForm(t, tc.router, "/paymentform/donate/amount", url.Values{"customAmount": {"25"}})

		// then
		assert.Equal(t, http.StatusOK, response.Code)
		preview := AmountPreview{}
		err := json.Unmarshal(response.Body.Bytes(), &preview)
		assert.NoError(t, err)
		assert.Equal(t, int64(2500), preview.MinorUnits)
		assert.Equal(t, "EUR", preview.Currency)
		assert.Equal(t, "", preview.TaxLabel)
	})

	t.Run("Render checkout page", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		tc := setup(t, ctrl, donationForm())

		// when
		response := doRequest(t, tc.router, http.MethodGet, "/paymentform/donate/checkout?status=success", "")

		// then
		assert.Equal(t, http.StatusOK, response.Code)
		body := response.Body.String()
		assert.Contains(t, body, `action="/paymentform/donate/submit"`)
		assert.Contains(t, body, `data-integration="elements"`)
		assert.Contains(t, body, `name="paymentType" value="1"`)
		assert.Contains(t, body, "iDEAL")
		assert.Contains(t, body, "Thank you, your payment was received.")
	})

	t.Run("Render hosted checkout page with plans", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		form := donationForm()
		form.EnableCheckout = true
		form.EnableSubscriptions = true
		form.SubscriptionType = formapi.SubscriptionTypeMultiPlan
		form.SubscriptionStyle = formapi.SubscriptionStyleDropdown
		form.MultiplePlans = []formapi.PlanRef{{PlanID: "plan_a"}, {PlanID: "plan_b"}}
		tc := setup(t, ctrl, form)

		// given
		tc.catalog.EXPECT().GetPlan(gomock.Any(), "plan_a").Return(plans.Plan{ID: "plan_a", Nickname: "Basic", Currency: "EUR", AmountMinor: 500}, true, nil).Times(2)
		tc.catalog.EXPECT().GetPlan(gomock.Any(), "plan_b").Return(plans.Plan{}, false, nil)

		// when
		response := doRequest(t, tc.router, http.MethodGet, "/paymentform/donate/checkout", "")

		// then
		assert.Equal(t, http.StatusOK, response.Code)
		body := response.Body.String()
		assert.Contains(t, body, `data-integration="checkout"`)
		assert.Contains(t, body, `<option value="plan_a">Basic</option>`)
		assert.NotContains(t, body, "plan_b\">")
	})

	t.Run("Checkout script", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		tc := setup(t, ctrl, donationForm())

		// when
		response := doRequest(t, tc.router, http.MethodGet, "/checkout/static/checkout.js", "")

		// then
		assert.Equal(t, http.StatusOK, response.Code)
		assert.Equal(t, "application/javascript; charset=utf-8", response.Header().Get("Content-Type"))
		assert.NotEmpty(t, response.Body.String())
	})

	t.Run("Checkout script blocks a second submit while the first is running", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		tc := setup(t, ctrl, donationForm())

		// when
		response := doRequest(t, tc.router, http.MethodGet, "/checkout/static/checkout.js", "")

		// then
		assert.Equal(t, http.StatusOK, response.Code)
		script := response.Body.String()
		guard := strings.Index(script, "if (submitButton(form).disabled || !form.reportValidity())")
		disabled := strings.Index(script[guard+1:], "disable(form, data);")
		preview := strings.Index(script[guard+1:], "finalAmount(form)")
		assert.True(t, guard >= 0)
		assert.True(t, disabled >= 0 && disabled < preview, "button must be disabled before the amount preview")
		assert.Equal(t, 2, strings.Count(script, " enable(form, data);"), "button must be enabled again when the token or the preview fails")
	})
}

func TestOrders(t *testing.T) {
	ctrl := gomock.NewController(t)
	tc := setup(t, ctrl, donationForm())

	// given
	storePendingOrder(t, tc, Order{UID: "order-1", FormHandle: "donate", CreatedAt: mytime.ExampleTime})
	storePendingOrder(t, tc, Order{UID: "order-2", FormHandle: "donate", CreatedAt: mytime.ExampleTime.Add(time.Hour)})
	storePendingOrder(t, tc, Order{UID: "order-3", FormHandle: "tickets", CreatedAt: mytime.ExampleTime})

	t.Run("List orders of form", func(t *testing.T) {
		// when
		response := doRequest(t, tc.router, http.MethodGet, "/order?form=donate", "")

		// then
		assert.Equal(t, http.StatusOK, response.Code)
		orders := []Order{}
		err := json.Unmarshal(response.Body.Bytes(), &orders)
		assert.NoError(t, err)
		assert.Len(t, orders, 2)
		assert.Equal(t, "order-2", orders[0].UID)
		assert.Equal(t, "order-1", orders[1].UID)
	})

	t.Run("List all orders", func(t *testing.T) {
		// when
		response := doRequest(t, tc.router, http.MethodGet, "/order", "")

		// then
		orders := []Order{}
		err := json.Unmarshal(response.Body.Bytes(), &orders)
		assert.NoError(t, err)
		assert.Len(t, orders, 3)
	})

	t.Run("Get order", func(t *testing.T) {
		// when
		response := doRequest(t, tc.router, http.MethodGet, "/order/order-3", "")

		// then
		assert.Equal(t, http.StatusOK, response.Code)
		order := Order{}
		err := json.Unmarshal(response.Body.Bytes(), &order)
		assert.NoError(t, err)
		assert.Equal(t, "tickets", order.FormHandle)
	})

	t.Run("Get unknown order", func(t *testing.T) {
		// when
		response := doRequest(t, tc.router, http.MethodGet, "/order/order-9", "")

		// then
		assert.Equal(t, http.StatusNotFound, response.Code)
	})
}

func storePendingOrder(t *testing.T, tc testContext, order Order) {
	order.Status = checkoutevents.OrderStatusPending
	err := tc.orderStore.Put(tc.c, order.UID, order)
	assert.NoError(t, err)
}

func stripeEvent(eventType string, object string) []byte {
	return []byte(fmt.Sprintf(`{"id":"evt_1","object":"event","api_version":%q,"type":%q,"data":{"object":%s}}`,
		stripe.APIVersion, eventType, object))
}

func sign(payload []byte, secret string) string {
	timestamp := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%d.", timestamp)))
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", timestamp, hex.EncodeToString(mac.Sum(nil)))
}

func postWebhook(t *testing.T, router *mux.Router, payload []byte, signature string) *httptest.ResponseRecorder {
	request, err := http.NewRequest(http.MethodPost, "/stripe/webhook", strings.NewReader(string(payload)))
	assert.NoError(t, err)
	request.Header.Set("Stripe-Signature", signature)
	response := httptest.NewRecorder()
	router.ServeHTTP(response, request)
	return response
}

func postForm(t *testing.T, router *mux.Router, url string, values url.Values) *httptest.ResponseRecorder {
	request, err := http.NewRequest(http.MethodPost, url, strings.NewReader(values.Encode()))
	assert.NoError(t, err)
	request.Host = "example.com"
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	response := httptest.NewRecorder()
	router.ServeHTTP(response, request)
	return response
}

func doRequest(t *testing.T, router *mux.Router, method string, url string, body string) *httptest.ResponseRecorder {
	request, err := http.NewRequest(method, url, strings.NewReader(body))
	assert.NoError(t, err)
	request.Host = "example.com"
	response := httptest.NewRecorder()
	router.ServeHTTP(response, request)
	return response
}

func setup(t *testing.T, ctrl *gomock.Controller, form formapi.PaymentFormConfig) testContext {
	c := context.TODO()
	formStore, _, err := mystore.NewInMemoryStore[formapi.PaymentFormConfig](c)
	assert.NoError(t, err)
	orderStore, _, err := mystore.NewInMemoryStore[Order](c)
	assert.NoError(t, err)
	err = formStore.Put(c, form.Handle, form)
	assert.NoError(t, err)

	reader := settings.NewMockReader(ctrl)
	reader.EXPECT().GetSettings(gomock.Any()).Return(settings.Settings{DefaultCurrency: "USD", SiteName: "Shop", EnableTaxes: true, Tax: 10}, nil).AnyTimes()
	reader.EXPECT().PublishableKey(gomock.Any()).Return("pk_test_123", nil).AnyTimes()

	tc := testContext{
		c:          c,
		formStore:  formStore,
		orderStore: orderStore,
		catalog:    plans.NewMockCatalog(ctrl),
		reader:     reader,
		payer:      NewMockPayer(ctrl),
		nower:      mytime.NewMockNower(ctrl),
		uuider:     myuuid.NewMockUUIDer(ctrl),
		publisher:  mypublisher.NewMockPublisher(ctrl),
	}

	sut := NewWebService(formStore, orderStore, tc.catalog, reader, tc.payer, tc.nower, tc.uuider, tc.publisher, myhttp.NewRateLimiter(100, 100))
	tc.router = mux.NewRouter()
	sut.RegisterEndpoints(c, tc.router)

	return tc
}
