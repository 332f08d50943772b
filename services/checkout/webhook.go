package checkout

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/webhook"

	"github.com/MarcGrol/paymentforms/lib/myerrors"
	"github.com/MarcGrol/paymentforms/lib/mylog"
	"github.com/MarcGrol/paymentforms/lib/mystore"
)

const (
	eventPaymentIntentSucceeded = "payment_intent.succeeded"
	eventPaymentIntentFailed    = "payment_intent.payment_failed"
	eventInvoicePaid            = "invoice.payment_succeeded"
	eventInvoiceFailed          = "invoice.payment_failed"
)

func (s *service) webhookNotification(c context.Context, payload []byte, signature string) error {
	secret, err := s.settings.WebhookSecret(c)
	if err != nil {
		return err
	}

	event, err := webhook.ConstructEvent(payload, signature, secret)
	if err != nil {
		return myerrors.NewAuthenticationError(fmt.Errorf("error verifying webhook signature: %s", err))
	}

	eventType := string(event.Type)

	s.logger.Log(c, event.ID, mylog.SeverityInfo, "Webhook: received %s", eventType)

	switch eventType {
	case eventPaymentIntentSucceeded, eventPaymentIntentFailed:
		intent := stripe.PaymentIntent{}
		err := json.Unmarshal(event.Data.Raw, &intent)
		if err != nil {
			return myerrors.NewInvalidInputError(fmt.Errorf("error parsing payment intent: %s", err))
		}
		orderUID := intent.Metadata[orderMetadataKey]
		if orderUID == "" {
			s.logger.Log(c, intent.ID, mylog.SeverityWarn, "Webhook: payment intent %s is not ours", intent.ID)
			return nil
		}
		return s.completeOrder(c, orderUID, eventType, eventType == eventPaymentIntentSucceeded)

	case eventInvoicePaid, eventInvoiceFailed:
		invoice := stripe.Invoice{}
		err := json.Unmarshal(event.Data.Raw, &invoice)
		if err != nil {
			return myerrors.NewInvalidInputError(fmt.Errorf("error parsing invoice: %s", err))
		}
		if invoice.Subscription == nil || invoice.Subscription.ID == "" {
			return nil
		}
		orders, err := s.orderStore.Query(c, []mystore.Filter{{Field: "StripeObjectID", Compare: "=", Value: invoice.Subscription.ID}}, "")
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error fetching order of subscription %s: %s", invoice.Subscription.ID, err))
		}
		if len(orders) == 0 {
			s.logger.Log(c, invoice.Subscription.ID, mylog.SeverityWarn, "Webhook: subscription %s is not ours", invoice.Subscription.ID)
			return nil
		}
		return s.completeOrder(c, orders[0].UID, eventType, eventType == eventInvoicePaid)

	default:
		s.logger.Log(c, event.ID, mylog.SeverityInfo, "Webhook: ignoring %s", eventType)
		return nil
	}
}
