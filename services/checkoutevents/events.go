package checkoutevents

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/MarcGrol/paymentforms/lib/myerrors"
	"github.com/MarcGrol/paymentforms/lib/myevents"
)

const (
	TopicName          = "checkout"
	orderCreatedName   = TopicName + ".orderCreated"
	orderCompletedName = TopicName + ".orderCompleted"
)

//go:generate mockgen -source=events.go -package checkoutevents -destination events_mock.go CheckoutEventService
type CheckoutEventService interface {
	Subscribe(c context.Context) error
	OnOrderCreated(c context.Context, topic string, event OrderCreated) error
	OnOrderCompleted(c context.Context, topic string, event OrderCompleted) error
}

func DispatchEvent(c context.Context, reader io.Reader, service CheckoutEventService) error {
	envelope, err := myevents.ParseEventEnvelope(reader)
	if err != nil {
		return myerrors.NewInvalidInputError(err)
	}

	switch envelope.EventTypeName {
	case orderCreatedName:
		{
			event := OrderCreated{}
			err := json.Unmarshal([]byte(envelope.EventPayload), &event)
			if err != nil {
				return myerrors.NewInvalidInputError(err)
			}
			return service.OnOrderCreated(c, envelope.Topic, event)
		}
	case orderCompletedName:
		{
			event := OrderCompleted{}
			err := json.Unmarshal([]byte(envelope.EventPayload), &event)
			if err != nil {
				return myerrors.NewInvalidInputError(err)
			}
			return service.OnOrderCompleted(c, envelope.Topic, event)
		}
	default:
		return myerrors.NewNotImplementedError(fmt.Errorf("unsupported event %s", envelope.EventTypeName))
	}
}

type OrderCreated struct {
	OrderUID           string
	FormHandle         string
	AmountInMinorUnits int64
	Currency           string
	TaxAmount          float64
	Quantity           int
	PaymentMethod      string
	Integration        string
	PlanID             string
	Email              string
	TestMode           bool
}

func (e OrderCreated) GetEventTypeName() string {
	return orderCreatedName
}

func (e OrderCreated) GetAggregateName() string {
	return e.OrderUID
}

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusSucceeded OrderStatus = "succeeded"
	OrderStatusFailed    OrderStatus = "failed"
)

type OrderCompleted struct {
	OrderUID      string
	FormHandle    string
	ProviderEvent string
	Status        OrderStatus
	Success       bool
}

func (e OrderCompleted) GetEventTypeName() string {
	return orderCompletedName
}

func (e OrderCompleted) GetAggregateName() string {
	return e.OrderUID
}
