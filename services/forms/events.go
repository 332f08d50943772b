package forms

import (
	"context"
	"fmt"

	"github.com/MarcGrol/paymentforms/lib/myerrors"
	"github.com/MarcGrol/paymentforms/lib/myhttp"
	"github.com/MarcGrol/paymentforms/lib/mylog"
	"github.com/MarcGrol/paymentforms/services/checkoutevents"
	"github.com/MarcGrol/paymentforms/services/formevents"
)

func (s *service) Subscribe(c context.Context) error {
	err := s.pubsub.CreateTopic(c, formevents.TopicName)
	if err != nil {
		return fmt.Errorf("error creating topic %s: %s", formevents.TopicName, err)
	}

	err = s.pubsub.Subscribe(c, checkoutevents.TopicName, myhttp.GuessHostnameWithScheme()+"/api/paymentform/event")
	if err != nil {
		return fmt.Errorf("error subscribing to topic %s: %s", checkoutevents.TopicName, err)
	}

	return nil
}

func (s *service) OnOrderCreated(c context.Context, topic string, event checkoutevents.OrderCreated) error {
	s.logger.Log(c, event.OrderUID, mylog.SeverityInfo, "Order %s created on form %s", event.OrderUID, event.FormHandle)

	return s.updateStats(c, event.FormHandle, "created:"+event.OrderUID, func(stats *FormStats) {
		stats.OrdersCreated++
		now := s.nower.Now()
		stats.LastOrderAt = &now
	})
}

func (s *service) OnOrderCompleted(c context.Context, topic string, event checkoutevents.OrderCompleted) error {
	s.logger.Log(c, event.OrderUID, mylog.SeverityInfo, "Order %s on form %s completed: %s", event.OrderUID, event.FormHandle, event.Status)

	if event.Status == checkoutevents.OrderStatusPending {
		return nil
	}

	return s.updateStats(c, event.FormHandle, "completed:"+event.OrderUID, func(stats *FormStats) {
		if event.Success {
			stats.OrdersSucceeded++
		} else {
			stats.OrdersFailed++
		}
	})
}

// updateStats applies a change at most once per event key; pubsub redelivers.
func (s *service) updateStats(c context.Context, handle string, eventKey string, apply func(stats *FormStats)) error {
	if handle == "" {
		return myerrors.NewInvalidInputError(fmt.Errorf("event %s without form handle", eventKey))
	}

	return s.statsStore.RunInTransaction(c, func(c context.Context) error {
		stats, found, err := s.statsStore.Get(c, handle)
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error fetching stats of %s: %s", handle, err))
		}
		if !found {
			stats = FormStats{Handle: handle}
		}
		if stats.alreadyProcessed(eventKey) {
			s.logger.Log(c, handle, mylog.SeverityInfo, "Event %s already processed", eventKey)
			return nil
		}

		apply(&stats)
		stats.markProcessed(eventKey)

		err = s.statsStore.Put(c, handle, stats)
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error storing stats of %s: %s", handle, err))
		}
		return nil
	})
}
