package forms

import "time"

const maxProcessedOrders = 200

// FormStats counts orders per payment form. Kept up to date from checkout events.
type FormStats struct {
	Handle          string
	OrdersCreated   int
	OrdersSucceeded int
	OrdersFailed    int
	LastOrderAt     *time.Time
	ProcessedEvents []string `datastore:",noindex"`
}

func (s FormStats) alreadyProcessed(eventKey string) bool {
	for _, k := range s.ProcessedEvents {
		if k == eventKey {
			return true
		}
	}
	return false
}

func (s *FormStats) markProcessed(eventKey string) {
	s.ProcessedEvents = append(s.ProcessedEvents, eventKey)
	if len(s.ProcessedEvents) > maxProcessedOrders {
		s.ProcessedEvents = s.ProcessedEvents[len(s.ProcessedEvents)-maxProcessedOrders:]
	}
}
