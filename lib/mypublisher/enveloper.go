package mypublisher

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/MarcGrol/paymentforms/lib/myevents"
	"github.com/MarcGrol/paymentforms/lib/mytime"
)

// enveloper wraps domain events of forms and orders for the outbox.
type enveloper struct {
	nower mytime.Nower
}

func newEnveloper(nower mytime.Nower) enveloper {
	return enveloper{
		nower: nower,
	}
}

// do derives the envelope uid from topic, aggregate, type and payload only. A form or order event that is
// published again after a retried request lands on the same outbox row and queue task.
func (e enveloper) do(topic string, event myevents.Event) (myevents.EventEnvelope, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return myevents.EventEnvelope{}, fmt.Errorf("error marshalling %s event: %s", event.GetEventTypeName(), err)
	}

	envelope := myevents.EventEnvelope{
		Topic:         topic,
		AggregateUID:  event.GetAggregateName(),
		EventTypeName: event.GetEventTypeName(),
		EventPayload:  string(payload),
	}
	envelope.UID, err = contentUID(envelope)
	if err != nil {
		return myevents.EventEnvelope{}, fmt.Errorf("error deriving uid of %s event: %s", envelope.EventTypeName, err)
	}
	envelope.CreatedAt = e.nower.Now()

	return envelope, nil
}

func contentUID(envelope myevents.EventEnvelope) (string, error) {
	key, err := json.Marshal([]string{envelope.Topic, envelope.AggregateUID, envelope.EventTypeName, envelope.EventPayload})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(key)
	return base64.RawURLEncoding.EncodeToString(sum[:]), nil
}
