package myevents

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

type EventEnvelope struct {
	UID           string
	CreatedAt     time.Time
	Topic         string
	AggregateUID  string
	EventTypeName string
	EventPayload  string `datastore:",noindex"`
	Published     bool
	PublishedAt   *time.Time
}

func (e EventEnvelope) String() string {
	return e.Topic + "." + e.EventTypeName + "." + e.AggregateUID
}

type Event interface {
	GetEventTypeName() string
	GetAggregateName() string
}

// PushRequest is the body pubsub posts to a push-subscription
type PushRequest struct {
	Message      PushMessage
	Subscription string
}

type PushMessage struct {
	Attributes map[string]string
	Data       []byte
	ID         string `json:"message_id"`
}

func ParseEventEnvelope(r io.Reader) (EventEnvelope, error) {
	msg := PushRequest{}
	err := json.NewDecoder(r).Decode(&msg)
	if err != nil {
		return EventEnvelope{}, fmt.Errorf("error parsing push-request: %s", err)
	}
	envlp := EventEnvelope{}
	err = json.Unmarshal(msg.Message.Data, &envlp)
	if err != nil {
		return EventEnvelope{}, fmt.Errorf("error parsing envelope: %s", err)
	}

	return envlp, nil
}

// NewPushRequest wraps an event the way pubsub would deliver it; used by consumers in tests.
func NewPushRequest(topic string, aggregateUID string, event Event, createdAt time.Time) (string, error) {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return "", err
	}
	envelopeBytes, err := json.Marshal(EventEnvelope{
		UID:           aggregateUID + "-" + event.GetEventTypeName(),
		CreatedAt:     createdAt,
		Topic:         topic,
		AggregateUID:  aggregateUID,
		EventTypeName: event.GetEventTypeName(),
		EventPayload:  string(eventBytes),
	})
	if err != nil {
		return "", err
	}
	reqBytes, err := json.Marshal(PushRequest{
		Message:      PushMessage{Data: envelopeBytes},
		Subscription: topic,
	})
	if err != nil {
		return "", err
	}
	return string(reqBytes), nil
}
