package myevents

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type somethingHappened struct {
	Handle string
}

func (e somethingHappened) GetEventTypeName() string { return "something.happened" }
func (e somethingHappened) GetAggregateName() string { return e.Handle }

func TestPushRequestRoundtrip(t *testing.T) {
	createdAt := time.Date(2023, 2, 27, 23, 58, 59, 0, time.UTC)

	req, err := NewPushRequest("paymentform", "donation", somethingHappened{Handle: "donation"}, createdAt)
	assert.NoError(t, err)

	envelope, err := ParseEventEnvelope(strings.NewReader(req))
	assert.NoError(t, err)
	assert.Equal(t, "paymentform.something.happened.donation", envelope.String())
	assert.Equal(t, `{"Handle":"donation"}`, envelope.EventPayload)
	assert.True(t, createdAt.Equal(envelope.CreatedAt))
}

func TestParseInvalidPushRequest(t *testing.T) {
	_, err := ParseEventEnvelope(strings.NewReader("{"))
	assert.Error(t, err)
}
