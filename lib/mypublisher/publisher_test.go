package mypublisher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/MarcGrol/paymentforms/lib/mypubsub"
	"github.com/MarcGrol/paymentforms/lib/myqueue"
	"github.com/MarcGrol/paymentforms/lib/mytime"
)

type formSaved struct {
	Handle string
}

func (e formSaved) GetEventTypeName() string { return "paymentform.saved" }
func (e formSaved) GetAggregateName() string { return e.Handle }

func TestEnvelopeIsIdempotent(t *testing.T) {
	ctrl := gomock.NewController(t)
	nower := mytime.NewMockNower(ctrl)
	nower.EXPECT().Now().Return(mytime.ExampleTime).Times(2)

	e := newEnveloper(nower)

	first, err := e.do("paymentform", formSaved{Handle: "donation"})
	assert.NoError(t, err)
	second, err := e.do("paymentform", formSaved{Handle: "donation"})
	assert.NoError(t, err)

	assert.Equal(t, first.UID, second.UID)
	assert.Equal(t, "donation", first.AggregateUID)
	assert.Equal(t, "paymentform.saved", first.EventTypeName)
	assert.False(t, first.Published)
}

func TestEnvelopeUIDFollowsContent(t *testing.T) {
	ctrl := gomock.NewController(t)
	nower := mytime.NewMockNower(ctrl)
	nower.EXPECT().Now().Return(mytime.ExampleTime)
	nower.EXPECT().Now().Return(mytime.ExampleTime.Add(time.Hour)).Times(2)

	e := newEnveloper(nower)

	first, err := e.do("paymentform", formSaved{Handle: "donation"})
	assert.NoError(t, err)
	later, err := e.do("paymentform", formSaved{Handle: "donation"})
	assert.NoError(t, err)
	other, err := e.do("order", formSaved{Handle: "donation"})
	assert.NoError(t, err)

	assert.Equal(t, first.UID, later.UID)
	assert.NotEqual(t, first.CreatedAt, later.CreatedAt)
	assert.NotEqual(t, first.UID, other.UID)
}

func TestPublishAndTrigger(t *testing.T) {
	c := context.TODO()
	ctrl := gomock.NewController(t)

	pubsub := mypubsub.NewMockPubSub(ctrl)
	queue := myqueue.NewMockTaskQueuer(ctrl)
	nower := mytime.NewMockNower(ctrl)
	nower.EXPECT().Now().Return(mytime.ExampleTime).AnyTimes()

	sut, cleanup, err := New(c, pubsub, queue, nower)
	assert.NoError(t, err)
	defer cleanup()

	router := mux.NewRouter()
	sut.RegisterEndpoints(c, router)

	var task myqueue.Task
	queue.EXPECT().Enqueue(gomock.Any(), gomock.Any()).DoAndReturn(func(c context.Context, t myqueue.Task) error {
		task = t
		return nil
	})

	// when
	err = sut.Publish(c, "paymentform", formSaved{Handle: "donation"})

	// then
	assert.NoError(t, err)
	assert.True(t, strings.HasPrefix(task.WebhookURLPath, "/pubsub/paymentform/"))

	t.Run("trigger publishes pending event once", func(t *testing.T) {
		// given
		pubsub.EXPECT().Publish(gomock.Any(), "paymentform", gomock.Any()).Return(nil).Times(1)

		for i := 0; i < 2; i++ {
			// when
			request, _ := http.NewRequest(http.MethodPut, task.WebhookURLPath, nil)
			response := httptest.NewRecorder()
			router.ServeHTTP(response, request)

			// then
			assert.Equal(t, http.StatusOK, response.Code)
		}
	})
}

func TestTriggerFailureOnLastAttempt(t *testing.T) {
	c := context.TODO()
	ctrl := gomock.NewController(t)

	pubsub := mypubsub.NewMockPubSub(ctrl)
	queue := myqueue.NewMockTaskQueuer(ctrl)
	nower := mytime.NewMockNower(ctrl)
	nower.EXPECT().Now().Return(mytime.ExampleTime).AnyTimes()

	sut, cleanup, err := New(c, pubsub, queue, nower)
	assert.NoError(t, err)
	defer cleanup()

	router := mux.NewRouter()
	sut.RegisterEndpoints(c, router)

	var task myqueue.Task
	queue.EXPECT().Enqueue(gomock.Any(), gomock.Any()).DoAndReturn(func(c context.Context, t myqueue.Task) error {
		task = t
		return nil
	})
	err = sut.Publish(c, "checkout", formSaved{Handle: "donation"})
	assert.NoError(t, err)
	assert.Equal(t, publicationDelay, task.Delay)

	// given
	pubsub.EXPECT().Publish(gomock.Any(), "checkout", gomock.Any()).Return(errors.New("pubsub down"))
	queue.EXPECT().IsLastAttempt(gomock.Any(), task.UID).Return(int32(3), int32(3))

	// when
	request, _ := http.NewRequest(http.MethodPut, task.WebhookURLPath, nil)
	response := httptest.NewRecorder()
	router.ServeHTTP(response, request)

	// then
	assert.Equal(t, http.StatusInternalServerError, response.Code)
	assert.Contains(t, response.Body.String(), "pubsub down")
}
