package mypubsub

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"sync"

	"github.com/MarcGrol/paymentforms/lib/myevents"
	"github.com/MarcGrol/paymentforms/lib/mylog"
)

// fakePubSub delivers published messages in-process to the push-subscriptions, through the handler
// given to DispatchTo
type fakePubSub struct {
	sync.Mutex
	logger        mylog.Logger
	handler       http.Handler
	subscriptions map[string][]string
	published     map[string][]string
	delivering    sync.WaitGroup
}

func init() {
	if os.Getenv("GOOGLE_CLOUD_PROJECT") == "" {
		New = newFakePubSub
	}
}

func newFakePubSub(c context.Context) (PubSub, func(), error) {
	ps := &fakePubSub{
		logger:        mylog.New("pubsub"),
		subscriptions: map[string][]string{},
		published:     map[string][]string{},
	}
	return ps, ps.delivering.Wait, nil
}

func (ps *fakePubSub) DispatchTo(handler http.Handler) {
	ps.Lock()
	defer ps.Unlock()

	ps.handler = handler
}

func (ps *fakePubSub) Subscribe(c context.Context, topic string, urlToPostTo string) error {
	u, err := url.Parse(urlToPostTo)
	if err != nil {
		return fmt.Errorf("error parsing push endpoint %s: %s", urlToPostTo, err)
	}

	ps.Lock()
	defer ps.Unlock()

	ps.subscriptions[topic] = append(ps.subscriptions[topic], u.Path)
	ps.logger.Log(c, topic, mylog.SeverityDebug, "Fake subscription on topic %s to %s", topic, u.Path)

	return nil
}

func (ps *fakePubSub) CreateTopic(c context.Context, topic string) error {
	return nil
}

func (ps *fakePubSub) Publish(c context.Context, topic string, data string) error {
	ps.Lock()
	defer ps.Unlock()

	ps.published[topic] = append(ps.published[topic], data)
	messageID := fmt.Sprintf("%s-%d", topic, len(ps.published[topic]))

	body, err := json.Marshal(myevents.PushRequest{
		Message: myevents.PushMessage{
			Data: []byte(data),
			ID:   messageID,
		},
		Subscription: topic,
	})
	if err != nil {
		return fmt.Errorf("error creating push-request for topic %s: %s", topic, err)
	}

	if ps.handler == nil {
		ps.logger.Log(c, topic, mylog.SeverityDebug, "Fake published %s on topic %s without handler", messageID, topic)
		return nil
	}

	for _, path := range ps.subscriptions[topic] {
		ps.delivering.Add(1)
		go ps.deliver(ps.handler, path, messageID, body)
	}

	return nil
}

func (ps *fakePubSub) deliver(handler http.Handler, path string, messageID string, body []byte) {
	defer ps.delivering.Done()

	request := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	request.Header.Set("Content-Type", "application/json")
	response := httptest.NewRecorder()
	handler.ServeHTTP(response, request)

	severity := mylog.SeverityDebug
	if response.Code >= http.StatusMultipleChoices {
		severity = mylog.SeverityWarn
	}
	ps.logger.Log(context.Background(), messageID, severity, "Fake delivered %s to %s: %d", messageID, path, response.Code)
}
