package myqueue

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"time"

	"github.com/MarcGrol/paymentforms/lib/mylog"
)

const (
	fakeMaxAttempts = 3
	fakeRetryDelay  = time.Second
)

// fakeTaskQueue executes tasks in-process against the handler given to DispatchTo
type fakeTaskQueue struct {
	sync.Mutex
	logger     mylog.Logger
	handler    http.Handler
	attempts   map[string]int32
	retryDelay time.Duration
	running    sync.WaitGroup
}

func init() {
	if os.Getenv("GOOGLE_CLOUD_PROJECT") == "" {
		New = newFakeQueue
	}
}

func newFakeQueue(c context.Context) (TaskQueuer, func(), error) {
	q := &fakeTaskQueue{
		logger:     mylog.New("queue"),
		attempts:   map[string]int32{},
		retryDelay: fakeRetryDelay,
	}
	return q, q.running.Wait, nil
}

func (q *fakeTaskQueue) DispatchTo(handler http.Handler) {
	q.Lock()
	defer q.Unlock()

	q.handler = handler
}

func (q *fakeTaskQueue) Enqueue(c context.Context, task Task) error {
	q.Lock()
	defer q.Unlock()

	_, exists := q.attempts[task.UID]
	if exists {
		q.logger.Log(c, task.UID, mylog.SeverityInfo, "Task %s already exists -> ignore", task.UID)
		return nil
	}
	q.attempts[task.UID] = 0

	if q.handler == nil {
		q.logger.Log(c, task.UID, mylog.SeverityDebug, "Fake enqueued task for %s without handler", task.WebhookURLPath)
		return nil
	}

	q.running.Add(1)
	go q.execute(q.handler, task)

	return nil
}

func (q *fakeTaskQueue) execute(handler http.Handler, task Task) {
	defer q.running.Done()

	c := context.Background()
	time.Sleep(task.Delay)

	for attempt := int32(1); attempt <= fakeMaxAttempts; attempt++ {
		q.Lock()
		q.attempts[task.UID] = attempt
		q.Unlock()

		request := httptest.NewRequest(http.MethodPut, task.WebhookURLPath, bytes.NewReader(task.Payload))
		response := httptest.NewRecorder()
		handler.ServeHTTP(response, request)

		if response.Code < http.StatusMultipleChoices {
			q.logger.Log(c, task.UID, mylog.SeverityDebug, "Task %s on %s succeeded", task.UID, task.WebhookURLPath)
			return
		}
		q.logger.Log(c, task.UID, mylog.SeverityWarn, "Task %s on %s failed with %d (attempt %d of %d)",
			task.UID, task.WebhookURLPath, response.Code, attempt, fakeMaxAttempts)

		time.Sleep(q.retryDelay * time.Duration(attempt))
	}
}

func (q *fakeTaskQueue) IsLastAttempt(c context.Context, taskUID string) (int32, int32) {
	q.Lock()
	defer q.Unlock()

	return q.attempts[taskUID], fakeMaxAttempts
}
