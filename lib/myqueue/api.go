package myqueue

import (
	"context"
	"time"
)

// Task is an http PUT on WebhookURLPath of this service, executed after Delay. Tasks with the same
// UID are executed once.
type Task struct {
	UID            string
	WebhookURLPath string
	Payload        []byte
	Delay          time.Duration
}

var New func(c context.Context) (TaskQueuer, func(), error)

//go:generate mockgen -source=api.go -package myqueue -destination queuer_mock.go TaskQueuer
type TaskQueuer interface {
	Enqueue(c context.Context, task Task) error
	// IsLastAttempt returns the number of attempts so far and the maximum number of attempts (-1 is unlimited)
	IsLastAttempt(c context.Context, taskUID string) (int32, int32)
}
