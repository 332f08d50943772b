package myqueue

import (
	"context"
	"fmt"
	"os"
	"time"

	cloudtasks "cloud.google.com/go/cloudtasks/apiv2"
	taskspb "cloud.google.com/go/cloudtasks/apiv2/cloudtaskspb"
	grpcCodes "google.golang.org/grpc/codes"
	grpcStatus "google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/MarcGrol/paymentforms/lib/mylog"
)

const defaultQueueName = "default"

// queueLocation identifies the Cloud Tasks queue that carries outbox deliveries.
type queueLocation struct {
	project  string
	location string
	queue    string
}

func locationFromEnv() queueLocation {
	l := queueLocation{
		project:  os.Getenv("GOOGLE_CLOUD_PROJECT"),
		location: os.Getenv("LOCATION_ID"),
		queue:    os.Getenv("QUEUE_NAME"),
	}
	if l.queue == "" {
		l.queue = defaultQueueName
	}
	return l
}

func (l queueLocation) queuePath() string {
	return fmt.Sprintf("projects/%s/locations/%s/queues/%s", l.project, l.location, l.queue)
}

func (l queueLocation) taskPath(taskUID string) string {
	return fmt.Sprintf("%s/tasks/%s", l.queuePath(), taskUID)
}

type gcloudTaskQueue struct {
	client *cloudtasks.Client
	where  queueLocation
	logger mylog.Logger
}

func init() {
	if os.Getenv("GOOGLE_CLOUD_PROJECT") != "" {
		New = newGcloudQueue
	}
}

func newGcloudQueue(c context.Context) (TaskQueuer, func(), error) {
	client, err := cloudtasks.NewClient(c)
	if err != nil {
		return nil, nil, fmt.Errorf("error creating cloud-tasks client: %s", err)
	}
	q := &gcloudTaskQueue{
		client: client,
		where:  locationFromEnv(),
		logger: mylog.New("queue"),
	}
	return q, func() { client.Close() }, nil
}

func (q *gcloudTaskQueue) Enqueue(c context.Context, task Task) error {
	_, err := q.client.CreateTask(c, &taskspb.CreateTaskRequest{
		Parent: q.where.queuePath(),
		Task:   q.appEngineTask(task),
	})
	if err != nil {
		rsp, ok := grpcStatus.FromError(err)
		if ok && rsp.Code() == grpcCodes.AlreadyExists {
			// event was enqueued before; its delivery is still pending or done
			q.logger.Log(c, task.UID, mylog.SeverityInfo, "Delivery of event %s already queued", task.UID)
			return nil
		}
		return fmt.Errorf("error queueing delivery of event %s: %s", task.UID, err)
	}
	return nil
}

// appEngineTask names the task after the event uid, so Cloud Tasks refuses a second delivery of the same event.
func (q *gcloudTaskQueue) appEngineTask(task Task) *taskspb.Task {
	return &taskspb.Task{
		Name:         q.where.taskPath(task.UID),
		ScheduleTime: timestamppb.New(time.Now().Add(task.Delay)),
		MessageType: &taskspb.Task_AppEngineHttpRequest{
			AppEngineHttpRequest: &taskspb.AppEngineHttpRequest{
				HttpMethod:  taskspb.HttpMethod_PUT,
				RelativeUri: task.WebhookURLPath,
				Body:        task.Payload,
			},
		},
		View: taskspb.Task_FULL,
	}
}

// IsLastAttempt reports how often the delivery of an event was dispatched. When the queue or the task
// cannot be read, the delivery is treated as unlimited so it keeps being retried.
func (q *gcloudTaskQueue) IsLastAttempt(c context.Context, taskUID string) (int32, int32) {
	maxAttempts := int32(-1)

	queue, err := q.client.GetQueue(c, &taskspb.GetQueueRequest{Name: q.where.queuePath()})
	if err != nil {
		q.logger.Log(c, taskUID, mylog.SeverityWarn, "Error reading queue %s: %s", q.where.queue, err)
		return 0, maxAttempts
	}
	if queue.RetryConfig != nil {
		maxAttempts = queue.RetryConfig.MaxAttempts
	}

	task, err := q.client.GetTask(c, &taskspb.GetTaskRequest{Name: q.where.taskPath(taskUID)})
	if err != nil {
		q.logger.Log(c, taskUID, mylog.SeverityWarn, "Error reading delivery of event %s: %s", taskUID, err)
		return 0, maxAttempts
	}
	return task.DispatchCount, maxAttempts
}
