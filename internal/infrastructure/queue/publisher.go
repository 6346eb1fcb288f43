package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	jsoniter "github.com/json-iterator/go"

	"library-backend/internal/domains/lease/model"
	"library-backend/internal/shared"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// LeasePublisher turns committed transitions into lease:availability_sync tasks.
type LeasePublisher struct {
	client   Enqueuer
	queue    string
	maxRetry int
}

func NewLeasePublisher(client Enqueuer, queue string, maxRetry int) *LeasePublisher {
	return &LeasePublisher{
		client:   client,
		queue:    queue,
		maxRetry: maxRetry,
	}
}

func (p *LeasePublisher) PublishTransition(ctx context.Context, result *model.TransitionResult) error {
	payload, err := json.Marshal(model.AvailabilitySyncPayload{
		BookID:        result.Record.BookID,
		Outcome:       result.Outcome,
		LeaseID:       result.Record.ID,
		CorrelationID: uuid.NewString(),
	})
	if err != nil {
		return fmt.Errorf("marshal availability sync payload: %w", err)
	}

	task := asynq.NewTask(shared.TypeLeaseAvailabilitySync, payload)

	_, err = p.client.EnqueueContext(ctx, task,
		asynq.Queue(p.queue),
		asynq.MaxRetry(p.maxRetry),
		asynq.Timeout(30*time.Second),
	)
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", shared.TypeLeaseAvailabilitySync, err)
	}
	return nil
}
