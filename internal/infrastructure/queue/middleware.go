package queue

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
)

// JobRecorder receives one observation per processed task.
type JobRecorder func(taskType string, success bool)

// Instrument logs every task run and reports it to record.
func Instrument(record JobRecorder) asynq.MiddlewareFunc {
	return func(next asynq.Handler) asynq.Handler {
		return asynq.HandlerFunc(func(ctx context.Context, task *asynq.Task) error {
			start := time.Now()
			err := next.ProcessTask(ctx, task)

			record(task.Type(), err == nil)

			event := log.Debug()
			if err != nil {
				event = log.Warn().Err(err)
			}
			event.
				Str("task", task.Type()).
				Dur("elapsed", time.Since(start)).
				Msg("[Worker] task processed")

			return err
		})
	}
}
