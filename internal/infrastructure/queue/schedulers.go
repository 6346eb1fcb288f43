package queue

import (
	"time"

	"github.com/hibiken/asynq"

	"library-backend/internal/config"
	"library-backend/internal/domains/lease/model"
	"library-backend/internal/shared"
	"library-backend/pkg/logger"
)

// TaskRegistrar is satisfied by *asynq.Scheduler.
type TaskRegistrar interface {
	Register(cronspec string, task *asynq.Task, opts ...asynq.Option) (string, error)
}

type Scheduler struct {
	scheduler *asynq.Scheduler
	registrar TaskRegistrar
	jobConfig config.JobConfig
}

func NewScheduler(redisOpt asynq.RedisClientOpt, jobConfig config.JobConfig) *Scheduler {
	scheduler := asynq.NewScheduler(
		redisOpt,
		&asynq.SchedulerOpts{
			Location: time.UTC,
			LogLevel: asynq.InfoLevel,
		},
	)

	return &Scheduler{
		scheduler: scheduler,
		registrar: scheduler,
		jobConfig: jobConfig,
	}
}

func (s *Scheduler) RegisterLeaseJobs() error {
	return s.registerReconcileJob()
}

func (s *Scheduler) Start() error {
	return s.scheduler.Start()
}

func (s *Scheduler) Shutdown() {
	s.scheduler.Shutdown()
}

// ================================================
// Reconcile availability snapshots (JOBS_RECONCILE_CRON)
// ================================================
func (s *Scheduler) registerReconcileJob() error {
	payload, err := json.Marshal(model.ReconcilePayload{})
	if err != nil {
		return err
	}

	task := asynq.NewTask(shared.TypeLeaseReconcile, payload)

	_, err = s.registrar.Register(
		s.jobConfig.ReconcileCron,
		task,
		asynq.Queue(shared.QueueLow),
		asynq.MaxRetry(1),
		asynq.Timeout(5*time.Minute),
		asynq.Unique(time.Minute),
	)
	if err != nil {
		logger.Error("Failed to register Reconcile job", err)
		return err
	}

	logger.Info("✓ Registered lease Reconcile job", map[string]interface{}{
		"cron": s.jobConfig.ReconcileCron,
	})
	return nil
}
