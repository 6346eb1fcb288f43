package queue

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-backend/internal/config"
	"library-backend/internal/domains/lease/model"
	"library-backend/internal/shared"
)

type fakeEnqueuer struct {
	tasks []*asynq.Task
	opts  [][]asynq.Option
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	f.opts = append(f.opts, opts)
	return &asynq.TaskInfo{Type: task.Type()}, nil
}

type fakeRegistrar struct {
	specs []string
	types []string
}

func (f *fakeRegistrar) Register(cronspec string, task *asynq.Task, _ ...asynq.Option) (string, error) {
	f.specs = append(f.specs, cronspec)
	f.types = append(f.types, task.Type())
	return "entry-1", nil
}

func TestLeasePublisher(t *testing.T) {
	enq := &fakeEnqueuer{}
	p := NewLeasePublisher(enq, "lease", 3)

	err := p.PublishTransition(context.Background(), &model.TransitionResult{
		Record:  model.LeaseRecord{ID: 11, BookID: 4, HolderID: "u1"},
		Outcome: model.OutcomeLeased,
	})
	require.NoError(t, err)
	require.Len(t, enq.tasks, 1)
	assert.Equal(t, shared.TypeLeaseAvailabilitySync, enq.tasks[0].Type())

	var payload model.AvailabilitySyncPayload
	require.NoError(t, json.Unmarshal(enq.tasks[0].Payload(), &payload))
	assert.Equal(t, int64(4), payload.BookID)
	assert.Equal(t, int64(11), payload.LeaseID)
	assert.Equal(t, model.OutcomeLeased, payload.Outcome)
	assert.NotEmpty(t, payload.CorrelationID)
	assert.Len(t, enq.opts[0], 3)
}

func TestLeasePublisher_EnqueueError(t *testing.T) {
	p := NewLeasePublisher(&fakeEnqueuer{err: errors.New("redis down")}, "lease", 3)

	err := p.PublishTransition(context.Background(), &model.TransitionResult{Record: model.LeaseRecord{BookID: 1}})
	assert.ErrorContains(t, err, "redis down")
}

func TestInstrument(t *testing.T) {
	type run struct {
		task    string
		success bool
	}
	var runs []run
	mw := Instrument(func(taskType string, success bool) { runs = append(runs, run{taskType, success}) })

	ok := mw(asynq.HandlerFunc(func(context.Context, *asynq.Task) error { return nil }))
	bad := mw(asynq.HandlerFunc(func(context.Context, *asynq.Task) error { return errors.New("boom") }))

	require.NoError(t, ok.ProcessTask(context.Background(), asynq.NewTask("a", nil)))
	require.Error(t, bad.ProcessTask(context.Background(), asynq.NewTask("b", nil)))

	assert.Equal(t, []run{{"a", true}, {"b", false}}, runs)
}

func TestScheduler_RegisterLeaseJobs(t *testing.T) {
	reg := &fakeRegistrar{}
	s := &Scheduler{registrar: reg, jobConfig: config.JobConfig{ReconcileCron: "*/5 * * * *"}}

	require.NoError(t, s.RegisterLeaseJobs())
	assert.Equal(t, []string{"*/5 * * * *"}, reg.specs)
	assert.Equal(t, []string{shared.TypeLeaseReconcile}, reg.types)
}
