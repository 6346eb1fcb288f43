package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"library-backend/internal/domains/lease/model"
	"library-backend/internal/domains/lease/repository"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ════════════════════════════════════════════════════════════════
// FAKES
// ════════════════════════════════════════════════════════════════

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type recordingMetrics struct {
	mu        sync.Mutex
	committed map[string]int
	failed    map[string]int
	retried   int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{committed: map[string]int{}, failed: map[string]int{}}
}

func (m *recordingMetrics) TransitionCommitted(outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.committed[outcome]++
}

func (m *recordingMetrics) TransitionFailed(kind string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed[kind]++
}

func (m *recordingMetrics) TransitionRetried() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retried++
}

type recordingPublisher struct {
	mu      sync.Mutex
	results []model.TransitionResult
	err     error
}

func (p *recordingPublisher) PublishTransition(_ context.Context, r *model.TransitionResult) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.results = append(p.results, *r)
	return p.err
}

// abortingStore fails the first n lock acquisitions with ErrAborted.
type abortingStore struct {
	repository.Store
	remaining atomic.Int32
	calls     atomic.Int32
}

func (s *abortingStore) WithBookLock(ctx context.Context, bookID int64, fn func(repository.Ledger) error) error {
	s.calls.Add(1)
	if s.remaining.Add(-1) >= 0 {
		return fmt.Errorf("%w: serialization failure", model.ErrAborted)
	}
	return s.Store.WithBookLock(ctx, bookID, fn)
}

var noDelay = WithRetry(WithBaseDelay(0), WithJitterFactor(0))

func newEngine(t *testing.T, opts ...EngineOption) (*TransitionEngine, *repository.MemoryStore) {
	t.Helper()
	store := repository.NewMemoryStore()
	store.AddBook(1, 2)
	clock := newFakeClock()
	opts = append([]EngineOption{WithClock(clock.Now), noDelay}, opts...)
	return NewTransitionEngine(store, store, opts...), store
}

func transition(t *testing.T, e *TransitionEngine, bookID int64, holder string) (*model.TransitionResult, error) {
	t.Helper()
	return e.Transition(context.Background(), model.TransitionRequest{BookID: bookID, HolderID: holder})
}

func activeCount(t *testing.T, s repository.Store, bookID int64) int {
	t.Helper()
	list, err := s.ListByBook(context.Background(), bookID)
	require.NoError(t, err)
	n := 0
	for _, r := range list {
		if r.IsActive() {
			n++
		}
	}
	return n
}

// ════════════════════════════════════════════════════════════════
// TESTS
// ════════════════════════════════════════════════════════════════

func TestTransition_Toggle(t *testing.T) {
	e, _ := newEngine(t)

	first, err := transition(t, e, 1, "A")
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeLeased, first.Outcome)
	assert.Equal(t, "A", first.Record.HolderID)
	assert.Nil(t, first.Record.ReturnedAt)

	second, err := transition(t, e, 1, "A")
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeReturned, second.Outcome)
	assert.Equal(t, first.Record.ID, second.Record.ID)
	assert.NotNil(t, second.Record.ReturnedAt)

	third, err := transition(t, e, 1, "A")
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeLeased, third.Outcome)
	assert.NotEqual(t, first.Record.ID, third.Record.ID)
}

func TestTransition_ConflictLeavesStoreUnchanged(t *testing.T) {
	e, store := newEngine(t)
	ctx := context.Background()

	_, err := transition(t, e, 1, "A")
	require.NoError(t, err)

	before, err := store.ListByBook(ctx, 1)
	require.NoError(t, err)
	latestBefore, err := store.Latest(ctx, 1)
	require.NoError(t, err)

	_, err = transition(t, e, 1, "B")
	assert.ErrorIs(t, err, model.ErrLeasedByAnotherHolder)
	assert.Equal(t, model.KindConflict, model.KindOf(err))

	after, err := store.ListByBook(ctx, 1)
	require.NoError(t, err)
	latestAfter, err := store.Latest(ctx, 1)
	require.NoError(t, err)

	assert.Equal(t, before, after)
	assert.Equal(t, latestBefore, latestAfter)
}

func TestTransition_ExplicitReturnTime(t *testing.T) {
	e, _ := newEngine(t)
	explicit := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)

	// ignored when the book is available
	leased, err := e.Transition(context.Background(), model.TransitionRequest{BookID: 1, HolderID: "A", ReturnedAt: &explicit})
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeLeased, leased.Outcome)
	assert.Nil(t, leased.Record.ReturnedAt)
	assert.NotEqual(t, explicit, leased.Record.LeasedAt)

	returned, err := e.Transition(context.Background(), model.TransitionRequest{BookID: 1, HolderID: "A", ReturnedAt: &explicit})
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeReturned, returned.Outcome)
	require.NotNil(t, returned.Record.ReturnedAt)
	assert.Equal(t, explicit, *returned.Record.ReturnedAt)
}

func TestTransition_ReturnUsesClock(t *testing.T) {
	now := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	store := repository.NewMemoryStore()
	store.AddBook(1)
	e := NewTransitionEngine(store, store, WithClock(func() time.Time { return now }), noDelay)

	_, err := transition(t, e, 1, "A")
	require.NoError(t, err)
	now = now.Add(time.Hour)

	returned, err := transition(t, e, 1, "A")
	require.NoError(t, err)
	require.NotNil(t, returned.Record.ReturnedAt)
	assert.Equal(t, now, *returned.Record.ReturnedAt)
}

func TestTransition_BookNotFound(t *testing.T) {
	metrics := newRecordingMetrics()
	e, _ := newEngine(t, WithMetrics(metrics))

	_, err := transition(t, e, 404, "A")
	assert.ErrorIs(t, err, model.ErrBookNotFound)
	assert.Equal(t, 1, metrics.failed[string(model.KindNotFound)])
}

func TestTransition_InvalidHolder(t *testing.T) {
	e, store := newEngine(t)

	_, err := transition(t, e, 1, "   ")
	assert.ErrorIs(t, err, model.ErrInvalidHolder)

	latest, err := store.Latest(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestTransition_HolderIsTrimmed(t *testing.T) {
	e, _ := newEngine(t)

	_, err := transition(t, e, 1, " A ")
	require.NoError(t, err)

	res, err := transition(t, e, 1, "A")
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeReturned, res.Outcome)
}

func TestTransition_ConcurrentHolders(t *testing.T) {
	e, store := newEngine(t)
	const n = 32

	var (
		wg        sync.WaitGroup
		leased    atomic.Int32
		conflicts atomic.Int32
		other     atomic.Int32
	)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(holder string) {
			defer wg.Done()
			<-start
			res, err := e.Transition(context.Background(), model.TransitionRequest{BookID: 1, HolderID: holder})
			switch {
			case err == nil && res.Outcome == model.OutcomeLeased:
				leased.Add(1)
			case errors.Is(err, model.ErrLeasedByAnotherHolder):
				conflicts.Add(1)
			default:
				other.Add(1)
			}
		}(fmt.Sprintf("holder-%d", i))
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), leased.Load())
	assert.Equal(t, int32(n-1), conflicts.Load())
	assert.Zero(t, other.Load())
	assert.Equal(t, 1, activeCount(t, store, 1))
}

func TestTransition_DifferentBooksIndependent(t *testing.T) {
	e, _ := newEngine(t)

	a, err := transition(t, e, 1, "A")
	require.NoError(t, err)
	b, err := transition(t, e, 2, "B")
	require.NoError(t, err)

	assert.Equal(t, model.OutcomeLeased, a.Outcome)
	assert.Equal(t, model.OutcomeLeased, b.Outcome)
}

func TestTransition_RetriesAborted(t *testing.T) {
	mem := repository.NewMemoryStore()
	mem.AddBook(1)
	store := &abortingStore{Store: mem}
	store.remaining.Store(2)
	metrics := newRecordingMetrics()

	e := NewTransitionEngine(store, mem, WithMetrics(metrics), noDelay)

	res, err := transition(t, e, 1, "A")
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeLeased, res.Outcome)
	assert.Equal(t, int32(3), store.calls.Load())
	assert.Equal(t, 2, metrics.retried)
	assert.Equal(t, 1, metrics.committed[string(model.OutcomeLeased)])
	assert.Equal(t, 1, activeCount(t, mem, 1))
}

func TestTransition_RetriesExhausted(t *testing.T) {
	mem := repository.NewMemoryStore()
	mem.AddBook(1)
	store := &abortingStore{Store: mem}
	store.remaining.Store(100)
	metrics := newRecordingMetrics()

	e := NewTransitionEngine(store, mem, WithMetrics(metrics),
		WithRetry(WithMaxAttempts(3), WithBaseDelay(0)))

	_, err := transition(t, e, 1, "A")
	assert.ErrorIs(t, err, model.ErrAborted)
	assert.Equal(t, int32(3), store.calls.Load())
	assert.Equal(t, 1, metrics.failed[string(model.KindAborted)])
	assert.Equal(t, 0, activeCount(t, mem, 1))
}

func TestTransition_PublishesCommitted(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("queue down")}
	e, _ := newEngine(t, WithPublisher(pub))

	res, err := transition(t, e, 1, "A")
	require.NoError(t, err, "publish failure does not fail the transition")

	_, err = transition(t, e, 1, "B")
	require.Error(t, err)

	require.Len(t, pub.results, 1)
	assert.Equal(t, res.Record.ID, pub.results[0].Record.ID)
}

// book with no history → lease u1 → return u1 → lease u2 → u1 conflicts
func TestTransition_Scenario(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)
	store := repository.NewMemoryStore()
	store.AddBook(1)
	e := NewTransitionEngine(store, store, WithClock(func() time.Time { return now }), noDelay)
	r := NewResolver(store, store)

	av, err := r.GetAvailability(ctx, 1)
	require.NoError(t, err)
	assert.True(t, av.Available)

	res, err := transition(t, e, 1, "u1")
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeLeased, res.Outcome)
	assert.Equal(t, "u1", res.Record.HolderID)
	assert.Nil(t, res.Record.ReturnedAt)
	av, err = r.GetAvailability(ctx, 1)
	require.NoError(t, err)
	assert.False(t, av.Available)

	now = now.Add(30 * time.Minute)
	res, err = transition(t, e, 1, "u1")
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeReturned, res.Outcome)
	require.NotNil(t, res.Record.ReturnedAt)
	assert.Equal(t, now, *res.Record.ReturnedAt)
	av, err = r.GetAvailability(ctx, 1)
	require.NoError(t, err)
	assert.True(t, av.Available)

	now = now.Add(time.Minute)
	res, err = transition(t, e, 1, "u2")
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeLeased, res.Outcome)
	assert.Equal(t, "u2", res.Record.HolderID)
	assert.Nil(t, res.Record.ReturnedAt)

	_, err = transition(t, e, 1, "u1")
	assert.ErrorIs(t, err, model.ErrLeasedByAnotherHolder)
}

// clock steps back an hour between a return and the next lease
func TestTransition_ClockStepsBack(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 8, 1, 10, 0, 0, 0, time.UTC)
	store := repository.NewMemoryStore()
	store.AddBook(1)
	e := NewTransitionEngine(store, store, WithClock(func() time.Time { return now }), noDelay)
	r := NewResolver(store, store)

	a, err := transition(t, e, 1, "A")
	require.NoError(t, err)
	_, err = transition(t, e, 1, "A")
	require.NoError(t, err)

	now = now.Add(-time.Hour)
	b, err := transition(t, e, 1, "B")
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeLeased, b.Outcome)
	assert.True(t, b.Record.LeasedAt.After(a.Record.LeasedAt))

	av, err := r.GetAvailability(ctx, 1)
	require.NoError(t, err)
	assert.False(t, av.Available)
	require.NotNil(t, av.ActiveLease)
	assert.Equal(t, b.Record.ID, av.ActiveLease.ID)

	_, err = transition(t, e, 1, "C")
	assert.ErrorIs(t, err, model.ErrLeasedByAnotherHolder)

	returned, err := transition(t, e, 1, "B")
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeReturned, returned.Outcome)

	c, err := transition(t, e, 1, "C")
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeLeased, c.Outcome)
	assert.Equal(t, 1, activeCount(t, store, 1))

	history, err := r.GetLeaseHistory(ctx, 1)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, []int64{a.Record.ID, b.Record.ID, c.Record.ID},
		[]int64{history[0].ID, history[1].ID, history[2].ID})
}

func TestLeaseTime(t *testing.T) {
	base := time.Date(2024, 8, 1, 10, 0, 0, 0, time.UTC)
	prev := &model.LeaseRecord{ID: 1, LeasedAt: base}

	assert.Equal(t, base, leaseTime(base, nil))
	assert.Equal(t, base.Add(time.Minute), leaseTime(base.Add(time.Minute), prev))
	assert.Equal(t, base.Add(time.Microsecond), leaseTime(base, prev), "equal")
	assert.Equal(t, base.Add(time.Microsecond), leaseTime(base.Add(-time.Hour), prev), "earlier")
}

func TestTransition_CatalogUnavailable(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"connection failure", &pgconn.PgError{Code: "08006", Message: "connection failure"}},
		{"too many connections", &pgconn.PgError{Code: "53300"}},
		{"deadline", fmt.Errorf("check book: %w", context.DeadlineExceeded)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := repository.NewMemoryStore()
			store.AddBook(1)
			e := NewTransitionEngine(store, failingCatalog{err: tt.err}, noDelay)

			_, err := transition(t, e, 1, "A")
			require.Error(t, err)
			assert.Equal(t, model.KindUnavailable, model.KindOf(err))
			assert.Equal(t, http.StatusServiceUnavailable, model.ToHTTPStatus(err))
			assert.Equal(t, 0, activeCount(t, store, 1))
		})
	}
}
