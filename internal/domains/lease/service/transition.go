package service

import (
	"context"
	"fmt"
	"time"

	"library-backend/internal/domains/lease/model"
	"library-backend/internal/domains/lease/repository"

	"github.com/rs/zerolog/log"
)

// TransitionEngine toggles a book between leased and available for one holder.
// Each transition runs under the book's exclusive lock; different books never contend.
type TransitionEngine struct {
	store     repository.Store
	catalog   CatalogLookup
	publisher EventPublisher
	metrics   Metrics
	clock     func() time.Time
	retryOpts []RetryOption
}

// EngineOption configures a TransitionEngine.
type EngineOption func(*TransitionEngine)

func WithClock(clock func() time.Time) EngineOption {
	return func(e *TransitionEngine) { e.clock = clock }
}

func WithPublisher(p EventPublisher) EngineOption {
	return func(e *TransitionEngine) { e.publisher = p }
}

func WithMetrics(m Metrics) EngineOption {
	return func(e *TransitionEngine) { e.metrics = m }
}

// WithRetry replaces the retry policy applied to aborted transactions.
func WithRetry(opts ...RetryOption) EngineOption {
	return func(e *TransitionEngine) { e.retryOpts = opts }
}

func NewTransitionEngine(store repository.Store, catalog CatalogLookup, opts ...EngineOption) *TransitionEngine {
	e := &TransitionEngine{
		store:     store,
		catalog:   catalog,
		publisher: noopPublisher{},
		metrics:   noopMetrics{},
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Transition leases the book to the holder when it is available, returns it when
// the holder has it, and fails with ErrLeasedByAnotherHolder otherwise.
// An explicit ReturnedAt is only used by a return.
func (e *TransitionEngine) Transition(ctx context.Context, req model.TransitionRequest) (*model.TransitionResult, error) {
	start := time.Now()

	holderID, err := model.ValidateHolderID(req.HolderID)
	if err != nil {
		e.metrics.TransitionFailed(string(model.KindValidation), time.Since(start))
		return nil, err
	}

	var result *model.TransitionResult
	opts := append([]RetryOption{
		WithOnRetry(func(attempt int, err error) {
			e.metrics.TransitionRetried()
			log.Warn().
				Err(err).
				Int64("book_id", req.BookID).
				Int("attempt", attempt).
				Msg("lease transition aborted, retrying")
		}),
	}, e.retryOpts...)

	err = RetryWithExponentialBackoff(ctx, func(ctx context.Context) error {
		r, err := e.attempt(ctx, req.BookID, holderID, req.ReturnedAt)
		if err != nil {
			return err
		}
		result = r
		return nil
	}, opts...)

	elapsed := time.Since(start)
	if err != nil {
		kind := model.KindOf(err)
		e.metrics.TransitionFailed(string(kind), elapsed)
		if kind == model.KindInternal {
			log.Error().Err(err).Int64("book_id", req.BookID).Msg("lease transition failed")
		}
		return nil, err
	}

	e.metrics.TransitionCommitted(string(result.Outcome), elapsed)
	log.Info().
		Int64("book_id", req.BookID).
		Int64("lease_id", result.Record.ID).
		Str("holder_id", holderID).
		Str("outcome", string(result.Outcome)).
		Dur("elapsed", elapsed).
		Msg("lease transition committed")

	if err := e.publisher.PublishTransition(ctx, result); err != nil {
		// projection catches up on the next reconcile
		log.Warn().Err(err).Int64("book_id", req.BookID).Msg("failed to publish lease transition")
	}

	return result, nil
}

func (e *TransitionEngine) attempt(ctx context.Context, bookID int64, holderID string, returnedAt *time.Time) (*model.TransitionResult, error) {
	exists, err := e.catalog.Exists(ctx, bookID)
	if err != nil {
		return nil, catalogError(err)
	}
	if !exists {
		return nil, model.NewBookNotFoundError(bookID)
	}

	var result *model.TransitionResult
	err = e.store.WithBookLock(ctx, bookID, func(l repository.Ledger) error {
		latest, err := l.Latest(ctx)
		if err != nil {
			return err
		}

		switch {
		case model.IsAvailable(latest):
			rec, err := l.Append(ctx, holderID, leaseTime(e.clock(), latest))
			if err != nil {
				return err
			}
			result = &model.TransitionResult{Record: *rec, Outcome: model.OutcomeLeased}

		case latest.HolderID == holderID:
			at := e.clock()
			if returnedAt != nil {
				at = *returnedAt
			}
			rec, err := l.MarkReturned(ctx, latest.ID, at)
			if err != nil {
				return err
			}
			result = &model.TransitionResult{Record: *rec, Outcome: model.OutcomeReturned}

		default:
			return model.NewConflictError(bookID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// leaseTime keeps leased_at strictly increasing per book, also when the clock
// steps back between transitions.
func leaseTime(now time.Time, latest *model.LeaseRecord) time.Time {
	if latest != nil && !now.After(latest.LeasedAt) {
		return latest.LeasedAt.Add(time.Microsecond)
	}
	return now
}

// catalogError classifies catalog driver failures the same way as store failures.
func catalogError(err error) error {
	return fmt.Errorf("catalog lookup: %w", repository.TranslateError(err))
}
