package service

import (
	"context"
	"time"

	"library-backend/internal/domains/lease/model"
)

// CatalogLookup answers whether a book id exists in the catalog.
// Implemented by the book service.
type CatalogLookup interface {
	Exists(ctx context.Context, bookID int64) (bool, error)
}

// EventPublisher is notified after a transition committed.
type EventPublisher interface {
	PublishTransition(ctx context.Context, result *model.TransitionResult) error
}

// Metrics receives transition instrumentation.
type Metrics interface {
	TransitionCommitted(outcome string, elapsed time.Duration)
	TransitionFailed(kind string, elapsed time.Duration)
	TransitionRetried()
}

// Transitioner performs the lease-or-return toggle.
type Transitioner interface {
	Transition(ctx context.Context, req model.TransitionRequest) (*model.TransitionResult, error)
}

// AvailabilityReader is the read side used by handlers and jobs.
type AvailabilityReader interface {
	GetAvailability(ctx context.Context, bookID int64) (*model.BookAvailability, error)
	ListBooksByAvailability(ctx context.Context, available bool) ([]int64, error)
	AvailabilityByBook(ctx context.Context, bookIDs []int64) (map[int64]bool, error)
	GetLeaseHistory(ctx context.Context, bookID int64) ([]model.LeaseRecord, error)
}

type noopPublisher struct{}

func (noopPublisher) PublishTransition(context.Context, *model.TransitionResult) error { return nil }

type noopMetrics struct{}

func (noopMetrics) TransitionCommitted(string, time.Duration) {}
func (noopMetrics) TransitionFailed(string, time.Duration)    {}
func (noopMetrics) TransitionRetried()                        {}
