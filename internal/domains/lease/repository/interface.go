package repository

import (
	"context"
	"time"

	"library-backend/internal/domains/lease/model"
)

// Store owns lease record storage. Lookups are keyed by book id; books never
// hold their records.
type Store interface {
	// Latest returns the most recent record of the book (leased_at, then id),
	// or nil without error when the book was never leased.
	Latest(ctx context.Context, bookID int64) (*model.LeaseRecord, error)

	// Append persists a new outstanding record.
	Append(ctx context.Context, bookID int64, holderID string, leasedAt time.Time) (*model.LeaseRecord, error)

	// MarkReturned sets returned_at once.
	// Errors: ErrLeaseNotFound, ErrAlreadyReturned.
	MarkReturned(ctx context.Context, recordID int64, returnedAt time.Time) (*model.LeaseRecord, error)

	// ListByBook returns the ledger ordered by leased_at ascending.
	ListByBook(ctx context.Context, bookID int64) ([]model.LeaseRecord, error)

	// LatestPerBook returns one head per catalog book in scope, ordered by book id,
	// computed with a single latest-row-per-group query.
	LatestPerBook(ctx context.Context, filter HeadFilter) ([]model.BookHead, error)

	// WithBookLock runs fn while holding the book's exclusive lock. Everything fn
	// writes through the Ledger commits together or not at all.
	// Errors: ErrBookNotFound when the book row is missing.
	WithBookLock(ctx context.Context, bookID int64, fn func(Ledger) error) error
}

// Ledger is the view of one locked book handed to WithBookLock callbacks.
type Ledger interface {
	BookID() int64
	Latest(ctx context.Context) (*model.LeaseRecord, error)
	Append(ctx context.Context, holderID string, leasedAt time.Time) (*model.LeaseRecord, error)
	MarkReturned(ctx context.Context, recordID int64, returnedAt time.Time) (*model.LeaseRecord, error)
}

// HeadFilter narrows LatestPerBook. Empty BookIDs means every book.
type HeadFilter struct {
	BookIDs []int64
}
