package model

import (
	"time"
)

// LeaseRecord is one entry of a book's ledger.
// Immutable except for the single ReturnedAt nil → timestamp transition.
type LeaseRecord struct {
	ID         int64      `json:"id" db:"id"`
	BookID     int64      `json:"book_id" db:"book_id"`
	HolderID   string     `json:"holder_id" db:"holder_id"`
	LeasedAt   time.Time  `json:"leased_at" db:"leased_at"`
	ReturnedAt *time.Time `json:"returned_at" db:"returned_at"`
}

// IsActive reports an outstanding lease.
func (r *LeaseRecord) IsActive() bool {
	return r.ReturnedAt == nil
}

// Status is the display form of a record.
type Status string

const (
	StatusLeased   Status = "leased"
	StatusReturned Status = "returned"
)

func (r *LeaseRecord) Status() Status {
	if r.IsActive() {
		return StatusLeased
	}
	return StatusReturned
}

// Outcome of a transition.
type Outcome string

const (
	OutcomeLeased   Outcome = "leased"
	OutcomeReturned Outcome = "returned"
)

// TransitionRequest is one lease-or-return call.
// ReturnedAt is only honoured when the call turns out to be a return.
type TransitionRequest struct {
	BookID     int64
	HolderID   string
	ReturnedAt *time.Time
}

type TransitionResult struct {
	Record  LeaseRecord
	Outcome Outcome
}

// BookHead pairs a catalog book with the latest record of its ledger (nil when never leased).
type BookHead struct {
	BookID int64
	Latest *LeaseRecord
}

// BookAvailability is the resolved state of one book.
type BookAvailability struct {
	BookID      int64        `json:"book_id"`
	Available   bool         `json:"available"`
	ActiveLease *LeaseRecord `json:"active_lease,omitempty"`
}
