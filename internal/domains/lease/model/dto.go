package model

import (
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const MaxHolderIDLength = 255

// LeaseRequest - PUT /books/:id/leases
type LeaseRequest struct {
	ReturnedAt *time.Time `json:"returned_at,omitempty"`
}

// ValidateHolderID trims and checks an opaque holder id.
func ValidateHolderID(holderID string) (string, error) {
	holderID = strings.TrimSpace(holderID)
	err := validation.Validate(holderID,
		validation.Required.Error("holder id is required"),
		validation.RuneLength(1, MaxHolderIDLength).Error("holder id must be at most 255 characters"),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidHolder, err)
	}
	return holderID, nil
}

// LeaseResponse is the wire form of a LeaseRecord.
type LeaseResponse struct {
	ID         int64      `json:"id"`
	BookID     int64      `json:"book_id"`
	HolderID   string     `json:"holder_id"`
	LeasedAt   time.Time  `json:"leased_at"`
	ReturnedAt *time.Time `json:"returned_at"`
	Status     Status     `json:"status"`
}

func (r *LeaseRecord) ToResponse() LeaseResponse {
	return LeaseResponse{
		ID:         r.ID,
		BookID:     r.BookID,
		HolderID:   r.HolderID,
		LeasedAt:   r.LeasedAt,
		ReturnedAt: r.ReturnedAt,
		Status:     r.Status(),
	}
}

func ToResponses(records []LeaseRecord) []LeaseResponse {
	out := make([]LeaseResponse, len(records))
	for i := range records {
		out[i] = records[i].ToResponse()
	}
	return out
}

// TransitionResponse adds the outcome of the call.
type TransitionResponse struct {
	LeaseResponse
	Outcome Outcome `json:"outcome"`
}

// AvailabilitySnapshot is the projection written to the cache by the worker.
type AvailabilitySnapshot struct {
	BookID      int64     `json:"book_id"`
	Available   bool      `json:"available"`
	HolderID    string    `json:"holder_id,omitempty"`
	LeaseID     int64     `json:"lease_id,omitempty"`
	RefreshedAt time.Time `json:"refreshed_at"`
}

// AvailabilitySyncPayload is the asynq payload of a lease:availability_sync task.
type AvailabilitySyncPayload struct {
	BookID        int64   `json:"book_id"`
	Outcome       Outcome `json:"outcome"`
	LeaseID       int64   `json:"lease_id"`
	CorrelationID string  `json:"correlation_id"`
}

// ReconcilePayload is the asynq payload of the scheduled lease:reconcile task.
type ReconcilePayload struct{}

// SnapshotKey is the cache key of a book's availability projection.
func SnapshotKey(bookID int64) string {
	return fmt.Sprintf("lease:book:%d:availability", bookID)
}

// NewSnapshot projects a resolved availability for the cache.
func NewSnapshot(av BookAvailability, refreshedAt time.Time) AvailabilitySnapshot {
	s := AvailabilitySnapshot{
		BookID:      av.BookID,
		Available:   av.Available,
		RefreshedAt: refreshedAt.UTC(),
	}
	if av.ActiveLease != nil {
		s.HolderID = av.ActiveLease.HolderID
		s.LeaseID = av.ActiveLease.ID
	}
	return s
}
