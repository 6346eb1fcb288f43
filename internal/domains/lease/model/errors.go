package model

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ===================================
// DOMAIN ERRORS
// ===================================

var (
	// ErrBookNotFound is returned when the catalog has no such book.
	ErrBookNotFound = errors.New("book not found")

	// ErrLeaseNotFound is returned when a lease record id does not exist.
	ErrLeaseNotFound = errors.New("lease record not found")

	// ErrLeasedByAnotherHolder rejects a transition on a book held by someone else.
	ErrLeasedByAnotherHolder = errors.New("book already leased by another holder")

	// ErrAlreadyReturned guards against a double return.
	ErrAlreadyReturned = errors.New("lease record already returned")

	// ErrIntegrityViolation is a referential constraint failure at the storage boundary.
	ErrIntegrityViolation = errors.New("integrity violation")

	// ErrAborted means the transaction lost a race (serialization failure, deadlock,
	// lock timeout, active-lease index). Retrying the whole transition is safe.
	ErrAborted = errors.New("transition aborted")

	// ErrUnavailable means the store could not be reached in time.
	ErrUnavailable = errors.New("lease store unavailable")

	// ErrInvalidHolder rejects empty or oversized holder ids.
	ErrInvalidHolder = errors.New("invalid holder id")

	// ErrInvalidReturnTime rejects an unparseable explicit return time.
	ErrInvalidReturnTime = errors.New("invalid returned_at")
)

// Kind groups errors the way callers react to them.
type Kind string

const (
	KindNotFound           Kind = "not_found"
	KindConflict           Kind = "conflict"
	KindInvalidState       Kind = "invalid_state"
	KindIntegrityViolation Kind = "integrity_violation"
	KindAborted            Kind = "aborted"
	KindUnavailable        Kind = "unavailable"
	KindValidation         Kind = "validation"
	KindInternal           Kind = "internal"
)

// ===================================
// ERROR HELPERS
// ===================================

func NewBookNotFoundError(bookID int64) error {
	return fmt.Errorf("%w: book_id=%d", ErrBookNotFound, bookID)
}

func NewLeaseNotFoundError(recordID int64) error {
	return fmt.Errorf("%w: id=%d", ErrLeaseNotFound, recordID)
}

func NewConflictError(bookID int64) error {
	return fmt.Errorf("%w: book_id=%d", ErrLeasedByAnotherHolder, bookID)
}

func NewAlreadyReturnedError(recordID int64) error {
	return fmt.Errorf("%w: id=%d", ErrAlreadyReturned, recordID)
}

// KindOf classifies err. Context cancellation and deadline count as unavailable.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrBookNotFound), errors.Is(err, ErrLeaseNotFound):
		return KindNotFound
	case errors.Is(err, ErrLeasedByAnotherHolder):
		return KindConflict
	case errors.Is(err, ErrAlreadyReturned):
		return KindInvalidState
	case errors.Is(err, ErrIntegrityViolation):
		return KindIntegrityViolation
	case errors.Is(err, ErrAborted):
		return KindAborted
	case errors.Is(err, ErrUnavailable),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return KindUnavailable
	case errors.Is(err, ErrInvalidHolder), errors.Is(err, ErrInvalidReturnTime):
		return KindValidation
	default:
		return KindInternal
	}
}

// IsRetryable is true for errors a caller may retry unchanged.
func IsRetryable(err error) bool {
	k := KindOf(err)
	return k == KindAborted || k == KindUnavailable
}

func IsNotFoundError(err error) bool {
	return KindOf(err) == KindNotFound
}

// ToHTTPStatus maps an error to the boundary status code.
func ToHTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict, KindInvalidState, KindIntegrityViolation:
		return http.StatusConflict
	case KindAborted, KindUnavailable:
		return http.StatusServiceUnavailable
	case KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// ToErrorCode maps an error to a stable API error code.
func ToErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrBookNotFound):
		return "BOOK_NOT_FOUND"
	case errors.Is(err, ErrLeaseNotFound):
		return "LEASE_NOT_FOUND"
	case errors.Is(err, ErrLeasedByAnotherHolder):
		return "LEASED_BY_ANOTHER_HOLDER"
	case errors.Is(err, ErrAlreadyReturned):
		return "ALREADY_RETURNED"
	case errors.Is(err, ErrIntegrityViolation):
		return "INTEGRITY_VIOLATION"
	case errors.Is(err, ErrInvalidHolder):
		return "INVALID_HOLDER"
	case errors.Is(err, ErrInvalidReturnTime):
		return "INVALID_RETURNED_AT"
	}

	switch KindOf(err) {
	case KindAborted:
		return "TRANSITION_ABORTED"
	case KindUnavailable:
		return "STORE_UNAVAILABLE"
	default:
		return "INTERNAL_ERROR"
	}
}
