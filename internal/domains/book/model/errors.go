package model

import (
	"errors"
	"net/http"
)

var (
	ErrBookNotFound   = errors.New("book not found")
	ErrAuthorNotFound = errors.New("author not found")
	ErrInvalidTitle   = errors.New("book title is invalid")
	ErrInvalidFilter  = errors.New("available must be a boolean")

	// lease history is never removed, so a leased-once book stays
	ErrBookHasLeases = errors.New("cannot delete book with lease history")
)

func ToErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrBookNotFound):
		return "BOOK_NOT_FOUND"
	case errors.Is(err, ErrAuthorNotFound):
		return "AUTHOR_NOT_FOUND"
	case errors.Is(err, ErrInvalidTitle):
		return "INVALID_TITLE"
	case errors.Is(err, ErrInvalidFilter):
		return "INVALID_FILTER"
	case errors.Is(err, ErrBookHasLeases):
		return "BOOK_HAS_LEASES"
	default:
		return "INTERNAL_ERROR"
	}
}

func ToHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrBookNotFound), errors.Is(err, ErrAuthorNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidTitle), errors.Is(err, ErrInvalidFilter):
		return http.StatusBadRequest
	case errors.Is(err, ErrBookHasLeases):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
