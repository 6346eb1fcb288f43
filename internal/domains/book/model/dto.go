package model

import (
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const MaxTitleLength = 200

// CreateBookRequest - POST /v1/authors/:id/books
type CreateBookRequest struct {
	Title string `json:"title"`
}

func (r *CreateBookRequest) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
}

func (r CreateBookRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title,
			validation.Required.Error("title is required"),
			validation.RuneLength(1, MaxTitleLength),
		),
	)
}

// ListBooksRequest - GET /v1/books?available=
// Available nil means no filter.
type ListBooksRequest struct {
	Available *bool
}

// ParseAvailableFilter reads the raw ?available= value. Empty means no filter.
func ParseAvailableFilter(raw string) (*bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, ErrInvalidFilter
	}
	return &v, nil
}
