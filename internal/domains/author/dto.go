package author

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Constants for validation
const (
	MinNameLength = 1
	MaxNameLength = 200
)

// CreateAuthorRequest - POST /v1/authors
type CreateAuthorRequest struct {
	Name string `json:"name"`
}

// Normalize trims user input before validation.
func (r *CreateAuthorRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
}

func (r CreateAuthorRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name,
			validation.Required.Error("name is required"),
			validation.RuneLength(MinNameLength, MaxNameLength),
		),
	)
}

// AuthorResponse - GET /v1/authors, GET /v1/authors/:id
type AuthorResponse struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}
