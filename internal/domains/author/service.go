package author

import "context"

// Service defines business logic operations for Author domain
type Service interface {
	// Create validates the name and inserts the author
	// Errors: ErrInvalidName
	Create(ctx context.Context, req *CreateAuthorRequest) (*Author, error)

	// Errors: ErrAuthorNotFound
	GetByID(ctx context.Context, id int64) (*Author, error)

	// List returns all authors ordered by name
	List(ctx context.Context) ([]Author, error)

	// Delete removes an author without books
	// Errors: ErrAuthorNotFound, ErrAuthorHasBooks
	Delete(ctx context.Context, id int64) error

	Exists(ctx context.Context, id int64) (bool, error)
}
