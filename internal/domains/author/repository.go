package author

import "context"

// Repository defines the interface for Author data access operations
type Repository interface {
	// Create inserts a new author
	// Returns: created author with ID and timestamps
	Create(ctx context.Context, author *Author) (*Author, error)

	// GetByID retrieves author by id
	// Returns: ErrAuthorNotFound if not exists
	GetByID(ctx context.Context, id int64) (*Author, error)

	// List returns every author ordered by name
	List(ctx context.Context) ([]Author, error)

	// Delete removes author by ID
	// Errors: ErrAuthorNotFound, ErrAuthorHasBooks (foreign key restrict)
	Delete(ctx context.Context, id int64) error

	// ExistsByID checks if author exists
	ExistsByID(ctx context.Context, id int64) (bool, error)
}
