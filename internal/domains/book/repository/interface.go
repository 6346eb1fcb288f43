package repository

import (
	"context"

	"library-backend/internal/domains/book/model"
)

// RepositoryInterface - book data access
type RepositoryInterface interface {
	Create(ctx context.Context, book *model.Book) (*model.Book, error)
	GetByID(ctx context.Context, id int64) (*model.Book, error)
	// List returns every book ordered by id
	List(ctx context.Context) ([]model.Book, error)
	ListByAuthor(ctx context.Context, authorID int64) ([]model.Book, error)
	// ListByIDs returns the matching books ordered by id; unknown ids are skipped
	ListByIDs(ctx context.Context, ids []int64) ([]model.Book, error)
	// Errors: ErrBookNotFound, ErrBookHasLeases
	Delete(ctx context.Context, id int64) error
	Exists(ctx context.Context, id int64) (bool, error)
}
