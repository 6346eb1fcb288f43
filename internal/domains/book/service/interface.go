package service

import (
	"context"

	"library-backend/internal/domains/book/model"
)

// ServiceInterface - catalog operations with availability attached
type ServiceInterface interface {
	// Errors: ErrAuthorNotFound, ErrInvalidTitle
	CreateForAuthor(ctx context.Context, authorID int64, req model.CreateBookRequest) (*model.BookResponse, error)
	// Errors: ErrBookNotFound
	GetByID(ctx context.Context, id int64) (*model.BookResponse, error)
	// ListBooks applies the optional availability filter
	ListBooks(ctx context.Context, req model.ListBooksRequest) ([]model.BookResponse, error)
	// Errors: ErrAuthorNotFound
	ListByAuthor(ctx context.Context, authorID int64) ([]model.BookResponse, error)
	// Errors: ErrBookNotFound, ErrBookHasLeases
	Delete(ctx context.Context, id int64) error
}

// AuthorChecker is satisfied by author.Service
type AuthorChecker interface {
	Exists(ctx context.Context, id int64) (bool, error)
}
