package service

import (
	"context"
	"fmt"

	"library-backend/internal/domains/book/model"
	"library-backend/internal/domains/book/repository"
	leaseService "library-backend/internal/domains/lease/service"
	"library-backend/pkg/logger"
)

// BookService - Implements ServiceInterface
type BookService struct {
	repo         repository.RepositoryInterface
	authors      AuthorChecker
	catalog      *CatalogLookup
	availability leaseService.AvailabilityReader
}

// NewService - Constructor with DI
func NewService(
	repo repository.RepositoryInterface,
	authors AuthorChecker,
	catalog *CatalogLookup,
	availability leaseService.AvailabilityReader,
) ServiceInterface {
	return &BookService{
		repo:         repo,
		authors:      authors,
		catalog:      catalog,
		availability: availability,
	}
}

func (s *BookService) CreateForAuthor(ctx context.Context, authorID int64, req model.CreateBookRequest) (*model.BookResponse, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidTitle, err)
	}

	if err := s.requireAuthor(ctx, authorID); err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, &model.Book{Title: req.Title, AuthorID: authorID})
	if err != nil {
		return nil, err
	}

	logger.Info("Book created", map[string]interface{}{
		"book_id":   created.ID,
		"author_id": authorID,
	})

	// a fresh book has an empty ledger
	resp := created.ToResponse(true)
	return &resp, nil
}

func (s *BookService) GetByID(ctx context.Context, id int64) (*model.BookResponse, error) {
	if id <= 0 {
		return nil, model.ErrBookNotFound
	}

	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	availability, err := s.availability.AvailabilityByBook(ctx, []int64{id})
	if err != nil {
		return nil, fmt.Errorf("resolve availability: %w", err)
	}

	resp := model.ToResponses([]model.Book{*b}, availability)[0]
	return &resp, nil
}

// ListBooks without a filter resolves availability for the whole page in one query.
// With a filter the lease ledger picks the ids first.
func (s *BookService) ListBooks(ctx context.Context, req model.ListBooksRequest) ([]model.BookResponse, error) {
	if req.Available != nil {
		ids, err := s.availability.ListBooksByAvailability(ctx, *req.Available)
		if err != nil {
			return nil, fmt.Errorf("list by availability: %w", err)
		}
		books, err := s.repo.ListByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}

		out := make([]model.BookResponse, 0, len(books))
		for i := range books {
			out = append(out, books[i].ToResponse(*req.Available))
		}
		return out, nil
	}

	books, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return s.withAvailability(ctx, books)
}

func (s *BookService) ListByAuthor(ctx context.Context, authorID int64) ([]model.BookResponse, error) {
	if err := s.requireAuthor(ctx, authorID); err != nil {
		return nil, err
	}

	books, err := s.repo.ListByAuthor(ctx, authorID)
	if err != nil {
		return nil, err
	}
	return s.withAvailability(ctx, books)
}

func (s *BookService) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return model.ErrBookNotFound
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.catalog.Invalidate(ctx, id)

	logger.Info("Book deleted", map[string]interface{}{
		"book_id": id,
	})
	return nil
}

func (s *BookService) requireAuthor(ctx context.Context, authorID int64) error {
	if authorID <= 0 {
		return model.ErrAuthorNotFound
	}
	ok, err := s.authors.Exists(ctx, authorID)
	if err != nil {
		return fmt.Errorf("check author: %w", err)
	}
	if !ok {
		return model.ErrAuthorNotFound
	}
	return nil
}

func (s *BookService) withAvailability(ctx context.Context, books []model.Book) ([]model.BookResponse, error) {
	if len(books) == 0 {
		return []model.BookResponse{}, nil
	}

	ids := make([]int64, len(books))
	for i := range books {
		ids[i] = books[i].ID
	}

	availability, err := s.availability.AvailabilityByBook(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve availability: %w", err)
	}
	return model.ToResponses(books, availability), nil
}
