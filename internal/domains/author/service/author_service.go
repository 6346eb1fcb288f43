package service

import (
	"context"
	"fmt"

	"library-backend/internal/domains/author"
	"library-backend/pkg/logger"
)

// authorService implements author.Service interface
type authorService struct {
	repo author.Repository
}

// NewAuthorService creates a new author service instance
func NewAuthorService(repo author.Repository) author.Service {
	return &authorService{repo: repo}
}

func (s *authorService) Create(ctx context.Context, req *author.CreateAuthorRequest) (*author.Author, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", author.ErrInvalidName, err)
	}

	created, err := s.repo.Create(ctx, &author.Author{Name: req.Name})
	if err != nil {
		return nil, err
	}

	logger.Info("Author created", map[string]interface{}{
		"author_id": created.ID,
	})
	return created, nil
}

func (s *authorService) GetByID(ctx context.Context, id int64) (*author.Author, error) {
	if id <= 0 {
		return nil, author.ErrAuthorNotFound
	}
	return s.repo.GetByID(ctx, id)
}

func (s *authorService) List(ctx context.Context) ([]author.Author, error) {
	return s.repo.List(ctx)
}

func (s *authorService) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return author.ErrAuthorNotFound
	}
	return s.repo.Delete(ctx, id)
}

func (s *authorService) Exists(ctx context.Context, id int64) (bool, error) {
	if id <= 0 {
		return false, nil
	}
	return s.repo.ExistsByID(ctx, id)
}
