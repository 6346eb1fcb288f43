package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"library-backend/internal/domains/author"
)

// postgresRepository implements author.Repository on sqlx
type postgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new author repository instance
func NewPostgresRepository(db *sqlx.DB) author.Repository {
	return &postgresRepository{db: db}
}

const (
	createAuthorSQL = `
		INSERT INTO authors (name)
		VALUES ($1)
		RETURNING id, name, created_at, updated_at
	`

	getAuthorSQL = `
		SELECT id, name, created_at, updated_at
		FROM authors
		WHERE id = $1
	`

	listAuthorsSQL = `
		SELECT id, name, created_at, updated_at
		FROM authors
		ORDER BY name ASC, id ASC
	`

	deleteAuthorSQL = `DELETE FROM authors WHERE id = $1`

	authorExistsSQL = `SELECT EXISTS (SELECT 1 FROM authors WHERE id = $1)`
)

// Create inserts new author with generated ID and timestamps
func (r *postgresRepository) Create(ctx context.Context, a *author.Author) (*author.Author, error) {
	var created author.Author
	if err := r.db.QueryRowxContext(ctx, createAuthorSQL, a.Name).StructScan(&created); err != nil {
		return nil, fmt.Errorf("failed to create author: %w", err)
	}
	return &created, nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id int64) (*author.Author, error) {
	var a author.Author
	if err := r.db.GetContext(ctx, &a, getAuthorSQL, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, author.ErrAuthorNotFound
		}
		return nil, fmt.Errorf("failed to get author: %w", err)
	}
	return &a, nil
}

func (r *postgresRepository) List(ctx context.Context) ([]author.Author, error) {
	authors := make([]author.Author, 0)
	if err := r.db.SelectContext(ctx, &authors, listAuthorsSQL); err != nil {
		return nil, fmt.Errorf("failed to list authors: %w", err)
	}
	return authors, nil
}

// Delete relies on ON DELETE RESTRICT to refuse authors that still have books
func (r *postgresRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, deleteAuthorSQL, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" { // foreign_key_violation
			return author.ErrAuthorHasBooks
		}
		return fmt.Errorf("failed to delete author: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete author: %w", err)
	}
	if n == 0 {
		return author.ErrAuthorNotFound
	}
	return nil
}

func (r *postgresRepository) ExistsByID(ctx context.Context, id int64) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, authorExistsSQL, id); err != nil {
		return false, fmt.Errorf("failed to check author: %w", err)
	}
	return exists, nil
}
