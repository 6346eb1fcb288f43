package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"library-backend/internal/domains/book/model"
)

// postgresRepository - sqlx over the shared pool
type postgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository - Constructor
func NewPostgresRepository(db *sqlx.DB) RepositoryInterface {
	return &postgresRepository{db: db}
}

const bookColumns = `id, title, author_id, created_at, updated_at`

var (
	createBookSQL = `
		INSERT INTO books (title, author_id)
		VALUES ($1, $2)
		RETURNING ` + bookColumns

	getBookSQL = `SELECT ` + bookColumns + ` FROM books WHERE id = $1`

	listBooksSQL = `SELECT ` + bookColumns + ` FROM books ORDER BY id ASC`

	listBooksByAuthorSQL = `
		SELECT ` + bookColumns + `
		FROM books
		WHERE author_id = $1
		ORDER BY id ASC`

	listBooksByIDsSQL = `
		SELECT ` + bookColumns + `
		FROM books
		WHERE id = ANY($1::bigint[])
		ORDER BY id ASC`

	deleteBookSQL = `DELETE FROM books WHERE id = $1`

	bookExistsSQL = `SELECT EXISTS (SELECT 1 FROM books WHERE id = $1)`
)

// ========================= CREATE =====================
func (r *postgresRepository) Create(ctx context.Context, b *model.Book) (*model.Book, error) {
	var created model.Book
	err := r.db.QueryRowxContext(ctx, createBookSQL, b.Title, b.AuthorID).StructScan(&created)
	if err != nil {
		if pgCode(err) == "23503" { // foreign_key_violation on author_id
			return nil, model.ErrAuthorNotFound
		}
		return nil, fmt.Errorf("failed to create book: %w", err)
	}
	return &created, nil
}

// ========================= READ =====================
func (r *postgresRepository) GetByID(ctx context.Context, id int64) (*model.Book, error) {
	var b model.Book
	if err := r.db.GetContext(ctx, &b, getBookSQL, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrBookNotFound
		}
		return nil, fmt.Errorf("failed to get book: %w", err)
	}
	return &b, nil
}

func (r *postgresRepository) List(ctx context.Context) ([]model.Book, error) {
	books := make([]model.Book, 0)
	if err := r.db.SelectContext(ctx, &books, listBooksSQL); err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	return books, nil
}

func (r *postgresRepository) ListByAuthor(ctx context.Context, authorID int64) ([]model.Book, error) {
	books := make([]model.Book, 0)
	if err := r.db.SelectContext(ctx, &books, listBooksByAuthorSQL, authorID); err != nil {
		return nil, fmt.Errorf("failed to list books by author: %w", err)
	}
	return books, nil
}

func (r *postgresRepository) ListByIDs(ctx context.Context, ids []int64) ([]model.Book, error) {
	books := make([]model.Book, 0, len(ids))
	if len(ids) == 0 {
		return books, nil
	}
	if err := r.db.SelectContext(ctx, &books, listBooksByIDsSQL, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("failed to list books by ids: %w", err)
	}
	return books, nil
}

func (r *postgresRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, bookExistsSQL, id); err != nil {
		return false, fmt.Errorf("failed to check book: %w", err)
	}
	return exists, nil
}

// ========================= DELETE =====================
// Delete is refused by book_leases ON DELETE RESTRICT once the book has been leased
func (r *postgresRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, deleteBookSQL, id)
	if err != nil {
		if pgCode(err) == "23503" {
			return model.ErrBookHasLeases
		}
		return fmt.Errorf("failed to delete book: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete book: %w", err)
	}
	if n == 0 {
		return model.ErrBookNotFound
	}
	return nil
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
