package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"library-backend/internal/domains/lease/model"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"serialization failure", &pgconn.PgError{Code: "40001"}, model.ErrAborted},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, model.ErrAborted},
		{"lock timeout", fmt.Errorf("lock book: %w", &pgconn.PgError{Code: "55P03"}), model.ErrAborted},
		{"active lease index", &pgconn.PgError{Code: "23505", ConstraintName: "uq_book_leases_active"}, model.ErrAborted},
		{"other unique", &pgconn.PgError{Code: "23505", ConstraintName: "authors_pkey"}, model.ErrIntegrityViolation},
		{"foreign key", &pgconn.PgError{Code: "23503"}, model.ErrIntegrityViolation},
		{"statement timeout", &pgconn.PgError{Code: "57014"}, model.ErrUnavailable},
		{"connection failure", &pgconn.PgError{Code: "08006"}, model.ErrUnavailable},
		{"commit wrapped", fmt.Errorf("failed to commit transaction: %w", &pgconn.PgError{Code: "40001"}), model.ErrAborted},
		{"deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), context.DeadlineExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, TranslateError(tt.err), tt.want)
		})
	}
}

func TestTranslateError_PassThrough(t *testing.T) {
	assert.NoError(t, TranslateError(nil))

	notFound := model.NewBookNotFoundError(3)
	assert.Same(t, notFound, TranslateError(notFound))

	plain := errors.New("syntax")
	assert.Equal(t, plain, TranslateError(plain))

	assert.Equal(t, model.KindUnavailable, model.KindOf(TranslateError(context.Canceled)))
}
