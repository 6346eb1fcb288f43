package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"library-backend/internal/domains/lease/model"

	"github.com/jackc/pgx/v5/pgconn"
)

const activeLeaseIndex = "uq_book_leases_active"

// PostgreSQL SQLSTATE codes the lease store reacts to.
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
	pgUniqueViolation      = "23505"
	pgForeignKeyViolation  = "23503"
	pgQueryCanceled        = "57014"
	pgTooManyConnections   = "53300"
	pgAdminShutdown        = "57P01"
)

// TranslateError maps pgx driver errors onto the lease error kinds. Errors that
// already carry a domain sentinel pass through unchanged.
func TranslateError(err error) error {
	if err == nil || isDomainError(err) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == pgSerializationFailure,
			pgErr.Code == pgDeadlockDetected,
			pgErr.Code == pgLockNotAvailable:
			return fmt.Errorf("%w: %s (%s)", model.ErrAborted, pgErr.Message, pgErr.Code)
		case pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == activeLeaseIndex:
			return fmt.Errorf("%w: concurrent active lease", model.ErrAborted)
		case pgErr.Code == pgForeignKeyViolation, pgErr.Code == pgUniqueViolation:
			return fmt.Errorf("%w: %s", model.ErrIntegrityViolation, pgErr.Message)
		case pgErr.Code == pgQueryCanceled,
			pgErr.Code == pgTooManyConnections,
			pgErr.Code == pgAdminShutdown,
			strings.HasPrefix(pgErr.Code, "08"):
			return fmt.Errorf("%w: %s (%s)", model.ErrUnavailable, pgErr.Message, pgErr.Code)
		}
		return err
	}

	if pgconn.Timeout(err) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", model.ErrUnavailable, err)
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return fmt.Errorf("%w: %w", model.ErrUnavailable, err)
	}

	return err
}

func isDomainError(err error) bool {
	return model.KindOf(err) != model.KindInternal
}
