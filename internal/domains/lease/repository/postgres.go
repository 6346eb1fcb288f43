package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"library-backend/internal/domains/lease/model"
	"library-backend/pkg/database"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is satisfied by *pgxpool.Pool and pgx.Tx
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// postgresStore implements Store on top of pgxpool.
// Book locks are row locks on books taken inside a read-committed transaction.
type postgresStore struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

// Option configures the postgres store.
type Option func(*postgresStore)

// WithLockTimeout bounds how long WithBookLock waits for the book row.
// Zero leaves the server default.
func WithLockTimeout(d time.Duration) Option {
	return func(s *postgresStore) {
		s.lockTimeout = d
	}
}

// NewPostgresStore creates a lease store backed by PostgreSQL
func NewPostgresStore(pool *pgxpool.Pool, opts ...Option) Store {
	s := &postgresStore{pool: pool}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *postgresStore) Latest(ctx context.Context, bookID int64) (*model.LeaseRecord, error) {
	rec, err := latest(ctx, s.pool, bookID)
	return rec, TranslateError(err)
}

func (s *postgresStore) Append(ctx context.Context, bookID int64, holderID string, leasedAt time.Time) (*model.LeaseRecord, error) {
	rec, err := insertLease(ctx, s.pool, bookID, holderID, leasedAt)
	return rec, TranslateError(err)
}

func (s *postgresStore) MarkReturned(ctx context.Context, recordID int64, returnedAt time.Time) (*model.LeaseRecord, error) {
	rec, err := markReturned(ctx, s.pool, recordID, returnedAt)
	return rec, TranslateError(err)
}

func (s *postgresStore) ListByBook(ctx context.Context, bookID int64) ([]model.LeaseRecord, error) {
	query, args, err := listByBookSQL(bookID)
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, TranslateError(fmt.Errorf("list leases: %w", err))
	}
	defer rows.Close()

	records := make([]model.LeaseRecord, 0)
	for rows.Next() {
		var rec model.LeaseRecord
		if err := rows.Scan(&rec.ID, &rec.BookID, &rec.HolderID, &rec.LeasedAt, &rec.ReturnedAt); err != nil {
			return nil, fmt.Errorf("scan lease: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, TranslateError(fmt.Errorf("list leases: %w", err))
	}

	return records, nil
}

func (s *postgresStore) LatestPerBook(ctx context.Context, filter HeadFilter) ([]model.BookHead, error) {
	query, args, err := bookHeadsSQL(filter)
	if err != nil {
		return nil, fmt.Errorf("build heads query: %w", err)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, TranslateError(fmt.Errorf("latest per book: %w", err))
	}
	defer rows.Close()

	heads := make([]model.BookHead, 0)
	for rows.Next() {
		var (
			bookID     int64
			leaseID    *int64
			holderID   *string
			leasedAt   *time.Time
			returnedAt *time.Time
		)
		if err := rows.Scan(&bookID, &leaseID, &holderID, &leasedAt, &returnedAt); err != nil {
			return nil, fmt.Errorf("scan head: %w", err)
		}

		head := model.BookHead{BookID: bookID}
		if leaseID != nil {
			head.Latest = &model.LeaseRecord{
				ID:         *leaseID,
				BookID:     bookID,
				HolderID:   deref(holderID),
				LeasedAt:   derefTime(leasedAt),
				ReturnedAt: returnedAt,
			}
		}
		heads = append(heads, head)
	}
	if err := rows.Err(); err != nil {
		return nil, TranslateError(fmt.Errorf("latest per book: %w", err))
	}

	return heads, nil
}

func (s *postgresStore) WithBookLock(ctx context.Context, bookID int64, fn func(Ledger) error) error {
	err := database.WithTransaction(ctx, s.pool, func(tx pgx.Tx) error {
		if s.lockTimeout > 0 {
			// SET does not take bind parameters
			stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("set lock timeout: %w", err)
			}
		}

		var lockedID int64
		if err := tx.QueryRow(ctx, lockBookSQL, bookID).Scan(&lockedID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return model.NewBookNotFoundError(bookID)
			}
			return fmt.Errorf("lock book: %w", err)
		}

		return fn(&pgLedger{bookID: bookID, q: tx})
	})
	return TranslateError(err)
}

// pgLedger runs ledger statements on the locked transaction
type pgLedger struct {
	bookID int64
	q      querier
}

func (l *pgLedger) BookID() int64 { return l.bookID }

func (l *pgLedger) Latest(ctx context.Context) (*model.LeaseRecord, error) {
	return latest(ctx, l.q, l.bookID)
}

func (l *pgLedger) Append(ctx context.Context, holderID string, leasedAt time.Time) (*model.LeaseRecord, error) {
	return insertLease(ctx, l.q, l.bookID, holderID, leasedAt)
}

func (l *pgLedger) MarkReturned(ctx context.Context, recordID int64, returnedAt time.Time) (*model.LeaseRecord, error) {
	return markReturned(ctx, l.q, recordID, returnedAt)
}

// ════════════════════════════════════════════════════════════════
// STATEMENTS
// ════════════════════════════════════════════════════════════════

func latest(ctx context.Context, q querier, bookID int64) (*model.LeaseRecord, error) {
	query, args, err := latestLeaseSQL(bookID)
	if err != nil {
		return nil, fmt.Errorf("build latest query: %w", err)
	}

	rec, err := scanLease(q.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest lease: %w", err)
	}
	return rec, nil
}

func insertLease(ctx context.Context, q querier, bookID int64, holderID string, leasedAt time.Time) (*model.LeaseRecord, error) {
	rec, err := scanLease(q.QueryRow(ctx, insertLeaseSQL, bookID, holderID, leasedAt.UTC()))
	if err != nil {
		return nil, fmt.Errorf("insert lease: %w", err)
	}
	return rec, nil
}

func markReturned(ctx context.Context, q querier, recordID int64, returnedAt time.Time) (*model.LeaseRecord, error) {
	rec, err := scanLease(q.QueryRow(ctx, markReturnedSQL, recordID, returnedAt.UTC()))
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("mark returned: %w", err)
	}

	// nothing updated: either unknown id or already returned
	var exists bool
	if err := q.QueryRow(ctx, leaseExistsSQL, recordID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check lease: %w", err)
	}
	if !exists {
		return nil, model.NewLeaseNotFoundError(recordID)
	}
	return nil, model.NewAlreadyReturnedError(recordID)
}

func scanLease(row pgx.Row) (*model.LeaseRecord, error) {
	var rec model.LeaseRecord
	if err := row.Scan(&rec.ID, &rec.BookID, &rec.HolderID, &rec.LeasedAt, &rec.ReturnedAt); err != nil {
		return nil, err
	}
	return &rec, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
