package database

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
	commitErr  error
}

func (t *fakeTx) Commit(ctx context.Context) error {
	t.committed = true
	return t.commitErr
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	t.rolledBack = true
	return nil
}

type fakeBeginner struct {
	tx       *fakeTx
	opts     pgx.TxOptions
	beginErr error
}

func (b *fakeBeginner) BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	b.opts = opts
	if b.beginErr != nil {
		return nil, b.beginErr
	}
	return b.tx, nil
}

func TestWithTransaction_CommitsOnSuccess(t *testing.T) {
	db := &fakeBeginner{tx: &fakeTx{}}

	err := WithTransaction(context.Background(), db, func(tx pgx.Tx) error { return nil })

	require.NoError(t, err)
	assert.True(t, db.tx.committed)
	assert.False(t, db.tx.rolledBack)
	assert.Equal(t, pgx.ReadCommitted, db.opts.IsoLevel)
}

func TestWithTransaction_RollsBackOnError(t *testing.T) {
	db := &fakeBeginner{tx: &fakeTx{}}
	boom := errors.New("boom")

	err := WithTransaction(context.Background(), db, func(tx pgx.Tx) error { return boom })

	assert.ErrorIs(t, err, boom)
	assert.False(t, db.tx.committed)
	assert.True(t, db.tx.rolledBack)
}

func TestWithTransaction_RollsBackOnPanic(t *testing.T) {
	db := &fakeBeginner{tx: &fakeTx{}}

	assert.Panics(t, func() {
		_ = WithTransaction(context.Background(), db, func(tx pgx.Tx) error { panic("kaboom") })
	})
	assert.True(t, db.tx.rolledBack)
}

func TestWithTransaction_BeginFailure(t *testing.T) {
	db := &fakeBeginner{beginErr: errors.New("pool exhausted")}

	err := WithTransaction(context.Background(), db, func(tx pgx.Tx) error {
		t.Fatal("fn must not run")
		return nil
	})

	assert.ErrorContains(t, err, "failed to begin transaction")
}

func TestWithTransaction_CommitFailureRollsBack(t *testing.T) {
	db := &fakeBeginner{tx: &fakeTx{commitErr: errors.New("serialization")}}

	err := WithTransaction(context.Background(), db, func(tx pgx.Tx) error { return nil })

	assert.ErrorContains(t, err, "failed to commit transaction")
	assert.True(t, db.tx.rolledBack)
}

func TestWithTransactionResult(t *testing.T) {
	db := &fakeBeginner{tx: &fakeTx{}}

	got, err := WithTransactionResult(context.Background(), db, func(tx pgx.Tx) (int, error) { return 42, nil })

	require.NoError(t, err)
	assert.Equal(t, 42, got)

	db = &fakeBeginner{tx: &fakeTx{}}
	got, err = WithTransactionResult(context.Background(), db, func(tx pgx.Tx) (int, error) {
		return 7, errors.New("nope")
	})
	assert.Error(t, err)
	assert.Zero(t, got)
}
