package txmanager

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-ParkingService/pkg/dbmetrics"
)

type fakeTx struct {
	committed  bool
	rolledBack bool
	commitErr  error
}

func (t *fakeTx) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return nil, nil
}

func (t *fakeTx) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return nil, nil
}

func (t *fakeTx) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return nil
}

func (t *fakeTx) Commit() error {
	t.committed = true
	return t.commitErr
}

func (t *fakeTx) Rollback() error {
	t.rolledBack = true
	return nil
}

type fakeDB struct {
	txs       []*fakeTx
	opts      []*sql.TxOptions
	commitErr []error
}

func (d *fakeDB) BeginTx(ctx context.Context, opts *sql.TxOptions) (dbmetrics.TxExecutor, error) {
	tx := &fakeTx{}
	if len(d.commitErr) > 0 {
		tx.commitErr, d.commitErr = d.commitErr[0], d.commitErr[1:]
	}
	d.txs = append(d.txs, tx)
	d.opts = append(d.opts, opts)
	return tx, nil
}

func TestDo_CommitsAndRollsBack(t *testing.T) {
	db := &fakeDB{}
	m := NewTransactionManager(db)

	require.NoError(t, m.Do(context.Background(), func(ctx context.Context) error {
		assert.True(t, dbmetrics.IsInTransaction(ctx))
		return nil
	}))
	require.Len(t, db.txs, 1)
	assert.True(t, db.txs[0].committed)
	assert.Equal(t, sql.LevelReadCommitted, db.opts[0].Isolation)

	boom := errors.New("boom")
	err := m.Do(context.Background(), func(ctx context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
	require.Len(t, db.txs, 2)
	assert.True(t, db.txs[1].rolledBack)
	assert.False(t, db.txs[1].committed)
}

func TestDo_NestedCallsReuseTransaction(t *testing.T) {
	db := &fakeDB{}
	m := NewTransactionManager(db)

	err := m.DoSerializable(context.Background(), func(ctx context.Context) error {
		return m.Do(ctx, func(ctx context.Context) error { return nil })
	})
	require.NoError(t, err)
	assert.Len(t, db.txs, 1)
	assert.Equal(t, sql.LevelSerializable, db.opts[0].Isolation)
}

func TestDoSerializable_RetriesSerializationFailures(t *testing.T) {
	conflict := &pq.Error{Code: "40001"}
	db := &fakeDB{commitErr: []error{conflict, conflict}}
	m := NewTransactionManager(db)

	calls := 0
	err := m.DoSerializable(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	db = &fakeDB{commitErr: []error{conflict, conflict}}
	err = NewTransactionManager(db).WithMaxRetries(2).DoSerializable(context.Background(), func(ctx context.Context) error {
		return nil
	})
	assert.ErrorIs(t, err, ErrRetriesExhausted)
}

func TestDoReadOnly(t *testing.T) {
	db := &fakeDB{}
	require.NoError(t, NewTransactionManager(db).DoReadOnly(context.Background(), func(ctx context.Context) error { return nil }))
	require.Len(t, db.opts, 1)
	assert.True(t, db.opts[0].ReadOnly)
}
