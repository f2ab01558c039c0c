package txmanager

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/m04kA/SMC-ParkingService/pkg/dbmetrics"
	"github.com/m04kA/SMC-ParkingService/pkg/pqerr"
)

// DefaultMaxRetries attempts of a serializable transaction before giving up
const DefaultMaxRetries = 3

// ErrTxBegin, ErrTxCommit are wrapped around driver errors
var (
	ErrTxBegin  = errors.New("txmanager: failed to begin transaction")
	ErrTxCommit = errors.New("txmanager: failed to commit transaction")
	// ErrRetriesExhausted serializable transaction kept conflicting with concurrent ones
	ErrRetriesExhausted = errors.New("txmanager: serialization retries exhausted")
)

// TxBeginner satisfied by *dbmetrics.DB
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (dbmetrics.TxExecutor, error)
}

// TransactionManager runs callbacks inside a transaction carried by the context.
// Nested calls reuse the outer transaction.
type TransactionManager struct {
	db         TxBeginner
	maxRetries int
}

// NewTransactionManager creates a manager with DefaultMaxRetries
func NewTransactionManager(db TxBeginner) *TransactionManager {
	return &TransactionManager{db: db, maxRetries: DefaultMaxRetries}
}

// WithMaxRetries overrides the number of serializable attempts
func (m *TransactionManager) WithMaxRetries(n int) *TransactionManager {
	if n > 0 {
		m.maxRetries = n
	}
	return m
}

// Do runs fn in a read committed transaction
func (m *TransactionManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.run(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted}, fn)
}

// DoSerializable runs fn in a serializable transaction, retrying on serialization failures
func (m *TransactionManager) DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error {
	if dbmetrics.IsInTransaction(ctx) {
		return fn(ctx)
	}

	var lastErr error
	for attempt := 0; attempt < m.maxRetries; attempt++ {
		lastErr = m.run(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable}, fn)
		if lastErr == nil || !pqerr.IsRetryable(lastErr) {
			return lastErr
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return fmt.Errorf("%w: %v", ErrRetriesExhausted, lastErr)
}

// DoReadOnly runs fn in a read-only transaction
func (m *TransactionManager) DoReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.run(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted, ReadOnly: true}, fn)
}

func (m *TransactionManager) run(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context) error) (err error) {
	if dbmetrics.IsInTransaction(ctx) {
		return fn(ctx)
	}

	tx, err := m.db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTxBegin, err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(dbmetrics.WithTx(ctx, tx)); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		// serialization failures can surface at commit time
		if pqerr.IsRetryable(err) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrTxCommit, err)
	}
	return nil
}
