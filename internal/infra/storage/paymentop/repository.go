package paymentop

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/m04kA/SMC-ParkingService/internal/domain"
	"github.com/m04kA/SMC-ParkingService/pkg/dbmetrics"
	"github.com/m04kA/SMC-ParkingService/pkg/pqerr"
	"github.com/m04kA/SMC-ParkingService/pkg/psqlbuilder"
)

const table = "payment_operations"

var columns = []string{
	"id",
	"reservation_id",
	"kind",
	"status",
	"amount_cents",
	"payment_ref",
	"idempotency_key",
	"requested_ends_at",
	"target_status",
	"error",
	"created_at",
	"updated_at",
}

// Repository saga log of payment operations
type Repository struct {
	db DBExecutor
}

// NewRepository creates the repository
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// Create records a saga step before the payment authority is called
func (r *Repository) Create(ctx context.Context, op *domain.PaymentOperation) (*domain.PaymentOperation, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	if op.ID == uuid.Nil {
		op.ID = uuid.New()
	}

	query, args, err := psqlbuilder.Insert(table).
		Columns("id", "reservation_id", "kind", "status", "amount_cents", "payment_ref", "idempotency_key", "requested_ends_at", "target_status").
		Values(op.ID, op.ReservationID, op.Kind, op.Status, op.Amount, op.PaymentRef, op.IdempotencyKey, op.RequestedEnd, op.TargetStatus).
		Suffix("RETURNING created_at, updated_at").
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: Create - build insert query: %v", ErrBuildQuery, err)
	}

	if err := executor.QueryRowContext(ctx, query, args...).Scan(&op.CreatedAt, &op.UpdatedAt); err != nil {
		if pqerr.IsUniqueViolation(err) {
			return nil, ErrDuplicateIdempotencyKey
		}
		return nil, fmt.Errorf("%w: Create - execute insert: %v", ErrExecQuery, err)
	}

	return op, nil
}

// GetByID loads an operation, locked FOR UPDATE inside a transaction
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*domain.PaymentOperation, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id}, "GetByID")
}

// GetByIdempotencyKey loads the operation started with key
func (r *Repository) GetByIdempotencyKey(ctx context.Context, key string) (*domain.PaymentOperation, error) {
	return r.getOne(ctx, squirrel.Eq{"idempotency_key": key}, "GetByIdempotencyKey")
}

// GetByPaymentRef latest operation recorded for the payment reference
func (r *Repository) GetByPaymentRef(ctx context.Context, paymentRef string) (*domain.PaymentOperation, error) {
	return r.getOne(ctx, squirrel.Eq{"payment_ref": paymentRef}, "GetByPaymentRef")
}

func (r *Repository) getOne(ctx context.Context, where squirrel.Sqlizer, op string) (*domain.PaymentOperation, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	builder := psqlbuilder.Select(columns...).
		From(table).
		Where(where).
		OrderBy("created_at DESC").
		Limit(1)

	if dbmetrics.IsInTransaction(ctx) {
		builder = builder.Suffix("FOR UPDATE")
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %s - build select query: %v", ErrBuildQuery, op, err)
	}

	res, err := scanOperation(executor.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, ErrOperationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s - scan operation: %v", ErrScanRow, op, err)
	}
	return res, nil
}

// UpdateStatus moves the operation from its current status to next.
// paymentRef and errMsg are written when not nil.
func (r *Repository) UpdateStatus(ctx context.Context, op *domain.PaymentOperation, next domain.PaymentOperationStatus, paymentRef, errMsg *string) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	builder := psqlbuilder.Update(table).
		Set("status", next).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": op.ID}).
		Where(squirrel.Eq{"status": op.Status})

	if paymentRef != nil {
		builder = builder.Set("payment_ref", *paymentRef)
	}
	if errMsg != nil {
		builder = builder.Set("error", *errMsg)
	}

	query, args, err := builder.Suffix("RETURNING updated_at").ToSql()
	if err != nil {
		return fmt.Errorf("%w: UpdateStatus - build update query: %v", ErrBuildQuery, err)
	}

	var updatedAt time.Time
	err = executor.QueryRowContext(ctx, query, args...).Scan(&updatedAt)
	if err == sql.ErrNoRows {
		return ErrStatusChanged
	}
	if err != nil {
		return fmt.Errorf("%w: UpdateStatus - execute update: %v", ErrExecQuery, err)
	}

	op.Status = next
	op.UpdatedAt = updatedAt
	if paymentRef != nil {
		op.PaymentRef = paymentRef
	}
	if errMsg != nil {
		op.Error = errMsg
	}
	return nil
}

// ListStale operations stuck in one of statuses since before olderThan
func (r *Repository) ListStale(ctx context.Context, statuses []domain.PaymentOperationStatus, olderThan time.Time, limit int) ([]*domain.PaymentOperation, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	raw := make([]string, len(statuses))
	for i, s := range statuses {
		raw[i] = string(s)
	}

	query, args, err := psqlbuilder.Select(columns...).
		From(table).
		Where(squirrel.Eq{"status": raw}).
		Where(squirrel.LtOrEq{"updated_at": olderThan}).
		OrderBy("updated_at ASC").
		Limit(uint64(limit)).
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: ListStale - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: ListStale - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	ops := make([]*domain.PaymentOperation, 0)
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: ListStale - scan operation: %v", ErrScanRow, err)
		}
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: ListStale - rows iteration: %v", ErrScanRow, err)
	}
	return ops, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOperation(row rowScanner) (*domain.PaymentOperation, error) {
	var op domain.PaymentOperation
	if err := row.Scan(
		&op.ID,
		&op.ReservationID,
		&op.Kind,
		&op.Status,
		&op.Amount,
		&op.PaymentRef,
		&op.IdempotencyKey,
		&op.RequestedEnd,
		&op.TargetStatus,
		&op.Error,
		&op.CreatedAt,
		&op.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &op, nil
}
