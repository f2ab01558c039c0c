package hold

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

const (
	table                    = "spot_holds"
	idempotencyKeyConstraint = "spot_holds_idempotency_key_key"
)

var columns = []string{
	"id",
	"spot_id",
	"claimant_id",
	"starts_at",
	"ends_at",
	"idempotency_key",
	"expires_at",
	"created_at",
}

// Repository spot holds storage
type Repository struct {
	db DBExecutor
}

// NewRepository creates the repository
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// Create inserts a hold. The exclusion constraint rejects overlapping holds on the
// same spot, callers purge expired holds first in the same transaction.
func (r *Repository) Create(ctx context.Context, h *domain.Hold) (*domain.Hold, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}

	query, args, err := psqlbuilder.Insert(table).
		Columns("id", "spot_id", "claimant_id", "starts_at", "ends_at", "idempotency_key", "expires_at").
		Values(h.ID, h.SpotID, h.ClaimantID, h.Interval.Start, h.Interval.End, h.IdempotencyKey, h.ExpiresAt).
		Suffix("RETURNING created_at").
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: Create - build insert query: %v", ErrBuildQuery, err)
	}

	if err := executor.QueryRowContext(ctx, query, args...).Scan(&h.CreatedAt); err != nil {
		switch {
		case pqerr.IsExclusionViolation(err):
			return nil, ErrOverlap
		case pqerr.IsUniqueViolation(err) && pqerr.Constraint(err) == idempotencyKeyConstraint:
			return nil, ErrDuplicateIdempotencyKey
		}
		return nil, fmt.Errorf("%w: Create - execute insert: %v", ErrExecQuery, err)
	}

	return h, nil
}

// GetByID loads a hold, expired or not
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Hold, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id}, "GetByID")
}

// GetByIdempotencyKey loads the hold created by an earlier request with the same key
func (r *Repository) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Hold, error) {
	return r.getOne(ctx, squirrel.Eq{"idempotency_key": key}, "GetByIdempotencyKey")
}

func (r *Repository) getOne(ctx context.Context, where squirrel.Sqlizer, op string) (*domain.Hold, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(columns...).
		From(table).
		Where(where).
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: %s - build select query: %v", ErrBuildQuery, op, err)
	}

	h, err := scanHold(executor.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, ErrHoldNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s - scan hold: %v", ErrScanRow, op, err)
	}

	return h, nil
}

// FindLiveOverlapping non-expired holds on the spot overlapping interval.
// Expiry is compared with now so a hold past expiry counts as absent even before it is purged.
func (r *Repository) FindLiveOverlapping(ctx context.Context, spotID uuid.UUID, interval domain.Interval, now time.Time, excludeClaimantID *uuid.UUID) ([]*domain.Hold, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	builder := psqlbuilder.Select(columns...).
		From(table).
		Where(squirrel.Eq{"spot_id": spotID}).
		Where(squirrel.Gt{"expires_at": now}).
		Where(squirrel.Lt{"starts_at": interval.End}).
		Where(squirrel.Gt{"ends_at": interval.Start})

	if excludeClaimantID != nil {
		builder = builder.Where(squirrel.NotEq{"claimant_id": *excludeClaimantID})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: FindLiveOverlapping - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: FindLiveOverlapping - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	holds := make([]*domain.Hold, 0)
	for rows.Next() {
		h, err := scanHold(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: FindLiveOverlapping - scan hold: %v", ErrScanRow, err)
		}
		holds = append(holds, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: FindLiveOverlapping - rows iteration: %v", ErrScanRow, err)
	}

	return holds, nil
}

// PurgeExpired deletes expired holds, for one spot or for all when spotID is nil
func (r *Repository) PurgeExpired(ctx context.Context, spotID *uuid.UUID, now time.Time) (int64, error) {
	builder := psqlbuilder.Delete(table).
		Where(squirrel.LtOrEq{"expires_at": now})

	if spotID != nil {
		builder = builder.Where(squirrel.Eq{"spot_id": *spotID})
	}

	return r.execDelete(ctx, builder, "PurgeExpired")
}

// DeleteClaimantOverlapping removes the claimant's own holds overlapping interval, so a retry
// with a new key replaces the earlier attempt instead of conflicting with it
func (r *Repository) DeleteClaimantOverlapping(ctx context.Context, spotID, claimantID uuid.UUID, interval domain.Interval) (int64, error) {
	builder := psqlbuilder.Delete(table).
		Where(squirrel.Eq{"spot_id": spotID}).
		Where(squirrel.Eq{"claimant_id": claimantID}).
		Where(squirrel.Lt{"starts_at": interval.End}).
		Where(squirrel.Gt{"ends_at": interval.Start})

	return r.execDelete(ctx, builder, "DeleteClaimantOverlapping")
}

// DeleteByClaimantAndSpot removes every hold of the claimant on the spot
func (r *Repository) DeleteByClaimantAndSpot(ctx context.Context, claimantID, spotID uuid.UUID) (int64, error) {
	builder := psqlbuilder.Delete(table).
		Where(squirrel.Eq{"spot_id": spotID}).
		Where(squirrel.Eq{"claimant_id": claimantID})

	return r.execDelete(ctx, builder, "DeleteByClaimantAndSpot")
}

// Delete removes a hold by id
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	affected, err := r.execDelete(ctx, psqlbuilder.Delete(table).Where(squirrel.Eq{"id": id}), "Delete")
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrHoldNotFound
	}
	return nil
}

func (r *Repository) execDelete(ctx context.Context, builder squirrel.DeleteBuilder, op string) (int64, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := builder.ToSql()
	if err != nil {
		return 0, fmt.Errorf("%w: %s - build delete query: %v", ErrBuildQuery, op, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%w: %s - execute delete: %v", ErrExecQuery, op, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %s - get rows affected: %v", ErrExecQuery, op, err)
	}
	return affected, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanHold(row rowScanner) (*domain.Hold, error) {
	var h domain.Hold
	var start, end time.Time

	if err := row.Scan(
		&h.ID,
		&h.SpotID,
		&h.ClaimantID,
		&start,
		&end,
		&h.IdempotencyKey,
		&h.ExpiresAt,
		&h.CreatedAt,
	); err != nil {
		return nil, err
	}

	h.Interval = domain.Interval{Start: start.UTC(), End: end.UTC()}
	return &h, nil
}
