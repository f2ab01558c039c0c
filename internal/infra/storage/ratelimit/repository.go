package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/m04kA/SMC-ParkingService/pkg/dbmetrics"
	"github.com/m04kA/SMC-ParkingService/pkg/psqlbuilder"
)

// incrementQuery bumps the current bucket and reads the previous one in a single round trip
const incrementQuery = `
WITH cur AS (
	INSERT INTO rate_limit_counters (key, window_start, count, expires_at)
	VALUES ($1, $2, 1, $3)
	ON CONFLICT (key, window_start) DO UPDATE SET count = rate_limit_counters.count + 1
	RETURNING count
)
SELECT
	cur.count,
	COALESCE((SELECT p.count FROM rate_limit_counters p WHERE p.key = $1 AND p.window_start = $4), 0)
FROM cur`

// Repository fixed-window counters backing the sliding window estimate
type Repository struct {
	db DBExecutor
}

// NewRepository creates the repository
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// CheckAndIncrement counts one request in the bucket starting at windowStart and
// returns it together with the bucket that precedes it
func (r *Repository) CheckAndIncrement(ctx context.Context, key string, windowStart time.Time, window time.Duration) (current, previous int, err error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	prevStart := windowStart.Add(-window)
	// the bucket must outlive the next window, which reads it as "previous"
	expiresAt := windowStart.Add(2 * window)

	err = executor.QueryRowContext(ctx, incrementQuery, key, windowStart, expiresAt, prevStart).Scan(&current, &previous)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: CheckAndIncrement - key %s: %v", ErrExecQuery, key, err)
	}
	return current, previous, nil
}

// Release takes one request back out of the bucket starting at windowStart
func (r *Repository) Release(ctx context.Context, key string, windowStart time.Time) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update("rate_limit_counters").
		Set("count", squirrel.Expr("count - 1")).
		Where(squirrel.Eq{"key": key, "window_start": windowStart}).
		Where(squirrel.Gt{"count": 0}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: Release - build update query: %v", ErrBuildQuery, err)
	}

	if _, err := executor.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: Release - key %s: %v", ErrExecQuery, key, err)
	}
	return nil
}

// PurgeExpired removes buckets nobody reads anymore
func (r *Repository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Delete("rate_limit_counters").
		Where(squirrel.LtOrEq{"expires_at": now}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%w: PurgeExpired - build delete query: %v", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%w: PurgeExpired - execute delete: %v", ErrExecQuery, err)
	}
	return result.RowsAffected()
}
