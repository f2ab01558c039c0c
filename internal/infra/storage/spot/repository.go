package spot

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/m04kA/SMC-ParkingService/internal/domain"
	"github.com/m04kA/SMC-ParkingService/pkg/dbmetrics"
	"github.com/m04kA/SMC-ParkingService/pkg/psqlbuilder"
)

// Repository read access to parking spots and their calendar blocks.
// Listing management owns writes to these tables.
type Repository struct {
	db DBExecutor
}

// NewRepository creates the repository
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// GetByID loads a spot. Inside a transaction the row is locked FOR SHARE so the
// rate and booking mode cannot change under a running checkout.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ParkingSpot, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	builder := psqlbuilder.Select(
		"id",
		"owner_id",
		"title",
		"hourly_rate_cents",
		"instant_book",
		"has_ev_charging",
		"ev_premium_cents",
		"is_active",
		"created_at",
		"updated_at",
	).
		From("parking_spots").
		Where(squirrel.Eq{"id": id})

	if dbmetrics.IsInTransaction(ctx) {
		builder = builder.Suffix("FOR SHARE")
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - build select query: %v", ErrBuildQuery, err)
	}

	var s domain.ParkingSpot
	err = executor.QueryRowContext(ctx, query, args...).Scan(
		&s.ID,
		&s.OwnerID,
		&s.Title,
		&s.HourlyRate,
		&s.InstantBook,
		&s.HasEVCharging,
		&s.EVPremium,
		&s.IsActive,
		&s.CreatedAt,
		&s.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrSpotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - scan spot: %v", ErrScanRow, err)
	}

	return &s, nil
}

// GetCalendarBlocks blocks on any UTC day touched by the interval
func (r *Repository) GetCalendarBlocks(ctx context.Context, spotID uuid.UUID, interval domain.Interval) ([]*domain.CalendarBlock, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	days := interval.Days()
	dayArgs := make([]string, len(days))
	for i, d := range days {
		dayArgs[i] = d.Format("2006-01-02")
	}

	query, args, err := psqlbuilder.Select(
		"id",
		"spot_id",
		"block_date",
		"full_day",
		"starts_at",
		"ends_at",
		"reason",
		"created_at",
	).
		From("spot_calendar_blocks").
		Where(squirrel.Eq{"spot_id": spotID}).
		Where(squirrel.Eq{"block_date": dayArgs}).
		OrderBy("block_date ASC").
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: GetCalendarBlocks - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: GetCalendarBlocks - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	blocks := make([]*domain.CalendarBlock, 0)
	for rows.Next() {
		var b domain.CalendarBlock
		if err := rows.Scan(
			&b.ID,
			&b.SpotID,
			&b.Date,
			&b.FullDay,
			&b.StartsAt,
			&b.EndsAt,
			&b.Reason,
			&b.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("%w: GetCalendarBlocks - scan block: %v", ErrScanRow, err)
		}
		blocks = append(blocks, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: GetCalendarBlocks - rows iteration: %v", ErrScanRow, err)
	}

	return blocks, nil
}
