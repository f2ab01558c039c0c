package notification

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

// Repository notification log, also the dedup guard for reminders
type Repository struct {
	db DBExecutor
}

// NewRepository creates the repository
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// Insert stores a notification. For reminder types the partial unique index on
// (type, related_id) makes the insert a no-op when one already exists; the
// returned flag reports whether a row was written.
func (r *Repository) Insert(ctx context.Context, n *domain.Notification) (bool, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}

	builder := psqlbuilder.Insert("notifications").
		Columns("id", "user_id", "recipient_email", "type", "title", "message", "related_id").
		Values(n.ID, n.UserID, n.RecipientEmail, n.Type, n.Title, n.Message, n.RelatedID)

	if n.Type.IsReminder() {
		builder = builder.Suffix(
			"ON CONFLICT (type, related_id) WHERE type IN ('approval_reminder', 'payment_reminder') DO NOTHING RETURNING created_at",
		)
	} else {
		builder = builder.Suffix("RETURNING created_at")
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return false, fmt.Errorf("%w: Insert - build insert query: %v", ErrBuildQuery, err)
	}

	err = executor.QueryRowContext(ctx, query, args...).Scan(&n.CreatedAt)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: Insert - execute insert: %v", ErrExecQuery, err)
	}
	return true, nil
}

// Exists reports whether a notification of type t was already recorded for relatedID
func (r *Repository) Exists(ctx context.Context, t domain.NotificationType, relatedID uuid.UUID) (bool, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("1").
		Prefix("SELECT EXISTS (").
		From("notifications").
		Where(squirrel.Eq{"type": t, "related_id": relatedID}).
		Suffix(")").
		ToSql()

	if err != nil {
		return false, fmt.Errorf("%w: Exists - build select query: %v", ErrBuildQuery, err)
	}

	var exists bool
	if err := executor.QueryRowContext(ctx, query, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("%w: Exists - execute query: %v", ErrExecQuery, err)
	}
	return exists, nil
}
