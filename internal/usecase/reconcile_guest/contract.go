package reconcile_guest

import (
	"context"

	"github.com/google/uuid"
)

type ReservationRepository interface {
	LinkGuest(ctx context.Context, userID uuid.UUID, normalizedEmail, phoneSuffix string) ([]uuid.UUID, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
