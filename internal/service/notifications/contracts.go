package notifications

import (
	"context"

	"github.com/google/uuid"

	"github.com/m04kA/SMC-ParkingService/internal/domain"
)

// Repository notification log
type Repository interface {
	Insert(ctx context.Context, n *domain.Notification) (bool, error)
	Exists(ctx context.Context, t domain.NotificationType, relatedID uuid.UUID) (bool, error)
}

// Publisher outbound notification sink
type Publisher interface {
	Publish(ctx context.Context, n *domain.Notification) error
}

// Logger logging interface
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
