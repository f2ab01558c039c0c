package refund_reservation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/m04kA/SMC-ParkingService/internal/domain"
	"github.com/m04kA/SMC-ParkingService/internal/service/reservations"
)

type ReservationRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Reservation, error)
}

type ReservationService interface {
	Reverse(ctx context.Context, res *domain.Reservation, req reservations.ReverseRequest) (*domain.Reservation, error)
}

type Notifier interface {
	NotifyClaimant(ctx context.Context, res *domain.Reservation, t domain.NotificationType, title, message string)
}

type TimeProvider interface {
	Now() time.Time
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

type RealTimeProvider struct{}

func (p *RealTimeProvider) Now() time.Time {
	return time.Now().UTC()
}
