package approve_reservation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/m04kA/SMC-ParkingService/internal/domain"
	"github.com/m04kA/SMC-ParkingService/internal/infra/storage/reservation"
	"github.com/m04kA/SMC-ParkingService/internal/service/availability"
	"github.com/m04kA/SMC-ParkingService/internal/service/reservations"
)

type ReservationRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Reservation, error)
}

type AvailabilityChecker interface {
	IsAvailable(ctx context.Context, spotID uuid.UUID, interval domain.Interval, opts availability.Options) (availability.Result, error)
}

// ReservationService status changes and payment of reservations
type ReservationService interface {
	Transition(ctx context.Context, res *domain.Reservation, upd reservation.StatusUpdate) error
	Commit(ctx context.Context, res *domain.Reservation, req reservations.CommitRequest) (*reservations.CommitResult, error)
	Reverse(ctx context.Context, res *domain.Reservation, req reservations.ReverseRequest) (*domain.Reservation, error)
}

type Notifier interface {
	NotifyClaimant(ctx context.Context, res *domain.Reservation, t domain.NotificationType, title, message string)
}

type TransactionManager interface {
	DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error
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
