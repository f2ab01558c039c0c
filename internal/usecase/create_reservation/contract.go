package create_reservation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/m04kA/SMC-ParkingService/internal/domain"
	"github.com/m04kA/SMC-ParkingService/internal/service/availability"
	"github.com/m04kA/SMC-ParkingService/internal/service/reservations"
)

// ReservationRepository reservation inserts
type ReservationRepository interface {
	Create(ctx context.Context, res *domain.Reservation) (*domain.Reservation, error)
}

// HoldRepository hold consumed by the reservation
type HoldRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Hold, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// SpotRepository spot lookup
type SpotRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ParkingSpot, error)
}

// AvailabilityChecker in-transaction availability check
type AvailabilityChecker interface {
	IsAvailable(ctx context.Context, spotID uuid.UUID, interval domain.Interval, opts availability.Options) (availability.Result, error)
}

// ReservationService payment commit of held reservations
type ReservationService interface {
	Commit(ctx context.Context, res *domain.Reservation, req reservations.CommitRequest) (*reservations.CommitResult, error)
}

// Notifier best effort notifications
type Notifier interface {
	NotifyOwner(ctx context.Context, res *domain.Reservation, t domain.NotificationType, title, message string)
	NotifyClaimant(ctx context.Context, res *domain.Reservation, t domain.NotificationType, title, message string)
}

// TransactionManager transaction boundaries
type TransactionManager interface {
	DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error
}

// Metrics reservation transitions, creation counts as "" -> status
type Metrics interface {
	IncTransition(from, to string)
}

// TimeProvider current time source
type TimeProvider interface {
	Now() time.Time
}

// Logger logging interface
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// RealTimeProvider wall clock
type RealTimeProvider struct{}

func (p *RealTimeProvider) Now() time.Time {
	return time.Now().UTC()
}
