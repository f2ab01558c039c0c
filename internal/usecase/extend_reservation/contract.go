package extend_reservation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/m04kA/SMC-ParkingService/internal/domain"
	"github.com/m04kA/SMC-ParkingService/internal/service/availability"
	"github.com/m04kA/SMC-ParkingService/internal/service/payments"
	"github.com/m04kA/SMC-ParkingService/internal/service/reservations"
)

// ReservationRepository reservation lookup
type ReservationRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Reservation, error)
}

// AvailabilityChecker delta availability
type AvailabilityChecker interface {
	IsAvailable(ctx context.Context, spotID uuid.UUID, interval domain.Interval, opts availability.Options) (availability.Result, error)
}

// PaymentOrchestrator authorization of the extension amount
type PaymentOrchestrator interface {
	Begin(ctx context.Context, req payments.BeginRequest) (*domain.PaymentOperation, error)
	Authorize(ctx context.Context, op *domain.PaymentOperation, req payments.AuthorizeRequest) (*payments.Outcome, error)
}

// ReservationService pricing and application of the extension
type ReservationService interface {
	ExtensionPrice(res *domain.Reservation, delta domain.Interval) domain.PriceBreakdown
	Apply(ctx context.Context, op *domain.PaymentOperation, opts reservations.ApplyOptions) (*domain.Reservation, error)
}

// Notifier best effort notifications
type Notifier interface {
	NotifyOwner(ctx context.Context, res *domain.Reservation, t domain.NotificationType, title, message string)
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
