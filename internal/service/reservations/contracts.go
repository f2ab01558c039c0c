package reservations

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/m04kA/SMC-ParkingService/internal/domain"
	"github.com/m04kA/SMC-ParkingService/internal/infra/storage/reservation"
	"github.com/m04kA/SMC-ParkingService/internal/service/availability"
	"github.com/m04kA/SMC-ParkingService/internal/service/payments"
)

// ReservationRepository reservation writes
type ReservationRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Reservation, error)
	FindByFilter(ctx context.Context, filter domain.ReservationsFilter) ([]*domain.Reservation, error)
	Transition(ctx context.Context, res *domain.Reservation, upd reservation.StatusUpdate) error
	SetPaymentRef(ctx context.Context, res *domain.Reservation, paymentRef string) error
	ApplyExtension(ctx context.Context, res *domain.Reservation, newEnd time.Time, newPrice domain.PriceBreakdown, captured domain.Money, reviewDeadline, now time.Time) error
	InsertExtension(ctx context.Context, ext *domain.ReservationExtension) error
}

// AvailabilityChecker delta checks on extension
type AvailabilityChecker interface {
	IsAvailable(ctx context.Context, spotID uuid.UUID, interval domain.Interval, opts availability.Options) (availability.Result, error)
}

// PaymentOrchestrator payment saga
type PaymentOrchestrator interface {
	Begin(ctx context.Context, req payments.BeginRequest) (*domain.PaymentOperation, error)
	Authorize(ctx context.Context, op *domain.PaymentOperation, req payments.AuthorizeRequest) (*payments.Outcome, error)
	CapturedAmount(ctx context.Context, paymentRef string) (domain.Money, error)
	Refund(ctx context.Context, op *domain.PaymentOperation) (string, error)
	Void(ctx context.Context, op *domain.PaymentOperation) error
	Compensate(ctx context.Context, op *domain.PaymentOperation) error
	MarkApplied(ctx context.Context, op *domain.PaymentOperation) error
	Inconsistent(op *domain.PaymentOperation, cause error) error
}

// TransactionManager transaction boundaries
type TransactionManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
	DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error
	DoReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
}

// Metrics transition counter
type Metrics interface {
	IncTransition(from, to string)
}

// TimeProvider current time source
type TimeProvider interface {
	Now() time.Time
}

// RealTimeProvider wall clock
type RealTimeProvider struct{}

func (p *RealTimeProvider) Now() time.Time {
	return time.Now().UTC()
}

// Logger logging interface
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
