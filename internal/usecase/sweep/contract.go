package sweep

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/m04kA/SMC-ParkingService/internal/domain"
	"github.com/m04kA/SMC-ParkingService/internal/service/payments"
	"github.com/m04kA/SMC-ParkingService/internal/service/reservations"
)

type HoldRepository interface {
	PurgeExpired(ctx context.Context, spotID *uuid.UUID, now time.Time) (int64, error)
	DeleteByClaimantAndSpot(ctx context.Context, claimantID, spotID uuid.UUID) (int64, error)
}

type ReservationRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Reservation, error)
	ListReminderDue(ctx context.Context, now time.Time, fraction float64, limit int) ([]*domain.Reservation, error)
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*domain.Reservation, error)
	CompleteEnded(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
}

type PaymentOrchestrator interface {
	ListStale(ctx context.Context, now time.Time, grace time.Duration, limit int) ([]*domain.PaymentOperation, error)
	Finalize(ctx context.Context, op *domain.PaymentOperation, newCheckout bool) (*payments.Outcome, error)
	Refund(ctx context.Context, op *domain.PaymentOperation) (string, error)
	Void(ctx context.Context, op *domain.PaymentOperation) error
}

type ReservationService interface {
	Reverse(ctx context.Context, res *domain.Reservation, req reservations.ReverseRequest) (*domain.Reservation, error)
	Apply(ctx context.Context, op *domain.PaymentOperation, opts reservations.ApplyOptions) (*domain.Reservation, error)
	CancelForPaymentFailure(ctx context.Context, res *domain.Reservation) error
}

type Notifier interface {
	NotifyOnce(ctx context.Context, n *domain.Notification) (bool, error)
}

// CounterStore rate limit buckets
type CounterStore interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

type Metrics interface {
	IncSweeperRun(pass, result string)
	AddSweeperItems(pass, result string, n int)
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
