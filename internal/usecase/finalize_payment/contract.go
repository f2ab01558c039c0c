package finalize_payment

import (
	"context"

	"github.com/google/uuid"

	"github.com/m04kA/SMC-ParkingService/internal/domain"
	"github.com/m04kA/SMC-ParkingService/internal/service/payments"
	"github.com/m04kA/SMC-ParkingService/internal/service/reservations"
)

type ReservationRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Reservation, error)
}

type PaymentOrchestrator interface {
	GetByPaymentRef(ctx context.Context, paymentRef string) (*domain.PaymentOperation, error)
	Finalize(ctx context.Context, op *domain.PaymentOperation, newCheckout bool) (*payments.Outcome, error)
}

type ReservationService interface {
	Apply(ctx context.Context, op *domain.PaymentOperation, opts reservations.ApplyOptions) (*domain.Reservation, error)
	CancelForPaymentFailure(ctx context.Context, res *domain.Reservation) error
}

type Notifier interface {
	NotifyOwner(ctx context.Context, res *domain.Reservation, t domain.NotificationType, title, message string)
	NotifyClaimant(ctx context.Context, res *domain.Reservation, t domain.NotificationType, title, message string)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
