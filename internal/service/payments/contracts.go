package payments

import (
	"context"
	"time"

	"github.com/m04kA/SMC-ParkingService/internal/domain"
	"github.com/m04kA/SMC-ParkingService/internal/integrations/payment"
)

// PaymentClient payment authority
type PaymentClient interface {
	CreateAuthorization(ctx context.Context, req payment.AuthorizationRequest, idempotencyKey string) (*payment.Authorization, error)
	GetAuthorization(ctx context.Context, paymentRef string) (*payment.Authorization, error)
	FindByIdempotencyKey(ctx context.Context, idempotencyKey string) (*payment.Authorization, error)
	Capture(ctx context.Context, paymentRef string, amount int64, idempotencyKey string) (*payment.Authorization, error)
	Cancel(ctx context.Context, paymentRef string, idempotencyKey string) (*payment.Authorization, error)
	CreateRefund(ctx context.Context, paymentRef string, amount int64, idempotencyKey string) (*payment.Refund, error)
}

// OperationRepository saga log
type OperationRepository interface {
	Create(ctx context.Context, op *domain.PaymentOperation) (*domain.PaymentOperation, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*domain.PaymentOperation, error)
	GetByPaymentRef(ctx context.Context, paymentRef string) (*domain.PaymentOperation, error)
	UpdateStatus(ctx context.Context, op *domain.PaymentOperation, next domain.PaymentOperationStatus, paymentRef, errMsg *string) error
	ListStale(ctx context.Context, statuses []domain.PaymentOperationStatus, olderThan time.Time, limit int) ([]*domain.PaymentOperation, error)
}

// Metrics payment counters
type Metrics interface {
	IncPayment(operation, outcome string)
	IncInconsistency(kind string)
}

// Logger logging interface
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
