package create_hold

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/m04kA/SMC-ParkingService/internal/domain"
	"github.com/m04kA/SMC-ParkingService/internal/service/availability"
)

// HoldRepository hold storage
type HoldRepository interface {
	Create(ctx context.Context, h *domain.Hold) (*domain.Hold, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*domain.Hold, error)
	PurgeExpired(ctx context.Context, spotID *uuid.UUID, now time.Time) (int64, error)
	DeleteClaimantOverlapping(ctx context.Context, spotID, claimantID uuid.UUID, interval domain.Interval) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// SpotRepository spot lookup
type SpotRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ParkingSpot, error)
}

// AvailabilityChecker availability pre-check
type AvailabilityChecker interface {
	IsAvailable(ctx context.Context, spotID uuid.UUID, interval domain.Interval, opts availability.Options) (availability.Result, error)
}

// TransactionManager transaction boundaries
type TransactionManager interface {
	DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error
}

// Metrics hold outcomes
type Metrics interface {
	IncHold(outcome string)
}

// TimeProvider current time source (replaced in tests)
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
