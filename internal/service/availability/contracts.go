package availability

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/m04kA/SMC-ParkingService/internal/domain"
)

// ReservationRepository reservation range queries
type ReservationRepository interface {
	FindByFilter(ctx context.Context, filter domain.ReservationsFilter) ([]*domain.Reservation, error)
}

// HoldRepository live hold lookup
type HoldRepository interface {
	FindLiveOverlapping(ctx context.Context, spotID uuid.UUID, interval domain.Interval, now time.Time, excludeClaimantID *uuid.UUID) ([]*domain.Hold, error)
}

// CalendarRepository owner calendar blocks
type CalendarRepository interface {
	GetCalendarBlocks(ctx context.Context, spotID uuid.UUID, interval domain.Interval) ([]*domain.CalendarBlock, error)
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
