package create_hold

import (
	"time"

	"github.com/google/uuid"

	"github.com/m04kA/SMC-ParkingService/internal/domain"
)

// Request hold a spot interval during checkout
type Request struct {
	ClaimantID     uuid.UUID
	SpotID         uuid.UUID
	Start          time.Time
	End            time.Time
	IdempotencyKey string
}

// Result conflict is an outcome: Hold is nil and Reason says what blocked the interval
type Result struct {
	Hold     *domain.Hold
	Conflict bool
	Reason   string
	Replayed bool
}

// Options booking limits
type Options struct {
	TTL         time.Duration
	MinDuration time.Duration
	MaxDuration time.Duration
}

// DefaultOptions 10 minute holds, 30 minutes to 30 days
func DefaultOptions() Options {
	return Options{
		TTL:         domain.DefaultHoldTTL,
		MinDuration: domain.DefaultMinBookingDuration,
		MaxDuration: domain.DefaultMaxBookingDuration,
	}
}
