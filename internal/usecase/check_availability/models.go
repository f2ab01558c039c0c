package check_availability

import (
	"time"

	"github.com/google/uuid"

	"github.com/m04kA/SMC-ParkingService/internal/domain"
)

// Request ClaimantID is set for authenticated searches so the caller's own holds do not show as conflicts
type Request struct {
	SpotID     uuid.UUID
	Start      time.Time
	End        time.Time
	EVCharging bool
	ClaimantID *uuid.UUID
}

// Response quote is computed even when the interval is taken
type Response struct {
	SpotID    uuid.UUID
	Interval  domain.Interval
	Available bool
	Reason    string
	Quote     domain.PriceBreakdown
}

// Options duration bounds
type Options struct {
	MinDuration time.Duration
	MaxDuration time.Duration
}
