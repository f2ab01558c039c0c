package create_hold

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/m04kA/SMC-ParkingService/internal/domain"
)

const maxIdempotencyKeyLength = 128

func validateRequest(req *Request, now time.Time, opts Options) (domain.Interval, error) {
	if req.ClaimantID == uuid.Nil || req.SpotID == uuid.Nil {
		return domain.Interval{}, fmt.Errorf("%w: claimant and spot are required", ErrInvalidInput)
	}
	key := strings.TrimSpace(req.IdempotencyKey)
	if key == "" {
		return domain.Interval{}, fmt.Errorf("%w: idempotency key is required", ErrInvalidInput)
	}
	if len(key) > maxIdempotencyKeyLength {
		return domain.Interval{}, fmt.Errorf("%w: idempotency key exceeds %d characters", ErrInvalidInput, maxIdempotencyKeyLength)
	}

	return ValidateInterval(req.Start, req.End, now, opts)
}

// ValidateInterval start before end, not in the past, duration within bounds
func ValidateInterval(start, end, now time.Time, opts Options) (domain.Interval, error) {
	interval, err := domain.NewInterval(start, end)
	if err != nil {
		return domain.Interval{}, fmt.Errorf("%w: %v", ErrInvalidInterval, err)
	}
	if interval.Start.Before(now) {
		return domain.Interval{}, fmt.Errorf("%w: start is in the past", ErrInvalidInterval)
	}
	if opts.MinDuration > 0 && interval.Duration() < opts.MinDuration {
		return domain.Interval{}, fmt.Errorf("%w: duration below %s", ErrInvalidInterval, opts.MinDuration)
	}
	if opts.MaxDuration > 0 && interval.Duration() > opts.MaxDuration {
		return domain.Interval{}, fmt.Errorf("%w: duration above %s", ErrInvalidInterval, opts.MaxDuration)
	}
	return interval, nil
}
