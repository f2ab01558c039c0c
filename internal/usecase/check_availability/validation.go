package check_availability

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/m04kA/SMC-ParkingService/internal/domain"
)

func validateRequest(req *Request, now time.Time, opts Options) (domain.Interval, error) {
	if req.SpotID == uuid.Nil {
		return domain.Interval{}, fmt.Errorf("%w: spot is required", ErrInvalidInput)
	}

	interval, err := domain.NewInterval(req.Start, req.End)
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
