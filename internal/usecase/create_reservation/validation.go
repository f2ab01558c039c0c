package create_reservation

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/m04kA/SMC-ParkingService/internal/domain"
)

func validateRequest(req *Request, now time.Time, opts Options) (domain.Interval, error) {
	if req.ClaimantID == uuid.Nil || req.HoldID == uuid.Nil || req.SpotID == uuid.Nil {
		return domain.Interval{}, fmt.Errorf("%w: claimant, hold and spot are required", ErrInvalidInput)
	}
	if req.PaymentMethodRef != nil && *req.PaymentMethodRef == "" {
		return domain.Interval{}, fmt.Errorf("%w: empty payment method", ErrInvalidInput)
	}
	return validateInterval(req.Start, req.End, now, opts)
}

func validateGuestRequest(req *GuestRequest, now time.Time, opts Options) (domain.Interval, error) {
	if req.SpotID == uuid.Nil {
		return domain.Interval{}, fmt.Errorf("%w: spot is required", ErrInvalidInput)
	}
	if err := req.Guest.Validate(); err != nil {
		return domain.Interval{}, fmt.Errorf("%w: %v", ErrInvalidGuest, err)
	}
	return validateInterval(req.Start, req.End, now, opts)
}

func validateInterval(start, end, now time.Time, opts Options) (domain.Interval, error) {
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

func validateSpot(spot *domain.ParkingSpot, claimantID *uuid.UUID, evCharging bool) error {
	if !spot.IsActive {
		return ErrSpotInactive
	}
	if claimantID != nil && spot.OwnerID == *claimantID {
		return ErrOwnSpot
	}
	if evCharging && !spot.HasEVCharging {
		return ErrEVNotSupported
	}
	return nil
}
