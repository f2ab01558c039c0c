package availability

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/m04kA/SMC-ParkingService/internal/domain"
)

// Checker answers whether an interval on a spot is free.
// It is a fast-fail pre-check; the exclusion constraints in the store are the
// real guard. Runs inside the caller's transaction when ctx carries one.
type Checker struct {
	reservations ReservationRepository
	holds        HoldRepository
	calendar     CalendarRepository
	timeProvider TimeProvider
}

func NewChecker(reservations ReservationRepository, holds HoldRepository, calendar CalendarRepository) *Checker {
	return &Checker{
		reservations: reservations,
		holds:        holds,
		calendar:     calendar,
		timeProvider: &RealTimeProvider{},
	}
}

// WithTimeProvider replaces the clock used to decide hold expiry
func (c *Checker) WithTimeProvider(tp TimeProvider) *Checker {
	c.timeProvider = tp
	return c
}

// IsAvailable checks blocking reservations, live holds and calendar blocks, in that order
func (c *Checker) IsAvailable(ctx context.Context, spotID uuid.UUID, interval domain.Interval, opts Options) (Result, error) {
	reservations, err := c.reservations.FindByFilter(ctx, domain.ReservationsFilter{
		SpotID:               spotID,
		Overlapping:          &interval,
		Statuses:             domain.BlockingStatuses,
		ExcludeClaimantID:    opts.ExcludeClaimantID,
		ExcludeReservationID: opts.ExcludeReservationID,
	})
	if err != nil {
		return Result{}, fmt.Errorf("%w: IsAvailable - reservations: %v", ErrInternal, err)
	}
	for _, res := range reservations {
		if res.Status.IsBlocking() && res.Interval.Overlaps(interval) {
			return Result{Reason: ReasonReservation}, nil
		}
	}

	// expired holds count as absent even before the sweeper deletes them
	holds, err := c.holds.FindLiveOverlapping(ctx, spotID, interval, c.timeProvider.Now(), opts.ExcludeClaimantID)
	if err != nil {
		return Result{}, fmt.Errorf("%w: IsAvailable - holds: %v", ErrInternal, err)
	}
	if len(holds) > 0 {
		return Result{Reason: ReasonHold}, nil
	}

	blocks, err := c.calendar.GetCalendarBlocks(ctx, spotID, interval)
	if err != nil {
		return Result{}, fmt.Errorf("%w: IsAvailable - calendar: %v", ErrInternal, err)
	}
	for _, b := range blocks {
		if b.Blocks(interval) {
			return Result{Reason: ReasonCalendar}, nil
		}
	}

	return Result{Available: true}, nil
}
