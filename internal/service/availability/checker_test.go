package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-ParkingService/internal/domain"
	"github.com/m04kA/SMC-ParkingService/internal/testutil"
)

var base = time.Date(2030, 6, 10, 0, 0, 0, 0, time.UTC)

func at(hour int) time.Time {
	return base.Add(time.Duration(hour) * time.Hour)
}

func interval(t *testing.T, from, to int) domain.Interval {
	t.Helper()
	iv, err := domain.NewInterval(at(from), at(to))
	require.NoError(t, err)
	return iv
}

func setup() (*Checker, *testutil.Store, *testutil.Clock, uuid.UUID) {
	clock := testutil.NewClock(base.Add(-24 * time.Hour))
	store := testutil.NewStore(clock)
	spotID := uuid.New()
	store.AddSpot(domain.ParkingSpot{ID: spotID, OwnerID: uuid.New(), HourlyRate: 500, IsActive: true})

	checker := NewChecker(store.ReservationRepo(), store.HoldRepo(), store.SpotRepo()).WithTimeProvider(clock)
	return checker, store, clock, spotID
}

func TestIsAvailable_ReservationsByStatus(t *testing.T) {
	tests := []struct {
		name      string
		status    domain.ReservationStatus
		available bool
	}{
		{"pending blocks", domain.StatusPending, false},
		{"held blocks", domain.StatusHeld, false},
		{"active blocks", domain.StatusActive, false},
		{"paid blocks", domain.StatusPaid, false},
		{"canceled frees", domain.StatusCanceled, true},
		{"declined frees", domain.StatusDeclined, true},
		{"completed frees", domain.StatusCompleted, true},
		{"refunded frees", domain.StatusRefunded, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker, store, _, spotID := setup()
			claimant := uuid.New()
			store.PutReservation(domain.Reservation{
				SpotID:     spotID,
				ClaimantID: &claimant,
				Interval:   interval(t, 10, 12),
				Status:     tt.status,
			})

			res, err := checker.IsAvailable(context.Background(), spotID, interval(t, 11, 13), Options{})
			require.NoError(t, err)
			assert.Equal(t, tt.available, res.Available)
			if !tt.available {
				assert.Equal(t, ReasonReservation, res.Reason)
			}
		})
	}
}

func TestIsAvailable_BackToBackIsFree(t *testing.T) {
	checker, store, _, spotID := setup()
	store.PutReservation(domain.Reservation{SpotID: spotID, Interval: interval(t, 10, 12), Status: domain.StatusActive})

	res, err := checker.IsAvailable(context.Background(), spotID, interval(t, 12, 14), Options{})
	require.NoError(t, err)
	assert.True(t, res.Available)
}

func TestIsAvailable_Holds(t *testing.T) {
	checker, store, clock, spotID := setup()
	holder := uuid.New()
	store.PutHold(domain.Hold{
		SpotID:         spotID,
		ClaimantID:     holder,
		Interval:       interval(t, 10, 12),
		IdempotencyKey: "k",
		ExpiresAt:      clock.Now().Add(10 * time.Minute),
	})
	ctx := context.Background()

	res, err := checker.IsAvailable(ctx, spotID, interval(t, 11, 13), Options{})
	require.NoError(t, err)
	assert.False(t, res.Available)
	assert.Equal(t, ReasonHold, res.Reason)

	// the holder's own hold does not block them
	res, err = checker.IsAvailable(ctx, spotID, interval(t, 11, 13), Options{ExcludeClaimantID: &holder})
	require.NoError(t, err)
	assert.True(t, res.Available)

	// an expired hold is treated as absent before it is purged
	clock.Advance(10 * time.Minute)
	res, err = checker.IsAvailable(ctx, spotID, interval(t, 11, 13), Options{})
	require.NoError(t, err)
	assert.True(t, res.Available)
}

func TestIsAvailable_CalendarBlocks(t *testing.T) {
	checker, store, _, spotID := setup()
	ctx := context.Background()

	store.AddCalendarBlock(domain.CalendarBlock{SpotID: spotID, Date: base.AddDate(0, 0, 1), FullDay: true})

	res, err := checker.IsAvailable(ctx, spotID, interval(t, 22, 26), Options{})
	require.NoError(t, err)
	assert.False(t, res.Available)
	assert.Equal(t, ReasonCalendar, res.Reason)

	// ending exactly at midnight does not touch the blocked day
	res, err = checker.IsAvailable(ctx, spotID, interval(t, 20, 24), Options{})
	require.NoError(t, err)
	assert.True(t, res.Available)

	from, to := at(15), at(16)
	store.AddCalendarBlock(domain.CalendarBlock{SpotID: spotID, Date: base, StartsAt: &from, EndsAt: &to})

	res, err = checker.IsAvailable(ctx, spotID, interval(t, 14, 15), Options{})
	require.NoError(t, err)
	assert.True(t, res.Available)

	res, err = checker.IsAvailable(ctx, spotID, interval(t, 14, 16), Options{})
	require.NoError(t, err)
	assert.False(t, res.Available)
}

func TestIsAvailable_ExcludeReservation(t *testing.T) {
	checker, store, _, spotID := setup()
	own := domain.Reservation{ID: uuid.New(), SpotID: spotID, Interval: interval(t, 10, 12), Status: domain.StatusActive}
	store.PutReservation(own)

	res, err := checker.IsAvailable(context.Background(), spotID, interval(t, 10, 14), Options{ExcludeReservationID: &own.ID})
	require.NoError(t, err)
	assert.True(t, res.Available)
}

func TestIsAvailable_StoreError(t *testing.T) {
	checker, store, _, spotID := setup()
	store.FailOn("Reservation.FindByFilter", errors.New("timeout"))

	_, err := checker.IsAvailable(context.Background(), spotID, interval(t, 10, 12), Options{})
	assert.ErrorIs(t, err, ErrInternal)
}
