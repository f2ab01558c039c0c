package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReservationStatus_Transitions(t *testing.T) {
	allowed := map[ReservationStatus][]ReservationStatus{
		StatusPending:   {StatusHeld, StatusDeclined, StatusCanceled},
		StatusHeld:      {StatusActive, StatusPaid, StatusCanceled},
		StatusActive:    {StatusCompleted, StatusCanceled, StatusRefunded},
		StatusPaid:      {StatusCompleted, StatusCanceled, StatusRefunded},
		StatusCompleted: {StatusRefunded},
	}

	all := []ReservationStatus{
		StatusPending, StatusHeld, StatusActive, StatusPaid,
		StatusCompleted, StatusCanceled, StatusRefunded, StatusDeclined,
	}

	for _, from := range all {
		for _, to := range all {
			want := false
			for _, a := range allowed[from] {
				if a == to {
					want = true
				}
			}
			assert.Equal(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestReservationStatus_Classes(t *testing.T) {
	assert.True(t, StatusPending.IsBlocking())
	assert.True(t, StatusHeld.IsBlocking())
	assert.True(t, StatusActive.IsBlocking())
	assert.True(t, StatusPaid.IsBlocking())
	assert.False(t, StatusCompleted.IsBlocking())
	assert.False(t, StatusCanceled.IsBlocking())

	assert.True(t, StatusActive.IsCommitted())
	assert.True(t, StatusPaid.IsCommitted())
	assert.False(t, StatusHeld.IsCommitted())

	assert.True(t, StatusCanceled.IsTerminal())
	assert.True(t, StatusRefunded.IsTerminal())
	assert.True(t, StatusDeclined.IsTerminal())
	assert.False(t, StatusCompleted.IsTerminal())
}

func TestParseReservationStatus(t *testing.T) {
	s, err := ParseReservationStatus("paid")
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, s)

	_, err = ParseReservationStatus("confirmed")
	assert.ErrorIs(t, err, ErrUnknownStatus)
}

func TestReservation_EffectiveStatus(t *testing.T) {
	r := &Reservation{
		Status:   StatusActive,
		Interval: Interval{Start: at(10, 0), End: at(12, 0)},
	}

	assert.Equal(t, StatusActive, r.EffectiveStatus(at(11, 0)))
	assert.Equal(t, StatusCompleted, r.EffectiveStatus(at(12, 0)))
	assert.False(t, r.CanBeCancelled(at(12, 1)))
	assert.True(t, r.CanBeCancelled(at(11, 0)))
	assert.True(t, r.CanBeExtended(at(11, 0)))
	assert.False(t, r.CanBeExtended(at(12, 0)))

	r.Status = StatusHeld
	assert.Equal(t, StatusHeld, r.EffectiveStatus(at(13, 0)))
}

func TestReservation_Deadlines(t *testing.T) {
	created := at(9, 0)
	r := &Reservation{
		Status:          StatusPending,
		CreatedAt:       created,
		ConfirmDeadline: created.Add(3 * time.Hour),
	}

	assert.Equal(t, at(11, 0), r.ReminderAt(DefaultReminderFraction))
	assert.False(t, r.IsConfirmationExpired(at(11, 59)))
	assert.True(t, r.IsConfirmationExpired(at(12, 0)))

	r.Status = StatusActive
	assert.False(t, r.IsConfirmationExpired(at(13, 0)))
}

func TestReservation_Parties(t *testing.T) {
	owner, claimant := uuid.New(), uuid.New()
	r := &Reservation{OwnerID: owner, ClaimantID: &claimant, Captured: 2200, Refunded: 200}

	assert.True(t, r.IsOwner(owner))
	assert.True(t, r.IsClaimant(claimant))
	assert.False(t, r.IsClaimant(owner))
	assert.False(t, r.IsGuest())
	assert.Equal(t, Money(2000), r.Refundable())

	guest := &Reservation{OwnerID: owner}
	assert.True(t, guest.IsGuest())
	assert.False(t, guest.IsClaimant(claimant))
}
