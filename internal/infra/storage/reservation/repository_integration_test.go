//go:build integration

package reservation

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-ParkingService/internal/domain"
	"github.com/m04kA/SMC-ParkingService/internal/testutil/pgtest"
	"github.com/m04kA/SMC-ParkingService/pkg/ptr"
)

func newReservation(spotID, ownerID uuid.UUID, claimantID *uuid.UUID, start time.Time, status domain.ReservationStatus) *domain.Reservation {
	return &domain.Reservation{
		SpotID:     spotID,
		OwnerID:    ownerID,
		ClaimantID: claimantID,
		Interval:   domain.Interval{Start: start, End: start.Add(2 * time.Hour)},
		Status:     status,
		Price: domain.PriceBreakdown{
			HourlyRate:   1000,
			ClaimantRate: 1100,
			Hours:        2,
			OwnerGross:   2000,
			PlatformFee:  200,
			OwnerNet:     1800,
			Subtotal:     2000,
			ServiceFee:   200,
			Total:        2200,
		},
		ConfirmDeadline: start.Add(-time.Hour),
		ReviewDeadline:  start.Add(-time.Hour),
	}
}

func TestRepository_OverlapOnlyBetweenBlockingStatuses(t *testing.T) {
	db := pgtest.New(t)
	repo := NewRepository(db)
	ctx := context.Background()

	ownerID := uuid.New()
	spotID := pgtest.InsertSpot(t, db, ownerID, 1000)
	start := time.Date(2030, 6, 1, 9, 0, 0, 0, time.UTC)

	first, err := repo.Create(ctx, newReservation(spotID, ownerID, ptr.Ptr(uuid.New()), start, domain.StatusActive))
	require.NoError(t, err)
	assert.Equal(t, 1, first.Version)

	_, err = repo.Create(ctx, newReservation(spotID, ownerID, ptr.Ptr(uuid.New()), start.Add(time.Hour), domain.StatusHeld))
	assert.ErrorIs(t, err, ErrOverlap)

	now := time.Now().UTC()
	err = repo.Transition(ctx, first, StatusUpdate{
		To:                 domain.StatusCanceled,
		CancellationReason: ptr.Ptr("plans changed"),
		CanceledBy:         ptr.Ptr(domain.ActorClaimant),
		CanceledAt:         &now,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, first.Version)

	// the canceled row no longer blocks the interval
	_, err = repo.Create(ctx, newReservation(spotID, ownerID, ptr.Ptr(uuid.New()), start.Add(time.Hour), domain.StatusHeld))
	require.NoError(t, err)

	loaded, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCanceled, loaded.Status)
	require.NotNil(t, loaded.CancellationReason)
	assert.Equal(t, "plans changed", *loaded.CancellationReason)
}

func TestRepository_TransitionDetectsConcurrentWriter(t *testing.T) {
	db := pgtest.New(t)
	repo := NewRepository(db)
	ctx := context.Background()

	ownerID := uuid.New()
	spotID := pgtest.InsertSpot(t, db, ownerID, 1000)
	res, err := repo.Create(ctx, newReservation(spotID, ownerID, ptr.Ptr(uuid.New()),
		time.Date(2030, 6, 2, 9, 0, 0, 0, time.UTC), domain.StatusPaid))
	require.NoError(t, err)

	stale := *res

	captured := domain.Money(2200)
	require.NoError(t, repo.Transition(ctx, res, StatusUpdate{To: domain.StatusPaid, Captured: &captured}))

	err = repo.Transition(ctx, &stale, StatusUpdate{To: domain.StatusCanceled})
	assert.ErrorIs(t, err, ErrStatusChanged)

	tooMuch := domain.Money(5000)
	err = repo.Transition(ctx, res, StatusUpdate{To: domain.StatusRefunded, Refunded: &tooMuch})
	assert.ErrorIs(t, err, ErrRefundExceedsCaptured)
}

func TestRepository_LinkGuestIsIdempotent(t *testing.T) {
	db := pgtest.New(t)
	repo := NewRepository(db)
	ctx := context.Background()

	ownerID := uuid.New()
	spotID := pgtest.InsertSpot(t, db, ownerID, 1000)

	guest := newReservation(spotID, ownerID, nil, time.Date(2030, 6, 3, 9, 0, 0, 0, time.UTC), domain.StatusPaid)
	guest.Guest = &domain.GuestIdentity{
		FullName: "Guest Driver",
		Email:    ptr.Ptr("Guest@Example.com"),
		Vehicle:  "ABC-123",
	}
	_, err := repo.Create(ctx, guest)
	require.NoError(t, err)

	userID := uuid.New()
	linked, err := repo.LinkGuest(ctx, userID, "guest@example.com", "")
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{guest.ID}, linked)

	linked, err = repo.LinkGuest(ctx, uuid.New(), "guest@example.com", "")
	require.NoError(t, err)
	assert.Empty(t, linked)

	loaded, err := repo.GetByID(ctx, guest.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.ClaimantID)
	assert.Equal(t, userID, *loaded.ClaimantID)
}

func TestRepository_ListReminderDueSkipsReminded(t *testing.T) {
	db := pgtest.New(t)
	repo := NewRepository(db)
	ctx := context.Background()

	ownerID := uuid.New()
	spotID := pgtest.InsertSpot(t, db, ownerID, 1000)
	start := time.Date(2030, 6, 5, 9, 0, 0, 0, time.UTC)

	reminded, err := repo.Create(ctx, newReservation(spotID, ownerID, ptr.Ptr(uuid.New()), start, domain.StatusPending))
	require.NoError(t, err)
	waiting, err := repo.Create(ctx, newReservation(spotID, ownerID, ptr.Ptr(uuid.New()), start.Add(3*time.Hour), domain.StatusPending))
	require.NoError(t, err)

	_, err = db.ExecContext(ctx,
		`INSERT INTO notifications (id, user_id, type, title, message, related_id) VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.New(), ownerID, string(domain.NotificationApprovalReminder), "Reservation request waiting", "Approve or decline", reminded.ID)
	require.NoError(t, err)

	due, err := repo.ListReminderDue(ctx, time.Now().UTC(), 0, 1)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, waiting.ID, due[0].ID)
}
