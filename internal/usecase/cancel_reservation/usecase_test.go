package cancel_reservation

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-ParkingService/internal/domain"
	"github.com/m04kA/SMC-ParkingService/internal/service/reservations"
	"github.com/m04kA/SMC-ParkingService/internal/testutil/harness"
	"github.com/m04kA/SMC-ParkingService/pkg/ptr"
)

func newUseCase(e *harness.Env) *UseCase {
	return NewUseCase(e.Store.ReservationRepo(), e.Store.HoldRepo(), e.Reservations, e.Notifications,
		domain.DefaultRefundPolicy(), e.Logger).WithTimeProvider(e.Clock)
}

func TestExecute_ClaimantAheadOfTimeGetsFullRefund(t *testing.T) {
	e := harness.New()
	sp := e.AddSpot(true)
	claimant := uuid.New()
	res := e.Committed(t, sp, claimant, harness.Interval(t, 2, 4))

	resp, err := newUseCase(e).Execute(context.Background(), &Request{ReservationID: res.ID, UserID: &claimant})
	require.NoError(t, err)
	assert.Equal(t, domain.ActorClaimant, resp.Actor)
	assert.Equal(t, domain.Money(2200), resp.Refunded)

	stored := e.Reload(t, res.ID)
	assert.Equal(t, domain.StatusCanceled, stored.Status)
	assert.Equal(t, domain.Money(2200), stored.Refunded)
	assert.Equal(t, domain.ActorClaimant, *stored.CanceledBy)
	assert.NotNil(t, stored.RefundRef)
	assert.Equal(t, int64(2200), e.Authority.Refunded(*stored.PaymentRef))

	owner := e.Sent(domain.NotificationReservationCanceled)
	require.Len(t, owner, 1)
	assert.Equal(t, sp.OwnerID, *owner[0].UserID)
}

func TestExecute_LateClaimantGetsNothing(t *testing.T) {
	e := harness.New()
	sp := e.AddSpot(true)
	claimant := uuid.New()
	res := e.Committed(t, sp, claimant, harness.Interval(t, 2, 4))
	e.Clock.Advance(90 * time.Minute)

	resp, err := newUseCase(e).Execute(context.Background(), &Request{ReservationID: res.ID, UserID: &claimant, Reason: "plans changed"})
	require.NoError(t, err)
	assert.Equal(t, domain.Money(0), resp.Refunded)

	stored := e.Reload(t, res.ID)
	assert.Equal(t, domain.StatusCanceled, stored.Status)
	assert.Equal(t, "plans changed", *stored.CancellationReason)
	assert.Equal(t, int64(0), e.Authority.Refunded(*stored.PaymentRef))
}

func TestExecute_OwnerAlwaysRefundsInFull(t *testing.T) {
	e := harness.New()
	sp := e.AddSpot(true)
	claimant := uuid.New()
	res := e.Committed(t, sp, claimant, harness.Interval(t, 2, 4))
	e.Clock.Advance(90 * time.Minute)

	resp, err := newUseCase(e).Execute(context.Background(), &Request{ReservationID: res.ID, UserID: &sp.OwnerID})
	require.NoError(t, err)
	assert.Equal(t, domain.ActorOwner, resp.Actor)
	assert.Equal(t, domain.Money(2200), resp.Refunded)

	toClaimant := e.Sent(domain.NotificationReservationCanceled)
	require.Len(t, toClaimant, 1)
	assert.Equal(t, claimant, *toClaimant[0].UserID)
}

func TestExecute_GuestByEmail(t *testing.T) {
	e := harness.New()
	sp := e.AddSpot(true)
	res := e.SeedGuest(t, sp, harness.Interval(t, 3, 5), domain.StatusHeld, "Guest@Example.com", "+1 555 010 2000")
	_, err := e.Reservations.Commit(context.Background(), &res, reservations.CommitRequest{PaymentMethodRef: harness.Method()})
	require.NoError(t, err)

	uc := newUseCase(e)
	_, err = uc.Execute(context.Background(), &Request{ReservationID: res.ID, GuestEmail: ptr.Ptr("someone@example.com")})
	assert.ErrorIs(t, err, ErrAccessDenied)

	resp, err := uc.Execute(context.Background(), &Request{ReservationID: res.ID, GuestEmail: ptr.Ptr(" guest@example.COM ")})
	require.NoError(t, err)
	assert.Equal(t, domain.ActorGuest, resp.Actor)
	assert.Equal(t, domain.Money(2200), resp.Refunded)
}

func TestExecute_PendingWithoutPayment(t *testing.T) {
	e := harness.New()
	sp := e.AddSpot(false)
	claimant := uuid.New()
	res := e.Seed(t, sp, &claimant, harness.Interval(t, 2, 4), domain.StatusPending, nil)

	resp, err := newUseCase(e).Execute(context.Background(), &Request{ReservationID: res.ID, UserID: &claimant})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCanceled, resp.Reservation.Status)
	assert.Equal(t, 0, e.Authority.Intents())
	assert.Empty(t, e.Store.PaymentOps())
}

func TestExecute_RemovesClaimantHolds(t *testing.T) {
	e := harness.New()
	sp := e.AddSpot(true)
	claimant := uuid.New()
	res := e.Committed(t, sp, claimant, harness.Interval(t, 2, 4))
	e.Store.PutHold(domain.Hold{
		ID:         uuid.New(),
		SpotID:     sp.ID,
		ClaimantID: claimant,
		Interval:   harness.Interval(t, 6, 8),
		ExpiresAt:  e.Clock.Now().Add(domain.DefaultHoldTTL),
	})

	_, err := newUseCase(e).Execute(context.Background(), &Request{ReservationID: res.ID, UserID: &claimant})
	require.NoError(t, err)
	assert.Empty(t, e.Store.Holds())
}

func TestExecute_Rejections(t *testing.T) {
	e := harness.New()
	uc := newUseCase(e)
	sp := e.AddSpot(true)
	claimant := uuid.New()
	res := e.Committed(t, sp, claimant, harness.Interval(t, 2, 4))
	canceled := e.Seed(t, sp, &claimant, harness.Interval(t, 10, 12), domain.StatusCanceled, nil)
	ended := e.Seed(t, sp, &claimant, harness.Interval(t, -4, -2), domain.StatusActive, harness.Method())

	tests := []struct {
		name    string
		req     *Request
		wantErr error
	}{
		{"no caller", &Request{ReservationID: res.ID}, ErrInvalidInput},
		{"unknown reservation", &Request{ReservationID: uuid.New(), UserID: &claimant}, ErrNotFound},
		{"stranger", &Request{ReservationID: res.ID, UserID: ptr.Ptr(uuid.New())}, ErrAccessDenied},
		{"guest email on an account reservation", &Request{ReservationID: res.ID, GuestEmail: ptr.Ptr("x@example.com")}, ErrAccessDenied},
		{"already canceled", &Request{ReservationID: canceled.ID, UserID: &claimant}, ErrInvalidState},
		{"already ended", &Request{ReservationID: ended.ID, UserID: &claimant}, ErrInvalidState},
		{"reason too long", &Request{ReservationID: res.ID, UserID: &claimant, Reason: string(make([]byte, domain.MaxCancellationReasonLength+1))}, ErrInvalidReason},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uc.Execute(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.Equal(t, domain.StatusActive, e.Reload(t, res.ID).Status)
}
