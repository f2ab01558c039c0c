package create_reservation

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-ParkingService/internal/domain"
	"github.com/m04kA/SMC-ParkingService/internal/integrations/payment"
	"github.com/m04kA/SMC-ParkingService/internal/testutil/harness"
	"github.com/m04kA/SMC-ParkingService/pkg/ptr"
)

func newUseCase(e *harness.Env) *UseCase {
	return NewUseCase(
		e.Store.ReservationRepo(),
		e.Store.HoldRepo(),
		e.Store.SpotRepo(),
		e.Checker,
		e.Reservations,
		e.Notifications,
		e.Store.TxManager(),
		DefaultOptions(),
		e.Metrics,
		e.Logger,
	).WithTimeProvider(e.Clock)
}

func putHold(e *harness.Env, sp domain.ParkingSpot, claimant uuid.UUID, iv domain.Interval) domain.Hold {
	h := domain.Hold{
		ID:             uuid.New(),
		SpotID:         sp.ID,
		ClaimantID:     claimant,
		Interval:       iv,
		IdempotencyKey: uuid.NewString(),
		ExpiresAt:      e.Clock.Now().Add(domain.DefaultHoldTTL),
	}
	e.Store.PutHold(h)
	return h
}

func request(sp domain.ParkingSpot, h domain.Hold, method *string) *Request {
	return &Request{
		ClaimantID:       h.ClaimantID,
		HoldID:           h.ID,
		SpotID:           sp.ID,
		Start:            h.Interval.Start,
		End:              h.Interval.End,
		PaymentMethodRef: method,
	}
}

func guest() domain.GuestIdentity {
	return domain.GuestIdentity{
		FullName: "Dana Guest",
		Email:    ptr.Ptr("Dana@Example.com"),
		Vehicle:  "Blue hatchback",
	}
}

func TestExecute_InstantBookStoredMethodIsActive(t *testing.T) {
	e := harness.New()
	uc := newUseCase(e)
	sp := e.AddSpot(true)
	h := putHold(e, sp, uuid.New(), harness.Interval(t, 2, 4))

	resp, err := uc.Execute(context.Background(), request(sp, h, harness.Method()))
	require.NoError(t, err)
	assert.Equal(t, domain.AuthorizationAuthorized, resp.PaymentStatus)

	stored := e.Reload(t, resp.Reservation.ID)
	assert.Equal(t, domain.StatusActive, stored.Status)
	assert.Equal(t, stored.Price.Total, stored.Captured)
	require.NotNil(t, stored.PaymentRef)
	assert.Empty(t, e.Store.Holds())

	intent, ok := e.Authority.Intent(*stored.PaymentRef)
	require.True(t, ok)
	assert.Equal(t, payment.StatusSucceeded, intent.Status)
	assert.Len(t, e.Sent(domain.NotificationReservationConfirmed), 2)
}

func TestExecute_NewCheckoutStaysHeldWithChallenge(t *testing.T) {
	e := harness.New()
	uc := newUseCase(e)
	sp := e.AddSpot(true)
	h := putHold(e, sp, uuid.New(), harness.Interval(t, 2, 4))

	resp, err := uc.Execute(context.Background(), request(sp, h, nil))
	require.NoError(t, err)
	assert.Equal(t, domain.AuthorizationRequiresAction, resp.PaymentStatus)
	assert.NotEmpty(t, resp.ClientSecret)

	stored := e.Reload(t, resp.Reservation.ID)
	assert.Equal(t, domain.StatusHeld, stored.Status)
	require.NotNil(t, stored.PaymentRef)
	assert.Equal(t, resp.PaymentRef, *stored.PaymentRef)
	assert.Zero(t, stored.Captured)
}

func TestExecute_ApprovalRequiredIsPending(t *testing.T) {
	e := harness.New()
	uc := newUseCase(e)
	sp := e.AddSpot(false)
	h := putHold(e, sp, uuid.New(), harness.Interval(t, 2, 4))

	resp, err := uc.Execute(context.Background(), request(sp, h, harness.Method()))
	require.NoError(t, err)
	assert.Empty(t, resp.PaymentStatus)

	stored := e.Reload(t, resp.Reservation.ID)
	assert.Equal(t, domain.StatusPending, stored.Status)
	assert.Equal(t, harness.Start.Add(domain.DefaultReservationDeadline), stored.ConfirmDeadline)
	assert.Equal(t, 0, e.Authority.Intents())

	requested := e.Sent(domain.NotificationReservationRequested)
	require.Len(t, requested, 1)
	assert.Equal(t, sp.OwnerID, *requested[0].UserID)
}

func TestExecute_DeclinedPaymentCancels(t *testing.T) {
	e := harness.New()
	e.Authority.ConfirmStatus = payment.StatusRequiresPaymentMethod
	uc := newUseCase(e)
	sp := e.AddSpot(true)
	h := putHold(e, sp, uuid.New(), harness.Interval(t, 2, 4))

	resp, err := uc.Execute(context.Background(), request(sp, h, harness.Method()))
	require.NoError(t, err)
	assert.Equal(t, domain.AuthorizationFailed, resp.PaymentStatus)

	stored := e.Reload(t, resp.Reservation.ID)
	assert.Equal(t, domain.StatusCanceled, stored.Status)
	require.NotNil(t, stored.CancellationReason)
	assert.Equal(t, domain.ReasonPaymentFailed, *stored.CancellationReason)
}

func TestExecute_HoldChecks(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(e *harness.Env, req *Request)
		wantErr error
	}{
		{
			name:    "expired hold",
			prepare: func(e *harness.Env, _ *Request) { e.Clock.Advance(domain.DefaultHoldTTL) },
			wantErr: ErrHoldExpired,
		},
		{
			name:    "someone else's hold",
			prepare: func(_ *harness.Env, req *Request) { req.ClaimantID = uuid.New() },
			wantErr: ErrAccessDenied,
		},
		{
			name:    "different interval",
			prepare: func(_ *harness.Env, req *Request) { req.End = req.End.Add(time.Hour) },
			wantErr: ErrHoldMismatch,
		},
		{
			name:    "unknown hold",
			prepare: func(_ *harness.Env, req *Request) { req.HoldID = uuid.New() },
			wantErr: ErrHoldNotFound,
		},
		{
			name:    "missing spot",
			prepare: func(_ *harness.Env, req *Request) { req.SpotID = uuid.Nil },
			wantErr: ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := harness.New()
			uc := newUseCase(e)
			sp := e.AddSpot(true)
			h := putHold(e, sp, uuid.New(), harness.Interval(t, 2, 4))
			req := request(sp, h, harness.Method())
			tt.prepare(e, req)

			_, err := uc.Execute(context.Background(), req)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, e.Store.Reservations())
		})
	}
}

func TestExecute_EVOnlyOnEVSpots(t *testing.T) {
	e := harness.New()
	uc := newUseCase(e)
	sp := domain.ParkingSpot{ID: uuid.New(), OwnerID: uuid.New(), HourlyRate: 800, InstantBook: true, IsActive: true}
	e.Store.AddSpot(sp)
	h := putHold(e, sp, uuid.New(), harness.Interval(t, 2, 4))

	req := request(sp, h, harness.Method())
	req.EVCharging = true
	_, err := uc.Execute(context.Background(), req)
	assert.ErrorIs(t, err, ErrEVNotSupported)
}

func TestExecute_EVChargingPriced(t *testing.T) {
	e := harness.New()
	uc := newUseCase(e)
	sp := e.AddSpot(true)
	h := putHold(e, sp, uuid.New(), harness.Interval(t, 2, 4))

	req := request(sp, h, harness.Method())
	req.EVCharging = true
	resp, err := uc.Execute(context.Background(), req)
	require.NoError(t, err)

	stored := e.Reload(t, resp.Reservation.ID)
	assert.True(t, stored.EVCharging)
	assert.Equal(t, domain.Money(400), stored.Price.AddOnFee)
	assert.Equal(t, stored.Price.Total, stored.Captured)
}

func TestExecuteGuest_InstantBookReturnsClientSecret(t *testing.T) {
	e := harness.New()
	uc := newUseCase(e)
	sp := e.AddSpot(true)

	resp, err := uc.ExecuteGuest(context.Background(), &GuestRequest{
		SpotID: sp.ID,
		Start:  harness.At(2),
		End:    harness.At(4),
		Guest:  guest(),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.AuthorizationRequiresAction, resp.PaymentStatus)
	assert.NotEmpty(t, resp.ClientSecret)

	stored := e.Reload(t, resp.Reservation.ID)
	assert.Equal(t, domain.StatusHeld, stored.Status)
	assert.Nil(t, stored.ClaimantID)
	require.NotNil(t, stored.Guest)
	assert.Equal(t, "dana@example.com", stored.Guest.NormalizedEmail())
}

func TestExecuteGuest_OverlapConflicts(t *testing.T) {
	e := harness.New()
	uc := newUseCase(e)
	sp := e.AddSpot(true)
	ctx := context.Background()

	_, err := uc.ExecuteGuest(ctx, &GuestRequest{SpotID: sp.ID, Start: harness.At(10), End: harness.At(12), Guest: guest()})
	require.NoError(t, err)

	_, err = uc.ExecuteGuest(ctx, &GuestRequest{SpotID: sp.ID, Start: harness.At(11), End: harness.At(13), Guest: guest()})
	assert.ErrorIs(t, err, ErrNotAvailable)

	_, err = uc.ExecuteGuest(ctx, &GuestRequest{SpotID: sp.ID, Start: harness.At(12), End: harness.At(14), Guest: guest()})
	assert.NoError(t, err)
	assert.Len(t, e.Store.Reservations(), 2)
}

func TestExecuteGuest_InvalidGuest(t *testing.T) {
	e := harness.New()
	uc := newUseCase(e)
	sp := e.AddSpot(true)

	g := guest()
	g.Email = nil
	_, err := uc.ExecuteGuest(context.Background(), &GuestRequest{SpotID: sp.ID, Start: harness.At(2), End: harness.At(4), Guest: g})
	assert.ErrorIs(t, err, ErrInvalidGuest)
	assert.Empty(t, e.Store.Reservations())
}

func TestExecute_PaymentUnavailableLeavesReservationHeld(t *testing.T) {
	e := harness.New()
	e.Authority.FailNext("CreateAuthorization", payment.ErrUnavailable)
	uc := newUseCase(e)
	sp := e.AddSpot(true)
	h := putHold(e, sp, uuid.New(), harness.Interval(t, 2, 4))

	_, err := uc.Execute(context.Background(), request(sp, h, harness.Method()))
	assert.ErrorIs(t, err, ErrPayment)

	all := e.Store.Reservations()
	require.Len(t, all, 1)
	assert.Equal(t, domain.StatusHeld, all[0].Status)
}
