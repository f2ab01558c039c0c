package finalize_payment

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-ParkingService/internal/domain"
	"github.com/m04kA/SMC-ParkingService/internal/infra/storage/reservation"
	"github.com/m04kA/SMC-ParkingService/internal/integrations/payment"
	"github.com/m04kA/SMC-ParkingService/internal/service/reservations"
	"github.com/m04kA/SMC-ParkingService/internal/testutil/harness"
	"github.com/m04kA/SMC-ParkingService/pkg/ptr"
)

func newUseCase(e *harness.Env) *UseCase {
	return NewUseCase(e.Store.ReservationRepo(), e.Payments, e.Reservations, e.Notifications, e.Logger)
}

// checkout held reservation waiting for a new checkout, returns its payment reference
func checkout(t *testing.T, e *harness.Env, res *domain.Reservation) string {
	t.Helper()
	result, err := e.Reservations.Commit(context.Background(), res, reservations.CommitRequest{})
	require.NoError(t, err)
	require.True(t, result.Outcome.RequiresAction())
	return result.Outcome.PaymentRef
}

func TestExecute_PaidAfterCheckout(t *testing.T) {
	e := harness.New()
	uc := newUseCase(e)
	sp := e.AddSpot(true)
	claimant := uuid.New()
	res := e.Seed(t, sp, &claimant, harness.Interval(t, 2, 4), domain.StatusHeld, nil)
	ref := checkout(t, e, &res)

	// payer has not finished yet
	pending, err := uc.Execute(context.Background(), &Request{PaymentRef: ref, CallerID: &claimant})
	require.NoError(t, err)
	assert.Equal(t, domain.AuthorizationRequiresAction, pending.PaymentStatus)
	assert.Equal(t, domain.StatusHeld, e.Reload(t, res.ID).Status)

	e.Authority.SetStatus(ref, payment.StatusRequiresCapture)

	done, err := uc.Execute(context.Background(), &Request{PaymentRef: ref, CallerID: &claimant})
	require.NoError(t, err)
	assert.Equal(t, domain.AuthorizationAuthorized, done.PaymentStatus)

	stored := e.Reload(t, res.ID)
	assert.Equal(t, domain.StatusPaid, stored.Status)
	assert.Equal(t, stored.Price.Total, stored.Captured)

	// idempotent
	again, err := uc.Execute(context.Background(), &Request{PaymentRef: ref, CallerID: &claimant})
	require.NoError(t, err)
	assert.Equal(t, domain.AuthorizationAuthorized, again.PaymentStatus)
	assert.Equal(t, 1, e.Authority.Calls("Capture"))
	assert.Equal(t, stored.Version, e.Reload(t, res.ID).Version)
}

func TestExecute_GuestWithoutAccount(t *testing.T) {
	e := harness.New()
	uc := newUseCase(e)
	sp := e.AddSpot(true)
	res := e.SeedGuest(t, sp, harness.Interval(t, 2, 4), domain.StatusHeld, "guest@example.com", "+1 555 010 2000")
	ref := checkout(t, e, &res)
	e.Authority.SetStatus(ref, payment.StatusRequiresCapture)

	resp, err := uc.Execute(context.Background(), &Request{PaymentRef: ref})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, resp.Reservation.Status)

	confirmed := e.Sent(domain.NotificationReservationConfirmed)
	require.NotEmpty(t, confirmed)
	var toGuest bool
	for _, n := range confirmed {
		if n.RecipientEmail != nil && *n.RecipientEmail == "guest@example.com" {
			toGuest = true
		}
	}
	assert.True(t, toGuest)
}

func TestExecute_OtherAccountDenied(t *testing.T) {
	e := harness.New()
	uc := newUseCase(e)
	sp := e.AddSpot(true)
	claimant := uuid.New()
	res := e.Seed(t, sp, &claimant, harness.Interval(t, 2, 4), domain.StatusHeld, nil)
	ref := checkout(t, e, &res)

	_, err := uc.Execute(context.Background(), &Request{PaymentRef: ref, CallerID: ptr.Ptr(uuid.New())})
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestExecute_FailedPaymentCancels(t *testing.T) {
	e := harness.New()
	uc := newUseCase(e)
	sp := e.AddSpot(true)
	claimant := uuid.New()
	res := e.Seed(t, sp, &claimant, harness.Interval(t, 2, 4), domain.StatusHeld, nil)
	ref := checkout(t, e, &res)
	e.Authority.SetStatus(ref, payment.StatusCanceled)

	resp, err := uc.Execute(context.Background(), &Request{PaymentRef: ref, CallerID: &claimant})
	require.NoError(t, err)
	assert.Equal(t, domain.AuthorizationFailed, resp.PaymentStatus)

	stored := e.Reload(t, res.ID)
	assert.Equal(t, domain.StatusCanceled, stored.Status)
	assert.Equal(t, domain.ReasonPaymentFailed, *stored.CancellationReason)
}

func TestExecute_ReservationMovedOnIsRefunded(t *testing.T) {
	e := harness.New()
	uc := newUseCase(e)
	sp := e.AddSpot(true)
	claimant := uuid.New()
	res := e.Seed(t, sp, &claimant, harness.Interval(t, 2, 4), domain.StatusHeld, nil)
	ref := checkout(t, e, &res)

	// expired while the payer was on the checkout page
	held := e.Reload(t, res.ID)
	require.NoError(t, e.Reservations.Transition(context.Background(), &held, reservation.StatusUpdate{To: domain.StatusCanceled}))
	e.Authority.SetStatus(ref, payment.StatusRequiresCapture)

	_, err := uc.Execute(context.Background(), &Request{PaymentRef: ref, CallerID: &claimant})
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, domain.StatusCanceled, e.Reload(t, res.ID).Status)
	assert.Equal(t, int64(res.Price.Total), e.Authority.Refunded(ref))
}

func TestExecute_UnknownReference(t *testing.T) {
	e := harness.New()
	_, err := newUseCase(e).Execute(context.Background(), &Request{PaymentRef: "pi_missing"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = newUseCase(e).Execute(context.Background(), &Request{PaymentRef: " "})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
