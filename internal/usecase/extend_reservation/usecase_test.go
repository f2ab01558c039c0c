package extend_reservation

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-ParkingService/internal/domain"
	"github.com/m04kA/SMC-ParkingService/internal/integrations/payment"
	"github.com/m04kA/SMC-ParkingService/internal/service/availability"
	"github.com/m04kA/SMC-ParkingService/internal/testutil/harness"
)

type alwaysAvailable struct{}

func (alwaysAvailable) IsAvailable(context.Context, uuid.UUID, domain.Interval, availability.Options) (availability.Result, error) {
	return availability.Result{Available: true}, nil
}

func newUseCase(e *harness.Env, checker AvailabilityChecker) *UseCase {
	return NewUseCase(e.Store.ReservationRepo(), checker, e.Payments, e.Reservations, e.Notifications, domain.DefaultMaxExtension, e.Logger).
		WithTimeProvider(e.Clock)
}

func TestExecute_ExtendsAndCharges(t *testing.T) {
	e := harness.New()
	uc := newUseCase(e, e.Checker)
	sp := e.AddSpot(true)
	claimant := uuid.New()
	res := e.Committed(t, sp, claimant, harness.Interval(t, 2, 4))

	resp, err := uc.Execute(context.Background(), &Request{ClaimantID: claimant, ReservationID: res.ID, NewEnd: harness.At(6)})
	require.NoError(t, err)
	assert.Equal(t, domain.AuthorizationAuthorized, resp.PaymentStatus)
	assert.Equal(t, domain.Money(2200), resp.Amount)

	stored := e.Reload(t, res.ID)
	assert.Equal(t, harness.At(6), stored.Interval.End)
	assert.Equal(t, domain.Money(4400), stored.Captured)
	assert.Equal(t, domain.Money(4400), stored.Price.Total)
	assert.Equal(t, 1, stored.ExtensionCount)
	assert.Equal(t, harness.At(6).Add(domain.DefaultReviewWindow), stored.ReviewDeadline)

	exts := e.Store.Extensions()
	require.Len(t, exts, 1)
	assert.Equal(t, harness.At(4), exts[0].OldEnd)
	assert.Equal(t, harness.At(6), exts[0].NewEnd)
	assert.Equal(t, domain.Money(2200), exts[0].Amount)
	assert.Len(t, e.Sent(domain.NotificationReservationExtended), 1)
}

func TestExecute_ConflictChangesNothing(t *testing.T) {
	e := harness.New()
	uc := newUseCase(e, e.Checker)
	sp := e.AddSpot(true)
	claimant := uuid.New()
	res := e.Committed(t, sp, claimant, harness.Interval(t, 2, 4))
	other := uuid.New()
	e.Seed(t, sp, &other, harness.Interval(t, 5, 7), domain.StatusActive, harness.Method())

	_, err := uc.Execute(context.Background(), &Request{ClaimantID: claimant, ReservationID: res.ID, NewEnd: harness.At(6)})
	assert.ErrorIs(t, err, ErrNotAvailable)

	stored := e.Reload(t, res.ID)
	assert.Equal(t, res.Interval, stored.Interval)
	assert.Equal(t, res.Captured, stored.Captured)
	assert.Equal(t, 1, e.Authority.Intents())
	assert.Empty(t, e.Store.Extensions())
}

func TestExecute_SlotTakenBeforeApplyIsCompensated(t *testing.T) {
	e := harness.New()
	uc := newUseCase(e, alwaysAvailable{})
	sp := e.AddSpot(true)
	claimant := uuid.New()
	res := e.Committed(t, sp, claimant, harness.Interval(t, 2, 4))
	other := uuid.New()
	e.Seed(t, sp, &other, harness.Interval(t, 5, 7), domain.StatusActive, harness.Method())

	_, err := uc.Execute(context.Background(), &Request{ClaimantID: claimant, ReservationID: res.ID, NewEnd: harness.At(6)})
	assert.ErrorIs(t, err, ErrNotAvailable)

	stored := e.Reload(t, res.ID)
	assert.Equal(t, harness.At(4), stored.Interval.End)
	assert.Equal(t, res.Captured, stored.Captured)

	ops := e.Store.PaymentOps()
	require.Len(t, ops, 2)
	assert.Equal(t, domain.PaymentOpCompensated, ops[1].Status)
	require.NotNil(t, ops[1].PaymentRef)
	assert.Equal(t, int64(2200), e.Authority.Refunded(*ops[1].PaymentRef))
}

func TestExecute_NewCheckoutWaitsForFinalize(t *testing.T) {
	e := harness.New()
	uc := newUseCase(e, e.Checker)
	sp := e.AddSpot(true)
	claimant := uuid.New()
	res := e.Seed(t, sp, &claimant, harness.Interval(t, 2, 4), domain.StatusPaid, nil)

	resp, err := uc.Execute(context.Background(), &Request{ClaimantID: claimant, ReservationID: res.ID, NewEnd: harness.At(5)})
	require.NoError(t, err)
	assert.Equal(t, domain.AuthorizationRequiresAction, resp.PaymentStatus)
	assert.NotEmpty(t, resp.ClientSecret)
	assert.Equal(t, harness.At(4), e.Reload(t, res.ID).Interval.End)
}

func TestExecute_Retry(t *testing.T) {
	e := harness.New()
	uc := newUseCase(e, e.Checker)
	sp := e.AddSpot(true)
	claimant := uuid.New()
	res := e.Seed(t, sp, &claimant, harness.Interval(t, 2, 4), domain.StatusPaid, nil)
	req := &Request{ClaimantID: claimant, ReservationID: res.ID, NewEnd: harness.At(5)}

	first, err := uc.Execute(context.Background(), req)
	require.NoError(t, err)
	second, err := uc.Execute(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first.PaymentRef, second.PaymentRef)
	assert.Equal(t, 1, e.Authority.Intents())
}

func TestExecute_RetryWithAnotherCardAfterDecline(t *testing.T) {
	e := harness.New()
	uc := newUseCase(e, e.Checker)
	sp := e.AddSpot(true)
	claimant := uuid.New()
	res := e.Committed(t, sp, claimant, harness.Interval(t, 2, 4))

	e.Authority.ConfirmStatus = payment.StatusRequiresPaymentMethod
	declined, err := uc.Execute(context.Background(), &Request{ClaimantID: claimant, ReservationID: res.ID, NewEnd: harness.At(6)})
	require.NoError(t, err)
	require.Equal(t, domain.AuthorizationFailed, declined.PaymentStatus)
	require.Equal(t, harness.At(4), e.Reload(t, res.ID).Interval.End)

	e.Authority.ConfirmStatus = payment.StatusRequiresCapture
	newCard := "pm_new_card"
	resp, err := uc.Execute(context.Background(), &Request{
		ClaimantID: claimant, ReservationID: res.ID, NewEnd: harness.At(6), PaymentMethodRef: &newCard,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.AuthorizationAuthorized, resp.PaymentStatus)
	assert.NotEqual(t, declined.PaymentRef, resp.PaymentRef)

	stored := e.Reload(t, res.ID)
	assert.Equal(t, harness.At(6), stored.Interval.End)
	assert.Equal(t, 1, stored.ExtensionCount)
	assert.Len(t, e.Store.Extensions(), 1)
}

func TestExecute_Rejections(t *testing.T) {
	e := harness.New()
	uc := newUseCase(e, e.Checker)
	sp := e.AddSpot(true)
	claimant := uuid.New()
	committed := e.Seed(t, sp, &claimant, harness.Interval(t, 2, 4), domain.StatusActive, harness.Method())
	held := e.Seed(t, sp, &claimant, harness.Interval(t, 10, 12), domain.StatusHeld, harness.Method())
	ctx := context.Background()

	tests := []struct {
		name    string
		req     *Request
		wantErr error
	}{
		{"not the claimant", &Request{ClaimantID: uuid.New(), ReservationID: committed.ID, NewEnd: harness.At(5)}, ErrAccessDenied},
		{"not committed", &Request{ClaimantID: claimant, ReservationID: held.ID, NewEnd: harness.At(13)}, ErrInvalidState},
		{"earlier end", &Request{ClaimantID: claimant, ReservationID: committed.ID, NewEnd: harness.At(3)}, ErrInvalidEnd},
		{"same end", &Request{ClaimantID: claimant, ReservationID: committed.ID, NewEnd: harness.At(4)}, ErrInvalidEnd},
		{"too long", &Request{ClaimantID: claimant, ReservationID: committed.ID, NewEnd: harness.At(4).Add(25 * time.Hour)}, ErrInvalidEnd},
		{"unknown", &Request{ClaimantID: claimant, ReservationID: uuid.New(), NewEnd: harness.At(5)}, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uc.Execute(ctx, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.Empty(t, e.Store.PaymentOps())
}

func TestExecute_EndedReservation(t *testing.T) {
	e := harness.New()
	uc := newUseCase(e, e.Checker)
	sp := e.AddSpot(true)
	claimant := uuid.New()
	res := e.Seed(t, sp, &claimant, harness.Interval(t, 2, 4), domain.StatusActive, harness.Method())

	e.Clock.Set(harness.At(4))
	_, err := uc.Execute(context.Background(), &Request{ClaimantID: claimant, ReservationID: res.ID, NewEnd: harness.At(6)})
	assert.ErrorIs(t, err, ErrInvalidState)
}
