package sweep

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-ParkingService/internal/domain"
	"github.com/m04kA/SMC-ParkingService/internal/integrations/payment"
	"github.com/m04kA/SMC-ParkingService/internal/service/availability"
	"github.com/m04kA/SMC-ParkingService/internal/service/payments"
	"github.com/m04kA/SMC-ParkingService/internal/service/reservations"
	"github.com/m04kA/SMC-ParkingService/internal/testutil/harness"
)

type recordingMetrics struct {
	mu    sync.Mutex
	runs  map[string]int
	items map[string]int
}

func (m *recordingMetrics) IncSweeperRun(pass, result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.runs == nil {
		m.runs = make(map[string]int)
	}
	m.runs[pass+"/"+result]++
}

func (m *recordingMetrics) AddSweeperItems(pass, result string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.items == nil {
		m.items = make(map[string]int)
	}
	m.items[pass+"/"+result] += n
}

func newUseCase(e *harness.Env, m Metrics) *UseCase {
	return NewUseCase(e.Store.HoldRepo(), e.Store.ReservationRepo(), e.Payments, e.Reservations, e.Notifications,
		e.Store.CounterRepo(), DefaultOptions(), m, e.Logger).WithTimeProvider(e.Clock)
}

func TestRun_ExpiresUnconfirmedOnce(t *testing.T) {
	e := harness.New()
	m := &recordingMetrics{}
	uc := newUseCase(e, m)
	sp := e.AddSpot(false)
	claimant := uuid.New()

	pending := e.Seed(t, sp, &claimant, harness.Interval(t, 40, 42), domain.StatusPending, nil)
	held := e.Seed(t, sp, &claimant, harness.Interval(t, 44, 46), domain.StatusHeld, nil)
	result, err := e.Reservations.Commit(context.Background(), &held, reservations.CommitRequest{})
	require.NoError(t, err)
	require.True(t, result.Outcome.RequiresAction())

	e.Clock.Advance(25 * time.Hour)

	report := uc.Run(context.Background())
	assert.Equal(t, 2, report.Processed(PassExpiry))
	assert.False(t, report.Failed())

	for _, id := range []uuid.UUID{pending.ID, held.ID} {
		stored := e.Reload(t, id)
		assert.Equal(t, domain.StatusCanceled, stored.Status)
		assert.Equal(t, domain.ReasonConfirmationExpired, *stored.CancellationReason)
		assert.Equal(t, domain.ActorSystem, *stored.CanceledBy)
	}

	intent, ok := e.Authority.Intent(result.Outcome.PaymentRef)
	require.True(t, ok)
	assert.Equal(t, payment.StatusCanceled, intent.Status)
	assert.Len(t, e.Sent(domain.NotificationReservationExpired), 2)

	again := uc.Run(context.Background())
	assert.Equal(t, 0, again.Processed(PassExpiry))
	assert.Len(t, e.Sent(domain.NotificationReservationExpired), 2)
	assert.Equal(t, 1, e.Authority.Calls("Cancel"))
	assert.Equal(t, 2, m.runs[PassExpiry+"/ok"])
	assert.Equal(t, 2, m.items[PassExpiry+"/ok"])
}

func TestRun_ExpiryRefundsCaptureMissingLocally(t *testing.T) {
	e := harness.New()
	uc := newUseCase(e, e.Metrics)
	sp := e.AddSpot(false)
	claimant := uuid.New()
	ctx := context.Background()

	held := e.Seed(t, sp, &claimant, harness.Interval(t, 40, 42), domain.StatusHeld, nil)
	result, err := e.Reservations.Commit(ctx, &held, reservations.CommitRequest{})
	require.NoError(t, err)
	require.True(t, result.Outcome.RequiresAction())
	ref := result.Outcome.PaymentRef

	// payer finished checkout and the capture went through, its response never arrived
	e.Authority.SetStatus(ref, payment.StatusRequiresCapture)
	_, err = e.Authority.Capture(ctx, ref, 0, "capture-"+ref)
	require.NoError(t, err)
	require.Equal(t, domain.Money(0), e.Reload(t, held.ID).Captured)

	e.Clock.Advance(25 * time.Hour)

	first := uc.Run(ctx)
	assert.False(t, first.Failed())
	assert.Equal(t, 1, first.Processed(PassExpiry))

	for i := 0; i < 2; i++ {
		again := uc.Run(ctx)
		assert.False(t, again.Failed())
		assert.Equal(t, 0, again.Processed(PassExpiry))
	}

	stored := e.Reload(t, held.ID)
	assert.Equal(t, domain.StatusCanceled, stored.Status)
	assert.Equal(t, domain.ReasonConfirmationExpired, *stored.CancellationReason)
	assert.Equal(t, held.Price.Total, stored.Captured)
	assert.Equal(t, held.Price.Total, stored.Refunded)
	assert.Equal(t, int64(held.Price.Total), e.Authority.Refunded(ref))
	assert.Equal(t, 0, e.Authority.Calls("Cancel"))

	avail, err := e.Checker.IsAvailable(ctx, sp.ID, held.Interval, availability.Options{})
	require.NoError(t, err)
	assert.True(t, avail.Available)
}

func TestRun_RemindersAreSentOnce(t *testing.T) {
	e := harness.New()
	uc := newUseCase(e, e.Metrics)
	sp := e.AddSpot(false)
	claimant := uuid.New()

	pending := e.Seed(t, sp, &claimant, harness.Interval(t, 40, 42), domain.StatusPending, nil)
	guest := e.SeedGuest(t, sp, harness.Interval(t, 44, 46), domain.StatusHeld, "guest@example.com", "+1 555 010 2000")

	// not due yet
	e.Clock.Advance(10 * time.Hour)
	assert.Equal(t, 0, uc.Run(context.Background()).Processed(PassReminders))

	e.Clock.Advance(7 * time.Hour)
	assert.Equal(t, 2, uc.Run(context.Background()).Processed(PassReminders))
	assert.Equal(t, 0, uc.Run(context.Background()).Processed(PassReminders))

	approval := e.Sent(domain.NotificationApprovalReminder)
	require.Len(t, approval, 1)
	assert.Equal(t, pending.ID, approval[0].RelatedID)
	assert.Equal(t, sp.OwnerID, *approval[0].UserID)

	paymentReminders := e.Sent(domain.NotificationPaymentReminder)
	require.Len(t, paymentReminders, 1)
	assert.Equal(t, guest.ID, paymentReminders[0].RelatedID)
	assert.Equal(t, "guest@example.com", *paymentReminders[0].RecipientEmail)
}

func TestRun_RemindersReachEveryReservationPastTheBatch(t *testing.T) {
	e := harness.New()
	opts := DefaultOptions()
	opts.BatchSize = 2
	uc := NewUseCase(e.Store.HoldRepo(), e.Store.ReservationRepo(), e.Payments, e.Reservations, e.Notifications,
		e.Store.CounterRepo(), opts, e.Metrics, e.Logger).WithTimeProvider(e.Clock)
	sp := e.AddSpot(false)

	ids := make(map[uuid.UUID]bool)
	for _, start := range []int{40, 44, 48} {
		claimant := uuid.New()
		res := e.Seed(t, sp, &claimant, harness.Interval(t, start, start+2), domain.StatusPending, nil)
		ids[res.ID] = true
	}

	e.Clock.Advance(17 * time.Hour)
	assert.Equal(t, 2, uc.Run(context.Background()).Processed(PassReminders))
	assert.Equal(t, 1, uc.Run(context.Background()).Processed(PassReminders))
	assert.Equal(t, 0, uc.Run(context.Background()).Processed(PassReminders))

	sent := e.Sent(domain.NotificationApprovalReminder)
	require.Len(t, sent, 3)
	for _, n := range sent {
		assert.True(t, ids[n.RelatedID])
	}
}

func TestRun_PurgesHoldsAndCompletesEnded(t *testing.T) {
	e := harness.New()
	uc := newUseCase(e, e.Metrics)
	sp := e.AddSpot(true)
	claimant := uuid.New()
	res := e.Committed(t, sp, claimant, harness.Interval(t, 1, 3))

	now := e.Clock.Now()
	e.Store.PutHold(domain.Hold{ID: uuid.New(), SpotID: sp.ID, ClaimantID: uuid.New(), Interval: harness.Interval(t, 5, 6), ExpiresAt: now.Add(time.Minute)})
	e.Store.PutHold(domain.Hold{ID: uuid.New(), SpotID: sp.ID, ClaimantID: uuid.New(), Interval: harness.Interval(t, 7, 8), ExpiresAt: now.Add(6 * time.Hour)})

	e.Clock.Advance(4 * time.Hour)
	report := uc.Run(context.Background())

	assert.Equal(t, 1, report.Processed(PassHolds))
	assert.Len(t, e.Store.Holds(), 1)
	assert.Equal(t, 1, report.Processed(PassCompletion))
	assert.Equal(t, domain.StatusCompleted, e.Reload(t, res.ID).Status)
}

func TestRun_ReappliesSucceededPayment(t *testing.T) {
	e := harness.New()
	uc := newUseCase(e, e.Metrics)
	sp := e.AddSpot(true)
	claimant := uuid.New()
	res := e.Seed(t, sp, &claimant, harness.Interval(t, 30, 32), domain.StatusHeld, harness.Method())

	// money captured, the reservation write is lost
	e.Store.FailOn("Reservation.Transition", errors.New("connection reset"))
	_, err := e.Reservations.Commit(context.Background(), &res, reservations.CommitRequest{PaymentMethodRef: harness.Method()})
	require.Error(t, err)
	require.Equal(t, domain.StatusHeld, e.Reload(t, res.ID).Status)

	// inside the grace period nothing happens
	e.Clock.Advance(time.Minute)
	assert.Equal(t, 0, uc.Run(context.Background()).Processed(PassReconcile))

	e.Clock.Advance(2 * time.Minute)
	report := uc.Run(context.Background())
	assert.Equal(t, 1, report.Processed(PassReconcile))

	stored := e.Reload(t, res.ID)
	assert.Equal(t, domain.StatusActive, stored.Status)
	assert.Equal(t, stored.Price.Total, stored.Captured)
	assert.Equal(t, 1, e.Authority.Calls("Capture"))

	ops := e.Store.PaymentOps()
	require.Len(t, ops, 1)
	assert.Equal(t, domain.PaymentOpApplied, ops[0].Status)
}

func TestRun_ResolvesAuthorizationWithLostResponse(t *testing.T) {
	e := harness.New()
	uc := newUseCase(e, e.Metrics)
	sp := e.AddSpot(true)
	claimant := uuid.New()
	res := e.Seed(t, sp, &claimant, harness.Interval(t, 30, 32), domain.StatusHeld, harness.Method())
	ctx := context.Background()

	op, err := e.Payments.Begin(ctx, payments.BeginRequest{
		ReservationID:  res.ID,
		Kind:           domain.PaymentKindAuthorize,
		Amount:         res.Price.Total,
		IdempotencyKey: reservations.AuthorizeKey(res.ID),
	})
	require.NoError(t, err)
	_, err = e.Authority.CreateAuthorization(ctx, payment.AuthorizationRequest{Amount: int64(op.Amount), PaymentMethod: harness.Method()}, op.IdempotencyKey)
	require.NoError(t, err)

	e.Clock.Advance(3 * time.Minute)
	report := uc.Run(ctx)
	assert.Equal(t, 1, report.Processed(PassReconcile))

	stored := e.Reload(t, res.ID)
	assert.Equal(t, domain.StatusActive, stored.Status)
	assert.Equal(t, res.Price.Total, stored.Captured)
	assert.Equal(t, 1, e.Authority.Intents())
}

func TestRun_FailingPassDoesNotStopOthers(t *testing.T) {
	e := harness.New()
	m := &recordingMetrics{}
	uc := newUseCase(e, m)
	sp := e.AddSpot(true)
	res := e.Committed(t, sp, uuid.New(), harness.Interval(t, 1, 3))
	e.Store.FailOn("Reservation.ListExpired", errors.New("connection reset"))

	e.Clock.Advance(4 * time.Hour)
	report := uc.Run(context.Background())

	assert.True(t, report.Failed())
	assert.Error(t, report.Passes[PassExpiry].Err)
	assert.Equal(t, 1, report.Processed(PassCompletion))
	assert.Equal(t, domain.StatusCompleted, e.Reload(t, res.ID).Status)
	assert.Equal(t, 1, m.runs[PassExpiry+"/error"])
}
