package payments

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
	"github.com/m04kA/SMC-ParkingService/internal/testutil"
	"github.com/m04kA/SMC-ParkingService/pkg/errs"
	"github.com/m04kA/SMC-ParkingService/pkg/logger"
)

type recordingMetrics struct {
	mu              sync.Mutex
	payments        map[string]int
	inconsistencies int
}

func (m *recordingMetrics) IncPayment(operation, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.payments == nil {
		m.payments = make(map[string]int)
	}
	m.payments[operation+"/"+outcome]++
}

func (m *recordingMetrics) IncInconsistency(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inconsistencies++
}

type fixture struct {
	store     *testutil.Store
	authority *testutil.Authority
	metrics   *recordingMetrics
	orch      *Orchestrator
}

func newFixture() *fixture {
	clock := testutil.NewClock(time.Date(2030, 5, 1, 9, 0, 0, 0, time.UTC))
	store := testutil.NewStore(clock)
	authority := testutil.NewAuthority()
	m := &recordingMetrics{}
	return &fixture{
		store:     store,
		authority: authority,
		metrics:   m,
		orch:      NewOrchestrator(authority, store.PaymentOpRepo(), m, logger.NewNop()),
	}
}

func (f *fixture) begin(t *testing.T, key string, amount domain.Money) *domain.PaymentOperation {
	t.Helper()
	op, err := f.orch.Begin(context.Background(), BeginRequest{
		ReservationID:  uuid.New(),
		Kind:           domain.PaymentKindAuthorize,
		Amount:         amount,
		IdempotencyKey: key,
	})
	require.NoError(t, err)
	return op
}

func stored() *string {
	pm := "pm_card_visa"
	return &pm
}

func TestAuthorize_StoredMethodCapturesImmediately(t *testing.T) {
	f := newFixture()
	op := f.begin(t, "k1", 2200)

	out, err := f.orch.Authorize(context.Background(), op, AuthorizeRequest{PaymentMethodRef: stored()})
	require.NoError(t, err)
	require.True(t, out.Authorized())

	intent, ok := f.authority.Intent(out.PaymentRef)
	require.True(t, ok)
	assert.Equal(t, payment.StatusSucceeded, intent.Status)
	assert.Equal(t, int64(2200), intent.AmountCaptured)

	assert.Equal(t, domain.PaymentOpSucceeded, op.Status)
	assert.Equal(t, out.PaymentRef, *op.PaymentRef)
}

func TestAuthorize_NewCheckoutRequiresActionThenFinalize(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	op := f.begin(t, "k1", 1500)

	out, err := f.orch.Authorize(ctx, op, AuthorizeRequest{})
	require.NoError(t, err)
	require.True(t, out.RequiresAction())
	assert.NotEmpty(t, out.ClientSecret)
	assert.Equal(t, domain.PaymentOpRequiresAction, op.Status)

	// still waiting for the payer
	again, err := f.orch.Finalize(ctx, op, true)
	require.NoError(t, err)
	assert.True(t, again.RequiresAction())

	f.authority.SetStatus(out.PaymentRef, payment.StatusRequiresCapture)

	final, err := f.orch.Finalize(ctx, op, true)
	require.NoError(t, err)
	assert.True(t, final.Authorized())
	assert.Equal(t, domain.PaymentOpSucceeded, op.Status)
	assert.Equal(t, 1, f.authority.Calls("Capture"))

	// finalize is idempotent once succeeded
	replay, err := f.orch.Finalize(ctx, op, true)
	require.NoError(t, err)
	assert.True(t, replay.Authorized())
	assert.Equal(t, 1, f.authority.Calls("Capture"))
}

func TestAuthorize_DeclinedMethodFails(t *testing.T) {
	f := newFixture()
	f.authority.ConfirmStatus = payment.StatusRequiresPaymentMethod
	op := f.begin(t, "k1", 1500)

	out, err := f.orch.Authorize(context.Background(), op, AuthorizeRequest{PaymentMethodRef: stored()})
	require.NoError(t, err)
	assert.True(t, out.Failed())
	assert.Equal(t, domain.PaymentOpFailed, op.Status)
	assert.Equal(t, 0, f.authority.Calls("Capture"))
}

func TestAuthorize_TransportErrorLeavesOperationPending(t *testing.T) {
	f := newFixture()
	f.authority.FailNext("CreateAuthorization", payment.ErrUnavailable)
	op := f.begin(t, "k1", 1500)

	_, err := f.orch.Authorize(context.Background(), op, AuthorizeRequest{PaymentMethodRef: stored()})
	require.ErrorIs(t, err, ErrExternal)
	assert.Equal(t, domain.PaymentOpPending, op.Status)
}

func TestAuthorize_RetryFindsEarlierAuthorization(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	reservationID := uuid.New()
	req := BeginRequest{
		ReservationID:  reservationID,
		Kind:           domain.PaymentKindAuthorize,
		Amount:         1500,
		IdempotencyKey: "reservation:x:authorize",
	}

	first, err := f.orch.Begin(ctx, req)
	require.NoError(t, err)

	// the first attempt reached the authority but its response was lost
	_, err = f.authority.CreateAuthorization(ctx, payment.AuthorizationRequest{Amount: 1500, PaymentMethod: stored()}, first.IdempotencyKey)
	require.NoError(t, err)

	retry, err := f.orch.Begin(ctx, req)
	require.NoError(t, err)
	require.True(t, retry.Resumed)
	assert.Equal(t, first.ID, retry.ID)

	out, err := f.orch.Authorize(ctx, retry, AuthorizeRequest{PaymentMethodRef: stored()})
	require.NoError(t, err)
	assert.True(t, out.Authorized())
	assert.Equal(t, 1, f.authority.Intents())
	assert.Equal(t, 1, f.authority.Calls("FindByIdempotencyKey"))
}

func TestBegin_KeyReusedForOtherReservation(t *testing.T) {
	f := newFixture()
	f.begin(t, "shared", 100)

	_, err := f.orch.Begin(context.Background(), BeginRequest{
		ReservationID:  uuid.New(),
		Kind:           domain.PaymentKindAuthorize,
		Amount:         100,
		IdempotencyKey: "shared",
	})
	assert.ErrorIs(t, err, ErrIdempotencyMismatch)
}

func TestAuthorize_StateWriteFailureIsInconsistent(t *testing.T) {
	f := newFixture()
	op := f.begin(t, "k1", 2200)
	f.store.FailOn("PaymentOp.UpdateStatus.succeeded", errors.New("connection reset"))

	_, err := f.orch.Authorize(context.Background(), op, AuthorizeRequest{PaymentMethodRef: stored()})
	require.Error(t, err)
	assert.True(t, errs.IsInconsistent(err))
	assert.Equal(t, 1, f.metrics.inconsistencies)

	// money moved, the log still says pending so the reconcile pass picks it up
	ops := f.store.PaymentOps()
	require.Len(t, ops, 1)
	assert.Equal(t, domain.PaymentOpPending, ops[0].Status)
}

func TestRefund_ReplayDoesNotRefundTwice(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	auth := f.begin(t, "k1", 2200)
	out, err := f.orch.Authorize(ctx, auth, AuthorizeRequest{PaymentMethodRef: stored()})
	require.NoError(t, err)

	ref := out.PaymentRef
	op, err := f.orch.Begin(ctx, BeginRequest{
		ReservationID:  auth.ReservationID,
		Kind:           domain.PaymentKindRefund,
		Amount:         2200,
		IdempotencyKey: "k1:refund",
		PaymentRef:     &ref,
	})
	require.NoError(t, err)

	refundID, err := f.orch.Refund(ctx, op)
	require.NoError(t, err)
	assert.NotEmpty(t, refundID)
	assert.Equal(t, domain.PaymentOpSucceeded, op.Status)

	replayID, err := f.orch.Refund(ctx, op)
	require.NoError(t, err)
	assert.Equal(t, refundID, replayID)
	assert.Equal(t, int64(2200), f.authority.Refunded(ref))
}

func TestRefund_ExceedingCapturedIsDeclined(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	auth := f.begin(t, "k1", 1000)
	out, err := f.orch.Authorize(ctx, auth, AuthorizeRequest{PaymentMethodRef: stored()})
	require.NoError(t, err)

	ref := out.PaymentRef
	op, err := f.orch.Begin(ctx, BeginRequest{
		ReservationID:  auth.ReservationID,
		Kind:           domain.PaymentKindRefund,
		Amount:         5000,
		IdempotencyKey: "k1:refund",
		PaymentRef:     &ref,
	})
	require.NoError(t, err)

	_, err = f.orch.Refund(ctx, op)
	assert.ErrorIs(t, err, ErrDeclined)
	assert.Equal(t, domain.PaymentOpFailed, op.Status)
}

func TestVoid_ReleasesUncapturedAuthorization(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	auth := f.begin(t, "k1", 1000)
	out, err := f.orch.Authorize(ctx, auth, AuthorizeRequest{})
	require.NoError(t, err)
	require.True(t, out.RequiresAction())

	ref := out.PaymentRef
	op, err := f.orch.Begin(ctx, BeginRequest{
		ReservationID:  auth.ReservationID,
		Kind:           domain.PaymentKindVoid,
		IdempotencyKey: "k1:void",
		PaymentRef:     &ref,
	})
	require.NoError(t, err)

	require.NoError(t, f.orch.Void(ctx, op))
	intent, _ := f.authority.Intent(ref)
	assert.Equal(t, payment.StatusCanceled, intent.Status)
	assert.Equal(t, domain.PaymentOpSucceeded, op.Status)
}

func TestCompensate_RefundsAndClosesOperation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	op := f.begin(t, "k1", 1800)
	out, err := f.orch.Authorize(ctx, op, AuthorizeRequest{PaymentMethodRef: stored()})
	require.NoError(t, err)

	require.NoError(t, f.orch.Compensate(ctx, op))
	assert.Equal(t, domain.PaymentOpCompensated, op.Status)
	assert.Equal(t, int64(1800), f.authority.Refunded(out.PaymentRef))
}

func TestListStale(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	now := time.Date(2030, 5, 1, 9, 0, 0, 0, time.UTC)

	f.begin(t, "pending", 100)
	done := f.begin(t, "done", 100)
	require.NoError(t, f.orch.MarkFailed(ctx, done, "declined"))

	stale, err := f.orch.ListStale(ctx, now.Add(5*time.Minute), 2*time.Minute, 10)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "pending", stale[0].IdempotencyKey)

	fresh, err := f.orch.ListStale(ctx, now, 2*time.Minute, 10)
	require.NoError(t, err)
	assert.Empty(t, fresh)
}
