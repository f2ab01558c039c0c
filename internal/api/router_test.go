package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-ParkingService/internal/api/handlers"
	approveReservationHandler "github.com/m04kA/SMC-ParkingService/internal/api/handlers/approve_reservation"
	cancelGuestReservationHandler "github.com/m04kA/SMC-ParkingService/internal/api/handlers/cancel_guest_reservation"
	cancelReservationHandler "github.com/m04kA/SMC-ParkingService/internal/api/handlers/cancel_reservation"
	checkAvailabilityHandler "github.com/m04kA/SMC-ParkingService/internal/api/handlers/check_availability"
	createGuestReservationHandler "github.com/m04kA/SMC-ParkingService/internal/api/handlers/create_guest_reservation"
	createHoldHandler "github.com/m04kA/SMC-ParkingService/internal/api/handlers/create_hold"
	createReservationHandler "github.com/m04kA/SMC-ParkingService/internal/api/handlers/create_reservation"
	declineReservationHandler "github.com/m04kA/SMC-ParkingService/internal/api/handlers/decline_reservation"
	extendReservationHandler "github.com/m04kA/SMC-ParkingService/internal/api/handlers/extend_reservation"
	finalizePaymentHandler "github.com/m04kA/SMC-ParkingService/internal/api/handlers/finalize_payment"
	getReservationHandler "github.com/m04kA/SMC-ParkingService/internal/api/handlers/get_reservation"
	listSpotReservationsHandler "github.com/m04kA/SMC-ParkingService/internal/api/handlers/list_spot_reservations"
	reconcileGuestHandler "github.com/m04kA/SMC-ParkingService/internal/api/handlers/reconcile_guest"
	refundReservationHandler "github.com/m04kA/SMC-ParkingService/internal/api/handlers/refund_reservation"
	releaseHoldHandler "github.com/m04kA/SMC-ParkingService/internal/api/handlers/release_hold"
	"github.com/m04kA/SMC-ParkingService/internal/domain"
	"github.com/m04kA/SMC-ParkingService/internal/integrations/identity"
	"github.com/m04kA/SMC-ParkingService/internal/integrations/payment"
	"github.com/m04kA/SMC-ParkingService/internal/service/ratelimit"
	"github.com/m04kA/SMC-ParkingService/internal/testutil/harness"
	approveReservationUC "github.com/m04kA/SMC-ParkingService/internal/usecase/approve_reservation"
	cancelReservationUC "github.com/m04kA/SMC-ParkingService/internal/usecase/cancel_reservation"
	checkAvailabilityUC "github.com/m04kA/SMC-ParkingService/internal/usecase/check_availability"
	createHoldUC "github.com/m04kA/SMC-ParkingService/internal/usecase/create_hold"
	createReservationUC "github.com/m04kA/SMC-ParkingService/internal/usecase/create_reservation"
	extendReservationUC "github.com/m04kA/SMC-ParkingService/internal/usecase/extend_reservation"
	finalizePaymentUC "github.com/m04kA/SMC-ParkingService/internal/usecase/finalize_payment"
	reconcileGuestUC "github.com/m04kA/SMC-ParkingService/internal/usecase/reconcile_guest"
	refundReservationUC "github.com/m04kA/SMC-ParkingService/internal/usecase/refund_reservation"
	releaseHoldUC "github.com/m04kA/SMC-ParkingService/internal/usecase/release_hold"
	"github.com/m04kA/SMC-ParkingService/pkg/metrics"
)

const testSecret = "router-test-secret"

type server struct {
	env      *harness.Env
	identity *identity.Provider
	router   http.Handler
}

// newServer policies nil disables rate limiting
func newServer(t *testing.T, policies map[string]ratelimit.Policy, m *metrics.Metrics) *server {
	t.Helper()
	e := harness.New()
	log := e.Logger

	checkAvailability := checkAvailabilityUC.NewUseCase(e.Store.SpotRepo(), e.Checker, e.Pricing,
		checkAvailabilityUC.Options{MinDuration: domain.DefaultMinBookingDuration, MaxDuration: domain.DefaultMaxBookingDuration}, log).
		WithTimeProvider(e.Clock)
	createHold := createHoldUC.NewUseCase(e.Store.HoldRepo(), e.Store.SpotRepo(), e.Checker, e.Store.TxManager(),
		createHoldUC.DefaultOptions(), e.Metrics, log).WithTimeProvider(e.Clock)
	createReservation := createReservationUC.NewUseCase(e.Store.ReservationRepo(), e.Store.HoldRepo(), e.Store.SpotRepo(),
		e.Checker, e.Reservations, e.Notifications, e.Store.TxManager(), createReservationUC.DefaultOptions(), e.Metrics, log).
		WithTimeProvider(e.Clock)
	approveReservation := approveReservationUC.NewUseCase(e.Store.ReservationRepo(), e.Checker, e.Reservations,
		e.Notifications, e.Store.TxManager(), log).WithTimeProvider(e.Clock)
	extendReservation := extendReservationUC.NewUseCase(e.Store.ReservationRepo(), e.Checker, e.Payments, e.Reservations,
		e.Notifications, domain.DefaultMaxExtension, log).WithTimeProvider(e.Clock)
	cancelReservation := cancelReservationUC.NewUseCase(e.Store.ReservationRepo(), e.Store.HoldRepo(), e.Reservations,
		e.Notifications, domain.DefaultRefundPolicy(), log).WithTimeProvider(e.Clock)
	refundReservation := refundReservationUC.NewUseCase(e.Store.ReservationRepo(), e.Reservations, e.Notifications, log).
		WithTimeProvider(e.Clock)
	finalizePayment := finalizePaymentUC.NewUseCase(e.Store.ReservationRepo(), e.Payments, e.Reservations, e.Notifications, log)

	pending := handlers.NewReconciliation(e.Store.ReservationRepo())
	h := Handlers{
		CheckAvailability:      checkAvailabilityHandler.NewHandler(checkAvailability, log),
		CreateHold:             createHoldHandler.NewHandler(createHold, log),
		ReleaseHold:            releaseHoldHandler.NewHandler(releaseHoldUC.NewUseCase(e.Store.HoldRepo(), log), log),
		CreateReservation:      createReservationHandler.NewHandler(createReservation, pending, log),
		CreateGuestReservation: createGuestReservationHandler.NewHandler(createReservation, pending, log),
		GetReservation:         getReservationHandler.NewHandler(e.Reservations, log),
		ListSpotReservations:   listSpotReservationsHandler.NewHandler(e.Reservations, log),
		ApproveReservation:     approveReservationHandler.NewHandler(approveReservation, pending, log),
		DeclineReservation:     declineReservationHandler.NewHandler(approveReservation, pending, log),
		ExtendReservation:      extendReservationHandler.NewHandler(extendReservation, pending, log),
		CancelReservation:      cancelReservationHandler.NewHandler(cancelReservation, pending, log),
		CancelGuestReservation: cancelGuestReservationHandler.NewHandler(cancelReservation, pending, log),
		RefundReservation:      refundReservationHandler.NewHandler(refundReservation, pending, log),
		FinalizePayment:        finalizePaymentHandler.NewHandler(finalizePayment, pending, log),
		ReconcileGuest:         reconcileGuestHandler.NewHandler(reconcileGuestUC.NewUseCase(e.Store.ReservationRepo(), log), log),
	}

	provider := identity.NewProvider(testSecret, "", "")
	opts := Options{Authenticator: provider, Metrics: m}
	if policies != nil {
		opts.Limiter = ratelimit.NewLimiter(e.Store.CounterRepo(), policies, e.Metrics, log)
	}

	return &server{env: e, identity: provider, router: NewRouter(h, opts, log)}
}

func (s *server) token(t *testing.T, id uuid.UUID, email string) string {
	t.Helper()
	tok, err := s.identity.Issue(identity.Subject{ID: id, Email: email}, time.Hour)
	require.NoError(t, err)
	return tok
}

func (s *server) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func TestRouter_AccountBookingFlow(t *testing.T) {
	s := newServer(t, nil, nil)
	sp := s.env.AddSpot(true)
	driver := uuid.New()
	tok := s.token(t, driver, "driver@example.com")
	start, end := handlers.FormatTime(harness.At(2)), handlers.FormatTime(harness.At(4))

	// anonymous search
	rec := s.do(t, http.MethodGet, "/api/v1/spots/"+sp.ID.String()+"/availability?start="+start+"&end="+end, "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var avail checkAvailabilityHandler.AvailabilityResponse
	decode(t, rec, &avail)
	assert.True(t, avail.Available)
	assert.InDelta(t, 22.0, avail.Quote.Total, 0.001)

	holdBody := createHoldHandler.CreateHoldRequest{Start: start, End: end, IdempotencyKey: "checkout-1"}
	rec = s.do(t, http.MethodPost, "/api/v1/spots/"+sp.ID.String()+"/holds", tok, holdBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var hold createHoldHandler.HoldResponse
	decode(t, rec, &hold)

	// same key, same request
	rec = s.do(t, http.MethodPost, "/api/v1/spots/"+sp.ID.String()+"/holds", tok, holdBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	method := *harness.Method()
	rec = s.do(t, http.MethodPost, "/api/v1/reservations", tok, createReservationHandler.CreateReservationRequest{
		HoldID:           hold.ID,
		SpotID:           sp.ID,
		Start:            start,
		End:              end,
		PaymentMethodRef: &method,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created createReservationHandler.ReservationResponse
	decode(t, rec, &created)
	assert.Equal(t, string(domain.StatusActive), created.Reservation.Status)
	require.NotNil(t, created.Payment)
	assert.Equal(t, string(domain.AuthorizationAuthorized), created.Payment.Status)

	id := created.Reservation.ID.String()
	rec = s.do(t, http.MethodGet, "/api/v1/reservations/"+id, tok, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var details getReservationHandler.ReservationDetailsResponse
	decode(t, rec, &details)
	assert.True(t, details.CanCancel)
	assert.False(t, details.ViewerIsOwner)
	assert.Equal(t, string(domain.StatusActive), details.EffectiveStatus)

	stranger := s.token(t, uuid.New(), "")
	rec = s.do(t, http.MethodGet, "/api/v1/reservations/"+id, stranger, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	calendar := "/api/v1/spots/" + sp.ID.String() + "/reservations?status=active,paid"
	rec = s.do(t, http.MethodGet, calendar, s.token(t, sp.OwnerID, ""), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var listed []handlers.ReservationResponse
	decode(t, rec, &listed)
	require.Len(t, listed, 1)
	assert.Equal(t, created.Reservation.ID, listed[0].ID)

	rec = s.do(t, http.MethodGet, calendar, tok, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/reservations/"+id+"/cancel", tok, cancelReservationHandler.CancelRequest{Reason: "plans changed"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var canceled cancelReservationHandler.CancelResponse
	decode(t, rec, &canceled)
	assert.Equal(t, string(domain.ActorClaimant), canceled.CanceledBy)
	assert.InDelta(t, 22.0, canceled.Refunded, 0.001)

	rec = s.do(t, http.MethodPost, "/api/v1/reservations/"+id+"/cancel", tok, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRouter_ReservationWriteLostAfterPayment(t *testing.T) {
	s := newServer(t, nil, nil)
	sp := s.env.AddSpot(true)
	driver := uuid.New()
	tok := s.token(t, driver, "driver@example.com")
	start, end := handlers.FormatTime(harness.At(2)), handlers.FormatTime(harness.At(4))

	rec := s.do(t, http.MethodPost, "/api/v1/spots/"+sp.ID.String()+"/holds", tok,
		createHoldHandler.CreateHoldRequest{Start: start, End: end, IdempotencyKey: "checkout-lost"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var hold createHoldHandler.HoldResponse
	decode(t, rec, &hold)

	s.env.Store.FailOn("Reservation.Transition", errors.New("connection reset"))
	method := *harness.Method()
	rec = s.do(t, http.MethodPost, "/api/v1/reservations", tok, createReservationHandler.CreateReservationRequest{
		HoldID:           hold.ID,
		SpotID:           sp.ID,
		Start:            start,
		End:              end,
		PaymentMethodRef: &method,
	})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	assert.Equal(t, "true", rec.Header().Get(handlers.HeaderReconciliationPending))

	var created createReservationHandler.ReservationResponse
	decode(t, rec, &created)
	require.NotEqual(t, uuid.Nil, created.Reservation.ID)
	assert.Equal(t, string(domain.StatusHeld), created.Reservation.Status)
	assert.Equal(t, sp.ID, created.Reservation.SpotID)
	assert.Nil(t, created.Payment)
	assert.Equal(t, 1, s.env.Authority.Calls("Capture"))
}

func TestRouter_CancelRefundedButNotRecorded(t *testing.T) {
	s := newServer(t, nil, nil)
	sp := s.env.AddSpot(true)
	driver := uuid.New()
	tok := s.token(t, driver, "driver@example.com")
	res := s.env.Committed(t, sp, driver, harness.Interval(t, 30, 32))

	s.env.Store.FailOn("Reservation.Transition", errors.New("connection reset"))
	rec := s.do(t, http.MethodPost, "/api/v1/reservations/"+res.ID.String()+"/cancel", tok,
		cancelReservationHandler.CancelRequest{Reason: "plans changed"})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	assert.Equal(t, "true", rec.Header().Get(handlers.HeaderReconciliationPending))

	var body cancelReservationHandler.CancelResponse
	decode(t, rec, &body)
	assert.Equal(t, res.ID, body.Reservation.ID)
	assert.Equal(t, string(domain.StatusActive), body.Reservation.Status)
	assert.InDelta(t, res.Captured.Decimal(), body.Reservation.Captured, 0.001)
	assert.Equal(t, domain.StatusActive, s.env.Reload(t, res.ID).Status)
}

func TestRouter_GuestCheckoutAndFinalize(t *testing.T) {
	s := newServer(t, nil, nil)
	sp := s.env.AddSpot(true)
	email := "guest@example.com"

	rec := s.do(t, http.MethodPost, "/api/v1/guest/reservations", "", createGuestReservationHandler.CreateGuestReservationRequest{
		SpotID: sp.ID,
		Start:  handlers.FormatTime(harness.At(3)),
		End:    handlers.FormatTime(harness.At(5)),
		Guest:  handlers.GuestRequest{FullName: "Sam Guest", Email: &email, Vehicle: "KA-123"},
	})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	var created createGuestReservationHandler.GuestReservationResponse
	decode(t, rec, &created)
	require.NotNil(t, created.Payment)
	require.NotNil(t, created.Payment.ClientSecret)
	ref := created.Payment.PaymentRef

	// the payer completes the challenge at the authority
	s.env.Authority.SetStatus(ref, payment.StatusRequiresCapture)

	rec = s.do(t, http.MethodPost, "/api/v1/payments/"+ref+"/finalize", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var finalized finalizePaymentHandler.FinalizeResponse
	decode(t, rec, &finalized)
	assert.Equal(t, string(domain.StatusPaid), finalized.Reservation.Status)

	id := created.Reservation.ID.String()
	rec = s.do(t, http.MethodPost, "/api/v1/guest/reservations/"+id+"/cancel", "",
		cancelGuestReservationHandler.GuestCancelRequest{Email: "someone@example.com"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/guest/reservations/"+id+"/cancel", "",
		cancelGuestReservationHandler.GuestCancelRequest{Email: "GUEST@example.com"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, domain.StatusCanceled, s.env.Reload(t, created.Reservation.ID).Status)
}

func TestRouter_ReconcileGuestUsesTokenEmail(t *testing.T) {
	s := newServer(t, nil, nil)
	sp := s.env.AddSpot(true)
	res := s.env.SeedGuest(t, sp, harness.Interval(t, 2, 4), domain.StatusPaid, "Driver@Example.com", "+1 555 010 1111")
	user := uuid.New()

	rec := s.do(t, http.MethodPost, "/api/v1/account/reconcile-guest", s.token(t, user, "driver@example.com"), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out reconcileGuestHandler.ReconcileResponse
	decode(t, rec, &out)
	assert.Equal(t, []uuid.UUID{res.ID}, out.Linked)

	stored := s.env.Reload(t, res.ID)
	require.NotNil(t, stored.ClaimantID)
	assert.Equal(t, user, *stored.ClaimantID)
}

func TestRouter_ProtectedRoutesNeedToken(t *testing.T) {
	s := newServer(t, nil, nil)
	id := uuid.NewString()

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/v1/spots/" + id + "/holds"},
		{http.MethodDelete, "/api/v1/holds/" + id},
		{http.MethodPost, "/api/v1/reservations"},
		{http.MethodGet, "/api/v1/reservations/" + id},
		{http.MethodPost, "/api/v1/reservations/" + id + "/approve"},
		{http.MethodPost, "/api/v1/reservations/" + id + "/decline"},
		{http.MethodPost, "/api/v1/reservations/" + id + "/extend"},
		{http.MethodPost, "/api/v1/reservations/" + id + "/cancel"},
		{http.MethodPost, "/api/v1/reservations/" + id + "/refund"},
		{http.MethodPost, "/api/v1/account/reconcile-guest"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := s.do(t, tt.method, tt.path, "", nil)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestRouter_SearchIsRateLimitedPerClient(t *testing.T) {
	s := newServer(t, map[string]ratelimit.Policy{ratelimit.OpSearch: ratelimit.NewPolicy(1, 0)}, nil)
	sp := s.env.AddSpot(true)
	path := "/api/v1/spots/" + sp.ID.String() + "/availability?start=" +
		handlers.FormatTime(harness.At(2)) + "&end=" + handlers.FormatTime(harness.At(4))

	rec := s.do(t, http.MethodGet, path, "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	m := metrics.NewWithRegistry("router_test", prometheus.NewRegistry())
	s := newServer(t, nil, m)

	rec := s.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
