package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

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
	"github.com/m04kA/SMC-ParkingService/internal/api/middleware"
	"github.com/m04kA/SMC-ParkingService/internal/service/ratelimit"
	"github.com/m04kA/SMC-ParkingService/pkg/metrics"
)

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// Handlers one handler per endpoint
type Handlers struct {
	CheckAvailability      *checkAvailabilityHandler.Handler
	CreateHold             *createHoldHandler.Handler
	ReleaseHold            *releaseHoldHandler.Handler
	CreateReservation      *createReservationHandler.Handler
	CreateGuestReservation *createGuestReservationHandler.Handler
	GetReservation         *getReservationHandler.Handler
	ListSpotReservations   *listSpotReservationsHandler.Handler
	ApproveReservation     *approveReservationHandler.Handler
	DeclineReservation     *declineReservationHandler.Handler
	ExtendReservation      *extendReservationHandler.Handler
	CancelReservation      *cancelReservationHandler.Handler
	CancelGuestReservation *cancelGuestReservationHandler.Handler
	RefundReservation      *refundReservationHandler.Handler
	FinalizePayment        *finalizePaymentHandler.Handler
	ReconcileGuest         *reconcileGuestHandler.Handler
}

// Options cross-cutting HTTP concerns
type Options struct {
	Authenticator middleware.Authenticator
	Limiter       middleware.Limiter // nil disables rate limiting
	Metrics       *metrics.Metrics   // nil disables HTTP metrics and the scrape endpoint
	MetricsPath   string
}

type routeBuilder struct {
	auth     func(http.Handler) http.Handler
	optional func(http.Handler) http.Handler
	limiter  middleware.Limiter
	logger   Logger
}

// limit rate limiting runs after authentication so accounts are limited per user, anonymous callers per IP
func (b routeBuilder) limit(op string, h http.HandlerFunc) http.Handler {
	if b.limiter == nil || op == "" {
		return h
	}
	return middleware.RateLimit(b.limiter, op, b.logger)(h)
}

func (b routeBuilder) protected(op string, h http.HandlerFunc) http.Handler {
	return b.auth(b.limit(op, h))
}

func (b routeBuilder) optionalAuth(op string, h http.HandlerFunc) http.Handler {
	return b.optional(b.limit(op, h))
}

func (b routeBuilder) public(op string, h http.HandlerFunc) http.Handler {
	return b.limit(op, h)
}

// NewRouter mounts every endpoint under /api/v1
func NewRouter(h Handlers, opts Options, logger Logger) *mux.Router {
	r := mux.NewRouter()

	if opts.Metrics != nil {
		r.Use(middleware.MetricsMiddleware(opts.Metrics))
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, promhttp.Handler()).Methods(http.MethodGet)
	}

	b := routeBuilder{
		auth:     middleware.Auth(opts.Authenticator, logger),
		optional: middleware.OptionalAuth(opts.Authenticator, logger),
		limiter:  opts.Limiter,
		logger:   logger,
	}

	api := r.PathPrefix("/api/v1").Subrouter()

	// search and payment completion work with or without an account
	api.Handle("/spots/{spotId}/availability",
		b.optionalAuth(ratelimit.OpSearch, h.CheckAvailability.Handle)).Methods(http.MethodGet)
	api.Handle("/payments/{paymentRef}/finalize",
		b.optionalAuth(ratelimit.OpMutateReservation, h.FinalizePayment.Handle)).Methods(http.MethodPost)

	// guests
	api.Handle("/guest/reservations",
		b.public(ratelimit.OpGuestReservation, h.CreateGuestReservation.Handle)).Methods(http.MethodPost)
	api.Handle("/guest/reservations/{reservationId}/cancel",
		b.public(ratelimit.OpGuestReservation, h.CancelGuestReservation.Handle)).Methods(http.MethodPost)

	api.Handle("/spots/{spotId}/reservations",
		b.protected(ratelimit.OpSearch, h.ListSpotReservations.Handle)).Methods(http.MethodGet)

	// holds
	api.Handle("/spots/{spotId}/holds",
		b.protected(ratelimit.OpHoldCreate, h.CreateHold.Handle)).Methods(http.MethodPost)
	api.Handle("/holds/{holdId}",
		b.protected(ratelimit.OpHoldCreate, h.ReleaseHold.Handle)).Methods(http.MethodDelete)

	// reservations
	api.Handle("/reservations",
		b.protected(ratelimit.OpCreateReservation, h.CreateReservation.Handle)).Methods(http.MethodPost)
	api.Handle("/reservations/{reservationId}",
		b.protected("", h.GetReservation.Handle)).Methods(http.MethodGet)
	api.Handle("/reservations/{reservationId}/approve",
		b.protected(ratelimit.OpMutateReservation, h.ApproveReservation.Handle)).Methods(http.MethodPost)
	api.Handle("/reservations/{reservationId}/decline",
		b.protected(ratelimit.OpMutateReservation, h.DeclineReservation.Handle)).Methods(http.MethodPost)
	api.Handle("/reservations/{reservationId}/extend",
		b.protected(ratelimit.OpMutateReservation, h.ExtendReservation.Handle)).Methods(http.MethodPost)
	api.Handle("/reservations/{reservationId}/cancel",
		b.protected(ratelimit.OpMutateReservation, h.CancelReservation.Handle)).Methods(http.MethodPost)
	api.Handle("/reservations/{reservationId}/refund",
		b.protected(ratelimit.OpMutateReservation, h.RefundReservation.Handle)).Methods(http.MethodPost)

	// account
	api.Handle("/account/reconcile-guest",
		b.protected(ratelimit.OpMutateReservation, h.ReconcileGuest.Handle)).Methods(http.MethodPost)

	return r
}
