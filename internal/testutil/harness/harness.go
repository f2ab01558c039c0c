// Package harness wires the booking services over the in-memory store for use case tests.
package harness

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-ParkingService/internal/domain"
	"github.com/m04kA/SMC-ParkingService/internal/service/availability"
	"github.com/m04kA/SMC-ParkingService/internal/service/notifications"
	"github.com/m04kA/SMC-ParkingService/internal/service/payments"
	"github.com/m04kA/SMC-ParkingService/internal/service/reservations"
	"github.com/m04kA/SMC-ParkingService/internal/testutil"
	"github.com/m04kA/SMC-ParkingService/pkg/logger"
	"github.com/m04kA/SMC-ParkingService/pkg/metrics"
)

// Start default clock position, a Monday morning
var Start = time.Date(2030, 6, 10, 8, 0, 0, 0, time.UTC)

type Env struct {
	Clock         *testutil.Clock
	Store         *testutil.Store
	Authority     *testutil.Authority
	Publisher     *testutil.Publisher
	Checker       *availability.Checker
	Payments      *payments.Orchestrator
	Reservations  *reservations.Service
	Notifications *notifications.Service
	Pricing       domain.PricingPolicy
	Logger        *logger.Logger
	Metrics       *metrics.Metrics // nil, all methods are no-ops
}

func New() *Env {
	clock := testutil.NewClock(Start)
	store := testutil.NewStore(clock)
	authority := testutil.NewAuthority()
	publisher := &testutil.Publisher{}
	log := logger.NewNop()
	var m *metrics.Metrics
	pricing := domain.DefaultPricingPolicy()

	checker := availability.NewChecker(store.ReservationRepo(), store.HoldRepo(), store.SpotRepo()).WithTimeProvider(clock)
	orch := payments.NewOrchestrator(authority, store.PaymentOpRepo(), m, log)
	svc := reservations.NewService(store.ReservationRepo(), checker, orch, store.TxManager(), pricing, domain.DefaultReviewWindow, m, log).
		WithTimeProvider(clock)

	return &Env{
		Clock:         clock,
		Store:         store,
		Authority:     authority,
		Publisher:     publisher,
		Checker:       checker,
		Payments:      orch,
		Reservations:  svc,
		Notifications: notifications.NewService(store.NotificationRepo(), publisher, log),
		Pricing:       pricing,
		Logger:        log,
		Metrics:       m,
	}
}

// At hours after Start
func At(hours int) time.Time {
	return Start.Add(time.Duration(hours) * time.Hour)
}

// Interval [At(from), At(to))
func Interval(t *testing.T, from, to int) domain.Interval {
	t.Helper()
	iv, err := domain.NewInterval(At(from), At(to))
	require.NoError(t, err)
	return iv
}

// AddSpot active $10/h spot with a fresh owner
func (e *Env) AddSpot(instantBook bool) domain.ParkingSpot {
	sp := domain.ParkingSpot{
		ID:            uuid.New(),
		OwnerID:       uuid.New(),
		Title:         "Driveway",
		HourlyRate:    1000,
		InstantBook:   instantBook,
		HasEVCharging: true,
		EVPremium:     200,
		IsActive:      true,
	}
	e.Store.AddSpot(sp)
	return sp
}

// Seed stores a reservation in status without touching the payment authority
func (e *Env) Seed(t *testing.T, sp domain.ParkingSpot, claimant *uuid.UUID, iv domain.Interval, status domain.ReservationStatus, method *string) domain.Reservation {
	t.Helper()
	now := e.Clock.Now()
	res := domain.Reservation{
		ID:               uuid.New(),
		SpotID:           sp.ID,
		OwnerID:          sp.OwnerID,
		ClaimantID:       claimant,
		Interval:         iv,
		Status:           status,
		Price:            e.Pricing.Calculate(sp.PriceInput(iv, false)),
		PaymentMethodRef: method,
		ConfirmDeadline:  now.Add(domain.DefaultReservationDeadline),
		ReviewDeadline:   iv.End.Add(domain.DefaultReviewWindow),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	e.Store.PutReservation(res)
	stored, ok := e.Store.Reservation(res.ID)
	require.True(t, ok)
	return stored
}

// Committed held reservation authorized and captured through the real payment path
func (e *Env) Committed(t *testing.T, sp domain.ParkingSpot, claimant uuid.UUID, iv domain.Interval) domain.Reservation {
	t.Helper()
	res := e.Seed(t, sp, &claimant, iv, domain.StatusHeld, Method())

	result, err := e.Reservations.Commit(context.Background(), &res, reservations.CommitRequest{PaymentMethodRef: Method()})
	require.NoError(t, err)
	require.True(t, result.Outcome.Authorized())

	stored, ok := e.Store.Reservation(res.ID)
	require.True(t, ok)
	require.Equal(t, domain.StatusActive, stored.Status)
	return stored
}

// Reload current stored state
func (e *Env) Reload(t *testing.T, id uuid.UUID) domain.Reservation {
	t.Helper()
	res, ok := e.Store.Reservation(id)
	require.True(t, ok)
	return res
}

// Sent stored notifications of type t
func (e *Env) Sent(t domain.NotificationType) []domain.Notification {
	out := make([]domain.Notification, 0)
	for _, n := range e.Store.StoredNotifications() {
		if n.Type == t {
			out = append(out, n)
		}
	}
	return out
}

// Method stored payer method reference
func Method() *string {
	pm := "pm_card_visa"
	return &pm
}

// SeedGuest stores a guest reservation reachable by email and phone
func (e *Env) SeedGuest(t *testing.T, sp domain.ParkingSpot, iv domain.Interval, status domain.ReservationStatus, email, phone string) domain.Reservation {
	t.Helper()
	res := e.Seed(t, sp, nil, iv, status, nil)
	res.Guest = &domain.GuestIdentity{FullName: "Sam Guest", Email: &email, Phone: &phone, Vehicle: "KA-123"}
	e.Store.PutReservation(res)
	return e.Reload(t, res.ID)
}
