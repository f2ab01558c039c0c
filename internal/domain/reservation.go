package domain

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// ReservationStatus represents the status of a reservation
type ReservationStatus string

const (
	StatusPending   ReservationStatus = "pending"   // awaiting owner approval, non-instant-book only
	StatusHeld      ReservationStatus = "held"      // slot held while payment is authorized or confirmed
	StatusActive    ReservationStatus = "active"    // committed, stored payment method
	StatusPaid      ReservationStatus = "paid"      // committed, new checkout payment
	StatusCompleted ReservationStatus = "completed" // interval elapsed
	StatusCanceled  ReservationStatus = "canceled"
	StatusRefunded  ReservationStatus = "refunded"
	StatusDeclined  ReservationStatus = "declined"
)

// validTransitions every status change goes through this table
var validTransitions = map[ReservationStatus][]ReservationStatus{
	StatusPending:   {StatusHeld, StatusDeclined, StatusCanceled},
	StatusHeld:      {StatusActive, StatusPaid, StatusCanceled},
	StatusActive:    {StatusCompleted, StatusCanceled, StatusRefunded},
	StatusPaid:      {StatusCompleted, StatusCanceled, StatusRefunded},
	StatusCompleted: {StatusRefunded},
	StatusCanceled:  {},
	StatusRefunded:  {},
	StatusDeclined:  {},
}

// BlockingStatuses statuses that occupy the spot for availability purposes
var BlockingStatuses = []ReservationStatus{
	StatusPending,
	StatusHeld,
	StatusActive,
	StatusPaid,
}

// AwaitingConfirmationStatuses statuses reaped by the sweeper after the confirmation deadline
var AwaitingConfirmationStatuses = []ReservationStatus{
	StatusPending,
	StatusHeld,
}

// CommittedStatuses statuses with money captured and the interval in effect
var CommittedStatuses = []ReservationStatus{
	StatusActive,
	StatusPaid,
}

// ParseReservationStatus validates a raw status value
func ParseReservationStatus(s string) (ReservationStatus, error) {
	st := ReservationStatus(s)
	if _, ok := validTransitions[st]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
	return st, nil
}

// CanTransitionTo checks the transition table
func (s ReservationStatus) CanTransitionTo(next ReservationStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s ReservationStatus) IsBlocking() bool {
	return containsStatus(BlockingStatuses, s)
}

func (s ReservationStatus) IsCommitted() bool {
	return containsStatus(CommittedStatuses, s)
}

func (s ReservationStatus) IsAwaitingConfirmation() bool {
	return containsStatus(AwaitingConfirmationStatuses, s)
}

func (s ReservationStatus) IsTerminal() bool {
	return len(validTransitions[s]) == 0
}

func containsStatus(list []ReservationStatus, s ReservationStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// StatusStrings converts statuses for SQL IN filters
func StatusStrings(statuses []ReservationStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// CancellationActor who canceled a reservation
type CancellationActor string

const (
	ActorClaimant CancellationActor = "claimant"
	ActorGuest    CancellationActor = "guest"
	ActorOwner    CancellationActor = "owner"
	ActorSystem   CancellationActor = "system"
)

// Reservation represents a booking of a parking spot
type Reservation struct {
	ID      uuid.UUID
	SpotID  uuid.UUID
	OwnerID uuid.UUID

	// ClaimantID is nil for guest reservations until they are reconciled to an account
	ClaimantID *uuid.UUID
	Guest      *GuestIdentity

	Interval   Interval
	Status     ReservationStatus
	Price      PriceBreakdown
	EVCharging bool

	Captured Money
	Refunded Money

	PaymentRef       *string // authorization at the payment authority
	PaymentMethodRef *string // stored reusable payer method, nil for new checkout
	RefundRef        *string

	CancellationReason *string
	CanceledBy         *CancellationActor
	CanceledAt         *time.Time

	ExtensionCount int
	LastExtendedAt *time.Time

	ConfirmDeadline time.Time
	ReviewDeadline  time.Time

	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsGuest true when the reservation was made without an account
func (r *Reservation) IsGuest() bool {
	return r.ClaimantID == nil
}

// IsClaimant reports whether userID made the reservation
func (r *Reservation) IsClaimant(userID uuid.UUID) bool {
	return r.ClaimantID != nil && *r.ClaimantID == userID
}

// IsOwner reports whether userID owns the reserved spot
func (r *Reservation) IsOwner(userID uuid.UUID) bool {
	return r.OwnerID == userID
}

// IsEffectivelyCompleted end time passed while still committed
func (r *Reservation) IsEffectivelyCompleted(now time.Time) bool {
	return r.Status.IsCommitted() && !now.Before(r.Interval.End)
}

// EffectiveStatus status consumers should use, completion is derived at read time
func (r *Reservation) EffectiveStatus(now time.Time) ReservationStatus {
	if r.IsEffectivelyCompleted(now) {
		return StatusCompleted
	}
	return r.Status
}

// Refundable amount captured and not yet returned
func (r *Reservation) Refundable() Money {
	return r.Captured - r.Refunded
}

// ReminderAt moment the confirmation reminder becomes due
func (r *Reservation) ReminderAt(fraction float64) time.Time {
	window := r.ConfirmDeadline.Sub(r.CreatedAt)
	return r.CreatedAt.Add(time.Duration(math.Round(float64(window) * fraction)))
}

// IsConfirmationExpired still awaiting confirmation after the deadline
func (r *Reservation) IsConfirmationExpired(now time.Time) bool {
	return r.Status.IsAwaitingConfirmation() && !now.Before(r.ConfirmDeadline)
}

// CanBeExtended only committed reservations that have not ended yet
func (r *Reservation) CanBeExtended(now time.Time) bool {
	return r.Status.IsCommitted() && now.Before(r.Interval.End)
}

// CanBeCancelled any non-terminal, not yet completed reservation
func (r *Reservation) CanBeCancelled(now time.Time) bool {
	if r.IsEffectivelyCompleted(now) {
		return false
	}
	return r.Status.CanTransitionTo(StatusCanceled)
}

// ReservationsFilter range query over a spot's reservations
type ReservationsFilter struct {
	SpotID               uuid.UUID
	Overlapping          *Interval
	Statuses             []ReservationStatus
	ExcludeClaimantID    *uuid.UUID
	ExcludeReservationID *uuid.UUID
}

// ReservationExtension history entry written on every applied extension
type ReservationExtension struct {
	ID            uuid.UUID
	ReservationID uuid.UUID
	OldEnd        time.Time
	NewEnd        time.Time
	Amount        Money
	PaymentRef    string
	CreatedAt     time.Time
}
