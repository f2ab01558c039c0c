package reservations

import (
	"github.com/google/uuid"

	"github.com/m04kA/SMC-ParkingService/internal/domain"
	"github.com/m04kA/SMC-ParkingService/internal/service/payments"
)

// Details reservation with state derived at read time
type Details struct {
	Reservation     *domain.Reservation
	EffectiveStatus domain.ReservationStatus
	CanCancel       bool
	CanExtend       bool
	ViewerIsOwner   bool
}

// ListRequest owner's view of a spot calendar. Nil Interval lists every reservation,
// empty Statuses lists every status.
type ListRequest struct {
	SpotID   uuid.UUID
	ViewerID uuid.UUID
	Interval *domain.Interval
	Statuses []domain.ReservationStatus
}

// Cancellation who canceled and why
type Cancellation struct {
	Reason string
	Actor  domain.CancellationActor
}

// ApplyOptions context the saga log does not carry
type ApplyOptions struct {
	Cancellation *Cancellation
	RefundRef    string
}

// CommitRequest authorization of a held reservation's total.
// A nil PaymentMethodRef starts a new checkout.
type CommitRequest struct {
	PaymentMethodRef *string
}

// CommitResult reservation after the authorization attempt
type CommitResult struct {
	Reservation *domain.Reservation
	Outcome     *payments.Outcome
}

// ReverseRequest undo the money side of a reservation and move it to Target.
// Amount is refunded when something was captured, otherwise the authorization is voided.
type ReverseRequest struct {
	Target         domain.ReservationStatus
	Amount         domain.Money
	Cancellation   *Cancellation
	IdempotencyKey string
}
