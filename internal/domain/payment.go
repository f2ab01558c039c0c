package domain

import (
	"time"

	"github.com/google/uuid"
)

// PaymentOperationKind what a saga step is doing at the payment authority
type PaymentOperationKind string

const (
	PaymentKindAuthorize PaymentOperationKind = "authorize"
	PaymentKindExtension PaymentOperationKind = "extension"
	PaymentKindRefund    PaymentOperationKind = "refund"
	PaymentKindVoid      PaymentOperationKind = "void"
)

// PaymentOperationStatus saga marker. Succeeded without Applied means
// money moved and the reservation write is still pending.
type PaymentOperationStatus string

const (
	PaymentOpPending        PaymentOperationStatus = "pending"
	PaymentOpRequiresAction PaymentOperationStatus = "requires_action"
	PaymentOpSucceeded      PaymentOperationStatus = "succeeded"
	PaymentOpApplied        PaymentOperationStatus = "applied"
	PaymentOpFailed         PaymentOperationStatus = "failed"
	PaymentOpCompensated    PaymentOperationStatus = "compensated"
)

// PaymentOperation saga log entry pairing one payment mutation with one reservation mutation
type PaymentOperation struct {
	ID             uuid.UUID
	ReservationID  uuid.UUID
	Kind           PaymentOperationKind
	Status         PaymentOperationStatus
	Amount         Money
	PaymentRef     *string
	IdempotencyKey string
	RequestedEnd   *time.Time         // extension target
	TargetStatus   *ReservationStatus // status the reservation moves to once applied
	Error          *string
	CreatedAt      time.Time
	UpdatedAt      time.Time

	// Resumed loaded from an earlier attempt with the same idempotency key, not persisted
	Resumed bool
}

// NeedsApply payment confirmed at the authority, reservation not yet updated
func (o *PaymentOperation) NeedsApply() bool {
	return o.Status == PaymentOpSucceeded
}

// IsFinal nothing left to do for this operation
func (o *PaymentOperation) IsFinal() bool {
	return o.Status == PaymentOpApplied || o.Status == PaymentOpFailed || o.Status == PaymentOpCompensated
}

// AuthorizationStatus normalized outcome reported by the payment authority
type AuthorizationStatus string

const (
	AuthorizationAuthorized     AuthorizationStatus = "authorized"
	AuthorizationRequiresAction AuthorizationStatus = "requires_action"
	AuthorizationFailed         AuthorizationStatus = "failed"
)
