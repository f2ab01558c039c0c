package cancel_reservation

import "errors"

var (
	ErrInvalidInput  = errors.New("cancel_reservation: invalid input")
	ErrInvalidReason = errors.New("cancel_reservation: invalid cancellation reason")
	ErrNotFound      = errors.New("cancel_reservation: reservation not found")
	ErrAccessDenied  = errors.New("cancel_reservation: access denied")
	ErrInvalidState  = errors.New("cancel_reservation: reservation cannot be canceled")
	ErrPayment       = errors.New("cancel_reservation: refund failed")
	ErrInternal      = errors.New("cancel_reservation: internal error")
)
