package refund_reservation

import "errors"

var (
	ErrInvalidAmount = errors.New("refund_reservation: invalid refund amount")
	ErrNotFound      = errors.New("refund_reservation: reservation not found")
	ErrAccessDenied  = errors.New("refund_reservation: access denied")
	ErrInvalidState  = errors.New("refund_reservation: reservation cannot be refunded")
	ErrPayment       = errors.New("refund_reservation: refund failed")
	ErrInternal      = errors.New("refund_reservation: internal error")
)
