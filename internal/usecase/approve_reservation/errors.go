package approve_reservation

import "errors"

var (
	ErrNotFound      = errors.New("approve_reservation: reservation not found")
	ErrAccessDenied  = errors.New("approve_reservation: only the spot owner can decide")
	ErrInvalidState  = errors.New("approve_reservation: reservation is not awaiting approval")
	ErrExpired       = errors.New("approve_reservation: confirmation deadline passed")
	ErrInvalidReason = errors.New("approve_reservation: invalid decline reason")
	ErrNotAvailable  = errors.New("approve_reservation: interval no longer available")
	ErrPayment       = errors.New("approve_reservation: payment failed")
	ErrInternal      = errors.New("approve_reservation: internal error")
)
