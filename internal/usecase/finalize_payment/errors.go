package finalize_payment

import "errors"

var (
	ErrInvalidInput = errors.New("finalize_payment: invalid input data")
	ErrNotFound     = errors.New("finalize_payment: payment not found")
	ErrAccessDenied = errors.New("finalize_payment: payment belongs to another account")
	ErrInvalidState = errors.New("finalize_payment: reservation no longer awaits this payment")
	ErrPayment      = errors.New("finalize_payment: payment authority unavailable")
	ErrInternal     = errors.New("finalize_payment: internal error")
)
