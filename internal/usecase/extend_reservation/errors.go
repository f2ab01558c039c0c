package extend_reservation

import "errors"

var (
	// ErrInvalidInput malformed request
	ErrInvalidInput = errors.New("extend_reservation: invalid input data")

	// ErrInvalidEnd new end not after the current end or beyond the maximum extension
	ErrInvalidEnd = errors.New("extend_reservation: invalid new end")

	// ErrNotFound reservation does not exist
	ErrNotFound = errors.New("extend_reservation: reservation not found")

	// ErrAccessDenied only the claimant extends
	ErrAccessDenied = errors.New("extend_reservation: only the claimant can extend")

	// ErrInvalidState reservation not committed or already ended
	ErrInvalidState = errors.New("extend_reservation: reservation cannot be extended")

	// ErrNotAvailable extension interval taken
	ErrNotAvailable = errors.New("extend_reservation: extension interval not available")

	// ErrPayment payment could not be attempted
	ErrPayment = errors.New("extend_reservation: payment failed")

	// ErrInternal storage errors
	ErrInternal = errors.New("extend_reservation: internal error")
)
