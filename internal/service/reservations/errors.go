package reservations

import "errors"

var (
	// ErrNotFound reservation does not exist
	ErrNotFound = errors.New("reservations: reservation not found")

	// ErrAccessDenied viewer is neither the claimant nor the owner
	ErrAccessDenied = errors.New("reservations: access denied")

	// ErrNotApplicable a succeeded payment can no longer be applied to the reservation,
	// the payment has been compensated
	ErrNotApplicable = errors.New("reservations: payment no longer applicable")

	// ErrConcurrentUpdate another writer changed the reservation first
	ErrConcurrentUpdate = errors.New("reservations: reservation changed concurrently")

	// ErrInternal storage errors
	ErrInternal = errors.New("reservations: internal error")
)
