package create_hold

import "errors"

var (
	// ErrInvalidInput malformed request
	ErrInvalidInput = errors.New("create_hold: invalid input data")

	// ErrInvalidInterval empty, reversed, past or out of bounds interval
	ErrInvalidInterval = errors.New("create_hold: invalid interval")

	// ErrSpotNotFound spot does not exist
	ErrSpotNotFound = errors.New("create_hold: spot not found")

	// ErrSpotInactive spot is not listed
	ErrSpotInactive = errors.New("create_hold: spot is not active")

	// ErrOwnSpot owners cannot book their own spot
	ErrOwnSpot = errors.New("create_hold: cannot hold your own spot")

	// ErrIdempotencyMismatch key already used for a different spot, claimant or interval
	ErrIdempotencyMismatch = errors.New("create_hold: idempotency key reused with different parameters")

	// ErrInternal storage errors
	ErrInternal = errors.New("create_hold: internal error")
)

// conflictError rolls the transaction back and becomes a Conflict result
type conflictError struct {
	reason string
}

func (e *conflictError) Error() string {
	return "create_hold: interval not available: " + e.reason
}

var errDuplicateKey = errors.New("create_hold: idempotency key inserted concurrently")
