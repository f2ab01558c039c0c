package create_reservation

import "errors"

var (
	// ErrInvalidInput malformed request
	ErrInvalidInput = errors.New("create_reservation: invalid input data")

	// ErrInvalidInterval empty, reversed, past or out of bounds interval
	ErrInvalidInterval = errors.New("create_reservation: invalid interval")

	// ErrInvalidGuest incomplete guest contact data
	ErrInvalidGuest = errors.New("create_reservation: invalid guest identity")

	// ErrHoldNotFound hold missing or already consumed
	ErrHoldNotFound = errors.New("create_reservation: hold not found")

	// ErrHoldExpired hold lapsed before checkout completed
	ErrHoldExpired = errors.New("create_reservation: hold expired")

	// ErrHoldMismatch hold taken for another spot or interval
	ErrHoldMismatch = errors.New("create_reservation: hold does not cover the requested interval")

	// ErrAccessDenied hold belongs to another claimant
	ErrAccessDenied = errors.New("create_reservation: hold belongs to another claimant")

	// ErrSpotNotFound spot does not exist
	ErrSpotNotFound = errors.New("create_reservation: spot not found")

	// ErrSpotInactive spot is not listed
	ErrSpotInactive = errors.New("create_reservation: spot is not active")

	// ErrOwnSpot owners cannot book their own spot
	ErrOwnSpot = errors.New("create_reservation: cannot book your own spot")

	// ErrEVNotSupported EV charging requested on a spot without a charger
	ErrEVNotSupported = errors.New("create_reservation: spot has no EV charging")

	// ErrNotAvailable interval taken, a conflict rather than a failure
	ErrNotAvailable = errors.New("create_reservation: interval not available")

	// ErrPayment payment could not be attempted, the reservation stays held until it expires
	ErrPayment = errors.New("create_reservation: payment failed")

	// ErrInternal storage errors
	ErrInternal = errors.New("create_reservation: internal error")
)
