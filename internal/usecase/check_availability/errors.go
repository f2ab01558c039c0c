package check_availability

import "errors"

var (
	// ErrInvalidInput malformed request
	ErrInvalidInput = errors.New("check_availability: invalid input data")

	// ErrInvalidInterval empty, reversed, past or out of bounds interval
	ErrInvalidInterval = errors.New("check_availability: invalid interval")

	// ErrSpotNotFound spot does not exist or is not listed
	ErrSpotNotFound = errors.New("check_availability: spot not found")

	// ErrEVNotSupported EV charging requested on a spot without a charger
	ErrEVNotSupported = errors.New("check_availability: spot has no EV charging")

	// ErrInternal storage errors
	ErrInternal = errors.New("check_availability: internal error")
)
