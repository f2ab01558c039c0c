package payment

import "errors"

var (
	// ErrNotFound the authority has no object with this reference
	ErrNotFound = errors.New("payment client: not found")

	// ErrDeclined the authority rejected the request, e.g. card declined or amount too large
	ErrDeclined = errors.New("payment client: request declined")

	// ErrUnavailable transport failure, timeout or 5xx; outcome unknown until queried
	ErrUnavailable = errors.New("payment client: authority unavailable")

	// ErrInvalidResponse the authority answered with something we cannot parse
	ErrInvalidResponse = errors.New("payment client: invalid response")

	// ErrInternal failure building the request
	ErrInternal = errors.New("payment client: internal error")
)
