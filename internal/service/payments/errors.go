package payments

import "errors"

var (
	// ErrExternal the payment authority could not be reached or answered unexpectedly.
	// The operation stays pending and is safe to retry with the same idempotency key.
	ErrExternal = errors.New("payments: payment authority unavailable")

	// ErrDeclined the authority refused the request
	ErrDeclined = errors.New("payments: request declined")

	// ErrIdempotencyMismatch the key was already used for a different operation
	ErrIdempotencyMismatch = errors.New("payments: idempotency key reused for a different operation")

	// ErrNotFound no operation for the payment reference
	ErrNotFound = errors.New("payments: operation not found")

	// ErrInternal saga log errors
	ErrInternal = errors.New("payments: internal error")
)
