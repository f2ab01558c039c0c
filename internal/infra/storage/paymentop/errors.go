package paymentop

import "errors"

var (
	// ErrOperationNotFound returned when no saga entry matches
	ErrOperationNotFound = errors.New("paymentop.repository: payment operation not found")

	// ErrDuplicateIdempotencyKey saga entry with this key already exists
	ErrDuplicateIdempotencyKey = errors.New("paymentop.repository: duplicate idempotency key")

	// ErrStatusChanged conditional status write lost to a concurrent writer
	ErrStatusChanged = errors.New("paymentop.repository: operation changed concurrently")

	// ErrBuildQuery returned when the SQL builder fails
	ErrBuildQuery = errors.New("paymentop.repository: failed to build query")

	// ErrExecQuery returned when the statement fails
	ErrExecQuery = errors.New("paymentop.repository: failed to execute query")

	// ErrScanRow returned when a result row cannot be scanned
	ErrScanRow = errors.New("paymentop.repository: failed to scan row")
)
