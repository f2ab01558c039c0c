package hold

import "errors"

var (
	// ErrHoldNotFound returned when no hold matches
	ErrHoldNotFound = errors.New("hold.repository: hold not found")

	// ErrOverlap returned when the exclusion constraint rejects an overlapping live hold
	ErrOverlap = errors.New("hold.repository: overlapping hold exists")

	// ErrDuplicateIdempotencyKey another request already created a hold with this key
	ErrDuplicateIdempotencyKey = errors.New("hold.repository: duplicate idempotency key")

	// ErrBuildQuery returned when the SQL builder fails
	ErrBuildQuery = errors.New("hold.repository: failed to build query")

	// ErrExecQuery returned when the statement fails
	ErrExecQuery = errors.New("hold.repository: failed to execute query")

	// ErrScanRow returned when a result row cannot be scanned
	ErrScanRow = errors.New("hold.repository: failed to scan row")
)
