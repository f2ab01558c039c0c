package spot

import "errors"

var (
	// ErrSpotNotFound returned when no spot matches
	ErrSpotNotFound = errors.New("spot.repository: spot not found")

	// ErrBuildQuery returned when the SQL builder fails
	ErrBuildQuery = errors.New("spot.repository: failed to build query")

	// ErrExecQuery returned when the statement fails
	ErrExecQuery = errors.New("spot.repository: failed to execute query")

	// ErrScanRow returned when a result row cannot be scanned
	ErrScanRow = errors.New("spot.repository: failed to scan row")
)
