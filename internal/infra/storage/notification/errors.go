package notification

import "errors"

var (
	// ErrBuildQuery returned when the SQL builder fails
	ErrBuildQuery = errors.New("notification.repository: failed to build query")

	// ErrExecQuery returned when the statement fails
	ErrExecQuery = errors.New("notification.repository: failed to execute query")
)
