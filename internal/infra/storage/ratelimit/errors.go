package ratelimit

import "errors"

var (
	// ErrExecQuery returned when the counter statement fails
	ErrExecQuery = errors.New("ratelimit.repository: failed to execute query")

	// ErrBuildQuery returned when the SQL builder fails
	ErrBuildQuery = errors.New("ratelimit.repository: failed to build query")
)
