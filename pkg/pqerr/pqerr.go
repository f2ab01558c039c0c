// Package pqerr classifies PostgreSQL errors returned by lib/pq.
package pqerr

import (
	"errors"

	"github.com/lib/pq"
)

const (
	CodeUniqueViolation      = "23505"
	CodeExclusionViolation   = "23P01"
	CodeCheckViolation       = "23514"
	CodeInvalidTextRep       = "22P02"
	CodeSerializationFailure = "40001"
	CodeDeadlockDetected     = "40P01"
)

func code(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code), true
	}
	return "", false
}

// Constraint returns the violated constraint name, if any
func Constraint(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Constraint
	}
	return ""
}

func IsUniqueViolation(err error) bool {
	c, ok := code(err)
	return ok && c == CodeUniqueViolation
}

// IsExclusionViolation overlapping interval rejected by an EXCLUDE constraint
func IsExclusionViolation(err error) bool {
	c, ok := code(err)
	return ok && c == CodeExclusionViolation
}

func IsCheckViolation(err error) bool {
	c, ok := code(err)
	return ok && c == CodeCheckViolation
}

func IsInvalidTextRepresentation(err error) bool {
	c, ok := code(err)
	return ok && c == CodeInvalidTextRep
}

// IsRetryable serialization failure or deadlock, the transaction may be retried as a whole
func IsRetryable(err error) bool {
	c, ok := code(err)
	return ok && (c == CodeSerializationFailure || c == CodeDeadlockDetected)
}
