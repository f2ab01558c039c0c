package domain

import "errors"

var (
	// ErrInvalidInterval returned when an interval is empty or reversed
	ErrInvalidInterval = errors.New("domain: invalid interval")

	// ErrInvalidGuest returned when guest contact data is incomplete
	ErrInvalidGuest = errors.New("domain: invalid guest identity")

	// ErrUnknownStatus returned for a status outside the transition table
	ErrUnknownStatus = errors.New("domain: unknown reservation status")
)
