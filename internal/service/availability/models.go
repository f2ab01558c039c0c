package availability

import "github.com/google/uuid"

// Reason source that blocked the interval
type Reason string

const (
	ReasonNone        Reason = ""
	ReasonReservation Reason = "reservation"
	ReasonHold        Reason = "hold"
	ReasonCalendar    Reason = "calendar"
)

// Options exclusions applied to the check
type Options struct {
	// ExcludeClaimantID ignores the claimant's own in-flight holds and reservations
	ExcludeClaimantID *uuid.UUID
	// ExcludeReservationID ignores one reservation, used when extending it
	ExcludeReservationID *uuid.UUID
}

// Result conflict is an outcome, not an error
type Result struct {
	Available bool
	Reason    Reason
}
