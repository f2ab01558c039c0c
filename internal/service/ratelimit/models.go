package ratelimit

import "time"

// Rate limited operations
const (
	OpHoldCreate        = "hold.create"
	OpGuestReservation  = "reservation.guest_create"
	OpCreateReservation = "reservation.create"
	OpSearch            = "search"
	OpMutateReservation = "reservation.mutate"
)

// Limit at most Max requests per Window
type Limit struct {
	Max    int
	Window time.Duration
}

// Policy every limit must pass
type Policy struct {
	Limits []Limit
}

// NewPolicy per-minute and per-hour limits, a zero value disables that window
func NewPolicy(perMinute, perHour int) Policy {
	p := Policy{}
	if perMinute > 0 {
		p.Limits = append(p.Limits, Limit{Max: perMinute, Window: time.Minute})
	}
	if perHour > 0 {
		p.Limits = append(p.Limits, Limit{Max: perHour, Window: time.Hour})
	}
	return p
}

// DefaultPolicies limits applied when configuration names none
func DefaultPolicies() map[string]Policy {
	return map[string]Policy{
		OpHoldCreate:        NewPolicy(30, 300),
		OpGuestReservation:  NewPolicy(5, 20),
		OpCreateReservation: NewPolicy(10, 100),
		OpSearch:            NewPolicy(60, 600),
		OpMutateReservation: NewPolicy(20, 200),
	}
}

// Decision outcome of a check. RetryAfter is set when the request is denied.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
	Degraded   bool
}
