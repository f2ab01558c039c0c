package domain

import (
	"time"

	"github.com/google/uuid"
)

// Hold short-lived exclusive claim on a spot interval during checkout
type Hold struct {
	ID             uuid.UUID
	SpotID         uuid.UUID
	ClaimantID     uuid.UUID
	Interval       Interval
	IdempotencyKey string
	ExpiresAt      time.Time
	CreatedAt      time.Time
}

// IsExpired a hold past its expiry does not exist for availability purposes,
// whether or not it was physically deleted yet
func (h *Hold) IsExpired(now time.Time) bool {
	return !now.Before(h.ExpiresAt)
}

// SameRequest reports whether a retry with the same idempotency key asked for the same thing
func (h *Hold) SameRequest(spotID, claimantID uuid.UUID, interval Interval) bool {
	return h.SpotID == spotID &&
		h.ClaimantID == claimantID &&
		h.Interval.Start.Equal(interval.Start) &&
		h.Interval.End.Equal(interval.End)
}

// Covers the hold was taken for exactly this spot and interval
func (h *Hold) Covers(spotID uuid.UUID, interval Interval) bool {
	return h.SpotID == spotID &&
		h.Interval.Start.Equal(interval.Start) &&
		h.Interval.End.Equal(interval.End)
}
