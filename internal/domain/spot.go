package domain

import (
	"time"

	"github.com/google/uuid"
)

// ParkingSpot bookable resource. Managed by listing flows, read-only here.
type ParkingSpot struct {
	ID            uuid.UUID
	OwnerID       uuid.UUID
	Title         string
	HourlyRate    Money
	InstantBook   bool
	HasEVCharging bool
	EVPremium     Money // per hour
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// PriceInput builds the pricing input for an interval on this spot
func (s *ParkingSpot) PriceInput(interval Interval, evCharging bool) PriceInput {
	return PriceInput{
		HourlyRate:   s.HourlyRate,
		Hours:        interval.Hours(),
		AddOnPremium: s.EVPremium,
		AddOn:        evCharging && s.HasEVCharging,
	}
}

// CalendarBlock owner-defined unavailability. A full-day block covers its whole
// UTC date, otherwise only [StartsAt, EndsAt).
type CalendarBlock struct {
	ID        uuid.UUID
	SpotID    uuid.UUID
	Date      time.Time
	FullDay   bool
	StartsAt  *time.Time
	EndsAt    *time.Time
	Reason    *string
	CreatedAt time.Time
}

// Blocks reports whether the block makes interval unavailable
func (b *CalendarBlock) Blocks(interval Interval) bool {
	if b.FullDay {
		day := truncateDay(b.Date)
		return interval.Overlaps(Interval{Start: day, End: day.AddDate(0, 0, 1)})
	}
	if b.StartsAt == nil || b.EndsAt == nil {
		return false
	}
	return interval.Overlaps(Interval{Start: *b.StartsAt, End: *b.EndsAt})
}
