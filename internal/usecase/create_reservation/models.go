package create_reservation

import (
	"time"

	"github.com/google/uuid"

	"github.com/m04kA/SMC-ParkingService/internal/domain"
)

// Request authenticated reservation made from a live hold
type Request struct {
	ClaimantID       uuid.UUID
	HoldID           uuid.UUID
	SpotID           uuid.UUID
	Start            time.Time
	End              time.Time
	EVCharging       bool
	PaymentMethodRef *string // nil starts a new checkout
}

// GuestRequest reservation without an account, no hold involved
type GuestRequest struct {
	SpotID     uuid.UUID
	Start      time.Time
	End        time.Time
	EVCharging bool
	Guest      domain.GuestIdentity
}

// Response PaymentStatus is empty when no payment was attempted (approval required).
// ClientSecret is set when the payer has to complete a challenge.
type Response struct {
	Reservation   *domain.Reservation
	PaymentStatus domain.AuthorizationStatus
	PaymentRef    string
	ClientSecret  string
}

// Options booking configuration
type Options struct {
	Pricing             domain.PricingPolicy
	ReservationDeadline time.Duration
	ReviewWindow        time.Duration
	MinDuration         time.Duration
	MaxDuration         time.Duration
}

// DefaultOptions default pricing and timings
func DefaultOptions() Options {
	return Options{
		Pricing:             domain.DefaultPricingPolicy(),
		ReservationDeadline: domain.DefaultReservationDeadline,
		ReviewWindow:        domain.DefaultReviewWindow,
		MinDuration:         domain.DefaultMinBookingDuration,
		MaxDuration:         domain.DefaultMaxBookingDuration,
	}
}
