package extend_reservation

import (
	"time"

	"github.com/google/uuid"

	"github.com/m04kA/SMC-ParkingService/internal/domain"
)

// Request PaymentMethodRef overrides the method stored on the reservation
type Request struct {
	ClaimantID       uuid.UUID
	ReservationID    uuid.UUID
	NewEnd           time.Time
	PaymentMethodRef *string
}

// Response reservation as it stands after the attempt. It is unchanged unless
// the payment was authorized; a challenge leaves the extension pending until finalized.
type Response struct {
	Reservation   *domain.Reservation
	Amount        domain.Money
	PaymentStatus domain.AuthorizationStatus
	PaymentRef    string
	ClientSecret  string
}
