package cancel_reservation

import (
	"github.com/google/uuid"

	"github.com/m04kA/SMC-ParkingService/internal/domain"
)

// Request exactly one of UserID or GuestEmail identifies the caller
type Request struct {
	ReservationID uuid.UUID
	UserID        *uuid.UUID
	GuestEmail    *string
	Reason        string
}

type Response struct {
	Reservation *domain.Reservation
	Actor       domain.CancellationActor
	Refunded    domain.Money
}
