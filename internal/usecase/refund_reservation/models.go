package refund_reservation

import (
	"github.com/google/uuid"

	"github.com/m04kA/SMC-ParkingService/internal/domain"
)

// Request nil Amount refunds everything not yet returned
type Request struct {
	OwnerID       uuid.UUID
	ReservationID uuid.UUID
	Amount        *domain.Money
}

type Response struct {
	Reservation *domain.Reservation
	Refunded    domain.Money
}
