package decline_reservation

import (
	"github.com/m04kA/SMC-ParkingService/internal/api/handlers"
	"github.com/m04kA/SMC-ParkingService/internal/domain"
)

// DeclineRequest HTTP request model, the body is optional
type DeclineRequest struct {
	Reason string `json:"reason"`
}

func pendingResponse(res *domain.Reservation) interface{} {
	return handlers.FromReservation(res)
}
