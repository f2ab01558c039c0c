package cancel_guest_reservation

import (
	"github.com/m04kA/SMC-ParkingService/internal/api/handlers"
	"github.com/m04kA/SMC-ParkingService/internal/domain"
	cancelReservation "github.com/m04kA/SMC-ParkingService/internal/usecase/cancel_reservation"
)

// GuestCancelRequest the email given at booking identifies the guest
type GuestCancelRequest struct {
	Email  string `json:"email"`
	Reason string `json:"reason"`
}

// CancelResponse Refunded in decimal currency units
type CancelResponse struct {
	Reservation handlers.ReservationResponse `json:"reservation"`
	Refunded    float64                      `json:"refunded"`
}

func FromUseCaseResponse(resp *cancelReservation.Response) CancelResponse {
	return CancelResponse{
		Reservation: handlers.FromReservation(resp.Reservation),
		Refunded:    resp.Refunded.Decimal(),
	}
}

func pendingResponse(res *domain.Reservation) interface{} {
	return CancelResponse{Reservation: handlers.FromReservation(res), Refunded: res.Refunded.Decimal()}
}
