package cancel_reservation

import (
	"github.com/m04kA/SMC-ParkingService/internal/api/handlers"
	"github.com/m04kA/SMC-ParkingService/internal/domain"
	cancelReservation "github.com/m04kA/SMC-ParkingService/internal/usecase/cancel_reservation"
)

// CancelRequest HTTP request model, the body is optional
type CancelRequest struct {
	Reason string `json:"reason"`
}

// CancelResponse Refunded in decimal currency units
type CancelResponse struct {
	Reservation handlers.ReservationResponse `json:"reservation"`
	CanceledBy  string                       `json:"canceledBy"`
	Refunded    float64                      `json:"refunded"`
}

func FromUseCaseResponse(resp *cancelReservation.Response) CancelResponse {
	return CancelResponse{
		Reservation: handlers.FromReservation(resp.Reservation),
		CanceledBy:  string(resp.Actor),
		Refunded:    resp.Refunded.Decimal(),
	}
}

// pendingResponse CancelResponse of a reservation whose cancellation is still being reconciled
func pendingResponse(res *domain.Reservation) interface{} {
	resp := CancelResponse{Reservation: handlers.FromReservation(res), Refunded: res.Refunded.Decimal()}
	if res.CanceledBy != nil {
		resp.CanceledBy = string(*res.CanceledBy)
	}
	return resp
}
