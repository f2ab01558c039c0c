package refund_reservation

import (
	"github.com/m04kA/SMC-ParkingService/internal/api/handlers"
	"github.com/m04kA/SMC-ParkingService/internal/domain"
	refundReservation "github.com/m04kA/SMC-ParkingService/internal/usecase/refund_reservation"
)

// RefundRequest Amount in decimal currency units, omitted refunds the remainder
type RefundRequest struct {
	Amount *float64 `json:"amount,omitempty"`
}

// RefundResponse HTTP response model
type RefundResponse struct {
	Reservation handlers.ReservationResponse `json:"reservation"`
	Refunded    float64                      `json:"refunded"`
}

func FromUseCaseResponse(resp *refundReservation.Response) RefundResponse {
	return RefundResponse{
		Reservation: handlers.FromReservation(resp.Reservation),
		Refunded:    resp.Refunded.Decimal(),
	}
}

func pendingResponse(res *domain.Reservation) interface{} {
	return RefundResponse{Reservation: handlers.FromReservation(res), Refunded: res.Refunded.Decimal()}
}
