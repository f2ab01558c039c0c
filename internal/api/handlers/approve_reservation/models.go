package approve_reservation

import (
	"github.com/m04kA/SMC-ParkingService/internal/api/handlers"
	"github.com/m04kA/SMC-ParkingService/internal/domain"
	approveReservation "github.com/m04kA/SMC-ParkingService/internal/usecase/approve_reservation"
)

// ApproveResponse HTTP response model
type ApproveResponse struct {
	Reservation handlers.ReservationResponse `json:"reservation"`
	Payment     *handlers.PaymentResponse    `json:"payment,omitempty"`
}

func FromUseCaseResponse(resp *approveReservation.Response) ApproveResponse {
	return ApproveResponse{
		Reservation: handlers.FromReservation(resp.Reservation),
		Payment:     handlers.NewPaymentResponse(resp.PaymentStatus, resp.PaymentRef, resp.ClientSecret),
	}
}

func pendingResponse(res *domain.Reservation) interface{} {
	return ApproveResponse{Reservation: handlers.FromReservation(res)}
}
