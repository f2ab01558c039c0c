package create_reservation

import (
	"github.com/google/uuid"

	"github.com/m04kA/SMC-ParkingService/internal/api/handlers"
	"github.com/m04kA/SMC-ParkingService/internal/domain"
	createReservation "github.com/m04kA/SMC-ParkingService/internal/usecase/create_reservation"
)

// CreateReservationRequest HTTP request model
type CreateReservationRequest struct {
	HoldID           uuid.UUID `json:"holdId"`
	SpotID           uuid.UUID `json:"spotId"`
	Start            string    `json:"start"`
	End              string    `json:"end"`
	EVCharging       bool      `json:"evCharging"`
	PaymentMethodRef *string   `json:"paymentMethodRef,omitempty"`
}

// ReservationResponse HTTP response model, Payment is absent while the owner reviews
type ReservationResponse struct {
	Reservation handlers.ReservationResponse `json:"reservation"`
	Payment     *handlers.PaymentResponse    `json:"payment,omitempty"`
}

func FromUseCaseResponse(resp *createReservation.Response) ReservationResponse {
	return ReservationResponse{
		Reservation: handlers.FromReservation(resp.Reservation),
		Payment:     handlers.NewPaymentResponse(resp.PaymentStatus, resp.PaymentRef, resp.ClientSecret),
	}
}

// pendingResponse payment section is left out, the sweeper settles it
func pendingResponse(res *domain.Reservation) interface{} {
	return ReservationResponse{Reservation: handlers.FromReservation(res)}
}
