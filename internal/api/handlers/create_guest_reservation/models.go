package create_guest_reservation

import (
	"github.com/google/uuid"

	"github.com/m04kA/SMC-ParkingService/internal/api/handlers"
	"github.com/m04kA/SMC-ParkingService/internal/domain"
	createReservation "github.com/m04kA/SMC-ParkingService/internal/usecase/create_reservation"
)

// CreateGuestReservationRequest HTTP request model
type CreateGuestReservationRequest struct {
	SpotID     uuid.UUID             `json:"spotId"`
	Start      string                `json:"start"`
	End        string                `json:"end"`
	EVCharging bool                  `json:"evCharging"`
	Guest      handlers.GuestRequest `json:"guest"`
}

// GuestReservationResponse the payment reference doubles as the guest's handle for finalizing
type GuestReservationResponse struct {
	Reservation handlers.ReservationResponse `json:"reservation"`
	Payment     *handlers.PaymentResponse    `json:"payment,omitempty"`
}

func FromUseCaseResponse(resp *createReservation.Response) GuestReservationResponse {
	return GuestReservationResponse{
		Reservation: handlers.FromReservation(resp.Reservation),
		Payment:     handlers.NewPaymentResponse(resp.PaymentStatus, resp.PaymentRef, resp.ClientSecret),
	}
}

func pendingResponse(res *domain.Reservation) interface{} {
	return GuestReservationResponse{Reservation: handlers.FromReservation(res)}
}
