package finalize_payment

import (
	"github.com/m04kA/SMC-ParkingService/internal/api/handlers"
	"github.com/m04kA/SMC-ParkingService/internal/domain"
	finalizePayment "github.com/m04kA/SMC-ParkingService/internal/usecase/finalize_payment"
)

// FinalizeResponse Kind says whether the payment was the booking or an extension
type FinalizeResponse struct {
	Reservation handlers.ReservationResponse `json:"reservation"`
	Kind        string                       `json:"kind"`
	Payment     *handlers.PaymentResponse    `json:"payment,omitempty"`
}

func FromUseCaseResponse(resp *finalizePayment.Response, paymentRef string) FinalizeResponse {
	return FinalizeResponse{
		Reservation: handlers.FromReservation(resp.Reservation),
		Kind:        string(resp.Kind),
		Payment:     handlers.NewPaymentResponse(resp.PaymentStatus, paymentRef, ""),
	}
}

func pendingResponse(res *domain.Reservation) interface{} {
	return FinalizeResponse{Reservation: handlers.FromReservation(res)}
}
