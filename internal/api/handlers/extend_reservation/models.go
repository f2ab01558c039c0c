package extend_reservation

import (
	"github.com/m04kA/SMC-ParkingService/internal/api/handlers"
	"github.com/m04kA/SMC-ParkingService/internal/domain"
	extendReservation "github.com/m04kA/SMC-ParkingService/internal/usecase/extend_reservation"
)

// ExtendRequest HTTP request model
type ExtendRequest struct {
	NewEnd           string  `json:"newEnd"`
	PaymentMethodRef *string `json:"paymentMethodRef,omitempty"`
}

// ExtendResponse Amount is the extra charge in decimal currency units
type ExtendResponse struct {
	Reservation handlers.ReservationResponse `json:"reservation"`
	Amount      float64                      `json:"amount"`
	Payment     *handlers.PaymentResponse    `json:"payment,omitempty"`
}

func FromUseCaseResponse(resp *extendReservation.Response) ExtendResponse {
	return ExtendResponse{
		Reservation: handlers.FromReservation(resp.Reservation),
		Amount:      resp.Amount.Decimal(),
		Payment:     handlers.NewPaymentResponse(resp.PaymentStatus, resp.PaymentRef, resp.ClientSecret),
	}
}

// pendingResponse the stored end, the extension shows up once reconciled
func pendingResponse(res *domain.Reservation) interface{} {
	return ExtendResponse{Reservation: handlers.FromReservation(res)}
}
