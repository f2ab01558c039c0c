package get_reservation

import (
	"github.com/m04kA/SMC-ParkingService/internal/api/handlers"
	"github.com/m04kA/SMC-ParkingService/internal/service/reservations"
)

// ReservationDetailsResponse HTTP response model
type ReservationDetailsResponse struct {
	handlers.ReservationResponse
	CanCancel     bool `json:"canCancel"`
	CanExtend     bool `json:"canExtend"`
	ViewerIsOwner bool `json:"viewerIsOwner"`
}

func FromDetails(d *reservations.Details) ReservationDetailsResponse {
	res := handlers.FromReservation(d.Reservation)
	res.EffectiveStatus = string(d.EffectiveStatus)
	return ReservationDetailsResponse{
		ReservationResponse: res,
		CanCancel:           d.CanCancel,
		CanExtend:           d.CanExtend,
		ViewerIsOwner:       d.ViewerIsOwner,
	}
}
