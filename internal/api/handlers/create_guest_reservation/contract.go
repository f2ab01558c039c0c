package create_guest_reservation

import (
	"context"

	createReservation "github.com/m04kA/SMC-ParkingService/internal/usecase/create_reservation"
)

type CreateGuestReservationUseCase interface {
	ExecuteGuest(ctx context.Context, req *createReservation.GuestRequest) (*createReservation.Response, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
