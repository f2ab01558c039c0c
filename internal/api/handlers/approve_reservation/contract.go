package approve_reservation

import (
	"context"

	"github.com/google/uuid"

	approveReservation "github.com/m04kA/SMC-ParkingService/internal/usecase/approve_reservation"
)

type ApproveReservationUseCase interface {
	Approve(ctx context.Context, ownerID, reservationID uuid.UUID) (*approveReservation.Response, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
