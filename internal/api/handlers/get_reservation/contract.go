package get_reservation

import (
	"context"

	"github.com/google/uuid"

	"github.com/m04kA/SMC-ParkingService/internal/service/reservations"
)

type ReservationService interface {
	GetByID(ctx context.Context, id uuid.UUID, viewerID uuid.UUID) (*reservations.Details, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
