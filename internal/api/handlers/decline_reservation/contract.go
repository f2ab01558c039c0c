package decline_reservation

import (
	"context"

	"github.com/google/uuid"

	"github.com/m04kA/SMC-ParkingService/internal/domain"
)

type DeclineReservationUseCase interface {
	Decline(ctx context.Context, ownerID, reservationID uuid.UUID, reason string) (*domain.Reservation, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
