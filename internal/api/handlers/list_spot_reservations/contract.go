package list_spot_reservations

import (
	"context"

	"github.com/m04kA/SMC-ParkingService/internal/service/reservations"
)

type ReservationService interface {
	ListForSpot(ctx context.Context, req reservations.ListRequest) ([]*reservations.Details, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
