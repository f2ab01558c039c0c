package refund_reservation

import (
	"context"

	refundReservation "github.com/m04kA/SMC-ParkingService/internal/usecase/refund_reservation"
)

type RefundReservationUseCase interface {
	Execute(ctx context.Context, req *refundReservation.Request) (*refundReservation.Response, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
