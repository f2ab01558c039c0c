package reconcile_guest

import (
	"context"

	reconcileGuest "github.com/m04kA/SMC-ParkingService/internal/usecase/reconcile_guest"
)

type ReconcileGuestUseCase interface {
	Execute(ctx context.Context, req *reconcileGuest.Request) (*reconcileGuest.Response, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
