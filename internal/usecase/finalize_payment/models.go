package finalize_payment

import (
	"github.com/google/uuid"

	"github.com/m04kA/SMC-ParkingService/internal/domain"
)

// Request CallerID is nil for guests; the payment reference itself is their credential
type Request struct {
	PaymentRef string
	CallerID   *uuid.UUID
}

type Response struct {
	Reservation   *domain.Reservation
	Kind          domain.PaymentOperationKind
	PaymentStatus domain.AuthorizationStatus
}
