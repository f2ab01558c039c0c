package payments

import (
	"time"

	"github.com/google/uuid"

	"github.com/m04kA/SMC-ParkingService/internal/domain"
)

// BeginRequest saga step to record before the authority is called
type BeginRequest struct {
	ReservationID  uuid.UUID
	Kind           domain.PaymentOperationKind
	Amount         domain.Money
	IdempotencyKey string
	PaymentRef     *string // intent being refunded or voided
	RequestedEnd   *time.Time
	TargetStatus   *domain.ReservationStatus
}

// AuthorizeRequest nil PaymentMethodRef starts a new checkout the payer completes client side
type AuthorizeRequest struct {
	PaymentMethodRef *string
	Metadata         map[string]string
}

// Outcome normalized authorization result
type Outcome struct {
	Status       domain.AuthorizationStatus
	PaymentRef   string
	ClientSecret string
}

func (o *Outcome) Authorized() bool {
	return o.Status == domain.AuthorizationAuthorized
}

func (o *Outcome) RequiresAction() bool {
	return o.Status == domain.AuthorizationRequiresAction
}

func (o *Outcome) Failed() bool {
	return o.Status == domain.AuthorizationFailed
}
