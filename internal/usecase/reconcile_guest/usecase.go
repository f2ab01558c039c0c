package reconcile_guest

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/m04kA/SMC-ParkingService/internal/domain"
)

// UseCase links guest reservations to an account that proved the same contact
type UseCase struct {
	reservationRepo ReservationRepository
	logger          Logger
}

func NewUseCase(reservationRepo ReservationRepository, logger Logger) *UseCase {
	return &UseCase{
		reservationRepo: reservationRepo,
		logger:          logger,
	}
}

// Execute idempotent, already linked reservations are not matched again
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	if req.UserID == uuid.Nil {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}

	email := domain.NormalizeEmail(req.Email)
	var phone string
	if req.Phone != nil {
		phone = domain.PhoneSuffix(*req.Phone, domain.PhoneMatchDigits)
		if len(phone) < domain.MinPhoneDigits {
			return nil, fmt.Errorf("%w: phone must contain at least %d digits", ErrInvalidInput, domain.MinPhoneDigits)
		}
	}
	if email == "" && phone == "" {
		return nil, fmt.Errorf("%w: email or phone is required", ErrInvalidInput)
	}

	linked, err := uc.reservationRepo.LinkGuest(ctx, req.UserID, email, phone)
	if err != nil {
		uc.logger.Error("ReconcileGuest: failed to link reservations for user=%s: %v", req.UserID, err)
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if linked == nil {
		linked = make([]uuid.UUID, 0)
	}

	uc.logger.Info("ReconcileGuest: linked %d reservations to user=%s", len(linked), req.UserID)
	return &Response{Linked: linked}, nil
}
