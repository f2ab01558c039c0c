package cancel_reservation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/m04kA/SMC-ParkingService/internal/domain"
	reservationRepo "github.com/m04kA/SMC-ParkingService/internal/infra/storage/reservation"
	"github.com/m04kA/SMC-ParkingService/internal/service/payments"
	"github.com/m04kA/SMC-ParkingService/internal/service/reservations"
	"github.com/m04kA/SMC-ParkingService/pkg/errs"
)

type UseCase struct {
	reservationRepo ReservationRepository
	holdRepo        HoldRepository
	reservations    ReservationService
	notifier        Notifier
	policy          domain.RefundPolicy
	timeProvider    TimeProvider
	logger          Logger
}

func NewUseCase(
	reservationRepo ReservationRepository,
	holdRepo HoldRepository,
	reservationService ReservationService,
	notifier Notifier,
	policy domain.RefundPolicy,
	logger Logger,
) *UseCase {
	return &UseCase{
		reservationRepo: reservationRepo,
		holdRepo:        holdRepo,
		reservations:    reservationService,
		notifier:        notifier,
		policy:          policy,
		timeProvider:    &RealTimeProvider{},
		logger:          logger,
	}
}

func (uc *UseCase) WithTimeProvider(tp TimeProvider) *UseCase {
	uc.timeProvider = tp
	return uc
}

// Execute cancels on behalf of the claimant, the owner or a guest.
// The refund follows the policy and is computed from the captured amount.
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	// 1. Validate input
	reason := strings.TrimSpace(req.Reason)
	if len(reason) > domain.MaxCancellationReasonLength {
		return nil, fmt.Errorf("%w: exceeds %d characters", ErrInvalidReason, domain.MaxCancellationReasonLength)
	}
	if req.UserID == nil && (req.GuestEmail == nil || strings.TrimSpace(*req.GuestEmail) == "") {
		return nil, fmt.Errorf("%w: caller is not identified", ErrInvalidInput)
	}

	// 2. Load and authorize
	res, err := uc.reservationRepo.GetByID(ctx, req.ReservationID)
	if err != nil {
		if errors.Is(err, reservationRepo.ErrReservationNotFound) {
			return nil, ErrNotFound
		}
		uc.logger.Error("CancelReservation: failed to get reservation id=%s: %v", req.ReservationID, err)
		return nil, fmt.Errorf("%w: failed to get reservation: %v", ErrInternal, err)
	}

	actor, ok := callerActor(res, req)
	if !ok {
		uc.logger.Warn("CancelReservation: caller may not cancel reservation=%s", res.ID)
		return nil, ErrAccessDenied
	}

	now := uc.timeProvider.Now()
	if !res.CanBeCancelled(now) {
		return nil, fmt.Errorf("%w: status is %s", ErrInvalidState, res.EffectiveStatus(now))
	}
	if reason == "" {
		reason = fmt.Sprintf("Canceled by the %s", actor)
	}

	// 3. Refund and transition
	amount := uc.policy.RefundFor(res, actor, now)
	uc.logger.Info("CancelReservation: reservation=%s by %s, refund=%s", res.ID, actor, amount)

	canceled, err := uc.reservations.Reverse(ctx, res, reservations.ReverseRequest{
		Target:         domain.StatusCanceled,
		Amount:         amount,
		Cancellation:   &reservations.Cancellation{Reason: reason, Actor: actor},
		IdempotencyKey: reservations.OperationKey(res.ID, reservations.ActionCancel),
	})
	if err != nil {
		return nil, uc.mapError(res, err)
	}

	// 4. Leftover holds of the claimant on this spot
	if canceled.ClaimantID != nil {
		if _, err := uc.holdRepo.DeleteByClaimantAndSpot(ctx, *canceled.ClaimantID, canceled.SpotID); err != nil {
			uc.logger.Warn("CancelReservation: failed to clean holds for reservation=%s: %v", canceled.ID, err)
		}
	}

	// 5. Tell the other side
	title := "Reservation canceled"
	message := fmt.Sprintf("The reservation for %s was canceled: %s", canceled.Interval, reason)
	if actor == domain.ActorOwner {
		uc.notifier.NotifyClaimant(ctx, canceled, domain.NotificationReservationCanceled, title, message)
	} else {
		uc.notifier.NotifyOwner(ctx, canceled, domain.NotificationReservationCanceled, title, message)
	}

	uc.logger.Info("CancelReservation: reservation=%s canceled", canceled.ID)
	return &Response{Reservation: canceled, Actor: actor, Refunded: canceled.Refunded - res.Refunded}, nil
}

func callerActor(res *domain.Reservation, req *Request) (domain.CancellationActor, bool) {
	if req.UserID != nil {
		switch {
		case res.IsClaimant(*req.UserID):
			return domain.ActorClaimant, true
		case res.IsOwner(*req.UserID):
			return domain.ActorOwner, true
		}
	}
	if req.GuestEmail != nil && res.IsGuest() && res.Guest != nil {
		email := res.Guest.NormalizedEmail()
		if email != "" && email == domain.NormalizeEmail(*req.GuestEmail) {
			return domain.ActorGuest, true
		}
	}
	return "", false
}

func (uc *UseCase) mapError(res *domain.Reservation, err error) error {
	switch {
	case errors.Is(err, reservations.ErrConcurrentUpdate), errors.Is(err, reservations.ErrNotApplicable):
		uc.logger.Warn("CancelReservation: reservation=%s changed concurrently: %v", res.ID, err)
		return fmt.Errorf("%w: %v", ErrInvalidState, err)
	case errs.IsInconsistent(err):
		return err
	case errors.Is(err, payments.ErrDeclined), errors.Is(err, payments.ErrExternal):
		uc.logger.Error("CancelReservation: refund for reservation=%s failed: %v", res.ID, err)
		return fmt.Errorf("%w: %v", ErrPayment, err)
	default:
		uc.logger.Error("CancelReservation: reservation=%s: %v", res.ID, err)
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
}
