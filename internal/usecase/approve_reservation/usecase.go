package approve_reservation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/m04kA/SMC-ParkingService/internal/domain"
	reservationRepo "github.com/m04kA/SMC-ParkingService/internal/infra/storage/reservation"
	"github.com/m04kA/SMC-ParkingService/internal/service/availability"
	"github.com/m04kA/SMC-ParkingService/internal/service/reservations"
	"github.com/m04kA/SMC-ParkingService/pkg/errs"
)

// UseCase owner decision on a pending reservation
type UseCase struct {
	reservationRepo ReservationRepository
	checker         AvailabilityChecker
	reservations    ReservationService
	notifier        Notifier
	txManager       TransactionManager
	timeProvider    TimeProvider
	logger          Logger
}

func NewUseCase(
	reservationRepo ReservationRepository,
	checker AvailabilityChecker,
	reservationService ReservationService,
	notifier Notifier,
	txManager TransactionManager,
	logger Logger,
) *UseCase {
	return &UseCase{
		reservationRepo: reservationRepo,
		checker:         checker,
		reservations:    reservationService,
		notifier:        notifier,
		txManager:       txManager,
		timeProvider:    &RealTimeProvider{},
		logger:          logger,
	}
}

func (uc *UseCase) WithTimeProvider(tp TimeProvider) *UseCase {
	uc.timeProvider = tp
	return uc
}

// Approve pending -> held, then authorizes the claimant's stored method.
// Without a stored method the claimant finishes a new checkout and the reservation stays held.
func (uc *UseCase) Approve(ctx context.Context, ownerID, reservationID uuid.UUID) (*Response, error) {
	uc.logger.Info("ApproveReservation: owner=%s, reservation=%s", ownerID, reservationID)

	res, err := uc.loadPending(ctx, ownerID, reservationID)
	if err != nil {
		return nil, err
	}

	err = uc.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
		// calendar blocks may have been added since the request was made
		avail, err := uc.checker.IsAvailable(txCtx, res.SpotID, res.Interval, availability.Options{ExcludeReservationID: &res.ID})
		if err != nil {
			return fmt.Errorf("%w: availability check failed: %v", ErrInternal, err)
		}
		if !avail.Available {
			return fmt.Errorf("%w: blocked by %s", ErrNotAvailable, avail.Reason)
		}
		return uc.reservations.Transition(txCtx, res, reservationRepo.StatusUpdate{To: domain.StatusHeld})
	})
	if err != nil {
		return nil, uc.mapError("ApproveReservation", res.ID, err)
	}
	uc.logger.Info("ApproveReservation: reservation=%s held, authorizing payment", res.ID)

	result, err := uc.reservations.Commit(ctx, res, reservations.CommitRequest{PaymentMethodRef: res.PaymentMethodRef})
	if err != nil {
		if errs.IsInconsistent(err) {
			return nil, err
		}
		uc.logger.Error("ApproveReservation: payment for reservation=%s not completed: %v", res.ID, err)
		return nil, fmt.Errorf("%w: %v", ErrPayment, err)
	}

	out := result.Outcome
	resp := &Response{Reservation: result.Reservation, PaymentStatus: out.Status, PaymentRef: out.PaymentRef}
	switch {
	case out.Authorized():
		uc.notifier.NotifyClaimant(ctx, result.Reservation, domain.NotificationReservationConfirmed,
			"Reservation approved", fmt.Sprintf("The owner approved your parking for %s.", res.Interval))
	case out.RequiresAction():
		resp.ClientSecret = out.ClientSecret
		uc.notifier.NotifyClaimant(ctx, result.Reservation, domain.NotificationReservationConfirmed,
			"Reservation approved", "The owner approved your request. Complete the payment to confirm it.")
	default:
		uc.notifier.NotifyClaimant(ctx, result.Reservation, domain.NotificationReservationCanceled,
			"Payment failed", "Your reservation was canceled because the payment was declined.")
	}
	return resp, nil
}

// Decline pending -> declined. Nothing is captured before approval; a stray
// authorization is voided.
func (uc *UseCase) Decline(ctx context.Context, ownerID, reservationID uuid.UUID, reason string) (*domain.Reservation, error) {
	uc.logger.Info("DeclineReservation: owner=%s, reservation=%s", ownerID, reservationID)

	reason = strings.TrimSpace(reason)
	if len(reason) > domain.MaxCancellationReasonLength {
		return nil, fmt.Errorf("%w: exceeds %d characters", ErrInvalidReason, domain.MaxCancellationReasonLength)
	}
	if reason == "" {
		reason = domain.ReasonDeclinedByOwner
	}

	res, err := uc.loadPending(ctx, ownerID, reservationID)
	if err != nil {
		return nil, err
	}

	declined, err := uc.reservations.Reverse(ctx, res, reservations.ReverseRequest{
		Target:         domain.StatusDeclined,
		Cancellation:   &reservations.Cancellation{Reason: reason, Actor: domain.ActorOwner},
		IdempotencyKey: reservations.OperationKey(res.ID, reservations.ActionDecline),
	})
	if err != nil {
		return nil, uc.mapError("DeclineReservation", res.ID, err)
	}

	uc.logger.Info("DeclineReservation: reservation=%s declined", res.ID)
	uc.notifier.NotifyClaimant(ctx, declined, domain.NotificationReservationDeclined, "Reservation declined", reason)
	return declined, nil
}

func (uc *UseCase) loadPending(ctx context.Context, ownerID, id uuid.UUID) (*domain.Reservation, error) {
	res, err := uc.reservationRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, reservationRepo.ErrReservationNotFound) {
			return nil, ErrNotFound
		}
		uc.logger.Error("ApproveReservation: failed to get reservation id=%s: %v", id, err)
		return nil, fmt.Errorf("%w: failed to get reservation: %v", ErrInternal, err)
	}
	if !res.IsOwner(ownerID) {
		uc.logger.Warn("ApproveReservation: user=%s is not the owner of reservation=%s", ownerID, id)
		return nil, ErrAccessDenied
	}
	if res.Status != domain.StatusPending {
		return nil, fmt.Errorf("%w: status is %s", ErrInvalidState, res.Status)
	}
	if res.IsConfirmationExpired(uc.timeProvider.Now()) {
		return nil, ErrExpired
	}
	return res, nil
}

func (uc *UseCase) mapError(op string, id uuid.UUID, err error) error {
	switch {
	case errors.Is(err, ErrNotAvailable):
		uc.logger.Info("%s: reservation=%s: %v", op, id, err)
		return err
	case errors.Is(err, reservations.ErrConcurrentUpdate), errors.Is(err, reservations.ErrNotApplicable):
		uc.logger.Warn("%s: reservation=%s changed concurrently: %v", op, id, err)
		return fmt.Errorf("%w: %v", ErrInvalidState, err)
	case errs.IsInconsistent(err):
		return err
	case errors.Is(err, ErrInternal):
		uc.logger.Error("%s: reservation=%s: %v", op, id, err)
		return err
	default:
		uc.logger.Error("%s: reservation=%s: %v", op, id, err)
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
}
