package refund_reservation

import (
	"context"
	"errors"
	"fmt"

	"github.com/m04kA/SMC-ParkingService/internal/domain"
	reservationRepo "github.com/m04kA/SMC-ParkingService/internal/infra/storage/reservation"
	"github.com/m04kA/SMC-ParkingService/internal/service/payments"
	"github.com/m04kA/SMC-ParkingService/internal/service/reservations"
	"github.com/m04kA/SMC-ParkingService/pkg/errs"
)

// UseCase owner-issued refund of a committed or completed reservation
type UseCase struct {
	reservationRepo ReservationRepository
	reservations    ReservationService
	notifier        Notifier
	timeProvider    TimeProvider
	logger          Logger
}

func NewUseCase(
	reservationRepo ReservationRepository,
	reservationService ReservationService,
	notifier Notifier,
	logger Logger,
) *UseCase {
	return &UseCase{
		reservationRepo: reservationRepo,
		reservations:    reservationService,
		notifier:        notifier,
		timeProvider:    &RealTimeProvider{},
		logger:          logger,
	}
}

func (uc *UseCase) WithTimeProvider(tp TimeProvider) *UseCase {
	uc.timeProvider = tp
	return uc
}

func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	uc.logger.Info("RefundReservation: owner=%s, reservation=%s", req.OwnerID, req.ReservationID)

	res, err := uc.reservationRepo.GetByID(ctx, req.ReservationID)
	if err != nil {
		if errors.Is(err, reservationRepo.ErrReservationNotFound) {
			return nil, ErrNotFound
		}
		uc.logger.Error("RefundReservation: failed to get reservation id=%s: %v", req.ReservationID, err)
		return nil, fmt.Errorf("%w: failed to get reservation: %v", ErrInternal, err)
	}
	if !res.IsOwner(req.OwnerID) {
		uc.logger.Warn("RefundReservation: user=%s is not the owner of reservation=%s", req.OwnerID, res.ID)
		return nil, ErrAccessDenied
	}

	now := uc.timeProvider.Now()
	if !res.Status.CanTransitionTo(domain.StatusRefunded) {
		return nil, fmt.Errorf("%w: status is %s", ErrInvalidState, res.EffectiveStatus(now))
	}

	refundable := res.Refundable()
	if refundable <= 0 || res.PaymentRef == nil {
		return nil, fmt.Errorf("%w: nothing was captured", ErrInvalidState)
	}
	amount := refundable
	if req.Amount != nil {
		amount = *req.Amount
	}
	if amount <= 0 || amount > refundable {
		return nil, fmt.Errorf("%w: %s requested, %s refundable", ErrInvalidAmount, amount, refundable)
	}

	refunded, err := uc.reservations.Reverse(ctx, res, reservations.ReverseRequest{
		Target:         domain.StatusRefunded,
		Amount:         amount,
		IdempotencyKey: reservations.OperationKey(res.ID, reservations.ActionRefund),
	})
	if err != nil {
		switch {
		case errors.Is(err, reservations.ErrConcurrentUpdate), errors.Is(err, reservations.ErrNotApplicable):
			uc.logger.Warn("RefundReservation: reservation=%s changed concurrently: %v", res.ID, err)
			return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
		case errs.IsInconsistent(err):
			return nil, err
		case errors.Is(err, payments.ErrDeclined), errors.Is(err, payments.ErrExternal):
			uc.logger.Error("RefundReservation: refund for reservation=%s failed: %v", res.ID, err)
			return nil, fmt.Errorf("%w: %v", ErrPayment, err)
		default:
			uc.logger.Error("RefundReservation: reservation=%s: %v", res.ID, err)
			return nil, fmt.Errorf("%w: %v", ErrInternal, err)
		}
	}

	uc.notifier.NotifyClaimant(ctx, refunded, domain.NotificationReservationRefunded,
		"Refund issued", fmt.Sprintf("%s was refunded for your parking on %s.", amount, refunded.Interval))
	uc.logger.Info("RefundReservation: reservation=%s refunded %s", refunded.ID, amount)
	return &Response{Reservation: refunded, Refunded: refunded.Refunded - res.Refunded}, nil
}
