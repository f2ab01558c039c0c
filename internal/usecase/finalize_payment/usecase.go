package finalize_payment

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

// UseCase completes a payment the payer confirmed out of band
type UseCase struct {
	reservationRepo ReservationRepository
	payments        PaymentOrchestrator
	reservations    ReservationService
	notifier        Notifier
	logger          Logger
}

func NewUseCase(
	reservationRepo ReservationRepository,
	orchestrator PaymentOrchestrator,
	reservationService ReservationService,
	notifier Notifier,
	logger Logger,
) *UseCase {
	return &UseCase{
		reservationRepo: reservationRepo,
		payments:        orchestrator,
		reservations:    reservationService,
		notifier:        notifier,
		logger:          logger,
	}
}

// Execute idempotent: finalizing an applied payment returns the current reservation
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	ref := strings.TrimSpace(req.PaymentRef)
	if ref == "" {
		return nil, fmt.Errorf("%w: payment reference is required", ErrInvalidInput)
	}
	uc.logger.Info("FinalizePayment: ref=%s", ref)

	op, err := uc.payments.GetByPaymentRef(ctx, ref)
	if err != nil {
		if errors.Is(err, payments.ErrNotFound) {
			return nil, ErrNotFound
		}
		uc.logger.Error("FinalizePayment: failed to load operation for ref=%s: %v", ref, err)
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	res, err := uc.reservationRepo.GetByID(ctx, op.ReservationID)
	if err != nil {
		if errors.Is(err, reservationRepo.ErrReservationNotFound) {
			return nil, ErrNotFound
		}
		uc.logger.Error("FinalizePayment: failed to get reservation id=%s: %v", op.ReservationID, err)
		return nil, fmt.Errorf("%w: failed to get reservation: %v", ErrInternal, err)
	}
	if req.CallerID != nil && !res.IsGuest() && !res.IsClaimant(*req.CallerID) {
		uc.logger.Warn("FinalizePayment: user=%s is not the claimant of reservation=%s", *req.CallerID, res.ID)
		return nil, ErrAccessDenied
	}

	if op.Kind != domain.PaymentKindAuthorize && op.Kind != domain.PaymentKindExtension {
		return nil, fmt.Errorf("%w: latest operation on this payment is a %s", ErrInvalidState, op.Kind)
	}
	if op.Status == domain.PaymentOpApplied {
		return &Response{Reservation: res, Kind: op.Kind, PaymentStatus: domain.AuthorizationAuthorized}, nil
	}

	outcome, err := uc.payments.Finalize(ctx, op, res.PaymentMethodRef == nil)
	if err != nil {
		if errs.IsInconsistent(err) {
			return nil, err
		}
		uc.logger.Error("FinalizePayment: ref=%s: %v", ref, err)
		return nil, fmt.Errorf("%w: %v", ErrPayment, err)
	}

	resp := &Response{Reservation: res, Kind: op.Kind, PaymentStatus: outcome.Status}
	switch {
	case outcome.RequiresAction():
		return resp, nil

	case outcome.Failed():
		if op.Kind == domain.PaymentKindAuthorize && res.Status == domain.StatusHeld {
			if err := uc.reservations.CancelForPaymentFailure(ctx, res); err != nil && !errors.Is(err, reservations.ErrConcurrentUpdate) {
				return nil, fmt.Errorf("%w: %v", ErrInternal, err)
			}
			uc.notifier.NotifyClaimant(ctx, res, domain.NotificationReservationCanceled,
				"Payment failed", "Your reservation was canceled because the payment was declined.")
		}
		return resp, nil
	}

	updated, err := uc.reservations.Apply(ctx, op, reservations.ApplyOptions{})
	if err != nil {
		if errors.Is(err, reservations.ErrNotApplicable) {
			// the reservation moved on (expired or canceled), the payment was returned
			return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
		}
		return nil, err
	}
	resp.Reservation = updated

	if op.Kind == domain.PaymentKindExtension {
		uc.notifier.NotifyOwner(ctx, updated, domain.NotificationReservationExtended,
			"Reservation extended", fmt.Sprintf("The booking now ends at %s.", updated.Interval.End.Format(domain.TimeFormat)))
	} else {
		uc.notifier.NotifyClaimant(ctx, updated, domain.NotificationReservationConfirmed,
			"Reservation confirmed", fmt.Sprintf("Your parking for %s is confirmed.", updated.Interval))
		uc.notifier.NotifyOwner(ctx, updated, domain.NotificationReservationConfirmed,
			"New reservation", fmt.Sprintf("Your spot is booked for %s.", updated.Interval))
	}
	uc.logger.Info("FinalizePayment: reservation=%s is %s", updated.ID, updated.Status)
	return resp, nil
}
