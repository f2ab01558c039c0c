package extend_reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/m04kA/SMC-ParkingService/internal/domain"
	reservationRepo "github.com/m04kA/SMC-ParkingService/internal/infra/storage/reservation"
	"github.com/m04kA/SMC-ParkingService/internal/service/availability"
	"github.com/m04kA/SMC-ParkingService/internal/service/payments"
	"github.com/m04kA/SMC-ParkingService/internal/service/reservations"
	"github.com/m04kA/SMC-ParkingService/pkg/errs"
)

// UseCase extends a committed reservation
type UseCase struct {
	reservationRepo ReservationRepository
	checker         AvailabilityChecker
	payments        PaymentOrchestrator
	reservations    ReservationService
	notifier        Notifier
	maxExtension    time.Duration
	timeProvider    TimeProvider
	logger          Logger
}

func NewUseCase(
	reservationRepo ReservationRepository,
	checker AvailabilityChecker,
	orchestrator PaymentOrchestrator,
	reservationService ReservationService,
	notifier Notifier,
	maxExtension time.Duration,
	logger Logger,
) *UseCase {
	return &UseCase{
		reservationRepo: reservationRepo,
		checker:         checker,
		payments:        orchestrator,
		reservations:    reservationService,
		notifier:        notifier,
		maxExtension:    maxExtension,
		timeProvider:    &RealTimeProvider{},
		logger:          logger,
	}
}

func (uc *UseCase) WithTimeProvider(tp TimeProvider) *UseCase {
	uc.timeProvider = tp
	return uc
}

// Execute a conflicting extension changes nothing and charges nothing. The end,
// totals, captured amount and extension history move together once the delta is paid.
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	uc.logger.Info("ExtendReservation: claimant=%s, reservation=%s, new_end=%s",
		req.ClaimantID, req.ReservationID, req.NewEnd.Format(domain.TimeFormat))

	if req.ReservationID == uuid.Nil || req.NewEnd.IsZero() {
		return nil, fmt.Errorf("%w: reservation and new end are required", ErrInvalidInput)
	}
	newEnd := req.NewEnd.UTC()

	// 1. Load and authorize
	res, err := uc.reservationRepo.GetByID(ctx, req.ReservationID)
	if err != nil {
		if errors.Is(err, reservationRepo.ErrReservationNotFound) {
			return nil, ErrNotFound
		}
		uc.logger.Error("ExtendReservation: failed to get reservation id=%s: %v", req.ReservationID, err)
		return nil, fmt.Errorf("%w: failed to get reservation: %v", ErrInternal, err)
	}
	if !res.IsClaimant(req.ClaimantID) {
		uc.logger.Warn("ExtendReservation: user=%s is not the claimant of reservation=%s", req.ClaimantID, res.ID)
		return nil, ErrAccessDenied
	}

	// 2. State and bounds
	now := uc.timeProvider.Now()
	if !res.CanBeExtended(now) {
		return nil, fmt.Errorf("%w: status %s, ends at %s", ErrInvalidState, res.EffectiveStatus(now), res.Interval.End.Format(domain.TimeFormat))
	}
	if !newEnd.After(res.Interval.End) {
		return nil, fmt.Errorf("%w: must be after %s", ErrInvalidEnd, res.Interval.End.Format(domain.TimeFormat))
	}
	delta, err := domain.NewInterval(res.Interval.End, newEnd)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEnd, err)
	}
	if uc.maxExtension > 0 && delta.Duration() > uc.maxExtension {
		return nil, fmt.Errorf("%w: extension longer than %s", ErrInvalidEnd, uc.maxExtension)
	}

	// 3. Delta availability, the reservation itself does not count
	avail, err := uc.checker.IsAvailable(ctx, res.SpotID, delta, availability.Options{ExcludeReservationID: &res.ID})
	if err != nil {
		uc.logger.Error("ExtendReservation: availability check for reservation=%s failed: %v", res.ID, err)
		return nil, fmt.Errorf("%w: availability check failed: %v", ErrInternal, err)
	}
	if !avail.Available {
		uc.logger.Info("ExtendReservation: reservation=%s delta %s blocked by %s", res.ID, delta, avail.Reason)
		return nil, fmt.Errorf("%w: blocked by %s", ErrNotAvailable, avail.Reason)
	}

	// 4. Price the delta at the recorded rates and authorize it
	price := uc.reservations.ExtensionPrice(res, delta)
	method := req.PaymentMethodRef
	if method == nil {
		method = res.PaymentMethodRef
	}
	op, err := uc.payments.Begin(ctx, payments.BeginRequest{
		ReservationID:  res.ID,
		Kind:           domain.PaymentKindExtension,
		Amount:         price.Total,
		IdempotencyKey: extensionKey(res, newEnd, method),
		RequestedEnd:   &newEnd,
	})
	if err != nil {
		uc.logger.Error("ExtendReservation: failed to start payment for reservation=%s: %v", res.ID, err)
		return nil, fmt.Errorf("%w: %v", ErrPayment, err)
	}

	outcome, err := uc.payments.Authorize(ctx, op, payments.AuthorizeRequest{
		PaymentMethodRef: method,
		Metadata:         map[string]string{"reservation_id": res.ID.String(), "kind": string(domain.PaymentKindExtension)},
	})
	if err != nil {
		if errs.IsInconsistent(err) {
			return nil, err
		}
		uc.logger.Error("ExtendReservation: authorization for reservation=%s failed: %v", res.ID, err)
		return nil, fmt.Errorf("%w: %v", ErrPayment, err)
	}

	resp := &Response{Reservation: res, Amount: price.Total, PaymentStatus: outcome.Status, PaymentRef: outcome.PaymentRef}
	switch {
	case outcome.RequiresAction():
		resp.ClientSecret = outcome.ClientSecret
		uc.logger.Info("ExtendReservation: reservation=%s extension awaits payer action", res.ID)
		return resp, nil
	case outcome.Failed():
		uc.logger.Info("ExtendReservation: reservation=%s extension payment declined", res.ID)
		return resp, nil
	}

	// 5. Apply, the delta is re-checked inside the transaction
	extended, err := uc.reservations.Apply(ctx, op, reservations.ApplyOptions{})
	if err != nil {
		if errors.Is(err, reservations.ErrNotApplicable) {
			return nil, fmt.Errorf("%w: %v", ErrNotAvailable, err)
		}
		return nil, err
	}
	resp.Reservation = extended

	uc.logger.Info("ExtendReservation: reservation=%s now ends at %s", res.ID, extended.Interval.End.Format(domain.TimeFormat))
	uc.notifier.NotifyOwner(ctx, extended, domain.NotificationReservationExtended,
		"Reservation extended", fmt.Sprintf("The booking now ends at %s.", extended.Interval.End.Format(domain.TimeFormat)))
	return resp, nil
}

// extensionKey a retry of the same extension with the same payment method resumes
// the same saga operation. Another method starts a new one, the declined intent of
// the earlier attempt stays behind.
func extensionKey(res *domain.Reservation, newEnd time.Time, method *string) string {
	payer := "checkout"
	if method != nil {
		payer = *method
	}
	return fmt.Sprintf("reservation:%s:extension:%d:%d:%s", res.ID, res.ExtensionCount+1, newEnd.Unix(), payer)
}
