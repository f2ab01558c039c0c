package create_reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/m04kA/SMC-ParkingService/internal/domain"
	holdRepo "github.com/m04kA/SMC-ParkingService/internal/infra/storage/hold"
	reservationRepo "github.com/m04kA/SMC-ParkingService/internal/infra/storage/reservation"
	spotRepo "github.com/m04kA/SMC-ParkingService/internal/infra/storage/spot"
	"github.com/m04kA/SMC-ParkingService/internal/service/availability"
	"github.com/m04kA/SMC-ParkingService/internal/service/reservations"
	"github.com/m04kA/SMC-ParkingService/pkg/errs"
	"github.com/m04kA/SMC-ParkingService/pkg/txmanager"
)

// UseCase turns a hold (or a guest request) into a reservation and starts payment
type UseCase struct {
	reservationRepo ReservationRepository
	holdRepo        HoldRepository
	spotRepo        SpotRepository
	checker         AvailabilityChecker
	reservations    ReservationService
	notifier        Notifier
	txManager       TransactionManager
	metrics         Metrics
	opts            Options
	timeProvider    TimeProvider
	logger          Logger
}

// NewUseCase creates the use case
func NewUseCase(
	reservationRepo ReservationRepository,
	holdRepo HoldRepository,
	spotRepo SpotRepository,
	checker AvailabilityChecker,
	reservationService ReservationService,
	notifier Notifier,
	txManager TransactionManager,
	opts Options,
	metrics Metrics,
	logger Logger,
) *UseCase {
	return &UseCase{
		reservationRepo: reservationRepo,
		holdRepo:        holdRepo,
		spotRepo:        spotRepo,
		checker:         checker,
		reservations:    reservationService,
		notifier:        notifier,
		txManager:       txManager,
		metrics:         metrics,
		opts:            opts,
		timeProvider:    &RealTimeProvider{},
		logger:          logger,
	}
}

// WithTimeProvider replaces the clock
func (uc *UseCase) WithTimeProvider(tp TimeProvider) *UseCase {
	uc.timeProvider = tp
	return uc
}

// Execute authenticated creation. The claimant must present a live hold of their own
// for exactly this spot and interval; the hold is consumed in the same transaction
// that inserts the reservation.
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	uc.logger.Info("CreateReservation: claimant=%s, spot=%s, hold=%s", req.ClaimantID, req.SpotID, req.HoldID)

	// 1. Validate input
	now := uc.timeProvider.Now()
	interval, err := validateRequest(req, now, uc.opts)
	if err != nil {
		uc.logger.Warn("CreateReservation: validation failed: %v", err)
		return nil, err
	}

	// 2. Hold must be live, own and cover the request
	hold, err := uc.holdRepo.GetByID(ctx, req.HoldID)
	if err != nil {
		if errors.Is(err, holdRepo.ErrHoldNotFound) {
			uc.logger.Warn("CreateReservation: hold id=%s not found", req.HoldID)
			return nil, ErrHoldNotFound
		}
		uc.logger.Error("CreateReservation: failed to get hold id=%s: %v", req.HoldID, err)
		return nil, fmt.Errorf("%w: failed to get hold: %v", ErrInternal, err)
	}
	if hold.ClaimantID != req.ClaimantID {
		uc.logger.Warn("CreateReservation: hold id=%s belongs to another claimant", req.HoldID)
		return nil, ErrAccessDenied
	}
	if hold.IsExpired(now) {
		uc.logger.Warn("CreateReservation: hold id=%s expired at %s", req.HoldID, hold.ExpiresAt.Format(domain.TimeFormat))
		return nil, ErrHoldExpired
	}
	if !hold.Covers(req.SpotID, interval) {
		return nil, ErrHoldMismatch
	}

	// 3. Spot
	spot, err := uc.getSpot(ctx, req.SpotID)
	if err != nil {
		return nil, err
	}
	if err := validateSpot(spot, &req.ClaimantID, req.EVCharging); err != nil {
		uc.logger.Warn("CreateReservation: spot id=%s rejected: %v", req.SpotID, err)
		return nil, err
	}

	// 4. Insert and consume the hold
	claimantID := req.ClaimantID
	res := uc.newReservation(spot, interval, req.EVCharging, now)
	res.ClaimantID = &claimantID
	res.PaymentMethodRef = req.PaymentMethodRef

	err = uc.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
		if err := uc.insert(txCtx, res, &claimantID); err != nil {
			return err
		}
		if err := uc.holdRepo.Delete(txCtx, hold.ID); err != nil && !errors.Is(err, holdRepo.ErrHoldNotFound) {
			return fmt.Errorf("%w: failed to consume hold: %v", ErrInternal, err)
		}
		return nil
	})
	if err != nil {
		return nil, uc.insertFailed(res, err)
	}

	uc.logger.Info("CreateReservation: reservation id=%s created with status=%s", res.ID, res.Status)
	uc.metrics.IncTransition("", string(res.Status))

	// 5. Instant book pays now, otherwise the owner decides
	if res.Status == domain.StatusPending {
		uc.notifier.NotifyOwner(ctx, res, domain.NotificationReservationRequested,
			"New reservation request", fmt.Sprintf("A driver asked for %s.", interval))
		return &Response{Reservation: res}, nil
	}
	return uc.commit(ctx, res, req.PaymentMethodRef)
}

// ExecuteGuest creation without an account. Availability is checked fresh, no hold is needed.
// Instant book always starts a new checkout.
func (uc *UseCase) ExecuteGuest(ctx context.Context, req *GuestRequest) (*Response, error) {
	uc.logger.Info("CreateGuestReservation: spot=%s", req.SpotID)

	now := uc.timeProvider.Now()
	interval, err := validateGuestRequest(req, now, uc.opts)
	if err != nil {
		uc.logger.Warn("CreateGuestReservation: validation failed: %v", err)
		return nil, err
	}

	spot, err := uc.getSpot(ctx, req.SpotID)
	if err != nil {
		return nil, err
	}
	if err := validateSpot(spot, nil, req.EVCharging); err != nil {
		uc.logger.Warn("CreateGuestReservation: spot id=%s rejected: %v", req.SpotID, err)
		return nil, err
	}

	guest := req.Guest
	res := uc.newReservation(spot, interval, req.EVCharging, now)
	res.Guest = &guest

	err = uc.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
		return uc.insert(txCtx, res, nil)
	})
	if err != nil {
		return nil, uc.insertFailed(res, err)
	}

	uc.logger.Info("CreateGuestReservation: reservation id=%s created with status=%s", res.ID, res.Status)
	uc.metrics.IncTransition("", string(res.Status))

	if res.Status == domain.StatusPending {
		uc.notifier.NotifyOwner(ctx, res, domain.NotificationReservationRequested,
			"New reservation request", fmt.Sprintf("A guest asked for %s.", interval))
		return &Response{Reservation: res}, nil
	}
	return uc.commit(ctx, res, nil)
}

func (uc *UseCase) getSpot(ctx context.Context, id uuid.UUID) (*domain.ParkingSpot, error) {
	spot, err := uc.spotRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, spotRepo.ErrSpotNotFound) {
			uc.logger.Warn("CreateReservation: spot id=%s not found", id)
			return nil, ErrSpotNotFound
		}
		uc.logger.Error("CreateReservation: failed to get spot id=%s: %v", id, err)
		return nil, fmt.Errorf("%w: failed to get spot: %v", ErrInternal, err)
	}
	return spot, nil
}

func (uc *UseCase) newReservation(spot *domain.ParkingSpot, interval domain.Interval, evCharging bool, now time.Time) *domain.Reservation {
	status := domain.StatusPending
	if spot.InstantBook {
		status = domain.StatusHeld
	}
	return &domain.Reservation{
		ID:              uuid.New(),
		SpotID:          spot.ID,
		OwnerID:         spot.OwnerID,
		Interval:        interval,
		Status:          status,
		Price:           uc.opts.Pricing.Calculate(spot.PriceInput(interval, evCharging)),
		EVCharging:      evCharging && spot.HasEVCharging,
		ConfirmDeadline: now.Add(uc.opts.ReservationDeadline),
		ReviewDeadline:  interval.End.Add(uc.opts.ReviewWindow),
	}
}

// insert runs inside the caller's transaction
func (uc *UseCase) insert(ctx context.Context, res *domain.Reservation, claimantID *uuid.UUID) error {
	avail, err := uc.checker.IsAvailable(ctx, res.SpotID, res.Interval, availability.Options{ExcludeClaimantID: claimantID})
	if err != nil {
		return fmt.Errorf("%w: availability check failed: %v", ErrInternal, err)
	}
	if !avail.Available {
		return fmt.Errorf("%w: blocked by %s", ErrNotAvailable, avail.Reason)
	}

	if _, err := uc.reservationRepo.Create(ctx, res); err != nil {
		if errors.Is(err, reservationRepo.ErrOverlap) {
			return fmt.Errorf("%w: overlapping reservation", ErrNotAvailable)
		}
		return fmt.Errorf("%w: failed to create reservation: %v", ErrInternal, err)
	}
	return nil
}

func (uc *UseCase) insertFailed(res *domain.Reservation, err error) error {
	switch {
	case errors.Is(err, ErrNotAvailable):
		uc.logger.Info("CreateReservation: spot=%s interval=%s: %v", res.SpotID, res.Interval, err)
		return err
	case errors.Is(err, txmanager.ErrRetriesExhausted):
		uc.logger.Warn("CreateReservation: spot=%s lost serialization retries", res.SpotID)
		return fmt.Errorf("%w: concurrent booking", ErrNotAvailable)
	default:
		uc.logger.Error("CreateReservation: spot=%s: %v", res.SpotID, err)
		return err
	}
}

func (uc *UseCase) commit(ctx context.Context, res *domain.Reservation, methodRef *string) (*Response, error) {
	result, err := uc.reservations.Commit(ctx, res, reservations.CommitRequest{PaymentMethodRef: methodRef})
	if err != nil {
		if errs.IsInconsistent(err) {
			return nil, err
		}
		uc.logger.Error("CreateReservation: payment for reservation=%s not completed: %v", res.ID, err)
		return nil, fmt.Errorf("%w: %v", ErrPayment, err)
	}

	out := result.Outcome
	resp := &Response{
		Reservation:   result.Reservation,
		PaymentStatus: out.Status,
		PaymentRef:    out.PaymentRef,
	}

	switch {
	case out.Authorized():
		uc.notifier.NotifyOwner(ctx, result.Reservation, domain.NotificationReservationConfirmed,
			"New reservation", fmt.Sprintf("Your spot is booked for %s.", res.Interval))
		uc.notifier.NotifyClaimant(ctx, result.Reservation, domain.NotificationReservationConfirmed,
			"Reservation confirmed", fmt.Sprintf("Your parking for %s is confirmed.", res.Interval))
	case out.RequiresAction():
		resp.ClientSecret = out.ClientSecret
	default:
		uc.notifier.NotifyClaimant(ctx, result.Reservation, domain.NotificationReservationCanceled,
			"Payment failed", "Your reservation was canceled because the payment was declined.")
	}
	return resp, nil
}
