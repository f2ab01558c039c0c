// Package reservations applies payment outcomes to reservations. Every status
// change driven by money goes through Apply, which writes the reservation and
// closes the saga operation in one transaction.
package reservations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/m04kA/SMC-ParkingService/internal/domain"
	"github.com/m04kA/SMC-ParkingService/internal/infra/storage/reservation"
	"github.com/m04kA/SMC-ParkingService/internal/service/availability"
	"github.com/m04kA/SMC-ParkingService/internal/service/payments"
)

// Service reservation state driven by payments
type Service struct {
	reservations ReservationRepository
	availability AvailabilityChecker
	payments     PaymentOrchestrator
	txManager    TransactionManager
	pricing      domain.PricingPolicy
	reviewWindow time.Duration
	metrics      Metrics
	logger       Logger
	timeProvider TimeProvider
}

// NewService creates the service
func NewService(
	reservations ReservationRepository,
	checker AvailabilityChecker,
	orchestrator PaymentOrchestrator,
	txManager TransactionManager,
	pricing domain.PricingPolicy,
	reviewWindow time.Duration,
	metrics Metrics,
	logger Logger,
) *Service {
	return &Service{
		reservations: reservations,
		availability: checker,
		payments:     orchestrator,
		txManager:    txManager,
		pricing:      pricing,
		reviewWindow: reviewWindow,
		metrics:      metrics,
		logger:       logger,
		timeProvider: &RealTimeProvider{},
	}
}

// WithTimeProvider replaces the clock
func (s *Service) WithTimeProvider(tp TimeProvider) *Service {
	s.timeProvider = tp
	return s
}

// GetByID reservation visible to its claimant or to the spot owner
func (s *Service) GetByID(ctx context.Context, id uuid.UUID, viewerID uuid.UUID) (*Details, error) {
	res, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if !res.IsClaimant(viewerID) && !res.IsOwner(viewerID) {
		s.logger.Warn("GetByID: user=%s has no access to reservation=%s", viewerID, id)
		return nil, ErrAccessDenied
	}

	return s.Describe(res, res.IsOwner(viewerID)), nil
}

// ListForSpot reservations on a spot, visible to its owner only. Every row carries the
// owner it was booked against, a row owned by someone else means the viewer is not the owner.
func (s *Service) ListForSpot(ctx context.Context, req ListRequest) ([]*Details, error) {
	found, err := s.reservations.FindByFilter(ctx, domain.ReservationsFilter{
		SpotID:      req.SpotID,
		Overlapping: req.Interval,
		Statuses:    req.Statuses,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: ListForSpot - spot %s: %v", ErrInternal, req.SpotID, err)
	}

	out := make([]*Details, 0, len(found))
	for _, res := range found {
		if !res.IsOwner(req.ViewerID) {
			s.logger.Warn("ListForSpot: user=%s does not own spot=%s", req.ViewerID, req.SpotID)
			return nil, ErrAccessDenied
		}
		out = append(out, s.Describe(res, true))
	}
	return out, nil
}

// Describe derives read-time state
func (s *Service) Describe(res *domain.Reservation, viewerIsOwner bool) *Details {
	now := s.timeProvider.Now()
	return &Details{
		Reservation:     res,
		EffectiveStatus: res.EffectiveStatus(now),
		CanCancel:       res.CanBeCancelled(now),
		CanExtend:       res.CanBeExtended(now),
		ViewerIsOwner:   viewerIsOwner,
	}
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	res, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, reservation.ErrReservationNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: load reservation %s: %v", ErrInternal, id, err)
	}
	return res, nil
}

// Apply writes a succeeded payment operation to its reservation and marks it applied,
// both in one transaction. Re-applying an applied operation is a no-op.
// When the reservation moved on and the payment no longer fits, the payment is
// compensated and ErrNotApplicable returned. Any other failure leaves the operation
// succeeded for the reconcile pass and is returned marked inconsistent.
func (s *Service) Apply(ctx context.Context, op *domain.PaymentOperation, opts ApplyOptions) (*domain.Reservation, error) {
	var applied *domain.Reservation

	err := s.txManager.DoSerializable(ctx, func(ctx context.Context) error {
		res, err := s.load(ctx, op.ReservationID)
		if err != nil {
			return err
		}
		if op.Status == domain.PaymentOpApplied {
			applied = res
			return nil
		}

		from := res.Status
		switch op.Kind {
		case domain.PaymentKindAuthorize:
			err = s.applyAuthorization(ctx, res, op)
		case domain.PaymentKindExtension:
			err = s.applyExtension(ctx, res, op)
		case domain.PaymentKindRefund, domain.PaymentKindVoid:
			err = s.applyReversal(ctx, res, op, opts)
		default:
			err = fmt.Errorf("%w: unknown operation kind %q", ErrInternal, op.Kind)
		}
		if err != nil {
			return err
		}

		if err := s.payments.MarkApplied(ctx, op); err != nil {
			return err
		}
		if from != res.Status {
			s.metrics.IncTransition(string(from), string(res.Status))
		}
		applied = res
		return nil
	})

	if err == nil {
		s.logger.Info("Apply: %s operation %s applied to reservation=%s status=%s", op.Kind, op.ID, op.ReservationID, applied.Status)
		return applied, nil
	}

	if errors.Is(err, ErrNotApplicable) {
		s.logger.Warn("Apply: %s operation %s no longer applies to reservation=%s: %v", op.Kind, op.ID, op.ReservationID, err)
		if compErr := s.payments.Compensate(ctx, op); compErr != nil {
			s.logger.Error("Apply: compensation of operation %s failed: %v", op.ID, compErr)
		}
		return nil, err
	}

	return nil, s.payments.Inconsistent(op, fmt.Errorf("apply %s to reservation %s: %w", op.Kind, op.ReservationID, err))
}

func (s *Service) applyAuthorization(ctx context.Context, res *domain.Reservation, op *domain.PaymentOperation) error {
	if res.Status != domain.StatusHeld {
		return fmt.Errorf("%w: reservation is %s, expected held", ErrNotApplicable, res.Status)
	}

	target := domain.StatusPaid
	if res.PaymentMethodRef != nil {
		target = domain.StatusActive
	}
	if op.TargetStatus != nil {
		target = *op.TargetStatus
	}

	captured := res.Captured + op.Amount
	return s.transition(ctx, res, reservation.StatusUpdate{
		To:         target,
		PaymentRef: op.PaymentRef,
		Captured:   &captured,
	})
}

func (s *Service) applyExtension(ctx context.Context, res *domain.Reservation, op *domain.PaymentOperation) error {
	if op.RequestedEnd == nil {
		return fmt.Errorf("%w: extension operation %s has no requested end", ErrInternal, op.ID)
	}
	newEnd := op.RequestedEnd.UTC()

	if !res.Status.IsCommitted() {
		return fmt.Errorf("%w: reservation is %s", ErrNotApplicable, res.Status)
	}
	if !newEnd.After(res.Interval.End) {
		return fmt.Errorf("%w: reservation already ends at %s", ErrNotApplicable, res.Interval.End.Format(time.RFC3339))
	}

	delta, err := domain.NewInterval(res.Interval.End, newEnd)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotApplicable, err)
	}

	// the slot may have been taken while the payer was authenticating
	result, err := s.availability.IsAvailable(ctx, res.SpotID, delta, availability.Options{ExcludeReservationID: &res.ID})
	if err != nil {
		return err
	}
	if !result.Available {
		return fmt.Errorf("%w: extension interval blocked by %s", ErrNotApplicable, result.Reason)
	}

	deltaPrice := s.ExtensionPrice(res, delta)
	oldEnd := res.Interval.End
	now := s.timeProvider.Now()

	err = s.reservations.ApplyExtension(ctx, res, newEnd, res.Price.Add(deltaPrice), res.Captured+op.Amount, newEnd.Add(s.reviewWindow), now)
	if err != nil {
		if errors.Is(err, reservation.ErrOverlap) {
			return fmt.Errorf("%w: extension overlaps another reservation", ErrNotApplicable)
		}
		if errors.Is(err, reservation.ErrStatusChanged) {
			return ErrConcurrentUpdate
		}
		return err
	}

	return s.reservations.InsertExtension(ctx, &domain.ReservationExtension{
		ReservationID: res.ID,
		OldEnd:        oldEnd,
		NewEnd:        newEnd,
		Amount:        op.Amount,
		PaymentRef:    derefString(op.PaymentRef),
	})
}

// ExtensionPrice prices the added interval at the rates recorded on the reservation
func (s *Service) ExtensionPrice(res *domain.Reservation, delta domain.Interval) domain.PriceBreakdown {
	return s.pricing.Calculate(domain.PriceInput{
		HourlyRate:   res.Price.HourlyRate,
		Hours:        delta.Hours(),
		AddOnPremium: res.Price.AddOnRate,
		AddOn:        res.EVCharging && res.Price.AddOnRate > 0,
	})
}

func (s *Service) applyReversal(ctx context.Context, res *domain.Reservation, op *domain.PaymentOperation, opts ApplyOptions) error {
	target := domain.StatusCanceled
	if op.TargetStatus != nil {
		target = *op.TargetStatus
	}
	if !res.Status.CanTransitionTo(target) {
		return fmt.Errorf("%w: reservation is %s, cannot move to %s", ErrNotApplicable, res.Status, target)
	}

	upd := reservation.StatusUpdate{To: target}
	if op.Kind == domain.PaymentKindRefund {
		refunded := res.Refunded + op.Amount
		upd.Refunded = &refunded
		if refunded > res.Captured {
			// the authority collected money the reservation never recorded
			upd.Captured = &refunded
		}
		if opts.RefundRef != "" {
			upd.RefundRef = &opts.RefundRef
		}
	}
	c := opts.Cancellation
	if c == nil && target == domain.StatusCanceled {
		c = &Cancellation{Reason: domain.ReasonPaymentReconciled, Actor: domain.ActorSystem}
	}
	if c != nil {
		now := s.timeProvider.Now()
		upd.CancellationReason = &c.Reason
		upd.CanceledBy = &c.Actor
		upd.CanceledAt = &now
	}

	return s.transition(ctx, res, upd)
}

func (s *Service) transition(ctx context.Context, res *domain.Reservation, upd reservation.StatusUpdate) error {
	if !res.Status.CanTransitionTo(upd.To) {
		return fmt.Errorf("%w: transition %s -> %s not allowed", ErrNotApplicable, res.Status, upd.To)
	}

	err := s.reservations.Transition(ctx, res, upd)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, reservation.ErrStatusChanged):
		return ErrConcurrentUpdate
	case errors.Is(err, reservation.ErrRefundExceedsCaptured):
		return fmt.Errorf("%w: refund exceeds captured amount", ErrNotApplicable)
	default:
		return err
	}
}

// Transition status change without money involved, e.g. decline of a pending request
// or expiry of a reservation nobody paid for
func (s *Service) Transition(ctx context.Context, res *domain.Reservation, upd reservation.StatusUpdate) error {
	from := res.Status
	err := s.txManager.Do(ctx, func(ctx context.Context) error {
		return s.transition(ctx, res, upd)
	})
	if err != nil {
		if errors.Is(err, ErrConcurrentUpdate) || errors.Is(err, ErrNotApplicable) {
			return err
		}
		return fmt.Errorf("%w: Transition - %v", ErrInternal, err)
	}
	s.metrics.IncTransition(string(from), string(res.Status))
	return nil
}

// Commit authorizes the total of a held reservation. Authorized moves it to active
// (stored method) or paid (new checkout); a declined payment cancels it;
// a pending challenge leaves it held with the authorization reference recorded.
func (s *Service) Commit(ctx context.Context, res *domain.Reservation, req CommitRequest) (*CommitResult, error) {
	op, err := s.payments.Begin(ctx, payments.BeginRequest{
		ReservationID:  res.ID,
		Kind:           domain.PaymentKindAuthorize,
		Amount:         res.Price.Total,
		IdempotencyKey: AuthorizeKey(res.ID),
	})
	if err != nil {
		return nil, err
	}

	outcome, err := s.payments.Authorize(ctx, op, payments.AuthorizeRequest{
		PaymentMethodRef: req.PaymentMethodRef,
		Metadata:         map[string]string{"spot_id": res.SpotID.String()},
	})
	if err != nil {
		return nil, err
	}

	switch {
	case outcome.Authorized():
		updated, err := s.Apply(ctx, op, ApplyOptions{})
		if err != nil {
			return nil, err
		}
		return &CommitResult{Reservation: updated, Outcome: outcome}, nil

	case outcome.RequiresAction():
		if res.PaymentRef == nil || *res.PaymentRef != outcome.PaymentRef {
			if err := s.reservations.SetPaymentRef(ctx, res, outcome.PaymentRef); err != nil {
				s.logger.Warn("Commit: failed to record payment ref on reservation=%s: %v", res.ID, err)
			}
		}
		return &CommitResult{Reservation: res, Outcome: outcome}, nil

	default:
		if err := s.CancelForPaymentFailure(ctx, res); err != nil {
			return nil, err
		}
		return &CommitResult{Reservation: res, Outcome: outcome}, nil
	}
}

// CancelForPaymentFailure held -> canceled after the authority refused the payment
func (s *Service) CancelForPaymentFailure(ctx context.Context, res *domain.Reservation) error {
	reason := domain.ReasonPaymentFailed
	actor := domain.ActorSystem
	now := s.timeProvider.Now()

	err := s.Transition(ctx, res, reservation.StatusUpdate{
		To:                 domain.StatusCanceled,
		CancellationReason: &reason,
		CanceledBy:         &actor,
		CanceledAt:         &now,
	})
	if err != nil {
		s.logger.Error("Commit: failed to cancel reservation=%s after declined payment: %v", res.ID, err)
		return err
	}
	s.logger.Info("Commit: reservation=%s canceled, payment declined", res.ID)
	return nil
}

// Reverse returns money and moves the reservation to req.Target.
// Captured money is refunded (possibly zero), an uncaptured authorization is voided,
// and a reservation that never reached the authority just transitions.
// Before voiding, the authority is asked whether the intent was captured after all:
// a capture whose response was lost is refunded in full, since the reservation
// never committed.
func (s *Service) Reverse(ctx context.Context, res *domain.Reservation, req ReverseRequest) (*domain.Reservation, error) {
	opts := ApplyOptions{Cancellation: req.Cancellation}
	target := req.Target
	key := req.IdempotencyKey
	amount := req.Amount
	refundable := res.Refundable()

	var kind domain.PaymentOperationKind
	switch {
	case res.Captured > 0 && res.PaymentRef != nil:
		kind = domain.PaymentKindRefund
	case res.PaymentRef != nil:
		kind = domain.PaymentKindVoid
		captured, err := s.payments.CapturedAmount(ctx, *res.PaymentRef)
		if err != nil {
			s.logger.Warn("Reverse: cannot read authorization %s for reservation=%s: %v", *res.PaymentRef, res.ID, err)
			return nil, err
		}
		if captured > res.Refunded {
			s.logger.Warn("Reverse: reservation=%s has %s captured at the authority but not recorded, refunding",
				res.ID, captured)
			kind = domain.PaymentKindRefund
			refundable = captured - res.Refunded
			amount = refundable
			// an earlier void attempt may already own the plain key
			key = req.IdempotencyKey + ":captured"
		}
	default:
		upd := reservation.StatusUpdate{To: target}
		if req.Cancellation != nil {
			now := s.timeProvider.Now()
			upd.CancellationReason = &req.Cancellation.Reason
			upd.CanceledBy = &req.Cancellation.Actor
			upd.CanceledAt = &now
		}
		if err := s.Transition(ctx, res, upd); err != nil {
			return nil, err
		}
		return res, nil
	}

	if kind == domain.PaymentKindVoid {
		amount = 0
	}
	if amount > refundable {
		amount = refundable
	}

	op, err := s.payments.Begin(ctx, payments.BeginRequest{
		ReservationID:  res.ID,
		Kind:           kind,
		Amount:         amount,
		IdempotencyKey: key,
		PaymentRef:     res.PaymentRef,
		TargetStatus:   &target,
	})
	if err != nil {
		return nil, err
	}

	if op.Status == domain.PaymentOpApplied {
		return s.load(ctx, res.ID)
	}

	if kind == domain.PaymentKindRefund {
		refundRef, err := s.payments.Refund(ctx, op)
		if err != nil {
			return nil, err
		}
		opts.RefundRef = refundRef
	} else if err := s.payments.Void(ctx, op); err != nil {
		return nil, err
	}

	return s.Apply(ctx, op, opts)
}

// Saga actions, one operation per reservation and action
const (
	ActionAuthorize = "authorize"
	ActionDecline   = "decline"
	ActionCancel    = "cancel"
	ActionExpire    = "expire"
	ActionRefund    = "refund"
)

// OperationKey idempotency key of a saga action on a reservation
func OperationKey(id uuid.UUID, action string) string {
	return fmt.Sprintf("reservation:%s:%s", id, action)
}

// AuthorizeKey idempotency key of a reservation's main authorization
func AuthorizeKey(id uuid.UUID) string {
	return OperationKey(id, ActionAuthorize)
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
