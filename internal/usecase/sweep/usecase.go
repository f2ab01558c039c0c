package sweep

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/m04kA/SMC-ParkingService/internal/domain"
	"github.com/m04kA/SMC-ParkingService/internal/service/reservations"
)

// UseCase background maintenance: reaps holds, reminds, expires unconfirmed
// reservations, completes ended ones and drives stuck payment operations forward.
// Every pass is idempotent, running the sweeper twice changes nothing the second time.
type UseCase struct {
	holdRepo        HoldRepository
	reservationRepo ReservationRepository
	payments        PaymentOrchestrator
	reservations    ReservationService
	notifier        Notifier
	counters        CounterStore
	opts            Options
	metrics         Metrics
	timeProvider    TimeProvider
	logger          Logger
}

func NewUseCase(
	holdRepo HoldRepository,
	reservationRepo ReservationRepository,
	orchestrator PaymentOrchestrator,
	reservationService ReservationService,
	notifier Notifier,
	counters CounterStore,
	opts Options,
	metrics Metrics,
	logger Logger,
) *UseCase {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultOptions().BatchSize
	}
	return &UseCase{
		holdRepo:        holdRepo,
		reservationRepo: reservationRepo,
		payments:        orchestrator,
		reservations:    reservationService,
		notifier:        notifier,
		counters:        counters,
		opts:            opts,
		metrics:         metrics,
		timeProvider:    &RealTimeProvider{},
		logger:          logger,
	}
}

func (uc *UseCase) WithTimeProvider(tp TimeProvider) *UseCase {
	uc.timeProvider = tp
	return uc
}

// Run executes all passes. A failing pass is logged and does not stop the others.
func (uc *UseCase) Run(ctx context.Context) Report {
	report := Report{StartedAt: uc.timeProvider.Now(), Passes: make(map[string]PassResult)}

	passes := []struct {
		name string
		fn   func(ctx context.Context) PassResult
	}{
		{PassHolds, uc.purgeHolds},
		{PassReminders, uc.sendReminders},
		{PassExpiry, uc.expire},
		{PassCompletion, uc.complete},
		{PassReconcile, uc.reconcile},
		{PassCounters, uc.purgeCounters},
	}

	for _, p := range passes {
		if ctx.Err() != nil {
			uc.logger.Warn("Sweep: stopped before %s: %v", p.name, ctx.Err())
			break
		}
		result := p.fn(ctx)
		report.Passes[p.name] = result
		uc.record(p.name, result)
	}

	uc.logger.Info("Sweep: done in %s, holds=%d reminders=%d expired=%d completed=%d reconciled=%d",
		uc.timeProvider.Now().Sub(report.StartedAt),
		report.Processed(PassHolds), report.Processed(PassReminders), report.Processed(PassExpiry),
		report.Processed(PassCompletion), report.Processed(PassReconcile))
	return report
}

func (uc *UseCase) record(pass string, r PassResult) {
	if r.Err != nil {
		uc.logger.Error("Sweep: %s pass failed: %v", pass, r.Err)
		uc.metrics.IncSweeperRun(pass, "error")
	} else {
		uc.metrics.IncSweeperRun(pass, "ok")
	}
	uc.metrics.AddSweeperItems(pass, "ok", r.Processed)
	uc.metrics.AddSweeperItems(pass, "error", r.Failed)
}

func (uc *UseCase) purgeHolds(ctx context.Context) PassResult {
	n, err := uc.holdRepo.PurgeExpired(ctx, nil, uc.timeProvider.Now())
	return PassResult{Processed: int(n), Err: err}
}

func (uc *UseCase) sendReminders(ctx context.Context) PassResult {
	due, err := uc.reservationRepo.ListReminderDue(ctx, uc.timeProvider.Now(), uc.opts.ReminderFraction, uc.opts.BatchSize)
	if err != nil {
		return PassResult{Err: err}
	}

	var result PassResult
	for _, res := range due {
		var n *domain.Notification
		switch res.Status {
		case domain.StatusPending:
			owner := res.OwnerID
			n = &domain.Notification{
				UserID:  &owner,
				Type:    domain.NotificationApprovalReminder,
				Title:   "Reservation request waiting",
				Message: fmt.Sprintf("Approve or decline the request for %s before %s.", res.Interval, res.ConfirmDeadline.Format(domain.TimeFormat)),
			}
		case domain.StatusHeld:
			n = claimantNotification(res, domain.NotificationPaymentReminder, "Complete your payment",
				fmt.Sprintf("Finish the payment before %s to keep your reservation.", res.ConfirmDeadline.Format(domain.TimeFormat)))
		default:
			continue
		}
		n.RelatedID = res.ID

		sent, err := uc.notifier.NotifyOnce(ctx, n)
		if err != nil {
			uc.logger.Warn("Sweep: reminder for reservation=%s not sent: %v", res.ID, err)
			result.Failed++
			continue
		}
		if sent {
			result.Processed++
		}
	}
	return result
}

func (uc *UseCase) expire(ctx context.Context) PassResult {
	expired, err := uc.reservationRepo.ListExpired(ctx, uc.timeProvider.Now(), uc.opts.BatchSize)
	if err != nil {
		return PassResult{Err: err}
	}

	var result PassResult
	for _, res := range expired {
		canceled, err := uc.reservations.Reverse(ctx, res, reservations.ReverseRequest{
			Target:         domain.StatusCanceled,
			Amount:         res.Refundable(),
			Cancellation:   &reservations.Cancellation{Reason: domain.ReasonConfirmationExpired, Actor: domain.ActorSystem},
			IdempotencyKey: reservations.OperationKey(res.ID, reservations.ActionExpire),
		})
		if err != nil {
			if errors.Is(err, reservations.ErrConcurrentUpdate) || errors.Is(err, reservations.ErrNotApplicable) {
				// confirmed or canceled while we were looking
				uc.logger.Info("Sweep: reservation=%s left awaiting confirmation: %v", res.ID, err)
				continue
			}
			uc.logger.Error("Sweep: failed to expire reservation=%s: %v", res.ID, err)
			result.Failed++
			continue
		}

		if canceled.ClaimantID != nil {
			if _, err := uc.holdRepo.DeleteByClaimantAndSpot(ctx, *canceled.ClaimantID, canceled.SpotID); err != nil {
				uc.logger.Warn("Sweep: failed to clean holds for reservation=%s: %v", canceled.ID, err)
			}
		}

		n := claimantNotification(canceled, domain.NotificationReservationExpired, "Reservation expired",
			fmt.Sprintf("Your reservation for %s was not confirmed in time and has been canceled.", canceled.Interval))
		n.RelatedID = canceled.ID
		if _, err := uc.notifier.NotifyOnce(ctx, n); err != nil {
			uc.logger.Warn("Sweep: expiry notice for reservation=%s not sent: %v", canceled.ID, err)
		}

		uc.logger.Info("Sweep: reservation=%s expired", canceled.ID)
		result.Processed++
	}
	return result
}

func (uc *UseCase) complete(ctx context.Context) PassResult {
	ids, err := uc.reservationRepo.CompleteEnded(ctx, uc.timeProvider.Now(), uc.opts.BatchSize)
	return PassResult{Processed: len(ids), Err: err}
}

func (uc *UseCase) purgeCounters(ctx context.Context) PassResult {
	if uc.counters == nil {
		return PassResult{}
	}
	n, err := uc.counters.PurgeExpired(ctx, uc.timeProvider.Now())
	return PassResult{Processed: int(n), Err: err}
}

// reconcile finishes payment operations a crashed or timed out request left behind
func (uc *UseCase) reconcile(ctx context.Context) PassResult {
	stale, err := uc.payments.ListStale(ctx, uc.timeProvider.Now(), uc.opts.ReconcileGrace, uc.opts.BatchSize)
	if err != nil {
		return PassResult{Err: err}
	}

	var result PassResult
	for _, op := range stale {
		if err := uc.reconcileOne(ctx, op); err != nil {
			uc.logger.Error("Sweep: reconcile of %s operation %s for reservation=%s failed: %v", op.Kind, op.ID, op.ReservationID, err)
			result.Failed++
			continue
		}
		result.Processed++
	}
	return result
}

func (uc *UseCase) reconcileOne(ctx context.Context, op *domain.PaymentOperation) error {
	opts := reservations.ApplyOptions{Cancellation: cancellationFor(op)}

	if op.Status == domain.PaymentOpPending {
		switch op.Kind {
		case domain.PaymentKindAuthorize, domain.PaymentKindExtension:
			res, err := uc.reservationRepo.GetByID(ctx, op.ReservationID)
			if err != nil {
				return err
			}
			newCheckout := op.Kind == domain.PaymentKindAuthorize && res.PaymentMethodRef == nil
			outcome, err := uc.payments.Finalize(ctx, op, newCheckout)
			if err != nil {
				return err
			}
			if outcome.Failed() && op.Kind == domain.PaymentKindAuthorize && res.Status == domain.StatusHeld {
				return uc.reservations.CancelForPaymentFailure(ctx, res)
			}
			if !outcome.Authorized() {
				return nil
			}

		case domain.PaymentKindRefund:
			refundRef, err := uc.payments.Refund(ctx, op)
			if err != nil {
				return err
			}
			opts.RefundRef = refundRef

		case domain.PaymentKindVoid:
			if err := uc.payments.Void(ctx, op); err != nil {
				return err
			}
		}
	}

	_, err := uc.reservations.Apply(ctx, op, opts)
	if errors.Is(err, reservations.ErrNotApplicable) {
		// Apply already returned the money
		return nil
	}
	return err
}

// cancellationFor recovers who asked for a reversal from the action in its key
func cancellationFor(op *domain.PaymentOperation) *reservations.Cancellation {
	switch {
	case strings.HasSuffix(op.IdempotencyKey, ":"+reservations.ActionExpire):
		return &reservations.Cancellation{Reason: domain.ReasonConfirmationExpired, Actor: domain.ActorSystem}
	case strings.HasSuffix(op.IdempotencyKey, ":"+reservations.ActionDecline):
		return &reservations.Cancellation{Reason: domain.ReasonDeclinedByOwner, Actor: domain.ActorOwner}
	default:
		return nil
	}
}

func claimantNotification(res *domain.Reservation, t domain.NotificationType, title, message string) *domain.Notification {
	n := &domain.Notification{
		UserID:  res.ClaimantID,
		Type:    t,
		Title:   title,
		Message: message,
	}
	if res.ClaimantID == nil && res.Guest != nil && res.Guest.Email != nil {
		n.RecipientEmail = res.Guest.Email
	}
	return n
}
