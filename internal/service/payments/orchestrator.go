// Package payments pairs every payment authority call with a saga log entry.
//
// An operation is recorded as pending before the authority is called. Once the
// money moved it becomes succeeded, and applied after the reservation write
// commits. A succeeded operation that is never applied is either re-applied or
// compensated by the sweeper's reconcile pass, so a crash between the two
// writes never leaves money and reservation state silently diverged.
package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/m04kA/SMC-ParkingService/internal/domain"
	"github.com/m04kA/SMC-ParkingService/internal/infra/storage/paymentop"
	"github.com/m04kA/SMC-ParkingService/internal/integrations/payment"
	"github.com/m04kA/SMC-ParkingService/pkg/errs"
)

// Orchestrator payment saga
type Orchestrator struct {
	client  PaymentClient
	ops     OperationRepository
	metrics Metrics
	logger  Logger
}

// NewOrchestrator creates the orchestrator
func NewOrchestrator(client PaymentClient, ops OperationRepository, metrics Metrics, logger Logger) *Orchestrator {
	return &Orchestrator{
		client:  client,
		ops:     ops,
		metrics: metrics,
		logger:  logger,
	}
}

// Begin records a pending operation. A repeated idempotency key returns the
// earlier operation marked as Resumed; a failed one is reopened for the retry.
func (o *Orchestrator) Begin(ctx context.Context, req BeginRequest) (*domain.PaymentOperation, error) {
	op := &domain.PaymentOperation{
		ReservationID:  req.ReservationID,
		Kind:           req.Kind,
		Status:         domain.PaymentOpPending,
		Amount:         req.Amount,
		PaymentRef:     req.PaymentRef,
		IdempotencyKey: req.IdempotencyKey,
		RequestedEnd:   req.RequestedEnd,
		TargetStatus:   req.TargetStatus,
	}

	created, err := o.ops.Create(ctx, op)
	if err == nil {
		return created, nil
	}
	if !errors.Is(err, paymentop.ErrDuplicateIdempotencyKey) {
		o.logger.Error("Begin: failed to record %s operation for reservation=%s: %v", req.Kind, req.ReservationID, err)
		return nil, fmt.Errorf("%w: Begin - create operation: %v", ErrInternal, err)
	}

	existing, err := o.ops.GetByIdempotencyKey(ctx, req.IdempotencyKey)
	if err != nil {
		return nil, fmt.Errorf("%w: Begin - load operation by key: %v", ErrInternal, err)
	}
	if existing.ReservationID != req.ReservationID || existing.Kind != req.Kind {
		o.logger.Warn("Begin: key %s already used by %s operation for reservation=%s", req.IdempotencyKey, existing.Kind, existing.ReservationID)
		return nil, ErrIdempotencyMismatch
	}

	if existing.Status == domain.PaymentOpFailed {
		if err := o.ops.UpdateStatus(ctx, existing, domain.PaymentOpPending, nil, nil); err != nil {
			return nil, fmt.Errorf("%w: Begin - reopen failed operation: %v", ErrInternal, err)
		}
	}

	existing.Resumed = true
	o.logger.Info("Begin: resumed %s operation id=%s status=%s", existing.Kind, existing.ID, existing.Status)
	return existing, nil
}

// Authorize creates (or, for a resumed operation, looks up) the authorization for
// op.Amount and captures it as soon as it is authorized.
// Declines are a failed outcome; transport errors are ErrExternal with op left pending.
func (o *Orchestrator) Authorize(ctx context.Context, op *domain.PaymentOperation, req AuthorizeRequest) (*Outcome, error) {
	return o.authorize(ctx, op, req, req.PaymentMethodRef == nil, true)
}

// Finalize resolves an authorization the payer completed out of band, typically after
// a challenge or a new checkout. It never creates a new authorization.
func (o *Orchestrator) Finalize(ctx context.Context, op *domain.PaymentOperation, newCheckout bool) (*Outcome, error) {
	return o.authorize(ctx, op, AuthorizeRequest{}, newCheckout, false)
}

func (o *Orchestrator) authorize(ctx context.Context, op *domain.PaymentOperation, req AuthorizeRequest, newCheckout, allowCreate bool) (*Outcome, error) {
	switch op.Status {
	case domain.PaymentOpSucceeded, domain.PaymentOpApplied:
		return &Outcome{Status: domain.AuthorizationAuthorized, PaymentRef: deref(op.PaymentRef)}, nil
	case domain.PaymentOpFailed, domain.PaymentOpCompensated:
		return &Outcome{Status: domain.AuthorizationFailed, PaymentRef: deref(op.PaymentRef)}, nil
	}

	var auth *payment.Authorization
	var err error
	switch {
	case op.PaymentRef != nil:
		auth, err = o.client.GetAuthorization(ctx, *op.PaymentRef)
	case op.Resumed || !allowCreate:
		// an earlier attempt may have reached the authority before it failed
		auth, err = o.client.FindByIdempotencyKey(ctx, op.IdempotencyKey)
		if errors.Is(err, payment.ErrNotFound) && allowCreate {
			auth, err = o.create(ctx, op, req)
		}
	default:
		auth, err = o.create(ctx, op, req)
	}

	if err != nil {
		if errors.Is(err, payment.ErrNotFound) && !allowCreate {
			return o.fail(ctx, op, "authorization not found at the payment authority")
		}
		return o.authorityError(ctx, op, "authorize", err)
	}

	auth.NewCheckout = newCheckout
	return o.settle(ctx, op, auth)
}

func (o *Orchestrator) create(ctx context.Context, op *domain.PaymentOperation, req AuthorizeRequest) (*payment.Authorization, error) {
	metadata := map[string]string{
		"reservation_id": op.ReservationID.String(),
		"operation":      string(op.Kind),
	}
	for k, v := range req.Metadata {
		metadata[k] = v
	}

	return o.client.CreateAuthorization(ctx, payment.AuthorizationRequest{
		Amount:        int64(op.Amount),
		PaymentMethod: req.PaymentMethodRef,
		Metadata:      metadata,
	}, op.IdempotencyKey)
}

// settle turns the authority's view of the intent into an outcome and records it
func (o *Orchestrator) settle(ctx context.Context, op *domain.PaymentOperation, auth *payment.Authorization) (*Outcome, error) {
	ref := auth.ID

	switch auth.Outcome() {
	case domain.AuthorizationAuthorized:
		if !auth.IsCaptured() {
			if _, err := o.client.Capture(ctx, ref, int64(op.Amount), op.IdempotencyKey+":capture"); err != nil {
				if errors.Is(err, payment.ErrDeclined) {
					return o.fail(ctx, op, fmt.Sprintf("capture declined: %v", err))
				}
				o.rememberRef(ctx, op, ref)
				return o.authorityError(ctx, op, "capture", err)
			}
		}
		if err := o.MarkSucceeded(ctx, op, ref); err != nil {
			return nil, err
		}
		o.metrics.IncPayment(string(op.Kind), "authorized")
		return &Outcome{Status: domain.AuthorizationAuthorized, PaymentRef: ref}, nil

	case domain.AuthorizationRequiresAction:
		if op.Status != domain.PaymentOpRequiresAction || op.PaymentRef == nil || *op.PaymentRef != ref {
			if err := o.ops.UpdateStatus(ctx, op, domain.PaymentOpRequiresAction, &ref, nil); err != nil {
				o.logger.Error("Authorize: failed to record pending action for op=%s ref=%s: %v", op.ID, ref, err)
				return nil, fmt.Errorf("%w: record requires_action: %v", ErrInternal, err)
			}
		}
		o.metrics.IncPayment(string(op.Kind), "requires_action")
		return &Outcome{Status: domain.AuthorizationRequiresAction, PaymentRef: ref, ClientSecret: auth.ClientSecret}, nil

	default:
		o.rememberRef(ctx, op, ref)
		return o.fail(ctx, op, "authorization "+auth.Status)
	}
}

// rememberRef stores the intent reference so a retry reads it instead of creating another
func (o *Orchestrator) rememberRef(ctx context.Context, op *domain.PaymentOperation, ref string) {
	if op.PaymentRef != nil && *op.PaymentRef == ref {
		return
	}
	if err := o.ops.UpdateStatus(ctx, op, op.Status, &ref, nil); err != nil {
		o.logger.Warn("Authorize: failed to remember ref=%s on op=%s: %v", ref, op.ID, err)
	}
}

func (o *Orchestrator) fail(ctx context.Context, op *domain.PaymentOperation, reason string) (*Outcome, error) {
	if err := o.MarkFailed(ctx, op, reason); err != nil {
		return nil, err
	}
	o.metrics.IncPayment(string(op.Kind), "failed")
	return &Outcome{Status: domain.AuthorizationFailed, PaymentRef: deref(op.PaymentRef)}, nil
}

func (o *Orchestrator) authorityError(ctx context.Context, op *domain.PaymentOperation, step string, err error) (*Outcome, error) {
	if errors.Is(err, payment.ErrDeclined) {
		return o.fail(ctx, op, fmt.Sprintf("%s declined: %v", step, err))
	}
	o.metrics.IncPayment(string(op.Kind), "external_error")
	o.logger.Warn("Authorize: %s failed for op=%s reservation=%s: %v", step, op.ID, op.ReservationID, err)
	return nil, fmt.Errorf("%w: %s: %v", ErrExternal, step, err)
}

// Status current normalized state of an authorization at the authority
func (o *Orchestrator) Status(ctx context.Context, paymentRef string, newCheckout bool) (domain.AuthorizationStatus, error) {
	auth, err := o.client.GetAuthorization(ctx, paymentRef)
	if err != nil {
		if errors.Is(err, payment.ErrNotFound) {
			return domain.AuthorizationFailed, nil
		}
		return "", fmt.Errorf("%w: Status - get authorization %s: %v", ErrExternal, paymentRef, err)
	}
	auth.NewCheckout = newCheckout
	return auth.Outcome(), nil
}

// CapturedAmount money the authority actually collected on paymentRef. Zero when the
// intent is unknown or only authorized.
func (o *Orchestrator) CapturedAmount(ctx context.Context, paymentRef string) (domain.Money, error) {
	auth, err := o.client.GetAuthorization(ctx, paymentRef)
	if err != nil {
		if errors.Is(err, payment.ErrNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: CapturedAmount - get authorization %s: %v", ErrExternal, paymentRef, err)
	}
	if !auth.IsCaptured() {
		return 0, nil
	}
	if auth.AmountCaptured > 0 {
		return domain.Money(auth.AmountCaptured), nil
	}
	return domain.Money(auth.Amount), nil
}

// Capture collects an authorized amount outside of Authorize, used when an
// earlier attempt authorized but never captured
func (o *Orchestrator) Capture(ctx context.Context, op *domain.PaymentOperation, paymentRef string) error {
	if _, err := o.client.Capture(ctx, paymentRef, int64(op.Amount), op.IdempotencyKey+":capture"); err != nil {
		if errors.Is(err, payment.ErrDeclined) {
			return fmt.Errorf("%w: Capture - %s: %v", ErrDeclined, paymentRef, err)
		}
		return fmt.Errorf("%w: Capture - %s: %v", ErrExternal, paymentRef, err)
	}
	return o.MarkSucceeded(ctx, op, paymentRef)
}

// Refund returns op.Amount of the captured intent op.PaymentRef and yields the refund id.
// Calling it again for the same operation replays the authority's idempotent answer.
func (o *Orchestrator) Refund(ctx context.Context, op *domain.PaymentOperation) (string, error) {
	if op.PaymentRef == nil {
		return "", fmt.Errorf("%w: Refund - operation %s has no payment reference", ErrInternal, op.ID)
	}
	if op.Amount == 0 {
		return "", o.MarkSucceeded(ctx, op, *op.PaymentRef)
	}

	refund, err := o.client.CreateRefund(ctx, *op.PaymentRef, int64(op.Amount), op.IdempotencyKey)
	if err != nil {
		if errors.Is(err, payment.ErrDeclined) {
			if markErr := o.MarkFailed(ctx, op, err.Error()); markErr != nil {
				return "", markErr
			}
			o.metrics.IncPayment(string(op.Kind), "failed")
			return "", fmt.Errorf("%w: Refund - %s: %v", ErrDeclined, *op.PaymentRef, err)
		}
		o.metrics.IncPayment(string(op.Kind), "external_error")
		o.logger.Warn("Refund: authority error for op=%s ref=%s: %v", op.ID, *op.PaymentRef, err)
		return "", fmt.Errorf("%w: Refund - %s: %v", ErrExternal, *op.PaymentRef, err)
	}

	if err := o.MarkSucceeded(ctx, op, *op.PaymentRef); err != nil {
		return refund.ID, err
	}
	o.metrics.IncPayment(string(op.Kind), "refunded")
	o.logger.Info("Refund: refunded %s on ref=%s reservation=%s", op.Amount, *op.PaymentRef, op.ReservationID)
	return refund.ID, nil
}

// Void releases an uncaptured authorization
func (o *Orchestrator) Void(ctx context.Context, op *domain.PaymentOperation) error {
	if op.PaymentRef == nil {
		return fmt.Errorf("%w: Void - operation %s has no payment reference", ErrInternal, op.ID)
	}

	if _, err := o.client.Cancel(ctx, *op.PaymentRef, op.IdempotencyKey); err != nil && !errors.Is(err, payment.ErrNotFound) {
		if errors.Is(err, payment.ErrDeclined) {
			if markErr := o.MarkFailed(ctx, op, err.Error()); markErr != nil {
				return markErr
			}
			return fmt.Errorf("%w: Void - %s: %v", ErrDeclined, *op.PaymentRef, err)
		}
		o.metrics.IncPayment(string(op.Kind), "external_error")
		return fmt.Errorf("%w: Void - %s: %v", ErrExternal, *op.PaymentRef, err)
	}

	if err := o.MarkSucceeded(ctx, op, *op.PaymentRef); err != nil {
		return err
	}
	o.metrics.IncPayment(string(op.Kind), "voided")
	return nil
}

// Compensate refunds a succeeded operation whose reservation write can no longer
// happen, e.g. the reservation expired while the payer was completing a challenge
func (o *Orchestrator) Compensate(ctx context.Context, op *domain.PaymentOperation) error {
	if op.PaymentRef == nil {
		return fmt.Errorf("%w: Compensate - operation %s has no payment reference", ErrInternal, op.ID)
	}

	if op.Kind == domain.PaymentKindAuthorize || op.Kind == domain.PaymentKindExtension {
		_, err := o.client.CreateRefund(ctx, *op.PaymentRef, int64(op.Amount), op.IdempotencyKey+":compensate")
		if err != nil {
			o.logger.Error("Compensate: refund failed for op=%s ref=%s: %v", op.ID, *op.PaymentRef, err)
			return fmt.Errorf("%w: Compensate - refund %s: %v", ErrExternal, *op.PaymentRef, err)
		}
	}

	if err := o.ops.UpdateStatus(ctx, op, domain.PaymentOpCompensated, nil, nil); err != nil {
		return o.Inconsistent(op, fmt.Errorf("mark compensated: %w", err))
	}
	o.metrics.IncPayment(string(op.Kind), "compensated")
	o.logger.Warn("Compensate: op=%s kind=%s amount=%s returned to payer", op.ID, op.Kind, op.Amount)
	return nil
}

// MarkSucceeded records that money moved. A failure here is an inconsistency:
// the authority already acted and the saga log does not know.
func (o *Orchestrator) MarkSucceeded(ctx context.Context, op *domain.PaymentOperation, paymentRef string) error {
	if op.Status == domain.PaymentOpSucceeded || op.Status == domain.PaymentOpApplied {
		return nil
	}
	if err := o.ops.UpdateStatus(ctx, op, domain.PaymentOpSucceeded, &paymentRef, nil); err != nil {
		return o.Inconsistent(op, fmt.Errorf("mark succeeded ref=%s: %w", paymentRef, err))
	}
	return nil
}

// MarkApplied closes the operation, called inside the reservation write transaction
func (o *Orchestrator) MarkApplied(ctx context.Context, op *domain.PaymentOperation) error {
	if op.Status == domain.PaymentOpApplied {
		return nil
	}
	if err := o.ops.UpdateStatus(ctx, op, domain.PaymentOpApplied, nil, nil); err != nil {
		return fmt.Errorf("%w: MarkApplied - op %s: %v", ErrInternal, op.ID, err)
	}
	return nil
}

// MarkFailed closes the operation without money having moved
func (o *Orchestrator) MarkFailed(ctx context.Context, op *domain.PaymentOperation, reason string) error {
	if op.Status == domain.PaymentOpFailed {
		return nil
	}
	if err := o.ops.UpdateStatus(ctx, op, domain.PaymentOpFailed, nil, &reason); err != nil {
		return fmt.Errorf("%w: MarkFailed - op %s: %v", ErrInternal, op.ID, err)
	}
	return nil
}

// Inconsistent logs and counts a saga divergence and returns it marked for callers
func (o *Orchestrator) Inconsistent(op *domain.PaymentOperation, cause error) error {
	detail := fmt.Sprintf("operation_id=%s reservation_id=%s kind=%s status=%s payment_ref=%s amount=%s",
		op.ID, op.ReservationID, op.Kind, op.Status, deref(op.PaymentRef), op.Amount)

	marked := errs.MarkInconsistentReservation(cause, detail, op.ReservationID)
	o.metrics.IncInconsistency(string(op.Kind))
	o.logger.Error("saga inconsistency: %s: %v\n%s", detail, cause, strings.Join(errs.ExtractStackLines(marked, 12), "\n"))
	return marked
}

// GetByPaymentRef latest operation carrying paymentRef
func (o *Orchestrator) GetByPaymentRef(ctx context.Context, paymentRef string) (*domain.PaymentOperation, error) {
	op, err := o.ops.GetByPaymentRef(ctx, paymentRef)
	if err != nil {
		if errors.Is(err, paymentop.ErrOperationNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: GetByPaymentRef - %v", ErrInternal, err)
	}
	return op, nil
}

// ListStale operations left pending or succeeded-but-unapplied for longer than grace
func (o *Orchestrator) ListStale(ctx context.Context, now time.Time, grace time.Duration, limit int) ([]*domain.PaymentOperation, error) {
	ops, err := o.ops.ListStale(ctx, []domain.PaymentOperationStatus{
		domain.PaymentOpPending,
		domain.PaymentOpSucceeded,
	}, now.Add(-grace), limit)
	if err != nil {
		return nil, fmt.Errorf("%w: ListStale - %v", ErrInternal, err)
	}
	return ops, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
