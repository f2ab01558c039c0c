package create_hold

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/m04kA/SMC-ParkingService/internal/domain"
	holdRepo "github.com/m04kA/SMC-ParkingService/internal/infra/storage/hold"
	spotRepo "github.com/m04kA/SMC-ParkingService/internal/infra/storage/spot"
	"github.com/m04kA/SMC-ParkingService/internal/service/availability"
	"github.com/m04kA/SMC-ParkingService/pkg/txmanager"
)

// UseCase places a short-lived exclusive hold on a spot interval
type UseCase struct {
	holdRepo     HoldRepository
	spotRepo     SpotRepository
	checker      AvailabilityChecker
	txManager    TransactionManager
	metrics      Metrics
	opts         Options
	timeProvider TimeProvider
	logger       Logger
}

// NewUseCase creates the use case
func NewUseCase(
	holdRepo HoldRepository,
	spotRepo SpotRepository,
	checker AvailabilityChecker,
	txManager TransactionManager,
	opts Options,
	metrics Metrics,
	logger Logger,
) *UseCase {
	return &UseCase{
		holdRepo:     holdRepo,
		spotRepo:     spotRepo,
		checker:      checker,
		txManager:    txManager,
		metrics:      metrics,
		opts:         opts,
		timeProvider: &RealTimeProvider{},
		logger:       logger,
	}
}

// WithTimeProvider replaces the clock
func (uc *UseCase) WithTimeProvider(tp TimeProvider) *UseCase {
	uc.timeProvider = tp
	return uc
}

// Execute at most one of any set of concurrent overlapping requests gets a hold.
// Retrying with the same idempotency key returns the first hold while it is live.
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Result, error) {
	uc.logger.Info("CreateHold: claimant=%s, spot=%s, start=%s, end=%s",
		req.ClaimantID, req.SpotID, req.Start.Format(domain.TimeFormat), req.End.Format(domain.TimeFormat))

	// 1. Validate input
	now := uc.timeProvider.Now()
	interval, err := validateRequest(req, now, uc.opts)
	if err != nil {
		uc.logger.Warn("CreateHold: validation failed: %v", err)
		return nil, err
	}
	key := strings.TrimSpace(req.IdempotencyKey)

	var result *Result

	// 2. Check and insert in one serializable transaction
	err = uc.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
		result = nil

		// 2.1. Idempotent replay
		existing, err := uc.holdRepo.GetByIdempotencyKey(txCtx, key)
		switch {
		case err == nil:
			if !existing.SameRequest(req.SpotID, req.ClaimantID, interval) {
				return ErrIdempotencyMismatch
			}
			if !existing.IsExpired(now) {
				result = &Result{Hold: existing, Replayed: true}
				return nil
			}
			// an expired hold frees its key
			if err := uc.holdRepo.Delete(txCtx, existing.ID); err != nil && !errors.Is(err, holdRepo.ErrHoldNotFound) {
				return fmt.Errorf("%w: failed to delete expired hold: %v", ErrInternal, err)
			}
		case !errors.Is(err, holdRepo.ErrHoldNotFound):
			return fmt.Errorf("%w: failed to look up idempotency key: %v", ErrInternal, err)
		}

		// 2.2. Spot must be listed and not owned by the claimant
		spot, err := uc.spotRepo.GetByID(txCtx, req.SpotID)
		if err != nil {
			if errors.Is(err, spotRepo.ErrSpotNotFound) {
				return ErrSpotNotFound
			}
			return fmt.Errorf("%w: failed to get spot: %v", ErrInternal, err)
		}
		if !spot.IsActive {
			return ErrSpotInactive
		}
		if spot.OwnerID == req.ClaimantID {
			return ErrOwnSpot
		}

		// 2.3. Expired holds and the claimant's own overlapping holds give way
		if _, err := uc.holdRepo.PurgeExpired(txCtx, &req.SpotID, now); err != nil {
			return fmt.Errorf("%w: failed to purge expired holds: %v", ErrInternal, err)
		}
		if _, err := uc.holdRepo.DeleteClaimantOverlapping(txCtx, req.SpotID, req.ClaimantID, interval); err != nil {
			return fmt.Errorf("%w: failed to replace own holds: %v", ErrInternal, err)
		}

		// 2.4. Availability
		avail, err := uc.checker.IsAvailable(txCtx, req.SpotID, interval, availability.Options{
			ExcludeClaimantID: &req.ClaimantID,
		})
		if err != nil {
			return fmt.Errorf("%w: availability check failed: %v", ErrInternal, err)
		}
		if !avail.Available {
			return &conflictError{reason: string(avail.Reason)}
		}

		// 2.5. Insert, the exclusion constraint settles races the check missed
		created, err := uc.holdRepo.Create(txCtx, &domain.Hold{
			SpotID:         req.SpotID,
			ClaimantID:     req.ClaimantID,
			Interval:       interval,
			IdempotencyKey: key,
			ExpiresAt:      now.Add(uc.opts.TTL),
		})
		if err != nil {
			switch {
			case errors.Is(err, holdRepo.ErrOverlap):
				return &conflictError{reason: string(availability.ReasonHold)}
			case errors.Is(err, holdRepo.ErrDuplicateIdempotencyKey):
				return errDuplicateKey
			}
			return fmt.Errorf("%w: failed to create hold: %v", ErrInternal, err)
		}

		result = &Result{Hold: created}
		return nil
	})

	var conflict *conflictError
	switch {
	case err == nil:
	case errors.As(err, &conflict):
		uc.logger.Info("CreateHold: spot=%s interval=%s not available: %s", req.SpotID, interval, conflict.reason)
		uc.metrics.IncHold("conflict")
		return &Result{Conflict: true, Reason: conflict.reason}, nil
	case errors.Is(err, txmanager.ErrRetriesExhausted):
		uc.logger.Warn("CreateHold: spot=%s lost serialization retries, reporting conflict", req.SpotID)
		uc.metrics.IncHold("conflict")
		return &Result{Conflict: true, Reason: string(availability.ReasonHold)}, nil
	case errors.Is(err, errDuplicateKey):
		return uc.replayConcurrent(ctx, req, interval, key)
	case errors.Is(err, ErrInternal):
		uc.logger.Error("CreateHold: spot=%s: %v", req.SpotID, err)
		uc.metrics.IncHold("error")
		return nil, err
	default:
		uc.logger.Warn("CreateHold: spot=%s rejected: %v", req.SpotID, err)
		uc.metrics.IncHold("rejected")
		return nil, err
	}

	if result.Replayed {
		uc.logger.Info("CreateHold: replayed hold id=%s for key=%s", result.Hold.ID, key)
		uc.metrics.IncHold("replayed")
	} else {
		uc.logger.Info("CreateHold: hold id=%s created, expires at %s", result.Hold.ID, result.Hold.ExpiresAt.Format(domain.TimeFormat))
		uc.metrics.IncHold("created")
	}
	return result, nil
}

// replayConcurrent a concurrent request with the same key won the insert
func (uc *UseCase) replayConcurrent(ctx context.Context, req *Request, interval domain.Interval, key string) (*Result, error) {
	existing, err := uc.holdRepo.GetByIdempotencyKey(ctx, key)
	if err != nil {
		uc.logger.Error("CreateHold: failed to reload hold for key=%s: %v", key, err)
		return nil, fmt.Errorf("%w: failed to reload hold: %v", ErrInternal, err)
	}
	if !existing.SameRequest(req.SpotID, req.ClaimantID, interval) {
		return nil, ErrIdempotencyMismatch
	}
	uc.metrics.IncHold("replayed")
	return &Result{Hold: existing, Replayed: true}, nil
}
