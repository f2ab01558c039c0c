package release_hold

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	holdRepo "github.com/m04kA/SMC-ParkingService/internal/infra/storage/hold"
)

// UseCase claimant abandons checkout before the hold expires
type UseCase struct {
	holdRepo HoldRepository
	logger   Logger
}

func NewUseCase(holdRepo HoldRepository, logger Logger) *UseCase {
	return &UseCase{holdRepo: holdRepo, logger: logger}
}

// Execute releasing an already expired or purged hold reports ErrHoldNotFound
func (uc *UseCase) Execute(ctx context.Context, claimantID, holdID uuid.UUID) error {
	h, err := uc.holdRepo.GetByID(ctx, holdID)
	if err != nil {
		if errors.Is(err, holdRepo.ErrHoldNotFound) {
			return ErrHoldNotFound
		}
		uc.logger.Error("ReleaseHold: failed to get hold id=%s: %v", holdID, err)
		return fmt.Errorf("%w: failed to get hold: %v", ErrInternal, err)
	}
	if h.ClaimantID != claimantID {
		uc.logger.Warn("ReleaseHold: user=%s tried to release hold id=%s of another claimant", claimantID, holdID)
		return ErrAccessDenied
	}

	if err := uc.holdRepo.Delete(ctx, holdID); err != nil {
		if errors.Is(err, holdRepo.ErrHoldNotFound) {
			return ErrHoldNotFound
		}
		uc.logger.Error("ReleaseHold: failed to delete hold id=%s: %v", holdID, err)
		return fmt.Errorf("%w: failed to delete hold: %v", ErrInternal, err)
	}

	uc.logger.Info("ReleaseHold: hold id=%s released", holdID)
	return nil
}
