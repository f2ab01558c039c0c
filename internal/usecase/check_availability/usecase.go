package check_availability

import (
	"context"
	"errors"
	"fmt"

	"github.com/m04kA/SMC-ParkingService/internal/domain"
	spotRepo "github.com/m04kA/SMC-ParkingService/internal/infra/storage/spot"
	"github.com/m04kA/SMC-ParkingService/internal/service/availability"
)

// UseCase availability search with a price quote
type UseCase struct {
	spotRepo     SpotRepository
	checker      AvailabilityChecker
	pricing      domain.PricingPolicy
	opts         Options
	timeProvider TimeProvider
	logger       Logger
}

func NewUseCase(spotRepo SpotRepository, checker AvailabilityChecker, pricing domain.PricingPolicy, opts Options, logger Logger) *UseCase {
	return &UseCase{
		spotRepo:     spotRepo,
		checker:      checker,
		pricing:      pricing,
		opts:         opts,
		timeProvider: &RealTimeProvider{},
		logger:       logger,
	}
}

func (uc *UseCase) WithTimeProvider(tp TimeProvider) *UseCase {
	uc.timeProvider = tp
	return uc
}

// Execute advisory only: the answer may be stale by the time the caller places a hold
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	interval, err := validateRequest(req, uc.timeProvider.Now(), uc.opts)
	if err != nil {
		uc.logger.Warn("CheckAvailability: validation failed: %v", err)
		return nil, err
	}

	spot, err := uc.spotRepo.GetByID(ctx, req.SpotID)
	if err != nil {
		if errors.Is(err, spotRepo.ErrSpotNotFound) {
			return nil, ErrSpotNotFound
		}
		uc.logger.Error("CheckAvailability: failed to get spot id=%s: %v", req.SpotID, err)
		return nil, fmt.Errorf("%w: failed to get spot: %v", ErrInternal, err)
	}
	if !spot.IsActive {
		return nil, ErrSpotNotFound
	}
	if req.EVCharging && !spot.HasEVCharging {
		return nil, ErrEVNotSupported
	}

	result, err := uc.checker.IsAvailable(ctx, req.SpotID, interval, availability.Options{ExcludeClaimantID: req.ClaimantID})
	if err != nil {
		uc.logger.Error("CheckAvailability: spot=%s interval=%s: %v", req.SpotID, interval, err)
		return nil, fmt.Errorf("%w: availability check failed: %v", ErrInternal, err)
	}

	return &Response{
		SpotID:    spot.ID,
		Interval:  interval,
		Available: result.Available,
		Reason:    string(result.Reason),
		Quote:     uc.pricing.Calculate(spot.PriceInput(interval, req.EVCharging)),
	}, nil
}
