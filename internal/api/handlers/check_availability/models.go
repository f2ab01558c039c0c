package check_availability

import (
	"github.com/google/uuid"

	"github.com/m04kA/SMC-ParkingService/internal/api/handlers"
	checkAvailability "github.com/m04kA/SMC-ParkingService/internal/usecase/check_availability"
)

// AvailabilityResponse HTTP response model
type AvailabilityResponse struct {
	SpotID    uuid.UUID              `json:"spotId"`
	Start     string                 `json:"start"`
	End       string                 `json:"end"`
	Available bool                   `json:"available"`
	Reason    string                 `json:"reason,omitempty"`
	Quote     handlers.PriceResponse `json:"quote"`
}

func FromUseCaseResponse(resp *checkAvailability.Response) AvailabilityResponse {
	return AvailabilityResponse{
		SpotID:    resp.SpotID,
		Start:     handlers.FormatTime(resp.Interval.Start),
		End:       handlers.FormatTime(resp.Interval.End),
		Available: resp.Available,
		Reason:    resp.Reason,
		Quote:     handlers.FromPrice(resp.Quote),
	}
}
