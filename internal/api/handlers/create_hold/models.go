package create_hold

import (
	"github.com/google/uuid"

	"github.com/m04kA/SMC-ParkingService/internal/api/handlers"
	"github.com/m04kA/SMC-ParkingService/internal/domain"
)

// CreateHoldRequest HTTP request model, the Idempotency-Key header may replace the body field
type CreateHoldRequest struct {
	Start          string `json:"start"`
	End            string `json:"end"`
	IdempotencyKey string `json:"idempotencyKey,omitempty"`
}

// HoldResponse HTTP response model
type HoldResponse struct {
	ID        uuid.UUID `json:"id"`
	SpotID    uuid.UUID `json:"spotId"`
	Start     string    `json:"start"`
	End       string    `json:"end"`
	ExpiresAt string    `json:"expiresAt"`
}

// ConflictResponse interval is taken
type ConflictResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason"`
}

func FromHold(h *domain.Hold) HoldResponse {
	return HoldResponse{
		ID:        h.ID,
		SpotID:    h.SpotID,
		Start:     handlers.FormatTime(h.Interval.Start),
		End:       handlers.FormatTime(h.Interval.End),
		ExpiresAt: handlers.FormatTime(h.ExpiresAt),
	}
}
