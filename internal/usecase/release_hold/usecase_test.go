package release_hold

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-ParkingService/internal/domain"
	"github.com/m04kA/SMC-ParkingService/internal/testutil"
	"github.com/m04kA/SMC-ParkingService/pkg/logger"
)

func TestExecute(t *testing.T) {
	now := time.Date(2030, 6, 10, 8, 0, 0, 0, time.UTC)
	claimant := uuid.New()

	tests := []struct {
		name      string
		caller    uuid.UUID
		holdID    func(h domain.Hold) uuid.UUID
		wantErr   error
		remaining int
	}{
		{"own hold", claimant, func(h domain.Hold) uuid.UUID { return h.ID }, nil, 0},
		{"other claimant", uuid.New(), func(h domain.Hold) uuid.UUID { return h.ID }, ErrAccessDenied, 1},
		{"unknown hold", claimant, func(domain.Hold) uuid.UUID { return uuid.New() }, ErrHoldNotFound, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := testutil.NewStore(testutil.NewClock(now))
			h := domain.Hold{
				ID:             uuid.New(),
				SpotID:         uuid.New(),
				ClaimantID:     claimant,
				Interval:       domain.Interval{Start: now.Add(2 * time.Hour), End: now.Add(4 * time.Hour)},
				IdempotencyKey: "k",
				ExpiresAt:      now.Add(domain.DefaultHoldTTL),
			}
			store.PutHold(h)

			err := NewUseCase(store.HoldRepo(), logger.NewNop()).Execute(context.Background(), tt.caller, tt.holdID(h))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Len(t, store.Holds(), tt.remaining)
		})
	}
}
