package release_hold

import (
	"context"

	"github.com/google/uuid"
)

type ReleaseHoldUseCase interface {
	Execute(ctx context.Context, claimantID, holdID uuid.UUID) error
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
