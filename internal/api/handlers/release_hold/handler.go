package release_hold

import (
	"errors"
	"net/http"

	"github.com/m04kA/SMC-ParkingService/internal/api/handlers"
	"github.com/m04kA/SMC-ParkingService/internal/api/middleware"
	releaseHold "github.com/m04kA/SMC-ParkingService/internal/usecase/release_hold"
)

const (
	msgInvalidHoldID = "invalid hold id"
	msgMissingUserID = "missing user id"
	msgNotFound      = "hold not found"
	msgForbidden     = "access denied"
)

type Handler struct {
	useCase ReleaseHoldUseCase
	logger  Logger
}

func NewHandler(useCase ReleaseHoldUseCase, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle DELETE /api/v1/holds/{holdId}
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}
	holdID, err := handlers.PathUUID(r, "holdId")
	if err != nil {
		handlers.RespondBadRequest(w, msgInvalidHoldID)
		return
	}

	if err := h.useCase.Execute(r.Context(), userID, holdID); err != nil {
		switch {
		case errors.Is(err, releaseHold.ErrHoldNotFound):
			handlers.RespondNotFound(w, msgNotFound)
		case errors.Is(err, releaseHold.ErrAccessDenied):
			h.logger.Warn("DELETE /holds/{id} - Access denied: hold_id=%s, user_id=%s", holdID, userID)
			handlers.RespondForbidden(w, msgForbidden)
		default:
			h.logger.Error("DELETE /holds/{id} - Failed to release hold: hold_id=%s, error=%v", holdID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("DELETE /holds/{id} - Hold released: hold_id=%s, user_id=%s", holdID, userID)
	w.WriteHeader(http.StatusNoContent)
}
