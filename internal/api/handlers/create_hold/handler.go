package create_hold

import (
	"errors"
	"net/http"
	"strings"

	"github.com/m04kA/SMC-ParkingService/internal/api/handlers"
	"github.com/m04kA/SMC-ParkingService/internal/api/middleware"
	createHold "github.com/m04kA/SMC-ParkingService/internal/usecase/create_hold"
)

const (
	msgInvalidRequestBody = "invalid request body"
	msgInvalidSpotID      = "invalid spot id"
	msgInvalidTime        = "invalid start or end, expected RFC 3339 timestamps"
	msgMissingUserID      = "missing user id"
	msgInvalidInput       = "idempotency key is required"
	msgInvalidInterval    = "invalid booking interval"
	msgSpotNotFound       = "parking spot not found"
	msgSpotInactive       = "parking spot is not bookable"
	msgOwnSpot            = "you cannot book your own spot"
	msgKeyMismatch        = "idempotency key already used for a different request"
	msgNotAvailable       = "the requested interval is not available"
)

type Handler struct {
	useCase CreateHoldUseCase
	logger  Logger
}

func NewHandler(useCase CreateHoldUseCase, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle POST /api/v1/spots/{spotId}/holds
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}
	spotID, err := handlers.PathUUID(r, "spotId")
	if err != nil {
		handlers.RespondBadRequest(w, msgInvalidSpotID)
		return
	}

	var req CreateHoldRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("POST /spots/{id}/holds - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}
	start, errStart := handlers.ParseTime(req.Start)
	end, errEnd := handlers.ParseTime(req.End)
	if errStart != nil || errEnd != nil {
		handlers.RespondBadRequest(w, msgInvalidTime)
		return
	}
	key := req.IdempotencyKey
	if header := strings.TrimSpace(r.Header.Get("Idempotency-Key")); header != "" {
		key = header
	}

	result, err := h.useCase.Execute(r.Context(), &createHold.Request{
		ClaimantID:     userID,
		SpotID:         spotID,
		Start:          start,
		End:            end,
		IdempotencyKey: key,
	})
	if err != nil {
		switch {
		case errors.Is(err, createHold.ErrInvalidInterval):
			handlers.RespondBadRequest(w, msgInvalidInterval)
		case errors.Is(err, createHold.ErrInvalidInput):
			handlers.RespondBadRequest(w, msgInvalidInput)
		case errors.Is(err, createHold.ErrSpotNotFound):
			handlers.RespondNotFound(w, msgSpotNotFound)
		case errors.Is(err, createHold.ErrSpotInactive):
			handlers.RespondUnprocessable(w, msgSpotInactive)
		case errors.Is(err, createHold.ErrOwnSpot):
			handlers.RespondForbidden(w, msgOwnSpot)
		case errors.Is(err, createHold.ErrIdempotencyMismatch):
			handlers.RespondUnprocessable(w, msgKeyMismatch)
		default:
			h.logger.Error("POST /spots/{id}/holds - Failed to create hold: spot_id=%s, user_id=%s, error=%v", spotID, userID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	if result.Conflict {
		h.logger.Info("POST /spots/{id}/holds - Interval taken: spot_id=%s, reason=%s", spotID, result.Reason)
		handlers.RespondJSON(w, http.StatusConflict, ConflictResponse{Error: msgNotAvailable, Reason: result.Reason})
		return
	}

	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	handlers.RespondJSON(w, status, FromHold(result.Hold))
}
