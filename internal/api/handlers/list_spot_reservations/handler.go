package list_spot_reservations

import (
	"errors"
	"net/http"

	"github.com/m04kA/SMC-ParkingService/internal/api/handlers"
	"github.com/m04kA/SMC-ParkingService/internal/api/middleware"
	"github.com/m04kA/SMC-ParkingService/internal/service/reservations"
)

const (
	msgInvalidSpotID = "invalid spot id"
	msgMissingUserID = "missing user id"
	msgInvalidParams = "invalid request parameters"
	msgForbidden     = "access denied"
)

type Handler struct {
	service ReservationService
	logger  Logger
}

func NewHandler(service ReservationService, logger Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Handle GET /api/v1/spots/{spotId}/reservations
// Query params: from, to, status (optional)
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	spotID, err := handlers.PathUUID(r, "spotId")
	if err != nil {
		h.logger.Warn("GET /spots/{id}/reservations - Invalid spot ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidSpotID)
		return
	}

	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}

	q := r.URL.Query()
	serviceReq, err := ToServiceRequest(spotID, userID, q.Get("from"), q.Get("to"), q.Get("status"))
	if err != nil {
		h.logger.Warn("GET /spots/{id}/reservations - Invalid parameters: %v", err)
		handlers.RespondBadRequest(w, msgInvalidParams)
		return
	}

	// the service checks ownership
	result, err := h.service.ListForSpot(r.Context(), serviceReq)
	if err != nil {
		switch {
		case errors.Is(err, reservations.ErrAccessDenied):
			h.logger.Warn("GET /spots/{id}/reservations - Access denied: spot_id=%s, user_id=%s", spotID, userID)
			handlers.RespondForbidden(w, msgForbidden)
		default:
			h.logger.Error("GET /spots/{id}/reservations - Failed to list reservations: spot_id=%s, error=%v", spotID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("GET /spots/{id}/reservations - Reservations listed: spot_id=%s, count=%d", spotID, len(result))
	handlers.RespondJSON(w, http.StatusOK, FromDetails(result))
}
