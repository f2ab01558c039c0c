package check_availability

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/m04kA/SMC-ParkingService/internal/api/handlers"
	"github.com/m04kA/SMC-ParkingService/internal/api/middleware"
	checkAvailability "github.com/m04kA/SMC-ParkingService/internal/usecase/check_availability"
)

const (
	msgInvalidSpotID    = "invalid spot id"
	msgInvalidStart     = "invalid start, expected RFC 3339 timestamp"
	msgInvalidEnd       = "invalid end, expected RFC 3339 timestamp"
	msgInvalidEV        = "invalid evCharging flag"
	msgInvalidInterval  = "invalid booking interval"
	msgSpotNotFound     = "parking spot not found"
	msgEVNotSupported   = "this spot has no EV charging"
	msgInvalidParameter = "invalid request parameters"
)

type Handler struct {
	useCase CheckAvailabilityUseCase
	logger  Logger
}

func NewHandler(useCase CheckAvailabilityUseCase, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle GET /api/v1/spots/{spotId}/availability?start=&end=&evCharging=
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	spotID, err := handlers.PathUUID(r, "spotId")
	if err != nil {
		handlers.RespondBadRequest(w, msgInvalidSpotID)
		return
	}

	q := r.URL.Query()
	start, err := handlers.ParseTime(q.Get("start"))
	if err != nil {
		handlers.RespondBadRequest(w, msgInvalidStart)
		return
	}
	end, err := handlers.ParseTime(q.Get("end"))
	if err != nil {
		handlers.RespondBadRequest(w, msgInvalidEnd)
		return
	}
	var ev bool
	if raw := q.Get("evCharging"); raw != "" {
		if ev, err = strconv.ParseBool(raw); err != nil {
			handlers.RespondBadRequest(w, msgInvalidEV)
			return
		}
	}

	result, err := h.useCase.Execute(r.Context(), &checkAvailability.Request{
		SpotID:     spotID,
		Start:      start,
		End:        end,
		EVCharging: ev,
		ClaimantID: middleware.OptionalUserID(r.Context()),
	})
	if err != nil {
		switch {
		case errors.Is(err, checkAvailability.ErrInvalidInterval):
			handlers.RespondBadRequest(w, msgInvalidInterval)
		case errors.Is(err, checkAvailability.ErrInvalidInput):
			handlers.RespondBadRequest(w, msgInvalidParameter)
		case errors.Is(err, checkAvailability.ErrSpotNotFound):
			handlers.RespondNotFound(w, msgSpotNotFound)
		case errors.Is(err, checkAvailability.ErrEVNotSupported):
			handlers.RespondUnprocessable(w, msgEVNotSupported)
		default:
			h.logger.Error("GET /spots/{id}/availability - Failed to check availability: spot_id=%s, error=%v", spotID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	handlers.RespondJSON(w, http.StatusOK, FromUseCaseResponse(result))
}
