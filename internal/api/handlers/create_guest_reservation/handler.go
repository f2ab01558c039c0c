package create_guest_reservation

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/m04kA/SMC-ParkingService/internal/api/handlers"
	createReservation "github.com/m04kA/SMC-ParkingService/internal/usecase/create_reservation"
	"github.com/m04kA/SMC-ParkingService/pkg/errs"
)

const (
	msgInvalidRequestBody = "invalid request body"
	msgInvalidTime        = "invalid start or end, expected RFC 3339 timestamps"
	msgMissingSpotID      = "spotId is required"
	msgInvalidInterval    = "invalid booking interval"
	msgInvalidGuest       = "guest needs a full name, a vehicle and an email or phone"
	msgSpotNotFound       = "parking spot not found"
	msgSpotInactive       = "parking spot is not bookable"
	msgEVNotSupported     = "this spot has no EV charging"
	msgNotAvailable       = "the requested interval is not available"
	msgPayment            = "payment provider unavailable, try again"
)

type Handler struct {
	useCase CreateGuestReservationUseCase
	pending *handlers.Reconciliation
	logger  Logger
}

func NewHandler(useCase CreateGuestReservationUseCase, pending *handlers.Reconciliation, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		pending: pending,
		logger:  logger,
	}
}

// Handle POST /api/v1/guest/reservations
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	var req CreateGuestReservationRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("POST /guest/reservations - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}
	if req.SpotID == uuid.Nil {
		handlers.RespondBadRequest(w, msgMissingSpotID)
		return
	}
	start, errStart := handlers.ParseTime(req.Start)
	end, errEnd := handlers.ParseTime(req.End)
	if errStart != nil || errEnd != nil {
		handlers.RespondBadRequest(w, msgInvalidTime)
		return
	}

	result, err := h.useCase.ExecuteGuest(r.Context(), &createReservation.GuestRequest{
		SpotID:     req.SpotID,
		Start:      start,
		End:        end,
		EVCharging: req.EVCharging,
		Guest:      req.Guest.ToDomain(),
	})
	if err != nil {
		switch {
		case errs.IsInconsistent(err):
			h.logger.Error("POST /guest/reservations - Reconciliation pending: spot_id=%s, error=%v", req.SpotID, err)
			h.pending.Respond(r.Context(), w, err, uuid.Nil, pendingResponse)
		case errors.Is(err, createReservation.ErrInvalidInterval):
			handlers.RespondBadRequest(w, msgInvalidInterval)
		case errors.Is(err, createReservation.ErrInvalidGuest):
			handlers.RespondBadRequest(w, msgInvalidGuest)
		case errors.Is(err, createReservation.ErrInvalidInput):
			handlers.RespondBadRequest(w, msgMissingSpotID)
		case errors.Is(err, createReservation.ErrSpotNotFound):
			handlers.RespondNotFound(w, msgSpotNotFound)
		case errors.Is(err, createReservation.ErrSpotInactive):
			handlers.RespondUnprocessable(w, msgSpotInactive)
		case errors.Is(err, createReservation.ErrEVNotSupported):
			handlers.RespondUnprocessable(w, msgEVNotSupported)
		case errors.Is(err, createReservation.ErrNotAvailable):
			handlers.RespondConflict(w, msgNotAvailable)
		case errors.Is(err, createReservation.ErrPayment):
			handlers.RespondBadGateway(w, msgPayment)
		default:
			h.logger.Error("POST /guest/reservations - Failed to create reservation: spot_id=%s, error=%v", req.SpotID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("POST /guest/reservations - Reservation created: id=%s, status=%s", result.Reservation.ID, result.Reservation.Status)
	handlers.RespondJSON(w, handlers.PaymentHTTPStatus(result.PaymentStatus, http.StatusCreated), FromUseCaseResponse(result))
}
