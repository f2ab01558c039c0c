package create_reservation

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/m04kA/SMC-ParkingService/internal/api/handlers"
	"github.com/m04kA/SMC-ParkingService/internal/api/middleware"
	createReservation "github.com/m04kA/SMC-ParkingService/internal/usecase/create_reservation"
	"github.com/m04kA/SMC-ParkingService/pkg/errs"
)

const (
	msgInvalidRequestBody = "invalid request body"
	msgInvalidTime        = "invalid start or end, expected RFC 3339 timestamps"
	msgMissingUserID      = "missing user id"
	msgMissingIDs         = "holdId and spotId are required"
	msgInvalidInterval    = "invalid booking interval"
	msgHoldNotFound       = "hold not found"
	msgHoldExpired        = "hold expired, create a new one"
	msgHoldMismatch       = "hold does not cover the requested spot and interval"
	msgForbidden          = "hold belongs to another user"
	msgSpotNotFound       = "parking spot not found"
	msgSpotInactive       = "parking spot is not bookable"
	msgOwnSpot            = "you cannot book your own spot"
	msgEVNotSupported     = "this spot has no EV charging"
	msgNotAvailable       = "the requested interval is not available"
	msgPayment            = "payment provider unavailable, try again"
)

type Handler struct {
	useCase CreateReservationUseCase
	pending *handlers.Reconciliation
	logger  Logger
}

func NewHandler(useCase CreateReservationUseCase, pending *handlers.Reconciliation, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		pending: pending,
		logger:  logger,
	}
}

// Handle POST /api/v1/reservations
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}

	var req CreateReservationRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("POST /reservations - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}
	if req.HoldID == uuid.Nil || req.SpotID == uuid.Nil {
		handlers.RespondBadRequest(w, msgMissingIDs)
		return
	}
	start, errStart := handlers.ParseTime(req.Start)
	end, errEnd := handlers.ParseTime(req.End)
	if errStart != nil || errEnd != nil {
		handlers.RespondBadRequest(w, msgInvalidTime)
		return
	}

	result, err := h.useCase.Execute(r.Context(), &createReservation.Request{
		ClaimantID:       userID,
		HoldID:           req.HoldID,
		SpotID:           req.SpotID,
		Start:            start,
		End:              end,
		EVCharging:       req.EVCharging,
		PaymentMethodRef: req.PaymentMethodRef,
	})
	if err != nil {
		switch {
		case errs.IsInconsistent(err):
			h.logger.Error("POST /reservations - Reconciliation pending: hold_id=%s, error=%v", req.HoldID, err)
			h.pending.Respond(r.Context(), w, err, uuid.Nil, pendingResponse)
		case errors.Is(err, createReservation.ErrInvalidInterval):
			handlers.RespondBadRequest(w, msgInvalidInterval)
		case errors.Is(err, createReservation.ErrInvalidInput):
			handlers.RespondBadRequest(w, msgMissingIDs)
		case errors.Is(err, createReservation.ErrHoldNotFound):
			handlers.RespondNotFound(w, msgHoldNotFound)
		case errors.Is(err, createReservation.ErrHoldExpired):
			handlers.RespondError(w, http.StatusGone, msgHoldExpired)
		case errors.Is(err, createReservation.ErrHoldMismatch):
			handlers.RespondBadRequest(w, msgHoldMismatch)
		case errors.Is(err, createReservation.ErrAccessDenied):
			handlers.RespondForbidden(w, msgForbidden)
		case errors.Is(err, createReservation.ErrSpotNotFound):
			handlers.RespondNotFound(w, msgSpotNotFound)
		case errors.Is(err, createReservation.ErrSpotInactive):
			handlers.RespondUnprocessable(w, msgSpotInactive)
		case errors.Is(err, createReservation.ErrOwnSpot):
			handlers.RespondForbidden(w, msgOwnSpot)
		case errors.Is(err, createReservation.ErrEVNotSupported):
			handlers.RespondUnprocessable(w, msgEVNotSupported)
		case errors.Is(err, createReservation.ErrNotAvailable):
			handlers.RespondConflict(w, msgNotAvailable)
		case errors.Is(err, createReservation.ErrPayment):
			handlers.RespondBadGateway(w, msgPayment)
		default:
			h.logger.Error("POST /reservations - Failed to create reservation: user_id=%s, error=%v", userID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("POST /reservations - Reservation created: id=%s, status=%s", result.Reservation.ID, result.Reservation.Status)
	handlers.RespondJSON(w, handlers.PaymentHTTPStatus(result.PaymentStatus, http.StatusCreated), FromUseCaseResponse(result))
}
