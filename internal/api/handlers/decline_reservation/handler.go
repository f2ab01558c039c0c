package decline_reservation

import (
	"errors"
	"net/http"

	"github.com/m04kA/SMC-ParkingService/internal/api/handlers"
	"github.com/m04kA/SMC-ParkingService/internal/api/middleware"
	approveReservation "github.com/m04kA/SMC-ParkingService/internal/usecase/approve_reservation"
	"github.com/m04kA/SMC-ParkingService/pkg/errs"
)

const (
	msgInvalidRequestBody   = "invalid request body"
	msgInvalidReservationID = "invalid reservation id"
	msgMissingUserID        = "missing user id"
	msgInvalidReason        = "decline reason is too long"
	msgNotFound             = "reservation not found"
	msgForbidden            = "only the spot owner can decline"
	msgInvalidState         = "reservation is not awaiting approval"
	msgPayment              = "payment provider unavailable, try again"
)

type Handler struct {
	useCase DeclineReservationUseCase
	pending *handlers.Reconciliation
	logger  Logger
}

func NewHandler(useCase DeclineReservationUseCase, pending *handlers.Reconciliation, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		pending: pending,
		logger:  logger,
	}
}

// Handle POST /api/v1/reservations/{reservationId}/decline
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}
	id, err := handlers.PathUUID(r, "reservationId")
	if err != nil {
		handlers.RespondBadRequest(w, msgInvalidReservationID)
		return
	}
	var req DeclineRequest
	if err := handlers.DecodeOptionalJSON(r, &req); err != nil {
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	res, err := h.useCase.Decline(r.Context(), userID, id, req.Reason)
	if err != nil {
		switch {
		case errs.IsInconsistent(err):
			h.logger.Error("POST /reservations/{id}/decline - Reconciliation pending: reservation_id=%s, error=%v", id, err)
			h.pending.Respond(r.Context(), w, err, id, pendingResponse)
		case errors.Is(err, approveReservation.ErrInvalidReason):
			handlers.RespondBadRequest(w, msgInvalidReason)
		case errors.Is(err, approveReservation.ErrNotFound):
			handlers.RespondNotFound(w, msgNotFound)
		case errors.Is(err, approveReservation.ErrAccessDenied):
			h.logger.Warn("POST /reservations/{id}/decline - Access denied: reservation_id=%s, user_id=%s", id, userID)
			handlers.RespondForbidden(w, msgForbidden)
		case errors.Is(err, approveReservation.ErrInvalidState), errors.Is(err, approveReservation.ErrExpired):
			handlers.RespondConflict(w, msgInvalidState)
		case errors.Is(err, approveReservation.ErrPayment):
			handlers.RespondBadGateway(w, msgPayment)
		default:
			h.logger.Error("POST /reservations/{id}/decline - Failed to decline: reservation_id=%s, error=%v", id, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("POST /reservations/{id}/decline - Declined: reservation_id=%s", id)
	handlers.RespondJSON(w, http.StatusOK, handlers.FromReservation(res))
}
