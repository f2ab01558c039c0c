package cancel_reservation

import (
	"errors"
	"net/http"

	"github.com/m04kA/SMC-ParkingService/internal/api/handlers"
	"github.com/m04kA/SMC-ParkingService/internal/api/middleware"
	cancelReservation "github.com/m04kA/SMC-ParkingService/internal/usecase/cancel_reservation"
	"github.com/m04kA/SMC-ParkingService/pkg/errs"
)

const (
	msgInvalidRequestBody   = "invalid request body"
	msgInvalidReservationID = "invalid reservation id"
	msgMissingUserID        = "missing user id"
	msgInvalidReason        = "cancellation reason is too long"
	msgNotFound             = "reservation not found"
	msgForbidden            = "access denied"
	msgInvalidState         = "reservation cannot be canceled"
	msgPayment              = "refund failed, try again"
)

type Handler struct {
	useCase CancelReservationUseCase
	pending *handlers.Reconciliation
	logger  Logger
}

func NewHandler(useCase CancelReservationUseCase, pending *handlers.Reconciliation, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		pending: pending,
		logger:  logger,
	}
}

// Handle POST /api/v1/reservations/{reservationId}/cancel
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
	var req CancelRequest
	if err := handlers.DecodeOptionalJSON(r, &req); err != nil {
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	result, err := h.useCase.Execute(r.Context(), &cancelReservation.Request{
		ReservationID: id,
		UserID:        &userID,
		Reason:        req.Reason,
	})
	if err != nil {
		switch {
		case errs.IsInconsistent(err):
			h.logger.Error("POST /reservations/{id}/cancel - Reconciliation pending: reservation_id=%s, error=%v", id, err)
			h.pending.Respond(r.Context(), w, err, id, pendingResponse)
		case errors.Is(err, cancelReservation.ErrInvalidReason):
			handlers.RespondBadRequest(w, msgInvalidReason)
		case errors.Is(err, cancelReservation.ErrNotFound):
			handlers.RespondNotFound(w, msgNotFound)
		case errors.Is(err, cancelReservation.ErrAccessDenied):
			h.logger.Warn("POST /reservations/{id}/cancel - Access denied: reservation_id=%s, user_id=%s", id, userID)
			handlers.RespondForbidden(w, msgForbidden)
		case errors.Is(err, cancelReservation.ErrInvalidState):
			handlers.RespondConflict(w, msgInvalidState)
		case errors.Is(err, cancelReservation.ErrPayment):
			handlers.RespondBadGateway(w, msgPayment)
		default:
			h.logger.Error("POST /reservations/{id}/cancel - Failed to cancel: reservation_id=%s, error=%v", id, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("POST /reservations/{id}/cancel - Canceled: reservation_id=%s, actor=%s, refunded=%s", id, result.Actor, result.Refunded)
	handlers.RespondJSON(w, http.StatusOK, FromUseCaseResponse(result))
}
