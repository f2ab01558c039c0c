package approve_reservation

import (
	"errors"
	"net/http"

	"github.com/m04kA/SMC-ParkingService/internal/api/handlers"
	"github.com/m04kA/SMC-ParkingService/internal/api/middleware"
	approveReservation "github.com/m04kA/SMC-ParkingService/internal/usecase/approve_reservation"
	"github.com/m04kA/SMC-ParkingService/pkg/errs"
)

const (
	msgInvalidReservationID = "invalid reservation id"
	msgMissingUserID        = "missing user id"
	msgNotFound             = "reservation not found"
	msgForbidden            = "only the spot owner can approve"
	msgInvalidState         = "reservation is not awaiting approval"
	msgExpired              = "confirmation deadline has passed"
	msgNotAvailable         = "the interval is no longer available"
	msgPayment              = "payment provider unavailable, try again"
)

type Handler struct {
	useCase ApproveReservationUseCase
	pending *handlers.Reconciliation
	logger  Logger
}

func NewHandler(useCase ApproveReservationUseCase, pending *handlers.Reconciliation, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		pending: pending,
		logger:  logger,
	}
}

// Handle POST /api/v1/reservations/{reservationId}/approve
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

	result, err := h.useCase.Approve(r.Context(), userID, id)
	if err != nil {
		switch {
		case errs.IsInconsistent(err):
			h.logger.Error("POST /reservations/{id}/approve - Reconciliation pending: reservation_id=%s, error=%v", id, err)
			h.pending.Respond(r.Context(), w, err, id, pendingResponse)
		case errors.Is(err, approveReservation.ErrNotFound):
			handlers.RespondNotFound(w, msgNotFound)
		case errors.Is(err, approveReservation.ErrAccessDenied):
			h.logger.Warn("POST /reservations/{id}/approve - Access denied: reservation_id=%s, user_id=%s", id, userID)
			handlers.RespondForbidden(w, msgForbidden)
		case errors.Is(err, approveReservation.ErrInvalidState):
			handlers.RespondConflict(w, msgInvalidState)
		case errors.Is(err, approveReservation.ErrExpired):
			handlers.RespondError(w, http.StatusGone, msgExpired)
		case errors.Is(err, approveReservation.ErrNotAvailable):
			handlers.RespondConflict(w, msgNotAvailable)
		case errors.Is(err, approveReservation.ErrPayment):
			handlers.RespondBadGateway(w, msgPayment)
		default:
			h.logger.Error("POST /reservations/{id}/approve - Failed to approve: reservation_id=%s, error=%v", id, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("POST /reservations/{id}/approve - Approved: reservation_id=%s, status=%s", id, result.Reservation.Status)
	handlers.RespondJSON(w, handlers.PaymentHTTPStatus(result.PaymentStatus, http.StatusOK), FromUseCaseResponse(result))
}
