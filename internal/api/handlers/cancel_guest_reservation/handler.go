package cancel_guest_reservation

import (
	"errors"
	"net/http"
	"strings"

	"github.com/m04kA/SMC-ParkingService/internal/api/handlers"
	cancelReservation "github.com/m04kA/SMC-ParkingService/internal/usecase/cancel_reservation"
	"github.com/m04kA/SMC-ParkingService/pkg/errs"
)

const (
	msgInvalidRequestBody   = "invalid request body"
	msgInvalidReservationID = "invalid reservation id"
	msgMissingEmail         = "email is required"
	msgInvalidReason        = "cancellation reason is too long"
	msgNotFound             = "reservation not found"
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

// Handle POST /api/v1/guest/reservations/{reservationId}/cancel
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	id, err := handlers.PathUUID(r, "reservationId")
	if err != nil {
		handlers.RespondBadRequest(w, msgInvalidReservationID)
		return
	}
	var req GuestCancelRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}
	email := strings.TrimSpace(req.Email)
	if email == "" {
		handlers.RespondBadRequest(w, msgMissingEmail)
		return
	}

	result, err := h.useCase.Execute(r.Context(), &cancelReservation.Request{
		ReservationID: id,
		GuestEmail:    &email,
		Reason:        req.Reason,
	})
	if err != nil {
		switch {
		case errs.IsInconsistent(err):
			h.logger.Error("POST /guest/reservations/{id}/cancel - Reconciliation pending: reservation_id=%s, error=%v", id, err)
			h.pending.Respond(r.Context(), w, err, id, pendingResponse)
		case errors.Is(err, cancelReservation.ErrInvalidReason):
			handlers.RespondBadRequest(w, msgInvalidReason)
		case errors.Is(err, cancelReservation.ErrInvalidInput):
			handlers.RespondBadRequest(w, msgMissingEmail)
		// a wrong email must not reveal that the reservation exists
		case errors.Is(err, cancelReservation.ErrNotFound), errors.Is(err, cancelReservation.ErrAccessDenied):
			handlers.RespondNotFound(w, msgNotFound)
		case errors.Is(err, cancelReservation.ErrInvalidState):
			handlers.RespondConflict(w, msgInvalidState)
		case errors.Is(err, cancelReservation.ErrPayment):
			handlers.RespondBadGateway(w, msgPayment)
		default:
			h.logger.Error("POST /guest/reservations/{id}/cancel - Failed to cancel: reservation_id=%s, error=%v", id, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("POST /guest/reservations/{id}/cancel - Canceled by guest: reservation_id=%s, refunded=%s", id, result.Refunded)
	handlers.RespondJSON(w, http.StatusOK, FromUseCaseResponse(result))
}
