package refund_reservation

import (
	"errors"
	"net/http"

	"github.com/m04kA/SMC-ParkingService/internal/api/handlers"
	"github.com/m04kA/SMC-ParkingService/internal/api/middleware"
	"github.com/m04kA/SMC-ParkingService/internal/domain"
	refundReservation "github.com/m04kA/SMC-ParkingService/internal/usecase/refund_reservation"
	"github.com/m04kA/SMC-ParkingService/pkg/errs"
)

const (
	msgInvalidRequestBody   = "invalid request body"
	msgInvalidReservationID = "invalid reservation id"
	msgMissingUserID        = "missing user id"
	msgInvalidAmount        = "refund amount must be positive and not exceed what was paid"
	msgNotFound             = "reservation not found"
	msgForbidden            = "only the spot owner can refund"
	msgInvalidState         = "reservation cannot be refunded"
	msgPayment              = "refund failed, try again"
)

type Handler struct {
	useCase RefundReservationUseCase
	pending *handlers.Reconciliation
	logger  Logger
}

func NewHandler(useCase RefundReservationUseCase, pending *handlers.Reconciliation, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		pending: pending,
		logger:  logger,
	}
}

// Handle POST /api/v1/reservations/{reservationId}/refund
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
	var req RefundRequest
	if err := handlers.DecodeOptionalJSON(r, &req); err != nil {
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}
	var amount *domain.Money
	if req.Amount != nil {
		m := domain.MoneyFromDecimal(*req.Amount)
		amount = &m
	}

	result, err := h.useCase.Execute(r.Context(), &refundReservation.Request{
		OwnerID:       userID,
		ReservationID: id,
		Amount:        amount,
	})
	if err != nil {
		switch {
		case errs.IsInconsistent(err):
			h.logger.Error("POST /reservations/{id}/refund - Reconciliation pending: reservation_id=%s, error=%v", id, err)
			h.pending.Respond(r.Context(), w, err, id, pendingResponse)
		case errors.Is(err, refundReservation.ErrInvalidAmount):
			handlers.RespondBadRequest(w, msgInvalidAmount)
		case errors.Is(err, refundReservation.ErrNotFound):
			handlers.RespondNotFound(w, msgNotFound)
		case errors.Is(err, refundReservation.ErrAccessDenied):
			h.logger.Warn("POST /reservations/{id}/refund - Access denied: reservation_id=%s, user_id=%s", id, userID)
			handlers.RespondForbidden(w, msgForbidden)
		case errors.Is(err, refundReservation.ErrInvalidState):
			handlers.RespondConflict(w, msgInvalidState)
		case errors.Is(err, refundReservation.ErrPayment):
			handlers.RespondBadGateway(w, msgPayment)
		default:
			h.logger.Error("POST /reservations/{id}/refund - Failed to refund: reservation_id=%s, error=%v", id, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("POST /reservations/{id}/refund - Refunded: reservation_id=%s, amount=%s", id, result.Refunded)
	handlers.RespondJSON(w, http.StatusOK, FromUseCaseResponse(result))
}
