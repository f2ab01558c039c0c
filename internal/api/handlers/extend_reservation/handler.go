package extend_reservation

import (
	"errors"
	"net/http"

	"github.com/m04kA/SMC-ParkingService/internal/api/handlers"
	"github.com/m04kA/SMC-ParkingService/internal/api/middleware"
	extendReservation "github.com/m04kA/SMC-ParkingService/internal/usecase/extend_reservation"
	"github.com/m04kA/SMC-ParkingService/pkg/errs"
)

const (
	msgInvalidRequestBody   = "invalid request body"
	msgInvalidReservationID = "invalid reservation id"
	msgInvalidNewEnd        = "invalid newEnd, expected RFC 3339 timestamp"
	msgMissingUserID        = "missing user id"
	msgInvalidEnd           = "new end must be after the current end"
	msgNotFound             = "reservation not found"
	msgForbidden            = "only the claimant can extend"
	msgInvalidState         = "reservation cannot be extended"
	msgNotAvailable         = "the extension interval is not available"
	msgPayment              = "payment provider unavailable, try again"
)

type Handler struct {
	useCase ExtendReservationUseCase
	pending *handlers.Reconciliation
	logger  Logger
}

func NewHandler(useCase ExtendReservationUseCase, pending *handlers.Reconciliation, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		pending: pending,
		logger:  logger,
	}
}

// Handle POST /api/v1/reservations/{reservationId}/extend
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
	var req ExtendRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("POST /reservations/{id}/extend - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}
	newEnd, err := handlers.ParseTime(req.NewEnd)
	if err != nil {
		handlers.RespondBadRequest(w, msgInvalidNewEnd)
		return
	}

	result, err := h.useCase.Execute(r.Context(), &extendReservation.Request{
		ClaimantID:       userID,
		ReservationID:    id,
		NewEnd:           newEnd,
		PaymentMethodRef: req.PaymentMethodRef,
	})
	if err != nil {
		switch {
		case errs.IsInconsistent(err):
			h.logger.Error("POST /reservations/{id}/extend - Reconciliation pending: reservation_id=%s, error=%v", id, err)
			h.pending.Respond(r.Context(), w, err, id, pendingResponse)
		case errors.Is(err, extendReservation.ErrInvalidEnd), errors.Is(err, extendReservation.ErrInvalidInput):
			handlers.RespondBadRequest(w, msgInvalidEnd)
		case errors.Is(err, extendReservation.ErrNotFound):
			handlers.RespondNotFound(w, msgNotFound)
		case errors.Is(err, extendReservation.ErrAccessDenied):
			h.logger.Warn("POST /reservations/{id}/extend - Access denied: reservation_id=%s, user_id=%s", id, userID)
			handlers.RespondForbidden(w, msgForbidden)
		case errors.Is(err, extendReservation.ErrInvalidState):
			handlers.RespondConflict(w, msgInvalidState)
		case errors.Is(err, extendReservation.ErrNotAvailable):
			handlers.RespondConflict(w, msgNotAvailable)
		case errors.Is(err, extendReservation.ErrPayment):
			handlers.RespondBadGateway(w, msgPayment)
		default:
			h.logger.Error("POST /reservations/{id}/extend - Failed to extend: reservation_id=%s, error=%v", id, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("POST /reservations/{id}/extend - Extension attempted: reservation_id=%s, payment=%s", id, result.PaymentStatus)
	handlers.RespondJSON(w, handlers.PaymentHTTPStatus(result.PaymentStatus, http.StatusOK), FromUseCaseResponse(result))
}
