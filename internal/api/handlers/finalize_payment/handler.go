package finalize_payment

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/m04kA/SMC-ParkingService/internal/api/handlers"
	"github.com/m04kA/SMC-ParkingService/internal/api/middleware"
	finalizePayment "github.com/m04kA/SMC-ParkingService/internal/usecase/finalize_payment"
	"github.com/m04kA/SMC-ParkingService/pkg/errs"
)

const (
	msgMissingPaymentRef = "payment reference is required"
	msgNotFound          = "payment not found"
	msgForbidden         = "payment belongs to another account"
	msgInvalidState      = "reservation no longer awaits this payment, any charge was refunded"
	msgPayment           = "payment provider unavailable, try again"
)

type Handler struct {
	useCase FinalizePaymentUseCase
	pending *handlers.Reconciliation
	logger  Logger
}

func NewHandler(useCase FinalizePaymentUseCase, pending *handlers.Reconciliation, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		pending: pending,
		logger:  logger,
	}
}

// Handle POST /api/v1/payments/{paymentRef}/finalize
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	ref := strings.TrimSpace(mux.Vars(r)["paymentRef"])
	if ref == "" {
		handlers.RespondBadRequest(w, msgMissingPaymentRef)
		return
	}

	result, err := h.useCase.Execute(r.Context(), &finalizePayment.Request{
		PaymentRef: ref,
		CallerID:   middleware.OptionalUserID(r.Context()),
	})
	if err != nil {
		switch {
		case errs.IsInconsistent(err):
			h.logger.Error("POST /payments/{ref}/finalize - Reconciliation pending: payment_ref=%s, error=%v", ref, err)
			h.pending.Respond(r.Context(), w, err, uuid.Nil, pendingResponse)
		case errors.Is(err, finalizePayment.ErrInvalidInput):
			handlers.RespondBadRequest(w, msgMissingPaymentRef)
		case errors.Is(err, finalizePayment.ErrNotFound):
			handlers.RespondNotFound(w, msgNotFound)
		case errors.Is(err, finalizePayment.ErrAccessDenied):
			h.logger.Warn("POST /payments/{ref}/finalize - Access denied: payment_ref=%s", ref)
			handlers.RespondForbidden(w, msgForbidden)
		case errors.Is(err, finalizePayment.ErrInvalidState):
			handlers.RespondConflict(w, msgInvalidState)
		case errors.Is(err, finalizePayment.ErrPayment):
			handlers.RespondBadGateway(w, msgPayment)
		default:
			h.logger.Error("POST /payments/{ref}/finalize - Failed to finalize: payment_ref=%s, error=%v", ref, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("POST /payments/{ref}/finalize - Finalized: reservation_id=%s, payment=%s", result.Reservation.ID, result.PaymentStatus)
	handlers.RespondJSON(w, handlers.PaymentHTTPStatus(result.PaymentStatus, http.StatusOK), FromUseCaseResponse(result, ref))
}
