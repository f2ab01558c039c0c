package reconcile_guest

import (
	"errors"
	"net/http"

	"github.com/m04kA/SMC-ParkingService/internal/api/handlers"
	"github.com/m04kA/SMC-ParkingService/internal/api/middleware"
	reconcileGuest "github.com/m04kA/SMC-ParkingService/internal/usecase/reconcile_guest"
)

const (
	msgInvalidRequestBody = "invalid request body"
	msgMissingUserID      = "missing user id"
	msgNothingToMatch     = "account has no email and no usable phone was given"
)

type Handler struct {
	useCase ReconcileGuestUseCase
	logger  Logger
}

func NewHandler(useCase ReconcileGuestUseCase, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle POST /api/v1/account/reconcile-guest
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	subject, ok := middleware.GetSubject(r.Context())
	if !ok {
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}
	var req ReconcileRequest
	if err := handlers.DecodeOptionalJSON(r, &req); err != nil {
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	result, err := h.useCase.Execute(r.Context(), &reconcileGuest.Request{
		UserID: subject.ID,
		Email:  subject.Email,
		Phone:  req.Phone,
	})
	if err != nil {
		switch {
		case errors.Is(err, reconcileGuest.ErrInvalidInput):
			handlers.RespondBadRequest(w, msgNothingToMatch)
		default:
			h.logger.Error("POST /account/reconcile-guest - Failed to reconcile: user_id=%s, error=%v", subject.ID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("POST /account/reconcile-guest - Linked %d reservations: user_id=%s", len(result.Linked), subject.ID)
	handlers.RespondJSON(w, http.StatusOK, ReconcileResponse{Linked: result.Linked})
}
