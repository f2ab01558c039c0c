// Package handlers shared HTTP helpers of the API handlers
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/m04kA/SMC-ParkingService/internal/domain"
	"github.com/m04kA/SMC-ParkingService/pkg/errs"
)

// HeaderReconciliationPending set when money moved but the reservation write did not;
// the sweeper finishes the operation
const HeaderReconciliationPending = "X-Reconciliation-Pending"

const (
	msgInternalError         = "internal server error"
	msgReconciliationPending = "payment accepted, the reservation will be updated shortly"
	msgTooManyRequests       = "too many requests"

	maxBodyBytes = 1 << 20
)

var ErrEmptyBody = errors.New("request body is empty")

// ErrorResponse error payload of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

func RespondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, ErrorResponse{Error: message})
}

func RespondBadRequest(w http.ResponseWriter, message string) {
	RespondError(w, http.StatusBadRequest, message)
}

func RespondUnauthorized(w http.ResponseWriter, message string) {
	RespondError(w, http.StatusUnauthorized, message)
}

func RespondForbidden(w http.ResponseWriter, message string) {
	RespondError(w, http.StatusForbidden, message)
}

func RespondNotFound(w http.ResponseWriter, message string) {
	RespondError(w, http.StatusNotFound, message)
}

func RespondConflict(w http.ResponseWriter, message string) {
	RespondError(w, http.StatusConflict, message)
}

func RespondUnprocessable(w http.ResponseWriter, message string) {
	RespondError(w, http.StatusUnprocessableEntity, message)
}

func RespondInternalError(w http.ResponseWriter) {
	RespondError(w, http.StatusInternalServerError, msgInternalError)
}

// RespondBadGateway the payment authority could not be reached or refused the call
func RespondBadGateway(w http.ResponseWriter, message string) {
	RespondError(w, http.StatusBadGateway, message)
}

// RespondReconciliationPending 202 instead of a 5xx: the client must not retry the payment.
// payload is the endpoint's usual response, a nil payload sends a message instead.
func RespondReconciliationPending(w http.ResponseWriter, payload interface{}) {
	w.Header().Set(HeaderReconciliationPending, "true")
	if payload == nil {
		RespondError(w, http.StatusAccepted, msgReconciliationPending)
		return
	}
	RespondJSON(w, http.StatusAccepted, payload)
}

// ReservationLoader reads a reservation as stored
type ReservationLoader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Reservation, error)
}

// Reconciliation answers requests whose payment moved but whose reservation write failed
// with the reservation as it is stored now
type Reconciliation struct {
	loader ReservationLoader
}

func NewReconciliation(loader ReservationLoader) *Reconciliation {
	return &Reconciliation{loader: loader}
}

// Respond reloads the reservation err belongs to, or fallbackID when err does not say,
// and renders it with render. Without a readable reservation only the message is sent.
func (rc *Reconciliation) Respond(ctx context.Context, w http.ResponseWriter, err error, fallbackID uuid.UUID, render func(*domain.Reservation) interface{}) {
	id, ok := errs.InconsistentReservation(err)
	if !ok {
		id = fallbackID
	}
	if rc == nil || rc.loader == nil || id == uuid.Nil {
		RespondReconciliationPending(w, nil)
		return
	}

	res, loadErr := rc.loader.GetByID(ctx, id)
	if loadErr != nil || res == nil {
		RespondReconciliationPending(w, nil)
		return
	}
	RespondReconciliationPending(w, render(res))
}

// RespondTooManyRequests 429 with Retry-After in whole seconds
func RespondTooManyRequests(w http.ResponseWriter, retryAfter time.Duration) {
	seconds := int(math.Ceil(retryAfter.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(seconds))
	RespondError(w, http.StatusTooManyRequests, msgTooManyRequests)
}

// DecodeJSON strict decoding of a bounded request body
func DecodeJSON(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return ErrEmptyBody
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrEmptyBody
		}
		return err
	}
	return nil
}

// DecodeOptionalJSON like DecodeJSON, an empty body leaves dst untouched
func DecodeOptionalJSON(r *http.Request, dst interface{}) error {
	if err := DecodeJSON(r, dst); err != nil && !errors.Is(err, ErrEmptyBody) {
		return err
	}
	return nil
}

// PathUUID parses a uuid route variable
func PathUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw, ok := mux.Vars(r)[name]
	if !ok {
		return uuid.Nil, fmt.Errorf("missing path parameter %s", name)
	}
	return uuid.Parse(raw)
}

// ParseTime RFC 3339 timestamp normalized to UTC
func ParseTime(raw string) (time.Time, error) {
	t, err := time.Parse(domain.TimeFormat, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// FormatTime API timestamp format
func FormatTime(t time.Time) string {
	return t.UTC().Format(domain.TimeFormat)
}
