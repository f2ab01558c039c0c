package payment

import "github.com/m04kA/SMC-ParkingService/internal/domain"

// Raw intent statuses reported by the authority
const (
	StatusSucceeded             = "succeeded"
	StatusRequiresCapture       = "requires_capture"
	StatusRequiresAction        = "requires_action"
	StatusRequiresConfirmation  = "requires_confirmation"
	StatusRequiresPaymentMethod = "requires_payment_method"
	StatusProcessing            = "processing"
	StatusCanceled              = "canceled"
	StatusFailed                = "failed"
)

// AuthorizationRequest creates a payment intent.
// With PaymentMethod set the intent is confirmed on-session immediately,
// otherwise it is left for a new checkout on the client side.
type AuthorizationRequest struct {
	Amount        int64             `json:"amount"`
	Currency      string            `json:"currency"`
	PaymentMethod *string           `json:"payment_method,omitempty"`
	Confirm       bool              `json:"confirm"`
	CaptureMethod string            `json:"capture_method"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Authorization payment intent as returned by the authority
type Authorization struct {
	ID             string `json:"id"`
	Status         string `json:"status"`
	Amount         int64  `json:"amount"`
	AmountCaptured int64  `json:"amount_received"`
	ClientSecret   string `json:"client_secret,omitempty"`
	NewCheckout    bool   `json:"-"`
}

// Outcome normalizes the raw status.
// requires_payment_method only means "waiting for the payer" on a new checkout;
// on an on-session confirmation it means the method was declined.
func (a *Authorization) Outcome() domain.AuthorizationStatus {
	switch a.Status {
	case StatusSucceeded, StatusRequiresCapture:
		return domain.AuthorizationAuthorized
	case StatusRequiresAction, StatusRequiresConfirmation, StatusProcessing:
		return domain.AuthorizationRequiresAction
	case StatusRequiresPaymentMethod:
		if a.NewCheckout {
			return domain.AuthorizationRequiresAction
		}
		return domain.AuthorizationFailed
	default:
		return domain.AuthorizationFailed
	}
}

// IsCaptured money has actually been collected
func (a *Authorization) IsCaptured() bool {
	return a.Status == StatusSucceeded
}

type captureRequest struct {
	AmountToCapture int64 `json:"amount_to_capture,omitempty"`
}

type refundRequest struct {
	PaymentIntent string `json:"payment_intent"`
	Amount        int64  `json:"amount"`
}

// Refund refund object
type Refund struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Amount int64  `json:"amount"`
}

// ErrorResponse error body of the authority
type ErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
