package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-ParkingService/internal/domain"
	"github.com/m04kA/SMC-ParkingService/pkg/logger"
	"github.com/m04kA/SMC-ParkingService/pkg/ptr"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, Options{APIKey: "sk_test", Currency: "usd", Timeout: 2 * time.Second}, logger.NewNop())
}

func TestCreateAuthorization_StoredMethod(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/payment_intents", r.URL.Path)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		assert.Equal(t, "key-1", r.Header.Get("Idempotency-Key"))

		var body AuthorizationRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, int64(2200), body.Amount)
		assert.Equal(t, "usd", body.Currency)
		assert.Equal(t, "manual", body.CaptureMethod)
		assert.True(t, body.Confirm)

		_ = json.NewEncoder(w).Encode(Authorization{ID: "pi_1", Status: StatusRequiresCapture, Amount: 2200})
	})

	auth, err := client.CreateAuthorization(context.Background(), AuthorizationRequest{Amount: 2200, PaymentMethod: ptr.Ptr("pm_1")}, "key-1")
	require.NoError(t, err)
	assert.Equal(t, "pi_1", auth.ID)
	assert.Equal(t, domain.AuthorizationAuthorized, auth.Outcome())
	assert.False(t, auth.NewCheckout)
}

func TestCreateAuthorization_NewCheckoutAwaitsPayer(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body AuthorizationRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.False(t, body.Confirm)
		_ = json.NewEncoder(w).Encode(Authorization{ID: "pi_2", Status: StatusRequiresPaymentMethod, ClientSecret: "secret_2"})
	})

	auth, err := client.CreateAuthorization(context.Background(), AuthorizationRequest{Amount: 500}, "key-2")
	require.NoError(t, err)
	assert.Equal(t, domain.AuthorizationRequiresAction, auth.Outcome())
	assert.Equal(t, "secret_2", auth.ClientSecret)
}

func TestAuthorizationOutcome(t *testing.T) {
	tests := []struct {
		status      string
		newCheckout bool
		want        domain.AuthorizationStatus
	}{
		{StatusSucceeded, false, domain.AuthorizationAuthorized},
		{StatusRequiresCapture, false, domain.AuthorizationAuthorized},
		{StatusRequiresAction, false, domain.AuthorizationRequiresAction},
		{StatusRequiresConfirmation, false, domain.AuthorizationRequiresAction},
		{StatusRequiresPaymentMethod, true, domain.AuthorizationRequiresAction},
		{StatusRequiresPaymentMethod, false, domain.AuthorizationFailed},
		{StatusCanceled, false, domain.AuthorizationFailed},
		{StatusFailed, true, domain.AuthorizationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			auth := Authorization{Status: tt.status, NewCheckout: tt.newCheckout}
			assert.Equal(t, tt.want, auth.Outcome())
		})
	}
}

func TestClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"not found", http.StatusNotFound, ErrNotFound},
		{"card declined", http.StatusPaymentRequired, ErrDeclined},
		{"server error", http.StatusBadGateway, ErrUnavailable},
		{"throttled", http.StatusTooManyRequests, ErrUnavailable},
		{"unexpected", http.StatusUnauthorized, ErrInvalidResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":{"message":"boom"}}`))
			})
			_, err := client.GetAuthorization(context.Background(), "pi_1")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestClient_TransportFailureIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := NewClient(srv.URL, Options{Timeout: time.Second}, logger.NewNop())
	_, err := client.Capture(context.Background(), "pi_1", 0, "cap-1")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestCaptureCancelRefund(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/payment_intents/pi_1/capture":
			_ = json.NewEncoder(w).Encode(Authorization{ID: "pi_1", Status: StatusSucceeded, AmountCaptured: 2200})
		case "/v1/payment_intents/pi_1/cancel":
			_ = json.NewEncoder(w).Encode(Authorization{ID: "pi_1", Status: StatusCanceled})
		case "/v1/refunds":
			var body refundRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "pi_1", body.PaymentIntent)
			_ = json.NewEncoder(w).Encode(Refund{ID: "re_1", Status: "succeeded", Amount: body.Amount})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	captured, err := client.Capture(context.Background(), "pi_1", 0, "cap")
	require.NoError(t, err)
	assert.True(t, captured.IsCaptured())
	assert.Equal(t, int64(2200), captured.AmountCaptured)

	canceled, err := client.Cancel(context.Background(), "pi_1", "void")
	require.NoError(t, err)
	assert.Equal(t, domain.AuthorizationFailed, canceled.Outcome())

	refund, err := client.CreateRefund(context.Background(), "pi_1", 1100, "refund")
	require.NoError(t, err)
	assert.Equal(t, "re_1", refund.ID)
	assert.Equal(t, int64(1100), refund.Amount)
}
