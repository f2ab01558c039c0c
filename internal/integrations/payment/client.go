package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

// Logger logging interface of the client
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// Client payment authority REST client.
// Every mutating call carries an Idempotency-Key so a retried request
// returns the original result instead of moving money twice.
type Client struct {
	baseURL    string
	apiKey     string
	currency   string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        Logger
}

// Options client tuning
type Options struct {
	APIKey            string
	Currency          string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
}

// NewClient creates a client. A zero RequestsPerSecond disables throttling.
func NewClient(baseURL string, opts Options, log Logger) *Client {
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		baseURL:  baseURL,
		apiKey:   opts.APIKey,
		currency: opts.Currency,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		limiter: rate.NewLimiter(limit, burst),
		log:     log,
	}
}

// Currency default currency for authorizations
func (c *Client) Currency() string {
	return c.currency
}

// CreateAuthorization creates (and with a stored method, confirms) a manual-capture intent
func (c *Client) CreateAuthorization(ctx context.Context, req AuthorizationRequest, idempotencyKey string) (*Authorization, error) {
	if req.Currency == "" {
		req.Currency = c.currency
	}
	if req.CaptureMethod == "" {
		req.CaptureMethod = "manual"
	}
	req.Confirm = req.PaymentMethod != nil

	var auth Authorization
	if err := c.do(ctx, http.MethodPost, "/v1/payment_intents", req, idempotencyKey, &auth); err != nil {
		return nil, err
	}
	auth.NewCheckout = req.PaymentMethod == nil
	return &auth, nil
}

// GetAuthorization current state of an intent
func (c *Client) GetAuthorization(ctx context.Context, paymentRef string) (*Authorization, error) {
	var auth Authorization
	path := "/v1/payment_intents/" + url.PathEscape(paymentRef)
	if err := c.do(ctx, http.MethodGet, path, nil, "", &auth); err != nil {
		return nil, err
	}
	return &auth, nil
}

// FindByIdempotencyKey looks up an intent created with key; ErrNotFound if the
// original request never reached the authority
func (c *Client) FindByIdempotencyKey(ctx context.Context, idempotencyKey string) (*Authorization, error) {
	var auth Authorization
	path := "/v1/payment_intents/by_idempotency_key/" + url.PathEscape(idempotencyKey)
	if err := c.do(ctx, http.MethodGet, path, nil, "", &auth); err != nil {
		return nil, err
	}
	return &auth, nil
}

// Capture collects an authorized intent, amount 0 captures the full authorization
func (c *Client) Capture(ctx context.Context, paymentRef string, amount int64, idempotencyKey string) (*Authorization, error) {
	var auth Authorization
	path := "/v1/payment_intents/" + url.PathEscape(paymentRef) + "/capture"
	if err := c.do(ctx, http.MethodPost, path, captureRequest{AmountToCapture: amount}, idempotencyKey, &auth); err != nil {
		return nil, err
	}
	return &auth, nil
}

// Cancel voids an uncaptured authorization
func (c *Client) Cancel(ctx context.Context, paymentRef string, idempotencyKey string) (*Authorization, error) {
	var auth Authorization
	path := "/v1/payment_intents/" + url.PathEscape(paymentRef) + "/cancel"
	if err := c.do(ctx, http.MethodPost, path, struct{}{}, idempotencyKey, &auth); err != nil {
		return nil, err
	}
	return &auth, nil
}

// CreateRefund returns amount of a captured intent
func (c *Client) CreateRefund(ctx context.Context, paymentRef string, amount int64, idempotencyKey string) (*Refund, error) {
	var refund Refund
	body := refundRequest{PaymentIntent: paymentRef, Amount: amount}
	if err := c.do(ctx, http.MethodPost, "/v1/refunds", body, idempotencyKey, &refund); err != nil {
		return nil, err
	}
	return &refund, nil
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, idempotencyKey string, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate limiter: %v", ErrUnavailable, err)
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: failed to marshal request: %v", ErrInternal, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%w: failed to create request: %v", ErrInternal, err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("PaymentAuthority: %s %s failed: %v", method, path, err)
		return fmt.Errorf("%w: failed to execute request: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		// ok
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusPaymentRequired,
		resp.StatusCode == http.StatusBadRequest,
		resp.StatusCode == http.StatusConflict:
		return fmt.Errorf("%w: %s", ErrDeclined, readErrorMessage(resp.Body))
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		msg := readErrorMessage(resp.Body)
		c.log.Warn("PaymentAuthority: %s %s returned %d: %s", method, path, resp.StatusCode, msg)
		return fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, msg)
	default:
		return fmt.Errorf("%w: unexpected status code %d: %s", ErrInvalidResponse, resp.StatusCode, readErrorMessage(resp.Body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", ErrInvalidResponse, err)
	}
	return nil
}

func readErrorMessage(r io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(r, 4096))
	var errResp ErrorResponse
	if err := json.Unmarshal(raw, &errResp); err == nil && errResp.Error.Message != "" {
		return errResp.Error.Message
	}
	return string(raw)
}
