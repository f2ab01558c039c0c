package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/m04kA/SMC-ParkingService/internal/integrations/payment"
)

// Authority in-memory payment authority with the manual-capture intent lifecycle.
// Requests with a stored method confirm immediately, new checkouts wait for the payer.
type Authority struct {
	mu       sync.Mutex
	seq      int
	intents  map[string]*payment.Authorization
	byKey    map[string]string
	refunds  map[string]*payment.Refund
	refunded map[string]int64
	calls    map[string]int
	failures map[string]error

	// ConfirmStatus status of intents confirmed with a stored method
	ConfirmStatus string
}

func NewAuthority() *Authority {
	return &Authority{
		intents:       make(map[string]*payment.Authorization),
		byKey:         make(map[string]string),
		refunds:       make(map[string]*payment.Refund),
		refunded:      make(map[string]int64),
		calls:         make(map[string]int),
		failures:      make(map[string]error),
		ConfirmStatus: payment.StatusRequiresCapture,
	}
}

// FailNext makes the next call of method return err
func (a *Authority) FailNext(method string, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failures[method] = err
}

// Calls number of calls made to method
func (a *Authority) Calls(method string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls[method]
}

// SetStatus simulates the payer or the authority moving an intent
func (a *Authority) SetStatus(ref, status string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if in, ok := a.intents[ref]; ok {
		in.Status = status
	}
}

// Intent copy of the stored intent
func (a *Authority) Intent(ref string) (payment.Authorization, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	in, ok := a.intents[ref]
	if !ok {
		return payment.Authorization{}, false
	}
	return *in, true
}

// Refunded total refunded against ref
func (a *Authority) Refunded(ref string) int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.refunded[ref]
}

// Intents number of intents created
func (a *Authority) Intents() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.intents)
}

func (a *Authority) enter(method string) error {
	a.calls[method]++
	if err, ok := a.failures[method]; ok {
		delete(a.failures, method)
		return err
	}
	return nil
}

func (a *Authority) Currency() string {
	return "usd"
}

func (a *Authority) CreateAuthorization(_ context.Context, req payment.AuthorizationRequest, idempotencyKey string) (*payment.Authorization, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.enter("CreateAuthorization"); err != nil {
		return nil, err
	}

	if ref, ok := a.byKey[idempotencyKey]; ok {
		out := *a.intents[ref]
		return &out, nil
	}

	a.seq++
	id := fmt.Sprintf("pi_%d", a.seq)
	in := &payment.Authorization{
		ID:           id,
		Amount:       req.Amount,
		ClientSecret: id + "_secret",
		NewCheckout:  req.PaymentMethod == nil,
		Status:       payment.StatusRequiresPaymentMethod,
	}
	if req.PaymentMethod != nil {
		in.Status = a.ConfirmStatus
	}
	a.intents[id] = in
	a.byKey[idempotencyKey] = id

	out := *in
	return &out, nil
}

func (a *Authority) GetAuthorization(_ context.Context, paymentRef string) (*payment.Authorization, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.enter("GetAuthorization"); err != nil {
		return nil, err
	}
	in, ok := a.intents[paymentRef]
	if !ok {
		return nil, payment.ErrNotFound
	}
	out := *in
	out.NewCheckout = false
	return &out, nil
}

func (a *Authority) FindByIdempotencyKey(_ context.Context, idempotencyKey string) (*payment.Authorization, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.enter("FindByIdempotencyKey"); err != nil {
		return nil, err
	}
	ref, ok := a.byKey[idempotencyKey]
	if !ok {
		return nil, payment.ErrNotFound
	}
	out := *a.intents[ref]
	out.NewCheckout = false
	return &out, nil
}

func (a *Authority) Capture(_ context.Context, paymentRef string, amount int64, _ string) (*payment.Authorization, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.enter("Capture"); err != nil {
		return nil, err
	}
	in, ok := a.intents[paymentRef]
	if !ok {
		return nil, payment.ErrNotFound
	}
	switch in.Status {
	case payment.StatusSucceeded:
	case payment.StatusRequiresCapture:
		if amount == 0 {
			amount = in.Amount
		}
		in.Status = payment.StatusSucceeded
		in.AmountCaptured = amount
	default:
		return nil, fmt.Errorf("%w: intent %s is %s", payment.ErrDeclined, paymentRef, in.Status)
	}
	out := *in
	return &out, nil
}

func (a *Authority) Cancel(_ context.Context, paymentRef string, _ string) (*payment.Authorization, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.enter("Cancel"); err != nil {
		return nil, err
	}
	in, ok := a.intents[paymentRef]
	if !ok {
		return nil, payment.ErrNotFound
	}
	if in.Status == payment.StatusSucceeded {
		return nil, fmt.Errorf("%w: intent %s already captured", payment.ErrDeclined, paymentRef)
	}
	in.Status = payment.StatusCanceled
	out := *in
	return &out, nil
}

func (a *Authority) CreateRefund(_ context.Context, paymentRef string, amount int64, idempotencyKey string) (*payment.Refund, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.enter("CreateRefund"); err != nil {
		return nil, err
	}
	if r, ok := a.refunds[idempotencyKey]; ok {
		out := *r
		return &out, nil
	}
	in, ok := a.intents[paymentRef]
	if !ok {
		return nil, payment.ErrNotFound
	}
	if in.Status != payment.StatusSucceeded {
		return nil, fmt.Errorf("%w: intent %s not captured", payment.ErrDeclined, paymentRef)
	}
	if a.refunded[paymentRef]+amount > in.AmountCaptured {
		return nil, fmt.Errorf("%w: refund exceeds captured amount", payment.ErrDeclined)
	}

	a.seq++
	r := &payment.Refund{ID: fmt.Sprintf("re_%d", a.seq), Status: payment.StatusSucceeded, Amount: amount}
	a.refunds[idempotencyKey] = r
	a.refunded[paymentRef] += amount

	out := *r
	return &out, nil
}
