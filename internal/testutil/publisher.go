package testutil

import (
	"context"
	"sync"

	"github.com/m04kA/SMC-ParkingService/internal/domain"
)

// Publisher records published notifications
type Publisher struct {
	mu     sync.Mutex
	events []domain.Notification
	Err    error
}

func (p *Publisher) Publish(_ context.Context, n *domain.Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.events = append(p.events, *n)
	return nil
}

// Published notifications in publish order
func (p *Publisher) Published() []domain.Notification {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.Notification(nil), p.events...)
}
