// Package ratelimit sliding-window limits per operation and subject, counted in
// shared storage so every API instance sees the same totals.
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Limiter sliding window estimate over two fixed buckets:
// previous*(1-elapsed/window) + current
type Limiter struct {
	store        CounterStore
	policies     map[string]Policy
	metrics      Metrics
	logger       Logger
	timeProvider TimeProvider
}

// NewLimiter creates the limiter. Operations without a policy are not limited.
func NewLimiter(store CounterStore, policies map[string]Policy, metrics Metrics, logger Logger) *Limiter {
	return &Limiter{
		store:        store,
		policies:     policies,
		metrics:      metrics,
		logger:       logger,
		timeProvider: RealTimeProvider{},
	}
}

// Allow counts one request of subject for operation. A denied request is taken back
// from every window it was counted in, so it costs nothing against any limit. When
// the counter store is unreachable the request is allowed and the decision flagged Degraded.
func (l *Limiter) Allow(ctx context.Context, operation, subject string) Decision {
	policy, ok := l.policies[operation]
	if !ok || len(policy.Limits) == 0 {
		return Decision{Allowed: true}
	}

	now := l.timeProvider.Now()
	counted := make([]bucket, 0, len(policy.Limits))
	for _, limit := range policy.Limits {
		b := bucket{
			key:   fmt.Sprintf("%s:%s:%s", operation, subject, limit.Window),
			start: now.Truncate(limit.Window),
		}
		elapsed := now.Sub(b.start)

		current, previous, err := l.store.CheckAndIncrement(ctx, b.key, b.start, limit.Window)
		if err != nil {
			l.release(ctx, counted)
			l.logger.Warn("Allow: counter store unavailable for %s, allowing request: %v", operation, err)
			l.metrics.IncRateLimit(operation, "degraded")
			return Decision{Allowed: true, Degraded: true}
		}
		counted = append(counted, b)

		weight := 1 - float64(elapsed)/float64(limit.Window)
		estimate := float64(previous)*weight + float64(current)
		if estimate > float64(limit.Max) {
			l.release(ctx, counted)
			retryAfter := limit.Window - elapsed
			if retryAfter < time.Second {
				retryAfter = time.Second
			}
			l.logger.Info("Allow: %s denied for subject=%s (%.1f/%d per %s)", operation, subject, estimate, limit.Max, limit.Window)
			l.metrics.IncRateLimit(operation, "denied")
			return Decision{Allowed: false, RetryAfter: retryAfter}
		}
	}

	l.metrics.IncRateLimit(operation, "allowed")
	return Decision{Allowed: true}
}

type bucket struct {
	key   string
	start time.Time
}

func (l *Limiter) release(ctx context.Context, counted []bucket) {
	for _, b := range counted {
		if err := l.store.Release(ctx, b.key, b.start); err != nil {
			l.logger.Warn("Allow: failed to release %s: %v", b.key, err)
		}
	}
}
