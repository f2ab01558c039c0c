package ratelimit

import (
	"context"
	"time"
)

// CounterStore shared fixed-window counters
type CounterStore interface {
	CheckAndIncrement(ctx context.Context, key string, windowStart time.Time, window time.Duration) (current, previous int, err error)
	// Release takes back one request counted by CheckAndIncrement
	Release(ctx context.Context, key string, windowStart time.Time) error
}

// Metrics rate limit decisions
type Metrics interface {
	IncRateLimit(operation, decision string)
}

// TimeProvider source of the current time
type TimeProvider interface {
	Now() time.Time
}

// RealTimeProvider wall clock in UTC
type RealTimeProvider struct{}

func (RealTimeProvider) Now() time.Time {
	return time.Now().UTC()
}

// Logger logging interface
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
