package sweep

import (
	"time"

	"github.com/m04kA/SMC-ParkingService/internal/domain"
)

// Pass names, also used as metric labels
const (
	PassHolds      = "holds"
	PassReminders  = "reminders"
	PassExpiry     = "expiry"
	PassCompletion = "completion"
	PassReconcile  = "reconcile"
	PassCounters   = "ratelimit_counters"
)

type Options struct {
	BatchSize        int
	ReminderFraction float64
	ReconcileGrace   time.Duration
}

func DefaultOptions() Options {
	return Options{
		BatchSize:        100,
		ReminderFraction: domain.DefaultReminderFraction,
		ReconcileGrace:   domain.DefaultSagaReconcileGrace,
	}
}

// PassResult Err is set when the pass could not run at all
type PassResult struct {
	Processed int
	Failed    int
	Err       error
}

type Report struct {
	StartedAt time.Time
	Passes    map[string]PassResult
}

// Processed items handled by pass
func (r Report) Processed(pass string) int {
	return r.Passes[pass].Processed
}

// Failed true when any pass failed or skipped items
func (r Report) Failed() bool {
	for _, p := range r.Passes {
		if p.Err != nil || p.Failed > 0 {
			return true
		}
	}
	return false
}
