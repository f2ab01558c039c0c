package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics prometheus collectors of the service
type Metrics struct {
	// HTTP
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Database
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
	DBOpenConns     *prometheus.GaugeVec
	DBInUseConns    *prometheus.GaugeVec
	DBIdleConns     *prometheus.GaugeVec
	DBWaitCount     *prometheus.GaugeVec

	// Booking core
	HoldsTotal               *prometheus.CounterVec
	ReservationTransitions   *prometheus.CounterVec
	PaymentOperations        *prometheus.CounterVec
	SweeperRuns              *prometheus.CounterVec
	SweeperItems             *prometheus.CounterVec
	RateLimitDecisions       *prometheus.CounterVec
	SagaInconsistenciesTotal *prometheus.CounterVec
}

// New registers collectors in the default registry
func New(serviceName string) *Metrics {
	return NewWithRegistry(serviceName, prometheus.DefaultRegisterer)
}

// NewWithRegistry registers collectors in reg, tests pass a fresh prometheus.NewRegistry()
func NewWithRegistry(serviceName string, reg prometheus.Registerer) *Metrics {
	constLabels := prometheus.Labels{"service": serviceName}

	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests",
			ConstLabels: constLabels,
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "http_request_duration_seconds",
			Help:        "HTTP request latency",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"method", "route"}),

		DBQueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "db_query_duration_seconds",
			Help:        "Database query latency",
			ConstLabels: constLabels,
			Buckets:     []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"operation"}),
		DBQueryErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "db_query_errors_total",
			Help:        "Database query errors",
			ConstLabels: constLabels,
		}, []string{"operation"}),
		DBOpenConns: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "db_open_connections",
			Help:        "Open connections in the pool",
			ConstLabels: constLabels,
		}, []string{"db"}),
		DBInUseConns: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "db_in_use_connections",
			Help:        "Connections currently in use",
			ConstLabels: constLabels,
		}, []string{"db"}),
		DBIdleConns: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "db_idle_connections",
			Help:        "Idle connections in the pool",
			ConstLabels: constLabels,
		}, []string{"db"}),
		DBWaitCount: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "db_wait_count",
			Help:        "Total number of connections waited for",
			ConstLabels: constLabels,
		}, []string{"db"}),

		HoldsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "parking_holds_total",
			Help:        "Hold requests by outcome (created, reused, conflict)",
			ConstLabels: constLabels,
		}, []string{"outcome"}),
		ReservationTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "parking_reservation_transitions_total",
			Help:        "Reservation status transitions",
			ConstLabels: constLabels,
		}, []string{"from", "to"}),
		PaymentOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "parking_payment_operations_total",
			Help:        "Payment authority calls by operation and outcome",
			ConstLabels: constLabels,
		}, []string{"operation", "outcome"}),
		SweeperRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "parking_sweeper_runs_total",
			Help:        "Sweeper pass executions",
			ConstLabels: constLabels,
		}, []string{"pass", "result"}),
		SweeperItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "parking_sweeper_items_total",
			Help:        "Items processed by sweeper passes",
			ConstLabels: constLabels,
		}, []string{"pass", "result"}),
		RateLimitDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "parking_rate_limit_decisions_total",
			Help:        "Rate limiter decisions (allowed, denied, degraded)",
			ConstLabels: constLabels,
		}, []string{"operation", "decision"}),
		SagaInconsistenciesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "parking_saga_inconsistencies_total",
			Help:        "Payment succeeded but local state write failed",
			ConstLabels: constLabels,
		}, []string{"kind"}),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.DBQueryDuration,
		m.DBQueryErrors,
		m.DBOpenConns,
		m.DBInUseConns,
		m.DBIdleConns,
		m.DBWaitCount,
		m.HoldsTotal,
		m.ReservationTransitions,
		m.PaymentOperations,
		m.SweeperRuns,
		m.SweeperItems,
		m.RateLimitDecisions,
		m.SagaInconsistenciesTotal,
	)

	return m
}

// Nil-safe helpers so business code can record unconditionally

func (m *Metrics) IncHold(outcome string) {
	if m == nil {
		return
	}
	m.HoldsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncTransition(from, to string) {
	if m == nil {
		return
	}
	m.ReservationTransitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) IncPayment(operation, outcome string) {
	if m == nil {
		return
	}
	m.PaymentOperations.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) IncSweeperRun(pass, result string) {
	if m == nil {
		return
	}
	m.SweeperRuns.WithLabelValues(pass, result).Inc()
}

func (m *Metrics) AddSweeperItems(pass, result string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.SweeperItems.WithLabelValues(pass, result).Add(float64(n))
}

func (m *Metrics) IncRateLimit(operation, decision string) {
	if m == nil {
		return
	}
	m.RateLimitDecisions.WithLabelValues(operation, decision).Inc()
}

func (m *Metrics) IncInconsistency(kind string) {
	if m == nil {
		return
	}
	m.SagaInconsistenciesTotal.WithLabelValues(kind).Inc()
}
