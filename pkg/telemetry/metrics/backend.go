package metrics

import (
	"strconv"

	"github.com/johnhenry/ai.matey-sub001/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// BackendMetrics tracks backend behavior as seen by the router.
//
// Metrics:
//   - matey_gateway_backend_errors_total: classified failures by backend
//   - matey_gateway_backend_health: health gauge (1=healthy)
//   - matey_gateway_breaker_state: breaker gauge (0=closed, 1=open, 2=half-open)
//   - matey_gateway_fallback_attempts: backends tried per fallback chain
type BackendMetrics struct {
	errorsTotal      *prometheus.CounterVec
	health           *prometheus.GaugeVec
	breakerState     *prometheus.GaugeVec
	fallbackAttempts *prometheus.HistogramVec
}

// NewBackendMetrics creates and registers backend metrics with the provided
// registry.
func NewBackendMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *BackendMetrics {
	bm := &BackendMetrics{
		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "backend_errors_total",
				Help:      "Total classified backend failures",
			},
			[]string{"backend", "code"},
		),

		health: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "backend_health",
				Help:      "Backend health status (1=healthy, 0=unhealthy)",
			},
			[]string{"backend"},
		),

		breakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "breaker_state",
				Help:      "Circuit breaker state (0=closed, 1=open, 2=half-open)",
			},
			[]string{"backend"},
		),

		fallbackAttempts: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "fallback_attempts",
				Help:      "Backends attempted per fallback chain",
				Buckets:   []float64{1, 2, 3, 4, 5, 8},
			},
			[]string{"succeeded"},
		),
	}

	registry.MustRegister(
		bm.errorsTotal,
		bm.health,
		bm.breakerState,
		bm.fallbackAttempts,
	)

	return bm
}

// RecordError counts one classified backend failure.
func (bm *BackendMetrics) RecordError(backend, code string) {
	bm.errorsTotal.WithLabelValues(backend, code).Inc()
}

// UpdateHealth sets a backend's health gauge.
func (bm *BackendMetrics) UpdateHealth(backend string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	bm.health.WithLabelValues(backend).Set(value)
}

// UpdateBreakerState sets a backend's breaker state gauge.
func (bm *BackendMetrics) UpdateBreakerState(backend string, state int) {
	bm.breakerState.WithLabelValues(backend).Set(float64(state))
}

// RecordFallback records the depth of one fallback chain.
func (bm *BackendMetrics) RecordFallback(attempts int, succeeded bool) {
	bm.fallbackAttempts.WithLabelValues(strconv.FormatBool(succeeded)).Observe(float64(attempts))
}
