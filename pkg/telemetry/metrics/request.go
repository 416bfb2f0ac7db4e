package metrics

import (
	"time"

	"github.com/johnhenry/ai.matey-sub001/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// RequestMetrics tracks chat request processing.
//
// Metrics:
//   - matey_gateway_requests_total: request count by backend, model, status
//   - matey_gateway_request_duration_seconds: request duration histogram
//   - matey_gateway_request_tokens_total: tokens processed by direction
//   - matey_gateway_stream_chunks: chunks per completed stream
//   - matey_gateway_warnings_total: translation warnings by category
type RequestMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	tokensTotal     *prometheus.CounterVec
	streamChunks    *prometheus.HistogramVec
	warningsTotal   *prometheus.CounterVec
}

// NewRequestMetrics creates and registers request metrics with the provided
// registry.
func NewRequestMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RequestMetrics {
	rm := &RequestMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "requests_total",
				Help:      "Total number of chat requests processed",
			},
			[]string{"backend", "model", "status"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "request_duration_seconds",
				Help:      "Duration of chat requests in seconds",
				Buckets:   cfg.RequestDurationBuckets,
			},
			[]string{"backend", "model"},
		),

		tokensTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "request_tokens_total",
				Help:      "Total number of tokens processed",
			},
			[]string{"backend", "model", "type"},
		),

		streamChunks: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "stream_chunks",
				Help:      "Number of chunks delivered per completed stream",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 8), // 1 to ~16K
			},
			[]string{"backend", "model"},
		),

		warningsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "warnings_total",
				Help:      "Total translation warnings by category",
			},
			[]string{"backend", "category"},
		),
	}

	registry.MustRegister(
		rm.requestsTotal,
		rm.requestDuration,
		rm.tokensTotal,
		rm.streamChunks,
		rm.warningsTotal,
	)

	return rm
}

// RecordRequest records a completed request.
func (rm *RequestMetrics) RecordRequest(backend, model, status string, duration time.Duration) {
	rm.requestsTotal.WithLabelValues(backend, model, status).Inc()
	rm.requestDuration.WithLabelValues(backend, model).Observe(duration.Seconds())
}

// RecordTokens records token counts separately for prompt and completion.
func (rm *RequestMetrics) RecordTokens(backend, model string, promptTokens, completionTokens int) {
	if promptTokens > 0 {
		rm.tokensTotal.WithLabelValues(backend, model, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		rm.tokensTotal.WithLabelValues(backend, model, "completion").Add(float64(completionTokens))
	}
}

// RecordStreamChunks records the chunk count of a completed stream.
func (rm *RequestMetrics) RecordStreamChunks(backend, model string, chunks int) {
	if chunks > 0 {
		rm.streamChunks.WithLabelValues(backend, model).Observe(float64(chunks))
	}
}

// RecordWarning counts one translation warning.
func (rm *RequestMetrics) RecordWarning(backend, category string) {
	rm.warningsTotal.WithLabelValues(backend, category).Inc()
}
