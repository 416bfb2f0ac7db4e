package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/johnhenry/ai.matey-sub001/pkg/config"
	"github.com/johnhenry/ai.matey-sub001/pkg/ir"

	"github.com/prometheus/client_golang/prometheus"
)

// maxLabelCardinality caps the number of unique label sets across all
// metric families.
const maxLabelCardinality = 10000

// Collector orchestrates all Prometheus metrics for the gateway. It manages
// metric registration and provides a unified recording interface for the
// router, middleware, and backends.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	requestMetrics *RequestMetrics
	backendMetrics *BackendMetrics
	cacheMetrics   *CacheMetrics

	cardinalityLimiter *CardinalityLimiter
}

// NewCollector creates a metrics collector with the specified configuration
// and Prometheus registry. If registry is nil a private registry is
// created.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = config.DefaultMetricsSubsystem
	}
	if len(cfg.RequestDurationBuckets) == 0 {
		// Model completions routinely take seconds; spread the buckets
		// from 100ms to 30s.
		cfg.RequestDurationBuckets = []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0}
	}
	if len(cfg.TokenCountBuckets) == 0 {
		cfg.TokenCountBuckets = []float64{100, 500, 1000, 5000, 10000, 50000, 100000}
	}

	c := &Collector{
		config:             cfg,
		registry:           registry,
		cardinalityLimiter: NewCardinalityLimiter(maxLabelCardinality),
	}

	c.requestMetrics = NewRequestMetrics(cfg, registry)
	c.backendMetrics = NewBackendMetrics(cfg, registry)
	c.cacheMetrics = NewCacheMetrics(cfg, registry)

	return c
}

// RecordRequest records a completed chat request.
//
// Parameters:
//   - backend: backend that served the request
//   - model: requested model name
//   - status: "success" or the error code string on failure
//   - duration: end-to-end request duration
//   - usage: token usage, nil when unknown
func (c *Collector) RecordRequest(backend, model, status string, duration time.Duration, usage *ir.Usage) {
	if !c.config.Enabled {
		return
	}

	labelSet := fmt.Sprintf("request:%s:%s:%s", backend, model, status)
	if !c.cardinalityLimiter.Allow(labelSet) {
		model = "other"
	}

	c.requestMetrics.RecordRequest(backend, model, status, duration)
	if usage != nil {
		c.requestMetrics.RecordTokens(backend, model, usage.PromptTokens, usage.CompletionTokens)
	}
}

// RecordStreamChunks records how many chunks a completed stream delivered.
func (c *Collector) RecordStreamChunks(backend, model string, chunks int) {
	if !c.config.Enabled {
		return
	}
	c.requestMetrics.RecordStreamChunks(backend, model, chunks)
}

// RecordWarnings counts translation warnings attached to a response.
func (c *Collector) RecordWarnings(backend string, warnings []ir.Warning) {
	if !c.config.Enabled || len(warnings) == 0 {
		return
	}
	for _, warning := range warnings {
		c.requestMetrics.RecordWarning(backend, string(warning.Category))
	}
}

// RecordBackendError records a classified backend failure.
func (c *Collector) RecordBackendError(backend string, code ir.ErrorCode) {
	if !c.config.Enabled {
		return
	}
	c.backendMetrics.RecordError(backend, string(code))
}

// UpdateBackendHealth updates a backend's health gauge (1=healthy).
func (c *Collector) UpdateBackendHealth(backend string, healthy bool) {
	if !c.config.Enabled {
		return
	}
	c.backendMetrics.UpdateHealth(backend, healthy)
}

// UpdateBreakerState updates a backend's circuit breaker gauge
// (0=closed, 1=open, 2=half-open).
func (c *Collector) UpdateBreakerState(backend string, state int) {
	if !c.config.Enabled {
		return
	}
	c.backendMetrics.UpdateBreakerState(backend, state)
}

// RecordFallback records a fallback chain outcome: how many backends a
// single request attempted before succeeding or giving up.
func (c *Collector) RecordFallback(attempts int, succeeded bool) {
	if !c.config.Enabled {
		return
	}
	c.backendMetrics.RecordFallback(attempts, succeeded)
}

// RecordCacheHit records a response cache hit.
func (c *Collector) RecordCacheHit() {
	if !c.config.Enabled {
		return
	}
	c.cacheMetrics.RecordHit()
}

// RecordCacheMiss records a response cache miss.
func (c *Collector) RecordCacheMiss() {
	if !c.config.Enabled {
		return
	}
	c.cacheMetrics.RecordMiss()
}

// UpdateCacheSize updates the response cache entry count gauge.
func (c *Collector) UpdateCacheSize(size int) {
	if !c.config.Enabled {
		return
	}
	c.cacheMetrics.UpdateSize(size)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// CardinalityLimiter prevents metric cardinality explosion by limiting the
// number of unique label combinations.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a limiter with the specified maximum.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow reports whether a label set may be recorded. Known label sets are
// always allowed; new ones are allowed until the cap is reached.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, exists := cl.current[labelSet]; exists {
		return true
	}
	if len(cl.current) >= cl.maxCardinality {
		return false
	}
	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
