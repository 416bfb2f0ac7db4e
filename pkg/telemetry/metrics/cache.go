package metrics

import (
	"github.com/johnhenry/ai.matey-sub001/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// CacheMetrics tracks the response cache.
//
// Metrics:
//   - matey_gateway_cache_hits_total
//   - matey_gateway_cache_misses_total
//   - matey_gateway_cache_entries
type CacheMetrics struct {
	hits    prometheus.Counter
	misses  prometheus.Counter
	entries prometheus.Gauge
}

// NewCacheMetrics creates and registers cache metrics with the provided
// registry.
func NewCacheMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *CacheMetrics {
	cm := &CacheMetrics{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "cache_hits_total",
			Help:      "Total response cache hits",
		}),

		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "cache_misses_total",
			Help:      "Total response cache misses",
		}),

		entries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "cache_entries",
			Help:      "Current number of cached responses",
		}),
	}

	registry.MustRegister(cm.hits, cm.misses, cm.entries)

	return cm
}

// RecordHit counts one cache hit.
func (cm *CacheMetrics) RecordHit() {
	cm.hits.Inc()
}

// RecordMiss counts one cache miss.
func (cm *CacheMetrics) RecordMiss() {
	cm.misses.Inc()
}

// UpdateSize sets the entry count gauge.
func (cm *CacheMetrics) UpdateSize(size int) {
	cm.entries.Set(float64(size))
}
