package metrics

import (
	"testing"
	"time"

	"github.com/johnhenry/ai.matey-sub001/pkg/config"
	"github.com/johnhenry/ai.matey-sub001/pkg/ir"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func testConfig() *config.MetricsConfig {
	return &config.MetricsConfig{
		Enabled:                true,
		Namespace:              "test",
		Subsystem:              "gateway",
		RequestDurationBuckets: []float64{0.1, 0.5, 1.0, 5.0},
		TokenCountBuckets:      []float64{100, 500, 1000, 5000},
	}
}

func TestCollector_RecordRequest(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	usage := &ir.Usage{PromptTokens: 120, CompletionTokens: 80, TotalTokens: 200}
	collector.RecordRequest("primary", "gpt-4", "success", 1200*time.Millisecond, usage)
	collector.RecordRequest("primary", "gpt-4", "PROVIDER_ERROR", 500*time.Millisecond, nil)

	success := testutil.ToFloat64(collector.requestMetrics.requestsTotal.WithLabelValues("primary", "gpt-4", "success"))
	if success != 1 {
		t.Errorf("success count = %f, want 1", success)
	}
	failed := testutil.ToFloat64(collector.requestMetrics.requestsTotal.WithLabelValues("primary", "gpt-4", "PROVIDER_ERROR"))
	if failed != 1 {
		t.Errorf("error count = %f, want 1", failed)
	}

	prompt := testutil.ToFloat64(collector.requestMetrics.tokensTotal.WithLabelValues("primary", "gpt-4", "prompt"))
	if prompt != 120 {
		t.Errorf("prompt tokens = %f, want 120", prompt)
	}
	completion := testutil.ToFloat64(collector.requestMetrics.tokensTotal.WithLabelValues("primary", "gpt-4", "completion"))
	if completion != 80 {
		t.Errorf("completion tokens = %f, want 80", completion)
	}
}

func TestCollector_DisabledIsNoOp(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	collector := NewCollector(cfg, prometheus.NewRegistry())

	collector.RecordRequest("primary", "gpt-4", "success", time.Second, nil)

	count := testutil.ToFloat64(collector.requestMetrics.requestsTotal.WithLabelValues("primary", "gpt-4", "success"))
	if count != 0 {
		t.Errorf("count = %f, want 0 when disabled", count)
	}
}

func TestCollector_BackendMetrics(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	collector.RecordBackendError("primary", ir.ErrCodeRateLimit)
	collector.RecordBackendError("primary", ir.ErrCodeRateLimit)
	collector.UpdateBackendHealth("primary", true)
	collector.UpdateBreakerState("primary", 1)

	errs := testutil.ToFloat64(collector.backendMetrics.errorsTotal.WithLabelValues("primary", "RATE_LIMIT_ERROR"))
	if errs != 2 {
		t.Errorf("error count = %f, want 2", errs)
	}
	health := testutil.ToFloat64(collector.backendMetrics.health.WithLabelValues("primary"))
	if health != 1 {
		t.Errorf("health = %f, want 1", health)
	}
	breaker := testutil.ToFloat64(collector.backendMetrics.breakerState.WithLabelValues("primary"))
	if breaker != 1 {
		t.Errorf("breaker state = %f, want 1", breaker)
	}
}

func TestCollector_WarningCategories(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	collector.RecordWarnings("primary", []ir.Warning{
		{Category: ir.WarnParameterClamped},
		{Category: ir.WarnParameterClamped},
		{Category: ir.WarnMessagesMerged},
	})

	clamped := testutil.ToFloat64(collector.requestMetrics.warningsTotal.WithLabelValues("primary", "parameter-clamped"))
	if clamped != 2 {
		t.Errorf("clamped warnings = %f, want 2", clamped)
	}
	merged := testutil.ToFloat64(collector.requestMetrics.warningsTotal.WithLabelValues("primary", "messages-merged"))
	if merged != 1 {
		t.Errorf("merged warnings = %f, want 1", merged)
	}
}

func TestCollector_CacheMetrics(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	collector.RecordCacheHit()
	collector.RecordCacheMiss()
	collector.RecordCacheMiss()
	collector.UpdateCacheSize(7)

	if hits := testutil.ToFloat64(collector.cacheMetrics.hits); hits != 1 {
		t.Errorf("hits = %f, want 1", hits)
	}
	if misses := testutil.ToFloat64(collector.cacheMetrics.misses); misses != 2 {
		t.Errorf("misses = %f, want 2", misses)
	}
	if entries := testutil.ToFloat64(collector.cacheMetrics.entries); entries != 7 {
		t.Errorf("entries = %f, want 7", entries)
	}
}

func TestCardinalityLimiter(t *testing.T) {
	limiter := NewCardinalityLimiter(2)

	if !limiter.Allow("a") || !limiter.Allow("b") {
		t.Fatal("limiter should allow entries under the cap")
	}
	if limiter.Allow("c") {
		t.Error("limiter should reject a new entry at the cap")
	}
	if !limiter.Allow("a") {
		t.Error("limiter should always allow known entries")
	}
	if limiter.Count() != 2 {
		t.Errorf("count = %d, want 2", limiter.Count())
	}
}
