package config

import "time"

// Config is the root configuration structure for the gateway. It contains
// all configuration sections for backends, routing, middleware, telemetry,
// and usage recording.
type Config struct {
	// Gateway contains identity settings applied to every request the
	// gateway handles.
	Gateway GatewayConfig `yaml:"gateway"`

	// Backends contains configuration for all upstream model providers.
	// Keys are backend names (e.g., "primary", "fallback-eu").
	Backends map[string]BackendConfig `yaml:"backends"`

	// Router contains routing strategy, fallback, circuit breaker, and
	// health probe settings.
	Router RouterConfig `yaml:"router"`

	// Middleware contains settings for the built-in middleware layers.
	Middleware MiddlewareConfig `yaml:"middleware"`

	// Telemetry contains observability settings: logging, metrics, and
	// distributed tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Usage contains settings for the usage ledger that records per-request
	// token counts and cost.
	Usage UsageConfig `yaml:"usage"`
}

// GatewayConfig contains gateway identity settings.
type GatewayConfig struct {
	// Name identifies this gateway instance in provenance trails and logs.
	// Default: "gateway"
	Name string `yaml:"name"`
}

// BackendConfig contains configuration for a single upstream backend.
type BackendConfig struct {
	// BaseURL is the base URL for the backend's API endpoint.
	// Required.
	BaseURL string `yaml:"base_url"`

	// APIKey is the bearer credential for the backend. Typically supplied
	// via MATEY_BACKENDS_<NAME>_API_KEY rather than the config file.
	APIKey string `yaml:"api_key"`

	// Timeout is the maximum duration for non-streaming requests to this
	// backend. Streaming requests are bounded by the caller's context.
	// Default: 60s
	Timeout time.Duration `yaml:"timeout"`

	// Models is the list of model identifiers this backend serves exactly.
	Models []string `yaml:"models"`

	// ModelPatterns is a list of glob patterns ('*' wildcard) matched
	// against requested model names, e.g. "gpt-4*".
	ModelPatterns []string `yaml:"model_patterns"`

	// Cost carries the per-token pricing used by the cost-optimized
	// strategy and the usage ledger.
	Cost CostConfig `yaml:"cost"`
}

// CostConfig contains per-million-token pricing for one backend.
type CostConfig struct {
	// InputPerMillion is the USD cost per million prompt tokens.
	InputPerMillion float64 `yaml:"input_per_million"`

	// OutputPerMillion is the USD cost per million completion tokens.
	OutputPerMillion float64 `yaml:"output_per_million"`
}

// RouterConfig contains configuration for the routing engine.
type RouterConfig struct {
	// Strategy selects how the router picks a backend for each request.
	// Options: "explicit", "model-based", "cost-optimized",
	// "latency-optimized", "round-robin", "random". Custom strategies are
	// supplied programmatically, not by name.
	// Default: "model-based"
	Strategy string `yaml:"strategy"`

	// Fallback contains failover chain settings.
	Fallback FallbackConfig `yaml:"fallback"`

	// Breaker contains circuit breaker settings applied per backend.
	Breaker BreakerConfig `yaml:"breaker"`

	// Health contains active health probe settings.
	Health HealthConfig `yaml:"health"`
}

// FallbackConfig contains failover chain settings.
type FallbackConfig struct {
	// Enabled turns on automatic failover to the next candidate backend
	// when the selected one fails.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Parallel dispatches to all candidates at once and returns the first
	// success instead of trying candidates sequentially.
	// Default: false
	Parallel bool `yaml:"parallel"`

	// MaxAttempts caps how many backends a single request may try.
	// Zero means every eligible candidate.
	// Default: 0
	MaxAttempts int `yaml:"max_attempts"`
}

// BreakerConfig contains circuit breaker settings.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens
	// the breaker for a backend.
	// Default: 5
	FailureThreshold int `yaml:"failure_threshold"`

	// Cooldown is how long an open breaker waits before permitting a
	// single half-open trial request.
	// Default: 30s
	Cooldown time.Duration `yaml:"cooldown"`
}

// HealthConfig contains active health probe settings.
type HealthConfig struct {
	// Enabled starts a background loop that probes each backend's health
	// endpoint.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Interval is the time between probes of a healthy backend.
	// Default: 30s
	Interval time.Duration `yaml:"interval"`

	// Timeout bounds a single probe.
	// Default: 5s
	Timeout time.Duration `yaml:"timeout"`
}

// MiddlewareConfig contains settings for the built-in middleware layers.
// Layers not mentioned here (recovery, telemetry) carry no tunables.
type MiddlewareConfig struct {
	// Logging configures the request/response logging layer.
	Logging LoggingMiddlewareConfig `yaml:"logging"`

	// Cache configures the response cache layer.
	Cache CacheConfig `yaml:"cache"`

	// Retry configures the retry layer for transient failures.
	Retry RetryConfig `yaml:"retry"`

	// RateLimit configures the client-side rate limit layer.
	RateLimit RateLimitConfig `yaml:"ratelimit"`

	// Transform configures the content transform layer.
	Transform TransformConfig `yaml:"transform"`
}

// LoggingMiddlewareConfig configures the logging middleware.
type LoggingMiddlewareConfig struct {
	// Enabled turns the layer on.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Level controls per-request detail: "minimal", "standard", or
	// "verbose". Verbose logs message content and must not be used in
	// production.
	// Default: "standard"
	Level string `yaml:"level"`
}

// CacheConfig configures the response cache middleware.
type CacheConfig struct {
	// Enabled turns the layer on.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// TTL is how long a cached response stays valid. Zero means entries
	// never expire.
	// Default: 5m
	TTL time.Duration `yaml:"ttl"`

	// MaxEntries caps the in-memory store; the least recently used entry
	// is evicted at capacity. Zero means unlimited. Ignored when
	// SQLitePath is set.
	// Default: 1024
	MaxEntries int `yaml:"max_entries"`

	// SQLitePath switches the store to a persistent SQLite database at
	// this path. Empty means in-memory.
	SQLitePath string `yaml:"sqlite_path"`
}

// RetryConfig configures the retry middleware.
type RetryConfig struct {
	// Enabled turns the layer on.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// MaxRetries is the number of retry attempts after the first failure.
	// Default: 3
	MaxRetries int `yaml:"max_retries"`

	// InitialBackoff is the wait before the first retry.
	// Default: 1s
	InitialBackoff time.Duration `yaml:"initial_backoff"`

	// MaxBackoff caps the computed backoff.
	// Default: 30s
	MaxBackoff time.Duration `yaml:"max_backoff"`

	// BackoffFactor is the exponential growth multiplier.
	// Default: 2.0
	BackoffFactor float64 `yaml:"backoff_factor"`
}

// RateLimitConfig configures the rate limit middleware.
type RateLimitConfig struct {
	// Enabled turns the layer on.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// RequestsPerSecond is the sustained request rate.
	// Default: 10
	RequestsPerSecond float64 `yaml:"requests_per_second"`

	// Burst is the bucket capacity, i.e. the largest momentary burst.
	// Default: 20
	Burst int64 `yaml:"burst"`
}

// TransformConfig configures the content transform middleware, which
// rewrites HTML in user messages to Markdown before dispatch.
type TransformConfig struct {
	// Enabled turns the layer on.
	// Default: false
	Enabled bool `yaml:"enabled"`
}

// TelemetryConfig contains observability settings.
type TelemetryConfig struct {
	// Logging configures the process-wide structured logger.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics configures Prometheus metric collection.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing configures OpenTelemetry trace export.
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	// Level is the minimum level emitted: "debug", "info", "warn", "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the output encoding: "json" or "text".
	// Default: "json"
	Format string `yaml:"format"`
}

// MetricsConfig configures Prometheus metric collection.
type MetricsConfig struct {
	// Enabled turns metric recording on.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Namespace is the metric name prefix.
	// Default: "matey"
	Namespace string `yaml:"namespace"`

	// Subsystem is the second metric name component.
	// Default: "gateway"
	Subsystem string `yaml:"subsystem"`

	// Path is where the scrape handler is mounted.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// RequestDurationBuckets overrides the request latency histogram
	// buckets, in seconds.
	RequestDurationBuckets []float64 `yaml:"request_duration_buckets"`

	// TokenCountBuckets overrides the token count histogram buckets.
	TokenCountBuckets []float64 `yaml:"token_count_buckets"`
}

// TracingConfig configures OpenTelemetry trace export.
type TracingConfig struct {
	// Enabled turns tracing on.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Endpoint is the OTLP/gRPC collector address, host:port.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// ServiceName is reported as the otel service.name resource attribute.
	// Default: "matey-gateway"
	ServiceName string `yaml:"service_name"`

	// SampleRatio is the fraction of root spans sampled, in [0, 1].
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// Insecure disables TLS on the collector connection.
	// Default: false
	Insecure bool `yaml:"insecure"`
}

// UsageConfig contains settings for the usage ledger.
type UsageConfig struct {
	// Enabled turns usage recording on.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Backend selects the ledger store: "memory" or "sqlite".
	// Default: "memory"
	Backend string `yaml:"backend"`

	// SQLitePath is the database file path when Backend is "sqlite".
	// Default: "data/usage.db"
	SQLitePath string `yaml:"sqlite_path"`

	// BufferSize is the async recorder's channel capacity. Records are
	// dropped (and counted) when the buffer is full rather than blocking
	// the request path.
	// Default: 1000
	BufferSize int `yaml:"buffer_size"`

	// Retention configures scheduled pruning of old records.
	Retention RetentionConfig `yaml:"retention"`
}

// RetentionConfig configures scheduled pruning of usage records.
type RetentionConfig struct {
	// Days is how long records are kept. Zero disables age-based pruning.
	// Default: 90
	Days int `yaml:"days"`

	// MaxRecords caps the ledger size; the oldest records beyond the cap
	// are removed. Zero disables count-based pruning.
	// Default: 0
	MaxRecords int64 `yaml:"max_records"`

	// Schedule is the cron expression for the pruning job.
	// Default: "0 3 * * *" (daily at 03:00)
	Schedule string `yaml:"schedule"`
}
