package config

import "time"

// Default values for configuration fields.
const (
	// Gateway defaults
	DefaultGatewayName = "gateway"

	// Backend defaults
	DefaultBackendTimeout = 60 * time.Second

	// Router defaults
	DefaultStrategy         = "model-based"
	DefaultFailureThreshold = 5
	DefaultBreakerCooldown  = 30 * time.Second
	DefaultHealthInterval   = 30 * time.Second
	DefaultHealthTimeout    = 5 * time.Second

	// Middleware defaults
	DefaultLoggingLevel      = "standard"
	DefaultCacheTTL          = 5 * time.Minute
	DefaultCacheMaxEntries   = 1024
	DefaultMaxRetries        = 3
	DefaultInitialBackoff    = time.Second
	DefaultMaxBackoff        = 30 * time.Second
	DefaultBackoffFactor     = 2.0
	DefaultRequestsPerSecond = 10.0
	DefaultRateLimitBurst    = int64(20)

	// Telemetry defaults
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "json"
	DefaultMetricsNamespace  = "matey"
	DefaultMetricsSubsystem  = "gateway"
	DefaultMetricsPath       = "/metrics"
	DefaultTracingEndpoint   = "localhost:4317"
	DefaultTracingService    = "matey-gateway"
	DefaultTracingSampleRate = 1.0

	// Usage defaults
	DefaultUsageBackend      = "memory"
	DefaultUsageSQLitePath   = "data/usage.db"
	DefaultUsageBufferSize   = 1000
	DefaultRetentionDays     = 90
	DefaultRetentionSchedule = "0 3 * * *"
)

// ApplyDefaults fills zero-valued fields with the package defaults. It is
// idempotent and safe to call more than once.
func ApplyDefaults(cfg *Config) {
	if cfg.Gateway.Name == "" {
		cfg.Gateway.Name = DefaultGatewayName
	}

	for name, backend := range cfg.Backends {
		if backend.Timeout == 0 {
			backend.Timeout = DefaultBackendTimeout
		}
		cfg.Backends[name] = backend
	}

	if cfg.Router.Strategy == "" {
		cfg.Router.Strategy = DefaultStrategy
	}
	if cfg.Router.Breaker.FailureThreshold == 0 {
		cfg.Router.Breaker.FailureThreshold = DefaultFailureThreshold
	}
	if cfg.Router.Breaker.Cooldown == 0 {
		cfg.Router.Breaker.Cooldown = DefaultBreakerCooldown
	}
	if cfg.Router.Health.Interval == 0 {
		cfg.Router.Health.Interval = DefaultHealthInterval
	}
	if cfg.Router.Health.Timeout == 0 {
		cfg.Router.Health.Timeout = DefaultHealthTimeout
	}

	if cfg.Middleware.Logging.Level == "" {
		cfg.Middleware.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Middleware.Cache.TTL == 0 {
		cfg.Middleware.Cache.TTL = DefaultCacheTTL
	}
	if cfg.Middleware.Cache.MaxEntries == 0 {
		cfg.Middleware.Cache.MaxEntries = DefaultCacheMaxEntries
	}
	if cfg.Middleware.Retry.MaxRetries == 0 {
		cfg.Middleware.Retry.MaxRetries = DefaultMaxRetries
	}
	if cfg.Middleware.Retry.InitialBackoff == 0 {
		cfg.Middleware.Retry.InitialBackoff = DefaultInitialBackoff
	}
	if cfg.Middleware.Retry.MaxBackoff == 0 {
		cfg.Middleware.Retry.MaxBackoff = DefaultMaxBackoff
	}
	if cfg.Middleware.Retry.BackoffFactor == 0 {
		cfg.Middleware.Retry.BackoffFactor = DefaultBackoffFactor
	}
	if cfg.Middleware.RateLimit.RequestsPerSecond == 0 {
		cfg.Middleware.RateLimit.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if cfg.Middleware.RateLimit.Burst == 0 {
		cfg.Middleware.RateLimit.Burst = DefaultRateLimitBurst
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLogLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLogFormat
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Metrics.Subsystem == "" {
		cfg.Telemetry.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Tracing.Endpoint == "" {
		cfg.Telemetry.Tracing.Endpoint = DefaultTracingEndpoint
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingService
	}
	if cfg.Telemetry.Tracing.SampleRatio == 0 {
		cfg.Telemetry.Tracing.SampleRatio = DefaultTracingSampleRate
	}

	if cfg.Usage.Backend == "" {
		cfg.Usage.Backend = DefaultUsageBackend
	}
	if cfg.Usage.SQLitePath == "" {
		cfg.Usage.SQLitePath = DefaultUsageSQLitePath
	}
	if cfg.Usage.BufferSize == 0 {
		cfg.Usage.BufferSize = DefaultUsageBufferSize
	}
	if cfg.Usage.Retention.Days == 0 {
		cfg.Usage.Retention.Days = DefaultRetentionDays
	}
	if cfg.Usage.Retention.Schedule == "" {
		cfg.Usage.Retention.Schedule = DefaultRetentionSchedule
	}
}
