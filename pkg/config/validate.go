package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Strategies recognized by the router configuration. Custom strategies are
// registered programmatically and never appear in config files.
var knownStrategies = map[string]bool{
	"explicit":          true,
	"model-based":       true,
	"cost-optimized":    true,
	"latency-optimized": true,
	"round-robin":       true,
	"random":            true,
}

// FieldError represents a validation error for a specific configuration
// field.
type FieldError struct {
	// Field is the dotted path to the configuration field
	// (e.g., "router.strategy").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a
// configuration. It implements the error interface and provides access to
// all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate checks the entire configuration and returns a ValidationError
// listing every rule violation, or nil when the configuration is valid.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateBackends(cfg.Backends)...)
	errs = append(errs, validateRouter(&cfg.Router)...)
	errs = append(errs, validateMiddleware(&cfg.Middleware)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)
	errs = append(errs, validateUsage(&cfg.Usage)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateBackends(backends map[string]BackendConfig) []FieldError {
	var errs []FieldError

	for name, backend := range backends {
		prefix := fmt.Sprintf("backends.%s", name)

		if backend.BaseURL == "" {
			errs = append(errs, FieldError{
				Field:   prefix + ".base_url",
				Message: "base URL is required",
			})
		} else if parsed, err := url.Parse(backend.BaseURL); err != nil || parsed.Scheme == "" || parsed.Host == "" {
			errs = append(errs, FieldError{
				Field:   prefix + ".base_url",
				Message: fmt.Sprintf("invalid URL %q", backend.BaseURL),
			})
		}

		if backend.Timeout < 0 {
			errs = append(errs, FieldError{
				Field:   prefix + ".timeout",
				Message: "timeout must be positive",
			})
		}
		if backend.Cost.InputPerMillion < 0 || backend.Cost.OutputPerMillion < 0 {
			errs = append(errs, FieldError{
				Field:   prefix + ".cost",
				Message: "cost must be non-negative",
			})
		}
	}

	return errs
}

func validateRouter(cfg *RouterConfig) []FieldError {
	var errs []FieldError

	if !knownStrategies[cfg.Strategy] {
		errs = append(errs, FieldError{
			Field:   "router.strategy",
			Message: fmt.Sprintf("unknown strategy %q", cfg.Strategy),
		})
	}
	if cfg.Fallback.MaxAttempts < 0 {
		errs = append(errs, FieldError{
			Field:   "router.fallback.max_attempts",
			Message: "max attempts must be non-negative",
		})
	}
	if cfg.Breaker.FailureThreshold < 1 {
		errs = append(errs, FieldError{
			Field:   "router.breaker.failure_threshold",
			Message: "failure threshold must be at least 1",
		})
	}
	if cfg.Breaker.Cooldown < 0 {
		errs = append(errs, FieldError{
			Field:   "router.breaker.cooldown",
			Message: "cooldown must be positive",
		})
	}
	if cfg.Health.Interval < 0 {
		errs = append(errs, FieldError{
			Field:   "router.health.interval",
			Message: "interval must be positive",
		})
	}
	if cfg.Health.Timeout < 0 {
		errs = append(errs, FieldError{
			Field:   "router.health.timeout",
			Message: "timeout must be positive",
		})
	}

	return errs
}

func validateMiddleware(cfg *MiddlewareConfig) []FieldError {
	var errs []FieldError

	switch cfg.Logging.Level {
	case "minimal", "standard", "verbose":
	default:
		errs = append(errs, FieldError{
			Field:   "middleware.logging.level",
			Message: fmt.Sprintf("unknown level %q (expected minimal, standard, or verbose)", cfg.Logging.Level),
		})
	}

	if cfg.Cache.TTL < 0 {
		errs = append(errs, FieldError{
			Field:   "middleware.cache.ttl",
			Message: "ttl must be positive",
		})
	}
	if cfg.Cache.MaxEntries < 0 {
		errs = append(errs, FieldError{
			Field:   "middleware.cache.max_entries",
			Message: "max entries must be non-negative",
		})
	}

	if cfg.Retry.MaxRetries < 0 {
		errs = append(errs, FieldError{
			Field:   "middleware.retry.max_retries",
			Message: "max retries must be non-negative",
		})
	}
	if cfg.Retry.BackoffFactor < 1 {
		errs = append(errs, FieldError{
			Field:   "middleware.retry.backoff_factor",
			Message: "backoff factor must be at least 1",
		})
	}

	if cfg.RateLimit.RequestsPerSecond <= 0 {
		errs = append(errs, FieldError{
			Field:   "middleware.ratelimit.requests_per_second",
			Message: "requests per second must be positive",
		})
	}
	if cfg.RateLimit.Burst < 1 {
		errs = append(errs, FieldError{
			Field:   "middleware.ratelimit.burst",
			Message: "burst must be at least 1",
		})
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("unknown level %q", cfg.Logging.Level),
		})
	}
	switch cfg.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("unknown format %q (expected json or text)", cfg.Logging.Format),
		})
	}

	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: "sample ratio must be between 0 and 1",
		})
	}
	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.endpoint",
			Message: "endpoint is required when tracing is enabled",
		})
	}

	return errs
}

func validateUsage(cfg *UsageConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "memory", "sqlite":
	default:
		errs = append(errs, FieldError{
			Field:   "usage.backend",
			Message: fmt.Sprintf("unknown backend %q (expected memory or sqlite)", cfg.Backend),
		})
	}
	if cfg.Backend == "sqlite" && cfg.SQLitePath == "" {
		errs = append(errs, FieldError{
			Field:   "usage.sqlite_path",
			Message: "path is required for the sqlite backend",
		})
	}
	if cfg.BufferSize < 1 {
		errs = append(errs, FieldError{
			Field:   "usage.buffer_size",
			Message: "buffer size must be at least 1",
		})
	}
	if cfg.Retention.Days < 0 {
		errs = append(errs, FieldError{
			Field:   "usage.retention.days",
			Message: "retention days must be non-negative",
		})
	}
	if cfg.Retention.MaxRecords < 0 {
		errs = append(errs, FieldError{
			Field:   "usage.retention.max_records",
			Message: "max records must be non-negative",
		})
	}

	return errs
}
