package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path. It
// applies default values, validates the configuration, and returns any
// errors. Environment variables are not consulted; use
// LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and
// applies environment variable overrides. Variables follow the naming
// convention MATEY_SECTION_FIELD (e.g., MATEY_ROUTER_STRATEGY) and always
// take precedence over file values.
//
// The loading sequence is:
//  1. Load YAML from file
//  2. Apply default values
//  3. Apply environment variable overrides
//  4. Validate the final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the
// configuration. Variables use the format MATEY_SECTION_FIELD.
func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("MATEY_GATEWAY_NAME"); val != "" {
		cfg.Gateway.Name = val
	}

	for name := range cfg.Backends {
		applyBackendEnvOverrides(cfg, name)
	}

	// Router overrides
	if val := os.Getenv("MATEY_ROUTER_STRATEGY"); val != "" {
		cfg.Router.Strategy = val
	}
	if val := os.Getenv("MATEY_ROUTER_FALLBACK_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Router.Fallback.Enabled = b
		}
	}
	if val := os.Getenv("MATEY_ROUTER_FALLBACK_PARALLEL"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Router.Fallback.Parallel = b
		}
	}
	if val := os.Getenv("MATEY_ROUTER_BREAKER_FAILURE_THRESHOLD"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Router.Breaker.FailureThreshold = i
		}
	}
	if val := os.Getenv("MATEY_ROUTER_BREAKER_COOLDOWN"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Router.Breaker.Cooldown = d
		}
	}
	if val := os.Getenv("MATEY_ROUTER_HEALTH_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Router.Health.Enabled = b
		}
	}
	if val := os.Getenv("MATEY_ROUTER_HEALTH_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Router.Health.Interval = d
		}
	}

	// Middleware overrides
	if val := os.Getenv("MATEY_MIDDLEWARE_CACHE_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Middleware.Cache.Enabled = b
		}
	}
	if val := os.Getenv("MATEY_MIDDLEWARE_CACHE_TTL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Middleware.Cache.TTL = d
		}
	}
	if val := os.Getenv("MATEY_MIDDLEWARE_CACHE_SQLITE_PATH"); val != "" {
		cfg.Middleware.Cache.SQLitePath = val
	}
	if val := os.Getenv("MATEY_MIDDLEWARE_RETRY_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Middleware.Retry.Enabled = b
		}
	}
	if val := os.Getenv("MATEY_MIDDLEWARE_RETRY_MAX_RETRIES"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Middleware.Retry.MaxRetries = i
		}
	}
	if val := os.Getenv("MATEY_MIDDLEWARE_RATELIMIT_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Middleware.RateLimit.Enabled = b
		}
	}

	// Telemetry overrides
	if val := os.Getenv("MATEY_TELEMETRY_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("MATEY_TELEMETRY_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := os.Getenv("MATEY_TELEMETRY_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = b
		}
	}
	if val := os.Getenv("MATEY_TELEMETRY_TRACING_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Tracing.Enabled = b
		}
	}
	if val := os.Getenv("MATEY_TELEMETRY_TRACING_ENDPOINT"); val != "" {
		cfg.Telemetry.Tracing.Endpoint = val
	}
	if val := os.Getenv("MATEY_TELEMETRY_TRACING_SAMPLE_RATIO"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Telemetry.Tracing.SampleRatio = f
		}
	}

	// Usage overrides
	if val := os.Getenv("MATEY_USAGE_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Usage.Enabled = b
		}
	}
	if val := os.Getenv("MATEY_USAGE_BACKEND"); val != "" {
		cfg.Usage.Backend = val
	}
	if val := os.Getenv("MATEY_USAGE_SQLITE_PATH"); val != "" {
		cfg.Usage.SQLitePath = val
	}
	if val := os.Getenv("MATEY_USAGE_RETENTION_DAYS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Usage.Retention.Days = i
		}
	}
}

// applyBackendEnvOverrides applies overrides for a single backend. Backend
// variables follow the format MATEY_BACKENDS_<NAME>_<FIELD> where NAME is
// the uppercase backend name with dashes replaced by underscores.
func applyBackendEnvOverrides(cfg *Config, backendName string) {
	backend := cfg.Backends[backendName]

	envName := strings.ToUpper(strings.ReplaceAll(backendName, "-", "_"))
	prefix := fmt.Sprintf("MATEY_BACKENDS_%s_", envName)

	modified := false

	if val := os.Getenv(prefix + "BASE_URL"); val != "" {
		backend.BaseURL = val
		modified = true
	}
	if val := os.Getenv(prefix + "API_KEY"); val != "" {
		backend.APIKey = val
		modified = true
	}
	if val := os.Getenv(prefix + "TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			backend.Timeout = d
			modified = true
		}
	}

	if modified {
		cfg.Backends[backendName] = backend
	}
}
