package config

import (
	"errors"
	"strings"
	"testing"
)

// validConfig returns a config that passes validation, for tests to break
// one field at a time.
func validConfig() *Config {
	cfg := &Config{
		Backends: map[string]BackendConfig{
			"primary": {BaseURL: "https://api.example.com/v1"},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

func TestValidate_Valid(t *testing.T) {
	if err := Validate(validConfig()); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestValidate_FieldErrors(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{
			name:      "missing base URL",
			mutate:    func(c *Config) { c.Backends["primary"] = BackendConfig{} },
			wantField: "backends.primary.base_url",
		},
		{
			name: "malformed base URL",
			mutate: func(c *Config) {
				c.Backends["primary"] = BackendConfig{BaseURL: "not a url"}
			},
			wantField: "backends.primary.base_url",
		},
		{
			name: "negative cost",
			mutate: func(c *Config) {
				b := c.Backends["primary"]
				b.Cost.InputPerMillion = -1
				c.Backends["primary"] = b
			},
			wantField: "backends.primary.cost",
		},
		{
			name:      "unknown strategy",
			mutate:    func(c *Config) { c.Router.Strategy = "psychic" },
			wantField: "router.strategy",
		},
		{
			name:      "zero failure threshold",
			mutate:    func(c *Config) { c.Router.Breaker.FailureThreshold = 0 },
			wantField: "router.breaker.failure_threshold",
		},
		{
			name:      "unknown middleware logging level",
			mutate:    func(c *Config) { c.Middleware.Logging.Level = "chatty" },
			wantField: "middleware.logging.level",
		},
		{
			name:      "backoff factor below one",
			mutate:    func(c *Config) { c.Middleware.Retry.BackoffFactor = 0.5 },
			wantField: "middleware.retry.backoff_factor",
		},
		{
			name:      "unknown log level",
			mutate:    func(c *Config) { c.Telemetry.Logging.Level = "loud" },
			wantField: "telemetry.logging.level",
		},
		{
			name:      "sample ratio out of range",
			mutate:    func(c *Config) { c.Telemetry.Tracing.SampleRatio = 1.5 },
			wantField: "telemetry.tracing.sample_ratio",
		},
		{
			name: "tracing enabled without endpoint",
			mutate: func(c *Config) {
				c.Telemetry.Tracing.Enabled = true
				c.Telemetry.Tracing.Endpoint = ""
			},
			wantField: "telemetry.tracing.endpoint",
		},
		{
			name:      "unknown usage backend",
			mutate:    func(c *Config) { c.Usage.Backend = "postgres" },
			wantField: "usage.backend",
		},
		{
			name: "sqlite usage backend without path",
			mutate: func(c *Config) {
				c.Usage.Backend = "sqlite"
				c.Usage.SQLitePath = ""
			},
			wantField: "usage.sqlite_path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}

			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error type = %T, want ValidationError", err)
			}
			found := false
			for _, fe := range verr.Errors {
				if fe.Field == tt.wantField {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("no error for field %q in %v", tt.wantField, verr.Errors)
			}
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Router.Strategy = "psychic"
	cfg.Usage.Backend = "postgres"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Validate() = nil, want error")
	}

	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error type = %T, want ValidationError", err)
	}
	if len(verr.Errors) != 2 {
		t.Errorf("error count = %d, want 2: %v", len(verr.Errors), verr.Errors)
	}
	if !strings.Contains(verr.Error(), "2 errors") {
		t.Errorf("message should count errors, got %q", verr.Error())
	}
}
