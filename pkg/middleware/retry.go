package middleware

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/johnhenry/ai.matey-sub001/pkg/ir"
)

// RetryConfig controls the retry middleware.
type RetryConfig struct {
	// MaxRetries is the number of additional attempts after the first
	// failure.
	// Default: 3
	MaxRetries int

	// InitialBackoff is the wait before the first retry.
	// Default: 1s
	InitialBackoff time.Duration

	// MaxBackoff caps the exponential backoff.
	// Default: 30s
	MaxBackoff time.Duration

	// BackoffFactor multiplies the backoff after each failed attempt.
	// Default: 2.0
	BackoffFactor float64

	// JitterFraction randomizes each wait by up to the given fraction in
	// either direction, so synchronized clients do not retry in lockstep.
	// Default: 0.1
	JitterFraction float64

	// RetryableFunc decides whether an error is worth another attempt.
	// Default: ir.IsRetryable
	RetryableFunc func(error) bool
}

// DefaultRetryConfig returns the standard retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: time.Second,
		MaxBackoff:     30 * time.Second,
		BackoffFactor:  2.0,
		JitterFraction: 0.1,
		RetryableFunc:  ir.IsRetryable,
	}
}

// NewRetryMiddleware returns a middleware that retries failed requests
// with exponential backoff. Only errors classified as retryable are
// attempted again, and a provider RetryAfter hint extends the wait when
// it exceeds the computed backoff. Streams pass through untouched: a
// partially consumed stream cannot be transparently restarted.
func NewRetryMiddleware(cfg RetryConfig) Middleware {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	if cfg.BackoffFactor < 1 {
		cfg.BackoffFactor = 2.0
	}
	if cfg.RetryableFunc == nil {
		cfg.RetryableFunc = ir.IsRetryable
	}
	return Middleware{
		Name: "retry",
		Chat: func(next Handler) Handler {
			return func(ctx context.Context, req *ir.ChatRequest) (*ir.ChatResponse, error) {
				var lastErr error
				for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
					if attempt > 0 {
						select {
						case <-time.After(retryWait(cfg, attempt-1, lastErr)):
						case <-ctx.Done():
							return nil, ir.WrapError(ir.ErrCodeTimeout, ctx.Err(), "retry wait cancelled")
						}
					}
					resp, err := next(ctx, req)
					if err == nil {
						return resp, nil
					}
					lastErr = err
					if !cfg.RetryableFunc(err) {
						return nil, err
					}
				}
				return nil, fmt.Errorf("retry budget exhausted after %d retries: %w", cfg.MaxRetries, lastErr)
			}
		},
	}
}

// retryWait computes the wait before retrying after failure number n
// (zero-based), honoring a provider RetryAfter hint when it is longer
// than the backoff.
func retryWait(cfg RetryConfig, n int, lastErr error) time.Duration {
	backoff := float64(cfg.InitialBackoff) * math.Pow(cfg.BackoffFactor, float64(n))
	if backoff > float64(cfg.MaxBackoff) {
		backoff = float64(cfg.MaxBackoff)
	}
	if cfg.JitterFraction > 0 {
		backoff += backoff * cfg.JitterFraction * (2*rand.Float64() - 1)
	}
	wait := time.Duration(backoff)
	if e := ir.AsError(lastErr); e != nil && e.RetryAfter > wait {
		wait = e.RetryAfter
	}
	if wait < 0 {
		wait = 0
	}
	return wait
}
