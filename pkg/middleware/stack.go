package middleware

import (
	"errors"
	"io"
	"log/slog"

	"github.com/johnhenry/ai.matey-sub001/pkg/config"
	"github.com/johnhenry/ai.matey-sub001/pkg/telemetry/metrics"
)

// Stack is an ordered middleware pipeline assembled from configuration,
// together with the resources it owns (cache stores). Close releases
// those resources; the middlewares themselves hold no other state.
type Stack struct {
	// Middlewares is the pipeline in registration order, outermost first.
	Middlewares []Middleware

	closers []io.Closer
}

// Close releases every resource owned by the stack.
func (s *Stack) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FromConfig assembles the built-in middleware stack from
// configuration. The fixed order is chosen so the layers compose:
//
//	recovery > logging > telemetry > cache > transform > retry > ratelimit
//
// Recovery is outermost so a panic anywhere below becomes a classified
// error. Cache sits outside retry so only misses pay for attempts, and
// ratelimit is innermost so every retry attempt consumes budget and a
// limiter rejection reaches the retry layer with its RetryAfter hint.
// Recovery is always present; every other layer appears only when its
// config section enables it. The collector may be nil, which disables
// the telemetry layer.
func FromConfig(cfg config.MiddlewareConfig, logger *slog.Logger, collector *metrics.Collector) (*Stack, error) {
	if logger == nil {
		logger = slog.Default()
	}
	stack := &Stack{}
	stack.Middlewares = append(stack.Middlewares, NewRecoveryMiddleware(logger))

	if cfg.Logging.Enabled {
		stack.Middlewares = append(stack.Middlewares, NewLoggingMiddleware(logger, parseLogLevel(cfg.Logging.Level)))
	}
	if collector != nil {
		stack.Middlewares = append(stack.Middlewares, NewTelemetryMiddleware(collector))
	}
	if cfg.Cache.Enabled {
		store, err := newCacheStore(cfg.Cache, logger)
		if err != nil {
			return nil, err
		}
		stack.closers = append(stack.closers, store)
		ttl := cfg.Cache.TTL
		if ttl <= 0 {
			ttl = config.DefaultCacheTTL
		}
		stack.Middlewares = append(stack.Middlewares, NewCachingMiddleware(store, ttl, logger, collector))
	}
	if cfg.Transform.Enabled {
		stack.Middlewares = append(stack.Middlewares, NewTransformMiddleware(logger))
	}
	if cfg.Retry.Enabled {
		stack.Middlewares = append(stack.Middlewares, NewRetryMiddleware(RetryConfig{
			MaxRetries:     cfg.Retry.MaxRetries,
			InitialBackoff: cfg.Retry.InitialBackoff,
			MaxBackoff:     cfg.Retry.MaxBackoff,
			BackoffFactor:  cfg.Retry.BackoffFactor,
			JitterFraction: DefaultRetryConfig().JitterFraction,
		}))
	}
	if cfg.RateLimit.Enabled {
		stack.Middlewares = append(stack.Middlewares, NewRateLimitMiddleware(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst))
	}
	return stack, nil
}

func newCacheStore(cfg config.CacheConfig, logger *slog.Logger) (CacheStore, error) {
	if cfg.SQLitePath != "" {
		return NewSQLiteCacheStore(cfg.SQLitePath, logger)
	}
	return NewMemoryCacheStore(cfg.MaxEntries), nil
}

func parseLogLevel(level string) LogLevel {
	switch level {
	case "minimal":
		return LogLevelMinimal
	case "verbose":
		return LogLevelVerbose
	default:
		return LogLevelStandard
	}
}
