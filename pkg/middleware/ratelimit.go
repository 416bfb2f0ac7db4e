package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/johnhenry/ai.matey-sub001/pkg/ir"
)

// tokenBucket is a refilling token bucket. Capacity bounds the burst
// size; tokens refill continuously at refillRate per second.
type tokenBucket struct {
	mu         sync.Mutex
	capacity   float64
	tokens     float64
	refillRate float64
	lastRefill time.Time
}

func newTokenBucket(capacity, refillRate float64) *tokenBucket {
	return &tokenBucket{
		capacity:   capacity,
		tokens:     capacity,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// take removes n tokens if available, reporting whether it succeeded.
func (tb *tokenBucket) take(n float64) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.refill()
	if tb.tokens >= n {
		tb.tokens -= n
		return true
	}
	return false
}

// timeUntilAvailable reports how long until n tokens will be available.
func (tb *tokenBucket) timeUntilAvailable(n float64) time.Duration {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.refill()
	if tb.tokens >= n {
		return 0
	}
	deficit := n - tb.tokens
	return time.Duration(deficit / tb.refillRate * float64(time.Second))
}

// refill credits tokens for the time elapsed since the last refill.
// Caller holds the lock.
func (tb *tokenBucket) refill() {
	now := time.Now()
	elapsed := now.Sub(tb.lastRefill).Seconds()
	tb.tokens += elapsed * tb.refillRate
	if tb.tokens > tb.capacity {
		tb.tokens = tb.capacity
	}
	tb.lastRefill = now
}

// NewRateLimitMiddleware returns a middleware that applies a local
// token-bucket limit to both unary and streaming requests. Rejected
// requests fail with RATE_LIMIT_ERROR carrying a RetryAfter hint, so a
// retry middleware stacked outside can wait out the shortfall instead
// of hammering the limiter.
func NewRateLimitMiddleware(requestsPerSecond float64, burst int64) Middleware {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	if burst < 1 {
		burst = 1
	}
	bucket := newTokenBucket(float64(burst), requestsPerSecond)

	limit := func() *ir.Error {
		if bucket.take(1) {
			return nil
		}
		err := ir.NewError(ir.ErrCodeRateLimit, "local rate limit exceeded")
		err.RetryAfter = bucket.timeUntilAvailable(1)
		return err
	}

	return Middleware{
		Name: "ratelimit",
		Chat: func(next Handler) Handler {
			return func(ctx context.Context, req *ir.ChatRequest) (*ir.ChatResponse, error) {
				if err := limit(); err != nil {
					return nil, err
				}
				return next(ctx, req)
			}
		},
		Stream: func(next StreamHandler) StreamHandler {
			return func(ctx context.Context, req *ir.ChatRequest) (<-chan *ir.StreamChunk, error) {
				if err := limit(); err != nil {
					return nil, err
				}
				return next(ctx, req)
			}
		},
	}
}
