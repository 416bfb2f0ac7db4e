package routing

import (
	"sync"
	"time"

	"github.com/johnhenry/ai.matey-sub001/pkg/config"
)

// BreakerState is the circuit breaker state machine position.
type BreakerState int

const (
	// BreakerClosed passes calls through and counts consecutive failures.
	BreakerClosed BreakerState = iota

	// BreakerOpen rejects calls until the cooldown elapses.
	BreakerOpen

	// BreakerHalfOpen permits a single trial call; its outcome decides
	// whether the breaker closes or reopens.
	BreakerHalfOpen
)

// String returns the state name for logs and metrics labels.
func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreaker guards one backend. It opens after a configured number
// of consecutive failures, rejects calls for a cooldown period, then
// admits exactly one trial request. The trial's outcome closes the
// breaker or reopens it for another cooldown.
//
// All methods are safe for concurrent use.
type CircuitBreaker struct {
	threshold int
	cooldown  time.Duration

	mu            sync.Mutex
	state         BreakerState
	failures      int
	openedAt      time.Time
	trialInFlight bool
}

// NewCircuitBreaker creates a closed breaker. Non-positive arguments
// fall back to the configuration defaults.
func NewCircuitBreaker(failureThreshold int, cooldown time.Duration) *CircuitBreaker {
	if failureThreshold <= 0 {
		failureThreshold = config.DefaultFailureThreshold
	}
	if cooldown <= 0 {
		cooldown = config.DefaultBreakerCooldown
	}
	return &CircuitBreaker{threshold: failureThreshold, cooldown: cooldown}
}

// Allow reports whether a call may proceed, reserving the half-open
// trial slot when the cooldown has elapsed. Callers that receive true
// must follow up with RecordSuccess or RecordFailure.
func (b *CircuitBreaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		return true
	case BreakerOpen:
		if time.Since(b.openedAt) < b.cooldown {
			return false
		}
		b.state = BreakerHalfOpen
		b.trialInFlight = true
		return true
	default: // BreakerHalfOpen
		if b.trialInFlight {
			return false
		}
		b.trialInFlight = true
		return true
	}
}

// CanAttempt reports whether Allow would currently succeed, without
// reserving the trial slot. Used to filter candidates before ranking.
func (b *CircuitBreaker) CanAttempt() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		return true
	case BreakerOpen:
		return time.Since(b.openedAt) >= b.cooldown
	default:
		return !b.trialInFlight
	}
}

// RecordSuccess counts a successful call, resetting the consecutive
// failure count. It returns true when the success closed a half-open
// breaker.
func (b *CircuitBreaker) RecordSuccess() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	if b.state == BreakerHalfOpen {
		b.state = BreakerClosed
		b.trialInFlight = false
		return true
	}
	return false
}

// RecordFailure counts a failed call. It returns true when this failure
// opened the breaker, either by reaching the threshold or by failing
// the half-open trial.
func (b *CircuitBreaker) RecordFailure() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	switch b.state {
	case BreakerClosed:
		if b.failures >= b.threshold {
			b.state = BreakerOpen
			b.openedAt = time.Now()
			return true
		}
	case BreakerHalfOpen:
		b.state = BreakerOpen
		b.openedAt = time.Now()
		b.trialInFlight = false
		return true
	}
	// Already open: stragglers from calls started before the breaker
	// opened do not extend the cooldown.
	return false
}

// State returns the current state. An elapsed cooldown is still
// reported as open until Allow promotes the breaker to half-open.
func (b *CircuitBreaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Failures returns the consecutive failure count.
func (b *CircuitBreaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// RetryAfter returns the remaining cooldown of an open breaker, or zero
// when the breaker is not open or the cooldown has elapsed.
func (b *CircuitBreaker) RetryAfter() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != BreakerOpen {
		return 0
	}
	remaining := b.cooldown - time.Since(b.openedAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}
