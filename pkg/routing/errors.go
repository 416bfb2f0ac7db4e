package routing

import (
	"fmt"
	"time"

	"github.com/johnhenry/ai.matey-sub001/pkg/ir"
)

// errNoBackendsRegistered is returned when routing is attempted against
// an empty registry.
func errNoBackendsRegistered() *ir.Error {
	return ir.NewError(ir.ErrCodeNoBackendAvailable, "no backends registered")
}

// errNoCandidates is returned when filtering leaves nothing to route to:
// every registered backend is unsupported for the model, health-failed,
// or sitting behind an open breaker.
func errNoCandidates(model string) *ir.Error {
	if model == "" {
		return ir.NewError(ir.ErrCodeNoBackendAvailable, "no eligible backends")
	}
	return ir.Errorf(ir.ErrCodeNoBackendAvailable, "no eligible backends for model %q", model)
}

// errUnknownBackend is returned when a request names a preferred backend
// that is not in the registry. This is a caller mistake, not a transient
// condition, so it is not retryable.
func errUnknownBackend(name string) *ir.Error {
	return ir.Errorf(ir.ErrCodeRoutingFailed, "preferred backend %q is not registered", name)
}

// errStrategyFailed wraps a strategy that could not produce an ordering.
func errStrategyFailed(strategy string, cause error) *ir.Error {
	e := ir.Errorf(ir.ErrCodeRoutingFailed, "strategy %q failed", strategy)
	e.Cause = cause
	return e
}

// errCircuitOpen is returned for an attempt rejected by an open breaker
// without reaching the network. RetryAfter carries the remaining
// cooldown so a retry layer can wait just long enough for the half-open
// trial.
func errCircuitOpen(backend string, retryAfter time.Duration) *ir.Error {
	e := ir.NewError(ir.ErrCodeCircuitOpen, "circuit breaker open")
	e.Backend = backend
	if retryAfter > 0 {
		e.RetryAfter = retryAfter
	}
	return e
}

// errAllFailed aggregates an exhausted fallback chain. Attempted lists
// the backends in the order they were tried and Errs holds each one's
// failure. The aggregate is retryable when any underlying failure is.
func errAllFailed(model string, attempted []string, errs []error) *ir.Error {
	msg := fmt.Sprintf("all %d backends failed", len(attempted))
	if model != "" {
		msg = fmt.Sprintf("all %d backends failed for model %q", len(attempted), model)
	}
	e := ir.NewError(ir.ErrCodeAllBackendsFailed, msg)
	e.Attempted = attempted
	e.Errs = errs
	for _, sub := range errs {
		if ir.IsRetryable(sub) {
			e.Retryable = true
			break
		}
	}
	return e
}
