package backends

import (
	"context"

	"github.com/johnhenry/ai.matey-sub001/pkg/ir"
)

// Backend executes canonical requests against one concrete provider.
// Implementations must be safe for concurrent use; the router dispatches
// many in-flight requests against the same instance.
type Backend interface {
	// Name returns the unique backend identifier used for routing,
	// provenance, and statistics.
	Name() string

	// Capabilities returns the static capability declaration.
	Capabilities() Capabilities

	// Execute runs a request to completion. Cancelling ctx aborts the
	// underlying network call. Failures are classified *ir.Error values.
	Execute(ctx context.Context, req *ir.ChatRequest) (*ir.ChatResponse, error)

	// ExecuteStream runs a request incrementally. The returned channel
	// delivers chunks with strictly increasing sequence numbers and is
	// closed after exactly one terminal chunk. An error return means the
	// stream never started.
	ExecuteStream(ctx context.Context, req *ir.ChatRequest) (<-chan *ir.StreamChunk, error)
}

// HealthChecker is implemented by backends that support active probing.
// The router's health loop type-asserts for it; backends without it are
// assumed healthy until live traffic says otherwise.
type HealthChecker interface {
	// HealthCheck probes the backend. A nil return marks it available.
	HealthCheck(ctx context.Context) error
}
