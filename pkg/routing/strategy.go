package routing

import (
	"time"

	"github.com/johnhenry/ai.matey-sub001/pkg/backends"
	"github.com/johnhenry/ai.matey-sub001/pkg/config"
	"github.com/johnhenry/ai.matey-sub001/pkg/ir"
)

// Candidate is one eligible backend together with the routing state a
// strategy may consult. Candidates handed to a strategy have already
// passed the model, health, and breaker filters.
type Candidate struct {
	// Backend is the eligible backend.
	Backend backends.Backend

	// Index is the backend's registration position. Strategies use
	// stable sorts, so equal-scoring candidates keep registration
	// order, making Index the final tie-breaker.
	Index int

	// AvgLatency is the running mean duration of successful calls,
	// zero when LatencySamples is zero.
	AvgLatency time.Duration

	// LatencySamples counts the successes behind AvgLatency.
	LatencySamples int64

	// AvgCost is the observed running mean cost per call in USD, zero
	// when CostSamples is zero.
	AvgCost float64

	// CostSamples counts the priced successes behind AvgCost.
	CostSamples int64

	// Rates is the configured pricing, nil for unpriced backends.
	Rates *config.CostConfig
}

// Name returns the candidate backend's name.
func (c *Candidate) Name() string {
	return c.Backend.Name()
}

// Strategy orders candidates for a request, best first. The router
// attempts them in the returned order, so position one is the primary
// pick and the rest form the fallback chain.
//
// Implementations live in pkg/routing/strategies. The interface is
// defined here so the router does not import its own strategy package.
type Strategy interface {
	// Name returns the strategy name for logs and configuration.
	Name() string

	// Rank orders candidates for the request, best first. Rank must
	// not mutate the input slice. An error means the strategy cannot
	// choose, which the router surfaces as ROUTING_FAILED.
	Rank(req *ir.ChatRequest, candidates []*Candidate) ([]*Candidate, error)
}
