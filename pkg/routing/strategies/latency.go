package strategies

import (
	"sort"

	"github.com/johnhenry/ai.matey-sub001/pkg/ir"
	"github.com/johnhenry/ai.matey-sub001/pkg/routing"
)

// LatencyOptimized ranks candidates fastest first by the running mean
// latency of successful calls. Backends with no samples yet have a zero
// mean and rank first, so fresh backends receive traffic and earn a
// real average. Equal latencies keep registration order.
type LatencyOptimized struct{}

// NewLatencyOptimized creates the latency-optimized selection strategy.
func NewLatencyOptimized() *LatencyOptimized {
	return &LatencyOptimized{}
}

// Name returns the strategy name.
func (s *LatencyOptimized) Name() string {
	return "latency-optimized"
}

// Rank orders candidates by observed mean latency, ascending.
func (s *LatencyOptimized) Rank(req *ir.ChatRequest, candidates []*routing.Candidate) ([]*routing.Candidate, error) {
	out := make([]*routing.Candidate, len(candidates))
	copy(out, candidates)

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AvgLatency < out[j].AvgLatency
	})
	return out, nil
}
