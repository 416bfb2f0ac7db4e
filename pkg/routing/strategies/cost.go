package strategies

import (
	"sort"

	"github.com/johnhenry/ai.matey-sub001/pkg/ir"
	"github.com/johnhenry/ai.matey-sub001/pkg/routing"
)

// CostOptimized ranks candidates cheapest first. Once real spend has
// been observed the running mean cost per request is used; until then
// the midpoint of the configured per-million-token rates stands in.
// Unpriced backends score zero and therefore rank first. Equal costs
// keep registration order.
type CostOptimized struct{}

// NewCostOptimized creates the cost-optimized selection strategy.
func NewCostOptimized() *CostOptimized {
	return &CostOptimized{}
}

// Name returns the strategy name.
func (s *CostOptimized) Name() string {
	return "cost-optimized"
}

// Rank orders candidates by expected cost, ascending.
func (s *CostOptimized) Rank(req *ir.ChatRequest, candidates []*routing.Candidate) ([]*routing.Candidate, error) {
	out := make([]*routing.Candidate, len(candidates))
	copy(out, candidates)

	sort.SliceStable(out, func(i, j int) bool {
		return costScore(out[i]) < costScore(out[j])
	})
	return out, nil
}

func costScore(c *routing.Candidate) float64 {
	if c.CostSamples > 0 {
		return c.AvgCost
	}
	if c.Rates != nil {
		return (c.Rates.InputPerMillion + c.Rates.OutputPerMillion) / 2
	}
	return 0
}
