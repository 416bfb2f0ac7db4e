package strategies

import (
	"sort"

	"github.com/johnhenry/ai.matey-sub001/pkg/ir"
	"github.com/johnhenry/ai.matey-sub001/pkg/routing"
)

// ModelBased ranks candidates by how specifically their capability
// declarations match the requested model: an exact identifier match
// outranks any pattern, and more specific patterns outrank wildcards.
// Equal scores keep registration order.
type ModelBased struct{}

// NewModelBased creates the model-based selection strategy.
func NewModelBased() *ModelBased {
	return &ModelBased{}
}

// Name returns the strategy name.
func (s *ModelBased) Name() string {
	return "model-based"
}

// Rank orders candidates by model match specificity, highest first.
// Without a requested model there is nothing to score, so registration
// order stands.
func (s *ModelBased) Rank(req *ir.ChatRequest, candidates []*routing.Candidate) ([]*routing.Candidate, error) {
	out := make([]*routing.Candidate, len(candidates))
	copy(out, candidates)

	if req.Model == "" {
		return out, nil
	}

	scores := make(map[*routing.Candidate]int, len(out))
	for _, c := range out {
		score, _ := c.Backend.Capabilities().ModelMatchScore(req.Model)
		scores[c] = score
	}
	sort.SliceStable(out, func(i, j int) bool {
		return scores[out[i]] > scores[out[j]]
	})
	return out, nil
}
