package strategies

import (
	"fmt"

	"github.com/johnhenry/ai.matey-sub001/pkg/ir"
	"github.com/johnhenry/ai.matey-sub001/pkg/routing"
)

// RankFunc is a caller-supplied candidate ordering.
type RankFunc func(req *ir.ChatRequest, candidates []*routing.Candidate) ([]*routing.Candidate, error)

// Custom adapts a plain function into a selection strategy, for
// routing policies the built-in strategies cannot express.
type Custom struct {
	name string
	rank RankFunc
}

// NewCustom wraps rank as a named strategy.
func NewCustom(name string, rank RankFunc) *Custom {
	if name == "" {
		name = "custom"
	}
	return &Custom{name: name, rank: rank}
}

// Name returns the strategy name.
func (s *Custom) Name() string {
	return s.name
}

// Rank delegates to the wrapped function.
func (s *Custom) Rank(req *ir.ChatRequest, candidates []*routing.Candidate) ([]*routing.Candidate, error) {
	if s.rank == nil {
		return nil, fmt.Errorf("custom strategy %q has no rank function", s.name)
	}
	return s.rank(req, candidates)
}
