package strategies

import (
	"fmt"

	"github.com/johnhenry/ai.matey-sub001/pkg/ir"
	"github.com/johnhenry/ai.matey-sub001/pkg/routing"
)

// Explicit requires every request to name its backend in the request
// metadata. The router honors a preferred backend before consulting any
// strategy, so Rank only runs when no preference was given, which this
// strategy treats as an error.
type Explicit struct{}

// NewExplicit creates the explicit selection strategy.
func NewExplicit() *Explicit {
	return &Explicit{}
}

// Name returns the strategy name.
func (s *Explicit) Name() string {
	return "explicit"
}

// Rank rejects requests that did not name a backend.
func (s *Explicit) Rank(req *ir.ChatRequest, candidates []*routing.Candidate) ([]*routing.Candidate, error) {
	return nil, fmt.Errorf("explicit strategy requires metadata.preferredBackend")
}
