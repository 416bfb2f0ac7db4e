package strategies

import (
	"math/rand"

	"github.com/johnhenry/ai.matey-sub001/pkg/ir"
	"github.com/johnhenry/ai.matey-sub001/pkg/routing"
)

// Random shuffles the candidates uniformly. With fallback enabled the
// shuffled tail doubles as a randomized failover chain.
type Random struct{}

// NewRandom creates the random selection strategy.
func NewRandom() *Random {
	return &Random{}
}

// Name returns the strategy name.
func (s *Random) Name() string {
	return "random"
}

// Rank returns the candidates in uniformly random order.
func (s *Random) Rank(req *ir.ChatRequest, candidates []*routing.Candidate) ([]*routing.Candidate, error) {
	out := make([]*routing.Candidate, len(candidates))
	copy(out, candidates)
	rand.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out, nil
}
