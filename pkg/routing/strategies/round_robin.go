package strategies

import (
	"sync/atomic"

	"github.com/johnhenry/ai.matey-sub001/pkg/ir"
	"github.com/johnhenry/ai.matey-sub001/pkg/routing"
)

// counterResetThreshold prevents unbounded counter growth. At one
// billion selections the counter resets to zero; a brief distribution
// hiccup at rollover is acceptable.
const counterResetThreshold = 1_000_000_000

// RoundRobin rotates the starting candidate on every request, so load
// spreads evenly across eligible backends. The rotation offset is a
// single atomic counter shared by concurrent requests.
type RoundRobin struct {
	counter atomic.Int64
}

// NewRoundRobin creates the round-robin selection strategy.
func NewRoundRobin() *RoundRobin {
	return &RoundRobin{}
}

// Name returns the strategy name.
func (s *RoundRobin) Name() string {
	return "round-robin"
}

// Rank rotates the candidate list: position k, k+1, ... wrapping
// around, where k advances by one per request. The candidates after the
// head form the fallback chain in rotation order.
func (s *RoundRobin) Rank(req *ir.ChatRequest, candidates []*routing.Candidate) ([]*routing.Candidate, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	count := s.counter.Add(1)
	if count >= counterResetThreshold {
		s.counter.CompareAndSwap(count, 0)
	}
	k := int((count - 1) % int64(len(candidates)))

	out := make([]*routing.Candidate, 0, len(candidates))
	out = append(out, candidates[k:]...)
	out = append(out, candidates[:k]...)
	return out, nil
}

// Reset rewinds the rotation to the first registered backend.
func (s *RoundRobin) Reset() {
	s.counter.Store(0)
}
