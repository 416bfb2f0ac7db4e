package routing

import (
	"sync"
	"sync/atomic"
	"time"
)

// Stats tracks routing outcomes. Counters are atomic; per-backend
// running averages are guarded by a mutex because a cumulative mean is
// a read-modify-write of two fields.
type Stats struct {
	totalRequests atomic.Int64
	routingErrors atomic.Int64
	fallbacks     atomic.Int64

	mu       sync.RWMutex
	backends map[string]*backendStats
	since    time.Time
}

// backendStats accumulates one backend's outcome history. Latency and
// cost are cumulative means over successful attempts.
type backendStats struct {
	mu             sync.Mutex
	requests       int64
	successes      int64
	failures       int64
	meanLatency    time.Duration
	latencySamples int64
	meanCost       float64
	costSamples    int64
}

// NewStats creates an empty stats collector.
func NewStats() *Stats {
	return &Stats{
		backends: make(map[string]*backendStats),
		since:    time.Now(),
	}
}

func (s *Stats) backend(name string) *backendStats {
	s.mu.RLock()
	bs, ok := s.backends[name]
	s.mu.RUnlock()
	if ok {
		return bs
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if bs, ok = s.backends[name]; ok {
		return bs
	}
	bs = &backendStats{}
	s.backends[name] = bs
	return bs
}

// RecordRequest counts an inbound routed request, before any attempt.
func (s *Stats) RecordRequest() {
	s.totalRequests.Add(1)
}

// RecordRoutingError counts a request that failed before or after all
// attempts: empty candidate set, strategy failure, or an exhausted
// fallback chain.
func (s *Stats) RecordRoutingError() {
	s.routingErrors.Add(1)
}

// RecordFallback counts a request that needed more than one attempt.
func (s *Stats) RecordFallback() {
	s.fallbacks.Add(1)
}

// RecordSuccess folds a successful attempt into the backend's counters
// and running averages. cost is ignored unless costKnown is true, so
// unpriced backends do not drag their average to zero.
func (s *Stats) RecordSuccess(name string, latency time.Duration, cost float64, costKnown bool) {
	bs := s.backend(name)
	bs.mu.Lock()
	defer bs.mu.Unlock()

	bs.requests++
	bs.successes++
	bs.latencySamples++
	bs.meanLatency += (latency - bs.meanLatency) / time.Duration(bs.latencySamples)
	if costKnown {
		bs.costSamples++
		bs.meanCost += (cost - bs.meanCost) / float64(bs.costSamples)
	}
}

// RecordFailure counts a failed attempt. Failure latency is not folded
// into the average: refused connections return fast and would make a
// broken backend look quick.
func (s *Stats) RecordFailure(name string) {
	bs := s.backend(name)
	bs.mu.Lock()
	defer bs.mu.Unlock()

	bs.requests++
	bs.failures++
}

// observed returns the backend's running averages for candidate
// construction.
func (s *Stats) observed(name string) (avgLatency time.Duration, latencySamples int64, avgCost float64, costSamples int64) {
	s.mu.RLock()
	bs, ok := s.backends[name]
	s.mu.RUnlock()
	if !ok {
		return 0, 0, 0, 0
	}

	bs.mu.Lock()
	defer bs.mu.Unlock()
	return bs.meanLatency, bs.latencySamples, bs.meanCost, bs.costSamples
}

// Snapshot returns a point-in-time copy of all counters.
func (s *Stats) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		TotalRequests: s.totalRequests.Load(),
		RoutingErrors: s.routingErrors.Load(),
		Fallbacks:     s.fallbacks.Load(),
		Since:         s.since,
		Backends:      make(map[string]BackendSnapshot, len(s.backends)),
	}
	for name, bs := range s.backends {
		bs.mu.Lock()
		snap.Backends[name] = BackendSnapshot{
			Requests:   bs.requests,
			Successes:  bs.successes,
			Failures:   bs.failures,
			AvgLatency: bs.meanLatency,
			AvgCost:    bs.meanCost,
		}
		bs.mu.Unlock()
	}
	return snap
}

// Reset clears all counters and averages.
func (s *Stats) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalRequests.Store(0)
	s.routingErrors.Store(0)
	s.fallbacks.Store(0)
	s.backends = make(map[string]*backendStats)
	s.since = time.Now()
}

// Snapshot is a point-in-time view of routing activity.
type Snapshot struct {
	// TotalRequests counts routed requests, not individual attempts.
	TotalRequests int64 `json:"totalRequests"`

	// RoutingErrors counts requests that returned a routing-level error.
	RoutingErrors int64 `json:"routingErrors"`

	// Fallbacks counts requests that needed more than one attempt.
	Fallbacks int64 `json:"fallbacks"`

	// Since is when counting started.
	Since time.Time `json:"since"`

	// Backends holds per-backend counters keyed by backend name.
	Backends map[string]BackendSnapshot `json:"backends"`
}

// BackendSnapshot is a point-in-time view of one backend's outcomes.
type BackendSnapshot struct {
	// Requests counts attempts routed to this backend.
	Requests int64 `json:"requests"`

	// Successes counts attempts that returned a response.
	Successes int64 `json:"successes"`

	// Failures counts attempts that returned an error.
	Failures int64 `json:"failures"`

	// AvgLatency is the running mean duration of successful attempts.
	AvgLatency time.Duration `json:"avgLatency"`

	// AvgCost is the running mean cost per successful attempt in USD,
	// zero when the backend is unpriced.
	AvgCost float64 `json:"avgCost"`
}
