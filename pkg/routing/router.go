package routing

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/johnhenry/ai.matey-sub001/pkg/backends"
	"github.com/johnhenry/ai.matey-sub001/pkg/config"
	"github.com/johnhenry/ai.matey-sub001/pkg/ir"
	"github.com/johnhenry/ai.matey-sub001/pkg/telemetry/metrics"
)

// routerName is the name the Router reports when used as a backend.
const routerName = "router"

// entry pairs a registered backend with its circuit breaker. Entries
// are immutable after construction; UpdateBackends builds new entries
// rather than mutating shared ones.
type entry struct {
	name    string
	backend backends.Backend
	breaker *CircuitBreaker
}

// Router dispatches requests across registered backends using a
// selection strategy, per-backend circuit breakers, optional active
// health probes, and an optional fallback chain.
//
// Router implements backends.Backend, so callers can treat a fleet as
// one backend.
type Router struct {
	cfg       config.RouterConfig
	strategy  Strategy
	logger    *slog.Logger
	collector *metrics.Collector
	costs     map[string]config.CostConfig

	mu      sync.RWMutex
	entries []*entry
	closed  bool

	stats  *Stats
	health *healthMonitor
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the router's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithCollector wires Prometheus metrics for breaker state, backend
// health, and fallback depth.
func WithCollector(collector *metrics.Collector) Option {
	return func(r *Router) {
		r.collector = collector
	}
}

// WithCostRates supplies per-backend pricing, keyed by backend name.
// The cost-optimized strategy and the per-request cost averages use it.
func WithCostRates(rates map[string]config.CostConfig) Option {
	return func(r *Router) {
		for name, rate := range rates {
			r.costs[name] = rate
		}
	}
}

// NewRouter creates a router with no registered backends. The health
// probe loop starts immediately when enabled; Close stops it.
func NewRouter(cfg config.RouterConfig, strategy Strategy, opts ...Option) (*Router, error) {
	if strategy == nil {
		return nil, fmt.Errorf("routing: strategy is required")
	}

	r := &Router{
		cfg:      cfg,
		strategy: strategy,
		logger:   slog.Default(),
		costs:    make(map[string]config.CostConfig),
		stats:    NewStats(),
	}
	for _, opt := range opts {
		opt(r)
	}

	if cfg.Health.Enabled {
		r.health = newHealthMonitor(cfg.Health, r.logger, r.collector, r.snapshotBackends)
		r.health.start()
	}
	return r, nil
}

// Register adds a backend at the end of the registration order. The
// order matters: strategies use it as the final tie-breaker.
func (r *Router) Register(b backends.Backend) error {
	if b == nil {
		return fmt.Errorf("routing: backend is nil")
	}
	name := b.Name()
	if name == "" {
		return fmt.Errorf("routing: backend has an empty name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return fmt.Errorf("routing: router is closed")
	}
	for _, e := range r.entries {
		if e.name == name {
			return fmt.Errorf("routing: backend %q already registered", name)
		}
	}

	r.entries = append(r.entries, &entry{
		name:    name,
		backend: b,
		breaker: NewCircuitBreaker(r.cfg.Breaker.FailureThreshold, r.cfg.Breaker.Cooldown),
	})
	r.logger.Info("backend registered", "backend", name)
	return nil
}

// UpdateBackends replaces the registry with bs, in the given order.
// Backends whose name survives the swap keep their breaker state and
// accumulated stats; new names start with a closed breaker. Used for
// hot reload on configuration change.
func (r *Router) UpdateBackends(bs []backends.Backend) error {
	seen := make(map[string]struct{}, len(bs))
	for _, b := range bs {
		if b == nil {
			return fmt.Errorf("routing: backend is nil")
		}
		name := b.Name()
		if name == "" {
			return fmt.Errorf("routing: backend has an empty name")
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("routing: duplicate backend %q", name)
		}
		seen[name] = struct{}{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return fmt.Errorf("routing: router is closed")
	}

	old := make(map[string]*entry, len(r.entries))
	for _, e := range r.entries {
		old[e.name] = e
	}

	next := make([]*entry, 0, len(bs))
	names := make([]string, 0, len(bs))
	for _, b := range bs {
		name := b.Name()
		breaker := NewCircuitBreaker(r.cfg.Breaker.FailureThreshold, r.cfg.Breaker.Cooldown)
		if prev, ok := old[name]; ok {
			breaker = prev.breaker
		}
		next = append(next, &entry{name: name, backend: b, breaker: breaker})
		names = append(names, name)
	}
	r.entries = next
	r.logger.Info("backend registry updated", "backends", names)
	return nil
}

// Backends returns the registered backend names in registration order.
func (r *Router) Backends() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.entries))
	for i, e := range r.entries {
		names[i] = e.name
	}
	return names
}

// Name implements backends.Backend.
func (r *Router) Name() string {
	return routerName
}

// Capabilities implements backends.Backend by aggregating the
// registered backends: a feature is offered when any backend offers it,
// and the model list is the union. If any backend is model-agnostic the
// aggregate declares no models at all, which matches everything.
func (r *Router) Capabilities() backends.Capabilities {
	agg := backends.Capabilities{
		SystemMessages: backends.SystemInMessages,
		MultiSystem:    true,
	}

	seenModels := make(map[string]struct{})
	seenPatterns := make(map[string]struct{})
	agnostic := false

	for _, e := range r.snapshotEntries() {
		caps := e.backend.Capabilities()

		agg.Streaming = agg.Streaming || caps.Streaming
		agg.MultiModal = agg.MultiModal || caps.MultiModal
		agg.Tools = agg.Tools || caps.Tools
		if caps.MaxContextTokens > agg.MaxContextTokens {
			agg.MaxContextTokens = caps.MaxContextTokens
		}

		if len(caps.Models) == 0 && len(caps.ModelPatterns) == 0 {
			agnostic = true
		}
		for _, m := range caps.Models {
			if _, ok := seenModels[m]; !ok {
				seenModels[m] = struct{}{}
				agg.Models = append(agg.Models, m)
			}
		}
		for _, p := range caps.ModelPatterns {
			if _, ok := seenPatterns[p]; !ok {
				seenPatterns[p] = struct{}{}
				agg.ModelPatterns = append(agg.ModelPatterns, p)
			}
		}

		agg.Parameters.Temperature = agg.Parameters.Temperature || caps.Parameters.Temperature
		agg.Parameters.TopP = agg.Parameters.TopP || caps.Parameters.TopP
		agg.Parameters.TopK = agg.Parameters.TopK || caps.Parameters.TopK
		agg.Parameters.MaxTokens = agg.Parameters.MaxTokens || caps.Parameters.MaxTokens
		agg.Parameters.Seed = agg.Parameters.Seed || caps.Parameters.Seed
		agg.Parameters.Stop = agg.Parameters.Stop || caps.Parameters.Stop
	}

	if agnostic {
		agg.Models = nil
		agg.ModelPatterns = nil
	}
	return agg
}

// Execute implements backends.Backend. It plans a candidate order and
// runs the fallback chain, sequentially or in parallel per
// configuration.
func (r *Router) Execute(ctx context.Context, req *ir.ChatRequest) (*ir.ChatResponse, error) {
	r.stats.RecordRequest()

	if err := ctx.Err(); err != nil {
		return nil, ir.WrapError(ir.ErrCodeTimeout, err, "request aborted before routing")
	}

	plan, perr := r.plan(req)
	if perr != nil {
		r.stats.RecordRoutingError()
		r.logger.Warn("routing failed",
			"request_id", req.Metadata.RequestID,
			"model", req.Model,
			"error", perr,
		)
		return nil, perr
	}

	if r.cfg.Fallback.Enabled && r.cfg.Fallback.Parallel && len(plan) > 1 {
		return r.executeParallel(ctx, req, plan)
	}
	return r.executeSequential(ctx, req, plan)
}

// ExecuteStream implements backends.Backend. Failover applies only
// until a stream starts: once chunks are flowing the consumer may have
// observed partial output, so a mid-stream failure terminates the
// stream instead of switching backends.
func (r *Router) ExecuteStream(ctx context.Context, req *ir.ChatRequest) (<-chan *ir.StreamChunk, error) {
	r.stats.RecordRequest()

	if err := ctx.Err(); err != nil {
		return nil, ir.WrapError(ir.ErrCodeTimeout, err, "request aborted before routing")
	}

	plan, perr := r.plan(req)
	if perr != nil {
		r.stats.RecordRoutingError()
		r.logger.Warn("routing failed",
			"request_id", req.Metadata.RequestID,
			"model", req.Model,
			"error", perr,
		)
		return nil, perr
	}

	return r.executeStream(ctx, req, plan)
}

// plan produces the ordered attempt list for a request. A preferred
// backend named in the request metadata short-circuits the strategy;
// otherwise eligible candidates are ranked by the configured strategy.
func (r *Router) plan(req *ir.ChatRequest) ([]*entry, *ir.Error) {
	entries := r.snapshotEntries()
	if len(entries) == 0 {
		return nil, errNoBackendsRegistered()
	}

	if preferred := req.Metadata.PreferredBackend; preferred != "" {
		return r.planPreferred(entries, req, preferred)
	}

	candidates := make([]*Candidate, 0, len(entries))
	byName := make(map[string]*entry, len(entries))
	for i, e := range entries {
		byName[e.name] = e
		if !r.eligible(e, req.Model) {
			continue
		}
		candidates = append(candidates, r.candidate(e, i))
	}
	if len(candidates) == 0 {
		return nil, errNoCandidates(req.Model)
	}

	ranked, err := r.strategy.Rank(req, candidates)
	if err != nil {
		return nil, errStrategyFailed(r.strategy.Name(), err)
	}
	if len(ranked) == 0 {
		return nil, errNoCandidates(req.Model)
	}

	plan := make([]*entry, 0, len(ranked))
	for _, c := range ranked {
		if e, ok := byName[c.Name()]; ok {
			plan = append(plan, e)
		}
	}
	return r.truncate(plan), nil
}

// planPreferred honors an explicit backend choice. The named backend is
// attempted even when unhealthy or behind a cooling breaker, so an
// explicit choice gets an honest attempt; when fallback is enabled the
// remaining eligible backends follow in registration order.
func (r *Router) planPreferred(entries []*entry, req *ir.ChatRequest, preferred string) ([]*entry, *ir.Error) {
	var chosen *entry
	for _, e := range entries {
		if e.name == preferred {
			chosen = e
			break
		}
	}
	if chosen == nil {
		return nil, errUnknownBackend(preferred)
	}

	plan := []*entry{chosen}
	if r.cfg.Fallback.Enabled {
		for _, e := range entries {
			if e == chosen || !r.eligible(e, req.Model) {
				continue
			}
			plan = append(plan, e)
		}
	}
	return r.truncate(plan), nil
}

// eligible applies the model, health, and breaker filters.
func (r *Router) eligible(e *entry, model string) bool {
	if model != "" && !e.backend.Capabilities().SupportsModel(model) {
		return false
	}
	if r.health != nil && !r.health.Healthy(e.name) {
		return false
	}
	return e.breaker.CanAttempt()
}

func (r *Router) candidate(e *entry, index int) *Candidate {
	avgLatency, latencySamples, avgCost, costSamples := r.stats.observed(e.name)
	c := &Candidate{
		Backend:        e.backend,
		Index:          index,
		AvgLatency:     avgLatency,
		LatencySamples: latencySamples,
		AvgCost:        avgCost,
		CostSamples:    costSamples,
	}
	if rates, ok := r.costs[e.name]; ok {
		c.Rates = &rates
	}
	return c
}

// truncate applies the fallback configuration to a plan: a single
// attempt when fallback is disabled, at most MaxAttempts otherwise.
func (r *Router) truncate(plan []*entry) []*entry {
	if !r.cfg.Fallback.Enabled && len(plan) > 1 {
		plan = plan[:1]
	}
	if max := r.cfg.Fallback.MaxAttempts; max > 0 && len(plan) > max {
		plan = plan[:max]
	}
	return plan
}

func (r *Router) snapshotEntries() []*entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*entry, len(r.entries))
	copy(out, r.entries)
	return out
}

func (r *Router) snapshotBackends() []backends.Backend {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]backends.Backend, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.backend
	}
	return out
}

// requestCost prices a completed request against the configured rates.
// The boolean reports whether a price could be computed.
func (r *Router) requestCost(name string, usage *ir.Usage) (float64, bool) {
	rates, ok := r.costs[name]
	if !ok || usage == nil {
		return 0, false
	}
	cost := (float64(usage.PromptTokens)*rates.InputPerMillion +
		float64(usage.CompletionTokens)*rates.OutputPerMillion) / 1e6
	return cost, true
}

// noteSuccess folds a successful attempt into stats and the breaker.
func (r *Router) noteSuccess(e *entry, latency time.Duration, usage *ir.Usage) {
	cost, priced := r.requestCost(e.name, usage)
	r.stats.RecordSuccess(e.name, latency, cost, priced)
	if e.breaker.RecordSuccess() {
		r.logger.Info("circuit breaker closed", "backend", e.name)
	}
	r.updateBreakerGauge(e)
}

// noteFailure folds a failed attempt into stats and the breaker.
func (r *Router) noteFailure(e *entry, err error) {
	r.stats.RecordFailure(e.name)
	if e.breaker.RecordFailure() {
		r.logger.Warn("circuit breaker opened",
			"backend", e.name,
			"consecutive_failures", e.breaker.Failures(),
			"error", err,
		)
	}
	r.updateBreakerGauge(e)
}

func (r *Router) updateBreakerGauge(e *entry) {
	if r.collector != nil {
		r.collector.UpdateBreakerState(e.name, int(e.breaker.State()))
	}
}

// Stats returns a snapshot of routing activity.
func (r *Router) Stats() Snapshot {
	return r.stats.Snapshot()
}

// BreakerState reports the circuit breaker state of a registered
// backend. The boolean is false for unknown names.
func (r *Router) BreakerState(name string) (BreakerState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.entries {
		if e.name == name {
			return e.breaker.State(), true
		}
	}
	return BreakerClosed, false
}

// Close stops the health probe loop. Registered backends are not
// closed; their lifecycle belongs to the caller.
func (r *Router) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	if r.health != nil {
		r.health.Close()
	}
	return nil
}
