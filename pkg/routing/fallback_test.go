package routing

import (
	"context"
	"testing"
	"time"

	"github.com/johnhenry/ai.matey-sub001/pkg/config"
	"github.com/johnhenry/ai.matey-sub001/pkg/ir"
)

func fallbackConfig() config.RouterConfig {
	return config.RouterConfig{
		Fallback: config.FallbackConfig{Enabled: true},
	}
}

func TestFallbackSequentialBookkeeping(t *testing.T) {
	alpha := &fakeBackend{name: "alpha", failFirst: 100}
	beta := &fakeBackend{name: "beta", failFirst: 100}
	gamma := &fakeBackend{name: "gamma"}
	r := newTestRouter(t, fallbackConfig(), registrationOrder{}, alpha, beta, gamma)

	resp, err := r.Execute(context.Background(), testReq("m-1"))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if resp.Metadata.Backend != "gamma" {
		t.Errorf("backend = %q, want gamma", resp.Metadata.Backend)
	}
	wantAttempted := []string{"alpha", "beta", "gamma"}
	if got := resp.Metadata.AttemptedBackends; len(got) != 3 || got[0] != wantAttempted[0] || got[1] != wantAttempted[1] || got[2] != wantAttempted[2] {
		t.Errorf("attempted = %v, want %v", got, wantAttempted)
	}
	wantFailed := []string{"alpha", "beta"}
	if got := resp.Metadata.FailedBackends; len(got) != 2 || got[0] != wantFailed[0] || got[1] != wantFailed[1] {
		t.Errorf("failed = %v, want %v", got, wantFailed)
	}

	snap := r.Stats()
	if snap.Fallbacks != 1 {
		t.Errorf("fallbacks = %d, want 1", snap.Fallbacks)
	}
	if snap.Backends["alpha"].Failures != 1 || snap.Backends["beta"].Failures != 1 {
		t.Error("both failed attempts should be counted")
	}
	if snap.Backends["gamma"].Successes != 1 {
		t.Error("the winning attempt should be counted")
	}
}

func TestFallbackDisabledReturnsBackendError(t *testing.T) {
	rateLimited := ir.NewError(ir.ErrCodeRateLimit, "too many requests")
	rateLimited.Backend = "alpha"
	rateLimited.RetryAfter = 5 * time.Second

	alpha := &fakeBackend{name: "alpha", failFirst: 100, failWith: rateLimited}
	beta := &fakeBackend{name: "beta"}
	r := newTestRouter(t, config.RouterConfig{}, registrationOrder{}, alpha, beta)

	_, err := r.Execute(context.Background(), testReq("m-1"))
	if !ir.IsCode(err, ir.ErrCodeRateLimit) {
		t.Fatalf("error = %v, want the backend's own RATE_LIMIT_ERROR", err)
	}
	e := ir.AsError(err)
	if e.Backend != "alpha" {
		t.Errorf("error backend = %q, want alpha", e.Backend)
	}
	if e.RetryAfter != 5*time.Second {
		t.Errorf("retry after = %v, want 5s", e.RetryAfter)
	}
	if beta.callCount() != 0 {
		t.Error("fallback is disabled, beta must not be called")
	}
}

func TestFallbackExhaustionAggregates(t *testing.T) {
	alpha := &fakeBackend{name: "alpha", failFirst: 100}
	beta := &fakeBackend{name: "beta", failFirst: 100}
	r := newTestRouter(t, fallbackConfig(), registrationOrder{}, alpha, beta)

	_, err := r.Execute(context.Background(), testReq("m-1"))
	if !ir.IsCode(err, ir.ErrCodeAllBackendsFailed) {
		t.Fatalf("error = %v, want ALL_BACKENDS_FAILED", err)
	}

	e := ir.AsError(err)
	if len(e.Attempted) != 2 || e.Attempted[0] != "alpha" || e.Attempted[1] != "beta" {
		t.Errorf("attempted = %v, want [alpha beta]", e.Attempted)
	}
	if len(e.Errs) != 2 {
		t.Fatalf("aggregate holds %d errors, want 2", len(e.Errs))
	}
	if !e.Retryable {
		t.Error("aggregate over retryable network failures should be retryable")
	}
}

func TestFallbackAggregateNotRetryable(t *testing.T) {
	authErr := ir.NewError(ir.ErrCodeAuthentication, "bad key")
	convErr := ir.NewError(ir.ErrCodeConversion, "unmappable content")

	alpha := &fakeBackend{name: "alpha", failFirst: 100, failWith: authErr}
	beta := &fakeBackend{name: "beta", failFirst: 100, failWith: convErr}
	r := newTestRouter(t, fallbackConfig(), registrationOrder{}, alpha, beta)

	_, err := r.Execute(context.Background(), testReq("m-1"))
	e := ir.AsError(err)
	if e == nil || e.Code != ir.ErrCodeAllBackendsFailed {
		t.Fatalf("error = %v, want ALL_BACKENDS_FAILED", err)
	}
	if e.Retryable {
		t.Error("no underlying failure is retryable, so the aggregate must not be")
	}
}

func TestFallbackMaxAttempts(t *testing.T) {
	alpha := &fakeBackend{name: "alpha", failFirst: 100}
	beta := &fakeBackend{name: "beta", failFirst: 100}
	gamma := &fakeBackend{name: "gamma"}

	cfg := fallbackConfig()
	cfg.Fallback.MaxAttempts = 2
	r := newTestRouter(t, cfg, registrationOrder{}, alpha, beta, gamma)

	_, err := r.Execute(context.Background(), testReq("m-1"))
	if !ir.IsCode(err, ir.ErrCodeAllBackendsFailed) {
		t.Fatalf("error = %v, want ALL_BACKENDS_FAILED", err)
	}
	if gamma.callCount() != 0 {
		t.Error("gamma is beyond max_attempts and must not be called")
	}
	if e := ir.AsError(err); len(e.Attempted) != 2 {
		t.Errorf("attempted = %v, want exactly 2 entries", e.Attempted)
	}
}

func TestFallbackParallelFirstSuccessWins(t *testing.T) {
	alpha := &fakeBackend{name: "alpha", delay: 80 * time.Millisecond}
	beta := &fakeBackend{name: "beta", delay: 5 * time.Millisecond}

	cfg := fallbackConfig()
	cfg.Fallback.Parallel = true
	r := newTestRouter(t, cfg, registrationOrder{}, alpha, beta)

	start := time.Now()
	resp, err := r.Execute(context.Background(), testReq("m-1"))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > 60*time.Millisecond {
		t.Errorf("parallel dispatch took %v, should return with the fast backend", elapsed)
	}

	if resp.Metadata.Backend != "beta" {
		t.Errorf("backend = %q, want beta", resp.Metadata.Backend)
	}
	if got := resp.Metadata.AttemptedBackends; len(got) != 2 {
		t.Errorf("attempted = %v, want both candidates", got)
	}
	if len(resp.Metadata.FailedBackends) != 0 {
		t.Errorf("failed = %v, want empty", resp.Metadata.FailedBackends)
	}

	// The cancelled loser is not a failure.
	if failures := r.Stats().Backends["alpha"].Failures; failures != 0 {
		t.Errorf("alpha failures = %d, want 0 for a cancelled loser", failures)
	}
}

func TestFallbackParallelRecordsEarlyFailures(t *testing.T) {
	alpha := &fakeBackend{name: "alpha", failFirst: 100}
	beta := &fakeBackend{name: "beta", delay: 20 * time.Millisecond}

	cfg := fallbackConfig()
	cfg.Fallback.Parallel = true
	r := newTestRouter(t, cfg, registrationOrder{}, alpha, beta)

	resp, err := r.Execute(context.Background(), testReq("m-1"))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if resp.Metadata.Backend != "beta" {
		t.Errorf("backend = %q, want beta", resp.Metadata.Backend)
	}
	if got := resp.Metadata.FailedBackends; len(got) != 1 || got[0] != "alpha" {
		t.Errorf("failed = %v, want [alpha]", got)
	}
	if r.Stats().Backends["alpha"].Failures != 1 {
		t.Error("a failure before the winner should be recorded")
	}
}

func TestFallbackParallelExhaustion(t *testing.T) {
	alpha := &fakeBackend{name: "alpha", failFirst: 100}
	beta := &fakeBackend{name: "beta", failFirst: 100}

	cfg := fallbackConfig()
	cfg.Fallback.Parallel = true
	r := newTestRouter(t, cfg, registrationOrder{}, alpha, beta)

	_, err := r.Execute(context.Background(), testReq("m-1"))
	if !ir.IsCode(err, ir.ErrCodeAllBackendsFailed) {
		t.Fatalf("error = %v, want ALL_BACKENDS_FAILED", err)
	}
	if e := ir.AsError(err); len(e.Attempted) != 2 {
		t.Errorf("attempted = %v, want both candidates", e.Attempted)
	}
}

func TestStreamFallbackOnStartFailure(t *testing.T) {
	startErr := ir.NewError(ir.ErrCodeNetwork, "connect refused")
	alpha := &fakeBackend{name: "alpha", streamStartErr: startErr}
	beta := &fakeBackend{name: "beta"}
	r := newTestRouter(t, fallbackConfig(), registrationOrder{}, alpha, beta)

	ch, err := r.ExecuteStream(context.Background(), testReq("m-1"))
	if err != nil {
		t.Fatalf("ExecuteStream() error = %v", err)
	}

	var start *ir.StreamChunk
	for chunk := range ch {
		if chunk.Type == ir.ChunkStart {
			start = chunk
		}
	}
	if start == nil || start.Metadata == nil {
		t.Fatal("stream should carry a start chunk with metadata")
	}
	if got := start.Metadata.AttemptedBackends; len(got) != 2 || got[0] != "alpha" || got[1] != "beta" {
		t.Errorf("attempted = %v, want [alpha beta]", got)
	}
	if got := start.Metadata.FailedBackends; len(got) != 1 || got[0] != "alpha" {
		t.Errorf("failed = %v, want [alpha]", got)
	}

	snap := r.Stats()
	if snap.Backends["alpha"].Failures != 1 || snap.Backends["beta"].Successes != 1 {
		t.Error("start failure and stream completion should both be recorded")
	}
}

func TestSequentialStopsWhenCallerCancels(t *testing.T) {
	alpha := &fakeBackend{name: "alpha", delay: time.Minute}
	beta := &fakeBackend{name: "beta"}
	r := newTestRouter(t, fallbackConfig(), registrationOrder{}, alpha, beta)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	_, err := r.Execute(ctx, testReq("m-1"))
	if !ir.IsCode(err, ir.ErrCodeTimeout) {
		t.Fatalf("error = %v, want the cancelled attempt's TIMEOUT_ERROR", err)
	}
	if beta.callCount() != 0 {
		t.Error("the chain must stop once the caller is gone")
	}
}

func TestExecuteRecordsConfiguredCost(t *testing.T) {
	r, err := NewRouter(config.RouterConfig{}, registrationOrder{},
		WithLogger(discardLogger()),
		WithCostRates(map[string]config.CostConfig{
			"alpha": {InputPerMillion: 1000, OutputPerMillion: 2000},
		}),
	)
	if err != nil {
		t.Fatalf("NewRouter() error = %v", err)
	}
	t.Cleanup(func() { r.Close() })

	if err := r.Register(&fakeBackend{name: "alpha"}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if _, err := r.Execute(context.Background(), testReq("m-1")); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	// Usage is 10 prompt + 5 completion tokens at 1000/2000 USD per
	// million: (10*1000 + 5*2000) / 1e6 = 0.02.
	got := r.Stats().Backends["alpha"].AvgCost
	if got < 0.0199 || got > 0.0201 {
		t.Errorf("avg cost = %v, want 0.02", got)
	}
}
