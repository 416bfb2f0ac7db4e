package routing

import (
	"context"
	"time"

	"github.com/johnhenry/ai.matey-sub001/pkg/ir"
)

// classifyAttempt ensures an attempt error is classified and attributed
// to the backend that produced it. Already-classified errors keep their
// original code.
func classifyAttempt(backend string, err error) error {
	return ir.WrapError(ir.ErrCodeProvider, err, "backend execution failed").WithBackend(backend)
}

// executeSequential walks the plan in order until an attempt succeeds.
// The winning response's metadata records every backend tried and every
// one that failed along the way.
func (r *Router) executeSequential(ctx context.Context, req *ir.ChatRequest, plan []*entry) (*ir.ChatResponse, error) {
	var (
		attempted []string
		failed    []string
		errs      []error
	)

	for _, e := range plan {
		attempted = append(attempted, e.name)

		if !e.breaker.Allow() {
			failed = append(failed, e.name)
			errs = append(errs, errCircuitOpen(e.name, e.breaker.RetryAfter()))
			r.logger.Debug("skipping backend with open circuit",
				"backend", e.name,
				"request_id", req.Metadata.RequestID,
			)
			continue
		}

		start := time.Now()
		resp, err := e.backend.Execute(ctx, req)
		latency := time.Since(start)

		if err != nil {
			r.noteFailure(e, err)
			failed = append(failed, e.name)
			errs = append(errs, classifyAttempt(e.name, err))
			r.logger.Warn("backend attempt failed",
				"backend", e.name,
				"request_id", req.Metadata.RequestID,
				"attempt", len(attempted),
				"error", err,
			)
			if ctx.Err() != nil {
				// The caller is gone; do not burn the remaining chain.
				break
			}
			continue
		}

		r.noteSuccess(e, latency, resp.Usage)
		if len(failed) > 0 {
			r.stats.RecordFallback()
		}
		r.recordOutcome(len(attempted), true)

		resp.Metadata.AttemptedBackends = attempted
		resp.Metadata.FailedBackends = failed
		return resp, nil
	}

	return nil, r.exhausted(req, attempted, errs)
}

// executeParallel dispatches to every planned backend at once and
// returns the first success, cancelling the in-flight losers. Failures
// arriving before the winner are recorded; losers cancelled after a
// winner are not counted as failures.
func (r *Router) executeParallel(ctx context.Context, req *ir.ChatRequest, plan []*entry) (*ir.ChatResponse, error) {
	pctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type attemptResult struct {
		entry *entry
		resp  *ir.ChatResponse
		err   error
	}

	// Buffered so losers finishing after the winner never block.
	results := make(chan attemptResult, len(plan))
	attempted := make([]string, 0, len(plan))

	for _, e := range plan {
		attempted = append(attempted, e.name)

		if !e.breaker.Allow() {
			results <- attemptResult{entry: e, err: errCircuitOpen(e.name, e.breaker.RetryAfter())}
			continue
		}

		go func(e *entry) {
			start := time.Now()
			resp, err := e.backend.Execute(pctx, req)
			if err != nil {
				if pctx.Err() == nil {
					r.noteFailure(e, err)
				}
				results <- attemptResult{entry: e, err: classifyAttempt(e.name, err)}
				return
			}
			r.noteSuccess(e, time.Since(start), resp.Usage)
			results <- attemptResult{entry: e, resp: resp}
		}(e)
	}

	var (
		failed []string
		errs   []error
	)
	for range plan {
		res := <-results
		if res.err != nil {
			failed = append(failed, res.entry.name)
			errs = append(errs, res.err)
			continue
		}

		cancel()
		if len(failed) > 0 {
			r.stats.RecordFallback()
		}
		r.recordOutcome(len(attempted), true)

		res.resp.Metadata.AttemptedBackends = attempted
		res.resp.Metadata.FailedBackends = failed
		return res.resp, nil
	}

	return nil, r.exhausted(req, attempted, errs)
}

// executeStream walks the plan until a stream starts. A started stream
// is committed: mid-stream failures terminate it rather than retrying a
// later candidate, because the consumer may already have observed
// partial output.
func (r *Router) executeStream(ctx context.Context, req *ir.ChatRequest, plan []*entry) (<-chan *ir.StreamChunk, error) {
	var (
		attempted []string
		failed    []string
		errs      []error
	)

	for _, e := range plan {
		attempted = append(attempted, e.name)

		if !e.breaker.Allow() {
			failed = append(failed, e.name)
			errs = append(errs, errCircuitOpen(e.name, e.breaker.RetryAfter()))
			r.logger.Debug("skipping backend with open circuit",
				"backend", e.name,
				"request_id", req.Metadata.RequestID,
			)
			continue
		}

		start := time.Now()
		ch, err := e.backend.ExecuteStream(ctx, req)
		if err != nil {
			r.noteFailure(e, err)
			failed = append(failed, e.name)
			errs = append(errs, classifyAttempt(e.name, err))
			r.logger.Warn("backend stream attempt failed",
				"backend", e.name,
				"request_id", req.Metadata.RequestID,
				"attempt", len(attempted),
				"error", err,
			)
			if ctx.Err() != nil {
				break
			}
			continue
		}

		if len(failed) > 0 {
			r.stats.RecordFallback()
		}
		r.recordOutcome(len(attempted), true)
		return r.relayStream(ctx, ch, e, start, attempted, failed), nil
	}

	return nil, r.exhausted(req, attempted, errs)
}

// relayStream forwards chunks downstream, stamping the fallback
// bookkeeping onto the start chunk and folding the terminal outcome
// into stats and the breaker.
func (r *Router) relayStream(ctx context.Context, in <-chan *ir.StreamChunk, e *entry, start time.Time, attempted, failed []string) <-chan *ir.StreamChunk {
	out := make(chan *ir.StreamChunk)
	go func() {
		defer close(out)
		for chunk := range in {
			switch chunk.Type {
			case ir.ChunkStart:
				if chunk.Metadata != nil {
					chunk.Metadata.AttemptedBackends = attempted
					chunk.Metadata.FailedBackends = failed
				}
			case ir.ChunkDone:
				r.noteSuccess(e, time.Since(start), chunk.Usage)
			case ir.ChunkError:
				var cause error
				if chunk.Err != nil {
					cause = chunk.Err
				}
				r.noteFailure(e, cause)
			}

			select {
			case out <- chunk:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// exhausted builds the error for a plan with no surviving attempt. A
// single attempt surfaces the backend's own classified error; multiple
// attempts aggregate into ALL_BACKENDS_FAILED.
func (r *Router) exhausted(req *ir.ChatRequest, attempted []string, errs []error) error {
	r.stats.RecordRoutingError()
	if len(attempted) > 1 {
		r.stats.RecordFallback()
	}
	r.recordOutcome(len(attempted), false)

	r.logger.Error("all backends failed",
		"request_id", req.Metadata.RequestID,
		"model", req.Model,
		"attempted", attempted,
	)

	if len(errs) == 1 {
		return errs[0]
	}
	return errAllFailed(req.Model, attempted, errs)
}

func (r *Router) recordOutcome(attempts int, succeeded bool) {
	if r.collector != nil {
		r.collector.RecordFallback(attempts, succeeded)
	}
}
