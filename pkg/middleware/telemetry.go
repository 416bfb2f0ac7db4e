package middleware

import (
	"context"
	"time"

	"github.com/johnhenry/ai.matey-sub001/pkg/ir"
	"github.com/johnhenry/ai.matey-sub001/pkg/telemetry/metrics"
)

// NewTelemetryMiddleware returns a middleware that records request
// metrics: durations, token usage, warning counts, and stream chunk
// counts. Failures are recorded under their classified error code so
// dashboards can split traffic by outcome.
func NewTelemetryMiddleware(collector *metrics.Collector) Middleware {
	return Middleware{
		Name: "telemetry",
		Chat: func(next Handler) Handler {
			return func(ctx context.Context, req *ir.ChatRequest) (*ir.ChatResponse, error) {
				start := time.Now()
				resp, err := next(ctx, req)
				duration := time.Since(start)
				if err != nil {
					backend, code := errorLabels(err)
					collector.RecordRequest(backend, req.Model, string(code), duration, nil)
					if backend != "" {
						collector.RecordBackendError(backend, code)
					}
					return nil, err
				}
				collector.RecordRequest(resp.Metadata.Backend, req.Model, "success", duration, resp.Usage)
				collector.RecordWarnings(resp.Metadata.Backend, resp.Metadata.Warnings)
				return resp, nil
			}
		},
		Stream: func(next StreamHandler) StreamHandler {
			return func(ctx context.Context, req *ir.ChatRequest) (<-chan *ir.StreamChunk, error) {
				start := time.Now()
				ch, err := next(ctx, req)
				if err != nil {
					backend, code := errorLabels(err)
					collector.RecordRequest(backend, req.Model, string(code), time.Since(start), nil)
					if backend != "" {
						collector.RecordBackendError(backend, code)
					}
					return nil, err
				}

				var (
					backend   string
					chunks    int
					usage     *ir.Usage
					warnings  []ir.Warning
					streamErr *ir.Error
				)
				return tapStream(ctx, ch, func(chunk *ir.StreamChunk) {
					chunks++
					if chunk.Metadata != nil {
						if chunk.Metadata.Backend != "" {
							backend = chunk.Metadata.Backend
						}
						warnings = append(warnings, chunk.Metadata.Warnings...)
					}
					if chunk.Usage != nil {
						usage = chunk.Usage
					}
					if chunk.Type == ir.ChunkError {
						streamErr = chunk.Err
					}
				}, func() {
					duration := time.Since(start)
					status := "success"
					if streamErr != nil {
						status = string(streamErr.Code)
						if b := streamErr.Backend; b != "" {
							backend = b
						}
						if backend != "" {
							collector.RecordBackendError(backend, streamErr.Code)
						}
					}
					collector.RecordRequest(backend, req.Model, status, duration, usage)
					collector.RecordStreamChunks(backend, req.Model, chunks)
					collector.RecordWarnings(backend, warnings)
				}), nil
			}
		},
	}
}

// errorLabels extracts the metric labels from a classified error.
func errorLabels(err error) (backend string, code ir.ErrorCode) {
	code = ir.CodeOf(err)
	if e := ir.AsError(err); e != nil {
		backend = e.Backend
	}
	return backend, code
}
