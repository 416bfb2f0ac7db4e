package middleware

import (
	"context"
	"time"

	"github.com/johnhenry/ai.matey-sub001/pkg/config"
	"github.com/johnhenry/ai.matey-sub001/pkg/ir"
	"github.com/johnhenry/ai.matey-sub001/pkg/usage"
)

// NewUsageMiddleware returns a middleware that writes one ledger record
// per request through the async recorder. Rates price token usage by
// backend name; backends missing from the map record zero cost. For
// streams the record is written when the stream ends, with latency
// measured to the terminal chunk.
func NewUsageMiddleware(recorder *usage.Recorder, rates map[string]config.CostConfig) Middleware {
	price := func(rec *usage.Record) {
		rec.Cost = usage.CostOf(rates[rec.Backend], &ir.Usage{
			PromptTokens:     rec.PromptTokens,
			CompletionTokens: rec.CompletionTokens,
		})
	}

	return Middleware{
		Name: "usage",
		Chat: func(next Handler) Handler {
			return func(ctx context.Context, req *ir.ChatRequest) (*ir.ChatResponse, error) {
				start := time.Now()
				resp, err := next(ctx, req)
				rec := usage.BuildRecord(req, resp, err, time.Since(start))
				price(rec)
				recorder.Record(rec)
				return resp, err
			}
		},
		Stream: func(next StreamHandler) StreamHandler {
			return func(ctx context.Context, req *ir.ChatRequest) (<-chan *ir.StreamChunk, error) {
				start := time.Now()
				ch, err := next(ctx, req)
				if err != nil {
					rec := usage.BuildRecord(req, nil, err, time.Since(start))
					price(rec)
					recorder.Record(rec)
					return nil, err
				}

				// Aggregate a response-shaped view of the stream so the
				// record builder sees the same inputs as the chat path.
				resp := &ir.ChatResponse{}
				var streamErr *ir.Error
				return tapStream(ctx, ch, func(chunk *ir.StreamChunk) {
					if chunk.Metadata != nil {
						if chunk.Metadata.Backend != "" {
							resp.Metadata.Backend = chunk.Metadata.Backend
						}
						if len(chunk.Metadata.AttemptedBackends) > 0 {
							resp.Metadata.AttemptedBackends = chunk.Metadata.AttemptedBackends
						}
						resp.Metadata.Warnings = append(resp.Metadata.Warnings, chunk.Metadata.Warnings...)
					}
					if chunk.Usage != nil {
						resp.Usage = chunk.Usage
					}
					if chunk.FinishReason != "" {
						resp.FinishReason = chunk.FinishReason
					}
					if chunk.Type == ir.ChunkError {
						streamErr = chunk.Err
					}
				}, func() {
					var failure error
					if streamErr != nil {
						failure = streamErr
					}
					rec := usage.BuildRecord(req, resp, failure, time.Since(start))
					price(rec)
					recorder.Record(rec)
				}), nil
			}
		},
	}
}
