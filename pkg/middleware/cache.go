package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/johnhenry/ai.matey-sub001/pkg/ir"
	"github.com/johnhenry/ai.matey-sub001/pkg/telemetry/metrics"
)

// CacheStore is the persistence contract for the caching middleware.
// Implementations must be safe for concurrent use.
type CacheStore interface {
	// Get returns the cached response for key, reporting whether a live
	// entry was found. Expired entries count as misses.
	Get(ctx context.Context, key string) (*ir.ChatResponse, bool, error)

	// Set stores a response under key for the given lifetime.
	Set(ctx context.Context, key string, resp *ir.ChatResponse, ttl time.Duration) error

	// Close releases the store's resources.
	Close() error
}

// CacheKey derives a deterministic key from the semantic content of a
// request: model, messages, tools, tool choice, and parameters.
// Metadata is excluded so per-request identity (request id, timestamp)
// does not defeat caching.
func CacheKey(req *ir.ChatRequest) (string, error) {
	payload := struct {
		Model      string         `json:"model,omitempty"`
		Messages   []ir.Message   `json:"messages"`
		Tools      []ir.Tool      `json:"tools,omitempty"`
		ToolChoice *ir.ToolChoice `json:"toolChoice,omitempty"`
		Parameters ir.Parameters  `json:"parameters"`
	}{req.Model, req.Messages, req.Tools, req.ToolChoice, req.Parameters}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// NewCachingMiddleware returns a middleware that serves repeated
// requests from a response cache. A hit is returned re-stamped with the
// current request id and marked in metadata extra under "cache"; a miss
// falls through and stores the successful response. Streams bypass the
// cache: replaying a stored response chunk by chunk would fabricate
// timing the client can observe. The collector is optional and records
// hit and miss counts when present.
func NewCachingMiddleware(store CacheStore, ttl time.Duration, logger *slog.Logger, collector *metrics.Collector) Middleware {
	return Middleware{
		Name: "cache",
		Chat: func(next Handler) Handler {
			return func(ctx context.Context, req *ir.ChatRequest) (*ir.ChatResponse, error) {
				key, err := CacheKey(req)
				if err != nil {
					logger.Warn("cache key derivation failed, bypassing cache", "error", err)
					return next(ctx, req)
				}

				cached, found, err := store.Get(ctx, key)
				if err != nil {
					logger.Warn("cache read failed, bypassing cache", "error", err)
				}
				if found {
					if collector != nil {
						collector.RecordCacheHit()
					}
					logger.Debug("cache hit",
						"request_id", req.Metadata.RequestID,
						"model", req.Model,
					)
					return cachedResponse(cached, req), nil
				}
				if collector != nil {
					collector.RecordCacheMiss()
				}

				resp, err := next(ctx, req)
				if err != nil {
					return nil, err
				}
				if resp.FinishReason != ir.FinishReasonError {
					if err := store.Set(ctx, key, resp, ttl); err != nil {
						logger.Warn("cache write failed", "error", err)
					} else if sized, ok := store.(interface{ Len() int }); ok && collector != nil {
						collector.UpdateCacheSize(sized.Len())
					}
				}
				return resp, nil
			}
		},
	}
}

// cachedResponse rebinds a stored response to the current request: the
// request id is replaced, the cache stage joins the provenance trail,
// and the hit is marked so downstream consumers can tell it apart from
// a live completion.
func cachedResponse(cached *ir.ChatResponse, req *ir.ChatRequest) *ir.ChatResponse {
	resp := cached.Clone()
	resp.Metadata.RequestID = req.Metadata.RequestID
	resp.Metadata.AddProvenance("cache")
	if resp.Metadata.Extra == nil {
		resp.Metadata.Extra = make(map[string]string, 1)
	}
	resp.Metadata.Extra["cache"] = "hit"
	return resp
}
