package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/johnhenry/ai.matey-sub001/pkg/ir"
)

// Custom attribute keys use the "matey.*" namespace; standard keys follow
// OpenTelemetry semantic conventions.
const (
	AttrBackend   = "matey.backend"
	AttrModel     = "matey.model"
	AttrRequestID = "matey.request_id"
	AttrStrategy  = "matey.strategy"

	AttrTokensPrompt     = "matey.tokens.prompt"
	AttrTokensCompletion = "matey.tokens.completion"
	AttrTokensTotal      = "matey.tokens.total"

	AttrWarningCount = "matey.warning_count"
	AttrCacheHit     = "matey.cache.hit"
	AttrErrorCode    = "matey.error.code"
	AttrRetryable    = "matey.error.retryable"
	AttrAttempted    = "matey.fallback.attempted"
)

// SetRequestAttributes records the routed request's identity on a span.
func SetRequestAttributes(span trace.Span, backend, model, requestID string) {
	span.SetAttributes(
		attribute.String(AttrBackend, backend),
		attribute.String(AttrModel, model),
		attribute.String(AttrRequestID, requestID),
	)
}

// SetUsageAttributes records token usage on a span.
func SetUsageAttributes(span trace.Span, usage *ir.Usage) {
	if usage == nil {
		return
	}
	span.SetAttributes(
		attribute.Int(AttrTokensPrompt, usage.PromptTokens),
		attribute.Int(AttrTokensCompletion, usage.CompletionTokens),
		attribute.Int(AttrTokensTotal, usage.TotalTokens),
	)
}

// SetErrorAttributes records a classified failure on a span.
func SetErrorAttributes(span trace.Span, err *ir.Error) {
	if err == nil {
		return
	}
	span.SetAttributes(
		attribute.String(AttrErrorCode, string(err.Code)),
		attribute.Bool(AttrRetryable, err.Retryable),
	)
	if len(err.Attempted) > 0 {
		span.SetAttributes(attribute.StringSlice(AttrAttempted, err.Attempted))
	}
}
