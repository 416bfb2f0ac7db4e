package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/johnhenry/ai.matey-sub001/pkg/ir"
)

// LogLevel controls how much detail the logging middleware emits per
// request.
type LogLevel int

const (
	// LogLevelMinimal logs only the model, duration, and token counts.
	LogLevelMinimal LogLevel = iota

	// LogLevelStandard adds the message count, backend, and finish reason.
	// This is the recommended default.
	LogLevelStandard

	// LogLevelVerbose adds the first message content and the response
	// content, each truncated to 500 characters.
	//
	// WARNING: verbose logging writes raw prompt and response text, which
	// may contain user data or secrets. Development use only.
	LogLevelVerbose
)

// truncateLen is the maximum content length in verbose log output.
const truncateLen = 500

// NewLoggingMiddleware creates a middleware that emits structured log
// entries for every request. Streaming calls log once the stream finishes,
// with the chunk count and any terminal error.
//
// The logger must not be nil; use slog.Default() if none is configured.
func NewLoggingMiddleware(logger *slog.Logger, level LogLevel) Middleware {
	return Middleware{
		Name:   "logging",
		Chat:   buildChatLogging(logger, level),
		Stream: buildStreamLogging(logger, level),
	}
}

func buildChatLogging(logger *slog.Logger, level LogLevel) ChatMiddleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, req *ir.ChatRequest) (*ir.ChatResponse, error) {
			logger.InfoContext(ctx, "chat request", requestAttrs(req, level)...)

			start := time.Now()
			resp, err := next(ctx, req)
			elapsed := time.Since(start)

			if err != nil {
				logger.ErrorContext(ctx, "chat request failed",
					slog.String("model", req.Model),
					slog.Duration("duration", elapsed),
					slog.String("code", string(ir.CodeOf(err))),
					slog.String("error", err.Error()),
				)
				return nil, err
			}

			logger.InfoContext(ctx, "chat request completed", responseAttrs(resp, elapsed, level)...)
			return resp, nil
		}
	}
}

func buildStreamLogging(logger *slog.Logger, level LogLevel) StreamMiddleware {
	return func(next StreamHandler) StreamHandler {
		return func(ctx context.Context, req *ir.ChatRequest) (<-chan *ir.StreamChunk, error) {
			logger.InfoContext(ctx, "stream request", requestAttrs(req, level)...)

			start := time.Now()
			stream, err := next(ctx, req)
			if err != nil {
				logger.ErrorContext(ctx, "stream request failed",
					slog.String("model", req.Model),
					slog.Duration("duration", time.Since(start)),
					slog.String("code", string(ir.CodeOf(err))),
					slog.String("error", err.Error()),
				)
				return nil, err
			}

			var chunks int
			var streamErr *ir.Error
			var usage *ir.Usage

			tapped := tapStream(ctx, stream,
				func(chunk *ir.StreamChunk) {
					chunks++
					if chunk.Type == ir.ChunkError {
						streamErr = chunk.Err
					}
					if chunk.Usage != nil {
						usage = chunk.Usage
					}
				},
				func() {
					elapsed := time.Since(start)
					if streamErr != nil {
						logger.ErrorContext(ctx, "stream failed",
							slog.String("model", req.Model),
							slog.Duration("duration", elapsed),
							slog.Int("chunks", chunks),
							slog.String("code", string(streamErr.Code)),
							slog.String("error", streamErr.Message),
						)
						return
					}
					attrs := []any{
						slog.String("model", req.Model),
						slog.Duration("duration", elapsed),
						slog.Int("chunks", chunks),
					}
					if usage != nil {
						attrs = append(attrs,
							slog.Int("prompt_tokens", usage.PromptTokens),
							slog.Int("completion_tokens", usage.CompletionTokens),
						)
					}
					logger.InfoContext(ctx, "stream completed", attrs...)
				},
			)
			return tapped, nil
		}
	}
}

// requestAttrs returns slog attributes for an incoming request, expanding
// detail with the verbosity level.
func requestAttrs(req *ir.ChatRequest, level LogLevel) []any {
	attrs := []any{
		slog.String("model", req.Model),
	}
	if req.Metadata.RequestID != "" {
		attrs = append(attrs, slog.String("request_id", req.Metadata.RequestID))
	}
	if level >= LogLevelStandard {
		attrs = append(attrs, slog.Int("message_count", len(req.Messages)))
		if len(req.Tools) > 0 {
			attrs = append(attrs, slog.Int("tool_count", len(req.Tools)))
		}
	}
	if level >= LogLevelVerbose && len(req.Messages) > 0 {
		first := req.Messages[0]
		attrs = append(attrs,
			slog.String("first_message_role", string(first.Role)),
			slog.String("first_message_content", truncate(first.Text(), truncateLen)),
		)
	}
	return attrs
}

// responseAttrs returns slog attributes for a completed response.
func responseAttrs(resp *ir.ChatResponse, elapsed time.Duration, level LogLevel) []any {
	attrs := []any{
		slog.Duration("duration", elapsed),
	}
	if resp.Metadata.Backend != "" {
		attrs = append(attrs, slog.String("backend", resp.Metadata.Backend))
	}
	if resp.Usage != nil {
		attrs = append(attrs,
			slog.Int("prompt_tokens", resp.Usage.PromptTokens),
			slog.Int("completion_tokens", resp.Usage.CompletionTokens),
			slog.Int("total_tokens", resp.Usage.TotalTokens),
		)
	}
	if level >= LogLevelStandard {
		attrs = append(attrs, slog.String("finish_reason", string(resp.FinishReason)))
		if len(resp.Metadata.Warnings) > 0 {
			attrs = append(attrs, slog.Int("warnings", len(resp.Metadata.Warnings)))
		}
	}
	if level >= LogLevelVerbose {
		attrs = append(attrs, slog.String("response_content", truncate(resp.Message.Text(), truncateLen)))
	}
	return attrs
}

// truncate shortens s to at most n runes, marking the cut.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
