package bridge

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/johnhenry/ai.matey-sub001/pkg/backends"
	"github.com/johnhenry/ai.matey-sub001/pkg/frontends"
	"github.com/johnhenry/ai.matey-sub001/pkg/ir"
	"github.com/johnhenry/ai.matey-sub001/pkg/middleware"
	"github.com/johnhenry/ai.matey-sub001/pkg/telemetry/tracing"
)

// Bridge threads caller requests through frontend translation, the
// middleware chain, and an executor. See the package documentation for
// the composition rules.
type Bridge struct {
	frontend    frontends.Frontend
	executor    backends.Backend
	middlewares []middleware.Middleware
	chat        middleware.Handler
	stream      middleware.StreamHandler
	logger      *slog.Logger
	tracer      *tracing.Tracer
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithMiddleware appends layers to the pipeline. The first layer given is
// outermost: first to see the request, last to see the response. Calls
// accumulate, so a config-assembled Stack and ad-hoc layers can be mixed.
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(b *Bridge) {
		b.middlewares = append(b.middlewares, mws...)
	}
}

// WithLogger sets the bridge's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithTracer installs a tracer. The bridge opens one span per request and
// one around executor execution; without this option spans are no-ops.
func WithTracer(t *tracing.Tracer) Option {
	return func(b *Bridge) {
		if t != nil {
			b.tracer = t
		}
	}
}

// New creates a bridge from a frontend and an executor. The executor may
// be a concrete backend adapter or a routing.Router; both satisfy the
// same execution contract and the bridge treats them identically. The
// middleware chain is folded here, once.
func New(frontend frontends.Frontend, executor backends.Backend, opts ...Option) (*Bridge, error) {
	if frontend == nil {
		return nil, ir.NewError(ir.ErrCodeValidation, "bridge requires a frontend")
	}
	if executor == nil {
		return nil, ir.NewError(ir.ErrCodeValidation, "bridge requires an executor")
	}
	b := &Bridge{
		frontend: frontend,
		executor: executor,
		logger:   slog.Default().With("component", "bridge"),
		tracer:   tracing.Noop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.chat = middleware.BuildChatChain(b.executeChat, b.middlewares)
	b.stream = middleware.BuildStreamChain(b.executeStream, b.middlewares)
	return b, nil
}

// Chat runs one complete request: parse, pipeline, encode. The error is
// always a classified *ir.Error in its chain; a bare error escaping a
// custom middleware is wrapped as INTERNAL_ERROR.
func (b *Bridge) Chat(ctx context.Context, raw json.RawMessage) (json.RawMessage, error) {
	ctx, span := b.tracer.Start(ctx, "gateway.chat")
	defer span.End()

	req, err := b.frontend.ToIR(raw)
	if err != nil {
		b.logger.WarnContext(ctx, "request rejected",
			slog.String("frontend", b.frontend.Name()),
			slog.String("error", err.Error()),
		)
		tracing.SetStatus(span, err)
		return nil, err
	}
	req.Stream = false
	tracing.SetRequestAttributes(span, "", req.Model, req.Metadata.RequestID)

	start := time.Now()
	resp, err := b.chat(ctx, req)
	if err != nil {
		err = ir.WrapError(ir.ErrCodeInternal, err, "pipeline failed")
		b.logger.ErrorContext(ctx, "chat failed",
			slog.String("request_id", req.Metadata.RequestID),
			slog.String("code", string(ir.CodeOf(err))),
			slog.Duration("duration", time.Since(start)),
			slog.String("error", err.Error()),
		)
		tracing.SetErrorAttributes(span, ir.AsError(err))
		tracing.SetStatus(span, err)
		return nil, err
	}
	tracing.SetRequestAttributes(span, resp.Metadata.Backend, req.Model, req.Metadata.RequestID)
	tracing.SetUsageAttributes(span, resp.Usage)
	tracing.SetStatus(span, nil)

	out, err := b.frontend.FromIR(resp)
	if err != nil {
		b.logger.ErrorContext(ctx, "response encoding failed",
			slog.String("request_id", req.Metadata.RequestID),
			slog.String("error", err.Error()),
		)
		tracing.SetStatus(span, err)
		return nil, err
	}
	return out, nil
}

// ChatStream runs one streaming request and returns caller-shaped frames.
// The channel closes when the stream ends or ctx is cancelled; abandoning
// the stream without cancelling leaks the producer, so callers cancel.
// The request span here covers admission through stream start; the
// execution span stays open until the terminal chunk.
func (b *Bridge) ChatStream(ctx context.Context, raw json.RawMessage) (<-chan frontends.StreamFrame, error) {
	ctx, span := b.tracer.Start(ctx, "gateway.chat_stream")
	defer span.End()

	req, err := b.frontend.ToIR(raw)
	if err != nil {
		b.logger.WarnContext(ctx, "request rejected",
			slog.String("frontend", b.frontend.Name()),
			slog.String("error", err.Error()),
		)
		tracing.SetStatus(span, err)
		return nil, err
	}
	req.Stream = true
	tracing.SetRequestAttributes(span, "", req.Model, req.Metadata.RequestID)

	chunks, err := b.stream(ctx, req)
	if err != nil {
		err = ir.WrapError(ir.ErrCodeInternal, err, "pipeline failed")
		b.logger.ErrorContext(ctx, "stream failed to start",
			slog.String("request_id", req.Metadata.RequestID),
			slog.String("code", string(ir.CodeOf(err))),
			slog.String("error", err.Error()),
		)
		tracing.SetErrorAttributes(span, ir.AsError(err))
		tracing.SetStatus(span, err)
		return nil, err
	}
	tracing.SetStatus(span, nil)
	return b.frontend.FromIRStream(ctx, chunks), nil
}

// Executor returns the backend or router the bridge dispatches to.
func (b *Bridge) Executor() backends.Backend {
	return b.executor
}

// executeChat is the innermost handler: past every middleware, into the
// executor.
func (b *Bridge) executeChat(ctx context.Context, req *ir.ChatRequest) (*ir.ChatResponse, error) {
	ctx, span := b.tracer.Start(ctx, "backend.execute")
	defer span.End()

	resp, err := b.executor.Execute(ctx, req)
	if err != nil {
		err = ir.WrapError(ir.ErrCodeInternal, err, "execution failed")
		tracing.SetErrorAttributes(span, ir.AsError(err))
		tracing.SetStatus(span, err)
		return nil, err
	}
	tracing.SetRequestAttributes(span, resp.Metadata.Backend, req.Model, req.Metadata.RequestID)
	tracing.SetUsageAttributes(span, resp.Usage)
	tracing.SetStatus(span, nil)
	return resp, nil
}

// executeStream is the innermost stream handler. Its span ends with the
// stream, not with the call: the relay watches for the terminal chunk.
func (b *Bridge) executeStream(ctx context.Context, req *ir.ChatRequest) (<-chan *ir.StreamChunk, error) {
	ctx, span := b.tracer.Start(ctx, "backend.execute_stream")

	chunks, err := b.executor.ExecuteStream(ctx, req)
	if err != nil {
		err = ir.WrapError(ir.ErrCodeInternal, err, "stream start failed")
		tracing.SetErrorAttributes(span, ir.AsError(err))
		tracing.SetStatus(span, err)
		span.End()
		return nil, err
	}
	return b.observeStream(ctx, chunks, span, req.Model), nil
}

// observeStream relays chunks unchanged while recording span attributes
// from the start and terminal chunks, ending the span when the stream
// does.
func (b *Bridge) observeStream(ctx context.Context, in <-chan *ir.StreamChunk, span trace.Span, model string) <-chan *ir.StreamChunk {
	out := make(chan *ir.StreamChunk)
	go func() {
		defer close(out)
		defer span.End()
		for chunk := range in {
			switch chunk.Type {
			case ir.ChunkStart:
				if chunk.Metadata != nil {
					tracing.SetRequestAttributes(span, chunk.Metadata.Backend, model, chunk.Metadata.RequestID)
				}
			case ir.ChunkDone:
				tracing.SetUsageAttributes(span, chunk.Usage)
				tracing.SetStatus(span, nil)
			case ir.ChunkError:
				tracing.SetErrorAttributes(span, chunk.Err)
				if chunk.Err != nil {
					tracing.SetStatus(span, chunk.Err)
				}
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
