package middleware

import (
	"context"

	"github.com/johnhenry/ai.matey-sub001/pkg/ir"
)

// Handler is the continuation a chat middleware wraps: the downstream
// pipeline that ultimately produces a response.
type Handler func(ctx context.Context, req *ir.ChatRequest) (*ir.ChatResponse, error)

// StreamHandler is the streaming counterpart. The returned channel follows
// the stream contract: sequenced chunks, exactly one terminal, then close.
type StreamHandler func(ctx context.Context, req *ir.ChatRequest) (<-chan *ir.StreamChunk, error)

// ChatMiddleware receives the next Handler in the chain and returns a new
// Handler that wraps it.
type ChatMiddleware func(next Handler) Handler

// StreamMiddleware is the streaming counterpart of ChatMiddleware.
type StreamMiddleware func(next StreamHandler) StreamHandler

// Middleware pairs a chat wrapper with its optional streaming counterpart.
// A nil Stream means streaming calls bypass this entry entirely.
type Middleware struct {
	// Name identifies the layer in logs and error messages.
	Name string

	// Chat wraps synchronous completions. Required.
	Chat ChatMiddleware

	// Stream wraps streaming completions. Optional.
	Stream StreamMiddleware
}

// BuildChatChain folds the middlewares over the base handler. Middlewares
// are applied in reverse so that the first entry in the slice becomes the
// outermost wrapper, i.e. the first to execute on an incoming request.
func BuildChatChain(base Handler, middlewares []Middleware) Handler {
	chain := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		if middlewares[i].Chat != nil {
			chain = middlewares[i].Chat(chain)
		}
	}
	return chain
}

// BuildStreamChain folds the stream middlewares over the base handler.
// Entries with a nil Stream field are skipped.
func BuildStreamChain(base StreamHandler, middlewares []Middleware) StreamHandler {
	chain := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		if middlewares[i].Stream != nil {
			chain = middlewares[i].Stream(chain)
		}
	}
	return chain
}

// tapStream relays chunks from in to the returned channel, invoking onChunk
// for each and onEnd once when in closes or the context ends. It lets a
// middleware observe a stream without disturbing its sequence.
func tapStream(ctx context.Context, in <-chan *ir.StreamChunk, onChunk func(*ir.StreamChunk), onEnd func()) <-chan *ir.StreamChunk {
	out := make(chan *ir.StreamChunk)
	go func() {
		defer close(out)
		defer onEnd()
		for chunk := range in {
			if onChunk != nil {
				onChunk(chunk)
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
