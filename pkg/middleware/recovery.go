package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/johnhenry/ai.matey-sub001/pkg/ir"
)

// NewRecoveryMiddleware returns a middleware that converts panics in
// downstream handlers into INTERNAL_ERROR failures instead of crashing
// the process. It guards the synchronous call path of both unary and
// streaming requests; goroutines spawned by a handler must recover on
// their own.
func NewRecoveryMiddleware(logger *slog.Logger) Middleware {
	return Middleware{
		Name: "recovery",
		Chat: func(next Handler) Handler {
			return func(ctx context.Context, req *ir.ChatRequest) (resp *ir.ChatResponse, err error) {
				defer func() {
					if r := recover(); r != nil {
						resp = nil
						err = recoveredError(logger, req, r)
					}
				}()
				return next(ctx, req)
			}
		},
		Stream: func(next StreamHandler) StreamHandler {
			return func(ctx context.Context, req *ir.ChatRequest) (ch <-chan *ir.StreamChunk, err error) {
				defer func() {
					if r := recover(); r != nil {
						ch = nil
						err = recoveredError(logger, req, r)
					}
				}()
				return next(ctx, req)
			}
		},
	}
}

func recoveredError(logger *slog.Logger, req *ir.ChatRequest, recovered any) *ir.Error {
	logger.Error("panic recovered",
		"panic", fmt.Sprint(recovered),
		"request_id", req.Metadata.RequestID,
		"model", req.Model,
		"stack", string(debug.Stack()),
	)
	return ir.NewError(ir.ErrCodeInternal, fmt.Sprintf("panic: %v", recovered))
}
