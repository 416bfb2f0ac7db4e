// Package middleware implements the gateway's request interception chain.
//
// A Middleware wraps the chat continuation (and optionally the streaming
// continuation) with cross-cutting behavior: logging, caching, retries,
// rate limiting, metrics, content transforms, and panic recovery. Each
// layer receives the next continuation and must either call it exactly once
// or short-circuit with its own response or error.
//
// # Composition
//
// Chains are folded once at build time, not per request. Middlewares apply
// outermost-first: the first entry in the slice is the first to see a
// request and the last to see its response.
//
//	handler := middleware.BuildChatChain(execute, []middleware.Middleware{
//		middleware.NewRecoveryMiddleware(logger),
//		middleware.NewLoggingMiddleware(logger, middleware.LogLevelStandard),
//		middleware.NewRetryMiddleware(middleware.RetryConfig{}),
//	})
//
// # Streaming
//
// A Middleware with a nil Stream field is skipped on streaming calls; the
// stream chain falls through to the next entry. Layers that cannot act
// transparently mid-stream (retry, cache) leave Stream nil rather than
// offering a weaker imitation.
package middleware
