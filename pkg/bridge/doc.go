// Package bridge is the gateway's entry point: it wires one frontend to
// one executor through the middleware pipeline.
//
// A Bridge owns the composed request path. Chat and ChatStream parse the
// caller's raw request through the frontend, run the canonical request
// down the middleware chain into the executor, and encode the result back
// into the caller's shape. The executor is anything satisfying
// backends.Backend: a single adapter for direct dispatch, or a
// routing.Router for strategy selection, circuit breaking, and fallback.
// The bridge cannot tell the difference and holds no provider logic of
// its own.
//
// The middleware chain is folded once at construction; per request the
// bridge only walks the already-composed handlers. Bridges are safe for
// concurrent use and own no resources: the executor, middleware stores,
// and tracer are closed by whoever created them.
package bridge
