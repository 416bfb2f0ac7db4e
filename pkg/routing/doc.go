// Package routing dispatches IR chat requests across registered backends.
//
// The Router keeps an ordered registry of backends, each guarded by its
// own circuit breaker, and picks candidates with a pluggable selection
// strategy (see pkg/routing/strategies). When fallback is enabled a
// failed attempt moves on to the next candidate, sequentially or in
// parallel, and the response metadata records every backend tried.
//
// A Router is itself a backends.Backend, so a bridge or a middleware
// chain can sit in front of one backend or a whole fleet without
// knowing the difference.
package routing
