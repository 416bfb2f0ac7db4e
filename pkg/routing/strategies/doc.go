// Package strategies implements the selection strategies the router
// ranks candidates with: explicit, model-based, cost-optimized,
// latency-optimized, round-robin, random, and caller-supplied custom
// functions.
//
// Every strategy uses a stable sort, so candidates that score equally
// keep their backend registration order.
package strategies
