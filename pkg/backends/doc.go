// Package backends defines the backend adapter contract and the shared
// machinery concrete provider adapters build on.
//
// A Backend executes canonical requests against one concrete provider. The
// package supplies everything a provider plug-in needs beyond its wire
// format: capability declaration (Capabilities), request normalization
// against those capabilities (Normalize), a pooled HTTP client that
// classifies transport failures (HTTPClient), an SSE stream reader
// (SSEReader), and tool-argument repair for providers that emit malformed
// JSON (RepairToolInput).
//
// # Contract
//
// Execute and ExecuteStream receive a canonical request and a context;
// cancelling the context aborts the underlying network call. Streams are
// delivered over a channel the backend closes after exactly one terminal
// chunk. Backends never retry internally: retrying is the job of the retry
// middleware and the router's fallback chain, and an adapter that retried
// on its own would multiply those layers' attempts.
//
// # Normalization
//
// Normalize maps canonical parameters into the ranges a backend declares,
// applies the backend's system-message strategy, and estimates context
// usage. Every change it makes to observable semantics is recorded as a
// warning on the returned copy; the input request is never mutated.
package backends
