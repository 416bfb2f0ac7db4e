// Package usage implements the gateway's usage ledger: one record per
// completed request capturing which adapters handled it, token counts,
// cost, latency, and outcome.
//
// Records are written through an async Recorder that never blocks the
// request path; when its buffer is full records are dropped and counted
// rather than queued. Persistence is behind the Store interface, with
// in-memory and SQLite implementations in the storage subpackage and
// scheduled pruning in the retention subpackage.
package usage
