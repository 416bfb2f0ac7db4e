// Package ir defines the provider-agnostic intermediate representation (IR)
// shared by every component of the gateway.
//
// The IR is the canonical vocabulary for chat requests, responses, stream
// chunks, warnings, and classified errors. Frontend adapters translate a
// caller's wire format into IR, backend adapters translate IR into a concrete
// provider's wire format, and everything in between (middleware, routing,
// bridging) speaks IR only.
//
// # Value Semantics
//
// IR values are created fresh per request and treated as immutable once they
// enter the pipeline. Components that need to change a request (parameter
// clamping, message merging, content rewriting) operate on a copy obtained
// via Clone and record what changed as warnings. No IR value is shared for
// mutation across concurrent requests.
//
// # Content Blocks
//
// Message content is an ordered sequence of tagged content blocks (text,
// image, tool_use, tool_result). The tag determines which payload field is
// populated; consumption sites switch exhaustively on the tag. On the wire a
// block is a flat JSON object discriminated by its "type" field, and plain
// string content is accepted as shorthand for a single text block.
//
// # Warnings
//
// Any transformation that changes observable semantics (a clamped parameter,
// merged system messages, a dropped unsupported feature) must append at least
// one Warning to the metadata it travels with. Warnings accumulate across the
// pipeline and are never silently discarded.
//
// # Errors
//
// All failures surface as *Error values carrying a stable machine-readable
// code, a retryability flag, and backend provenance. Use errors.As or the
// CodeOf/IsRetryable helpers to classify an error anywhere in the chain.
package ir
