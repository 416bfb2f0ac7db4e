package frontends

import (
	"context"
	"encoding/json"

	"github.com/johnhenry/ai.matey-sub001/pkg/ir"
)

// StreamFrame is one caller-shaped frame of a response stream. Data holds
// the encoded frame; Err is set instead when the frontend cannot express a
// chunk in the caller's wire format. A frame with Err set is the last
// frame before the channel closes.
type StreamFrame struct {
	// Data is the caller-shaped encoding of one stream chunk.
	Data json.RawMessage `json:"data,omitempty"`

	// Err is the conversion failure that ended the stream.
	Err error `json:"-"`
}

// Frontend converts between one caller wire format and the canonical IR.
// Implementations must be stateless and safe for concurrent use: the
// bridge reuses a single instance across every in-flight request.
type Frontend interface {
	// Name returns the frontend identifier used in provenance trails.
	Name() string

	// ToIR parses a raw caller request into a canonical request. The
	// returned request is freshly allocated and carries a request id and
	// timestamp. Malformed or invalid input fails with an
	// ir.ErrCodeValidation error; ToIR performs no I/O.
	ToIR(data json.RawMessage) (*ir.ChatRequest, error)

	// FromIR encodes a canonical response into the caller's shape.
	// Encoding failures are ir.ErrCodeConversion errors.
	FromIR(resp *ir.ChatResponse) (json.RawMessage, error)

	// FromIRStream lazily encodes a chunk stream into caller-shaped
	// frames. Each chunk is encoded as it arrives and delivered exactly
	// once; consumption is forward-only and not restartable. The returned
	// channel closes when chunks is exhausted or ctx is cancelled.
	// Cancelling ctx is how a caller abandons a stream: the relay stops
	// pulling, and upstream producers selecting on the same ctx unwind.
	FromIRStream(ctx context.Context, chunks <-chan *ir.StreamChunk) <-chan StreamFrame
}
