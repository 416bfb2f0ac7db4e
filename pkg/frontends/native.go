package frontends

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/johnhenry/ai.matey-sub001/pkg/ir"
)

// Native speaks the canonical JSON wire format directly: callers submit
// ir.ChatRequest JSON and receive ir.ChatResponse and ir.StreamChunk JSON
// back. It is the reference frontend and the lossless path through the
// gateway; nothing it does can drop a field or earn a warning.
type Native struct{}

// NewNative returns the native frontend.
func NewNative() *Native {
	return &Native{}
}

// Name implements Frontend.
func (f *Native) Name() string {
	return "native"
}

// ToIR parses and validates a canonical request. Caller-supplied metadata
// survives; a missing request id or timestamp is stamped so every request
// entering the pipeline is correlatable.
func (f *Native) ToIR(data json.RawMessage) (*ir.ChatRequest, error) {
	if len(data) == 0 {
		return nil, ir.NewError(ir.ErrCodeValidation, "empty request body")
	}
	var req ir.ChatRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, ir.WrapError(ir.ErrCodeValidation, err, "malformed request body")
	}
	if err := req.Validate(); err != nil {
		return nil, ir.WrapError(ir.ErrCodeValidation, err, "invalid request")
	}
	if req.Metadata.RequestID == "" {
		req.Metadata.RequestID = uuid.New().String()
	}
	if req.Metadata.Timestamp.IsZero() {
		req.Metadata.Timestamp = time.Now().UTC()
	}
	req.Metadata.AddProvenance(f.Name())
	return &req, nil
}

// FromIR encodes a canonical response.
func (f *Native) FromIR(resp *ir.ChatResponse) (json.RawMessage, error) {
	if resp == nil {
		return nil, ir.NewError(ir.ErrCodeConversion, "nil response")
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return nil, ir.WrapError(ir.ErrCodeConversion, err, "encoding response")
	}
	return data, nil
}

// FromIRStream encodes chunks one at a time as the caller pulls frames.
// The relay buffers nothing: a slow consumer holds back the producer, and
// cancelling ctx stops the relay mid-stream.
func (f *Native) FromIRStream(ctx context.Context, chunks <-chan *ir.StreamChunk) <-chan StreamFrame {
	out := make(chan StreamFrame)
	go func() {
		defer close(out)
		for {
			var chunk *ir.StreamChunk
			var ok bool
			select {
			case <-ctx.Done():
				return
			case chunk, ok = <-chunks:
				if !ok {
					return
				}
			}
			frame := encodeChunk(chunk)
			select {
			case <-ctx.Done():
				return
			case out <- frame:
			}
			if frame.Err != nil {
				return
			}
		}
	}()
	return out
}

func encodeChunk(chunk *ir.StreamChunk) StreamFrame {
	data, err := json.Marshal(chunk)
	if err != nil {
		return StreamFrame{Err: ir.WrapError(ir.ErrCodeConversion, err, "encoding stream chunk")}
	}
	return StreamFrame{Data: data}
}
