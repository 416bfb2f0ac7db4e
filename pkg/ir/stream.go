package ir

import (
	"context"
	"encoding/json"
	"strings"
)

// StreamChunkType discriminates the variants of a StreamChunk.
type StreamChunkType string

// Stream chunk type constants
const (
	// ChunkStart opens a stream and carries the request metadata.
	ChunkStart StreamChunkType = "start"

	// ChunkContent carries an incremental text delta.
	ChunkContent StreamChunkType = "content"

	// ChunkToolUse carries an incremental tool invocation delta.
	ChunkToolUse StreamChunkType = "tool_use"

	// ChunkMetadata carries partial usage while the stream is open.
	ChunkMetadata StreamChunkType = "metadata"

	// ChunkDone terminates the stream successfully.
	ChunkDone StreamChunkType = "done"

	// ChunkError terminates the stream with a classified error.
	ChunkError StreamChunkType = "error"
)

// ToolUseDelta is an incremental piece of a tool invocation. ID and Name
// arrive on the first delta for a call; InputDelta fragments concatenate
// into the full JSON input.
type ToolUseDelta struct {
	// ID identifies the tool call the delta belongs to.
	ID string `json:"id,omitempty"`

	// Name is the tool being invoked (set on the first delta).
	Name string `json:"name,omitempty"`

	// InputDelta is a fragment of the JSON-encoded input.
	InputDelta string `json:"inputDelta,omitempty"`
}

// StreamChunk is one element of a response stream. It is a tagged union:
// Type selects which fields are meaningful. Sequence values within one
// stream are strictly increasing from 0, and exactly one terminal chunk
// (done or error) ends the stream; no chunk follows it.
type StreamChunk struct {
	// Type discriminates the chunk variant.
	Type StreamChunkType `json:"type"`

	// Sequence is the chunk's position, starting at 0.
	Sequence int `json:"sequence"`

	// Metadata is the request metadata on start chunks; metadata chunks
	// may use it to append warnings mid-stream.
	Metadata *Metadata `json:"metadata,omitempty"`

	// Role is the message role for content deltas, usually set on the
	// first content chunk only.
	Role Role `json:"role,omitempty"`

	// Delta is the incremental text content (Type == ChunkContent).
	Delta string `json:"delta,omitempty"`

	// ToolUse is the incremental tool call (Type == ChunkToolUse).
	ToolUse *ToolUseDelta `json:"toolUse,omitempty"`

	// Usage carries token counts: partial on metadata chunks, final on
	// the done chunk.
	Usage *Usage `json:"usage,omitempty"`

	// FinishReason is set on the done chunk.
	FinishReason FinishReason `json:"finishReason,omitempty"`

	// Err is the classified failure (Type == ChunkError).
	Err *Error `json:"error,omitempty"`
}

// Terminal reports whether the chunk ends its stream.
func (c *StreamChunk) Terminal() bool {
	return c.Type == ChunkDone || c.Type == ChunkError
}

// NewStartChunk returns a stream-opening chunk carrying metadata.
func NewStartChunk(seq int, md Metadata) *StreamChunk {
	return &StreamChunk{Type: ChunkStart, Sequence: seq, Metadata: &md}
}

// NewContentChunk returns a text delta chunk.
func NewContentChunk(seq int, delta string) *StreamChunk {
	return &StreamChunk{Type: ChunkContent, Sequence: seq, Delta: delta}
}

// NewToolUseChunk returns a tool invocation delta chunk.
func NewToolUseChunk(seq int, id, name, inputDelta string) *StreamChunk {
	return &StreamChunk{Type: ChunkToolUse, Sequence: seq, ToolUse: &ToolUseDelta{
		ID:         id,
		Name:       name,
		InputDelta: inputDelta,
	}}
}

// NewUsageChunk returns a partial-usage metadata chunk.
func NewUsageChunk(seq int, usage Usage) *StreamChunk {
	return &StreamChunk{Type: ChunkMetadata, Sequence: seq, Usage: &usage}
}

// NewDoneChunk returns the successful terminal chunk.
func NewDoneChunk(seq int, reason FinishReason, usage *Usage) *StreamChunk {
	return &StreamChunk{Type: ChunkDone, Sequence: seq, FinishReason: reason, Usage: usage}
}

// NewErrorChunk returns the failing terminal chunk.
func NewErrorChunk(seq int, err *Error) *StreamChunk {
	return &StreamChunk{Type: ChunkError, Sequence: seq, Err: err}
}

// CollectStream drains a chunk stream into a complete response. It
// enforces the stream invariants: sequences strictly increasing from 0
// and exactly one terminal chunk. An error chunk aborts collection and
// returns its classified error.
func CollectStream(ctx context.Context, ch <-chan *StreamChunk) (*ChatResponse, error) {
	var (
		text     strings.Builder
		toolIDs  []string
		tools    = map[string]*toolAccumulator{}
		metadata Metadata
		usage    *Usage
		partial  Usage
		sawUsage bool
		reason   FinishReason
		done     bool
		wantSeq  int
	)
	for {
		var (
			chunk *StreamChunk
			ok    bool
		)
		select {
		case <-ctx.Done():
			return nil, WrapError(ErrCodeTimeout, ctx.Err(), "stream collection cancelled")
		case chunk, ok = <-ch:
		}
		if !ok {
			if !done {
				return nil, NewError(ErrCodeStream, "stream ended without a terminal chunk")
			}
			break
		}
		if done {
			return nil, Errorf(ErrCodeStream, "chunk %d received after terminal chunk", chunk.Sequence)
		}
		if chunk.Sequence != wantSeq {
			return nil, Errorf(ErrCodeStream, "chunk sequence %d out of order (want %d)", chunk.Sequence, wantSeq)
		}
		wantSeq++

		switch chunk.Type {
		case ChunkStart:
			if chunk.Metadata != nil {
				metadata = chunk.Metadata.Clone()
			}
		case ChunkContent:
			text.WriteString(chunk.Delta)
		case ChunkToolUse:
			if chunk.ToolUse == nil {
				continue
			}
			acc, exists := tools[chunk.ToolUse.ID]
			if !exists {
				acc = &toolAccumulator{id: chunk.ToolUse.ID}
				tools[chunk.ToolUse.ID] = acc
				toolIDs = append(toolIDs, chunk.ToolUse.ID)
			}
			if chunk.ToolUse.Name != "" {
				acc.name = chunk.ToolUse.Name
			}
			acc.input.WriteString(chunk.ToolUse.InputDelta)
		case ChunkMetadata:
			if chunk.Usage != nil {
				partial.Add(*chunk.Usage)
				sawUsage = true
			}
			if chunk.Metadata != nil {
				metadata.AddWarnings(chunk.Metadata.Warnings)
			}
		case ChunkDone:
			reason = chunk.FinishReason
			if chunk.Usage != nil {
				u := *chunk.Usage
				usage = &u
			}
			done = true
		case ChunkError:
			if chunk.Err != nil {
				return nil, chunk.Err
			}
			return nil, NewError(ErrCodeStream, "stream aborted without error detail")
		default:
			return nil, Errorf(ErrCodeStream, "unknown stream chunk type %q", chunk.Type)
		}
	}

	var content []ContentBlock
	if text.Len() > 0 {
		content = append(content, TextContent(text.String()))
	}
	for _, id := range toolIDs {
		acc := tools[id]
		content = append(content, ToolUseContent(acc.id, acc.name, json.RawMessage(acc.input.String())))
	}
	if len(content) == 0 {
		content = append(content, TextContent(""))
	}
	if usage == nil && sawUsage {
		u := partial
		usage = &u
	}
	if reason == "" {
		reason = FinishReasonStop
	}
	return &ChatResponse{
		Message:      Message{Role: RoleAssistant, Content: content},
		FinishReason: reason,
		Usage:        usage,
		Metadata:     metadata,
	}, nil
}

type toolAccumulator struct {
	id    string
	name  string
	input strings.Builder
}
