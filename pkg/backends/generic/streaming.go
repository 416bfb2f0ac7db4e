package generic

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/johnhenry/ai.matey-sub001/pkg/backends"
	"github.com/johnhenry/ai.matey-sub001/pkg/ir"
)

// doneSentinel is accepted as an SSE end-of-stream marker alongside the
// chunk-level terminal.
const doneSentinel = "[DONE]"

// ExecuteStream runs a request incrementally. Chunks are renumbered
// locally so consumers always observe sequences increasing from 0, with
// the locally-known metadata (and any remote warnings) on the start chunk.
func (c *Client) ExecuteStream(ctx context.Context, req *ir.ChatRequest) (<-chan *ir.StreamChunk, error) {
	normalized := backends.Normalize(req, c.caps, c.Name())
	normalized.Stream = true

	body, err := json.Marshal(normalized)
	if err != nil {
		return nil, ir.WrapError(ir.ErrCodeConversion, err, "encoding request").WithBackend(c.Name())
	}

	resp, err := c.http.DoStream(ctx, http.MethodPost, c.config.HTTP.BaseURL+streamPath, body, map[string]string{
		"Accept": "text/event-stream",
	})
	if err != nil {
		return nil, err
	}

	ch := make(chan *ir.StreamChunk)
	go c.readStream(ctx, backends.NewSSEReader(resp.Body), normalized, ch)
	return ch, nil
}

// readStream pumps remote SSE events into local chunks. It owns the
// response body and the channel: both are closed when it returns, and the
// channel always ends with exactly one terminal chunk.
func (c *Client) readStream(ctx context.Context, reader *backends.SSEReader, req *ir.ChatRequest, ch chan<- *ir.StreamChunk) {
	defer close(ch)
	defer reader.Close()

	seq := 0
	emit := func(chunk *ir.StreamChunk) bool {
		chunk.Sequence = seq
		seq++
		select {
		case ch <- chunk:
			return true
		case <-ctx.Done():
			return false
		}
	}

	md := req.Metadata.Clone()
	md.Backend = c.Name()
	md.AddProvenance(c.Name())

	// Hold the local start chunk until the first remote chunk arrives:
	// if the remote opens with its own start, its warnings fold into the
	// local metadata instead of being dropped.
	started := false
	start := func(remote *ir.Metadata) bool {
		if started {
			return true
		}
		started = true
		if remote != nil {
			md.AddWarnings(remote.Warnings)
		}
		return emit(ir.NewStartChunk(0, md))
	}

	fail := func(err *ir.Error) {
		if !started {
			if !start(nil) {
				return
			}
		}
		emit(ir.NewErrorChunk(0, err))
	}

	terminal := false
	for !terminal {
		event, err := reader.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			fail(backends.ErrorFromTransport(c.Name(), err))
			return
		}
		if event.Data == "" || event.Data == doneSentinel {
			continue
		}

		var remote ir.StreamChunk
		if err := json.Unmarshal([]byte(event.Data), &remote); err != nil {
			slog.Warn("malformed stream event",
				"backend", c.Name(),
				"error", err,
			)
			fail(ir.WrapError(ir.ErrCodeStream, err, "malformed stream event").WithBackend(c.Name()))
			return
		}

		switch remote.Type {
		case ir.ChunkStart:
			if !start(remote.Metadata) {
				return
			}
		case ir.ChunkContent, ir.ChunkToolUse, ir.ChunkMetadata:
			if !start(nil) {
				return
			}
			forward := remote
			if !emit(&forward) {
				return
			}
		case ir.ChunkDone:
			if !start(nil) {
				return
			}
			forward := remote
			if !emit(&forward) {
				return
			}
			terminal = true
		case ir.ChunkError:
			forward := remote
			if forward.Err == nil {
				forward.Err = ir.NewError(ir.ErrCodeStream, "remote stream aborted").WithBackend(c.Name())
			} else {
				forward.Err = forward.Err.WithBackend(c.Name())
			}
			if !start(nil) {
				return
			}
			if !emit(&forward) {
				return
			}
			terminal = true
		default:
			fail(ir.Errorf(ir.ErrCodeStream, "unknown stream chunk type %q", remote.Type).WithBackend(c.Name()))
			return
		}
	}

	if !terminal {
		// Remote closed without a terminal chunk.
		fail(ir.NewError(ir.ErrCodeStream, "stream ended without a terminal chunk").WithBackend(c.Name()))
	}
}
