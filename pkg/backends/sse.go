package backends

import (
	"bufio"
	"context"
	"io"
	"strings"
)

// SSEEvent is one parsed server-sent event.
type SSEEvent struct {
	// Type is the event name, empty for bare data events.
	Type string

	// Data is the event payload, multi-line data joined with newlines.
	Data string
}

// SSEReader incrementally parses a server-sent-event response body.
// It is single-consumer and forward-only.
type SSEReader struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	closed  bool
}

// NewSSEReader wraps a streaming response body.
func NewSSEReader(body io.ReadCloser) *SSEReader {
	scanner := bufio.NewScanner(body)
	// Large content deltas can exceed the default 64K line limit.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &SSEReader{body: body, scanner: scanner}
}

// Next returns the next event. It returns io.EOF when the stream ends and
// ctx.Err() when the context is cancelled between events.
func (r *SSEReader) Next(ctx context.Context) (*SSEEvent, error) {
	if r.closed {
		return nil, io.EOF
	}

	var eventType string
	var dataLines []string

	for r.scanner.Scan() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		line := r.scanner.Text()

		// A blank line terminates the event.
		if line == "" {
			if eventType != "" || len(dataLines) > 0 {
				return &SSEEvent{Type: eventType, Data: strings.Join(dataLines, "\n")}, nil
			}
			continue
		}

		switch {
		case strings.HasPrefix(line, "event: "):
			eventType = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "event:"):
			eventType = strings.TrimPrefix(line, "event:")
		case strings.HasPrefix(line, "data: "):
			dataLines = append(dataLines, strings.TrimPrefix(line, "data: "))
		case strings.HasPrefix(line, "data:"):
			dataLines = append(dataLines, strings.TrimPrefix(line, "data:"))
		}
		// Other SSE fields (id, retry, comments) are ignored.
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	// Stream ended mid-event: deliver what accumulated, then EOF.
	if eventType != "" || len(dataLines) > 0 {
		return &SSEEvent{Type: eventType, Data: strings.Join(dataLines, "\n")}, nil
	}
	return nil, io.EOF
}

// Close releases the underlying body. Safe to call more than once.
func (r *SSEReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.body.Close()
}
