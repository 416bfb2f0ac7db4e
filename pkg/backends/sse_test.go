package backends

import (
	"context"
	"io"
	"strings"
	"testing"
)

func sseBody(s string) io.ReadCloser {
	return io.NopCloser(strings.NewReader(s))
}

func TestSSEReaderNext(t *testing.T) {
	body := "event: content\ndata: {\"delta\":\"hel\"}\n\n" +
		"data: {\"delta\":\"lo\"}\n\n" +
		"event:done\ndata:[DONE]\n\n"
	reader := NewSSEReader(sseBody(body))
	defer reader.Close()

	ctx := context.Background()

	first, err := reader.Next(ctx)
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if first.Type != "content" || first.Data != `{"delta":"hel"}` {
		t.Errorf("first event = %+v", first)
	}

	second, err := reader.Next(ctx)
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if second.Type != "" || second.Data != `{"delta":"lo"}` {
		t.Errorf("second event = %+v", second)
	}

	// Field prefixes without a space after the colon are equivalent.
	third, err := reader.Next(ctx)
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if third.Type != "done" || third.Data != "[DONE]" {
		t.Errorf("third event = %+v", third)
	}

	if _, err := reader.Next(ctx); err != io.EOF {
		t.Errorf("Next() after final event error = %v, want io.EOF", err)
	}
}

func TestSSEReaderMultiLineData(t *testing.T) {
	body := "data: line one\ndata: line two\n\n"
	reader := NewSSEReader(sseBody(body))
	defer reader.Close()

	event, err := reader.Next(context.Background())
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if event.Data != "line one\nline two" {
		t.Errorf("Data = %q, want joined lines", event.Data)
	}
}

func TestSSEReaderTruncatedEvent(t *testing.T) {
	// The body ends mid-event with no terminating blank line. The partial
	// event is still delivered before EOF.
	reader := NewSSEReader(sseBody("event: content\ndata: partial"))
	defer reader.Close()

	ctx := context.Background()
	event, err := reader.Next(ctx)
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if event.Type != "content" || event.Data != "partial" {
		t.Errorf("event = %+v", event)
	}
	if _, err := reader.Next(ctx); err != io.EOF {
		t.Errorf("Next() error = %v, want io.EOF", err)
	}
}

func TestSSEReaderIgnoresCommentsAndIDs(t *testing.T) {
	body := ": keep-alive\nid: 7\nretry: 100\ndata: payload\n\n"
	reader := NewSSEReader(sseBody(body))
	defer reader.Close()

	event, err := reader.Next(context.Background())
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if event.Data != "payload" {
		t.Errorf("Data = %q, want %q", event.Data, "payload")
	}
}

func TestSSEReaderContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reader := NewSSEReader(sseBody("data: one\n\ndata: two\n\n"))
	defer reader.Close()

	if _, err := reader.Next(ctx); err != context.Canceled {
		t.Errorf("Next() error = %v, want context.Canceled", err)
	}
}

func TestSSEReaderCloseIsIdempotent(t *testing.T) {
	reader := NewSSEReader(sseBody("data: one\n\n"))
	if err := reader.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := reader.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if _, err := reader.Next(context.Background()); err != io.EOF {
		t.Errorf("Next() after Close error = %v, want io.EOF", err)
	}
}
