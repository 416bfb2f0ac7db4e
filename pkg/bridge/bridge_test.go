package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/johnhenry/ai.matey-sub001/internal/stub"
	"github.com/johnhenry/ai.matey-sub001/pkg/config"
	"github.com/johnhenry/ai.matey-sub001/pkg/frontends"
	"github.com/johnhenry/ai.matey-sub001/pkg/ir"
	"github.com/johnhenry/ai.matey-sub001/pkg/middleware"
	"github.com/johnhenry/ai.matey-sub001/pkg/routing"
	"github.com/johnhenry/ai.matey-sub001/pkg/routing/strategies"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestBridge(t *testing.T, backend *stub.Backend, opts ...Option) *Bridge {
	t.Helper()
	opts = append([]Option{WithLogger(discardLogger())}, opts...)
	b, err := New(frontends.NewNative(), backend, opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return b
}

func decodeResponse(t *testing.T, data json.RawMessage) *ir.ChatResponse {
	t.Helper()
	var resp ir.ChatResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	return &resp
}

func TestNewBridgeValidation(t *testing.T) {
	if _, err := New(nil, stub.NewBackend("alpha")); !ir.IsCode(err, ir.ErrCodeValidation) {
		t.Errorf("nil frontend error = %v, want VALIDATION_ERROR", err)
	}
	if _, err := New(frontends.NewNative(), nil); !ir.IsCode(err, ir.ErrCodeValidation) {
		t.Errorf("nil executor error = %v, want VALIDATION_ERROR", err)
	}
}

func TestChatRoundTripEcho(t *testing.T) {
	backend := stub.NewBackend("echo")
	b := newTestBridge(t, backend)

	body := json.RawMessage(`{
		"model": "pilot-7",
		"messages": [
			{"role": "system", "content": "be brief"},
			{"role": "user", "content": "repeat after me"}
		],
		"metadata": {"requestId": "req-echo-1"},
		"stream": true
	}`)

	out, err := b.Chat(context.Background(), body)
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	resp := decodeResponse(t, out)
	if resp.Message.Role != ir.RoleAssistant {
		t.Errorf("role = %q, want assistant", resp.Message.Role)
	}
	if got := resp.Message.Text(); got != "repeat after me" {
		t.Errorf("echoed text = %q, want %q", got, "repeat after me")
	}
	if resp.FinishReason != ir.FinishReasonStop {
		t.Errorf("finish reason = %q, want stop", resp.FinishReason)
	}
	if resp.Metadata.RequestID != "req-echo-1" {
		t.Errorf("request id = %q, want req-echo-1", resp.Metadata.RequestID)
	}
	if resp.Metadata.Backend != "echo" {
		t.Errorf("backend = %q, want echo", resp.Metadata.Backend)
	}
	if resp.Usage == nil || resp.Usage.TotalTokens == 0 {
		t.Errorf("usage = %+v, want estimated tokens", resp.Usage)
	}

	reqs := backend.Requests()
	if len(reqs) != 1 {
		t.Fatalf("backend saw %d requests, want 1", len(reqs))
	}
	if reqs[0].Stream {
		t.Error("Chat must clear the stream flag before dispatch")
	}
}

func TestChatRejectsInvalidRequest(t *testing.T) {
	backend := stub.NewBackend("alpha")
	b := newTestBridge(t, backend)

	_, err := b.Chat(context.Background(), json.RawMessage(`{"messages": []}`))
	if !ir.IsCode(err, ir.ErrCodeValidation) {
		t.Fatalf("error = %v, want VALIDATION_ERROR", err)
	}
	if backend.Calls() != 0 {
		t.Errorf("backend called %d times for a rejected request", backend.Calls())
	}
}

func TestChatMiddlewareOrdering(t *testing.T) {
	var mu sync.Mutex
	var order []string
	record := func(step string) {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, step)
	}
	tap := func(name string) middleware.Middleware {
		return middleware.Middleware{
			Name: name,
			Chat: func(next middleware.Handler) middleware.Handler {
				return func(ctx context.Context, req *ir.ChatRequest) (*ir.ChatResponse, error) {
					record(name + ":in")
					resp, err := next(ctx, req)
					record(name + ":out")
					return resp, err
				}
			},
		}
	}

	b := newTestBridge(t, stub.NewBackend("alpha"), WithMiddleware(tap("outer"), tap("inner")))
	if _, err := b.Chat(context.Background(), json.RawMessage(`{"messages": [{"role": "user", "content": "hi"}]}`)); err != nil {
		t.Fatalf("Chat failed: %v", err)
	}

	want := []string{"outer:in", "inner:in", "inner:out", "outer:out"}
	mu.Lock()
	defer mu.Unlock()
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestChatMiddlewareShortCircuit(t *testing.T) {
	canned := &ir.ChatResponse{
		Message:      ir.TextMessage(ir.RoleAssistant, "from cache"),
		FinishReason: ir.FinishReasonStop,
	}
	shortCircuit := middleware.Middleware{
		Name: "short-circuit",
		Chat: func(next middleware.Handler) middleware.Handler {
			return func(ctx context.Context, req *ir.ChatRequest) (*ir.ChatResponse, error) {
				return canned, nil
			}
		},
	}

	backend := stub.NewBackend("alpha")
	b := newTestBridge(t, backend, WithMiddleware(shortCircuit))

	out, err := b.Chat(context.Background(), json.RawMessage(`{"messages": [{"role": "user", "content": "hi"}]}`))
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if got := decodeResponse(t, out).Message.Text(); got != "from cache" {
		t.Errorf("text = %q, want short-circuited response", got)
	}
	if backend.Calls() != 0 {
		t.Errorf("backend called %d times past a short-circuit", backend.Calls())
	}
}

func TestChatClassifiesBareErrors(t *testing.T) {
	failing := middleware.Middleware{
		Name: "failing",
		Chat: func(next middleware.Handler) middleware.Handler {
			return func(ctx context.Context, req *ir.ChatRequest) (*ir.ChatResponse, error) {
				return nil, errors.New("boom")
			}
		},
	}
	b := newTestBridge(t, stub.NewBackend("alpha"), WithMiddleware(failing))

	_, err := b.Chat(context.Background(), json.RawMessage(`{"messages": [{"role": "user", "content": "hi"}]}`))
	if !ir.IsCode(err, ir.ErrCodeInternal) {
		t.Errorf("error = %v, want INTERNAL_ERROR classification", err)
	}
}

func TestChatPreservesBackendClassification(t *testing.T) {
	backend := stub.NewBackend("alpha")
	backend.FailNext(ir.NewError(ir.ErrCodeRateLimit, "slow down").WithBackend("alpha"))
	b := newTestBridge(t, backend)

	_, err := b.Chat(context.Background(), json.RawMessage(`{"messages": [{"role": "user", "content": "hi"}]}`))
	if !ir.IsCode(err, ir.ErrCodeRateLimit) {
		t.Fatalf("error = %v, want RATE_LIMIT_ERROR passed through", err)
	}
	if !ir.IsRetryable(err) {
		t.Error("rate limit error lost its retryable flag")
	}
}

func TestChatEncodeFailure(t *testing.T) {
	front := stub.NewFrontend()
	front.FailFromIR(ir.NewError(ir.ErrCodeConversion, "cannot express response"))

	b, err := New(front, stub.NewBackend("alpha"), WithLogger(discardLogger()))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	_, err = b.Chat(context.Background(), json.RawMessage(`{"messages": [{"role": "user", "content": "hi"}]}`))
	if !ir.IsCode(err, ir.ErrCodeConversion) {
		t.Errorf("error = %v, want ADAPTER_CONVERSION_ERROR", err)
	}
}

func TestChatStreamDeliversFrames(t *testing.T) {
	backend := stub.NewBackend("echo")
	b := newTestBridge(t, backend)

	frames, err := b.ChatStream(context.Background(), json.RawMessage(`{
		"messages": [{"role": "user", "content": "stream me"}],
		"metadata": {"requestId": "req-s-1"}
	}`))
	if err != nil {
		t.Fatalf("ChatStream failed: %v", err)
	}

	var chunks []ir.StreamChunk
	for frame := range frames {
		if frame.Err != nil {
			t.Fatalf("frame error: %v", frame.Err)
		}
		var c ir.StreamChunk
		if err := json.Unmarshal(frame.Data, &c); err != nil {
			t.Fatalf("frame %d is not chunk JSON: %v", len(chunks), err)
		}
		chunks = append(chunks, c)
	}
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want start+content+done", len(chunks))
	}
	if chunks[0].Type != ir.ChunkStart || chunks[0].Metadata == nil || chunks[0].Metadata.RequestID != "req-s-1" {
		t.Errorf("start chunk = %+v, want metadata with req-s-1", chunks[0])
	}
	if chunks[1].Type != ir.ChunkContent || chunks[1].Delta != "stream me" {
		t.Errorf("content chunk = %+v, want echoed delta", chunks[1])
	}
	if chunks[2].Type != ir.ChunkDone {
		t.Errorf("final chunk type = %q, want done", chunks[2].Type)
	}
	for i, c := range chunks {
		if c.Sequence != i {
			t.Errorf("chunk %d sequence = %d", i, c.Sequence)
		}
	}

	reqs := backend.Requests()
	if len(reqs) != 1 || !reqs[0].Stream {
		t.Error("ChatStream must set the stream flag before dispatch")
	}
}

func TestChatStreamStartFailure(t *testing.T) {
	backend := stub.NewBackend("alpha")
	backend.FailStreamStart(ir.NewError(ir.ErrCodeProviderUnavailable, "backend down").WithBackend("alpha"))
	b := newTestBridge(t, backend)

	_, err := b.ChatStream(context.Background(), json.RawMessage(`{"messages": [{"role": "user", "content": "hi"}]}`))
	if !ir.IsCode(err, ir.ErrCodeProviderUnavailable) {
		t.Errorf("error = %v, want PROVIDER_UNAVAILABLE passed through", err)
	}
}

func TestChatStreamTerminalError(t *testing.T) {
	backend := stub.NewBackend("alpha")
	backend.FailStreamTerminal(ir.NewError(ir.ErrCodeStream, "connection dropped"))
	b := newTestBridge(t, backend)

	frames, err := b.ChatStream(context.Background(), json.RawMessage(`{"messages": [{"role": "user", "content": "hi"}]}`))
	if err != nil {
		t.Fatalf("ChatStream failed: %v", err)
	}
	var last ir.StreamChunk
	n := 0
	for frame := range frames {
		if frame.Err != nil {
			t.Fatalf("frame error: %v", frame.Err)
		}
		if err := json.Unmarshal(frame.Data, &last); err != nil {
			t.Fatalf("bad frame JSON: %v", err)
		}
		n++
	}
	if n != 2 {
		t.Fatalf("got %d frames, want start+error", n)
	}
	if last.Type != ir.ChunkError || last.Err == nil || last.Err.Code != ir.ErrCodeStream {
		t.Errorf("terminal chunk = %+v, want in-band STREAM_ERROR", last)
	}
}

func TestChatStreamCancellation(t *testing.T) {
	endless := middleware.Middleware{
		Name: "endless",
		Chat: func(next middleware.Handler) middleware.Handler { return next },
		Stream: func(next middleware.StreamHandler) middleware.StreamHandler {
			return func(ctx context.Context, req *ir.ChatRequest) (<-chan *ir.StreamChunk, error) {
				out := make(chan *ir.StreamChunk)
				go func() {
					defer close(out)
					for i := 0; ; i++ {
						select {
						case out <- ir.NewContentChunk(i, "x"):
						case <-ctx.Done():
							return
						}
					}
				}()
				return out, nil
			}
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b := newTestBridge(t, stub.NewBackend("alpha"), WithMiddleware(endless))

	frames, err := b.ChatStream(ctx, json.RawMessage(`{"messages": [{"role": "user", "content": "hi"}]}`))
	if err != nil {
		t.Fatalf("ChatStream failed: %v", err)
	}
	if _, ok := <-frames; !ok {
		t.Fatal("stream closed before first frame")
	}
	cancel()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-frames:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("frame channel still open after cancellation")
		}
	}
}

func TestBridgeOverRouterFallsBack(t *testing.T) {
	alpha := stub.NewBackend("alpha")
	alpha.FailNext(ir.NewError(ir.ErrCodeNetwork, "connection refused").WithBackend("alpha"))
	beta := stub.NewBackend("beta")

	cfg := config.RouterConfig{Fallback: config.FallbackConfig{Enabled: true}}
	router, err := routing.NewRouter(cfg, strategies.NewModelBased(), routing.WithLogger(discardLogger()))
	if err != nil {
		t.Fatalf("NewRouter failed: %v", err)
	}
	t.Cleanup(func() { router.Close() })
	if err := router.Register(alpha); err != nil {
		t.Fatal(err)
	}
	if err := router.Register(beta); err != nil {
		t.Fatal(err)
	}

	b, err := New(frontends.NewNative(), router, WithLogger(discardLogger()))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	out, err := b.Chat(context.Background(), json.RawMessage(`{"messages": [{"role": "user", "content": "hi"}]}`))
	if err != nil {
		t.Fatalf("Chat through router failed: %v", err)
	}
	resp := decodeResponse(t, out)
	if resp.Metadata.Backend != "beta" {
		t.Errorf("backend = %q, want beta after fallback", resp.Metadata.Backend)
	}
	wantAttempted := []string{"alpha", "beta"}
	if len(resp.Metadata.AttemptedBackends) != 2 ||
		resp.Metadata.AttemptedBackends[0] != wantAttempted[0] ||
		resp.Metadata.AttemptedBackends[1] != wantAttempted[1] {
		t.Errorf("attempted = %v, want %v", resp.Metadata.AttemptedBackends, wantAttempted)
	}
	if len(resp.Metadata.FailedBackends) != 1 || resp.Metadata.FailedBackends[0] != "alpha" {
		t.Errorf("failed = %v, want [alpha]", resp.Metadata.FailedBackends)
	}
}
