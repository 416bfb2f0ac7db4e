package stub

import (
	"context"
	"sync"
	"time"

	"github.com/johnhenry/ai.matey-sub001/pkg/backends"
	"github.com/johnhenry/ai.matey-sub001/pkg/ir"
)

// Backend is a scriptable in-memory backend. By default every call
// succeeds by echoing the request (see Echo); failures, delays, custom
// responders, and stream behavior are scripted per instance. All methods
// are safe for concurrent use.
type Backend struct {
	name string

	mu          sync.Mutex
	caps        backends.Capabilities
	calls       int
	streamCalls int
	requests    []*ir.ChatRequest
	queue       []error
	respond     func(*ir.ChatRequest) (*ir.ChatResponse, error)
	delay       time.Duration
	probeErr    error
	startErr    error
	terminalErr *ir.Error
}

// NewBackend creates a stub backend with permissive capabilities.
func NewBackend(name string) *Backend {
	return &Backend{
		name: name,
		caps: backends.Capabilities{
			Streaming:      true,
			MultiModal:     true,
			Tools:          true,
			SystemMessages: backends.SystemInMessages,
			MultiSystem:    true,
			Parameters: backends.ParameterSupport{
				Temperature: true,
				TopP:        true,
				TopK:        true,
				MaxTokens:   true,
				Seed:        true,
				Stop:        true,
			},
		},
	}
}

// Name implements backends.Backend.
func (s *Backend) Name() string {
	return s.name
}

// Capabilities implements backends.Backend.
func (s *Backend) Capabilities() backends.Capabilities {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.caps
}

// SetCapabilities replaces the declared capabilities.
func (s *Backend) SetCapabilities(caps backends.Capabilities) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.caps = caps
}

// Respond installs a custom responder replacing the echo default.
func (s *Backend) Respond(fn func(*ir.ChatRequest) (*ir.ChatResponse, error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.respond = fn
}

// FailNext queues errors, one consumed per Execute call in order. A nil
// entry makes that call succeed. Once the queue drains, calls succeed
// again.
func (s *Backend) FailNext(errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, errs...)
}

// SetDelay makes each Execute call wait before answering, honoring
// context cancellation.
func (s *Backend) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// SetProbeError scripts the HealthCheck result. Nil restores health.
func (s *Backend) SetProbeError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.probeErr = err
}

// FailStreamStart makes ExecuteStream fail before producing a channel.
func (s *Backend) FailStreamStart(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startErr = err
}

// FailStreamTerminal makes streams end with an error chunk instead of
// done.
func (s *Backend) FailStreamTerminal(err *ir.Error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.terminalErr = err
}

// Calls returns how many Execute calls arrived.
func (s *Backend) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// StreamCalls returns how many ExecuteStream calls arrived.
func (s *Backend) StreamCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streamCalls
}

// Requests returns clones of every request received, in arrival order.
func (s *Backend) Requests() []*ir.ChatRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*ir.ChatRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// Execute implements backends.Backend.
func (s *Backend) Execute(ctx context.Context, req *ir.ChatRequest) (*ir.ChatResponse, error) {
	s.mu.Lock()
	s.calls++
	s.requests = append(s.requests, req.Clone())
	var scripted error
	if len(s.queue) > 0 {
		scripted = s.queue[0]
		s.queue = s.queue[1:]
	}
	respond := s.respond
	delay := s.delay
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ir.WrapError(ir.ErrCodeTimeout, ctx.Err(), "stub cancelled").WithBackend(s.name)
		}
	}
	if scripted != nil {
		return nil, scripted
	}
	if respond != nil {
		return respond(req)
	}
	return Echo(req, s.name), nil
}

// ExecuteStream implements backends.Backend. The default stream is the
// echo response cut into one content chunk per text block.
func (s *Backend) ExecuteStream(ctx context.Context, req *ir.ChatRequest) (<-chan *ir.StreamChunk, error) {
	s.mu.Lock()
	s.streamCalls++
	s.requests = append(s.requests, req.Clone())
	startErr := s.startErr
	terminalErr := s.terminalErr
	s.mu.Unlock()

	if startErr != nil {
		return nil, startErr
	}

	resp := Echo(req, s.name)
	chunks := []*ir.StreamChunk{ir.NewStartChunk(0, resp.Metadata)}
	seq := 1
	if terminalErr != nil {
		chunks = append(chunks, ir.NewErrorChunk(seq, terminalErr))
	} else {
		for _, block := range resp.Message.Content {
			if block.Type != ir.ContentTypeText {
				continue
			}
			chunks = append(chunks, ir.NewContentChunk(seq, block.Text))
			seq++
		}
		chunks = append(chunks, ir.NewDoneChunk(seq, resp.FinishReason, resp.Usage))
	}

	out := make(chan *ir.StreamChunk, len(chunks))
	for _, c := range chunks {
		out <- c
	}
	close(out)
	return out, nil
}

// HealthCheck implements backends.HealthChecker.
func (s *Backend) HealthCheck(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.probeErr
}

// Echo builds the canned response for a request: the final request
// message comes back as the assistant message, with estimated usage and
// the request metadata carried over. Pipelines built on a stub therefore
// reproduce their input, which is what round-trip assertions compare
// against.
func Echo(req *ir.ChatRequest, backendName string) *ir.ChatResponse {
	md := req.Metadata.Clone()
	md.Backend = backendName

	var content []ir.ContentBlock
	if len(req.Messages) > 0 {
		last := req.Messages[len(req.Messages)-1].Clone()
		content = last.Content
	} else {
		content = []ir.ContentBlock{ir.TextContent("")}
	}
	msg := ir.Message{Role: ir.RoleAssistant, Content: content}

	prompt := backends.EstimateTokens(req)
	completion := backends.EstimateTokens(&ir.ChatRequest{Messages: []ir.Message{msg}})
	return &ir.ChatResponse{
		Message:      msg,
		FinishReason: ir.FinishReasonStop,
		Usage: &ir.Usage{
			PromptTokens:     prompt,
			CompletionTokens: completion,
			TotalTokens:      prompt + completion,
		},
		Metadata: md,
	}
}
