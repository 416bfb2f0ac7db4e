// Package httpmock provides an in-process HTTP server impersonating a
// canonical-format provider endpoint, for transport-level tests of the
// backend adapters.
package httpmock

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	"github.com/johnhenry/ai.matey-sub001/pkg/ir"
)

// Response scripts what the server returns for one path.
type Response struct {
	// Status is the HTTP status code. Zero means 200.
	Status int

	// Body is the response payload: a string or []byte is written as-is,
	// anything else is JSON-encoded.
	Body any

	// Delay is applied before responding.
	Delay time.Duration

	// Headers are set on the response.
	Headers map[string]string

	// Chunks, when non-empty, switches the path to SSE streaming: each
	// entry is sent as one data: line, followed by a [DONE] sentinel
	// unless OmitDone is set.
	Chunks   []string
	OmitDone bool
}

// Recorded is one request the server received.
type Recorded struct {
	Method        string
	Path          string
	Authorization string
	Body          []byte
}

// Server is a scriptable provider endpoint. Paths without a scripted
// response return 404.
type Server struct {
	server *httptest.Server

	mu        sync.Mutex
	responses map[string]Response
	requests  []Recorded
}

// NewServer starts an empty mock provider. Callers must Close it.
func NewServer() *Server {
	s := &Server{responses: make(map[string]Response)}
	s.server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// URL returns the server's base URL.
func (s *Server) URL() string {
	return s.server.URL
}

// Close shuts the server down.
func (s *Server) Close() {
	s.server.Close()
}

// Respond scripts the response for path.
func (s *Server) Respond(path string, resp Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[path] = resp
}

// Requests returns a copy of every request received so far.
func (s *Server) Requests() []Recorded {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Recorded(nil), s.requests...)
}

// LastRequest returns the most recent request, or nil when none arrived.
func (s *Server) LastRequest() *Recorded {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return nil
	}
	last := s.requests[len(s.requests)-1]
	return &last
}

// RequestCount returns how many requests the server has received.
func (s *Server) RequestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	s.mu.Lock()
	s.requests = append(s.requests, Recorded{
		Method:        r.Method,
		Path:          r.URL.Path,
		Authorization: r.Header.Get("Authorization"),
		Body:          body,
	})
	resp, ok := s.responses[r.URL.Path]
	s.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}

	if len(resp.Chunks) > 0 {
		s.stream(w, resp)
		return
	}

	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	if resp.Body != nil && w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(status)
	switch v := resp.Body.(type) {
	case nil:
	case string:
		fmt.Fprint(w, v)
	case []byte:
		w.Write(v)
	default:
		json.NewEncoder(w).Encode(v)
	}
}

func (s *Server) stream(w http.ResponseWriter, resp Response) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	for _, chunk := range resp.Chunks {
		fmt.Fprintf(w, "data: %s\n\n", chunk)
		flusher.Flush()
	}
	if !resp.OmitDone {
		fmt.Fprint(w, "data: [DONE]\n\n")
		flusher.Flush()
	}
}

// ChatResponse scripts a successful canonical chat response.
func ChatResponse(text string) Response {
	return Response{
		Body: &ir.ChatResponse{
			Message:      ir.TextMessage(ir.RoleAssistant, text),
			FinishReason: ir.FinishReasonStop,
			Usage:        &ir.Usage{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30},
		},
	}
}

// StreamResponse scripts a canonical SSE stream from the given chunks.
func StreamResponse(chunks ...*ir.StreamChunk) Response {
	resp := Response{}
	for _, chunk := range chunks {
		raw, err := json.Marshal(chunk)
		if err != nil {
			panic(fmt.Sprintf("httpmock: encoding chunk: %v", err))
		}
		resp.Chunks = append(resp.Chunks, string(raw))
	}
	return resp
}

// ErrorResponse scripts a provider-style error payload.
func ErrorResponse(status int, message string) Response {
	return Response{
		Status: status,
		Body: map[string]any{
			"error": map[string]any{
				"message": message,
				"code":    status,
			},
		},
	}
}

// RateLimited scripts a 429 with a Retry-After header.
func RateLimited(retryAfter time.Duration) Response {
	resp := ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded")
	resp.Headers = map[string]string{
		"Retry-After": strconv.Itoa(int(retryAfter.Seconds())),
	}
	return resp
}

// Unauthorized scripts a 401.
func Unauthorized() Response {
	return ErrorResponse(http.StatusUnauthorized, "invalid api key")
}

// ServerError scripts a 500.
func ServerError() Response {
	return ErrorResponse(http.StatusInternalServerError, "internal server error")
}
