package ir

import (
	"encoding/json"
	"fmt"
)

// FinishReason indicates why generation stopped.
type FinishReason string

// Finish reason constants
const (
	FinishReasonStop          FinishReason = "stop"
	FinishReasonLength        FinishReason = "length"
	FinishReasonToolCalls     FinishReason = "tool_calls"
	FinishReasonContentFilter FinishReason = "content_filter"
	FinishReasonError         FinishReason = "error"
)

// Usage tracks token consumption for a request.
type Usage struct {
	// PromptTokens is the number of tokens in the prompt.
	PromptTokens int `json:"promptTokens"`

	// CompletionTokens is the number of tokens in the completion.
	CompletionTokens int `json:"completionTokens"`

	// TotalTokens is the total token count (prompt + completion).
	TotalTokens int `json:"totalTokens"`
}

// Add folds another usage count into u (partial stream usage accumulates).
func (u *Usage) Add(other Usage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
}

// ChatResponse is the canonical form of a chat completion response.
type ChatResponse struct {
	// Message is the single assistant message produced by the backend.
	Message Message `json:"message"`

	// FinishReason indicates why generation stopped.
	FinishReason FinishReason `json:"finishReason"`

	// Usage contains token consumption, when the backend reports it.
	Usage *Usage `json:"usage,omitempty"`

	// Metadata echoes the request metadata extended with the backend
	// identity, execution timing, and any warnings added en route.
	Metadata Metadata `json:"metadata"`

	// Raw is the untranslated provider payload, retained for debugging
	// when the backend is configured to pass it through.
	Raw json.RawMessage `json:"raw,omitempty"`
}

// Validate checks the response invariants: an assistant message and a
// recognized finish reason.
func (r *ChatResponse) Validate() error {
	if r.Message.Role != RoleAssistant {
		return fmt.Errorf("response message role must be %q, got %q", RoleAssistant, r.Message.Role)
	}
	if err := r.Message.Validate(); err != nil {
		return fmt.Errorf("response message: %w", err)
	}
	switch r.FinishReason {
	case FinishReasonStop, FinishReasonLength, FinishReasonToolCalls, FinishReasonContentFilter, FinishReasonError:
		return nil
	default:
		return fmt.Errorf("unrecognized finish reason %q", r.FinishReason)
	}
}

// Clone returns a deep copy of the response.
func (r *ChatResponse) Clone() *ChatResponse {
	out := &ChatResponse{
		Message:      r.Message.Clone(),
		FinishReason: r.FinishReason,
		Metadata:     r.Metadata.Clone(),
	}
	if r.Usage != nil {
		u := *r.Usage
		out.Usage = &u
	}
	if r.Raw != nil {
		out.Raw = append(json.RawMessage(nil), r.Raw...)
	}
	return out
}
