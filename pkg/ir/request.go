package ir

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Canonical parameter ranges. Callers express sampling parameters in these
// ranges regardless of backend; backend adapters map them into provider
// native ranges and warn when clamping.
const (
	TemperatureMin = 0.0
	TemperatureMax = 2.0
	TopPMin        = 0.0
	TopPMax        = 1.0
)

// Tool defines a function the model may call.
type Tool struct {
	// Name is the tool identifier referenced by tool_use blocks.
	Name string `json:"name"`

	// Description explains what the tool does.
	Description string `json:"description,omitempty"`

	// Parameters is a JSON Schema object describing the tool arguments.
	Parameters map[string]interface{} `json:"parameters,omitempty"`
}

// ToolChoiceMode enumerates how the model may use tools.
type ToolChoiceMode string

// Tool choice mode constants
const (
	ToolChoiceAuto     ToolChoiceMode = "auto"
	ToolChoiceRequired ToolChoiceMode = "required"
	ToolChoiceNone     ToolChoiceMode = "none"
	ToolChoiceNamed    ToolChoiceMode = "named"
)

// ToolChoice constrains tool usage for a request. Name is set only when
// Mode is ToolChoiceNamed.
type ToolChoice struct {
	// Mode is auto, required, none, or named.
	Mode ToolChoiceMode `json:"mode"`

	// Name is the single tool the model must call (Mode == named).
	Name string `json:"name,omitempty"`
}

// UnmarshalJSON accepts either the object form {"mode":...,"name":...} or a
// bare mode string such as "auto".
func (tc *ToolChoice) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "\"") {
		var mode string
		if err := json.Unmarshal(data, &mode); err != nil {
			return err
		}
		*tc = ToolChoice{Mode: ToolChoiceMode(mode)}
		return tc.Validate()
	}
	type plain ToolChoice
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*tc = ToolChoice(p)
	return tc.Validate()
}

// Validate checks mode/name consistency.
func (tc *ToolChoice) Validate() error {
	switch tc.Mode {
	case ToolChoiceAuto, ToolChoiceRequired, ToolChoiceNone:
		if tc.Name != "" {
			return fmt.Errorf("tool choice mode %q does not take a name", tc.Mode)
		}
		return nil
	case ToolChoiceNamed:
		if tc.Name == "" {
			return fmt.Errorf("named tool choice requires a name")
		}
		return nil
	default:
		return fmt.Errorf("unrecognized tool choice mode %q", tc.Mode)
	}
}

// Parameters are the canonical sampling parameters. Nil means unset; backend
// adapters drop unset parameters rather than sending provider defaults.
type Parameters struct {
	// Temperature controls randomness, canonical range [0, 2].
	Temperature *float64 `json:"temperature,omitempty"`

	// TopP controls nucleus sampling, canonical range [0, 1].
	TopP *float64 `json:"topP,omitempty"`

	// TopK limits sampling to the K most likely tokens, K >= 1.
	TopK *int `json:"topK,omitempty"`

	// MaxTokens caps the completion length, >= 1.
	MaxTokens *int `json:"maxTokens,omitempty"`

	// Seed requests deterministic sampling where supported.
	Seed *int64 `json:"seed,omitempty"`

	// Stop lists sequences that halt generation.
	Stop []string `json:"stop,omitempty"`
}

// Validate checks each set parameter against its canonical range.
func (p *Parameters) Validate() error {
	if p.Temperature != nil && (*p.Temperature < TemperatureMin || *p.Temperature > TemperatureMax) {
		return fmt.Errorf("temperature %v outside canonical range [%v, %v]", *p.Temperature, TemperatureMin, TemperatureMax)
	}
	if p.TopP != nil && (*p.TopP < TopPMin || *p.TopP > TopPMax) {
		return fmt.Errorf("topP %v outside canonical range [%v, %v]", *p.TopP, TopPMin, TopPMax)
	}
	if p.TopK != nil && *p.TopK < 1 {
		return fmt.Errorf("topK %d must be >= 1", *p.TopK)
	}
	if p.MaxTokens != nil && *p.MaxTokens < 1 {
		return fmt.Errorf("maxTokens %d must be >= 1", *p.MaxTokens)
	}
	return nil
}

// Clone returns a deep copy of the parameters.
func (p Parameters) Clone() Parameters {
	out := Parameters{}
	if p.Temperature != nil {
		v := *p.Temperature
		out.Temperature = &v
	}
	if p.TopP != nil {
		v := *p.TopP
		out.TopP = &v
	}
	if p.TopK != nil {
		v := *p.TopK
		out.TopK = &v
	}
	if p.MaxTokens != nil {
		v := *p.MaxTokens
		out.MaxTokens = &v
	}
	if p.Seed != nil {
		v := *p.Seed
		out.Seed = &v
	}
	if p.Stop != nil {
		out.Stop = append([]string(nil), p.Stop...)
	}
	return out
}

// Float64 returns a pointer to v, for optional parameter fields.
func Float64(v float64) *float64 { return &v }

// Int returns a pointer to v, for optional parameter fields.
func Int(v int) *int { return &v }

// Int64 returns a pointer to v, for optional parameter fields.
func Int64(v int64) *int64 { return &v }

// ChatRequest is the canonical form of a chat completion request.
type ChatRequest struct {
	// Model is the requested model identifier. Routing strategies and
	// backend adapters interpret it; it may be empty when the backend
	// configuration pins a model.
	Model string `json:"model,omitempty"`

	// Messages is the ordered, non-empty conversation history.
	Messages []Message `json:"messages"`

	// Tools lists the tools the model may call.
	Tools []Tool `json:"tools,omitempty"`

	// ToolChoice constrains tool usage; nil means provider default.
	ToolChoice *ToolChoice `json:"toolChoice,omitempty"`

	// Parameters are the canonical sampling parameters.
	Parameters Parameters `json:"parameters"`

	// Metadata carries the request identity, provenance, and warnings.
	Metadata Metadata `json:"metadata"`

	// Stream requests incremental delivery.
	Stream bool `json:"stream,omitempty"`
}

// Validate checks the request invariants: non-empty messages with
// recognized roles and content, consistent tool choice, and canonical
// parameter ranges.
func (r *ChatRequest) Validate() error {
	if len(r.Messages) == 0 {
		return fmt.Errorf("request must contain at least one message")
	}
	for i := range r.Messages {
		if err := r.Messages[i].Validate(); err != nil {
			return fmt.Errorf("messages[%d]: %w", i, err)
		}
	}
	for i := range r.Tools {
		if r.Tools[i].Name == "" {
			return fmt.Errorf("tools[%d]: tool name is required", i)
		}
	}
	if r.ToolChoice != nil {
		if err := r.ToolChoice.Validate(); err != nil {
			return err
		}
		if r.ToolChoice.Mode == ToolChoiceNamed && !r.hasTool(r.ToolChoice.Name) {
			return fmt.Errorf("tool choice names undefined tool %q", r.ToolChoice.Name)
		}
		if r.ToolChoice.Mode == ToolChoiceRequired && len(r.Tools) == 0 {
			return fmt.Errorf("tool choice %q requires at least one tool definition", ToolChoiceRequired)
		}
	}
	if err := r.Parameters.Validate(); err != nil {
		return err
	}
	return nil
}

func (r *ChatRequest) hasTool(name string) bool {
	for i := range r.Tools {
		if r.Tools[i].Name == name {
			return true
		}
	}
	return false
}

// SystemMessages returns the system messages in order.
func (r *ChatRequest) SystemMessages() []Message {
	var out []Message
	for _, m := range r.Messages {
		if m.Role == RoleSystem {
			out = append(out, m)
		}
	}
	return out
}

// Clone returns a deep copy of the request. Transformations operate on a
// clone so the original value stays immutable for the caller.
func (r *ChatRequest) Clone() *ChatRequest {
	out := &ChatRequest{
		Model:      r.Model,
		Parameters: r.Parameters.Clone(),
		Metadata:   r.Metadata.Clone(),
		Stream:     r.Stream,
	}
	if r.Messages != nil {
		out.Messages = make([]Message, len(r.Messages))
		for i, m := range r.Messages {
			out.Messages[i] = m.Clone()
		}
	}
	if r.Tools != nil {
		out.Tools = make([]Tool, len(r.Tools))
		copy(out.Tools, r.Tools)
	}
	if r.ToolChoice != nil {
		tc := *r.ToolChoice
		out.ToolChoice = &tc
	}
	return out
}
