package ir

import (
	"encoding/json"
	"testing"
)

func TestChatRequestValidate(t *testing.T) {
	valid := func() *ChatRequest {
		return &ChatRequest{
			Model:    "test-model-small",
			Messages: []Message{TextMessage(RoleUser, "hi")},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*ChatRequest)
		wantErr bool
	}{
		{
			name:   "minimal valid request",
			mutate: func(r *ChatRequest) {},
		},
		{
			name:    "no messages",
			mutate:  func(r *ChatRequest) { r.Messages = nil },
			wantErr: true,
		},
		{
			name: "message with bad role",
			mutate: func(r *ChatRequest) {
				r.Messages = append(r.Messages, TextMessage(Role("bot"), "x"))
			},
			wantErr: true,
		},
		{
			name: "temperature above canonical range",
			mutate: func(r *ChatRequest) {
				r.Parameters.Temperature = Float64(2.5)
			},
			wantErr: true,
		},
		{
			name: "temperature at canonical maximum",
			mutate: func(r *ChatRequest) {
				r.Parameters.Temperature = Float64(2.0)
			},
		},
		{
			name: "topP above canonical range",
			mutate: func(r *ChatRequest) {
				r.Parameters.TopP = Float64(1.2)
			},
			wantErr: true,
		},
		{
			name: "zero maxTokens",
			mutate: func(r *ChatRequest) {
				r.Parameters.MaxTokens = Int(0)
			},
			wantErr: true,
		},
		{
			name: "named tool choice with matching tool",
			mutate: func(r *ChatRequest) {
				r.Tools = []Tool{{Name: "search"}}
				r.ToolChoice = &ToolChoice{Mode: ToolChoiceNamed, Name: "search"}
			},
		},
		{
			name: "named tool choice without matching tool",
			mutate: func(r *ChatRequest) {
				r.ToolChoice = &ToolChoice{Mode: ToolChoiceNamed, Name: "missing"}
			},
			wantErr: true,
		},
		{
			name: "required tool choice without tools",
			mutate: func(r *ChatRequest) {
				r.ToolChoice = &ToolChoice{Mode: ToolChoiceRequired}
			},
			wantErr: true,
		},
		{
			name: "unnamed tool definition",
			mutate: func(r *ChatRequest) {
				r.Tools = []Tool{{Description: "no name"}}
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid()
			tt.mutate(req)
			err := req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestToolChoiceUnmarshalForms(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantMode ToolChoiceMode
		wantName string
		wantErr  bool
	}{
		{name: "bare auto string", input: `"auto"`, wantMode: ToolChoiceAuto},
		{name: "bare none string", input: `"none"`, wantMode: ToolChoiceNone},
		{name: "object named", input: `{"mode":"named","name":"search"}`, wantMode: ToolChoiceNamed, wantName: "search"},
		{name: "named without name", input: `{"mode":"named"}`, wantErr: true},
		{name: "unknown mode", input: `"sometimes"`, wantErr: true},
		{name: "auto with stray name", input: `{"mode":"auto","name":"x"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tc ToolChoice
			err := json.Unmarshal([]byte(tt.input), &tc)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unmarshal() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if tc.Mode != tt.wantMode || tc.Name != tt.wantName {
				t.Errorf("ToolChoice = {%q %q}, want {%q %q}", tc.Mode, tc.Name, tt.wantMode, tt.wantName)
			}
		})
	}
}

func TestChatRequestCloneIndependence(t *testing.T) {
	original := &ChatRequest{
		Model:    "test-model-small",
		Messages: []Message{TextMessage(RoleSystem, "A"), TextMessage(RoleUser, "B")},
		Parameters: Parameters{
			Temperature: Float64(0.7),
			Stop:        []string{"END"},
		},
		Metadata: Metadata{RequestID: "req-1", Provenance: []string{"frontend"}},
	}

	clone := original.Clone()
	clone.Messages[0].Content[0].Text = "mutated"
	*clone.Parameters.Temperature = 1.9
	clone.Parameters.Stop[0] = "mutated"
	clone.Metadata.AddProvenance("backend")
	clone.Metadata.AddWarning(ClampWarning("backend", "temperature", 1.5, 1.0))

	if got := original.Messages[0].Text(); got != "A" {
		t.Errorf("message text mutated through clone: %q", got)
	}
	if *original.Parameters.Temperature != 0.7 {
		t.Errorf("temperature mutated through clone: %v", *original.Parameters.Temperature)
	}
	if original.Parameters.Stop[0] != "END" {
		t.Errorf("stop sequence mutated through clone: %q", original.Parameters.Stop[0])
	}
	if len(original.Metadata.Provenance) != 1 {
		t.Errorf("provenance mutated through clone: %v", original.Metadata.Provenance)
	}
	if len(original.Metadata.Warnings) != 0 {
		t.Errorf("warnings mutated through clone: %v", original.Metadata.Warnings)
	}
}
