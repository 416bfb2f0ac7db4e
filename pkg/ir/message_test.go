package ir

import (
	"encoding/json"
	"testing"
)

func TestMessageUnmarshalContentForms(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantRole  Role
		wantText  string
		wantBlock int
		wantErr   bool
	}{
		{
			name:      "string shorthand",
			input:     `{"role":"user","content":"hello"}`,
			wantRole:  RoleUser,
			wantText:  "hello",
			wantBlock: 1,
		},
		{
			name:      "block array",
			input:     `{"role":"user","content":[{"type":"text","text":"a"},{"type":"text","text":"b"}]}`,
			wantRole:  RoleUser,
			wantText:  "ab",
			wantBlock: 2,
		},
		{
			name:      "tool use block",
			input:     `{"role":"assistant","content":[{"type":"tool_use","id":"t1","name":"search","input":{"q":"go"}}]}`,
			wantRole:  RoleAssistant,
			wantText:  "",
			wantBlock: 1,
		},
		{
			name:    "unknown block type",
			input:   `{"role":"user","content":[{"type":"video","url":"x"}]}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m Message
			err := json.Unmarshal([]byte(tt.input), &m)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unmarshal() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if m.Role != tt.wantRole {
				t.Errorf("Role = %q, want %q", m.Role, tt.wantRole)
			}
			if got := m.Text(); got != tt.wantText {
				t.Errorf("Text() = %q, want %q", got, tt.wantText)
			}
			if len(m.Content) != tt.wantBlock {
				t.Errorf("len(Content) = %d, want %d", len(m.Content), tt.wantBlock)
			}
		})
	}
}

func TestMessageValidate(t *testing.T) {
	tests := []struct {
		name    string
		message Message
		wantErr bool
	}{
		{
			name:    "valid text message",
			message: TextMessage(RoleUser, "hi"),
			wantErr: false,
		},
		{
			name:    "unrecognized role",
			message: TextMessage(Role("moderator"), "hi"),
			wantErr: true,
		},
		{
			name:    "empty content",
			message: Message{Role: RoleUser},
			wantErr: true,
		},
		{
			name: "image without source",
			message: Message{Role: RoleUser, Content: []ContentBlock{
				{Type: ContentTypeImage, Image: &ImageSource{}},
			}},
			wantErr: true,
		},
		{
			name: "inline image without media type",
			message: Message{Role: RoleUser, Content: []ContentBlock{
				{Type: ContentTypeImage, Image: &ImageSource{Base64: "aGk="}},
			}},
			wantErr: true,
		},
		{
			name: "tool use without id",
			message: Message{Role: RoleAssistant, Content: []ContentBlock{
				{Type: ContentTypeToolUse, ToolUse: &ToolUse{Name: "search"}},
			}},
			wantErr: true,
		},
		{
			name: "tool result",
			message: Message{Role: RoleTool, Content: []ContentBlock{
				ToolResultContent("t1", "42"),
			}},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.message.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestContentBlockWireRoundTrip(t *testing.T) {
	blocks := []ContentBlock{
		TextContent("hello"),
		ImageURLContent("https://example.com/a.png"),
		ImageBase64Content("aGVsbG8=", "image/png"),
		ToolUseContent("t1", "search", json.RawMessage(`{"q":"go"}`)),
		ToolResultContent("t1", "result text"),
	}
	data, err := json.Marshal(blocks)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var decoded []ContentBlock
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(decoded) != len(blocks) {
		t.Fatalf("decoded %d blocks, want %d", len(decoded), len(blocks))
	}
	for i, b := range decoded {
		if b.Type != blocks[i].Type {
			t.Errorf("block %d type = %q, want %q", i, b.Type, blocks[i].Type)
		}
		if err := b.Validate(); err != nil {
			t.Errorf("block %d Validate() error = %v", i, err)
		}
	}
	if decoded[3].ToolUse == nil || decoded[3].ToolUse.Name != "search" {
		t.Errorf("tool_use payload lost in round trip: %+v", decoded[3])
	}
}

func TestMessageCloneIndependence(t *testing.T) {
	original := Message{
		Role: RoleAssistant,
		Content: []ContentBlock{
			TextContent("answer"),
			ToolUseContent("t1", "search", json.RawMessage(`{"q":"go"}`)),
		},
		Metadata: map[string]string{"k": "v"},
	}
	clone := original.Clone()
	clone.Content[0].Text = "mutated"
	clone.Content[1].ToolUse.Name = "mutated"
	clone.Metadata["k"] = "mutated"

	if original.Content[0].Text != "answer" {
		t.Errorf("clone mutation leaked into original text: %q", original.Content[0].Text)
	}
	if original.Content[1].ToolUse.Name != "search" {
		t.Errorf("clone mutation leaked into original tool use: %q", original.Content[1].ToolUse.Name)
	}
	if original.Metadata["k"] != "v" {
		t.Errorf("clone mutation leaked into original metadata: %q", original.Metadata["k"])
	}
}
