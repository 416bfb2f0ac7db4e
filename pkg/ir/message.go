package ir

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Role identifies the sender of a message.
type Role string

// Message role constants
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ValidRole reports whether r is one of the recognized roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool:
		return true
	}
	return false
}

// Message is a single turn in a conversation.
// Content is an ordered, never-empty sequence of typed blocks.
type Message struct {
	// Role identifies the message sender (system, user, assistant, tool).
	Role Role `json:"role"`

	// Content is the ordered block sequence. On the wire a plain JSON
	// string is accepted as shorthand for a single text block.
	Content []ContentBlock `json:"content"`

	// Name is an optional sender name for multi-participant conversations.
	Name string `json:"name,omitempty"`

	// Metadata carries free-form, adapter-specific annotations.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// TextMessage returns a message holding a single text block.
func TextMessage(role Role, text string) Message {
	return Message{Role: role, Content: []ContentBlock{TextContent(text)}}
}

// messageWire mirrors Message with content left raw so that both the
// string shorthand and the block array form can be decoded.
type messageWire struct {
	Role     Role              `json:"role"`
	Content  json.RawMessage   `json:"content"`
	Name     string            `json:"name,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// UnmarshalJSON decodes a message, accepting content as either a plain
// string or an array of content blocks.
func (m *Message) UnmarshalJSON(data []byte) error {
	var w messageWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	m.Role = w.Role
	m.Name = w.Name
	m.Metadata = w.Metadata
	m.Content = nil
	if len(w.Content) == 0 {
		return nil
	}
	trimmed := strings.TrimSpace(string(w.Content))
	if strings.HasPrefix(trimmed, "\"") {
		var text string
		if err := json.Unmarshal(w.Content, &text); err != nil {
			return err
		}
		m.Content = []ContentBlock{TextContent(text)}
		return nil
	}
	return json.Unmarshal(w.Content, &m.Content)
}

// Text returns the concatenation of all text blocks in the message.
func (m *Message) Text() string {
	var sb strings.Builder
	for _, b := range m.Content {
		if b.Type == ContentTypeText {
			sb.WriteString(b.Text)
		}
	}
	return sb.String()
}

// ToolUses returns the tool invocation blocks in the message, in order.
func (m *Message) ToolUses() []*ToolUse {
	var uses []*ToolUse
	for _, b := range m.Content {
		if b.Type == ContentTypeToolUse && b.ToolUse != nil {
			uses = append(uses, b.ToolUse)
		}
	}
	return uses
}

// Validate checks the message invariants: a recognized role and a
// non-empty, well-formed content sequence.
func (m *Message) Validate() error {
	if !ValidRole(m.Role) {
		return fmt.Errorf("unrecognized role %q", m.Role)
	}
	if len(m.Content) == 0 {
		return fmt.Errorf("message content must not be empty")
	}
	for i := range m.Content {
		if err := m.Content[i].Validate(); err != nil {
			return fmt.Errorf("content[%d]: %w", i, err)
		}
	}
	return nil
}

// Clone returns a deep copy of the message.
func (m Message) Clone() Message {
	out := m
	if m.Content != nil {
		out.Content = make([]ContentBlock, len(m.Content))
		for i, b := range m.Content {
			out.Content[i] = b.clone()
		}
	}
	if m.Metadata != nil {
		out.Metadata = make(map[string]string, len(m.Metadata))
		for k, v := range m.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}
