package ir

import (
	"encoding/json"
	"fmt"
)

// ContentType discriminates the variants of a ContentBlock.
type ContentType string

// Content block type constants
const (
	ContentTypeText       ContentType = "text"
	ContentTypeImage      ContentType = "image"
	ContentTypeToolUse    ContentType = "tool_use"
	ContentTypeToolResult ContentType = "tool_result"
)

// ContentBlock is one element of a message's content sequence.
// It is a tagged union: Type selects which payload field is populated,
// and exactly one payload field is non-zero.
type ContentBlock struct {
	// Type discriminates the payload (text, image, tool_use, tool_result).
	Type ContentType

	// Text is the text payload (Type == ContentTypeText).
	Text string

	// Image is the image payload (Type == ContentTypeImage).
	Image *ImageSource

	// ToolUse is the tool invocation payload (Type == ContentTypeToolUse).
	ToolUse *ToolUse

	// ToolResult is the tool result payload (Type == ContentTypeToolResult).
	ToolResult *ToolResult
}

// ImageSource carries image content either by reference or inline.
// Exactly one of URL or Base64 is set; MediaType accompanies Base64.
type ImageSource struct {
	// URL is a reference to an externally hosted image.
	URL string `json:"url,omitempty"`

	// Base64 is the inline image payload, base64-encoded.
	Base64 string `json:"base64,omitempty"`

	// MediaType is the MIME type of the inline payload (e.g. "image/png").
	MediaType string `json:"mediaType,omitempty"`
}

// ToolUse represents a tool invocation requested by the model.
type ToolUse struct {
	// ID is the unique identifier correlating this call with its result.
	ID string `json:"id"`

	// Name is the tool being invoked.
	Name string `json:"name"`

	// Input is the invocation arguments as a JSON object.
	Input json.RawMessage `json:"input,omitempty"`
}

// ToolResult carries the outcome of a tool invocation back to the model.
type ToolResult struct {
	// ToolUseID references the ToolUse this result answers.
	ToolUseID string `json:"toolUseId"`

	// Content is the tool output.
	Content string `json:"content"`

	// IsError marks the result as a tool-side failure.
	IsError bool `json:"isError,omitempty"`
}

// TextContent returns a text content block.
func TextContent(text string) ContentBlock {
	return ContentBlock{Type: ContentTypeText, Text: text}
}

// ImageURLContent returns an image content block referencing an external URL.
func ImageURLContent(url string) ContentBlock {
	return ContentBlock{Type: ContentTypeImage, Image: &ImageSource{URL: url}}
}

// ImageBase64Content returns an image content block with an inline payload.
func ImageBase64Content(data, mediaType string) ContentBlock {
	return ContentBlock{Type: ContentTypeImage, Image: &ImageSource{Base64: data, MediaType: mediaType}}
}

// ToolUseContent returns a tool invocation content block.
func ToolUseContent(id, name string, input json.RawMessage) ContentBlock {
	return ContentBlock{Type: ContentTypeToolUse, ToolUse: &ToolUse{ID: id, Name: name, Input: input}}
}

// ToolResultContent returns a tool result content block.
func ToolResultContent(toolUseID, content string) ContentBlock {
	return ContentBlock{Type: ContentTypeToolResult, ToolResult: &ToolResult{ToolUseID: toolUseID, Content: content}}
}

// contentWire is the flat JSON encoding of a ContentBlock. The payload
// fields of all variants share one object, discriminated by Type.
type contentWire struct {
	Type      ContentType     `json:"type"`
	Text      *string         `json:"text,omitempty"`
	URL       string          `json:"url,omitempty"`
	Base64    string          `json:"base64,omitempty"`
	MediaType string          `json:"mediaType,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"toolUseId,omitempty"`
	Content   *string         `json:"content,omitempty"`
	IsError   bool            `json:"isError,omitempty"`
}

// MarshalJSON encodes the block as a flat object discriminated by "type".
func (b ContentBlock) MarshalJSON() ([]byte, error) {
	w := contentWire{Type: b.Type}
	switch b.Type {
	case ContentTypeText:
		w.Text = &b.Text
	case ContentTypeImage:
		if b.Image != nil {
			w.URL = b.Image.URL
			w.Base64 = b.Image.Base64
			w.MediaType = b.Image.MediaType
		}
	case ContentTypeToolUse:
		if b.ToolUse != nil {
			w.ID = b.ToolUse.ID
			w.Name = b.ToolUse.Name
			w.Input = b.ToolUse.Input
		}
	case ContentTypeToolResult:
		if b.ToolResult != nil {
			w.ToolUseID = b.ToolResult.ToolUseID
			w.Content = &b.ToolResult.Content
			w.IsError = b.ToolResult.IsError
		}
	default:
		return nil, fmt.Errorf("unknown content block type %q", b.Type)
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes a flat content block object, rejecting unknown types.
func (b *ContentBlock) UnmarshalJSON(data []byte) error {
	var w contentWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	switch w.Type {
	case ContentTypeText:
		text := ""
		if w.Text != nil {
			text = *w.Text
		}
		*b = ContentBlock{Type: ContentTypeText, Text: text}
	case ContentTypeImage:
		*b = ContentBlock{Type: ContentTypeImage, Image: &ImageSource{
			URL:       w.URL,
			Base64:    w.Base64,
			MediaType: w.MediaType,
		}}
	case ContentTypeToolUse:
		*b = ContentBlock{Type: ContentTypeToolUse, ToolUse: &ToolUse{
			ID:    w.ID,
			Name:  w.Name,
			Input: w.Input,
		}}
	case ContentTypeToolResult:
		content := ""
		if w.Content != nil {
			content = *w.Content
		}
		*b = ContentBlock{Type: ContentTypeToolResult, ToolResult: &ToolResult{
			ToolUseID: w.ToolUseID,
			Content:   content,
			IsError:   w.IsError,
		}}
	default:
		return fmt.Errorf("unknown content block type %q", w.Type)
	}
	return nil
}

// Validate checks that the payload matches the declared type.
func (b *ContentBlock) Validate() error {
	switch b.Type {
	case ContentTypeText:
		// Empty text is legal inside a block; the message-level invariant
		// only requires a non-empty block sequence.
		return nil
	case ContentTypeImage:
		if b.Image == nil {
			return fmt.Errorf("image block missing payload")
		}
		if b.Image.URL == "" && b.Image.Base64 == "" {
			return fmt.Errorf("image block requires url or base64")
		}
		if b.Image.Base64 != "" && b.Image.MediaType == "" {
			return fmt.Errorf("inline image requires mediaType")
		}
		return nil
	case ContentTypeToolUse:
		if b.ToolUse == nil {
			return fmt.Errorf("tool_use block missing payload")
		}
		if b.ToolUse.ID == "" || b.ToolUse.Name == "" {
			return fmt.Errorf("tool_use block requires id and name")
		}
		return nil
	case ContentTypeToolResult:
		if b.ToolResult == nil {
			return fmt.Errorf("tool_result block missing payload")
		}
		if b.ToolResult.ToolUseID == "" {
			return fmt.Errorf("tool_result block requires toolUseId")
		}
		return nil
	default:
		return fmt.Errorf("unknown content block type %q", b.Type)
	}
}

// clone returns a deep copy of the block.
func (b ContentBlock) clone() ContentBlock {
	out := b
	if b.Image != nil {
		img := *b.Image
		out.Image = &img
	}
	if b.ToolUse != nil {
		tu := *b.ToolUse
		tu.Input = append(json.RawMessage(nil), b.ToolUse.Input...)
		out.ToolUse = &tu
	}
	if b.ToolResult != nil {
		tr := *b.ToolResult
		out.ToolResult = &tr
	}
	return out
}
