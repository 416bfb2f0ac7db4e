package backends

import (
	"encoding/json"

	"github.com/johnhenry/ai.matey-sub001/pkg/ir"
)

// Character-based token estimation. A chars-per-token ratio of 4 with small
// per-message and per-tool overheads lands within a few percent of real
// tokenizers for English prompts, which is accurate enough for the
// context-window guard this feeds.
const (
	charsPerToken        = 4.0
	messageOverhead      = 3
	toolOverhead         = 10
	imageTokenEstimate   = 768
	conversationOverhead = 3
)

// EstimateTokens estimates the prompt token count of a request.
func EstimateTokens(req *ir.ChatRequest) int {
	total := conversationOverhead
	for i := range req.Messages {
		total += estimateMessage(&req.Messages[i])
	}
	for i := range req.Tools {
		total += estimateTool(&req.Tools[i])
	}
	return total
}

func estimateMessage(m *ir.Message) int {
	total := 1 + messageOverhead // role + formatting
	total += estimateText(m.Name)
	for _, b := range m.Content {
		switch b.Type {
		case ir.ContentTypeText:
			total += estimateText(b.Text)
		case ir.ContentTypeImage:
			total += imageTokenEstimate
		case ir.ContentTypeToolUse:
			if b.ToolUse != nil {
				total += estimateText(b.ToolUse.Name)
				total += estimateText(string(b.ToolUse.Input))
			}
		case ir.ContentTypeToolResult:
			if b.ToolResult != nil {
				total += estimateText(b.ToolResult.Content)
			}
		}
	}
	return total
}

func estimateTool(t *ir.Tool) int {
	total := toolOverhead
	total += estimateText(t.Name)
	total += estimateText(t.Description)
	if t.Parameters != nil {
		if schema, err := json.Marshal(t.Parameters); err == nil {
			total += estimateText(string(schema))
		}
	}
	return total
}

func estimateText(text string) int {
	if text == "" {
		return 0
	}
	tokens := float64(len(text)) / charsPerToken
	if tokens < 1 {
		return 1
	}
	return int(tokens + 0.5)
}
