package backends

import (
	"fmt"
	"strings"

	"github.com/johnhenry/ai.matey-sub001/pkg/ir"
)

// SystemMergeSeparator joins system messages merged into one.
const SystemMergeSeparator = "\n"

// Normalize maps a canonical request into the shape a backend declares it
// can execute: the system-message strategy is applied, out-of-range
// parameters are clamped into the backend's native ranges, unsupported
// parameters and content are dropped, and an estimated context overflow is
// flagged. Every semantic change appends a warning to the returned copy's
// metadata. The input request is never mutated.
func Normalize(req *ir.ChatRequest, caps Capabilities, source string) *ir.ChatRequest {
	out := req.Clone()

	normalizeSystemMessages(out, caps, source)
	normalizeParameters(out, caps, source)
	normalizeTools(out, caps, source)
	normalizeContent(out, caps, source)

	if caps.MaxContextTokens > 0 {
		if estimate := EstimateTokens(out); estimate > caps.MaxContextTokens {
			out.Metadata.AddWarning(ir.Warning{
				Category:         ir.WarnContextOverflow,
				Severity:         ir.SeverityError,
				Message:          fmt.Sprintf("estimated prompt of %d tokens exceeds declared context window of %d", estimate, caps.MaxContextTokens),
				Field:            "messages",
				OriginalValue:    estimate,
				TransformedValue: caps.MaxContextTokens,
				Source:           source,
			})
		}
	}
	return out
}

// normalizeSystemMessages applies the backend's system-message strategy.
// Backends that accept a single system message get the request's system
// messages merged in order; prepend-user backends additionally get the
// merged text folded into the first user turn.
func normalizeSystemMessages(req *ir.ChatRequest, caps Capabilities, source string) {
	systems := req.SystemMessages()
	if len(systems) == 0 {
		return
	}

	merged := len(systems) > 1 && !caps.MultiSystem
	if merged {
		texts := make([]string, len(systems))
		for i := range systems {
			texts[i] = systems[i].Text()
		}
		mergedMsg := ir.TextMessage(ir.RoleSystem, strings.Join(texts, SystemMergeSeparator))

		var rest []ir.Message
		for _, m := range req.Messages {
			if m.Role != ir.RoleSystem {
				rest = append(rest, m)
			}
		}
		req.Messages = append([]ir.Message{mergedMsg}, rest...)
		req.Metadata.AddWarning(ir.MergeWarning(source, len(systems)))
	}

	if caps.SystemMessages != SystemPrependUser {
		return
	}

	// Fold the (single) system message into the first user turn.
	var systemText string
	var rest []ir.Message
	for _, m := range req.Messages {
		if m.Role == ir.RoleSystem {
			if systemText != "" {
				systemText += SystemMergeSeparator
			}
			systemText += m.Text()
			continue
		}
		rest = append(rest, m)
	}
	if systemText == "" {
		return
	}
	folded := false
	for i := range rest {
		if rest[i].Role == ir.RoleUser {
			rest[i].Content = append([]ir.ContentBlock{ir.TextContent(systemText + SystemMergeSeparator)}, rest[i].Content...)
			folded = true
			break
		}
	}
	if !folded {
		// No user turn to fold into: demote the system text to a user message.
		rest = append([]ir.Message{ir.TextMessage(ir.RoleUser, systemText)}, rest...)
	}
	req.Messages = rest
	req.Metadata.AddWarning(ir.Warning{
		Category:         ir.WarnMessagesMerged,
		Severity:         ir.SeverityWarning,
		Message:          "system instructions folded into the first user message",
		Field:            "messages",
		OriginalValue:    "system",
		TransformedValue: "user",
		Source:           source,
	})
}

// normalizeParameters clamps supported parameters into native ranges and
// drops unsupported ones.
func normalizeParameters(req *ir.ChatRequest, caps Capabilities, source string) {
	p := &req.Parameters
	support := caps.Parameters

	if p.Temperature != nil {
		if !support.Temperature {
			req.Metadata.AddWarning(ir.DropWarning(source, "temperature", *p.Temperature))
			p.Temperature = nil
		} else if ceiling := caps.TemperatureCeiling(); *p.Temperature > ceiling {
			req.Metadata.AddWarning(ir.ClampWarning(source, "temperature", *p.Temperature, ceiling))
			p.Temperature = ir.Float64(ceiling)
		}
	}
	if p.TopP != nil && !support.TopP {
		req.Metadata.AddWarning(ir.DropWarning(source, "topP", *p.TopP))
		p.TopP = nil
	}
	if p.TopK != nil && !support.TopK {
		req.Metadata.AddWarning(ir.DropWarning(source, "topK", *p.TopK))
		p.TopK = nil
	}
	if p.MaxTokens != nil {
		if !support.MaxTokens {
			req.Metadata.AddWarning(ir.DropWarning(source, "maxTokens", *p.MaxTokens))
			p.MaxTokens = nil
		} else if caps.MaxContextTokens > 0 && *p.MaxTokens > caps.MaxContextTokens {
			req.Metadata.AddWarning(ir.ClampWarning(source, "maxTokens", *p.MaxTokens, caps.MaxContextTokens))
			p.MaxTokens = ir.Int(caps.MaxContextTokens)
		}
	}
	if p.Seed != nil && !support.Seed {
		req.Metadata.AddWarning(ir.DropWarning(source, "seed", *p.Seed))
		p.Seed = nil
	}
	if len(p.Stop) > 0 {
		if !support.Stop {
			req.Metadata.AddWarning(ir.DropWarning(source, "stop", p.Stop))
			p.Stop = nil
		} else if support.MaxStopSequences > 0 && len(p.Stop) > support.MaxStopSequences {
			req.Metadata.AddWarning(ir.ClampWarning(source, "stop", len(p.Stop), support.MaxStopSequences))
			p.Stop = p.Stop[:support.MaxStopSequences]
		}
	}
}

// normalizeTools drops tool definitions a backend cannot execute. Dropping
// tools changes behavior substantially, so the warning carries error
// severity.
func normalizeTools(req *ir.ChatRequest, caps Capabilities, source string) {
	if len(req.Tools) == 0 || caps.Tools {
		return
	}
	names := make([]string, len(req.Tools))
	for i := range req.Tools {
		names[i] = req.Tools[i].Name
	}
	req.Metadata.AddWarning(ir.Warning{
		Category:      ir.WarnFeatureDropped,
		Severity:      ir.SeverityError,
		Message:       "backend does not support tools; definitions dropped",
		Field:         "tools",
		OriginalValue: names,
		Source:        source,
	})
	req.Tools = nil
	req.ToolChoice = nil
}

// normalizeContent drops image blocks for text-only backends, keeping the
// message content invariant (never empty) intact.
func normalizeContent(req *ir.ChatRequest, caps Capabilities, source string) {
	if caps.MultiModal {
		return
	}
	dropped := 0
	for i := range req.Messages {
		var kept []ir.ContentBlock
		for _, b := range req.Messages[i].Content {
			if b.Type == ir.ContentTypeImage {
				dropped++
				continue
			}
			kept = append(kept, b)
		}
		if len(kept) == 0 {
			kept = []ir.ContentBlock{ir.TextContent("")}
		}
		req.Messages[i].Content = kept
	}
	if dropped > 0 {
		req.Metadata.AddWarning(ir.Warning{
			Category:      ir.WarnFeatureDropped,
			Severity:      ir.SeverityError,
			Message:       "backend does not support image content; blocks dropped",
			Field:         "messages",
			OriginalValue: dropped,
			Source:        source,
		})
	}
}
