package backends

import (
	"strings"

	"github.com/johnhenry/ai.matey-sub001/pkg/ir"
)

// SystemMessageStrategy declares how a backend accepts system instructions.
type SystemMessageStrategy string

// System message strategy constants
const (
	// SystemSeparateParameter sends the system text in a dedicated
	// request field outside the message list.
	SystemSeparateParameter SystemMessageStrategy = "separate-parameter"

	// SystemInMessages keeps system messages inline in the message list.
	SystemInMessages SystemMessageStrategy = "in-messages"

	// SystemPrependUser folds the system text into the first user turn.
	SystemPrependUser SystemMessageStrategy = "prepend-user"
)

// ParameterSupport declares which canonical parameters a backend accepts
// and the native range it clamps them into. A zero range max means the
// canonical maximum applies.
type ParameterSupport struct {
	// Temperature reports temperature support.
	Temperature bool `json:"temperature"`

	// TemperatureMax is the native temperature ceiling (0 = canonical).
	TemperatureMax float64 `json:"temperatureMax,omitempty"`

	// TopP reports nucleus sampling support.
	TopP bool `json:"topP"`

	// TopK reports top-K sampling support.
	TopK bool `json:"topK"`

	// MaxTokens reports completion-cap support.
	MaxTokens bool `json:"maxTokens"`

	// Seed reports deterministic sampling support.
	Seed bool `json:"seed"`

	// Stop reports stop-sequence support.
	Stop bool `json:"stop"`

	// MaxStopSequences caps the stop list length (0 = no declared cap).
	MaxStopSequences int `json:"maxStopSequences,omitempty"`
}

// Capabilities is the static declaration of what a backend supports.
// The router consults it for model-based selection; normalization consults
// it to decide what to clamp, merge, or drop.
type Capabilities struct {
	// Streaming reports incremental delivery support.
	Streaming bool `json:"streaming"`

	// MultiModal reports image content support.
	MultiModal bool `json:"multiModal"`

	// Tools reports tool/function calling support.
	Tools bool `json:"tools"`

	// MaxContextTokens is the declared context window (0 = unknown).
	MaxContextTokens int `json:"maxContextTokens,omitempty"`

	// Models lists exactly supported model identifiers.
	Models []string `json:"models,omitempty"`

	// ModelPatterns lists supported model patterns with '*' wildcards
	// (e.g. "pilot-*").
	ModelPatterns []string `json:"modelPatterns,omitempty"`

	// SystemMessages is the backend's system-message strategy.
	SystemMessages SystemMessageStrategy `json:"systemMessages"`

	// MultiSystem reports native support for several system messages.
	// When false, normalization merges them into one.
	MultiSystem bool `json:"multiSystem"`

	// Parameters declares per-parameter support and native ranges.
	Parameters ParameterSupport `json:"parameters"`
}

// TemperatureCeiling returns the effective native temperature maximum.
func (c Capabilities) TemperatureCeiling() float64 {
	if c.Parameters.TemperatureMax > 0 {
		return c.Parameters.TemperatureMax
	}
	return ir.TemperatureMax
}

// SupportsModel reports whether model matches the declared identifiers or
// patterns. An empty declaration matches everything: a backend that lists
// nothing is assumed model-agnostic.
func (c Capabilities) SupportsModel(model string) bool {
	_, ok := c.ModelMatchScore(model)
	return ok
}

// ModelMatchScore scores how specifically the declaration matches model.
// Exact identifier matches outrank any pattern; among patterns, the one
// with the most non-wildcard characters wins. A declaration with no models
// and no patterns matches everything with the lowest score. The boolean
// reports whether the model matched at all.
func (c Capabilities) ModelMatchScore(model string) (int, bool) {
	if len(c.Models) == 0 && len(c.ModelPatterns) == 0 {
		return 0, true
	}
	for _, m := range c.Models {
		if m == model {
			// Exact matches always outrank pattern matches.
			return len(model) + 1, true
		}
	}
	best := -1
	for _, pattern := range c.ModelPatterns {
		if !matchPattern(pattern, model) {
			continue
		}
		if score := patternSpecificity(pattern); score > best {
			best = score
		}
	}
	if best < 0 {
		return 0, false
	}
	return best, true
}

// matchPattern matches model against a pattern where '*' matches any run
// of characters, anchored at both ends.
func matchPattern(pattern, model string) bool {
	parts := strings.Split(pattern, "*")
	if len(parts) == 1 {
		return pattern == model
	}
	if !strings.HasPrefix(model, parts[0]) {
		return false
	}
	rest := model[len(parts[0]):]
	for i := 1; i < len(parts)-1; i++ {
		idx := strings.Index(rest, parts[i])
		if idx < 0 {
			return false
		}
		rest = rest[idx+len(parts[i]):]
	}
	return strings.HasSuffix(rest, parts[len(parts)-1])
}

// patternSpecificity counts the non-wildcard characters of a pattern.
func patternSpecificity(pattern string) int {
	return len(strings.ReplaceAll(pattern, "*", ""))
}
