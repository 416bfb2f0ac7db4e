package ir

// WarningCategory classifies the kind of semantic transformation recorded.
type WarningCategory string

// Warning category constants
const (
	// WarnParameterNormalized records a lossless parameter translation
	// (e.g. canonical range rescaled into a provider native range).
	WarnParameterNormalized WarningCategory = "parameter-normalized"

	// WarnParameterClamped records an out-of-range parameter forced to
	// the nearest supported value.
	WarnParameterClamped WarningCategory = "parameter-clamped"

	// WarnMessagesMerged records system messages concatenated because the
	// backend supports only one.
	WarnMessagesMerged WarningCategory = "messages-merged"

	// WarnFeatureDropped records a requested feature the backend cannot
	// express (e.g. seed, topK) being removed.
	WarnFeatureDropped WarningCategory = "unsupported-feature-dropped"

	// WarnContextOverflow records a prompt estimated to exceed the
	// backend's declared context window.
	WarnContextOverflow WarningCategory = "context-overflow"

	// WarnContentTransformed records content rewritten by a transform
	// stage (e.g. HTML converted to Markdown).
	WarnContentTransformed WarningCategory = "content-transformed"

	// WarnToolArgumentsRepaired records malformed tool-call JSON that was
	// repaired before translation.
	WarnToolArgumentsRepaired WarningCategory = "tool-arguments-repaired"
)

// WarningSeverity grades how much a transformation matters.
type WarningSeverity string

// Warning severity constants
const (
	SeverityInfo    WarningSeverity = "info"
	SeverityWarning WarningSeverity = "warning"
	SeverityError   WarningSeverity = "error"
)

// Warning records one observable semantic change applied during
// translation or normalization. Every lossy transformation appends at
// least one warning; no component drops one.
type Warning struct {
	// Category classifies the transformation.
	Category WarningCategory `json:"category"`

	// Severity grades the impact (info, warning, error).
	Severity WarningSeverity `json:"severity"`

	// Message is a human-readable description.
	Message string `json:"message"`

	// Field names the affected field, when one applies.
	Field string `json:"field,omitempty"`

	// OriginalValue is the value before the transformation.
	OriginalValue interface{} `json:"originalValue,omitempty"`

	// TransformedValue is the value after the transformation.
	TransformedValue interface{} `json:"transformedValue,omitempty"`

	// Source names the adapter or stage that applied the transformation.
	Source string `json:"source,omitempty"`
}

// ClampWarning builds a parameter-clamped warning for field with the
// before and after values.
func ClampWarning(source, field string, original, transformed interface{}) Warning {
	return Warning{
		Category:         WarnParameterClamped,
		Severity:         SeverityWarning,
		Message:          "parameter clamped to backend supported range",
		Field:            field,
		OriginalValue:    original,
		TransformedValue: transformed,
		Source:           source,
	}
}

// MergeWarning builds a messages-merged warning for count system messages
// collapsed into one.
func MergeWarning(source string, count int) Warning {
	return Warning{
		Category:         WarnMessagesMerged,
		Severity:         SeverityWarning,
		Message:          "multiple system messages merged into one",
		Field:            "messages",
		OriginalValue:    count,
		TransformedValue: 1,
		Source:           source,
	}
}

// DropWarning builds an unsupported-feature-dropped warning for field.
func DropWarning(source, field string, original interface{}) Warning {
	return Warning{
		Category:      WarnFeatureDropped,
		Severity:      SeverityWarning,
		Message:       "unsupported parameter dropped",
		Field:         field,
		OriginalValue: original,
		Source:        source,
	}
}
