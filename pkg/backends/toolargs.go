package backends

import (
	"encoding/json"

	"github.com/kaptinlin/jsonrepair"

	"github.com/johnhenry/ai.matey-sub001/pkg/ir"
)

// RepairToolInput validates tool-call argument JSON as providers emit it.
// Models routinely produce almost-JSON (single quotes, trailing commas,
// unquoted keys); valid input passes through untouched, repairable input
// is fixed and reported as a warning, and unrepairable input is a
// conversion failure.
func RepairToolInput(source, raw string) (json.RawMessage, *ir.Warning, error) {
	if raw == "" {
		return json.RawMessage("{}"), nil, nil
	}
	if json.Valid([]byte(raw)) {
		return json.RawMessage(raw), nil, nil
	}

	repaired, err := jsonrepair.JSONRepair(raw)
	if err != nil {
		return nil, nil, ir.WrapError(ir.ErrCodeConversion, err,
			"tool call arguments are not valid JSON and could not be repaired").WithBackend(source)
	}
	if !json.Valid([]byte(repaired)) {
		return nil, nil, ir.Errorf(ir.ErrCodeConversion,
			"tool call arguments still invalid after repair").WithBackend(source)
	}

	warning := &ir.Warning{
		Category:         ir.WarnToolArgumentsRepaired,
		Severity:         ir.SeverityInfo,
		Message:          "malformed tool call arguments repaired",
		Field:            "toolUse.input",
		OriginalValue:    clipForWarning(raw),
		TransformedValue: clipForWarning(repaired),
		Source:           source,
	}
	return json.RawMessage(repaired), warning, nil
}

// clipForWarning bounds payloads embedded in warning values.
func clipForWarning(s string) string {
	const limit = 256
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
