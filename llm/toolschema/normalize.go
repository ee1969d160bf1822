package toolschema

import (
	"encoding/json"

	"github.com/ariavoice/control-plane/types"
)

// NormalizedFunction is the function half of a normalised tool call:
// arguments are always a JSON-encoded string, matching every provider's
// actual wire format for tool-call arguments (OpenAI and Anthropic both
// send arguments as a string, not a nested object).
type NormalizedFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// NormalizedToolCall is the canonical per-call shape every provider's
// response is reduced to: {id, type: "function", function: {name, arguments}}.
type NormalizedToolCall struct {
	ID       string             `json:"id"`
	Type     string             `json:"type"`
	Function NormalizedFunction `json:"function"`
}

// NormalizeToolCalls converts types.ToolCall (the teacher's own internal
// representation, already {id, name, arguments}) into the canonical
// envelope spec names for responses regardless of which provider produced
// the calls.
func NormalizeToolCalls(calls []types.ToolCall) []NormalizedToolCall {
	if len(calls) == 0 {
		return nil
	}
	out := make([]NormalizedToolCall, 0, len(calls))
	for _, c := range calls {
		out = append(out, NormalizedToolCall{
			ID:   c.ID,
			Type: "function",
			Function: NormalizedFunction{
				Name:      c.Name,
				Arguments: string(c.Arguments),
			},
		})
	}
	return out
}

// DenormalizeToolCalls is the inverse of NormalizeToolCalls, used by the
// round-trip test: it recovers the {name, arguments} pair a provider's raw
// tool-call response carried before normalisation.
func DenormalizeToolCalls(calls []NormalizedToolCall) []types.ToolCall {
	if len(calls) == 0 {
		return nil
	}
	out := make([]types.ToolCall, 0, len(calls))
	for _, c := range calls {
		out = append(out, types.ToolCall{
			ID:        c.ID,
			Name:      c.Function.Name,
			Arguments: json.RawMessage(c.Function.Arguments),
		})
	}
	return out
}
