package toolschema

import (
	"encoding/json"

	"github.com/ariavoice/control-plane/types"
)

// OpenAIFunction is the {name, description, parameters} body of an OpenAI
// canonical tool entry.
type OpenAIFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters"`
}

// OpenAITool is the canonical shape spec names: {type: "function", function: {...}}.
type OpenAITool struct {
	Type     string         `json:"type"`
	Function OpenAIFunction `json:"function"`
}

// ToOpenAI is the identity conversion: types.ToolSchema already mirrors the
// canonical OpenAI function-tool shape field-for-field, so this just wraps
// it in the {type, function} envelope OpenAI-compatible backends expect.
func ToOpenAI(tools []types.ToolSchema) []OpenAITool {
	if len(tools) == 0 {
		return nil
	}
	out := make([]OpenAITool, 0, len(tools))
	for _, t := range tools {
		out = append(out, OpenAITool{
			Type: "function",
			Function: OpenAIFunction{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	return out
}

// AnthropicTool is Anthropic's {name, description, input_schema} tool shape.
type AnthropicTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema"`
}

// ToAnthropic renames Parameters to input_schema; Anthropic has no separate
// envelope the way OpenAI's function wrapper does.
func ToAnthropic(tools []types.ToolSchema) []AnthropicTool {
	if len(tools) == 0 {
		return nil
	}
	out := make([]AnthropicTool, 0, len(tools))
	for _, t := range tools {
		out = append(out, AnthropicTool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.Parameters,
		})
	}
	return out
}

// GoogleFunctionDeclaration is one entry of Google's function_declarations list.
type GoogleFunctionDeclaration struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters"`
}

// GoogleTools is Google's {function_declarations: [...]} tool envelope.
type GoogleTools struct {
	FunctionDeclarations []GoogleFunctionDeclaration `json:"function_declarations"`
}

// ToGoogle wraps every tool into a single function_declarations list, the
// shape google.golang.org/genai expects.
func ToGoogle(tools []types.ToolSchema) GoogleTools {
	if len(tools) == 0 {
		return GoogleTools{}
	}
	decls := make([]GoogleFunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		decls = append(decls, GoogleFunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.Parameters,
		})
	}
	return GoogleTools{FunctionDeclarations: decls}
}

// ToLocal passes the canonical schema through unchanged; local inference
// backends accept the same {name, description, parameters} shape OpenAI
// does, so no conversion is needed.
func ToLocal(tools []types.ToolSchema) []types.ToolSchema {
	return tools
}
