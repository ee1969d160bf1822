package smarthome

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ariavoice/control-plane/llm"
	"github.com/ariavoice/control-plane/types"
)

// llmIntentResponse is the JSON shape the LLM is asked to emit; field
// names match the source prompt's schema exactly.
type llmIntentResponse struct {
	DeviceType       string         `json:"device_type"`
	Room             string         `json:"room"`
	ExcludedRooms    []string       `json:"excluded_rooms"`
	Action           string         `json:"action"`
	TargetScope      string         `json:"target_scope"`
	Parameters       map[string]any `json:"parameters"`
	ColorDescription string         `json:"color_description"`
}

// ExtractWithLLM builds a prompt from the turn context, calls the
// configured provider, and parses its JSON output. On parse failure it
// degrades to a minimal turn-on/turn-off heuristic intent rather than
// erroring, per spec §4.5.
func ExtractWithLLM(ctx context.Context, provider llm.Provider, model string, query string, lightCount int, currentRoom string, previousTurn string) (Intent, error) {
	prompt := buildIntentPrompt(query, lightCount, currentRoom, previousTurn)

	resp, err := provider.Completion(ctx, &llm.ChatRequest{
		Model:       model,
		Messages:    []types.Message{{Role: types.RoleUser, Content: prompt}},
		Temperature: 0.1,
		MaxTokens:   300,
	})
	if err != nil {
		return heuristicFallback(query), nil
	}
	if len(resp.Choices) == 0 {
		return heuristicFallback(query), nil
	}

	raw := strings.TrimSpace(resp.Choices[0].Message.Content)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var parsed llmIntentResponse
	if jsonErr := json.Unmarshal([]byte(raw), &parsed); jsonErr != nil {
		return heuristicFallback(query), nil
	}

	return Intent{
		DeviceType:       DeviceType(parsed.DeviceType),
		Room:             parsed.Room,
		ExcludedRooms:    parsed.ExcludedRooms,
		Action:           Action(parsed.Action),
		TargetScope:      TargetScope(parsed.TargetScope),
		Parameters:       parsed.Parameters,
		ColorDescription: parsed.ColorDescription,
	}, nil
}

// heuristicFallback is the minimal degrade path: classify turn-on vs
// turn-off from the raw query when structured extraction is unavailable.
func heuristicFallback(query string) Intent {
	q := strings.ToLower(query)
	action := ActionTurnOff
	if strings.Contains(q, "on") && !strings.Contains(q, "off") {
		action = ActionTurnOn
	}
	return Intent{DeviceType: DeviceLight, Action: action, TargetScope: ScopeGroup}
}

func buildIntentPrompt(query string, lightCount int, currentRoom string, previousTurn string) string {
	var b strings.Builder
	b.WriteString("You are a smart home assistant that extracts structured control intents from natural language.\n\n")
	fmt.Fprintf(&b, "User request: %q\n", query)
	fmt.Fprintf(&b, "Current room: %s\n", currentRoom)
	fmt.Fprintf(&b, "Light count: %d\n", lightCount)
	if previousTurn != "" {
		fmt.Fprintf(&b, "Previous turn: %s\n", previousTurn)
	}
	b.WriteString(`
Respond with JSON only:
{
  "device_type": "light|switch|scene|climate|lock|fan|cover|media_player|bed_warmer|sensor",
  "room": "room name, a room group name, or 'whole_house'",
  "excluded_rooms": [],
  "action": "turn_on|turn_off|lock|unlock|get_status|set_color|set_level|increase|decrease|open|close|warm_bed|activate",
  "target_scope": "group|all_individual|single",
  "parameters": {},
  "color_description": null
}

When the user says "except [room]" or "but not [room]", set room="whole_house" and excluded_rooms=["room_name"].
`)
	return b.String()
}
