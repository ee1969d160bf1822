package smarthome

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ariavoice/control-plane/llm"
	"github.com/ariavoice/control-plane/types"
)

// Step is one timed action within a sequence.
type Step struct {
	Action      Action         `json:"action"`
	Target      string         `json:"target"`
	Parameters  map[string]any `json:"parameters,omitempty"`
	DelayAfter  int            `json:"delay_after,omitempty"` // seconds
	AtTime      string         `json:"at_time,omitempty"`     // "HH:MM", optional
}

// Sequence is a multi-step timed plan, extracted by a dedicated LLM pass
// when DetectSequence reports true. Grounded on
// smart_home_controller.py's extract_sequence_intent.
type Sequence struct {
	Acknowledge string `json:"acknowledge"`
	Steps       []Step `json:"steps"`
}

var (
	sceneExclusionPhrases = []string{
		"good morning", "good night", "goodnight", "movie mode", "movie time",
		"bedtime", "night mode", "morning mode", "wake up", "romantic mode",
		"date night", "relax mode", "party mode",
	}
	brightnessExclusionPhrases = []string{
		"lights at half", "light at half", "lights to half",
		"lights at fifty", "lights to fifty", "at twenty percent",
		"at thirty percent", "at fifty percent",
	}
	delayPatterns = []string{"wait", "then", "after that", "seconds", "minutes", "pause", "delay"}
	loopPatterns  = []string{"times", "repeat", "cycle", "loop", "again", "on and off", "flash", "blink"}
	schedulePatterns = []string{
		" at ", "pm", "am", "o'clock", "oclock", "tonight", "tomorrow",
		"morning", "evening", "noon", "midnight", "schedule",
	}
)

// DetectSequence reports whether a query requires multi-step, timed
// execution rather than a single immediate action. Named scenes,
// single-brightness commands, and casual filler "then" are excluded, per
// spec §4.5.
func DetectSequence(query string) bool {
	q := strings.ToLower(query)

	if containsAnyHelper(q, sceneExclusionPhrases) {
		return false
	}
	if containsAnyHelper(q, brightnessExclusionPhrases) {
		return false
	}

	hasDelay := containsAnyHelper(q, delayPatterns)
	hasLoop := containsAnyHelper(q, loopPatterns)
	hasSchedule := containsAnyHelper(q, schedulePatterns)
	return hasDelay || hasLoop || hasSchedule
}

// ExtractSequence runs the second LLM pass that turns a query already
// flagged by DetectSequence into a concrete {acknowledge, steps} plan.
// Grounded on extract_sequence_intent's prompt/parse shape; on any
// provider or parse failure it degrades to a single immediate step built
// from the fast-path/heuristic intent rather than erroring, matching
// ExtractWithLLM's degrade behavior.
func ExtractSequence(ctx context.Context, provider llm.Provider, model string, query string, fallback Intent) (Sequence, error) {
	prompt := buildSequencePrompt(query)

	resp, err := provider.Completion(ctx, &llm.ChatRequest{
		Model:       model,
		Messages:    []types.Message{{Role: types.RoleUser, Content: prompt}},
		Temperature: 0.1,
		MaxTokens:   500,
	})
	if err != nil {
		return singleStepSequence(fallback), nil
	}
	if len(resp.Choices) == 0 {
		return singleStepSequence(fallback), nil
	}

	raw := strings.TrimSpace(resp.Choices[0].Message.Content)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var seq Sequence
	if jsonErr := json.Unmarshal([]byte(raw), &seq); jsonErr != nil || len(seq.Steps) == 0 {
		return singleStepSequence(fallback), nil
	}
	return seq, nil
}

func singleStepSequence(intent Intent) Sequence {
	return Sequence{
		Acknowledge: "On it.",
		Steps: []Step{{
			Action:     intent.Action,
			Target:     intent.Room,
			Parameters: intent.Parameters,
		}},
	}
}

func buildSequencePrompt(query string) string {
	var b strings.Builder
	b.WriteString("Break this smart home request into a sequence of timed steps.\n\n")
	fmt.Fprintf(&b, "User request: %q\n", query)
	b.WriteString(`
Respond with JSON only:
{
  "acknowledge": "short voice response confirming the plan",
  "steps": [
    {"action": "turn_on|turn_off|set_color|set_level|warm_bed|...", "target": "room or device", "parameters": {}, "delay_after": 0, "at_time": ""}
  ]
}

delay_after is seconds to wait after this step before the next one runs.
at_time is an optional "HH:MM" clock time instead of a relative delay.
`)
	return b.String()
}
