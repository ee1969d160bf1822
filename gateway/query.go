package gateway

import "github.com/ariavoice/control-plane/types"

// Mode distinguishes the two authorization tiers a query can carry.
type Mode string

const (
	ModeOwner Mode = "owner"
	ModeGuest Mode = "guest"
)

// Query is the canonical internal request shape every external wire
// format (OpenAI chat-completions, Responses API) is translated into
// before admission control and routing see it. Immutable once accepted.
type Query struct {
	Text        string
	SessionID   string
	DeviceID    string
	Room        string
	Mode        Mode
	Streaming   bool
	Temperature float32
	MaxTokens   int
	Tools       []types.ToolSchema
	RequestID   string
}

// LastUserText returns the content of the most recent user-role message,
// matching the teacher's chat handler's convention of reading the final
// turn for classification purposes.
func LastUserText(messages []types.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == types.RoleUser {
			return messages[i].Content
		}
	}
	return ""
}
