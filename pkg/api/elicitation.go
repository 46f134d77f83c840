package api

import (
	"encoding/json"
	"fmt"
)

// ActionDiscoverTools is the reserved action marker that distinguishes a
// discovery request from a tool execution request on the elicitation channel.
const ActionDiscoverTools = "discover_tools"

// Elicitation outcome actions.
const (
	ActionAccept  = "accept"
	ActionDecline = "decline"
)

// Outcome is the single reply to one elicitation request. Every request
// terminates in exactly one accept or decline.
type Outcome struct {
	Action  string         `json:"action"`
	Content map[string]any `json:"content,omitempty"`
}

// Accept builds a successful outcome carrying the given content.
func Accept(content map[string]any) Outcome {
	return Outcome{Action: ActionAccept, Content: content}
}

// Decline builds a failed outcome carrying the given content. Content must
// include at least an "error" or "retry" entry; use DeclineError for the
// common case.
func Decline(content map[string]any) Outcome {
	return Outcome{Action: ActionDecline, Content: content}
}

// DeclineError builds a decline outcome carrying a plain error message.
func DeclineError(format string, args ...any) Outcome {
	return Decline(map[string]any{"error": fmt.Sprintf(format, args...)})
}

// Validate checks the outcome invariants: a known action, and decline content
// that is never empty of both "error" and "retry".
func (o Outcome) Validate() error {
	switch o.Action {
	case ActionAccept:
		return nil
	case ActionDecline:
		if errVal, ok := o.Content["error"].(string); ok && errVal != "" {
			return nil
		}
		if retryVal, ok := o.Content["retry"].(string); ok && retryVal != "" {
			return nil
		}
		return fmt.Errorf("decline content must carry a non-empty error or retry entry")
	default:
		return fmt.Errorf("unknown outcome action %q", o.Action)
	}
}

// DiscoveryMessage returns the serialized elicitation message requesting the
// host's current tool set.
func DiscoveryMessage() string {
	return fmt.Sprintf(`{"action":%q}`, ActionDiscoverTools)
}

// Discovery is the payload of a successful discovery reply.
type Discovery struct {
	ToolNames   []string                    `json:"tool_names"`
	ToolSchemas map[string]ParametersSchema `json:"tool_schemas"`
}

// DecodeDiscovery parses the JSON-encoded discovery payload carried in an
// accept outcome's "data" entry.
func DecodeDiscovery(data string) (*Discovery, error) {
	var d Discovery
	if err := json.Unmarshal([]byte(data), &d); err != nil {
		return nil, fmt.Errorf("decoding discovery payload: %w", err)
	}
	return &d, nil
}
