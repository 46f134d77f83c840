package marshal

import (
	"encoding/json"
	"fmt"

	"github.com/rhuss/codebridge/pkg/api"
)

// DecodeReply converts an elicitation outcome into a guest-native value.
//
// An accept outcome's "result" entry is a string-encoded JSON value and is
// decoded one level deeper before being handed to guest code. A decline
// always yields a ToolDeclinedError embedding the tool name and the
// decline's content.
func DecodeReply(outcome api.Outcome, toolName string) (any, error) {
	switch outcome.Action {
	case api.ActionAccept:
		encoded, ok := outcome.Content["result"].(string)
		if !ok {
			return nil, fmt.Errorf("accept reply for tool %q missing string 'result' entry", toolName)
		}
		var value any
		if err := json.Unmarshal([]byte(encoded), &value); err != nil {
			return nil, fmt.Errorf("decoding result for tool %q: %w", toolName, err)
		}
		return value, nil

	case api.ActionDecline:
		return nil, &api.ToolDeclinedError{ToolName: toolName, Content: outcome.Content}

	default:
		return nil, fmt.Errorf("protocol error for tool %q: unexpected action %q", toolName, outcome.Action)
	}
}
