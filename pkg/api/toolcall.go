package api

import (
	"fmt"

	"github.com/google/uuid"
)

// ToolCallRequest is one tool invocation built by the guest bridge. It is
// created and consumed entirely within the lifetime of one guest call.
type ToolCallRequest struct {
	// ToolName matches a ToolSchema.Name.
	ToolName string `json:"tool_name"`

	// ToolCallID is a freshly generated token, unique per call, used for
	// correlation and logging. Never reused.
	ToolCallID string `json:"tool_call_id"`

	// Args maps parameter name to value. Fully resolved before
	// transmission: no positional placeholders remain.
	Args map[string]any `json:"args"`
}

// NewToolCallID generates a fresh tool call identifier.
func NewToolCallID() string {
	return uuid.NewString()
}

// Validate checks the structural requirements of a tool-call request.
// A nil Args is accepted and treated as an empty argument set.
func (r *ToolCallRequest) Validate() error {
	if r.ToolName == "" {
		return fmt.Errorf("tool_name is required")
	}
	if r.ToolCallID == "" {
		return fmt.Errorf("tool_call_id is required")
	}
	return nil
}
