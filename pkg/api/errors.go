package api

import "fmt"

// BindingError reports positional arguments that cannot be bound against a
// tool's schema, e.g. more positional arguments than declared properties.
// It is raised at marshalling time, before any round trip.
type BindingError struct {
	ToolName string
	Message  string
}

// Error implements the error interface.
func (e *BindingError) Error() string {
	return fmt.Sprintf("cannot bind arguments for tool %q: %s", e.ToolName, e.Message)
}

// NewBindingError creates a BindingError for the named tool.
func NewBindingError(toolName, format string, args ...any) *BindingError {
	return &BindingError{ToolName: toolName, Message: fmt.Sprintf(format, args...)}
}

// SchemaError reports a tool schema that is missing or malformed. This is a
// setup defect, not a recoverable runtime condition.
type SchemaError struct {
	ToolName string
	Message  string
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	return fmt.Sprintf("invalid schema for tool %q: %s", e.ToolName, e.Message)
}

// NewSchemaError creates a SchemaError for the named tool.
func NewSchemaError(toolName, format string, args ...any) *SchemaError {
	return &SchemaError{ToolName: toolName, Message: fmt.Sprintf(format, args...)}
}

// ToolDeclinedError is raised into the guest's call site when an elicitation
// round-trip ends in a decline. The message embeds the tool name and the
// decline's error or retry content so guest tracebacks are actionable.
type ToolDeclinedError struct {
	ToolName string
	Content  map[string]any
}

// Error implements the error interface.
func (e *ToolDeclinedError) Error() string {
	if retry, ok := e.Content["retry"].(string); ok && retry != "" {
		return fmt.Sprintf("tool %q requested retry: %s", e.ToolName, retry)
	}
	msg, ok := e.Content["error"].(string)
	if !ok || msg == "" {
		msg = "unknown error"
	}
	return fmt.Sprintf("tool execution failed for %q: %s", e.ToolName, msg)
}

// ToolCallError is the single failure type guest tool functions raise.
// Callers never see the underlying transport or decode error type directly.
type ToolCallError struct {
	ToolName string
	Err      error
}

// Error implements the error interface.
func (e *ToolCallError) Error() string {
	return fmt.Sprintf("error calling tool %q: %v", e.ToolName, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ToolCallError) Unwrap() error {
	return e.Err
}

// ToolRetryError is returned by a tool registry when the tool layer requests
// a retry with more context. The host adapter turns it into a structured
// decline rather than a plain error string.
type ToolRetryError struct {
	ToolName   string
	ToolCallID string
	Message    string
}

// Error implements the error interface.
func (e *ToolRetryError) Error() string {
	return fmt.Sprintf("tool %q requested retry: %s", e.ToolName, e.Message)
}

// ModelRetryError is a model-level retry failure from the host's tool layer.
// Unlike ToolRetryError it carries no structured retry payload.
type ModelRetryError struct {
	Message string
}

// Error implements the error interface.
func (e *ModelRetryError) Error() string {
	return fmt.Sprintf("model retry failed: %s", e.Message)
}
