// Package marshal converts guest-side calls with positional and keyword
// arguments into schema-conformant tool-call requests, and converts host
// replies back into guest-native values.
package marshal

import (
	"encoding/json"
	"fmt"

	"github.com/rhuss/codebridge/pkg/api"
)

// BindArgs resolves positional and keyword arguments against a tool's schema
// into the final argument mapping. The schema's declared property order is
// the only source of positional semantics.
//
// Binding precedence:
//  1. No positional arguments: the keyword arguments verbatim.
//  2. Exactly one positional argument and the schema declares at least one
//     property: if the argument is itself a mapping it is merged with the
//     keyword arguments, otherwise it binds to the first declared property.
//  3. Two or more positional arguments bind in declared property order.
//
// Keyword arguments win every key collision. Supplying more positional
// arguments than declared properties is a BindingError, never a truncation.
func BindArgs(schema api.ToolSchema, positional []any, keyword map[string]any) (map[string]any, error) {
	if !schema.Parameters.HasProperties() {
		return nil, api.NewSchemaError(schema.Name, "schema missing 'properties' field")
	}
	properties := schema.Parameters.PropertyNames()

	switch {
	case len(positional) == 0:
		return copyArgs(keyword), nil

	case len(positional) == 1 && len(properties) > 0:
		first := positional[0]
		if mapping, ok := asMapping(first); ok {
			return mergeArgs(mapping, keyword), nil
		}
		return mergeArgs(map[string]any{properties[0]: first}, keyword), nil

	default:
		if len(positional) > len(properties) {
			return nil, api.NewBindingError(schema.Name,
				"received %d positional arguments but schema declares only %d parameters",
				len(positional), len(properties))
		}
		bound := make(map[string]any, len(positional)+len(keyword))
		for i, arg := range positional {
			bound[properties[i]] = arg
		}
		for k, v := range keyword {
			bound[k] = v
		}
		return bound, nil
	}
}

// NewRequest binds the arguments and wraps them in a tool-call request with
// a fresh call ID.
func NewRequest(schema api.ToolSchema, positional []any, keyword map[string]any) (*api.ToolCallRequest, error) {
	args, err := BindArgs(schema, positional, keyword)
	if err != nil {
		return nil, err
	}
	return &api.ToolCallRequest{
		ToolName:   schema.Name,
		ToolCallID: api.NewToolCallID(),
		Args:       args,
	}, nil
}

// EncodeRequest serializes a tool-call request to a single textual
// elicitation message.
func EncodeRequest(req *api.ToolCallRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", fmt.Errorf("invalid tool call request: %w", err)
	}
	data, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encoding tool call request: %w", err)
	}
	return string(data), nil
}

// asMapping reports whether v is a JSON-style mapping, returning it as
// map[string]any when it is.
func asMapping(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

// copyArgs returns a caller-owned copy of the keyword arguments. A nil input
// yields an empty, non-nil mapping.
func copyArgs(keyword map[string]any) map[string]any {
	out := make(map[string]any, len(keyword))
	for k, v := range keyword {
		out[k] = v
	}
	return out
}

// mergeArgs overlays keyword arguments on top of base. Neither input is
// mutated.
func mergeArgs(base, keyword map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(keyword))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range keyword {
		out[k] = v
	}
	return out
}
