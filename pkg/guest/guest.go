// Package guest implements the guest half of the bridge: it makes every
// discovered host tool callable as an ordinary function from guest code,
// synchronously, even though resolution happens through an asynchronous host
// round-trip.
package guest

import (
	"context"
	"fmt"
	"strings"

	"github.com/rhuss/codebridge/pkg/api"
	"github.com/rhuss/codebridge/pkg/guest/runloop"
	"github.com/rhuss/codebridge/pkg/marshal"
)

// Namespace models the guest's global scope. Installed tools appear as
// Callable values; guest-defined symbols of any type may coexist.
type Namespace map[string]any

// Callable is a tool function as seen from guest code.
type Callable func(ctx context.Context, positional []any, keyword map[string]any) (any, error)

// SubmitFunc sends one serialized elicitation message and returns a promise
// for the reply. The promise resolves to an api.Outcome. Implementations may
// return an already-settled promise when the channel answers synchronously.
type SubmitFunc func(message string) *runloop.Promise

// Install injects one callable per tool name into the namespace. Installation
// is idempotent: a name already bound in the namespace is left untouched
// rather than overwritten, so guest-defined symbols are never clobbered.
//
// An empty tool list or nil submit function makes Install a no-op. A tool
// without a schema fails installation immediately: that is a setup defect,
// not a recoverable runtime condition.
func Install(ns Namespace, loop *runloop.Loop, tools []string, submit SubmitFunc, schemas map[string]api.ToolSchema) error {
	if len(tools) == 0 || submit == nil {
		return nil
	}
	if len(schemas) == 0 {
		return fmt.Errorf("tool schemas are required for installation")
	}

	for _, toolName := range tools {
		identifier := SanitizeName(toolName)
		if _, bound := ns[identifier]; bound {
			continue
		}

		schema, ok := schemas[toolName]
		if !ok {
			return api.NewSchemaError(toolName, "schema missing, cannot install without schema")
		}

		ns[identifier] = newToolFunction(loop, schema, submit)
	}
	return nil
}

// newToolFunction builds the closure installed for one tool. It captures only
// the tool's schema and the submission function; no dispatch happens at call
// time.
func newToolFunction(loop *runloop.Loop, schema api.ToolSchema, submit SubmitFunc) Callable {
	return func(ctx context.Context, positional []any, keyword map[string]any) (any, error) {
		// Binding and schema defects surface immediately, without a
		// round trip: no valid request can be built from them.
		req, err := marshal.NewRequest(schema, positional, keyword)
		if err != nil {
			return nil, err
		}
		message, err := marshal.EncodeRequest(req)
		if err != nil {
			return nil, err
		}

		value, err := roundTrip(ctx, loop, submit, message)
		if err != nil {
			return nil, &api.ToolCallError{ToolName: schema.Name, Err: err}
		}
		outcome, err := outcomeFrom(value)
		if err != nil {
			return nil, &api.ToolCallError{ToolName: schema.Name, Err: err}
		}
		result, err := marshal.DecodeReply(outcome, schema.Name)
		if err != nil {
			return nil, &api.ToolCallError{ToolName: schema.Name, Err: err}
		}
		return result, nil
	}
}

// Discover performs one discovery round-trip and returns the host's tool
// names together with a schema for each.
func Discover(ctx context.Context, loop *runloop.Loop, submit SubmitFunc) ([]string, map[string]api.ToolSchema, error) {
	if submit == nil {
		return nil, nil, fmt.Errorf("no elicitation submission function configured")
	}

	value, err := roundTrip(ctx, loop, submit, api.DiscoveryMessage())
	if err != nil {
		return nil, nil, fmt.Errorf("tool discovery: %w", err)
	}
	outcome, err := outcomeFrom(value)
	if err != nil {
		return nil, nil, fmt.Errorf("tool discovery: %w", err)
	}
	if outcome.Action != api.ActionAccept {
		return nil, nil, fmt.Errorf("tool discovery declined: %v", outcome.Content["error"])
	}

	data, ok := outcome.Content["data"].(string)
	if !ok {
		return nil, nil, fmt.Errorf("discovery reply missing string 'data' entry")
	}
	discovery, err := api.DecodeDiscovery(data)
	if err != nil {
		return nil, nil, err
	}

	schemas := make(map[string]api.ToolSchema, len(discovery.ToolSchemas))
	for name, params := range discovery.ToolSchemas {
		schemas[name] = api.ToolSchema{Name: name, Parameters: params}
	}
	return discovery.ToolNames, schemas, nil
}

// roundTrip submits one message and blocks the guest's cooperative thread on
// the reply via a nested loop turn.
func roundTrip(ctx context.Context, loop *runloop.Loop, submit SubmitFunc, message string) (any, error) {
	promise := submit(message)
	if promise == nil {
		return nil, fmt.Errorf("submission returned no pending operation")
	}
	return loop.Await(ctx, promise)
}

// outcomeFrom normalizes a settled reply value into an elicitation outcome.
func outcomeFrom(value any) (api.Outcome, error) {
	switch v := value.(type) {
	case api.Outcome:
		return v, nil
	case map[string]any:
		action, _ := v["action"].(string)
		content, _ := v["content"].(map[string]any)
		if action == "" {
			return api.Outcome{}, fmt.Errorf("reply missing action field")
		}
		return api.Outcome{Action: action, Content: content}, nil
	default:
		return api.Outcome{}, fmt.Errorf("unexpected reply type %T", value)
	}
}

// SanitizeName converts a tool name into a valid guest identifier, replacing
// every separator that is not legal in an identifier with "_".
func SanitizeName(toolName string) string {
	var b strings.Builder
	b.Grow(len(toolName))
	for _, r := range toolName {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
