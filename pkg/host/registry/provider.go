// Package registry provides a pluggable, provider-based implementation of
// the host tool registry. Each provider contributes a set of tool schemas
// and an execution handler, plus optional Prometheus collectors for
// provider-specific metrics. The Registry aggregates providers and
// implements host.Registry.
package registry

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rhuss/codebridge/pkg/api"
	"github.com/rhuss/codebridge/pkg/host"
)

// Provider is a pluggable tool provider.
type Provider interface {
	// Name returns a unique identifier for this provider (e.g. "weather").
	Name() string

	// Tools returns the tool schemas this provider contributes.
	Tools() []api.ToolSchema

	// Execute runs a tool call and returns a JSON-serializable result.
	Execute(ctx context.Context, rc host.RunContext, call api.ToolCallRequest) (any, error)

	// Collectors returns Prometheus collectors for provider-specific metrics.
	Collectors() []prometheus.Collector

	// Close releases any resources held by the provider.
	Close() error
}

// ToolFunc is the execution handler of a single static tool.
type ToolFunc func(ctx context.Context, rc host.RunContext, args map[string]any) (any, error)

// StaticProvider is a Provider backed by an in-memory table of tool
// functions. It is the simplest way to expose host-side Go functions to
// guest code.
type StaticProvider struct {
	name    string
	order   []api.ToolSchema
	handler map[string]ToolFunc
}

// NewStaticProvider creates an empty static provider.
func NewStaticProvider(name string) *StaticProvider {
	return &StaticProvider{name: name, handler: make(map[string]ToolFunc)}
}

// Add registers one tool. Re-adding a name replaces its handler.
func (p *StaticProvider) Add(schema api.ToolSchema, fn ToolFunc) *StaticProvider {
	if _, exists := p.handler[schema.Name]; !exists {
		p.order = append(p.order, schema)
	}
	p.handler[schema.Name] = fn
	return p
}

// Name implements Provider.
func (p *StaticProvider) Name() string { return p.name }

// Tools implements Provider, returning schemas in registration order.
func (p *StaticProvider) Tools() []api.ToolSchema {
	out := make([]api.ToolSchema, len(p.order))
	copy(out, p.order)
	return out
}

// Execute implements Provider.
func (p *StaticProvider) Execute(ctx context.Context, rc host.RunContext, call api.ToolCallRequest) (any, error) {
	fn, ok := p.handler[call.ToolName]
	if !ok {
		return nil, fmt.Errorf("provider %q has no tool %q", p.name, call.ToolName)
	}
	return fn(ctx, rc, call.Args)
}

// Collectors implements Provider.
func (p *StaticProvider) Collectors() []prometheus.Collector { return nil }

// Close implements Provider.
func (p *StaticProvider) Close() error { return nil }
