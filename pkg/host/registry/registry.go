package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rhuss/codebridge/pkg/api"
	"github.com/rhuss/codebridge/pkg/host"
)

// Prometheus metrics for tool execution through the registry.
var (
	toolExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codebridge_tool_executions_total",
			Help: "Total tool executions routed through the registry",
		},
		[]string{"provider", "tool_name", "status"},
	)

	toolDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "codebridge_tool_duration_seconds",
			Help:    "Tool execution duration",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"provider", "tool_name"},
	)
)

func init() {
	prometheus.MustRegister(toolExecutions, toolDuration)
}

// Registry aggregates Providers and implements host.Registry. It routes tool
// calls to the correct provider, records metrics, and recovers from provider
// panics.
type Registry struct {
	mu sync.RWMutex

	// providers stores registered providers in insertion order.
	providers []Provider

	// toolToProvider maps tool name to the provider that owns it.
	toolToProvider map[string]Provider
}

// Ensure Registry implements host.Registry at compile time.
var _ host.Registry = (*Registry)(nil)

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		toolToProvider: make(map[string]Provider),
	}
}

// Register adds a provider to the registry. Tool names are resolved on a
// first-come, first-served basis: if two providers supply a tool with the
// same name, the first registered provider wins and a warning is logged.
//
// Any provider-specific Prometheus collectors are also registered.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.providers = append(r.providers, p)

	for _, schema := range p.Tools() {
		if existing, ok := r.toolToProvider[schema.Name]; ok {
			slog.Warn("tool name conflict, keeping first provider",
				"tool", schema.Name,
				"winner", existing.Name(),
				"loser", p.Name(),
			)
			continue
		}
		r.toolToProvider[schema.Name] = p
	}

	for _, c := range p.Collectors() {
		if err := prometheus.Register(c); err != nil {
			// Already registered is not an error worth crashing for.
			slog.Debug("collector already registered", "provider", p.Name(), "error", err)
		}
	}

	slog.Info("registered tool provider",
		"provider", p.Name(),
		"tools", len(p.Tools()),
	)
}

// Tools implements host.Registry, returning the merged schemas from all
// providers in registration order. Conflicting names appear once, owned by
// the first provider that registered them.
func (r *Registry) Tools(ctx context.Context, rc host.RunContext) ([]api.ToolSchema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var all []api.ToolSchema
	for _, p := range r.providers {
		for _, schema := range p.Tools() {
			if r.toolToProvider[schema.Name] == p {
				all = append(all, schema)
			}
		}
	}
	return all, nil
}

// Execute implements host.Registry: it routes the call to the owning
// provider, records metrics, and converts panics into errors.
func (r *Registry) Execute(ctx context.Context, rc host.RunContext, call api.ToolCallRequest) (result any, err error) {
	r.mu.RLock()
	p, ok := r.toolToProvider[call.ToolName]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("no provider handles tool %q", call.ToolName)
	}

	providerName := p.Name()
	start := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("tool provider panicked",
				"provider", providerName,
				"tool", call.ToolName,
				"panic", rec,
			)
			result = nil
			err = fmt.Errorf("internal error: tool %q panicked", call.ToolName)

			toolExecutions.WithLabelValues(providerName, call.ToolName, "panic").Inc()
			toolDuration.WithLabelValues(providerName, call.ToolName).Observe(time.Since(start).Seconds())
		}
	}()

	result, err = p.Execute(ctx, rc, call)
	duration := time.Since(start).Seconds()

	status := "success"
	if err != nil {
		status = "error"
	}

	toolExecutions.WithLabelValues(providerName, call.ToolName, status).Inc()
	toolDuration.WithLabelValues(providerName, call.ToolName).Observe(duration)

	return result, err
}

// Close closes all registered providers, returning the last error
// encountered.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var lastErr error
	for _, p := range r.providers {
		if err := p.Close(); err != nil {
			slog.Warn("failed to close tool provider", "provider", p.Name(), "error", err)
			lastErr = err
		}
	}
	return lastErr
}

// HasProviders returns true if at least one provider is registered.
func (r *Registry) HasProviders() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers) > 0
}
