// Package host implements the host-side counterpart of the bridge: the
// adapter that answers elicitation messages against the host's tool registry.
package host

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rhuss/codebridge/pkg/api"
)

// Prometheus metrics for elicitation message handling.
var (
	elicitationRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codebridge_elicitation_requests_total",
			Help: "Total elicitation messages handled by the adapter",
		},
		[]string{"kind", "action"},
	)

	elicitationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "codebridge_elicitation_duration_seconds",
			Help:    "Elicitation message handling duration",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(elicitationRequests, elicitationDuration)
}

// Registry is the host's tool registry as the adapter sees it.
type Registry interface {
	// Tools returns the current tool set as a read-only snapshot for the
	// duration of one code-execution request.
	Tools(ctx context.Context, rc RunContext) ([]api.ToolSchema, error)

	// Execute runs the named tool with the bound arguments and returns a
	// JSON-serializable result. Retryable conditions are reported as
	// *api.ToolRetryError, model-level retry failures as
	// *api.ModelRetryError.
	Execute(ctx context.Context, rc RunContext, call api.ToolCallRequest) (any, error)
}

// Adapter answers elicitation messages. Every message terminates in exactly
// one accept or decline; no error and no panic propagates past Handle.
type Adapter struct {
	registry Registry
	runCtx   RunContext
}

// NewAdapter creates an adapter bound to one code-execution request's
// registry view and run context.
func NewAdapter(registry Registry, rc RunContext) *Adapter {
	return &Adapter{registry: registry, runCtx: rc}
}

// Handle processes one elicitation message.
func (a *Adapter) Handle(ctx context.Context, message string) (outcome api.Outcome) {
	kind := "invalid"
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("panic while handling elicitation message",
				"session", a.runCtx.SessionID,
				"panic", rec,
			)
			outcome = api.DeclineError("unexpected error: internal panic")
		}
		elicitationRequests.WithLabelValues(kind, outcome.Action).Inc()
		elicitationDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}()

	var data map[string]any
	if err := json.Unmarshal([]byte(message), &data); err != nil {
		return api.DeclineError("invalid message: %v", err)
	}

	if action, _ := data["action"].(string); action == api.ActionDiscoverTools {
		kind = "discovery"
		return a.handleDiscovery(ctx)
	}

	kind = "tool_call"
	var call api.ToolCallRequest
	if err := json.Unmarshal([]byte(message), &call); err != nil {
		return api.DeclineError("invalid tool call: %v", err)
	}
	if err := call.Validate(); err != nil {
		return api.DeclineError("invalid tool call: %v", err)
	}

	return a.handleExecution(ctx, call)
}

// handleDiscovery answers a discovery request with the registry's current
// tool names and schemas.
func (a *Adapter) handleDiscovery(ctx context.Context) api.Outcome {
	schemas, err := a.registry.Tools(ctx, a.runCtx)
	if err != nil {
		return api.DeclineError("tool discovery failed: %v", err)
	}

	discovery := api.Discovery{
		ToolNames:   make([]string, 0, len(schemas)),
		ToolSchemas: make(map[string]api.ParametersSchema, len(schemas)),
	}
	for _, s := range schemas {
		discovery.ToolNames = append(discovery.ToolNames, s.Name)
		discovery.ToolSchemas[s.Name] = s.Parameters
	}

	payload, err := json.Marshal(discovery)
	if err != nil {
		return api.DeclineError("tool discovery failed: %v", err)
	}
	return api.Accept(map[string]any{"data": string(payload)})
}

// handleExecution runs one tool call through the registry and maps its
// outcome onto the accept/decline taxonomy.
func (a *Adapter) handleExecution(ctx context.Context, call api.ToolCallRequest) api.Outcome {
	result, err := a.registry.Execute(ctx, a.runCtx, call)
	if err != nil {
		var retry *api.ToolRetryError
		if errors.As(err, &retry) {
			toolName := retry.ToolName
			if toolName == "" {
				toolName = call.ToolName
			}
			callID := retry.ToolCallID
			if callID == "" {
				callID = call.ToolCallID
			}
			payload, marshalErr := json.Marshal(map[string]string{
				"error":        "tool retry needed",
				"tool_name":    toolName,
				"message":      retry.Message,
				"tool_call_id": callID,
			})
			if marshalErr != nil {
				return api.DeclineError("unexpected error: %v", marshalErr)
			}
			return api.Decline(map[string]any{"retry": string(payload)})
		}

		var modelRetry *api.ModelRetryError
		if errors.As(err, &modelRetry) {
			return api.DeclineError("model retry failed: %s", modelRetry.Message)
		}

		return api.DeclineError("unexpected error: %v", err)
	}

	encoded, err := json.Marshal(result)
	if err != nil {
		return api.DeclineError("unexpected error: encoding result for tool %q: %v", call.ToolName, err)
	}
	return api.Accept(map[string]any{"result": string(encoded)})
}
