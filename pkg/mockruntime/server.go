// Package mockruntime implements the isolation-runtime side of the bridge as
// an MCP server. It stands in for a real sandboxed interpreter: guest code is
// evaluated by pkg/interp, tool bindings are discovered and resolved over the
// session's elicitation channel, and every run_code call answers with an
// execution envelope.
package mockruntime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rhuss/codebridge/pkg/api"
	"github.com/rhuss/codebridge/pkg/guest"
	"github.com/rhuss/codebridge/pkg/guest/runloop"
	"github.com/rhuss/codebridge/pkg/interp"
	"github.com/rhuss/codebridge/pkg/sandbox"
)

// dependency names the runtime accepts as installable
var depNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Config configures the runtime server.
type Config struct {
	// Deps are staged before the first run. A dependency that fails to
	// stage turns every subsequent run into an install-error envelope.
	Deps []string

	// Timeout bounds a single execution. Zero means no limit.
	Timeout time.Duration

	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

type runCodeInput struct {
	Code string `json:"code" jsonschema_description:"Guest code to execute"`
}

// NewServer creates the MCP server exposing the run_code tool.
func NewServer(cfg Config) *mcp.Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	server := mcp.NewServer(
		&mcp.Implementation{Name: "mock-runtime", Version: "v1.0.0"},
		nil,
	)

	installErr := stageDeps(cfg.Deps, logger)

	mcp.AddTool(server, &mcp.Tool{
		Name:        sandbox.DefaultRunTool,
		Description: "Executes guest code in the runtime and returns an execution envelope",
	}, func(ctx context.Context, req *mcp.CallToolRequest, input runCodeInput) (*mcp.CallToolResult, struct{}, error) {
		var env *api.Envelope
		if installErr != nil {
			env = api.InstallErrorEnvelope(installErr.Error())
		} else {
			env = run(ctx, req.Session, input.Code, cfg.Timeout, logger)
		}

		encoded, err := json.Marshal(env)
		if err != nil {
			return nil, struct{}{}, fmt.Errorf("encoding envelope: %w", err)
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(encoded)}},
		}, struct{}{}, nil
	})

	return server
}

// stageDeps validates the configured dependencies. The mock has no package
// index, so staging succeeds exactly when every name is well formed.
func stageDeps(deps []string, logger *slog.Logger) error {
	for _, dep := range deps {
		if !depNamePattern.MatchString(dep) {
			return fmt.Errorf("cannot install dependency %q", dep)
		}
		logger.Debug("staged dependency", "dep", dep)
	}
	return nil
}

// run executes one piece of guest code. Tool discovery and calls travel over
// the session's elicitation channel; the caller's adapter answers them while
// run_code is held open.
func run(ctx context.Context, session *mcp.ServerSession, code string, timeout time.Duration, logger *slog.Logger) *api.Envelope {
	loop := runloop.New()
	submit := submitFunc(ctx, session, loop)

	ns := guest.Namespace{}
	names, schemas, err := guest.Discover(ctx, loop, submit)
	if err != nil {
		// Clients without a tool registry decline discovery; guest
		// code still runs, it just finds no tools bound.
		logger.Debug("tool discovery declined", "error", err)
	} else if err := guest.Install(ns, loop, names, submit, schemas); err != nil {
		return api.RunErrorEnvelope([]string{}, fmt.Sprintf("installing tools: %v", err))
	}

	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	i := interp.New(ns)
	i.Timeout = timeout
	return i.Run(runCtx, code)
}

// submitFunc bridges guest messages onto the MCP elicitation channel. Each
// message resolves asynchronously: the elicit call runs on its own goroutine
// and settles the promise through the loop, where Await picks it up.
func submitFunc(ctx context.Context, session *mcp.ServerSession, loop *runloop.Loop) guest.SubmitFunc {
	return func(message string) *runloop.Promise {
		if session == nil {
			return runloop.Rejected(fmt.Errorf("no session for elicitation"))
		}
		promise, settle := loop.NewPromise()
		go func() {
			result, err := session.Elicit(ctx, &mcp.ElicitParams{Message: message})
			if err != nil {
				settle(nil, fmt.Errorf("elicitation transport: %w", err))
				return
			}
			settle(api.Outcome{Action: result.Action, Content: result.Content}, nil)
		}()
		return promise
	}
}
