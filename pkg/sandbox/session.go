package sandbox

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rhuss/codebridge/pkg/api"
	"github.com/rhuss/codebridge/pkg/host"
)

// DefaultRunTool is the runtime tool invoked to execute guest code.
const DefaultRunTool = "run_code"

// SessionConfig configures a Session.
type SessionConfig struct {
	// Name is announced to the runtime on the MCP handshake.
	Name string

	// RunTool overrides the tool name used to execute code.
	// Defaults to DefaultRunTool.
	RunTool string

	// Registry, when set, answers the runtime's tool elicitations. A nil
	// registry leaves the session without tool support: guest code can
	// still run, but discovers no tools.
	Registry host.Registry

	// RunContext is the read-only per-request context threaded through
	// discovery and execution.
	RunContext host.RunContext
}

// Session is an MCP-backed Runner. Each session owns one connection to one
// isolation runtime; sessions share nothing, so independent code-execution
// requests are fully isolated from each other.
type Session struct {
	cfg     SessionConfig
	client  *mcp.Client
	session *mcp.ClientSession
}

// Ensure Session implements Runner at compile time.
var _ Runner = (*Session)(nil)

// NewSession creates a session. Call Connect before Run.
func NewSession(cfg SessionConfig) *Session {
	if cfg.Name == "" {
		cfg.Name = "codebridge"
	}
	if cfg.RunTool == "" {
		cfg.RunTool = DefaultRunTool
	}
	return &Session{cfg: cfg}
}

// Connect establishes the MCP connection to the runtime over the given
// transport, performing the protocol handshake. When a registry is
// configured, the session's elicitation handler is installed so tool calls
// made by guest code resolve against it.
func (s *Session) Connect(ctx context.Context, transport mcp.Transport) error {
	opts := &mcp.ClientOptions{}
	if s.cfg.Registry != nil {
		adapter := host.NewAdapter(s.cfg.Registry, s.cfg.RunContext)
		opts.ElicitationHandler = host.ElicitationHandler(adapter)
	}

	s.client = mcp.NewClient(
		&mcp.Implementation{Name: s.cfg.Name, Version: "1.0.0"},
		opts,
	)

	session, err := s.client.Connect(ctx, transport, nil)
	if err != nil {
		return fmt.Errorf("connecting to runtime: %w", err)
	}
	s.session = session
	return nil
}

// Run executes one piece of guest code and returns its envelope. Tool-call
// round-trips happen transparently while the runtime holds the call open.
func (s *Session) Run(ctx context.Context, code string) (*api.Envelope, error) {
	if s.session == nil {
		return nil, fmt.Errorf("session not connected")
	}

	result, err := s.session.CallTool(ctx, &mcp.CallToolParams{
		Name:      s.cfg.RunTool,
		Arguments: map[string]any{"code": code},
	})
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", s.cfg.RunTool, err)
	}

	text, err := textContent(result)
	if err != nil {
		return nil, err
	}
	if result.IsError {
		return nil, fmt.Errorf("runtime rejected execution: %s", text)
	}
	return api.DecodeEnvelope([]byte(text))
}

// Close closes the MCP session.
func (s *Session) Close() error {
	if s.session != nil {
		return s.session.Close()
	}
	return nil
}

// textContent extracts the first text block of a tool result.
func textContent(result *mcp.CallToolResult) (string, error) {
	for _, content := range result.Content {
		if tc, ok := content.(*mcp.TextContent); ok {
			return tc.Text, nil
		}
	}
	return "", fmt.Errorf("runtime reply carries no text content")
}
