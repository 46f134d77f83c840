package sandbox

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Runtime serving modes.
const (
	ModeStdio          = "stdio"
	ModeStreamableHTTP = "streamable-http"
)

// RuntimeConfig describes how to invoke the isolation runtime binary. Only
// the invocation interface is modeled here; supervision of the resulting
// process belongs to the runtime's own tooling.
type RuntimeConfig struct {
	// Command is the runtime binary, e.g. "mock-runtime".
	Command string

	// ExtraArgs are passed before the mode argument, e.g. an entry script.
	ExtraArgs []string

	// Mode selects how the runtime serves: ModeStdio or ModeStreamableHTTP.
	Mode string

	// Port is the listen port. Only valid with ModeStreamableHTTP.
	Port int

	// Deps are dependencies the runtime must stage before guest code runs.
	// A dependency that cannot be resolved yields an install-error
	// envelope.
	Deps []string
}

// Args builds the runtime's command line arguments.
func (c RuntimeConfig) Args() ([]string, error) {
	switch c.Mode {
	case ModeStdio, ModeStreamableHTTP:
	default:
		return nil, fmt.Errorf("unsupported runtime mode %q", c.Mode)
	}

	args := append([]string{}, c.ExtraArgs...)
	args = append(args, c.Mode)
	if len(c.Deps) > 0 {
		args = append(args, "--deps="+strings.Join(c.Deps, ","))
	}
	if c.Port != 0 {
		if c.Mode != ModeStreamableHTTP {
			return nil, fmt.Errorf("port is only supported for %s mode", ModeStreamableHTTP)
		}
		args = append(args, fmt.Sprintf("--port=%d", c.Port))
	}
	return args, nil
}

// Transport creates the MCP transport reaching the runtime: a spawned
// subprocess for stdio mode, an HTTP endpoint for streamable HTTP mode.
func (c RuntimeConfig) Transport(ctx context.Context) (mcp.Transport, error) {
	args, err := c.Args()
	if err != nil {
		return nil, err
	}

	switch c.Mode {
	case ModeStdio:
		if c.Command == "" {
			return nil, fmt.Errorf("runtime command is required for %s mode", ModeStdio)
		}
		return &mcp.CommandTransport{Command: exec.CommandContext(ctx, c.Command, args...)}, nil

	case ModeStreamableHTTP:
		if c.Port == 0 {
			return nil, fmt.Errorf("port is required for %s mode", ModeStreamableHTTP)
		}
		return &mcp.StreamableClientTransport{
			Endpoint: fmt.Sprintf("http://localhost:%d/mcp", c.Port),
		}, nil

	default:
		return nil, fmt.Errorf("unsupported runtime mode %q", c.Mode)
	}
}
