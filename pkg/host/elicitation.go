package host

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ElicitationHandler adapts an Adapter to the MCP client's elicitation
// callback, so the runtime's elicitation requests resolve against the host's
// tool registry. The handler never returns an error: every message maps to
// an accept or decline result.
func ElicitationHandler(adapter *Adapter) func(context.Context, *mcp.ElicitRequest) (*mcp.ElicitResult, error) {
	return func(ctx context.Context, req *mcp.ElicitRequest) (*mcp.ElicitResult, error) {
		outcome := adapter.Handle(ctx, req.Params.Message)
		return &mcp.ElicitResult{
			Action:  outcome.Action,
			Content: outcome.Content,
		}, nil
	}
}
