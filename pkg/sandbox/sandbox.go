// Package sandbox drives one code-execution request against an external
// isolation runtime and decodes the execution envelope it reports. The
// runtime itself (process lifecycle, resource limits, filesystem
// virtualization) is an opaque collaborator reached over MCP or REST.
package sandbox

import (
	"context"

	"github.com/rhuss/codebridge/pkg/api"
)

// Runner executes one piece of guest code to completion and returns its
// execution envelope. The envelope reports every failure mode (install
// errors, run errors, timeouts) as structured data; a non-nil error is
// reserved for transport-level failures where no envelope was produced.
type Runner interface {
	Run(ctx context.Context, code string) (*api.Envelope, error)
}
