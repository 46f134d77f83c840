// Package interp evaluates a small, line-oriented script language against a
// guest namespace, producing execution envelopes. It is the guest half of the
// mock runtime: real deployments delegate execution to an external isolation
// runtime, but the bridge semantics are the same, with tool callables
// resolved from the namespace, output captured line by line, and the last
// expression's value becoming the result.
//
// The language is deliberately tiny: one statement per line, assignments,
// string/number/bool literals, "+" concatenation and addition, name lookup,
// and function calls with positional and keyword arguments. print() captures
// output; the value of the last expression statement becomes the envelope's
// return value.
package interp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rhuss/codebridge/pkg/api"
	"github.com/rhuss/codebridge/pkg/guest"
)

// Interp evaluates scripts against one namespace. Each Run is independent
// except for the shared namespace contents.
type Interp struct {
	ns guest.Namespace

	// Timeout is named in the diagnostic when the run deadline expires.
	Timeout time.Duration
}

// New creates an interpreter over the given namespace.
func New(ns guest.Namespace) *Interp {
	return &Interp{ns: ns}
}

// Run executes the script and reports the outcome as an envelope. Run never
// returns a Go error: every failure mode is structured into the envelope.
func (i *Interp) Run(ctx context.Context, code string) *api.Envelope {
	ev := &evaluator{ns: i.ns, output: []string{}}

	lines := strings.Split(code, "\n")
	var lastValue any
	var hasValue bool

	for n, line := range lines {
		if err := ctx.Err(); err != nil {
			return api.RunErrorEnvelope(ev.output, i.timeoutDiagnostic(err))
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		value, isValue, err := ev.statement(ctx, trimmed)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return api.RunErrorEnvelope(ev.output, i.timeoutDiagnostic(ctxErr))
			}
			diagnostic := fmt.Sprintf("error on line %d: %s\n    %s", n+1, err, trimmed)
			return api.RunErrorEnvelope(ev.output, diagnostic)
		}
		lastValue, hasValue = value, isValue
	}

	if !hasValue {
		return api.SuccessEnvelope(ev.output, nil)
	}
	encoded, err := serializeValue(lastValue)
	if err != nil {
		return api.RunErrorEnvelope(ev.output, fmt.Sprintf("cannot serialize result: %v", err))
	}
	return api.SuccessEnvelope(ev.output, encoded)
}

// timeoutDiagnostic names the configured deadline, never reporting a silent
// empty result on expiry.
func (i *Interp) timeoutDiagnostic(err error) string {
	if i.Timeout > 0 {
		return fmt.Sprintf("execution timed out after %s", i.Timeout)
	}
	return fmt.Sprintf("execution aborted: %v", err)
}
