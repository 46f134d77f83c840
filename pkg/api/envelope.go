package api

import (
	"encoding/json"
	"fmt"
)

// Status is the terminal state of one code-execution request.
type Status string

const (
	// StatusSuccess means the guest code ran to completion.
	StatusSuccess Status = "success"

	// StatusInstallError means a declared dependency could not be resolved
	// before any guest code ran.
	StatusInstallError Status = "install-error"

	// StatusRunError means guest execution failed: an unhandled exception,
	// a deadline expiry, or a disallowed operation.
	StatusRunError Status = "run-error"
)

// Envelope is the structured result of one complete code-execution request.
// It is created once per request and is immutable once returned.
//
// Exactly one of ReturnValue / Error may be set, gated by Status: a success
// carries an optional return value and never an error; a failure carries an
// error and never a return value.
type Envelope struct {
	Status Status `json:"-"`

	// Output holds every line the guest wrote to its print stream, in
	// emission order. Never null on the wire, may be empty.
	Output []string `json:"-"`

	// ReturnValue is the JSON-serialized value of the last top-level
	// expression. Only present on success, and absent when the execution
	// produced no expression value.
	ReturnValue json.RawMessage `json:"-"`

	// Error is a human-readable diagnostic, possibly a multi-line
	// traceback. Only present when Status != StatusSuccess.
	Error string `json:"-"`
}

// MarshalJSON serializes the envelope, ensuring Output is always an array,
// never null.
func (e Envelope) MarshalJSON() ([]byte, error) {
	type wire struct {
		Status      Status          `json:"status"`
		Output      []string        `json:"output"`
		ReturnValue json.RawMessage `json:"return_value,omitempty"`
		Error       string          `json:"error,omitempty"`
	}
	w := wire{
		Status:      e.Status,
		Output:      e.Output,
		ReturnValue: e.ReturnValue,
		Error:       e.Error,
	}
	if w.Output == nil {
		w.Output = []string{}
	}
	return json.Marshal(w)
}

// UnmarshalJSON deserializes an envelope, normalizing a null output to an
// empty slice.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	type wire struct {
		Status      Status          `json:"status"`
		Output      []string        `json:"output"`
		ReturnValue json.RawMessage `json:"return_value"`
		Error       string          `json:"error"`
	}
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.Output == nil {
		w.Output = []string{}
	}
	e.Status = w.Status
	e.Output = w.Output
	e.ReturnValue = w.ReturnValue
	e.Error = w.Error
	return nil
}

// Validate checks the envelope's internal invariants.
func (e *Envelope) Validate() error {
	switch e.Status {
	case StatusSuccess:
		if e.Error != "" {
			return fmt.Errorf("success envelope must not carry an error")
		}
	case StatusInstallError, StatusRunError:
		if e.Error == "" {
			return fmt.Errorf("%s envelope must carry an error", e.Status)
		}
		if e.ReturnValue != nil {
			return fmt.Errorf("%s envelope must not carry a return value", e.Status)
		}
	default:
		return fmt.Errorf("unknown envelope status %q", e.Status)
	}
	return nil
}

// DecodeEnvelope parses and validates a serialized envelope.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decoding envelope: %w", err)
	}
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}
	return &e, nil
}

// SuccessEnvelope builds a success envelope. returnValue may be nil when the
// execution produced no expression value.
func SuccessEnvelope(output []string, returnValue json.RawMessage) *Envelope {
	return &Envelope{Status: StatusSuccess, Output: output, ReturnValue: returnValue}
}

// RunErrorEnvelope builds a run-error envelope with the given diagnostic.
func RunErrorEnvelope(output []string, diagnostic string) *Envelope {
	return &Envelope{Status: StatusRunError, Output: output, Error: diagnostic}
}

// InstallErrorEnvelope builds an install-error envelope for a setup failure
// that happened before any guest code ran.
func InstallErrorEnvelope(diagnostic string) *Envelope {
	return &Envelope{Status: StatusInstallError, Output: []string{}, Error: diagnostic}
}
