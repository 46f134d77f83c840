package host

// RunContext is the read-only snapshot of caller identity and resources
// shared by the discovery and execution paths of one code-execution request.
// It is constructed once per request and never mutated by the adapter.
type RunContext struct {
	// SessionID identifies the code-execution request this context
	// belongs to.
	SessionID string

	// Caller optionally names the principal on whose behalf tools run.
	Caller string

	tags map[string]string
}

// NewRunContext creates the per-request context. The tags mapping is copied
// so later mutation by the caller cannot be observed.
func NewRunContext(sessionID, caller string, tags map[string]string) RunContext {
	copied := make(map[string]string, len(tags))
	for k, v := range tags {
		copied[k] = v
	}
	return RunContext{SessionID: sessionID, Caller: caller, tags: copied}
}

// Tag returns the value of a named tag, if set.
func (rc RunContext) Tag(name string) (string, bool) {
	v, ok := rc.tags[name]
	return v, ok
}
