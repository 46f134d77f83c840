// Package api defines the wire types shared by both halves of the code
// execution bridge: the execution envelope reported by the isolation runtime,
// the tool schemas and tool-call requests exchanged over the elicitation
// channel, and the error taxonomy surfaced to callers.
//
// All types are plain data. Nothing in this package performs I/O.
package api
