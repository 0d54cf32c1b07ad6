// Package stream runs one agent turn as a child process, translating its
// wire output into named outward events. Each stream owns a reader
// goroutine, a bounded line channel, and a cancellation slot in the
// registry.
package stream

import "encoding/json"

// Outward event names. These cross the UI boundary and must stay stable.
const (
	EventChunk      = "chunk"
	EventToolCall   = "tool_call"
	EventToolResult = "tool_result"
	EventStepBegin  = "step_begin"
	EventStepEnd    = "step_end"
	EventError      = "error"
	EventDone       = "done"
	EventCancelled  = "cancelled"
)

// Event is one outward notification. Text carries chunk and error content;
// Payload carries tool call and result fields untouched.
type Event struct {
	Type      string                     `json:"type"`
	SessionID string                     `json:"session_id"`
	Text      string                     `json:"text,omitempty"`
	Payload   map[string]json.RawMessage `json:"payload,omitempty"`
}

// Emitter receives outward events in order. Implementations must be safe
// for use from a single goroutine per stream.
type Emitter interface {
	Emit(Event)
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(Event)

func (f EmitterFunc) Emit(e Event) { f(e) }
