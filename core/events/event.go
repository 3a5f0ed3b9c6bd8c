package events

import "jokeledger/core/types"

// Event represents a structured state change emitted by the ledger.
type Event interface {
	EventType() string
}

// Structured is implemented by events that can render themselves into the
// generic attribute representation used by subscribers and the journal.
type Structured interface {
	Event
	Event() *types.Event
}

// Emitter broadcasts events to downstream subscribers (e.g. RPC, indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while discarding
// all events. It is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// Buffer collects emitted events in order so they can be released only after
// the surrounding operation commits.
type Buffer struct {
	events []Event
}

// Emit implements the Emitter interface.
func (b *Buffer) Emit(evt Event) {
	if b == nil || evt == nil {
		return
	}
	b.events = append(b.events, evt)
}

// Events returns the buffered events in emission order.
func (b *Buffer) Events() []Event {
	if b == nil {
		return nil
	}
	out := make([]Event, len(b.events))
	copy(out, b.events)
	return out
}

// Reset drops every buffered event.
func (b *Buffer) Reset() {
	if b == nil {
		return
	}
	b.events = nil
}

// Render converts evt into its generic representation. Events that do not
// implement Structured are rendered with their type only.
func Render(evt Event) *types.Event {
	if evt == nil {
		return nil
	}
	if s, ok := evt.(Structured); ok {
		if out := s.Event(); out != nil {
			return out
		}
	}
	return &types.Event{Type: evt.EventType(), Attributes: map[string]string{}}
}
