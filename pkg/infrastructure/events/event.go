package events

import (
	"time"
)

// Event is one entry of a calculation run's stream. The stream id is the run id.
type Event interface {
	Type() string
	StreamID() string
	Data() any
	Timestamp() time.Time
	Version() int
}

// EventHandler receives events of the types it subscribed to
type EventHandler interface {
	Handle(event Event) error
	CanHandle(eventType string) bool
}

// EventStore keeps per-run event streams and fans them out to subscribers
type EventStore interface {
	AppendEvent(runID string, event Event) error
	ReadEvents(runID string, fromVersion int) ([]Event, error)
	Subscribe(eventTypes []string, handler EventHandler) error
	Unsubscribe(handler EventHandler) error
}

// RunEvent is the stored form of every calculation event and the shape the
// API returns when a run's stream is replayed
type RunEvent struct {
	EventType string    `json:"type"`
	RunID     string    `json:"stream_id"`
	Payload   any       `json:"data"`
	At        time.Time `json:"timestamp"`
	Seq       int       `json:"version"`
}

func (e RunEvent) Type() string         { return e.EventType }
func (e RunEvent) StreamID() string     { return e.RunID }
func (e RunEvent) Data() any            { return e.Payload }
func (e RunEvent) Timestamp() time.Time { return e.At }
func (e RunEvent) Version() int         { return e.Seq }

// NewEvent creates an unsequenced event; the store assigns the version on append
func NewEvent(eventType, runID string, data any) Event {
	return RunEvent{
		EventType: eventType,
		RunID:     runID,
		Payload:   data,
		At:        time.Now().UTC(),
	}
}

// stamp copies any Event into a RunEvent bound to runID at position seq
func stamp(event Event, runID string, seq int) RunEvent {
	at := event.Timestamp()
	if at.IsZero() {
		at = time.Now().UTC()
	}
	return RunEvent{
		EventType: event.Type(),
		RunID:     runID,
		Payload:   event.Data(),
		At:        at,
		Seq:       seq,
	}
}

// HandlerFunc adapts a function to EventHandler. It accepts every event type
// it is subscribed to.
type HandlerFunc func(event Event) error

func (f HandlerFunc) Handle(event Event) error {
	return f(event)
}

func (f HandlerFunc) CanHandle(string) bool {
	return true
}
