package events

import (
	"context"
	"time"
)

// Event defines the contract for all lifecycle events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "REQUEST_APPROVED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Publisher sends events to the bus.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type BaseEvent struct {
	Type       string                 `json:"type"`
	Data       map[string]interface{} `json:"data"`
	OccurredAt time.Time              `json:"occurred_at"`
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// Envelope is the wire form of an event.
func Envelope(e Event) BaseEvent {
	return BaseEvent{Type: e.EventType(), Data: e.Payload(), OccurredAt: e.Timestamp()}
}
