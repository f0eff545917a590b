package observability

import (
	"context"
	"time"
)

// Observer receives execution events from the bus and coordinator.
//
// Implementations can log events, collect metrics, or feed dashboards. The
// interface is intentionally minimal so messaging components stay decoupled
// from any particular observability backend.
//
// Implementations must not affect execution flow — errors or delays inside
// OnEvent must not propagate to the caller.
type Observer interface {
	// OnEvent receives an event with metadata about what happened.
	OnEvent(ctx context.Context, event Event)
}

// Event represents an observable occurrence during message delivery or
// collaboration orchestration.
//
// Events carry execution metadata, not application payloads, so they can be
// shipped to log aggregation without leaking task data.
type Event struct {
	// Type categorizes the event (message.sent, collab.completed, etc.)
	Type EventType

	// Timestamp records when the event occurred
	Timestamp time.Time

	// Source identifies the component that emitted the event (bus, collab)
	Source string

	// Data contains metadata about the event (message id, kind, agent ids,
	// progress counters)
	Data map[string]any
}

// EventType categorizes observable events across the bus and coordinator.
type EventType string

const (
	// Bus lifecycle and delivery
	EventBusStart          EventType = "bus.start"
	EventBusStop           EventType = "bus.stop"
	EventMessageSent       EventType = "message.sent"
	EventMessageDispatched EventType = "message.dispatched"
	EventMessageDropped    EventType = "message.dropped"
	EventMessageExpired    EventType = "message.expired"
	EventHandlerError      EventType = "handler.error"

	// Collaboration orchestration
	EventCollabCreated   EventType = "collab.created"
	EventCollabInvited   EventType = "collab.invited"
	EventCollabProgress  EventType = "collab.progress"
	EventCollabCompleted EventType = "collab.completed"
)

// NewEvent builds an event stamped with the current time.
func NewEvent(eventType EventType, source string, data map[string]any) Event {
	return Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Source:    source,
		Data:      data,
	}
}
