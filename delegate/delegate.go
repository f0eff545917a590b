// Package delegate provides one-to-one task handoff between agents.
//
// Delegation is fire and forget: the caller gets the generated message id
// back immediately and must watch for a correlated TaskResponse itself,
// typically by polling the response key in its agent memory. There is no
// synchronous request/response helper at this layer.
package delegate

import (
	"fmt"
	"time"

	"github.com/bizmesh-labs/agentbus/bus"
	"github.com/bizmesh-labs/agentbus/messaging"
)

// TaskSpec describes the task to hand off.
type TaskSpec struct {
	// Task is the payload passed to the target agent's Execute.
	Task map[string]any

	// Priority travels with the message as metadata.
	Priority messaging.Priority

	// ExpiresAt, when set, lets the bus drop the request if it is still
	// queued past this time.
	ExpiresAt time.Time

	// NoResponse suppresses the default response requirement.
	NoResponse bool
}

// Delegator hands tasks from one agent to another over the bus.
type Delegator struct {
	bus *bus.Bus
}

// New creates a Delegator sending through b.
func New(b *bus.Bus) *Delegator {
	return &Delegator{bus: b}
}

// Delegate sends a TaskRequest from one agent to another and returns the
// generated message id. Responses are requested by default; the id is the
// correlation key for the eventual TaskResponse. The target's existence is
// only checked at dispatch time, so an unknown target still yields an id
// and fails silently later.
func (d *Delegator) Delegate(from, to string, spec TaskSpec) (string, error) {
	builder := messaging.NewTaskRequest(from, to, map[string]any{"task": spec.Task}).
		Priority(spec.Priority).
		RequiresResponse(!spec.NoResponse)

	if !spec.ExpiresAt.IsZero() {
		builder = builder.ExpiresAt(spec.ExpiresAt)
	}

	msg := builder.Build()
	if !d.bus.Send(msg) {
		return "", fmt.Errorf("%w: %s -> %s", ErrSendFailed, from, to)
	}

	return msg.ID, nil
}
