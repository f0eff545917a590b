package messaging

import (
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"
)

// Kind identifies what a message asks its recipient to do.
type Kind string

const (
	KindTaskRequest          Kind = "task_request"
	KindTaskResponse         Kind = "task_response"
	KindCollaborationRequest Kind = "collaboration_request"
	KindStatusUpdate         Kind = "status_update"
	KindResourceShare        Kind = "resource_share"
	KindErrorNotification    Kind = "error_notification"
	KindCompletionNotice     Kind = "completion_notice"
)

// Kinds lists every valid message kind. The bus routing table is checked
// against this set so a new kind cannot be added without a handler.
func Kinds() []Kind {
	return []Kind{
		KindTaskRequest,
		KindTaskResponse,
		KindCollaborationRequest,
		KindStatusUpdate,
		KindResourceShare,
		KindErrorNotification,
		KindCompletionNotice,
	}
}

// IsValid reports whether k is one of the declared kinds.
func (k Kind) IsValid() bool {
	switch k {
	case KindTaskRequest, KindTaskResponse, KindCollaborationRequest,
		KindStatusUpdate, KindResourceShare, KindErrorNotification,
		KindCompletionNotice:
		return true
	}
	return false
}

// Priority expresses sender urgency. It travels with the message as
// metadata for handlers; delivery order is strictly FIFO regardless.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
	PriorityCritical
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

// Message is one unit of communication between two agents. Messages are
// immutable once built; handlers that need to derive a new message build
// one rather than mutating the original.
type Message struct {
	ID               string         `json:"id"`
	From             string         `json:"from_agent"`
	To               string         `json:"to_agent"`
	Kind             Kind           `json:"kind"`
	Priority         Priority       `json:"priority"`
	Payload          map[string]any `json:"payload,omitempty"`
	CorrelationID    string         `json:"correlation_id,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	ExpiresAt        time.Time      `json:"expires_at,omitempty"`
	RequiresResponse bool           `json:"requires_response,omitempty"`
}

// Expired reports whether the message carries an expiry that has passed.
// Messages without an expiry never expire.
func (msg *Message) Expired(now time.Time) bool {
	return !msg.ExpiresAt.IsZero() && now.After(msg.ExpiresAt)
}

// Clone returns a copy with its own payload map.
func (msg *Message) Clone() *Message {
	clone := *msg
	clone.Payload = maps.Clone(msg.Payload)
	return &clone
}

func (msg *Message) String() string {
	return fmt.Sprintf(
		"Message{ID: %s, From: %s, To: %s, Kind: %s, Correlation: %s}",
		msg.ID,
		msg.From,
		msg.To,
		msg.Kind,
		msg.CorrelationID,
	)
}

func generateID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// NewID returns a fresh time-sortable message identifier.
func NewID() string {
	return generateID()
}
