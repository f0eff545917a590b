package messaging

import "time"

type Builder struct {
	message *Message
}

// New starts a builder for a message of the given kind. An ID and creation
// timestamp are assigned immediately; everything else is optional.
func New(from, to string, kind Kind) *Builder {
	return &Builder{
		message: &Message{
			ID:        generateID(),
			From:      from,
			To:        to,
			Kind:      kind,
			Priority:  PriorityMedium,
			CreatedAt: time.Now(),
		},
	}
}

func NewTaskRequest(from, to string, task map[string]any) *Builder {
	return New(from, to, KindTaskRequest).Payload(task)
}

// NewTaskResponse correlates the response to the request it answers.
func NewTaskResponse(from, to, requestID string, result map[string]any) *Builder {
	return New(from, to, KindTaskResponse).Payload(result).CorrelationID(requestID)
}

func NewStatusUpdate(from, to string, update map[string]any) *Builder {
	return New(from, to, KindStatusUpdate).Payload(update)
}

func NewCompletionNotice(from, to string, results map[string]any) *Builder {
	return New(from, to, KindCompletionNotice).Payload(results)
}

func (b *Builder) Payload(payload map[string]any) *Builder {
	b.message.Payload = payload
	return b
}

func (b *Builder) Priority(priority Priority) *Builder {
	b.message.Priority = priority
	return b
}

func (b *Builder) CorrelationID(correlationID string) *Builder {
	b.message.CorrelationID = correlationID
	return b
}

func (b *Builder) ExpiresAt(expiresAt time.Time) *Builder {
	b.message.ExpiresAt = expiresAt
	return b
}

func (b *Builder) RequiresResponse(required bool) *Builder {
	b.message.RequiresResponse = required
	return b
}

func (b *Builder) Build() *Message {
	return b.message
}
