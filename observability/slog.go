package observability

import (
	"context"
	"log/slog"
)

// SlogObserver writes all events to a structured logger at Info level,
// capturing event type, source, timestamp, and associated metadata.
//
// The observer uses slog's context-aware logging so cancellation and tracing
// context propagate from the emitting component.
type SlogObserver struct {
	logger *slog.Logger
}

// NewSlogObserver creates a SlogObserver with the given logger.
// Pass slog.Default() for the default configuration.
func NewSlogObserver(logger *slog.Logger) *SlogObserver {
	return &SlogObserver{
		logger: logger,
	}
}

// OnEvent logs the event at Info level with structured fields.
func (o *SlogObserver) OnEvent(ctx context.Context, event Event) {
	o.logger.InfoContext(
		ctx,
		"Event",
		"type", event.Type,
		"source", event.Source,
		"timestamp", event.Timestamp,
		"data", event.Data,
	)
}
