package observability

import "context"

// NoOpObserver discards all events. Use it when observability is not needed;
// the implementation is stateless and safe to share across goroutines.
type NoOpObserver struct{}

// OnEvent discards the event without any processing.
func (NoOpObserver) OnEvent(ctx context.Context, event Event) {}
