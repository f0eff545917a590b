package bus

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/bizmesh-labs/agentbus/config"
	"github.com/bizmesh-labs/agentbus/directory"
	"github.com/bizmesh-labs/agentbus/messaging"
	"github.com/bizmesh-labs/agentbus/observability"
)

// Bus delivers messages from sender to receiver in enqueue order without
// blocking the caller. One background goroutine drains the queue; all
// handlers run on that goroutine, so no two messages are processed
// concurrently by one bus.
type Bus struct {
	name        string
	pollTimeout time.Duration

	directory *directory.Directory
	queue     *queue
	metrics   *Metrics

	logger   *slog.Logger
	observer observability.Observer
	now      func() time.Time

	running atomic.Bool
	stop    chan struct{}
	done    chan struct{}
}

// Option configures a Bus after config-driven initialization.
type Option func(*Bus)

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bus) { b.logger = logger }
}

// WithObserver overrides the config-resolved observer.
func WithObserver(observer observability.Observer) Option {
	return func(b *Bus) { b.observer = observer }
}

// WithMetrics shares an externally owned metrics register, letting the
// coordinator and the bus report into the same counters.
func WithMetrics(metrics *Metrics) Option {
	return func(b *Bus) { b.metrics = metrics }
}

// WithClock overrides the time source used for expiry checks and latency
// samples.
func WithClock(now func() time.Time) Option {
	return func(b *Bus) { b.now = now }
}

// New creates a stopped Bus routing to agents in dir. Call Start to begin
// dispatching.
func New(dir *directory.Directory, cfg config.BusConfig, opts ...Option) *Bus {
	observer, err := observability.GetObserver(cfg.Observer)
	if err != nil {
		observer = observability.NoOpObserver{}
	}

	pollTimeout := cfg.PollTimeout.Std()
	if pollTimeout <= 0 {
		pollTimeout = time.Second
	}

	b := &Bus{
		name:        cfg.Name,
		pollTimeout: pollTimeout,
		directory:   dir,
		queue:       newQueue(),
		metrics:     NewMetrics(),
		logger:      slog.Default(),
		observer:    observer,
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Send enqueues a message for delivery and reports acceptance. A missing ID
// or creation timestamp is filled in; recipient existence is checked only at
// dispatch time. Send never fails for an unknown recipient — only an invalid
// kind or a nil message is rejected.
func (b *Bus) Send(msg *messaging.Message) bool {
	if msg == nil {
		b.logger.Error("rejected nil message", slog.String("bus", b.name))
		return false
	}
	if !msg.Kind.IsValid() {
		b.logger.Error(
			"rejected message with unknown kind",
			slog.String("bus", b.name),
			slog.String("kind", string(msg.Kind)),
		)
		return false
	}

	if msg.ID == "" {
		msg.ID = messaging.NewID()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = b.now()
	}

	b.queue.Push(msg)
	b.metrics.RecordMessageSent()
	b.observer.OnEvent(context.Background(), observability.NewEvent(
		observability.EventMessageSent,
		"bus",
		map[string]any{"id": msg.ID, "kind": string(msg.Kind), "from": msg.From, "to": msg.To},
	))

	return true
}

// Start spawns the dispatch goroutine. Calling Start on a running bus is a
// no-op.
func (b *Bus) Start() {
	if !b.running.CompareAndSwap(false, true) {
		return
	}

	b.stop = make(chan struct{})
	b.done = make(chan struct{})

	b.observer.OnEvent(context.Background(), observability.NewEvent(
		observability.EventBusStart, "bus", map[string]any{"name": b.name},
	))

	go b.dispatchLoop()
}

// Stop signals the dispatch loop to exit and waits for it. An in-flight
// handler finishes before the loop observes the signal on its next
// iteration. Stopping a stopped bus is a no-op.
func (b *Bus) Stop() {
	if !b.running.CompareAndSwap(true, false) {
		return
	}

	close(b.stop)
	<-b.done

	b.observer.OnEvent(context.Background(), observability.NewEvent(
		observability.EventBusStop, "bus", map[string]any{"name": b.name},
	))
}

// Running reports whether the dispatch loop is active.
func (b *Bus) Running() bool {
	return b.running.Load()
}

// QueueSize returns the current backlog.
func (b *Bus) QueueSize() int {
	return b.queue.Len()
}

// Metrics returns a snapshot with the queue size filled in.
func (b *Bus) Metrics() MetricsSnapshot {
	snapshot := b.metrics.Snapshot()
	snapshot.QueueSize = int64(b.queue.Len())
	return snapshot
}

// MetricsRegister exposes the underlying counters so the coordinator can
// share them.
func (b *Bus) MetricsRegister() *Metrics {
	return b.metrics
}

func (b *Bus) dispatchLoop() {
	defer close(b.done)

	for {
		select {
		case <-b.stop:
			return
		default:
		}

		// The timeout bounds how long Stop can be blocked by an empty queue.
		msg, ok := b.queue.Pop(b.pollTimeout)
		if !ok {
			continue
		}

		b.dispatch(msg)
	}
}

// dispatch routes one message. Errors are terminal for the message only:
// they are logged and the loop moves on.
func (b *Bus) dispatch(msg *messaging.Message) {
	ctx := context.Background()
	started := b.now()

	defer func() {
		if r := recover(); r != nil {
			b.logger.Error(
				"handler panicked",
				slog.String("bus", b.name),
				slog.String("message_id", msg.ID),
				slog.String("kind", string(msg.Kind)),
				slog.Any("panic", r),
			)
			b.observer.OnEvent(ctx, observability.NewEvent(
				observability.EventHandlerError,
				"bus",
				map[string]any{"id": msg.ID, "kind": string(msg.Kind), "panic": true},
			))
		}
	}()

	if msg.Expired(b.now()) {
		b.logger.Warn(
			"dropping expired message",
			slog.String("bus", b.name),
			slog.String("message_id", msg.ID),
			slog.String("to", msg.To),
			slog.Time("expires_at", msg.ExpiresAt),
		)
		b.observer.OnEvent(ctx, observability.NewEvent(
			observability.EventMessageExpired,
			"bus",
			map[string]any{"id": msg.ID, "to": msg.To},
		))
		return
	}

	target, err := b.directory.Get(msg.To)
	if err != nil {
		b.logger.Warn(
			"dropping message for unknown recipient",
			slog.String("bus", b.name),
			slog.String("message_id", msg.ID),
			slog.String("to", msg.To),
		)
		b.observer.OnEvent(ctx, observability.NewEvent(
			observability.EventMessageDropped,
			"bus",
			map[string]any{"id": msg.ID, "to": msg.To, "reason": "unknown_recipient"},
		))
		return
	}

	if err := b.handle(ctx, target, msg); err != nil {
		b.logger.Error(
			"message handler failed",
			slog.String("bus", b.name),
			slog.String("message_id", msg.ID),
			slog.String("kind", string(msg.Kind)),
			slog.String("to", msg.To),
			slog.String("error", err.Error()),
		)
		b.observer.OnEvent(ctx, observability.NewEvent(
			observability.EventHandlerError,
			"bus",
			map[string]any{"id": msg.ID, "kind": string(msg.Kind), "error": err.Error()},
		))
	}

	b.metrics.RecordMessageProcessed(b.now().Sub(started))
	b.observer.OnEvent(ctx, observability.NewEvent(
		observability.EventMessageDispatched,
		"bus",
		map[string]any{"id": msg.ID, "kind": string(msg.Kind), "to": msg.To},
	))
}

// handle routes by kind. The switch is exhaustive over messaging.Kinds;
// Send already rejected anything outside the enum.
func (b *Bus) handle(ctx context.Context, target directory.Agent, msg *messaging.Message) error {
	switch msg.Kind {
	case messaging.KindTaskRequest:
		return b.handleTaskRequest(ctx, target, msg)
	case messaging.KindTaskResponse:
		return b.handleTaskResponse(target, msg)
	case messaging.KindCollaborationRequest:
		return b.handleCollaborationRequest(target, msg)
	case messaging.KindStatusUpdate:
		return b.handleStatusUpdate(target, msg)
	case messaging.KindResourceShare:
		return b.handleResourceShare(target, msg)
	case messaging.KindErrorNotification:
		return b.handleErrorNotification(target, msg)
	case messaging.KindCompletionNotice:
		return b.handleCompletionNotice(target, msg)
	default:
		return errUnroutableKind(msg.Kind)
	}
}
