// Package bus implements the in-process message bus between agents.
//
// A Bus owns one unbounded FIFO queue and one dispatch goroutine. Producers
// call Send from any goroutine without locking; the queue is the only
// synchronization point. The dispatch loop pops messages in enqueue order,
// resolves the recipient through the directory, and routes by message kind.
// Delivery order is FIFO regardless of the declared priority.
//
// # Lifecycle
//
//	b := bus.New(dir, config.DefaultBusConfig())
//	b.Start()
//	defer b.Stop()
//	b.Send(messaging.NewTaskRequest("sales", "analytics", task).Build())
//
// Stop signals the loop and waits for it to exit; a handler already running
// finishes first. The loop waits on the queue with a poll timeout so Stop
// cannot hang on an empty queue.
//
// # Failure semantics
//
// A message addressed to an unregistered agent is logged and dropped — no
// retry, no dead letter, no signal to the sender. A handler error or panic
// is logged and the loop continues; one bad message never kills dispatch.
// Senders learn of failures only through a correlated TaskResponse when they
// asked for one.
//
// # Memory keys
//
// Handlers deposit delivered payloads into the target agent's private memory
// under documented key prefixes (see the MemoryKey constants), which is how
// fire-and-forget callers later observe responses, shared resources, and
// completion notices.
package bus
