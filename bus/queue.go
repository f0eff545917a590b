package bus

import (
	"sync"
	"time"

	"github.com/bizmesh-labs/agentbus/messaging"
)

// queue is an unbounded FIFO for messages. Push never blocks, which is the
// whole point: producers must not stall on a slow consumer. Pop waits up to
// a timeout so the single consumer can periodically re-check its stop flag.
type queue struct {
	mu    sync.Mutex
	items []*messaging.Message
	wake  chan struct{}
}

func newQueue() *queue {
	return &queue{
		wake: make(chan struct{}, 1),
	}
}

// Push appends a message and wakes the consumer if it is waiting.
func (q *queue) Push(msg *messaging.Message) {
	q.mu.Lock()
	q.items = append(q.items, msg)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Pop removes the oldest message, waiting up to timeout for one to arrive.
// The second return value is false when the wait timed out.
func (q *queue) Pop(timeout time.Duration) (*messaging.Message, bool) {
	deadline := time.Now().Add(timeout)

	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			msg := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return msg, true
		}
		q.mu.Unlock()

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, false
		}

		timer := time.NewTimer(remaining)
		select {
		case <-q.wake:
			timer.Stop()
		case <-timer.C:
			return nil, false
		}
	}
}

// Len returns the current backlog.
func (q *queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
