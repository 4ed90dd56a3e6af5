package client

import "sync"

// OutboundQueue buffers client messages issued while the channel is
// down. Strict FIFO, no deduplication: a claim queued twice is sent
// twice and the second one earns its own server reply.
type OutboundQueue struct {
	mu      sync.Mutex
	pending []any
}

func (q *OutboundQueue) Enqueue(msg any) {
	q.mu.Lock()
	q.pending = append(q.pending, msg)
	q.mu.Unlock()
}

// Drain removes and returns everything queued, oldest first.
func (q *OutboundQueue) Drain() []any {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.pending
	q.pending = nil
	return out
}

// Requeue puts unsent messages back at the front, preserving order.
func (q *OutboundQueue) Requeue(msgs []any) {
	if len(msgs) == 0 {
		return
	}
	q.mu.Lock()
	q.pending = append(append([]any{}, msgs...), q.pending...)
	q.mu.Unlock()
}

func (q *OutboundQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
