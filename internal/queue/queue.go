// Package queue buffers outbound envelopes while the transport is down.
package queue

import (
	"sync"

	"github.com/dkasten/feedlink/internal/wire"
)

// Outbound is a bounded FIFO ring of envelopes. When full, Push rejects the
// new entry (drop-newest); the caller decides how to account for the loss.
type Outbound struct {
	mu       sync.Mutex
	buf      []*wire.Envelope
	head     int
	tail     int
	count    int
	capacity int
}

// NewOutbound creates a queue with the given capacity.
func NewOutbound(capacity int) *Outbound {
	if capacity < 1 {
		capacity = 1
	}
	return &Outbound{
		buf:      make([]*wire.Envelope, capacity),
		capacity: capacity,
	}
}

// Push appends an envelope. Returns false when the queue is at capacity and
// the envelope was not stored.
func (q *Outbound) Push(env *wire.Envelope) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == q.capacity {
		return false
	}

	q.buf[q.tail] = env
	q.tail = (q.tail + 1) % q.capacity
	q.count++
	return true
}

// Drain removes and returns all queued envelopes in FIFO order. The queue is
// empty afterwards.
func (q *Outbound) Drain() []*wire.Envelope {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		return nil
	}

	out := make([]*wire.Envelope, q.count)
	for i := 0; i < len(out); i++ {
		out[i] = q.buf[q.head]
		q.buf[q.head] = nil // clear reference for GC
		q.head = (q.head + 1) % q.capacity
	}
	q.count = 0
	return out
}

// Len returns the number of queued envelopes.
func (q *Outbound) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Cap returns the fixed capacity.
func (q *Outbound) Cap() int {
	return q.capacity
}
