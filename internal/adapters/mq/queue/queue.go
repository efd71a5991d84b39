// Package queue is the bounded outbox between a game loop and its client.
//
// The loop enqueues without ever blocking; a dispatcher drains the queue and
// performs the network writes. Droppable messages may only fill the queue up
// to its reserve, so the remaining slots stay free for messages that must not
// be lost.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/okian/bodytap/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 256
)

// Message is one outbound message for a client.
type Message struct {
	Type    string `json:"type"`
	Session string `json:"session,omitempty"`
	Data    any    `json:"data,omitempty"`

	// Droppable marks messages superseded by the next one of their kind.
	Droppable bool `json:"-"`
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a message to the queue.
	// Returns false if the queue is full or closed and the message was dropped.
	Enqueue(ctx context.Context, m Message) bool

	// Dequeue returns a channel that will receive messages as they become available.
	// The channel will be closed when the queue is closed.
	Dequeue(ctx context.Context) <-chan Message

	// Len returns the current number of queued messages.
	Len(ctx context.Context) int

	// Close gracefully shuts down the queue.
	// After closing, no new messages can be enqueued and the dequeue channel
	// is closed once drained.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	messages chan Message
	capacity int
	reserve  int
	mu       sync.RWMutex
	closed   bool

	// Share of the process-wide outbox gauges owned by this queue.
	statsMu  sync.Mutex
	reported int
	retired  bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultQueueCapacity,
	}

	// Apply all options
	for _, opt := range opts {
		opt(q)
	}

	if q.reserve >= q.capacity {
		q.reserve = q.capacity - 1
	}
	q.messages = make(chan Message, q.capacity)

	metrics.AddQueueCapacity(q.capacity)

	return q
}

// Enqueue adds a message to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, m Message) bool {
	start := time.Now()
	defer func() {
		metrics.RecordQueueProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("outbox", "closed")
		return false
	}

	if m.Droppable && len(q.messages) >= q.capacity-q.reserve {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("outbox", "queue_full")
		return false
	}

	select {
	case q.messages <- m:
		metrics.RecordQueueEnqueue()
		q.observe()
		return true
	case <-ctx.Done():
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("outbox", "context_cancelled")
		return false
	default:
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("outbox", "queue_full")
		return false
	}
}

// Dequeue returns a channel that will receive messages as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Message {
	// Wrap the channel to track dequeue metrics
	out := make(chan Message)
	go func() {
		defer close(out)
		for m := range q.messages {
			select {
			case out <- m:
				metrics.RecordQueueDequeue()
				q.observe()
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued messages.
func (q *InMemoryQueue) Len(_ context.Context) int {
	return len(q.messages)
}

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	// Close the channel to signal consumers to stop once drained
	close(q.messages)
	q.closed = true

	q.statsMu.Lock()
	metrics.AddQueueSize(-q.reported)
	q.reported = 0
	q.retired = true
	q.statsMu.Unlock()
	metrics.AddQueueCapacity(-q.capacity)

	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

// observe moves this queue's share of the outbox size gauge to its current
// length. A closed queue no longer counts.
func (q *InMemoryQueue) observe() {
	q.statsMu.Lock()
	defer q.statsMu.Unlock()
	if q.retired {
		return
	}
	size := len(q.messages)
	metrics.AddQueueSize(size - q.reported)
	q.reported = size
}
