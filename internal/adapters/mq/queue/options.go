package queue

// Option applies a configuration option to the InMemoryQueue.
type Option func(*InMemoryQueue)

// WithCapacity sets the maximum number of queued messages.
func WithCapacity(capacity int) Option {
	return func(q *InMemoryQueue) {
		if capacity > 0 {
			q.capacity = capacity
		}
	}
}

// WithReserve keeps the last n slots for messages that are not Droppable.
// It is capped so at least one slot takes droppable messages.
func WithReserve(n int) Option {
	return func(q *InMemoryQueue) {
		if n >= 0 {
			q.reserve = n
		}
	}
}
