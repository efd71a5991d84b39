package ws

import (
	"time"

	"github.com/okian/bodytap/pkg/logger"
)

// Option applies a configuration option to the Handler.
type Option func(*Handler)

// WithOutboxSize bounds queued outbound messages per connection.
func WithOutboxSize(n int) Option {
	return func(h *Handler) {
		if n > 0 {
			h.outboxSize = n
		}
	}
}

// WithEventReserve keeps n outbox slots free of scenes for hit, countdown,
// end and error messages. It is capped at half the outbox.
func WithEventReserve(n int) Option {
	return func(h *Handler) {
		if n >= 0 {
			h.eventReserve = n
		}
	}
}

// WithReadLimit caps the size of one inbound message in bytes.
func WithReadLimit(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.readLimit = n
		}
	}
}

// WithWriteTimeout bounds every write to the client.
func WithWriteTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.writeTimeout = d
		}
	}
}

// WithPongWait sets how long the connection may stay silent. Pings go out
// at a fraction of it.
func WithPongWait(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.pongWait = d
		}
	}
}

// WithSeed makes target placement reproducible for every connection.
func WithSeed(seed int64) Option {
	return func(h *Handler) {
		h.seed = &seed
	}
}

// WithLogger sets a custom logger for the handler.
func WithLogger(lg logger.Logger) Option {
	return func(h *Handler) {
		if lg != nil {
			h.logger = lg
		}
	}
}
