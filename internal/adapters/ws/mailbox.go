package ws

import (
	"context"
	"sync"

	"github.com/okian/bodytap/internal/engine"
)

// Mailbox holds the most recent frame for the loop. Put overwrites an unread
// frame, so a slow loop always works on the freshest camera image.
type Mailbox struct {
	mu      sync.Mutex
	frame   engine.Frame
	full    bool
	closed  bool
	dropped uint64
	notify  chan struct{}
}

// NewMailbox creates an empty mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{notify: make(chan struct{}, 1)}
}

// Put stores f, replacing any frame not yet taken. It reports false once
// the mailbox is closed.
func (m *Mailbox) Put(f engine.Frame) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	if m.full {
		m.dropped++
	}
	m.frame, m.full = f, true
	m.mu.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}
	return true
}

// Next waits for a frame. It returns engine.ErrSourceDone after Close once
// the last frame was taken, or ctx.Err() when ctx ends first.
func (m *Mailbox) Next(ctx context.Context) (engine.Frame, error) {
	for {
		m.mu.Lock()
		if m.full {
			f := m.frame
			m.frame, m.full = engine.Frame{}, false
			m.mu.Unlock()
			return f, nil
		}
		closed := m.closed
		m.mu.Unlock()
		if closed {
			return engine.Frame{}, engine.ErrSourceDone
		}

		select {
		case <-ctx.Done():
			return engine.Frame{}, ctx.Err()
		case <-m.notify:
		}
	}
}

// Close wakes any waiter; no more frames are accepted.
func (m *Mailbox) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}
}

// Dropped returns how many frames were overwritten before being read.
func (m *Mailbox) Dropped() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dropped
}
