package session

import "time"

// Option applies a configuration option to the Machine.
type Option func(*Machine)

// WithCountdown sets the countdown start value in seconds. Zero skips the
// countdown.
func WithCountdown(seconds int) Option {
	return func(m *Machine) {
		if seconds >= 0 {
			m.countdown = seconds
		}
	}
}

// WithDuration sets how long the ACTIVE phase lasts.
func WithDuration(d time.Duration) Option {
	return func(m *Machine) {
		if d > 0 {
			m.duration = d
		}
	}
}

// WithListener sets the receiver of session events.
func WithListener(l Listener) Option {
	return func(m *Machine) {
		m.listener = l
	}
}
