package engine

import (
	"time"

	"github.com/okian/bodytap/pkg/logger"
)

// Option applies a configuration option to the Loop.
type Option func(*Loop)

// WithEstimator sets the pose estimator. Without one the loop runs with
// empty detections every frame.
func WithEstimator(e Estimator) Option {
	return func(l *Loop) {
		l.estimator = e
	}
}

// WithRenderer sets the scene renderer.
func WithRenderer(r Renderer) Option {
	return func(l *Loop) {
		l.renderer = r
	}
}

// WithListener sets the receiver of hit, countdown and end events.
func WithListener(ls Listener) Option {
	return func(l *Loop) {
		l.listener = ls
	}
}

// WithExecutor sets where estimations run. Defaults to a new goroutine each.
func WithExecutor(e Executor) Option {
	return func(l *Loop) {
		if e != nil {
			l.executor = e
		}
	}
}

// WithClock replaces the wall clock, mainly for tests and simulation.
func WithClock(now func() time.Time) Option {
	return func(l *Loop) {
		if now != nil {
			l.clock = now
		}
	}
}

// WithSeed makes target placement reproducible.
func WithSeed(seed int64) Option {
	return func(l *Loop) {
		l.seed = &seed
	}
}

// WithLogger sets a custom logger for the loop.
func WithLogger(lg logger.Logger) Option {
	return func(l *Loop) {
		if lg != nil {
			l.logger = lg
		}
	}
}
