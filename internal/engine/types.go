package engine

import (
	"context"
	"time"

	"github.com/okian/bodytap/internal/domain/geometry"
	"github.com/okian/bodytap/internal/domain/model"
	"github.com/okian/bodytap/internal/domain/pose"
	"github.com/okian/bodytap/internal/domain/session"
)

// Frame is one camera frame as seen by the loop.
type Frame struct {
	// Timestamp is the media time of the frame. Repeated timestamps are
	// skipped.
	Timestamp time.Duration
	// Surface is the pixel size of the frame the estimator runs on.
	Surface geometry.Size
	// View maps surface pixels onto the on-screen layout.
	View geometry.Viewport
	// Zones are UI rectangles in view pixels that targets must avoid.
	Zones []geometry.Rect
	// Data is the opaque payload handed to the estimator.
	Data any
}

// Estimator turns a frame into zero or more skeletons.
type Estimator interface {
	Estimate(ctx context.Context, f Frame) ([]pose.Skeleton, error)
	Close() error
}

// Renderer draws a scene. It is called once per processed frame.
type Renderer interface {
	Render(ctx context.Context, s Scene)
}

// Listener receives score, countdown and end-of-session events.
type Listener = session.Listener

// FrameSource yields frames until it is exhausted or ctx is done.
// Next returns ErrSourceDone once no more frames will come.
type FrameSource interface {
	Next(ctx context.Context) (Frame, error)
}

// Executor runs estimation work off the loop goroutine.
type Executor interface {
	Go(fn func())
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(fn func())

// Go runs fn through f.
func (f ExecutorFunc) Go(fn func()) { f(fn) }

// GoroutineExecutor runs each job on a new goroutine.
var GoroutineExecutor Executor = ExecutorFunc(func(fn func()) { go fn() })

// InlineExecutor runs each job synchronously on the caller.
var InlineExecutor Executor = ExecutorFunc(func(fn func()) { fn() })

// Scene is everything a renderer needs for one frame.
type Scene struct {
	Timestamp time.Duration     `json:"timestamp"`
	Surface   geometry.Size     `json:"surface"`
	View      geometry.Viewport `json:"view"`
	Target    *model.Target     `json:"target,omitempty"` // nil unless a target is visible
	Effects   []model.Effect    `json:"effects,omitempty"`
	Skeletons []pose.Skeleton   `json:"skeletons,omitempty"`
	State     session.State     `json:"state"`
}

// StepResult reports what one Step did.
type StepResult struct {
	Skipped    bool // duplicate timestamp or closed loop; nothing else ran
	Fired      int  // timers that ran
	Submitted  bool // the frame was handed to the estimator
	Detected   bool // a detection result was consumed
	Spawned    bool
	Hit        bool
	Evicted    bool
	Transition session.Transition
	Scene      Scene
}
