// Package engine drives one game session frame by frame.
//
// A Loop owns the session state machine, the spawner, the collision detector
// and the session's timers. Step is the only entry point that mutates game
// state and must be called from a single goroutine; pose estimation runs on
// an Executor and hands its result back through a one-slot mailbox.
package engine

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/okian/bodytap/internal/domain/collision"
	"github.com/okian/bodytap/internal/domain/model"
	"github.com/okian/bodytap/internal/domain/pose"
	"github.com/okian/bodytap/internal/domain/schedule"
	"github.com/okian/bodytap/internal/domain/session"
	"github.com/okian/bodytap/internal/domain/spawn"
	"github.com/okian/bodytap/pkg/logger"
	"github.com/okian/bodytap/pkg/metrics"
)

// detection is a finished estimation waiting to be applied.
type detection struct {
	skeletons []pose.Skeleton
	err       error
}

// Loop is the per-session frame loop.
type Loop struct {
	settings  Settings
	estimator Estimator
	renderer  Renderer
	listener  Listener
	executor  Executor
	clock     func() time.Time
	seed      *int64
	logger    logger.Logger

	session  *session.Machine
	spawner  *spawn.Spawner
	detector *collision.Detector
	timers   *schedule.Scheduler

	// estimation mailbox, shared with the executor
	mu       sync.Mutex
	pending  *detection
	inFlight bool
	closed   bool
	wg       sync.WaitGroup
	baseCtx  context.Context
	cancel   context.CancelFunc

	// loop-owned state
	lastTimestamp time.Duration
	seenFrame     bool
	target        *model.Target
	lastID        model.TargetID
	needsSpawn    bool
	effects       []model.Effect
	skeletons     []pose.Skeleton
}

// New builds a loop for one session. The session countdown starts with the
// first processed frame.
func New(settings Settings, opts ...Option) (*Loop, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	l := &Loop{
		settings: settings,
		executor: GoroutineExecutor,
		clock:    time.Now,
		logger:   logger.Get().Named("engine"),
	}

	// Apply all options
	for _, opt := range opts {
		opt(l)
	}

	l.baseCtx, l.cancel = context.WithCancel(context.Background())
	l.timers = schedule.New()
	l.session = session.New(
		session.WithCountdown(settings.Countdown),
		session.WithDuration(settings.SessionDuration),
		session.WithListener(l.listener),
	)
	spawnOpts := []spawn.Option{
		spawn.WithRadiusRatio(settings.RadiusRatio),
		spawn.WithAttempts(settings.SpawnAttempts),
		spawn.WithClearance(settings.BodyClearance),
		spawn.WithEdgePadding(settings.EdgePadding),
		spawn.WithVariants(settings.VariantCount),
		spawn.WithTTL(settings.TargetTTL),
	}
	if l.seed != nil {
		spawnOpts = append(spawnOpts, spawn.WithSeed(*l.seed))
	}
	l.spawner = spawn.New(spawnOpts...)
	l.detector = collision.New(settings.Region, l.session, collision.WithMinVisibility(settings.MinVisibility))

	return l, nil
}

// Settings returns the settings the loop was built with.
func (l *Loop) Settings() Settings {
	return l.settings
}

// Step processes one frame. The order is fixed: duplicate check, timers,
// estimation submit, detection result (spawn then hit test), UI eviction,
// session tick, render.
func (l *Loop) Step(ctx context.Context, f Frame) StepResult {
	var res StepResult
	if l.isClosed() {
		res.Skipped = true
		return res
	}
	if l.seenFrame && f.Timestamp == l.lastTimestamp {
		metrics.RecordFrameSkipped()
		res.Skipped = true
		return res
	}
	l.seenFrame, l.lastTimestamp = true, f.Timestamp
	metrics.RecordFrameProcessed()

	now := l.clock()
	if !l.session.Running() {
		l.session.Start(now)
		l.logger.Info(ctx, "session countdown started",
			logger.String("region", string(l.settings.Region)),
			logger.String("difficulty", string(l.settings.Difficulty)),
			logger.Duration("duration", l.settings.SessionDuration),
		)
	}

	res.Fired = l.timers.Fire(now)
	res.Submitted = l.submit(f)

	if skeletons, ok := l.take(ctx); ok {
		res.Detected = true
		l.skeletons = skeletons
		if l.needsSpawn && l.session.Phase() == session.PhaseActive {
			res.Spawned = l.spawn(ctx, now, f, skeletons)
		}
		if hit, ok := l.detector.Check(now, l.target, skeletons, f.Surface); ok {
			res.Hit = true
			l.onHit(ctx, now, hit)
		}
	}

	if l.detector.Evict(l.target, f.View, f.Zones) {
		res.Evicted = true
		l.onEvicted(ctx)
	}

	res.Transition = l.session.Tick(now)
	if res.Transition.Started {
		l.needsSpawn = true
		l.logger.Info(ctx, "session active")
	}
	if res.Transition.Ended {
		l.stopTargets()
		metrics.RecordSessionEnded(res.Transition.Final)
		l.logger.Info(ctx, "session ended", logger.Int("score", res.Transition.Final))
	}

	l.effects = model.PruneEffects(l.effects, now, l.settings.EffectDuration)
	res.Scene = l.scene(now, f)
	if l.renderer != nil {
		l.renderer.Render(ctx, res.Scene)
	}
	return res
}

// Run steps every frame the source yields until the source is exhausted,
// ctx is done, or the loop is closed.
func (l *Loop) Run(ctx context.Context, src FrameSource) error {
	for {
		if l.isClosed() {
			return ErrClosed
		}
		f, err := src.Next(ctx)
		if err != nil {
			if errors.Is(err, ErrSourceDone) {
				return nil
			}
			return err
		}
		l.Step(ctx, f)
	}
}

// Close stops the loop: pending timers are cancelled, the in-flight
// estimation is cancelled and awaited, late results are discarded and the
// estimator is closed. Close must not run concurrently with Step.
func (l *Loop) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()

	l.cancel()
	l.wg.Wait()

	l.mu.Lock()
	l.pending = nil
	l.mu.Unlock()

	l.stopTargets()
	if l.estimator != nil {
		return l.estimator.Close()
	}
	return nil
}

// Target returns a copy of the visible target, or nil.
func (l *Loop) Target() *model.Target {
	if !l.target.Live() {
		return nil
	}
	t := *l.target
	return &t
}

// NeedsSpawn reports whether a new target is wanted as soon as possible.
func (l *Loop) NeedsSpawn() bool {
	return l.needsSpawn
}

// State returns the session snapshot at the loop's current time.
func (l *Loop) State() session.State {
	return l.session.State(l.clock())
}

// PendingTimers returns the number of armed timers.
func (l *Loop) PendingTimers() int {
	return l.timers.Len()
}

func (l *Loop) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// submit hands f to the estimator unless one estimation is already running.
func (l *Loop) submit(f Frame) bool {
	if l.estimator == nil {
		return false
	}
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	if l.inFlight {
		l.mu.Unlock()
		metrics.RecordDetectionBusy()
		return false
	}
	l.inFlight = true
	l.wg.Add(1)
	l.mu.Unlock()

	metrics.RecordDetectionSubmitted()
	ctx := l.baseCtx
	l.executor.Go(func() {
		defer l.wg.Done()
		start := time.Now()
		skeletons, err := l.estimator.Estimate(ctx, f)
		metrics.RecordDetectionLatency(float64(time.Since(start).Microseconds()) / 1000)
		l.deliver(detection{skeletons: skeletons, err: err})
	})
	return true
}

func (l *Loop) deliver(d detection) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.inFlight = false
	if l.closed {
		metrics.RecordDetectionDiscarded()
		return
	}
	l.pending = &d
}

// take empties the mailbox. Without an estimator every frame yields an
// empty result so timing and scoring logic still run.
func (l *Loop) take(ctx context.Context) ([]pose.Skeleton, bool) {
	if l.estimator == nil {
		return nil, true
	}
	l.mu.Lock()
	d := l.pending
	l.pending = nil
	l.mu.Unlock()
	if d == nil {
		return nil, false
	}
	if d.err != nil {
		metrics.RecordDetectionFailed()
		metrics.RecordErrorByComponent("engine", "estimate")
		l.logger.Warn(ctx, "pose estimation failed", logger.Error(d.err))
		return nil, true
	}
	return d.skeletons, true
}

func (l *Loop) spawn(ctx context.Context, now time.Time, f Frame, skeletons []pose.Skeleton) bool {
	if l.target.Live() {
		l.needsSpawn = false
		return false
	}
	id := l.lastID + 1
	res, err := l.spawner.Spawn(spawn.Request{
		ID:        id,
		Now:       now,
		Region:    l.settings.Region,
		Surface:   f.Surface,
		Zones:     f.View.RectsToSurface(f.Zones),
		Skeletons: skeletons,
	})
	if err != nil {
		// retried on the next frame that carries a detection result
		metrics.RecordSpawnDeferred()
		l.logger.Debug(ctx, "spawn deferred", logger.Error(err))
		return false
	}

	if l.target != nil {
		l.cancelTimers(l.target.ID)
	}
	l.lastID = id
	t := res.Target
	l.target = &t
	l.needsSpawn = false
	l.timers.Schedule(expireKey(id), t.ExpiresAt, func(time.Time) { l.expire(ctx, id) })

	metrics.RecordTargetSpawned(res.Fallback)
	l.logger.Debug(ctx, "target spawned",
		logger.Int("id", int(id)),
		logger.Float64("x", t.Center.X),
		logger.Float64("y", t.Center.Y),
		logger.Float64("radius", t.Radius),
		logger.Int("attempts", res.Attempts),
		logger.Bool("fallback", res.Fallback),
	)
	return true
}

func (l *Loop) onHit(ctx context.Context, now time.Time, hit collision.Hit) {
	id := l.target.ID
	l.timers.Cancel(expireKey(id))
	l.effects = append(l.effects, hit.Effect)
	if hit.Accepted {
		metrics.RecordHit()
	}
	l.logger.Debug(ctx, "target hit",
		logger.Int("id", int(id)),
		logger.Int("landmark", hit.Landmark),
		logger.Int("score", hit.Score),
	)

	delay := l.settings.Difficulty.RespawnDelay()
	if delay <= 0 {
		l.needsSpawn = true
		return
	}
	l.timers.Schedule(respawnKey(id), now.Add(delay), func(time.Time) { l.needsSpawn = true })
}

func (l *Loop) onEvicted(ctx context.Context) {
	id := l.target.ID
	l.timers.Cancel(expireKey(id))
	l.needsSpawn = true
	metrics.RecordTargetEvicted()
	l.logger.Debug(ctx, "target evicted by ui zone", logger.Int("id", int(id)))
}

func (l *Loop) expire(ctx context.Context, id model.TargetID) {
	if !l.target.Live() || l.target.ID != id {
		return
	}
	l.target.Hide()
	l.needsSpawn = true
	metrics.RecordTargetExpired()
	l.logger.Debug(ctx, "target expired", logger.Int("id", int(id)))
}

// stopTargets hides the target and disarms every timer.
func (l *Loop) stopTargets() {
	l.target.Hide()
	l.needsSpawn = false
	l.timers.CancelAll()
}

func (l *Loop) cancelTimers(id model.TargetID) {
	l.timers.Cancel(expireKey(id))
	l.timers.Cancel(respawnKey(id))
}

func (l *Loop) scene(now time.Time, f Frame) Scene {
	s := Scene{
		Timestamp: f.Timestamp,
		Surface:   f.Surface,
		View:      f.View,
		Target:    l.Target(),
		Skeletons: l.skeletons,
		State:     l.session.State(now),
	}
	if len(l.effects) > 0 {
		s.Effects = append([]model.Effect(nil), l.effects...)
	}
	return s
}

func expireKey(id model.TargetID) string {
	return "expire/" + strconv.FormatUint(uint64(id), 10)
}

func respawnKey(id model.TargetID) string {
	return "respawn/" + strconv.FormatUint(uint64(id), 10)
}
