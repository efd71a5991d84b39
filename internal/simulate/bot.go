package simulate

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/okian/bodytap/internal/domain/geometry"
	"github.com/okian/bodytap/internal/domain/model"
	"github.com/okian/bodytap/internal/domain/pose"
	"github.com/okian/bodytap/internal/engine"
)

// Bot is a synthetic player. It renders nothing; it watches scenes and
// estimates a single skeleton whose scoring limb chases the visible target.
type Bot struct {
	mu sync.Mutex

	clock    *Clock
	limb     int
	speed    float64
	reaction time.Duration
	miss     float64
	rng      *rand.Rand

	hand     geometry.Point // surface pixels
	last     time.Time
	target   *model.Target
	seenID   model.TargetID
	ignoring bool
	ignored  int
}

// NewBot creates a bot standing in the middle of surface.
func NewBot(clock *Clock, cfg Config) *Bot {
	limb := pose.RightWrist
	if cfg.Settings.Region == pose.RegionLower {
		limb = pose.RightAnkle
	}
	return &Bot{
		clock:    clock,
		limb:     limb,
		speed:    cfg.Speed,
		reaction: cfg.Reaction,
		miss:     cfg.Miss,
		rng:      rand.New(rand.NewSource(cfg.Seed)), //nolint:gosec // simulation only
		hand:     geometry.Point{X: cfg.Surface.Width / 2, Y: cfg.Surface.Height * 3 / 4},
		last:     clock.Now(),
	}
}

// Render implements engine.Renderer by remembering the visible target.
func (b *Bot) Render(_ context.Context, s engine.Scene) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.target = s.Target
	if t := s.Target; t != nil && t.ID != b.seenID {
		b.seenID = t.ID
		b.ignoring = b.rng.Float64() < b.miss
		if b.ignoring {
			b.ignored++
		}
	}
}

// Estimate implements engine.Estimator: the hand moves toward the target and
// the skeleton is reported in normalized coordinates.
func (b *Bot) Estimate(ctx context.Context, f engine.Frame) ([]pose.Skeleton, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.clock.Now()
	dt := now.Sub(b.last).Seconds()
	b.last = now

	if t := b.target; t != nil && !b.ignoring && now.Sub(t.SpawnedAt) >= b.reaction {
		b.hand = step(b.hand, t.Center, b.speed*dt)
	}
	return []pose.Skeleton{b.skeleton(f.Surface)}, nil
}

// Close implements engine.Estimator.
func (b *Bot) Close() error { return nil }

// Ignored returns how many targets the bot chose not to chase.
func (b *Bot) Ignored() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ignored
}

func (b *Bot) skeleton(surface geometry.Size) pose.Skeleton {
	var sk pose.Skeleton
	if surface.Empty() {
		return sk
	}
	at := func(i int, x, y float64) {
		sk.Points[i] = pose.Keypoint{X: x / surface.Width, Y: y / surface.Height, Visibility: 1}
	}
	cx := surface.Width / 2
	at(pose.Nose, cx, surface.Height*0.2)
	at(pose.LeftShoulder, cx-surface.Width*0.1, surface.Height*0.35)
	at(pose.RightShoulder, cx+surface.Width*0.1, surface.Height*0.35)
	at(pose.LeftHip, cx-surface.Width*0.07, surface.Height*0.65)
	at(pose.RightHip, cx+surface.Width*0.07, surface.Height*0.65)
	at(b.limb, b.hand.X, b.hand.Y)
	return sk
}

// step moves from toward to by at most d.
func step(from, to geometry.Point, d float64) geometry.Point {
	dist := geometry.Distance(from, to)
	if dist <= d || dist == 0 {
		return to
	}
	k := d / dist
	return geometry.Point{
		X: from.X + (to.X-from.X)*k,
		Y: from.Y + (to.Y-from.Y)*k,
	}
}
