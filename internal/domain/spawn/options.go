package spawn

import (
	"math/rand"
	"time"
)

// Option applies a configuration option to the Spawner.
type Option func(*Spawner)

// WithRadiusRatio sets the target radius as a fraction of the surface's
// shorter side. Values are clamped to [0.08, 0.12].
func WithRadiusRatio(ratio float64) Option {
	return func(s *Spawner) {
		if ratio > 0 {
			s.radiusRatio = min(max(ratio, MinRadiusRatio), MaxRadiusRatio)
		}
	}
}

// WithAttempts bounds the number of rejection-sampling draws.
func WithAttempts(n int) Option {
	return func(s *Spawner) {
		if n > 0 {
			s.attempts = n
		}
	}
}

// WithClearance sets the minimum keypoint distance in multiples of the radius.
func WithClearance(multiple float64) Option {
	return func(s *Spawner) {
		if multiple >= 0 {
			s.clearance = multiple
		}
	}
}

// WithEdgePadding sets the extra pixels kept between a target and the surface edge.
func WithEdgePadding(px float64) Option {
	return func(s *Spawner) {
		if px >= 0 {
			s.edgePadding = px
		}
	}
}

// WithVariants sets how many visual variants targets are drawn from.
func WithVariants(n int) Option {
	return func(s *Spawner) {
		if n > 0 {
			s.variants = n
		}
	}
}

// WithTTL sets how long a target lives before it expires unhit.
func WithTTL(ttl time.Duration) Option {
	return func(s *Spawner) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithRand sets the random source, mainly for deterministic tests.
func WithRand(rng *rand.Rand) Option {
	return func(s *Spawner) {
		if rng != nil {
			s.rng = rng
		}
	}
}

// WithSeed seeds a private random source.
func WithSeed(seed int64) Option {
	return WithRand(rand.New(rand.NewSource(seed))) //nolint:gosec // deterministic seed for reproducible placement
}
