package engine

import (
	"fmt"
	"time"

	"github.com/okian/bodytap/internal/domain/model"
	"github.com/okian/bodytap/internal/domain/pose"
	"github.com/okian/bodytap/internal/domain/spawn"
)

// Default game settings.
const (
	DefaultSessionDuration = 180 * time.Second
	DefaultCountdown       = 10
	DefaultTargetTTL       = 5 * time.Second
	DefaultRadiusRatio     = spawn.MinRadiusRatio
	DefaultSpawnAttempts   = 20
	DefaultBodyClearance   = 2.5
	DefaultEdgePadding     = 10.0
	DefaultEffectDuration  = 500 * time.Millisecond
	DefaultVariantCount    = 4
)

// Settings configures one game session. They do not change while the
// session runs.
type Settings struct {
	Region          pose.Region      `json:"region"`
	Difficulty      model.Difficulty `json:"difficulty"`
	SessionDuration time.Duration    `json:"session_duration"`
	Countdown       int              `json:"countdown"`
	TargetTTL       time.Duration    `json:"target_ttl"`
	RadiusRatio     float64          `json:"radius_ratio"`
	SpawnAttempts   int              `json:"spawn_attempts"`
	BodyClearance   float64          `json:"body_clearance"`
	EdgePadding     float64          `json:"edge_padding"`
	EffectDuration  time.Duration    `json:"effect_duration"`
	VariantCount    int              `json:"variant_count"`
	MinVisibility   float64          `json:"min_visibility"`
}

// DefaultSettings returns upper-body, medium difficulty, three minute play.
func DefaultSettings() Settings {
	return Settings{
		Region:          pose.RegionUpper,
		Difficulty:      model.DifficultyMedium,
		SessionDuration: DefaultSessionDuration,
		Countdown:       DefaultCountdown,
		TargetTTL:       DefaultTargetTTL,
		RadiusRatio:     DefaultRadiusRatio,
		SpawnAttempts:   DefaultSpawnAttempts,
		BodyClearance:   DefaultBodyClearance,
		EdgePadding:     DefaultEdgePadding,
		EffectDuration:  DefaultEffectDuration,
		VariantCount:    DefaultVariantCount,
	}
}

// Validate checks every field and returns an error wrapping
// ErrInvalidSettings for the first bad one.
func (s Settings) Validate() error {
	switch {
	case !s.Region.Valid():
		return fmt.Errorf("%w: region %q", ErrInvalidSettings, s.Region)
	case !s.Difficulty.Valid():
		return fmt.Errorf("%w: difficulty %q", ErrInvalidSettings, s.Difficulty)
	case s.SessionDuration <= 0:
		return fmt.Errorf("%w: session duration must be positive", ErrInvalidSettings)
	case s.Countdown < 0:
		return fmt.Errorf("%w: countdown must not be negative", ErrInvalidSettings)
	case s.TargetTTL <= 0:
		return fmt.Errorf("%w: target ttl must be positive", ErrInvalidSettings)
	case s.RadiusRatio < spawn.MinRadiusRatio || s.RadiusRatio > spawn.MaxRadiusRatio:
		return fmt.Errorf("%w: radius ratio %v outside [%v,%v]",
			ErrInvalidSettings, s.RadiusRatio, spawn.MinRadiusRatio, spawn.MaxRadiusRatio)
	case s.SpawnAttempts <= 0:
		return fmt.Errorf("%w: spawn attempts must be positive", ErrInvalidSettings)
	case s.BodyClearance < 0:
		return fmt.Errorf("%w: body clearance must not be negative", ErrInvalidSettings)
	case s.EdgePadding < 0:
		return fmt.Errorf("%w: edge padding must not be negative", ErrInvalidSettings)
	case s.EffectDuration <= 0:
		return fmt.Errorf("%w: effect duration must be positive", ErrInvalidSettings)
	case s.VariantCount <= 0:
		return fmt.Errorf("%w: variant count must be positive", ErrInvalidSettings)
	case s.MinVisibility < 0 || s.MinVisibility > 1:
		return fmt.Errorf("%w: min visibility must be within [0,1]", ErrInvalidSettings)
	}
	return nil
}
