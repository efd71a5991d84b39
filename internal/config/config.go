// Package config defines server configuration and its loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers defaults, an optional YAML file and BODYTAP_ env vars.
// - Errors are wrapped with this package's sentinels.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/okian/bodytap/internal/domain/model"
	"github.com/okian/bodytap/internal/domain/pose"
	"github.com/okian/bodytap/internal/engine"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// BodyRegion is the default scoring region: upper or lower.
	BodyRegion string `koanf:"body_region"`

	// Difficulty is the default respawn pace: slow, medium or fast (or 1-3).
	Difficulty string `koanf:"difficulty"`

	// SessionSeconds is the play time once the countdown ends.
	SessionSeconds int `koanf:"session_seconds"`

	// CountdownSeconds is the countdown before play starts.
	CountdownSeconds int `koanf:"countdown_seconds"`

	// TargetTTLMS is how long an unhit target stays on screen.
	TargetTTLMS int `koanf:"target_ttl_ms"`

	// TargetRadiusRatio sizes targets relative to the shorter frame side.
	TargetRadiusRatio float64 `koanf:"target_radius_ratio"`

	// SpawnAttempts bounds rejection sampling per spawn.
	SpawnAttempts int `koanf:"spawn_attempts"`

	// BodyClearance is the minimum spawn distance from the body in radii.
	BodyClearance float64 `koanf:"body_clearance"`

	// EdgePaddingPX keeps targets this far inside the frame edge.
	EdgePaddingPX float64 `koanf:"edge_padding_px"`

	// EffectDurationMS is how long hit effects are drawn.
	EffectDurationMS int `koanf:"effect_duration_ms"`

	// VariantCount is the number of target looks to draw from.
	VariantCount int `koanf:"variant_count"`

	// MinVisibility ignores keypoints below this confidence when scoring.
	MinVisibility float64 `koanf:"min_visibility"`

	// OutboxSize bounds queued outbound messages per connection.
	OutboxSize int `koanf:"outbox_size"`

	// MaxSessions caps concurrent game sessions.
	MaxSessions int `koanf:"max_sessions"`
}

// New creates a Config with defaults.
func New() *Config {
	d := engine.DefaultSettings()
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":9080",
		BodyRegion:        string(d.Region),
		Difficulty:        string(d.Difficulty),
		SessionSeconds:    int(d.SessionDuration / time.Second),
		CountdownSeconds:  d.Countdown,
		TargetTTLMS:       int(d.TargetTTL / time.Millisecond),
		TargetRadiusRatio: d.RadiusRatio,
		SpawnAttempts:     d.SpawnAttempts,
		BodyClearance:     d.BodyClearance,
		EdgePaddingPX:     d.EdgePadding,
		EffectDurationMS:  int(d.EffectDuration / time.Millisecond),
		VariantCount:      d.VariantCount,
		MinVisibility:     d.MinVisibility,
		OutboxSize:        256,
		MaxSessions:       64,
	}
}

// Settings converts the game part of the config into loop settings.
func (c *Config) Settings() (engine.Settings, error) {
	region := pose.Region(strings.ToLower(strings.TrimSpace(c.BodyRegion)))
	if !region.Valid() {
		return engine.Settings{}, fmt.Errorf("%w: body_region %q", ErrInvalidConfig, c.BodyRegion)
	}
	difficulty, err := model.ParseDifficulty(c.Difficulty)
	if err != nil {
		return engine.Settings{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	s := engine.Settings{
		Region:          region,
		Difficulty:      difficulty,
		SessionDuration: time.Duration(c.SessionSeconds) * time.Second,
		Countdown:       c.CountdownSeconds,
		TargetTTL:       time.Duration(c.TargetTTLMS) * time.Millisecond,
		RadiusRatio:     c.TargetRadiusRatio,
		SpawnAttempts:   c.SpawnAttempts,
		BodyClearance:   c.BodyClearance,
		EdgePadding:     c.EdgePaddingPX,
		EffectDuration:  time.Duration(c.EffectDurationMS) * time.Millisecond,
		VariantCount:    c.VariantCount,
		MinVisibility:   c.MinVisibility,
	}
	if err := s.Validate(); err != nil {
		return engine.Settings{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return s, nil
}

// Validate checks the whole config.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.OutboxSize <= 0 {
		return fmt.Errorf("%w: outbox_size must be positive", ErrInvalidConfig)
	}
	if c.MaxSessions <= 0 {
		return fmt.Errorf("%w: max_sessions must be positive", ErrInvalidConfig)
	}
	_, err := c.Settings()
	return err
}
