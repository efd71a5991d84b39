// Package model contains the game entities passed between the loop's components.
package model

import (
	"time"

	"github.com/okian/bodytap/internal/domain/geometry"
)

// TargetID identifies a spawned target. IDs grow monotonically within a loop.
type TargetID uint64

// Target is the single touchable object on screen.
type Target struct {
	ID        TargetID       `json:"id"`         // monotonic identity, keys the target's timers
	Center    geometry.Point `json:"center"`     // surface pixels
	Radius    float64        `json:"radius"`     // surface pixels
	Variant   int            `json:"variant"`    // index into the visual variant set
	Visible   bool           `json:"visible"`    // false once hit, expired or evicted
	SpawnedAt time.Time      `json:"spawned_at"`
	ExpiresAt time.Time      `json:"expires_at"`
}

// Live reports whether t exists and is still visible.
func (t *Target) Live() bool {
	return t != nil && t.Visible
}

// Hide marks the target invisible.
func (t *Target) Hide() {
	if t != nil {
		t.Visible = false
	}
}

// Effect is a short-lived impact burst drawn where a target was hit.
// It never affects game state.
type Effect struct {
	Center    geometry.Point `json:"center"`
	Radius    float64        `json:"radius"`
	Variant   int            `json:"variant"`
	CreatedAt time.Time      `json:"created_at"`
}

// Alive reports whether the effect should still be drawn at now.
func (e Effect) Alive(now time.Time, lifetime time.Duration) bool {
	return now.Sub(e.CreatedAt) < lifetime
}

// PruneEffects drops effects whose lifetime elapsed, reusing the slice.
func PruneEffects(effects []Effect, now time.Time, lifetime time.Duration) []Effect {
	kept := effects[:0]
	for _, e := range effects {
		if e.Alive(now, lifetime) {
			kept = append(kept, e)
		}
	}
	return kept
}
