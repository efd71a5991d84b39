package model

import (
	"fmt"
	"strings"
	"time"
)

// Difficulty controls how long the player waits for the next target after a hit.
type Difficulty string

// Supported difficulties.
const (
	DifficultySlow   Difficulty = "slow"
	DifficultyMedium Difficulty = "medium"
	DifficultyFast   Difficulty = "fast"
)

// Respawn delays per difficulty.
const (
	respawnDelaySlow   = 5000 * time.Millisecond
	respawnDelayMedium = 2500 * time.Millisecond
	respawnDelayFast   = 0
)

// ParseDifficulty accepts the difficulty names case-insensitively, plus the
// numbered levels of the settings menu ("1", "2", "3").
func ParseDifficulty(s string) (Difficulty, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "slow", "1", "level_1", "nivel_1":
		return DifficultySlow, nil
	case "medium", "2", "level_2", "nivel_2":
		return DifficultyMedium, nil
	case "fast", "3", "level_3", "nivel_3":
		return DifficultyFast, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDifficulty, s)
	}
}

// Valid reports whether d names a known difficulty.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultySlow, DifficultyMedium, DifficultyFast:
		return true
	}
	return false
}

// RespawnDelay returns the wait between a hit and the next spawn.
// Unknown difficulties use the medium delay.
func (d Difficulty) RespawnDelay() time.Duration {
	switch d {
	case DifficultySlow:
		return respawnDelaySlow
	case DifficultyFast:
		return respawnDelayFast
	default:
		return respawnDelayMedium
	}
}
