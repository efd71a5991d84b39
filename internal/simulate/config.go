package simulate

import (
	"fmt"
	"time"

	"github.com/okian/bodytap/internal/domain/geometry"
	"github.com/okian/bodytap/internal/engine"
)

// Config holds configuration for a simulated session.
type Config struct {
	Settings engine.Settings // game settings under test
	FPS      int             // virtual camera frame rate
	Surface  geometry.Size   // camera frame size in pixels
	Zones    []geometry.Rect // UI rectangles targets must avoid, view pixels
	Speed    float64         // bot hand speed in surface pixels per second
	Reaction time.Duration   // bot delay before chasing a new target
	Miss     float64         // probability the bot ignores a target
	Seed     int64           // seeds target placement and the bot
	Output   string          // optional JSON report file
	Verbose  bool            // log every hit
}

// DefaultConfig returns a one-minute medium session at 30 fps.
func DefaultConfig() Config {
	s := engine.DefaultSettings()
	s.SessionDuration = time.Minute
	return Config{
		Settings: s,
		FPS:      30,
		Surface:  geometry.Size{Width: 640, Height: 480},
		Zones:    []geometry.Rect{{X: 0, Y: 0, W: 180, H: 60}},
		Speed:    900,
		Reaction: 250 * time.Millisecond,
		Seed:     1,
	}
}

// Validate checks the simulation parameters.
func (c Config) Validate() error {
	switch {
	case c.FPS <= 0:
		return fmt.Errorf("%w: fps must be positive", ErrInvalidConfig)
	case c.Surface.Empty():
		return fmt.Errorf("%w: surface must not be empty", ErrInvalidConfig)
	case c.Speed <= 0:
		return fmt.Errorf("%w: speed must be positive", ErrInvalidConfig)
	case c.Reaction < 0:
		return fmt.Errorf("%w: reaction must not be negative", ErrInvalidConfig)
	case c.Miss < 0 || c.Miss > 1:
		return fmt.Errorf("%w: miss must be within [0,1]", ErrInvalidConfig)
	}
	if err := c.Settings.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Report summarizes a simulated session.
type Report struct {
	Region        string        `json:"region"`
	Difficulty    string        `json:"difficulty"`
	Frames        int           `json:"frames"`
	Spawned       int           `json:"spawned"`
	Hits          int           `json:"hits"`
	Evicted       int           `json:"evicted"`
	Ignored       int           `json:"ignored"`
	FinalScore    int           `json:"final_score"`
	Ended         bool          `json:"ended"`
	Countdown     []int         `json:"countdown"`
	SessionLength time.Duration `json:"session_length"`
	HitsPerMinute float64       `json:"hits_per_minute"`
	WallTime      time.Duration `json:"wall_time"`
}
