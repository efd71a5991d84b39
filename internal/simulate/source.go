package simulate

import (
	"context"
	"time"

	"github.com/okian/bodytap/internal/domain/geometry"
	"github.com/okian/bodytap/internal/engine"
)

// Source yields evenly spaced frames on a virtual clock until its length
// is covered.
type Source struct {
	clock    *Clock
	start    time.Time
	interval time.Duration
	length   time.Duration
	surface  geometry.Size
	zones    []geometry.Rect
	n        int
}

// NewSource creates a frame source at fps frames per second lasting length.
func NewSource(clock *Clock, fps int, length time.Duration, surface geometry.Size, zones []geometry.Rect) *Source {
	return &Source{
		clock:    clock,
		start:    clock.Now(),
		interval: time.Second / time.Duration(fps),
		length:   length,
		surface:  surface,
		zones:    zones,
	}
}

// Next advances the clock by one frame interval and returns the frame.
func (s *Source) Next(ctx context.Context) (engine.Frame, error) {
	if err := ctx.Err(); err != nil {
		return engine.Frame{}, err
	}
	ts := time.Duration(s.n) * s.interval
	if ts > s.length {
		return engine.Frame{}, engine.ErrSourceDone
	}
	s.n++
	s.clock.Set(s.start.Add(ts))
	return engine.Frame{
		// Media time starts one interval in so the first frame is not zero.
		Timestamp: ts + s.interval,
		Surface:   s.surface,
		View:      geometry.CoverViewport(s.surface, s.surface, false),
		Zones:     s.zones,
	}, nil
}
