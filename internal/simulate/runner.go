// Package simulate plays headless sessions with a synthetic player on a
// virtual clock. It exercises the full frame loop without a camera.
package simulate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/bodytap/internal/engine"
	"github.com/okian/bodytap/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	filePermission      = 0600
)

// tally is the session listener of a simulation.
type tally struct {
	ctx       context.Context
	verbose   bool
	countdown []int
	hits      int
	final     int
	ended     bool
}

func (t *tally) OnHit(score int) {
	t.hits++
	if t.verbose {
		logger.Get().Info(t.ctx, "hit", logger.Int("score", score))
	}
}

func (t *tally) OnCountdownTick(value int) { t.countdown = append(t.countdown, value) }

func (t *tally) OnSessionEnd(final int) {
	t.final, t.ended = final, true
}

// Run plays one session and returns its report.
func Run(ctx context.Context, cfg Config) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	wall := time.Now()

	logger.Get().Info(ctx, "starting simulation",
		logger.String("region", string(cfg.Settings.Region)),
		logger.String("difficulty", string(cfg.Settings.Difficulty)),
		logger.Duration("session", cfg.Settings.SessionDuration),
		logger.Int("fps", cfg.FPS),
		logger.Float64("miss", cfg.Miss),
	)

	clock := NewClock(time.Unix(0, 0).UTC())
	bot := NewBot(clock, cfg)
	t := &tally{ctx: ctx, verbose: cfg.Verbose}

	loop, err := engine.New(cfg.Settings,
		engine.WithEstimator(bot),
		engine.WithRenderer(bot),
		engine.WithListener(t),
		engine.WithExecutor(engine.InlineExecutor),
		engine.WithClock(clock.Now),
		engine.WithSeed(cfg.Seed),
	)
	if err != nil {
		return nil, fmt.Errorf("build loop: %w", err)
	}
	defer func() { _ = loop.Close() }()

	// One extra second covers the countdown's last step and the end tick.
	length := time.Duration(cfg.Settings.Countdown)*time.Second + cfg.Settings.SessionDuration + time.Second
	src := NewSource(clock, cfg.FPS, length, cfg.Surface, cfg.Zones)

	report := &Report{
		Region:        string(cfg.Settings.Region),
		Difficulty:    string(cfg.Settings.Difficulty),
		SessionLength: cfg.Settings.SessionDuration,
	}
	for {
		f, err := src.Next(ctx)
		if errors.Is(err, engine.ErrSourceDone) {
			break
		}
		if err != nil {
			return nil, err
		}
		res := loop.Step(ctx, f)
		report.Frames++
		if res.Spawned {
			report.Spawned++
		}
		if res.Evicted {
			report.Evicted++
		}
		if res.Transition.Ended {
			break
		}
	}

	report.Hits = t.hits
	report.FinalScore = t.final
	report.Ended = t.ended
	report.Countdown = t.countdown
	report.Ignored = bot.Ignored()
	if minutes := cfg.Settings.SessionDuration.Minutes(); minutes > 0 {
		report.HitsPerMinute = float64(report.Hits) / minutes
	}
	report.WallTime = time.Since(wall)

	displayReport(ctx, report)

	if cfg.Output != "" {
		if err := SaveReport(ctx, cfg.Output, report); err != nil {
			logger.Get().Warn(ctx, "failed to save report", logger.Error(err))
		}
	}
	return report, nil
}

// SaveReport writes the report as indented JSON.
func SaveReport(ctx context.Context, filename string, r *Report) error {
	if r == nil {
		return ErrNoReport
	}

	// Ensure the directory exists
	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(filename, append(data, '\n'), filePermission); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	logger.Get().Info(ctx, "report saved to file", logger.String("filename", filename))
	return nil
}

// displayReport logs the final statistics.
func displayReport(ctx context.Context, r *Report) {
	logger.Get().Info(ctx, "final statistics",
		logger.Int("frames", r.Frames),
		logger.Int("spawned", r.Spawned),
		logger.Int("hits", r.Hits),
		logger.Int("evicted", r.Evicted),
		logger.Int("ignored", r.Ignored),
		logger.Int("finalScore", r.FinalScore),
		logger.Bool("ended", r.Ended),
		logger.Float64("hitsPerMinute", r.HitsPerMinute),
		logger.Duration("wallTime", r.WallTime))
}
