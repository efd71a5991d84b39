package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/okian/bodytap/internal/domain/model"
	"github.com/okian/bodytap/internal/domain/pose"
	"github.com/okian/bodytap/internal/simulate"
)

func main() {
	def := simulate.DefaultConfig()
	var (
		region     = flag.String("region", string(def.Settings.Region), "Scoring body region: upper or lower")
		difficulty = flag.String("difficulty", string(def.Settings.Difficulty), "slow, medium or fast")
		seconds    = flag.Int("seconds", int(def.Settings.SessionDuration/time.Second), "Session length in seconds")
		countdown  = flag.Int("countdown", def.Settings.Countdown, "Countdown seconds before the session starts")
		fps        = flag.Int("fps", def.FPS, "Virtual camera frame rate")
		speed      = flag.Float64("speed", def.Speed, "Bot hand speed in pixels per second")
		reaction   = flag.Duration("reaction", def.Reaction, "Bot delay before chasing a new target")
		miss       = flag.Float64("miss", def.Miss, "Probability the bot ignores a target")
		seed       = flag.Int64("seed", def.Seed, "Random seed")
		output     = flag.String("output", "", "Write the JSON report to this file")
		logFile    = flag.String("log", "", "Also write logs to this file")
		verbose    = flag.Bool("verbose", false, "Log every hit")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		simulate.ShowHelp()
		return
	}

	// Setup logging
	if err := simulate.SetupLogging(*logFile, *verbose); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	d, err := model.ParseDifficulty(*difficulty)
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(2)
	}

	cfg := def
	cfg.Settings.Region = pose.Region(strings.ToLower(*region))
	cfg.Settings.Difficulty = d
	cfg.Settings.SessionDuration = time.Duration(*seconds) * time.Second
	cfg.Settings.Countdown = *countdown
	cfg.FPS = *fps
	cfg.Speed = *speed
	cfg.Reaction = *reaction
	cfg.Miss = *miss
	cfg.Seed = *seed
	cfg.Output = *output
	cfg.Verbose = *verbose

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := simulate.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("Simulation failed: " + err.Error() + "\n")
		stop()
		os.Exit(1)
	}
}
