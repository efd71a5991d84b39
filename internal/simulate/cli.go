package simulate

import (
	"fmt"
	"io"
	"os"

	"github.com/okian/bodytap/pkg/logger"
)

// SetupLogging configures logging to the console and, when logFile is set,
// to that file as well.
func SetupLogging(logFile string, verbose bool) error {
	opts := logger.Options{Writer: os.Stdout}
	if verbose {
		opts.Level = "debug"
	}
	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, filePermission)
		if err != nil {
			return fmt.Errorf("failed to create log file: %w", err)
		}
		opts.Writer = io.MultiWriter(os.Stdout, file)
	}
	if err := logger.InitWith(opts); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// ShowHelp prints usage information for the simulator.
func ShowHelp() {
	os.Stdout.WriteString(`bodytap Session Simulator
=========================

Plays a headless game with a synthetic player on a virtual clock and reports
how the session went. No camera or browser is needed.

Usage:
  go run ./cmd/simulate [options]

Options:
  -region string
        Scoring body region: upper or lower (default "upper")
  -difficulty string
        slow, medium or fast (default "medium")
  -seconds int
        Session length in seconds (default 60)
  -countdown int
        Countdown seconds before the session starts (default 10)
  -fps int
        Virtual camera frame rate (default 30)
  -speed float
        Bot hand speed in pixels per second (default 900)
  -reaction duration
        Bot delay before chasing a new target (default 250ms)
  -miss float
        Probability the bot ignores a target (default 0)
  -seed int
        Random seed (default 1)
  -output string
        Write the JSON report to this file
  -log string
        Also write logs to this file
  -verbose
        Log every hit
  -help
        Show this help message

Examples:
  # One minute on fast difficulty
  go run ./cmd/simulate -difficulty fast

  # A sloppy player on the lower body
  go run ./cmd/simulate -region lower -miss 0.3 -output report.json
`)
}
