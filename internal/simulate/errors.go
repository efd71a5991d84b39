package simulate

import "errors"

// Sentinel errors for the simulator.
var (
	ErrInvalidConfig = errors.New("invalid simulation config")
	ErrNoReport      = errors.New("no report to save")
)
