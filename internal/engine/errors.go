package engine

import "errors"

// Sentinel errors for the game loop.
var (
	ErrInvalidSettings = errors.New("invalid game settings")
	ErrClosed          = errors.New("game loop closed")
	ErrSourceDone      = errors.New("frame source exhausted")
)
