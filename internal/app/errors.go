package service

import "errors"

// Sentinel errors for the game service.
var (
	ErrNotStarted      = errors.New("service not started")
	ErrTooManySessions = errors.New("too many concurrent sessions")
)
