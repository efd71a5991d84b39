package ws

import "errors"

// Sentinel errors for the websocket bridge.
var (
	ErrBadPayload     = errors.New("unexpected frame payload")
	ErrUnknownMessage = errors.New("unknown message type")
	ErrAlreadyStarted = errors.New("session already started")
	ErrInvalidStart   = errors.New("invalid start message")
)
