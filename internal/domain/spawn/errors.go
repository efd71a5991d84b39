package spawn

import "errors"

// Sentinel kinds for spawn errors.
var (
	ErrNoSurface = errors.New("surface has no usable dimensions")
)
