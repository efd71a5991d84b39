package metrics

import (
	"errors"
)

// Sentinel kinds for metrics errors.
var (
	ErrNoSample = errors.New("metrics sample not found")
)
