package ws

import (
	"context"
	"fmt"

	"github.com/okian/bodytap/internal/domain/pose"
	"github.com/okian/bodytap/internal/engine"
)

// ClientEstimator reads the poses the browser already estimated and sent
// along with the frame.
type ClientEstimator struct{}

// Estimate returns the skeletons carried in f.Data.
func (ClientEstimator) Estimate(ctx context.Context, f engine.Frame) ([]pose.Skeleton, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch v := f.Data.(type) {
	case nil:
		return nil, nil
	case []pose.Skeleton:
		return v, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrBadPayload, f.Data)
	}
}

// Close releases nothing.
func (ClientEstimator) Close() error { return nil }
