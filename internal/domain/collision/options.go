package collision

// Option applies a configuration option to the Detector.
type Option func(*Detector)

// WithMinVisibility ignores keypoints the estimator is less confident about.
// Zero (the default) scores every keypoint.
func WithMinVisibility(v float64) Option {
	return func(d *Detector) {
		if v >= 0 && v <= 1 {
			d.minVisibility = v
		}
	}
}
