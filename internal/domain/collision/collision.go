// Package collision tests tracked body keypoints against the live target and
// keeps the target out from under fixed UI chrome.
package collision

import (
	"time"

	"github.com/okian/bodytap/internal/domain/geometry"
	"github.com/okian/bodytap/internal/domain/model"
	"github.com/okian/bodytap/internal/domain/pose"
)

// Registrar credits a hit. It returns the new score and whether the hit
// was accepted.
type Registrar interface {
	RegisterHit(now time.Time) (int, bool)
}

// Hit describes the keypoint that touched the target.
type Hit struct {
	Skeleton int            // index of the skeleton in the frame
	Landmark int            // pose landmark index
	Point    geometry.Point // keypoint position in surface pixels
	Effect   model.Effect   // impact burst left where the target was
	Score    int            // score after the hit
	Accepted bool           // false when the registrar refused the hit
}

// Detector runs the per-frame hit test. Not safe for concurrent use.
type Detector struct {
	region        pose.Region
	minVisibility float64
	registrar     Registrar
}

// New creates a detector for a body region. The registrar is invoked once
// per credited hit; it may be nil.
func New(region pose.Region, registrar Registrar, opts ...Option) *Detector {
	d := &Detector{
		region:    region,
		registrar: registrar,
	}

	// Apply all options
	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Check looks for the first region-relevant keypoint inside the target's
// circle. On a hit the target is hidden, an effect is produced, the hit is
// registered and scanning stops: at most one hit per frame.
func (d *Detector) Check(now time.Time, target *model.Target, skeletons []pose.Skeleton, surface geometry.Size) (Hit, bool) {
	if !target.Live() || surface.Empty() {
		return Hit{}, false
	}

	indices := d.region.Indices()
	for si := range skeletons {
		for _, li := range indices {
			if !skeletons[si].Has(li) {
				continue
			}
			kp := skeletons[si].Points[li]
			if kp.Visibility < d.minVisibility {
				continue
			}
			p := geometry.Denormalize(kp.X, kp.Y, surface)
			if !geometry.Within(p, target.Center, target.Radius) {
				continue
			}
			return d.credit(now, target, si, li, p), true
		}
	}
	return Hit{}, false
}

func (d *Detector) credit(now time.Time, target *model.Target, skeleton, landmark int, p geometry.Point) Hit {
	target.Hide()
	hit := Hit{
		Skeleton: skeleton,
		Landmark: landmark,
		Point:    p,
		Effect: model.Effect{
			Center:    target.Center,
			Radius:    target.Radius,
			Variant:   target.Variant,
			CreatedAt: now,
		},
	}
	if d.registrar != nil {
		hit.Score, hit.Accepted = d.registrar.RegisterHit(now)
	}
	return hit
}

// Evict hides a visible target whose on-screen circle overlaps any UI zone.
// Zones are in view pixels; vp maps the target there. It reports whether
// the target was evicted.
func (d *Detector) Evict(target *model.Target, vp geometry.Viewport, zones []geometry.Rect) bool {
	if !target.Live() || len(zones) == 0 {
		return false
	}
	center := vp.ToView(target.Center)
	radius := vp.LengthToView(target.Radius)
	for _, z := range zones {
		if geometry.CircleIntersectsRect(center, radius, z) {
			target.Hide()
			return true
		}
	}
	return false
}
