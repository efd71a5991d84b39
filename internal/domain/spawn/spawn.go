// Package spawn decides where the next target appears.
//
// Placement is rejection sampling inside a vertical band chosen by the body
// region: candidates overlapping a UI zone or too close to any tracked
// keypoint are redrawn, up to a bounded number of attempts. When every attempt
// fails the spawner still returns a target, so the game never stalls.
package spawn

import (
	"math"
	"math/rand"
	"time"

	"github.com/okian/bodytap/internal/domain/geometry"
	"github.com/okian/bodytap/internal/domain/model"
	"github.com/okian/bodytap/internal/domain/pose"
)

// Bounds of the target radius as a fraction of the surface's shorter side.
const (
	MinRadiusRatio = 0.08
	MaxRadiusRatio = 0.12
)

// Default spawner configuration constants.
const (
	defaultRadiusRatio = MinRadiusRatio
	defaultAttempts    = 20
	defaultClearance   = 2.5
	defaultEdgePadding = 10.0
	defaultVariants    = 1
	defaultTTL         = 5 * time.Second
)

// Band is a vertical slice of the surface expressed as fractions of its height.
type Band struct {
	Top    float64
	Bottom float64
}

var (
	// lowerBand keeps targets near the floor so feet can reach them.
	lowerBand = Band{Top: 0.5, Bottom: 1.0}
	// centerBand spans most of the height for hand play.
	centerBand = Band{Top: 0.1, Bottom: 0.9}
)

// Request carries everything the spawner looks at for one placement.
type Request struct {
	ID        model.TargetID
	Now       time.Time
	Region    pose.Region
	Surface   geometry.Size
	Zones     []geometry.Rect // surface pixels
	Skeletons []pose.Skeleton
}

// Result is a placed target plus how hard it was to place.
type Result struct {
	Target   model.Target
	Attempts int
	// Fallback is set when no candidate satisfied every constraint and the
	// spawner settled for the best one it drew.
	Fallback bool
}

// Spawner places targets. Not safe for concurrent use.
type Spawner struct {
	radiusRatio float64
	attempts    int
	clearance   float64
	edgePadding float64
	variants    int
	ttl         time.Duration
	rng         *rand.Rand
}

// New creates a spawner with configuration options.
func New(opts ...Option) *Spawner {
	s := &Spawner{
		radiusRatio: defaultRadiusRatio,
		attempts:    defaultAttempts,
		clearance:   defaultClearance,
		edgePadding: defaultEdgePadding,
		variants:    defaultVariants,
		ttl:         defaultTTL,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // placement needs no crypto randomness
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Radius returns the target radius used on a surface.
func (s *Spawner) Radius(surface geometry.Size) float64 {
	return s.radiusRatio * surface.Min()
}

// BandFor returns the vertical band targets are drawn from for a region.
func BandFor(region pose.Region) Band {
	if region == pose.RegionLower {
		return lowerBand
	}
	return centerBand
}

// Spawn places a new visible target. It returns ErrNoSurface when the
// surface has no usable dimensions; no target is produced in that case.
func (s *Spawner) Spawn(req Request) (Result, error) {
	if req.Surface.Empty() {
		return Result{}, ErrNoSurface
	}

	w, h := req.Surface.Width, req.Surface.Height
	radius := s.Radius(req.Surface)

	pad := radius + s.edgePadding
	if 2*pad > w || 2*pad > h {
		pad = radius
	}
	xMin, xMax := pad, w-pad

	band := BandFor(req.Region)
	yMin := math.Max(pad, band.Top*h)
	yMax := math.Min(h-pad, band.Bottom*h)
	if yMin > yMax {
		yMin, yMax = pad, h-pad
	}

	body := bodyPoints(req.Skeletons, req.Surface)
	minGap := s.clearance * radius

	var (
		candidate geometry.Point
		zoneFree  geometry.Point
		haveFree  bool
	)
	for attempt := 1; attempt <= s.attempts; attempt++ {
		candidate = geometry.Point{
			X: s.uniform(xMin, xMax),
			Y: s.uniform(yMin, yMax),
		}
		if hitsZone(candidate, radius, req.Zones) {
			continue
		}
		zoneFree, haveFree = candidate, true
		if tooClose(candidate, minGap, body) {
			continue
		}
		return Result{Target: s.target(req, candidate, radius), Attempts: attempt}, nil
	}

	// Prefer a candidate that at least keeps clear of the UI.
	if haveFree {
		candidate = zoneFree
	}
	return Result{Target: s.target(req, candidate, radius), Attempts: s.attempts, Fallback: true}, nil
}

func (s *Spawner) target(req Request, center geometry.Point, radius float64) model.Target {
	return model.Target{
		ID:        req.ID,
		Center:    center,
		Radius:    radius,
		Variant:   s.rng.Intn(s.variants),
		Visible:   true,
		SpawnedAt: req.Now,
		ExpiresAt: req.Now.Add(s.ttl),
	}
}

func (s *Spawner) uniform(lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + s.rng.Float64()*(hi-lo)
}

func hitsZone(c geometry.Point, radius float64, zones []geometry.Rect) bool {
	for _, z := range zones {
		if geometry.CircleNearRect(c, radius, z) {
			return true
		}
	}
	return false
}

func tooClose(c geometry.Point, minGap float64, body []geometry.Point) bool {
	for _, p := range body {
		if geometry.Distance(c, p) <= minGap {
			return true
		}
	}
	return false
}

// bodyPoints maps every supplied keypoint of every skeleton onto the
// surface. Supplied landmarks count whatever their visibility.
func bodyPoints(skeletons []pose.Skeleton, surface geometry.Size) []geometry.Point {
	pts := make([]geometry.Point, 0, len(skeletons)*pose.NumLandmarks)
	for i := range skeletons {
		for li, kp := range skeletons[i].Points {
			if !skeletons[i].Has(li) {
				continue
			}
			pts = append(pts, geometry.Denormalize(kp.X, kp.Y, surface))
		}
	}
	return pts
}
