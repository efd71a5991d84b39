// Package geometry provides the distance tests and coordinate mappings shared
// by the spawner and the collision detector.
//
// Three spaces are involved:
//   - normalized detection space, x and y in [0, 1];
//   - surface space, pixels of the video frame the detector ran on;
//   - view space, pixels of the on-screen layout the player sees.
//
// All functions are pure.
package geometry

import "math"

// Point is a position in pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a width/height pair in pixels.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Empty reports whether the size cannot hold any geometry.
func (s Size) Empty() bool {
	return !(s.Width > 0) || !(s.Height > 0) || math.IsInf(s.Width, 0) || math.IsInf(s.Height, 0)
}

// Min returns the shorter side.
func (s Size) Min() float64 {
	return math.Min(s.Width, s.Height)
}

// Rect is an axis-aligned rectangle anchored at its top-left corner.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Right returns the x coordinate of the right edge.
func (r Rect) Right() float64 { return r.X + r.W }

// Bottom returns the y coordinate of the bottom edge.
func (r Rect) Bottom() float64 { return r.Y + r.H }

// Inflate grows the rectangle by d on every side.
func (r Rect) Inflate(d float64) Rect {
	return Rect{X: r.X - d, Y: r.Y - d, W: r.W + 2*d, H: r.H + 2*d}
}

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.Right() && p.Y >= r.Y && p.Y <= r.Bottom()
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Within reports whether p lies strictly closer than radius to center.
func Within(p, center Point, radius float64) bool {
	return Distance(p, center) < radius
}

// CircleNearRect is the relaxed overlap test used for placement: the circle's
// bounding box overlaps the rectangle, i.e. the center falls inside the
// rectangle grown by radius.
func CircleNearRect(center Point, radius float64, r Rect) bool {
	return r.Inflate(radius).Contains(center)
}

// CircleIntersectsRect is the exact circle/rectangle overlap test.
func CircleIntersectsRect(center Point, radius float64, r Rect) bool {
	nx := clamp(center.X, r.X, r.Right())
	ny := clamp(center.Y, r.Y, r.Bottom())
	return Within(Point{X: nx, Y: ny}, center, radius)
}

// Denormalize maps a normalized detection coordinate onto a surface.
func Denormalize(x, y float64, surface Size) Point {
	return Point{X: x * surface.Width, Y: y * surface.Height}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
