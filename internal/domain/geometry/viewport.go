package geometry

import "math"

// Viewport maps surface pixels onto view pixels: a uniform scale, an offset,
// and an optional horizontal mirror around the view width (selfie cameras are
// displayed flipped). The zero value is the identity mapping.
type Viewport struct {
	Scale     float64 `json:"scale"`
	OffsetX   float64 `json:"offset_x"`
	OffsetY   float64 `json:"offset_y"`
	Mirrored  bool    `json:"mirrored"`
	ViewWidth float64 `json:"view_width"`
}

// Identity returns a viewport that leaves coordinates untouched.
func Identity() Viewport {
	return Viewport{Scale: 1}
}

// CoverViewport returns the mapping a surface gets when displayed with
// object-fit: cover inside a view, centered, optionally mirrored.
// An empty surface or view yields the identity.
func CoverViewport(surface, view Size, mirrored bool) Viewport {
	if surface.Empty() || view.Empty() {
		return Identity()
	}
	scale := math.Max(view.Width/surface.Width, view.Height/surface.Height)
	return Viewport{
		Scale:     scale,
		OffsetX:   (view.Width - surface.Width*scale) / 2,
		OffsetY:   (view.Height - surface.Height*scale) / 2,
		Mirrored:  mirrored,
		ViewWidth: view.Width,
	}
}

func (v Viewport) scale() float64 {
	if v.Scale <= 0 || math.IsNaN(v.Scale) {
		return 1
	}
	return v.Scale
}

// ToView maps a surface point into view space.
func (v Viewport) ToView(p Point) Point {
	s := v.scale()
	x := v.OffsetX + p.X*s
	if v.Mirrored {
		x = v.ViewWidth - x
	}
	return Point{X: x, Y: v.OffsetY + p.Y*s}
}

// ToSurface maps a view point back into surface space.
func (v Viewport) ToSurface(p Point) Point {
	s := v.scale()
	x := p.X
	if v.Mirrored {
		x = v.ViewWidth - x
	}
	return Point{X: (x - v.OffsetX) / s, Y: (p.Y - v.OffsetY) / s}
}

// LengthToView scales a surface length into view space.
func (v Viewport) LengthToView(d float64) float64 {
	return d * v.scale()
}

// RectToSurface maps a view rectangle into surface space.
func (v Viewport) RectToSurface(r Rect) Rect {
	a := v.ToSurface(Point{X: r.X, Y: r.Y})
	b := v.ToSurface(Point{X: r.Right(), Y: r.Bottom()})
	return spanning(a, b)
}

// RectsToSurface maps every view rectangle into surface space.
func (v Viewport) RectsToSurface(rs []Rect) []Rect {
	out := make([]Rect, len(rs))
	for i, r := range rs {
		out[i] = v.RectToSurface(r)
	}
	return out
}

func spanning(a, b Point) Rect {
	x0, x1 := math.Min(a.X, b.X), math.Max(a.X, b.X)
	y0, y1 := math.Min(a.Y, b.Y), math.Max(a.Y, b.Y)
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}
