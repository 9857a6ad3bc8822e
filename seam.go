package seam

import (
	"math"
	"sync/atomic"
)

// Vec2 is a 2D vector used for positions and offsets.
type Vec2 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Rect is an axis-aligned rectangle. The coordinate system has its origin at
// the top-left, with Y increasing downward.
type Rect struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// RectLTRB builds a Rect from its left, top, right and bottom edges.
func RectLTRB(left, top, right, bottom float64) Rect {
	return Rect{X: left, Y: top, Width: right - left, Height: bottom - top}
}

// Right returns the x coordinate of the right edge.
func (r Rect) Right() float64 { return r.X + r.Width }

// Bottom returns the y coordinate of the bottom edge.
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// CenterX returns the horizontal center.
func (r Rect) CenterX() float64 { return r.X + r.Width/2 }

// CenterY returns the vertical center.
func (r Rect) CenterY() float64 { return r.Y + r.Height/2 }

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool { return r.Width <= 0 || r.Height <= 0 }

// Contains reports whether the point (x, y) lies inside the rectangle.
// Points on the edge are considered inside.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width &&
		y >= r.Y && y <= r.Y+r.Height
}

// Intersects reports whether r and other overlap.
// Adjacent rectangles (sharing only an edge) are considered intersecting.
func (r Rect) Intersects(other Rect) bool {
	return r.X <= other.X+other.Width &&
		r.X+r.Width >= other.X &&
		r.Y <= other.Y+other.Height &&
		r.Y+r.Height >= other.Y
}

// Offset returns r moved by (dx, dy).
func (r Rect) Offset(dx, dy float64) Rect {
	r.X += dx
	r.Y += dy
	return r
}

// OffsetTo returns r with its top-left corner moved to (x, y).
func (r Rect) OffsetTo(x, y float64) Rect {
	r.X = x
	r.Y = y
	return r
}

// ScaleAboutCenter returns r scaled by s around its own center.
func (r Rect) ScaleAboutCenter(s float64) Rect {
	cx, cy := r.CenterX(), r.CenterY()
	w, h := r.Width*s, r.Height*s
	return Rect{X: cx - w/2, Y: cy - h/2, Width: w, Height: h}
}

// Lerp linearly interpolates every edge of r toward to by t.
func (r Rect) Lerp(to Rect, t float64) Rect {
	return Rect{
		X:      lerp(r.X, to.X, t),
		Y:      lerp(r.Y, to.Y, t),
		Width:  lerp(r.Width, to.Width, t),
		Height: lerp(r.Height, to.Height, t),
	}
}

func lerp(a, b, t float64) float64 { return a + (b-a)*t }

// Leash is an opaque handle to a window surface that the engine is allowed
// to manipulate for the duration of one transition.
type Leash uint32

var leashCounter atomic.Uint32

// NewLeash allocates a process-unique leash handle. Handles are never zero.
func NewLeash() Leash {
	return Leash(leashCounter.Add(1))
}

// clamp01 limits v to [0, 1].
func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
