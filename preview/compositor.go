// Package preview renders leashed window surfaces with Ebitengine, so
// transitions can be watched and inspected interactively.
package preview

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"sort"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/phanxgames/seam"
)

// cornerSegments is the number of line segments per rounded corner.
const cornerSegments = 6

var (
	whiteOnce sync.Once
	whiteSub  *ebiten.Image
)

// whiteImage returns a 1x1 white sub-image whose source pixel is (1, 1).
func whiteImage() *ebiten.Image {
	whiteOnce.Do(func() {
		img := ebiten.NewImage(3, 3)
		img.Fill(color.White)
		whiteSub = img.SubImage(image.Rect(1, 1, 2, 2)).(*ebiten.Image)
	})
	return whiteSub
}

// Surface is one window as the preview draws it.
type Surface struct {
	Leash  seam.Leash
	Label  string
	Bounds seam.Rect
	Color  color.RGBA
	Z      int

	state seam.SurfaceState
}

// State returns the committed surface state.
func (s *Surface) State() seam.SurfaceState { return s.state }

// Compositor is a seam.Compositor that keeps surfaces in memory and draws
// them onto an ebiten image. Apply may be called from any goroutine.
type Compositor struct {
	mu       sync.Mutex
	surfaces map[seam.Leash]*Surface
	released map[seam.Leash]bool
	commits  int

	verts []ebiten.Vertex
	inds  []uint16
}

// NewCompositor creates an empty compositor.
func NewCompositor() *Compositor {
	return &Compositor{
		surfaces: make(map[seam.Leash]*Surface),
		released: make(map[seam.Leash]bool),
	}
}

// AddSurface registers a window. Its initial state shows the full bounds
// at the origin of its own coordinate space translated to the bounds.
func (c *Compositor) AddSurface(s *Surface) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s.state = seam.SurfaceState{
		Matrix:  seam.TranslateMatrix(s.Bounds.X, s.Bounds.Y),
		Alpha:   1,
		Crop:    s.Bounds.OffsetTo(0, 0),
		HasCrop: true,
	}
	delete(c.released, s.Leash)
	c.surfaces[s.Leash] = s
}

// Release removes a window. Later transactions that touch it are rejected.
func (c *Compositor) Release(leash seam.Leash) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.surfaces, leash)
	c.released[leash] = true
}

// Surface returns the surface for leash.
func (c *Compositor) Surface(leash seam.Leash) (*Surface, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.surfaces[leash]
	return s, ok
}

// Commits returns the number of transactions applied.
func (c *Compositor) Commits() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.commits
}

// Apply implements seam.Compositor. Every leash is checked before any
// surface changes.
func (c *Compositor) Apply(tx seam.Transaction) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range tx.Params {
		if c.released[p.Leash] {
			return fmt.Errorf("preview: transaction %d: leash %d: %w", tx.Seq, p.Leash, seam.ErrReleasedLeash)
		}
		if _, ok := c.surfaces[p.Leash]; !ok {
			return fmt.Errorf("preview: transaction %d: unknown leash %d", tx.Seq, p.Leash)
		}
	}
	for _, p := range tx.Params {
		st := &c.surfaces[p.Leash].state
		if m, ok := p.Matrix(); ok {
			st.Matrix = m
		}
		if a, ok := p.Alpha(); ok {
			st.Alpha = a
		}
		if r, ok := p.WindowCrop(); ok {
			st.Crop = r
			st.HasCrop = true
		}
		if r, ok := p.CornerRadius(); ok {
			st.CornerRadius = r
		}
		if r, ok := p.ShadowRadius(); ok {
			st.ShadowRadius = r
		}
	}
	c.commits++
	return nil
}

// Draw renders every surface onto dst in Z order.
func (c *Compositor) Draw(dst *ebiten.Image) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ordered := make([]*Surface, 0, len(c.surfaces))
	for _, s := range c.surfaces {
		ordered = append(ordered, s)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Z != ordered[j].Z {
			return ordered[i].Z < ordered[j].Z
		}
		return ordered[i].Leash < ordered[j].Leash
	})

	for _, s := range ordered {
		st := s.state
		if st.Alpha <= 0 {
			continue
		}
		crop := st.Crop
		if !st.HasCrop {
			crop = s.Bounds.OffsetTo(0, 0)
		}
		if crop.Empty() {
			continue
		}
		if st.ShadowRadius > 0 {
			grow := st.ShadowRadius / 2
			shadow := seam.Rect{X: crop.X - grow, Y: crop.Y, Width: crop.Width + 2*grow, Height: crop.Height + 2*grow}
			c.fill(dst, shadow, st.CornerRadius+grow, st.Matrix, color.RGBA{A: 255}, 0.25*st.Alpha)
		}
		c.fill(dst, crop, st.CornerRadius, st.Matrix, s.Color, st.Alpha)
	}
}

// fill draws a rounded rectangle given in surface coordinates.
func (c *Compositor) fill(dst *ebiten.Image, r seam.Rect, radius float64, m seam.Matrix, clr color.RGBA, alpha float64) {
	points := roundedRectPoints(r, radius, cornerSegments)
	c.verts, c.inds = buildFan(c.verts[:0], c.inds[:0], points, m, clr, alpha)
	if len(c.inds) == 0 {
		return
	}
	var op ebiten.DrawTrianglesOptions
	op.AntiAlias = true
	dst.DrawTriangles(c.verts, c.inds, whiteImage(), &op)
}

// roundedRectPoints returns the outline of r with corners of the given
// radius, clockwise from the top-left arc.
func roundedRectPoints(r seam.Rect, radius float64, segments int) []seam.Vec2 {
	radius = math.Min(radius, math.Min(r.Width, r.Height)/2)
	if radius <= 0 || segments < 1 {
		return []seam.Vec2{
			{X: r.X, Y: r.Y},
			{X: r.Right(), Y: r.Y},
			{X: r.Right(), Y: r.Bottom()},
			{X: r.X, Y: r.Bottom()},
		}
	}
	centers := [4]seam.Vec2{
		{X: r.X + radius, Y: r.Y + radius},
		{X: r.Right() - radius, Y: r.Y + radius},
		{X: r.Right() - radius, Y: r.Bottom() - radius},
		{X: r.X + radius, Y: r.Bottom() - radius},
	}
	points := make([]seam.Vec2, 0, 4*(segments+1))
	for corner, ctr := range centers {
		start := math.Pi + float64(corner)*math.Pi/2
		for i := 0; i <= segments; i++ {
			a := start + float64(i)*(math.Pi/2)/float64(segments)
			points = append(points, seam.Vec2{X: ctr.X + radius*math.Cos(a), Y: ctr.Y + radius*math.Sin(a)})
		}
	}
	return points
}

// buildFan appends fan-triangulated vertices for a convex outline,
// transformed by m.
func buildFan(verts []ebiten.Vertex, inds []uint16, points []seam.Vec2, m seam.Matrix, clr color.RGBA, alpha float64) ([]ebiten.Vertex, []uint16) {
	if len(points) < 3 {
		return verts, inds
	}
	a := float32(alpha)
	cr := float32(clr.R) / 255 * a
	cg := float32(clr.G) / 255 * a
	cb := float32(clr.B) / 255 * a
	ca := float32(clr.A) / 255 * a
	for _, p := range points {
		x, y := m.Apply(p.X, p.Y)
		verts = append(verts, ebiten.Vertex{
			DstX: float32(x), DstY: float32(y),
			SrcX: 1, SrcY: 1,
			ColorR: cr, ColorG: cg, ColorB: cb, ColorA: ca,
		})
	}
	for i := 1; i < len(points)-1; i++ {
		inds = append(inds, 0, uint16(i), uint16(i+1))
	}
	return verts, inds
}

// GeoM converts a seam matrix into an ebiten.GeoM.
func GeoM(m seam.Matrix) ebiten.GeoM {
	var g ebiten.GeoM
	g.SetElement(0, 0, m[0])
	g.SetElement(1, 0, m[1])
	g.SetElement(0, 1, m[2])
	g.SetElement(1, 1, m[3])
	g.SetElement(0, 2, m[4])
	g.SetElement(1, 2, m[5])
	return g
}
