package preview

import (
	"errors"
	"image/color"
	"math"
	"testing"

	"github.com/phanxgames/seam"
)

const epsilon = 1e-6

func TestGeoMMatchesMatrix(t *testing.T) {
	m := seam.ScaleMatrix(0.5, 0.25).PostTranslate(30, 40).Concat(seam.TranslateMatrix(-3, 7))
	g := GeoM(m)
	for _, p := range [][2]float64{{0, 0}, {10, 20}, {-5, 100}} {
		wx, wy := m.Apply(p[0], p[1])
		gx, gy := g.Apply(p[0], p[1])
		if math.Abs(wx-gx) > epsilon || math.Abs(wy-gy) > epsilon {
			t.Errorf("Apply(%v) = (%v, %v), want (%v, %v)", p, gx, gy, wx, wy)
		}
	}
}

func TestRoundedRectPoints(t *testing.T) {
	r := seam.Rect{X: 10, Y: 20, Width: 100, Height: 60}

	if got := len(roundedRectPoints(r, 0, cornerSegments)); got != 4 {
		t.Errorf("square corners: %d points, want 4", got)
	}

	points := roundedRectPoints(r, 12, cornerSegments)
	if len(points) != 4*(cornerSegments+1) {
		t.Fatalf("rounded: %d points, want %d", len(points), 4*(cornerSegments+1))
	}
	for _, p := range points {
		if p.X < r.X-epsilon || p.X > r.Right()+epsilon || p.Y < r.Y-epsilon || p.Y > r.Bottom()+epsilon {
			t.Errorf("point %+v outside %+v", p, r)
		}
	}
	first := points[0]
	if math.Abs(first.X-r.X) > epsilon || math.Abs(first.Y-(r.Y+12)) > epsilon {
		t.Errorf("first point = %+v, want left edge below the top-left arc", first)
	}
}

func TestRoundedRectPointsClampsRadius(t *testing.T) {
	r := seam.Rect{Width: 40, Height: 20}
	points := roundedRectPoints(r, 500, 4)
	for _, p := range points {
		if p.Y < -epsilon || p.Y > 20+epsilon {
			t.Fatalf("point %+v escapes the rect", p)
		}
	}
}

func TestBuildFan(t *testing.T) {
	points := roundedRectPoints(seam.Rect{Width: 10, Height: 10}, 0, cornerSegments)
	verts, inds := buildFan(nil, nil, points, seam.TranslateMatrix(5, 5), color.RGBA{R: 255, A: 255}, 0.5)
	if len(verts) != 4 || len(inds) != 6 {
		t.Fatalf("verts = %d, inds = %d; want 4, 6", len(verts), len(inds))
	}
	if verts[2].DstX != 15 || verts[2].DstY != 15 {
		t.Errorf("bottom-right = (%v, %v), want (15, 15)", verts[2].DstX, verts[2].DstY)
	}
	if verts[0].ColorR != 0.5 || verts[0].ColorA != 0.5 {
		t.Errorf("color = %v/%v, want premultiplied 0.5", verts[0].ColorR, verts[0].ColorA)
	}

	if v, i := buildFan(nil, nil, points[:2], seam.Matrix{}, color.RGBA{}, 1); len(v) != 0 || len(i) != 0 {
		t.Error("degenerate outline should produce nothing")
	}
}

func TestCompositorApply(t *testing.T) {
	c := NewCompositor()
	c.AddSurface(&Surface{Leash: 1, Bounds: seam.Rect{X: 0, Y: 100, Width: 200, Height: 400}})
	c.AddSurface(&Surface{Leash: 2, Bounds: seam.Rect{Width: 200, Height: 800}})

	s, _ := c.Surface(1)
	if st := s.State(); st.Alpha != 1 || st.Matrix != seam.TranslateMatrix(0, 100) {
		t.Errorf("initial state = %+v", st)
	}

	tx := seam.Transaction{Seq: 1, Params: []seam.SurfaceParams{
		seam.NewSurfaceParams(1).WithAlpha(0.5).WithCornerRadius(8).Build(),
		seam.NewSurfaceParams(2).WithShadowRadius(20).Build(),
	}}
	if err := c.Apply(tx); err != nil {
		t.Fatal(err)
	}
	if st := s.State(); st.Alpha != 0.5 || st.CornerRadius != 8 {
		t.Errorf("state = %+v", st)
	}
	if c.Commits() != 1 {
		t.Errorf("Commits = %d", c.Commits())
	}
}

func TestCompositorApplyIsAtomic(t *testing.T) {
	c := NewCompositor()
	c.AddSurface(&Surface{Leash: 1, Bounds: seam.Rect{Width: 10, Height: 10}})
	c.AddSurface(&Surface{Leash: 2, Bounds: seam.Rect{Width: 10, Height: 10}})
	c.Release(2)

	tx := seam.Transaction{Seq: 4, Params: []seam.SurfaceParams{
		seam.NewSurfaceParams(1).WithAlpha(0.1).Build(),
		seam.NewSurfaceParams(2).WithAlpha(0.1).Build(),
	}}
	if err := c.Apply(tx); !errors.Is(err, seam.ErrReleasedLeash) {
		t.Fatalf("err = %v, want ErrReleasedLeash", err)
	}
	s, _ := c.Surface(1)
	if s.State().Alpha != 1 {
		t.Error("rejected transaction changed a surface")
	}
	if c.Commits() != 0 {
		t.Errorf("Commits = %d, want 0", c.Commits())
	}

	unknown := seam.Transaction{Params: []seam.SurfaceParams{seam.NewSurfaceParams(9).WithAlpha(1).Build()}}
	if err := c.Apply(unknown); err == nil {
		t.Error("unknown leash should be rejected")
	}
}
