package seam

import (
	"time"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// Curve is an easing function in gween's (t, begin, change, duration) form.
type Curve = ease.TweenFunc

// Curves used by the built-in window animations.
var (
	CurveLinear        Curve = ease.Linear
	CurveOpening       Curve = ease.OutQuint
	CurveOpeningX      Curve = ease.OutCubic
	CurveDecelerate    Curve = ease.OutQuart
	CurveNavFadeIn     Curve = ease.OutCubic
	CurveNavFadeOut    Curve = ease.InCubic
	CurveTouchResponse Curve = ease.InOutCubic
)

// Property is one animated scalar: a start and end value, a delay, a duration
// and a curve. The zero Curve means linear.
type Property struct {
	Name     string
	Start    float64
	End      float64
	Delay    time.Duration
	Duration time.Duration
	Curve    Curve
}

// Span returns the time at which the property reaches its end value.
func (p Property) Span() time.Duration { return p.Delay + p.Duration }

// Interpolator samples a Property over time. It holds the last sampled value
// so several consumers in the same frame read a consistent number.
type Interpolator struct {
	Property
	tween *gween.Tween
	value float64
}

// NewInterpolator creates an interpolator positioned at the start value.
func NewInterpolator(p Property) *Interpolator {
	curve := p.Curve
	if curve == nil {
		curve = ease.Linear
	}
	return &Interpolator{
		Property: p,
		tween:    gween.New(float32(p.Start), float32(p.End), float32(p.Duration.Seconds()), curve),
		value:    p.Start,
	}
}

// Sample updates the value for the given time since the animation started
// and returns it. Before the delay the start value holds; after delay plus
// duration the end value holds.
func (i *Interpolator) Sample(elapsed time.Duration) float64 {
	local := elapsed - i.Delay
	switch {
	case local < 0:
		i.value = i.Start
	case local >= i.Duration:
		i.value = i.End
	default:
		v, _ := i.tween.Set(float32(local.Seconds()))
		i.value = float64(v)
	}
	return i.value
}

// Value returns the most recently sampled value.
func (i *Interpolator) Value() float64 { return i.value }

// PropertyGroup samples several interpolators against the same clock.
type PropertyGroup struct {
	props []*Interpolator
}

// Add registers p and returns its interpolator.
func (g *PropertyGroup) Add(p Property) *Interpolator {
	in := NewInterpolator(p)
	g.props = append(g.props, in)
	return in
}

// Sample updates every interpolator for elapsed.
func (g *PropertyGroup) Sample(elapsed time.Duration) {
	for _, p := range g.props {
		p.Sample(elapsed)
	}
}

// Span returns the latest end time across the group.
func (g *PropertyGroup) Span() time.Duration {
	var d time.Duration
	for _, p := range g.props {
		if s := p.Span(); s > d {
			d = s
		}
	}
	return d
}

// Len returns the number of properties.
func (g *PropertyGroup) Len() int { return len(g.props) }
