package seam

import (
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
)

// TransitionRequest describes one icon-to-window launch.
type TransitionRequest struct {
	ID        uuid.UUID
	Component string
	TaskID    int

	// Anchor is the icon's bounds in drag-layer coordinates and
	// AnchorOrigin the drag layer's offset on screen.
	Anchor       Rect
	AnchorOrigin Vec2
	// IconScale is the icon's scale when the launch starts. Zero means 1.
	IconScale float64
	// DifferentIcon is set when the splash icon differs from the launcher
	// icon, so the icon must stay visible until the window covers it.
	DifferentIcon bool
	// Target is the window's final bounds. Zero means derive it from the
	// display and the targets.
	Target Rect

	Created time.Time
	Targets *TargetSet

	// OnIcon, if set, is called every frame with the floating icon's
	// screen bounds and alpha.
	OnIcon func(bounds Rect, alpha float64)
}

// NewTransitionRequest creates a request with a fresh ID.
func NewTransitionRequest(component string, taskID int, anchor Rect, origin Vec2, now time.Time) *TransitionRequest {
	return &TransitionRequest{
		ID:           uuid.New(),
		Component:    component,
		TaskID:       taskID,
		Anchor:       anchor,
		AnchorOrigin: origin,
		IconScale:    1,
		Created:      now,
	}
}

// OpenParams are the values an icon launch animates between.
type OpenParams struct {
	Upward bool
	DX, DY float64

	InitialIconScale float64
	FinalIconScale   float64
	IconAlphaStart   float64

	CropStart Rect
	CropEnd   Rect

	InitialWindowRadius float64
	FinalWindowRadius   float64
	FinalShadowRadius   float64

	RotationChange int
	TargetBounds   Rect

	XDuration     time.Duration
	YDuration     time.Duration
	AlphaDuration time.Duration
	Duration      time.Duration
}

// PresentationSource hands out, and forgets, the cached presentation of a
// launching task.
type PresentationSource interface {
	TakePresentation(taskID int) (Presentation, bool)
}

// WindowAnimator builds the window animations. Each animation commits one
// transaction per frame through its own TransactionApplier.
type WindowAnimator struct {
	cfg        Config
	compositor Compositor
	policy     RotationPolicy

	alive         func() bool
	presentations PresentationSource

	log     *slog.Logger
	metrics *Metrics
	debug   bool
}

// NewWindowAnimator creates an animator committing to compositor.
func NewWindowAnimator(cfg Config, compositor Compositor, log *slog.Logger) *WindowAnimator {
	if log == nil {
		log = slog.Default()
	}
	return &WindowAnimator{
		cfg:        cfg,
		compositor: compositor,
		policy:     cfg.Rotation(),
		log:        log,
	}
}

// SetLiveness installs the owner check consulted before every commit.
func (b *WindowAnimator) SetLiveness(alive func() bool) { b.alive = alive }

// SetPresentationSource installs the splash-screen lookup.
func (b *WindowAnimator) SetPresentationSource(src PresentationSource) { b.presentations = src }

func (b *WindowAnimator) newApplier(targets *TargetSet) *TransactionApplier {
	a := NewTransactionApplier(b.compositor)
	a.log = b.log
	a.metrics = b.metrics
	a.debug = b.debug
	a.AddReleaseCheck(func() bool { return !targets.Released() })
	if b.alive != nil {
		a.AddReleaseCheck(b.alive)
	}
	return a
}

// RotationChange returns the rotation change the animator applies for apps.
func (b *WindowAnimator) RotationChange(apps []WindowTarget) int {
	return b.policy.Resolve(apps)
}

func (b *WindowAnimator) windowRadius() float64 {
	g := b.cfg.Geometry
	if !g.RoundedCorners || g.MultiWindow {
		return 0
	}
	return g.WindowCornerRadius
}

// windowTargetBounds returns where the launched window ends up.
func (b *WindowAnimator) windowTargetBounds(targets *TargetSet, rotation int) Rect {
	g := b.cfg.Geometry
	if !g.MultiWindow {
		return g.ScreenBounds()
	}
	for _, t := range targets.Apps {
		if t.Mode != ModeOpening {
			continue
		}
		var r Rect
		if t.LocalBounds != nil {
			r = *t.LocalBounds
		} else {
			r = t.ScreenBounds.OffsetTo(t.Position.X, t.Position.Y)
		}
		if rotation != 0 {
			r = RotateBounds(r, g.WidthPx, g.HeightPx, 4-rotation)
		}
		return r
	}
	return g.ScreenBounds()
}

// ComputeOpenParams derives the start and end values of an icon launch.
// It consumes the cached presentation of the opening task.
func (b *WindowAnimator) ComputeOpenParams(req *TransitionRequest, targets *TargetSet) OpenParams {
	g := b.cfg.Geometry
	t := b.cfg.Timings

	p := OpenParams{RotationChange: b.policy.Resolve(targets.Apps)}
	p.TargetBounds = req.Target
	if p.TargetBounds.Empty() {
		p.TargetBounds = b.windowTargetBounds(targets, p.RotationChange)
	}
	tb := p.TargetBounds
	icon := req.Anchor

	centerX := tb.CenterX() - req.AnchorOrigin.X
	centerY := tb.CenterY() - req.AnchorOrigin.Y
	p.DX = centerX - icon.CenterX()
	p.DY = centerY - icon.CenterY()

	p.InitialIconScale = req.IconScale
	if p.InitialIconScale == 0 {
		p.InitialIconScale = 1
	}
	smallest := math.Min(tb.Width, tb.Height)
	if icon.Width > 0 && icon.Height > 0 {
		p.FinalIconScale = math.Max(smallest/icon.Width, smallest/icon.Height)
	} else {
		p.FinalIconScale = 1
	}

	p.IconAlphaStart = 1
	if taskID, ok := targets.FirstTaskID(ModeOpening); ok && b.presentations != nil {
		if pres, ok := b.presentations.TakePresentation(taskID); ok && pres == PresentationSplash && !req.DifferentIcon {
			p.IconAlphaStart = 0
		}
	}

	size := g.StartingSurfaceIconSize
	p.CropStart = Rect{X: tb.CenterX() - size/2, Y: tb.CenterY() - size/2, Width: size, Height: size}
	p.CropEnd = tb

	if g.RoundedCorners {
		p.InitialWindowRadius = math.Max(p.CropStart.Width, p.CropStart.Height) / 2
	}
	p.FinalWindowRadius = b.windowRadius()
	if !targets.AnyTranslucent(ModeOpening) {
		p.FinalShadowRadius = g.MaxShadowRadius
	}

	p.Upward = icon.Y > centerY || math.Abs(p.DY) < g.MinDisplacement
	p.Duration = t.AppLaunch
	if p.Upward {
		p.XDuration = t.AppLaunchCurved
		p.YDuration = t.AppLaunch
		p.AlphaDuration = t.AppLaunchAlpha
	} else {
		p.XDuration = t.Down(t.AppLaunch)
		p.YDuration = t.Down(t.AppLaunchCurved)
		p.AlphaDuration = t.Down(t.AppLaunchAlpha)
	}
	return p
}

// restingParams leaves a closing target at its resting position, unscaled
// and fully visible.
func restingParams(t WindowTarget, rotation int) SurfaceParams {
	pos := t.RestPosition()
	crop := RemapCrop(t.ScreenBounds, rotation)
	if normalizeRotation(rotation)%2 == 1 {
		pos.X, pos.Y = pos.Y, pos.X
	}
	return NewSurfaceParams(t.Leash).
		WithMatrix(TranslateMatrix(pos.X, pos.Y)).
		WithWindowCrop(crop).
		WithAlpha(1).
		Build()
}

// Opening builds the icon-to-window launch animation.
func (b *WindowAnimator) Opening(req *TransitionRequest, targets *TargetSet) *Animation {
	req.Targets = targets
	p := b.ComputeOpenParams(req, targets)
	g := b.cfg.Geometry
	t := b.cfg.Timings
	applier := b.newApplier(targets)

	var props PropertyGroup
	dx := props.Add(Property{Name: "dx", End: p.DX, Duration: p.XDuration, Curve: CurveOpeningX})
	dy := props.Add(Property{Name: "dy", End: p.DY, Duration: p.YDuration, Curve: CurveOpening})
	iconScale := props.Add(Property{Name: "icon-scale", Start: p.InitialIconScale, End: p.FinalIconScale, Duration: p.Duration, Curve: CurveOpening})
	iconAlpha := props.Add(Property{Name: "icon-alpha", Start: p.IconAlphaStart, Delay: t.AppLaunchAlphaDelay, Duration: p.AlphaDuration, Curve: CurveLinear})
	radius := props.Add(Property{Name: "window-radius", Start: p.InitialWindowRadius, End: p.FinalWindowRadius, Duration: p.Duration, Curve: CurveOpening})
	shadow := props.Add(Property{Name: "shadow-radius", End: p.FinalShadowRadius, Duration: p.Duration, Curve: CurveOpening})
	cropX := props.Add(Property{Name: "crop-center-x", Start: p.CropStart.CenterX(), End: p.CropEnd.CenterX(), Duration: p.Duration, Curve: CurveOpening})
	cropY := props.Add(Property{Name: "crop-center-y", Start: p.CropStart.CenterY(), End: p.CropEnd.CenterY(), Duration: p.Duration, Curve: CurveOpening})
	cropW := props.Add(Property{Name: "crop-width", Start: p.CropStart.Width, End: p.CropEnd.Width, Duration: p.Duration, Curve: CurveOpening})
	cropH := props.Add(Property{Name: "crop-height", Start: p.CropStart.Height, End: p.CropEnd.Height, Duration: p.Duration, Curve: CurveOpening})
	navOut := props.Add(Property{Name: "nav-fade-out", Start: 1, Duration: t.NavFadeOut, Curve: CurveNavFadeOut})
	navIn := props.Add(Property{Name: "nav-fade-in", End: 1, Delay: p.Duration - t.NavFadeIn, Duration: t.NavFadeIn, Curve: CurveNavFadeIn})

	navBar, hasNav := targets.NavBar()
	icon := req.Anchor.Offset(req.AnchorOrigin.X, req.AnchorOrigin.Y)
	params := make([]SurfaceParams, 0, len(targets.Apps)+1)

	anim := NewAnimation("app-launch", p.Duration)
	anim.OnUpdate(func(elapsed time.Duration, _ float64) {
		props.Sample(elapsed)

		iconW := req.Anchor.Width * iconScale.Value()
		iconH := req.Anchor.Height * iconScale.Value()

		crop := Rect{
			X:      cropX.Value() - cropW.Value()/2,
			Y:      cropY.Value() - cropH.Value()/2,
			Width:  cropW.Value(),
			Height: cropH.Value(),
		}
		w, h := crop.Width, crop.Height
		if p.RotationChange != 0 {
			crop = RotateBounds(crop, g.WidthPx, g.HeightPx, p.RotationChange)
		}

		scale := 1.0
		if w > 0 && h > 0 {
			scale = math.Min(1, math.Max(iconW/w, iconH/h))
		}
		scaledW, scaledH := w*scale, h*scale
		offsetX := (scaledW - iconW) / 2
		offsetY := (scaledH - iconH) / 2

		bounds := icon.Offset(dx.Value(), dy.Value()).ScaleAboutCenter(iconScale.Value())
		transX := bounds.X - offsetX - crop.X*scale
		transY := bounds.Y - offsetY - crop.Y*scale

		if req.OnIcon != nil {
			req.OnIcon(bounds, iconAlpha.Value())
		}

		params = params[:0]
		for i := len(targets.Apps) - 1; i >= 0; i-- {
			target := targets.Apps[i]
			switch target.Mode {
			case ModeOpening:
				tx, ty := rotatedTranslation(p.RotationChange, transX, transY, scaledW, scaledH, g.WidthPx, g.HeightPx)
				params = append(params, NewSurfaceParams(target.Leash).
					WithMatrix(ScaleMatrix(scale, scale).PostTranslate(tx, ty)).
					WithWindowCrop(crop).
					WithAlpha(1-iconAlpha.Value()).
					WithCornerRadius(radius.Value()).
					WithShadowRadius(shadow.Value()).
					Build())
			case ModeClosing:
				params = append(params, restingParams(target, p.RotationChange))
			}
		}

		if hasNav {
			if navIn.Value() > navIn.Start {
				params = append(params, NewSurfaceParams(navBar.Leash).
					WithMatrix(ScaleMatrix(scale, scale).PostTranslate(transX, transY)).
					WithWindowCrop(crop).
					WithAlpha(navIn.Value()).
					Build())
			} else {
				params = append(params, NewSurfaceParams(navBar.Leash).
					WithAlpha(navOut.Value()).
					Build())
			}
		}
		applier.ScheduleApply(params...)
	})
	b.log.Debug("app launch animation built",
		"request", req.ID, "task", req.TaskID, "upward", p.Upward,
		"rotation", p.RotationChange, "icon_alpha_start", p.IconAlphaStart)
	return anim
}

// Closing builds the default return-to-home animation: closing windows
// slide down and fade out while opening windows rest in place.
func (b *WindowAnimator) Closing(targets *TargetSet) *Animation {
	return b.closing("home-return", targets, false)
}

// FallbackClosing builds the minimal closing-only animation used when the
// owner is gone or a custom animation could not be built.
func (b *WindowAnimator) FallbackClosing(targets *TargetSet) *Animation {
	return b.closing("fallback-closing", targets, true)
}

func (b *WindowAnimator) closing(name string, targets *TargetSet, minimal bool) *Animation {
	g := b.cfg.Geometry
	t := b.cfg.Timings
	rotation := b.policy.Resolve(targets.Apps)
	applier := b.newApplier(targets)

	startShadow := g.MaxShadowRadius
	if minimal || targets.AllTranslucent(ModeClosing) {
		startShadow = 0
	}
	cornerRadius := b.windowRadius()

	var props PropertyGroup
	dy := props.Add(Property{Name: "dy", End: g.ClosingWindowTransY, Duration: t.Closing, Curve: CurveDecelerate})
	alpha := props.Add(Property{Name: "alpha", Start: 1, Delay: t.ClosingAlphaDelay, Duration: t.ClosingAlpha, Curve: CurveLinear})
	shadow := props.Add(Property{Name: "shadow-radius", Start: startShadow, Duration: t.Closing, Curve: CurveLinear})

	params := make([]SurfaceParams, 0, len(targets.Apps))
	anim := NewAnimation(name, t.Closing)
	anim.OnUpdate(func(elapsed time.Duration, _ float64) {
		props.Sample(elapsed)
		params = params[:0]
		for i := len(targets.Apps) - 1; i >= 0; i-- {
			target := targets.Apps[i]
			switch target.Mode {
			case ModeClosing:
				pos := target.RestPosition()
				crop := RemapCrop(target.ScreenBounds, rotation)
				if normalizeRotation(rotation)%2 == 1 {
					pos.X, pos.Y = pos.Y, pos.X
				}
				m := ScaleAboutMatrix(1, crop.CenterX(), crop.CenterY()).
					PostTranslate(0, dy.Value()).
					PostTranslate(pos.X, pos.Y)
				params = append(params, NewSurfaceParams(target.Leash).
					WithMatrix(m).
					WithWindowCrop(crop).
					WithAlpha(alpha.Value()).
					WithCornerRadius(cornerRadius).
					WithShadowRadius(shadow.Value()).
					Build())
			case ModeOpening:
				if minimal {
					continue
				}
				params = append(params, restingParams(target, rotation))
			}
		}
		applier.ScheduleApply(params...)
	})
	return anim
}

// Unlock builds the keyguard-dismiss animation: app windows are shown at
// full alpha with a screen-sized crop as soon as it starts.
func (b *WindowAnimator) Unlock(targets *TargetSet) *Animation {
	applier := b.newApplier(targets)
	crop := b.cfg.Geometry.ScreenBounds()
	radius := b.windowRadius()
	anim := NewAnimation("unlock", 0)
	anim.OnStart(func() {
		params := make([]SurfaceParams, 0, len(targets.Apps))
		for _, target := range targets.Apps {
			params = append(params, NewSurfaceParams(target.Leash).
				WithAlpha(1).
				WithWindowCrop(crop).
				WithCornerRadius(radius).
				Build())
		}
		applier.ScheduleApply(params...)
	})
	return anim
}

// ToOverview builds the animation that shrinks the running task's window
// into its overview thumbnail. If the home surface is among the opening
// targets it fades in alongside.
func (b *WindowAnimator) ToOverview(targets *TargetSet, taskID int, thumbnail Rect) *Animation {
	t := b.cfg.Timings
	running, ok := targets.FindTask(taskID)
	if !ok || running.Mode != ModeClosing {
		b.log.Debug("no closing window for overview task", "task", taskID)
		return NewAnimation("to-overview", t.RecentsLaunch)
	}
	applier := b.newApplier(targets)
	src := running.ScreenBounds
	crop := src.OffsetTo(0, 0)
	animatingHome := targets.HasMode(ModeOpening)

	var props PropertyGroup
	progress := props.Add(Property{Name: "progress", End: 1, Duration: t.RecentsLaunch, Curve: CurveTouchResponse})
	radius := props.Add(Property{Name: "radius", Start: b.windowRadius(), End: b.cfg.Geometry.TaskCornerRadius, Duration: t.RecentsLaunch, Curve: CurveTouchResponse})

	params := make([]SurfaceParams, 0, len(targets.Apps))
	anim := NewAnimation("to-overview", t.RecentsLaunch)
	anim.OnUpdate(func(elapsed time.Duration, _ float64) {
		props.Sample(elapsed)
		rect := src.Lerp(thumbnail, progress.Value())
		scale := 1.0
		if src.Width > 0 {
			scale = rect.Width / src.Width
		}
		params = params[:0]
		params = append(params, NewSurfaceParams(running.Leash).
			WithMatrix(ScaleMatrix(scale, scale).PostTranslate(rect.X, rect.Y)).
			WithWindowCrop(crop).
			WithAlpha(1).
			WithCornerRadius(radius.Value()/math.Max(scale, 1e-3)).
			Build())
		if animatingHome {
			for _, target := range targets.Apps {
				if target.Mode == ModeOpening {
					params = append(params, NewSurfaceParams(target.Leash).WithAlpha(progress.Value()).Build())
				}
			}
		}
		applier.ScheduleApply(params...)
	})
	return anim
}
