package seam

import "time"

// UpdateFunc receives the time since the animation started and the overall
// linear fraction in [0, 1].
type UpdateFunc func(elapsed time.Duration, fraction float64)

// Animation is a fixed-length timeline with update, start and end
// listeners. Animations are driven by a Player on the control thread and are
// not safe for concurrent use.
//
// Children added with Together share the parent's clock. Each child ends
// when its own duration elapses; the parent ends when all of them have.
type Animation struct {
	name     string
	duration time.Duration
	elapsed  time.Duration

	updates        []UpdateFunc
	startListeners []func()
	endListeners   []func(canceled bool)
	children       []*Animation

	started  bool
	ended    bool
	canceled bool
}

// NewAnimation creates an animation that runs for duration.
func NewAnimation(name string, duration time.Duration) *Animation {
	if duration < 0 {
		duration = 0
	}
	return &Animation{name: name, duration: duration}
}

// Together composes anims into one animation whose duration is the longest
// child's.
func Together(name string, anims ...*Animation) *Animation {
	a := &Animation{name: name}
	for _, c := range anims {
		if c == nil {
			continue
		}
		a.children = append(a.children, c)
		if c.duration > a.duration {
			a.duration = c.duration
		}
	}
	return a
}

// Name returns the animation's name.
func (a *Animation) Name() string { return a.name }

// Duration returns the total length.
func (a *Animation) Duration() time.Duration { return a.duration }

// Elapsed returns how far the animation has progressed.
func (a *Animation) Elapsed() time.Duration { return a.elapsed }

// Children returns the composed animations.
func (a *Animation) Children() []*Animation { return a.children }

// Running reports whether the animation has started and not ended.
func (a *Animation) Running() bool { return a.started && !a.ended }

// Ended reports whether the animation has ended, normally or by cancel.
func (a *Animation) Ended() bool { return a.ended }

// Canceled reports whether the animation ended through Cancel.
func (a *Animation) Canceled() bool { return a.canceled }

// OnUpdate adds a per-frame listener. Returns a for chaining.
func (a *Animation) OnUpdate(fn UpdateFunc) *Animation {
	a.updates = append(a.updates, fn)
	return a
}

// OnStart adds a listener that fires when the animation starts.
func (a *Animation) OnStart(fn func()) *Animation {
	a.startListeners = append(a.startListeners, fn)
	return a
}

// OnEnd adds a listener that fires exactly once when the animation ends.
// Listeners fire in registration order.
func (a *Animation) OnEnd(fn func(canceled bool)) *Animation {
	a.endListeners = append(a.endListeners, fn)
	return a
}

// Start fires start listeners and samples the first frame. Calling Start on
// a started animation does nothing.
func (a *Animation) Start() {
	if a.started {
		return
	}
	a.started = true
	for _, fn := range a.startListeners {
		fn()
	}
	for _, c := range a.children {
		c.Start()
	}
	a.seek(0)
	if a.duration == 0 {
		a.finish(false)
	}
}

// Step advances the animation by dt and reports whether it has ended.
func (a *Animation) Step(dt time.Duration) bool {
	if !a.started {
		a.Start()
	}
	if a.ended {
		return true
	}
	a.seek(a.elapsed + dt)
	if a.elapsed >= a.duration {
		a.finish(false)
	}
	return a.ended
}

// End jumps to the final frame and ends the animation.
func (a *Animation) End() {
	if a.ended {
		return
	}
	if !a.started {
		a.Start()
		if a.ended {
			return
		}
	}
	a.seek(a.duration)
	a.finish(false)
}

// Cancel ends the animation without rendering further frames.
func (a *Animation) Cancel() {
	if a.ended {
		return
	}
	a.canceled = true
	for _, c := range a.children {
		c.Cancel()
	}
	a.ended = true
	a.fireEnd(true)
}

func (a *Animation) seek(t time.Duration) {
	if t > a.duration {
		t = a.duration
	}
	a.elapsed = t
	fraction := 1.0
	if a.duration > 0 {
		fraction = float64(t) / float64(a.duration)
	}
	for _, fn := range a.updates {
		fn(t, fraction)
	}
	for _, c := range a.children {
		if c.ended {
			continue
		}
		c.seek(t)
		if c.elapsed >= c.duration {
			c.finish(false)
		}
	}
}

func (a *Animation) finish(canceled bool) {
	if a.ended {
		return
	}
	for _, c := range a.children {
		if !c.ended {
			c.End()
		}
	}
	a.ended = true
	a.canceled = canceled
	a.fireEnd(canceled)
}

func (a *Animation) fireEnd(canceled bool) {
	fns := a.endListeners
	a.endListeners = nil
	for _, fn := range fns {
		fn(canceled)
	}
}

// Player drives running animations. The frame loop calls Advance once per
// frame; there is no global animation manager.
type Player struct {
	active []*Animation
	frame  time.Duration
}

// NewPlayer creates a player. frame is the length of one frame, used by
// PlaySkippingFirstFrame.
func NewPlayer(frame time.Duration) *Player {
	return &Player{frame: frame}
}

// Play starts a and schedules it on subsequent Advance calls.
func (p *Player) Play(a *Animation) {
	if a == nil {
		return
	}
	a.Start()
	if !a.ended {
		p.active = append(p.active, a)
	}
}

// PlaySkippingFirstFrame starts a already advanced by one frame. Used when
// the first frame would otherwise duplicate the surfaces' current state.
func (p *Player) PlaySkippingFirstFrame(a *Animation) {
	if a == nil {
		return
	}
	a.Start()
	if a.ended {
		return
	}
	if !a.Step(p.frame) {
		p.active = append(p.active, a)
	}
}

// Advance steps every running animation by dt. Animations that end are
// removed. Animations started from listeners during Advance are first
// stepped on the next call.
func (p *Player) Advance(dt time.Duration) {
	if len(p.active) == 0 {
		return
	}
	current := p.active
	p.active = nil
	var keep []*Animation
	for _, a := range current {
		if a.ended {
			continue
		}
		if !a.Step(dt) {
			keep = append(keep, a)
		}
	}
	p.active = append(keep, p.active...)
}

// Active returns the number of running animations.
func (p *Player) Active() int { return len(p.active) }

// EndAll jumps every running animation to its end.
func (p *Player) EndAll() {
	current := p.active
	p.active = nil
	for _, a := range current {
		a.End()
	}
}
