package seam

import (
	"fmt"
	"log/slog"
	"sort"
)

// Factory builds the animation for one remote transition. It runs on the
// control thread. A nil animation finishes the transition immediately.
type Factory interface {
	CreateAnimation(msg StartMessage, targets *TargetSet) *Animation
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc func(msg StartMessage, targets *TargetSet) *Animation

// CreateAnimation calls f.
func (f FactoryFunc) CreateAnimation(msg StartMessage, targets *TargetSet) *Animation {
	return f(msg, targets)
}

// running is the transition currently owned by a dispatcher.
type running struct {
	result  *Result
	anim    *Animation
	targets *TargetSet
}

// Dispatcher receives remote transition callbacks for one kind and turns
// them into played animations. Every start message's Result is finished
// exactly once, whatever happens to the host in between.
//
// OnAnimationStart and OnAnimationCancelled may be called from any
// goroutine; all other state is owned by the control thread.
type Dispatcher struct {
	kind     TransitionKind
	looper   *Looper
	host     Host
	player   *Player
	factory  Factory
	fallback func(*TargetSet) *Animation

	skipFirstFrame bool
	log            *slog.Logger
	metrics        *Metrics

	current      *running
	deferred     map[uint64]StartMessage
	nextDeferred uint64
	released     bool
	starting     bool

	// idle, if set, is called when the dispatcher has no running or
	// deferred transition left.
	idle func()
}

// dispatcherConfig holds the collaborators of a Dispatcher.
type dispatcherConfig struct {
	kind           TransitionKind
	looper         *Looper
	host           Host
	player         *Player
	factory        Factory
	fallback       func(*TargetSet) *Animation
	skipFirstFrame bool
	log            *slog.Logger
	metrics        *Metrics
	idle           func()
}

func newDispatcher(cfg dispatcherConfig) *Dispatcher {
	log := cfg.log
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		kind:           cfg.kind,
		looper:         cfg.looper,
		host:           cfg.host,
		player:         cfg.player,
		factory:        cfg.factory,
		fallback:       cfg.fallback,
		skipFirstFrame: cfg.skipFirstFrame,
		log:            log.With("kind", cfg.kind.String()),
		metrics:        cfg.metrics,
		deferred:       make(map[uint64]StartMessage),
		idle:           cfg.idle,
	}
}

// Kind returns the transition kind this dispatcher serves.
func (d *Dispatcher) Kind() TransitionKind { return d.kind }

// OnAnimationStart implements Runner.
func (d *Dispatcher) OnAnimationStart(msg StartMessage) {
	if msg.Result == nil {
		msg.Result = NewResult()
	}
	d.looper.Post(func() { d.start(msg) })
}

// OnAnimationCancelled implements Runner. The running animation is ended
// and its result finished.
func (d *Dispatcher) OnAnimationCancelled() {
	d.looper.Post(func() {
		d.log.Debug("transition cancelled by window manager")
		d.finishExisting()
	})
}

func (d *Dispatcher) start(msg StartMessage) {
	d.starting = true
	defer func() {
		d.starting = false
		d.checkIdle()
	}()
	d.finishExisting()
	d.metrics.transition(d.kind)

	if d.released || d.host.IsDestroyed() {
		targets := d.newTargets(msg)
		d.log.Debug("host gone, using fallback animation")
		d.metrics.fallback("destroyed")
		d.play(msg, targets, d.fallback(targets), false)
		return
	}
	if !d.host.HasBeenResumed() {
		d.deferStart(msg)
		return
	}

	targets := d.newTargets(msg)
	anim := d.build(msg, targets)
	if d.host.IsDestroyed() {
		d.log.Debug("host destroyed during build, using fallback animation")
		d.metrics.fallback("destroyed")
		if anim != nil {
			anim.Cancel()
		}
		anim = d.fallback(targets)
	}
	d.play(msg, targets, anim, d.skipFirstFrame)
}

func (d *Dispatcher) newTargets(msg StartMessage) *TargetSet {
	targets := NewTargetSet(msg.Apps, msg.Wallpapers, msg.NonApps)
	if n := targets.Dropped(); n > 0 {
		d.log.Warn("dropped duplicate window targets", "count", n)
	}
	return targets
}

// deferStart parks msg until the host resumes. The continuation re-posts
// the original message rather than blocking the control thread.
func (d *Dispatcher) deferStart(msg StartMessage) {
	id := d.nextDeferred
	d.nextDeferred++
	d.deferred[id] = msg
	d.log.Debug("host not resumed, deferring transition", "deferred", len(d.deferred))
	d.host.AddOnResumeCallback(func() {
		d.looper.Post(func() {
			msg, ok := d.deferred[id]
			if !ok {
				return
			}
			delete(d.deferred, id)
			d.start(msg)
		})
	})
}

// build runs the factory, recovering from panics with the fallback.
func (d *Dispatcher) build(msg StartMessage, targets *TargetSet) (anim *Animation) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("animation factory panic recovered", "error", fmt.Sprint(r))
			d.metrics.fallback("panic")
			anim = d.fallback(targets)
		}
	}()
	return d.factory.CreateAnimation(msg, targets)
}

func (d *Dispatcher) play(msg StartMessage, targets *TargetSet, anim *Animation, skipFirst bool) {
	cur := &running{result: msg.Result, anim: anim, targets: targets}
	if anim == nil {
		targets.Release()
		d.finish(cur)
		return
	}
	anim.OnEnd(func(bool) {
		targets.Release()
		d.finish(cur)
	})
	d.current = cur
	if skipFirst {
		d.player.PlaySkippingFirstFrame(anim)
	} else {
		d.player.Play(anim)
	}
}

func (d *Dispatcher) finish(cur *running) {
	if d.current == cur {
		d.current = nil
	}
	if cur.result.Finish() {
		d.metrics.result()
	}
	if !d.starting {
		d.checkIdle()
	}
}

func (d *Dispatcher) checkIdle() {
	if d.idle != nil && d.current == nil && len(d.deferred) == 0 {
		d.idle()
	}
}

// finishExisting ends the animation still running from a previous start so
// its result never leaks.
func (d *Dispatcher) finishExisting() {
	cur := d.current
	if cur == nil {
		return
	}
	d.current = nil
	if cur.anim != nil && !cur.anim.Ended() {
		cur.anim.End()
	}
	cur.targets.Release()
	d.finish(cur)
}

// Running reports whether a transition is in flight.
func (d *Dispatcher) Running() bool { return d.current != nil }

// Deferred returns the number of starts waiting for the host to resume.
func (d *Dispatcher) Deferred() int { return len(d.deferred) }

// release tears the dispatcher down. Deferred starts are flushed through the
// fallback so their results still finish. Control thread only.
func (d *Dispatcher) release() {
	if d.released {
		return
	}
	d.released = true
	d.finishExisting()

	ids := make([]uint64, 0, len(d.deferred))
	for id := range d.deferred {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		msg := d.deferred[id]
		delete(d.deferred, id)
		d.start(msg)
	}
}
