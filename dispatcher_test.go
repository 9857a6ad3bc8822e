package seam

import (
	"testing"
	"time"
)

type dispatchHarness struct {
	looper   *Looper
	host     *fakeHost
	player   *Player
	animator *WindowAnimator
	comp     *MemoryCompositor
}

func newDispatchHarness() *dispatchHarness {
	comp := NewMemoryCompositor(64)
	return &dispatchHarness{
		looper:   NewLooper(nil),
		host:     newFakeHost(),
		player:   NewPlayer(frame),
		animator: NewWindowAnimator(DefaultConfig(), comp, nil),
		comp:     comp,
	}
}

func (h *dispatchHarness) dispatcher(f Factory) *Dispatcher {
	return newDispatcher(dispatcherConfig{
		kind:     TransitionHomeReturn,
		looper:   h.looper,
		host:     h.host,
		player:   h.player,
		factory:  f,
		fallback: h.animator.FallbackClosing,
	})
}

// settle runs queued control tasks and plays every animation to the end.
func (h *dispatchHarness) settle() {
	for i := 0; i < 200; i++ {
		h.looper.RunPending()
		if h.player.Active() == 0 && h.looper.Len() == 0 {
			return
		}
		h.player.Advance(frame)
	}
}

func homeReturnMessage() StartMessage {
	return StartMessage{
		Kind: TransitionHomeReturn,
		Apps: []WindowTarget{
			screenTarget(1, 7, ModeClosing),
			screenTarget(2, 1, ModeOpening),
		},
		Result: NewResult(),
	}
}

// countFinishes counts how often msg's result finishes.
func countFinishes(msg StartMessage) *int {
	n := new(int)
	msg.Result.OnFinish(func() { *n++ })
	return n
}

func TestDispatcherFinishesOnceAfterAnimation(t *testing.T) {
	h := newDispatchHarness()
	var targets *TargetSet
	d := h.dispatcher(FactoryFunc(func(_ StartMessage, ts *TargetSet) *Animation {
		targets = ts
		return NewAnimation("custom", 100*time.Millisecond)
	}))
	msg := homeReturnMessage()
	n := countFinishes(msg)

	d.OnAnimationStart(msg)
	h.looper.RunPending()
	if msg.Result.Finished() {
		t.Fatal("result finished before the animation ended")
	}
	if !d.Running() {
		t.Error("dispatcher should report a running transition")
	}
	h.settle()

	if *n != 1 {
		t.Errorf("result finished %d times, want 1", *n)
	}
	if !targets.Released() {
		t.Error("targets should be released at the end")
	}
	if d.Running() {
		t.Error("dispatcher still running")
	}
}

func TestDispatcherNilAnimationFinishesImmediately(t *testing.T) {
	h := newDispatchHarness()
	d := h.dispatcher(FactoryFunc(func(StartMessage, *TargetSet) *Animation { return nil }))
	msg := homeReturnMessage()
	d.OnAnimationStart(msg)
	h.looper.RunPending()
	if !msg.Result.Finished() {
		t.Error("nil animation should finish the result immediately")
	}
}

func TestDispatcherNilResult(t *testing.T) {
	h := newDispatchHarness()
	d := h.dispatcher(FactoryFunc(func(StartMessage, *TargetSet) *Animation { return nil }))
	msg := homeReturnMessage()
	msg.Result = nil
	d.OnAnimationStart(msg)
	h.settle()
}

func TestDispatcherFactoryPanicUsesFallback(t *testing.T) {
	h := newDispatchHarness()
	d := h.dispatcher(FactoryFunc(func(StartMessage, *TargetSet) *Animation { panic("broken factory") }))
	msg := homeReturnMessage()
	d.OnAnimationStart(msg)
	h.looper.RunPending()

	if d.current == nil || d.current.anim.Name() != "fallback-closing" {
		t.Fatalf("current = %+v, want fallback animation", d.current)
	}
	h.settle()
	if !msg.Result.Finished() {
		t.Error("result should finish after the fallback")
	}
}

func TestDispatcherDestroyedHostUsesFallback(t *testing.T) {
	h := newDispatchHarness()
	called := false
	d := h.dispatcher(FactoryFunc(func(StartMessage, *TargetSet) *Animation {
		called = true
		return NewAnimation("custom", time.Second)
	}))
	h.host.destroy()
	msg := homeReturnMessage()
	d.OnAnimationStart(msg)
	h.settle()

	if called {
		t.Error("factory should not run for a destroyed host")
	}
	if !msg.Result.Finished() {
		t.Error("result should finish")
	}
}

func TestDispatcherDestroyedDuringBuild(t *testing.T) {
	h := newDispatchHarness()
	var built *Animation
	d := h.dispatcher(FactoryFunc(func(StartMessage, *TargetSet) *Animation {
		h.host.destroy()
		built = NewAnimation("custom", time.Second)
		return built
	}))
	msg := homeReturnMessage()
	d.OnAnimationStart(msg)
	h.looper.RunPending()

	if !built.Canceled() {
		t.Error("animation built for a destroyed host should be canceled")
	}
	if d.current == nil || d.current.anim.Name() != "fallback-closing" {
		t.Error("fallback should play instead")
	}
	h.settle()
	if !msg.Result.Finished() {
		t.Error("result should finish")
	}
}

func TestDispatcherDefersUntilResume(t *testing.T) {
	h := newDispatchHarness()
	builds := 0
	d := h.dispatcher(FactoryFunc(func(StartMessage, *TargetSet) *Animation {
		builds++
		return NewAnimation("custom", 50*time.Millisecond)
	}))
	h.host.pause()
	msg := homeReturnMessage()
	d.OnAnimationStart(msg)
	h.looper.RunPending()

	if d.Deferred() != 1 || builds != 0 {
		t.Fatalf("Deferred = %d, builds = %d; want 1, 0", d.Deferred(), builds)
	}
	if h.looper.Len() != 0 {
		t.Error("deferral should not keep the control thread busy")
	}

	h.host.resume()
	h.settle()
	if builds != 1 {
		t.Errorf("builds = %d, want 1", builds)
	}
	if d.Deferred() != 0 || !msg.Result.Finished() {
		t.Error("deferred start should run and finish after resume")
	}
}

func TestDispatcherReleaseFlushesDeferred(t *testing.T) {
	h := newDispatchHarness()
	builds := 0
	d := h.dispatcher(FactoryFunc(func(StartMessage, *TargetSet) *Animation {
		builds++
		return nil
	}))
	h.host.pause()
	first, second := homeReturnMessage(), homeReturnMessage()
	n1, n2 := countFinishes(first), countFinishes(second)
	d.OnAnimationStart(first)
	d.OnAnimationStart(second)
	h.looper.RunPending()

	d.release()
	h.settle()
	if *n1 != 1 || *n2 != 1 {
		t.Errorf("finishes = %d, %d; want 1, 1", *n1, *n2)
	}

	h.host.resume()
	h.settle()
	if builds != 0 {
		t.Errorf("factory ran %d times after teardown", builds)
	}
	if *n1 != 1 || *n2 != 1 {
		t.Error("resume after teardown finished a result twice")
	}
}

func TestDispatcherCancel(t *testing.T) {
	h := newDispatchHarness()
	var anim *Animation
	d := h.dispatcher(FactoryFunc(func(StartMessage, *TargetSet) *Animation {
		anim = NewAnimation("custom", time.Second)
		return anim
	}))
	msg := homeReturnMessage()
	n := countFinishes(msg)
	d.OnAnimationStart(msg)
	h.looper.RunPending()

	d.OnAnimationCancelled()
	h.looper.RunPending()
	if !anim.Ended() {
		t.Error("cancel should end the animation")
	}
	if *n != 1 {
		t.Errorf("finishes = %d, want 1", *n)
	}
}

func TestDispatcherNewStartEndsPrevious(t *testing.T) {
	h := newDispatchHarness()
	d := h.dispatcher(FactoryFunc(func(StartMessage, *TargetSet) *Animation {
		return NewAnimation("custom", time.Second)
	}))
	first, second := homeReturnMessage(), homeReturnMessage()
	d.OnAnimationStart(first)
	h.looper.RunPending()
	d.OnAnimationStart(second)
	h.looper.RunPending()

	if !first.Result.Finished() {
		t.Error("first result should finish when a new start arrives")
	}
	if second.Result.Finished() {
		t.Error("second result should still be running")
	}
	h.settle()
	if !second.Result.Finished() {
		t.Error("second result should finish")
	}
}

func TestDispatcherSkipsFirstFrame(t *testing.T) {
	h := newDispatchHarness()
	var anim *Animation
	d := newDispatcher(dispatcherConfig{
		kind:   TransitionAppLaunch,
		looper: h.looper,
		host:   h.host,
		player: h.player,
		factory: FactoryFunc(func(StartMessage, *TargetSet) *Animation {
			anim = NewAnimation("launch", time.Second)
			return anim
		}),
		fallback:       h.animator.FallbackClosing,
		skipFirstFrame: true,
	})
	d.OnAnimationStart(homeReturnMessage())
	h.looper.RunPending()
	if anim.Elapsed() != frame {
		t.Errorf("Elapsed = %v, want %v", anim.Elapsed(), frame)
	}
}
