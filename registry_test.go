package seam

import (
	"context"
	"errors"
	"testing"
	"time"
)

type registryHarness struct {
	*dispatchHarness
	remote   *fakeRemote
	registry *Registry
}

func newRegistryHarness() *registryHarness {
	h := newDispatchHarness()
	remote := newFakeRemote()
	reg := NewRegistry(RegistryOptions{
		Remote:   remote,
		Looper:   h.looper,
		Host:     h.host,
		Player:   h.player,
		Animator: h.animator,
		Config:   DefaultConfig(),
	})
	h.animator.SetPresentationSource(reg)
	return &registryHarness{dispatchHarness: h, remote: remote, registry: reg}
}

func TestRegistryRegister(t *testing.T) {
	h := newRegistryHarness()
	ctx := context.Background()
	tok, err := h.registry.Register(ctx, TransitionHomeReturn)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if tok == "" {
		t.Error("empty token")
	}
	if !h.registry.Registered(TransitionHomeReturn) {
		t.Error("Registered = false")
	}
	if h.remote.runner(TransitionHomeReturn) != h.registry.Dispatcher(TransitionHomeReturn) {
		t.Error("remote holds a different runner")
	}
}

func TestRegistryRegisterUnknownKind(t *testing.T) {
	h := newRegistryHarness()
	_, err := h.registry.Register(context.Background(), TransitionAppLaunch)
	if !errors.Is(err, ErrUnknownKind) {
		t.Errorf("err = %v, want ErrUnknownKind", err)
	}
}

func TestRegistryRegisterRemoteFailure(t *testing.T) {
	h := newRegistryHarness()
	h.remote.registerErr = errors.New("wm unavailable")
	if _, err := h.registry.Register(context.Background(), TransitionUnlock); err == nil {
		t.Fatal("expected error")
	}
	if h.registry.Registered(TransitionUnlock) {
		t.Error("failed registration should not be recorded")
	}
}

func TestRegistryReplaceReleasesOld(t *testing.T) {
	h := newRegistryHarness()
	ctx := context.Background()
	first, _ := h.registry.Register(ctx, TransitionHomeReturn)
	old := h.registry.Dispatcher(TransitionHomeReturn)

	msg := homeReturnMessage()
	old.OnAnimationStart(msg)
	h.looper.RunPending()

	second, err := h.registry.Register(ctx, TransitionHomeReturn)
	if err != nil {
		t.Fatal(err)
	}
	if first == second {
		t.Error("replacement should get a new token")
	}
	if h.registry.Dispatcher(TransitionHomeReturn) == old {
		t.Error("dispatcher was not replaced")
	}
	if !msg.Result.Finished() {
		t.Error("old dispatcher's transition should finish on replacement")
	}
}

func TestRegistryUnregister(t *testing.T) {
	h := newRegistryHarness()
	ctx := context.Background()
	h.registry.Register(ctx, TransitionUnlock)
	d := h.registry.Dispatcher(TransitionUnlock)
	h.remote.unregisterErr = errors.New("gone")
	if err := h.registry.Unregister(ctx, TransitionUnlock); err == nil {
		t.Error("remote failure should be returned")
	}
	if !h.registry.Registered(TransitionUnlock) || h.registry.Dispatcher(TransitionUnlock) != d {
		t.Error("local registration should survive a remote failure")
	}
	if d.released {
		t.Error("dispatcher released despite the remote failure")
	}

	h.remote.unregisterErr = nil
	if err := h.registry.Unregister(ctx, TransitionUnlock); err != nil {
		t.Errorf("Unregister = %v, want nil", err)
	}
	if h.registry.Registered(TransitionUnlock) || !d.released {
		t.Error("registration should be removed and released")
	}
	if err := h.registry.Unregister(ctx, TransitionUnlock); err != nil {
		t.Errorf("second Unregister = %v, want nil", err)
	}
}

func TestRegistryDestroy(t *testing.T) {
	h := newRegistryHarness()
	ctx := context.Background()
	h.registry.Register(ctx, TransitionHomeReturn)
	h.registry.Register(ctx, TransitionUnlock)
	d := h.registry.Dispatcher(TransitionHomeReturn)

	h.host.pause()
	msg := homeReturnMessage()
	d.OnAnimationStart(msg)
	h.looper.RunPending()
	if d.Deferred() != 1 {
		t.Fatalf("Deferred = %d, want 1", d.Deferred())
	}

	h.registry.SetProvider(ProviderFunc(func(*TargetSet) *Animation { return nil }))
	h.registry.Destroy(ctx)
	h.settle()

	if !msg.Result.Finished() {
		t.Error("deferred transition should finish on destroy")
	}
	if len(h.remote.unregistered) != 2 {
		t.Errorf("unregistered = %v, want both kinds", h.remote.unregistered)
	}
	if h.registry.HasProvider() {
		t.Error("provider should be cleared")
	}
	if h.remote.listener != nil {
		t.Error("starting-window listener should be removed")
	}
	if _, err := h.registry.Register(ctx, TransitionUnlock); !errors.Is(err, ErrDestroyed) {
		t.Errorf("Register after Destroy = %v, want ErrDestroyed", err)
	}
	h.registry.Destroy(ctx)
}

func TestRegistryProviderWinsOverDefault(t *testing.T) {
	h := newRegistryHarness()
	h.registry.Register(context.Background(), TransitionHomeReturn)
	h.registry.SetProvider(ProviderFunc(func(*TargetSet) *Animation {
		return NewAnimation("custom-home", 100*time.Millisecond)
	}))

	d := h.registry.Dispatcher(TransitionHomeReturn)
	d.OnAnimationStart(homeReturnMessage())
	h.looper.RunPending()
	if d.current == nil || d.current.anim.Name() != "custom-home" {
		t.Fatalf("current = %+v, want provider animation", d.current)
	}
}

func TestRegistryProviderNilFallsBackToClosing(t *testing.T) {
	h := newRegistryHarness()
	h.registry.Register(context.Background(), TransitionHomeReturn)
	h.registry.SetProvider(ProviderFunc(func(*TargetSet) *Animation { return nil }))

	d := h.registry.Dispatcher(TransitionHomeReturn)
	d.OnAnimationStart(homeReturnMessage())
	h.looper.RunPending()
	if d.current == nil || d.current.anim.Name() != "home-return" {
		t.Fatalf("current = %+v, want default closing", d.current)
	}
}

func TestRegistryCanceledProviderNotUsed(t *testing.T) {
	h := newRegistryHarness()
	h.registry.Register(context.Background(), TransitionHomeReturn)
	called := false
	tok := h.registry.SetProvider(ProviderFunc(func(*TargetSet) *Animation {
		called = true
		return nil
	}))
	tok.Cancel()

	h.registry.Dispatcher(TransitionHomeReturn).OnAnimationStart(homeReturnMessage())
	h.looper.RunPending()
	if called {
		t.Error("canceled provider was consulted")
	}
}

func TestRegistryUnlockFinishesImmediately(t *testing.T) {
	h := newRegistryHarness()
	h.registry.Register(context.Background(), TransitionUnlock)
	msg := homeReturnMessage()
	msg.Kind = TransitionUnlock
	h.remote.runner(TransitionUnlock).OnAnimationStart(msg)
	h.looper.RunPending()
	if !msg.Result.Finished() {
		t.Error("unlock should finish on its first frame")
	}
}

func TestRegistryStartingWindowCache(t *testing.T) {
	h := newRegistryHarness()
	h.remote.listener(7, PresentationSplash)
	if _, ok := h.registry.TakePresentation(7); ok {
		t.Error("cache should only be written on the control thread")
	}
	h.looper.RunPending()
	p, ok := h.registry.TakePresentation(7)
	if !ok || p != PresentationSplash {
		t.Errorf("TakePresentation = %v, %v", p, ok)
	}
}

func TestRegistryAdapter(t *testing.T) {
	h := newRegistryHarness()
	d := DefaultConfig().Timings.RecentsLaunch
	a := h.registry.NewAdapter(TransitionOverview, h.registry.HomeReturnFactory(), d, false)
	if a.Kind != TransitionOverview || a.Duration != d {
		t.Errorf("adapter = %+v", a)
	}
	if a.StatusBarDelay != DefaultConfig().Timings.StatusBarDelay(d) {
		t.Errorf("StatusBarDelay = %v", a.StatusBarDelay)
	}

	if h.registry.Adapters() != 1 {
		t.Errorf("Adapters = %d, want 1", h.registry.Adapters())
	}

	msg := homeReturnMessage()
	a.Runner.OnAnimationStart(msg)
	h.settle()
	if !msg.Result.Finished() {
		t.Error("adapter transition should finish")
	}
	if h.registry.Adapters() != 0 {
		t.Errorf("Adapters = %d, want 0 once the adapter is idle", h.registry.Adapters())
	}
}

func TestRegistryDestroyFlushesDeferredAdapter(t *testing.T) {
	h := newRegistryHarness()
	a := h.registry.NewAdapter(TransitionAppLaunch, FactoryFunc(func(StartMessage, *TargetSet) *Animation {
		return NewAnimation("launch", time.Second)
	}), time.Second, true)

	h.host.pause()
	msg := homeReturnMessage()
	a.Runner.OnAnimationStart(msg)
	h.looper.RunPending()
	h.host.destroy()

	h.registry.Destroy(context.Background())
	h.settle()
	if !msg.Result.Finished() {
		t.Error("deferred adapter start should finish through the fallback")
	}
	if h.registry.Adapters() != 0 {
		t.Errorf("Adapters = %d, want 0", h.registry.Adapters())
	}

	late := h.registry.NewAdapter(TransitionAppLaunch, FactoryFunc(func(StartMessage, *TargetSet) *Animation {
		t.Error("factory ran after Destroy")
		return nil
	}), time.Second, false)
	lateMsg := homeReturnMessage()
	late.Runner.OnAnimationStart(lateMsg)
	h.settle()
	if !lateMsg.Result.Finished() {
		t.Error("adapter created after Destroy should still finish")
	}
}
