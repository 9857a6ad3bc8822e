package seam

import (
	"context"
	"sync"
	"time"
)

// fakeRemote records calls made to the window manager.
type fakeRemote struct {
	mu sync.Mutex

	runners      map[TransitionKind]Runner
	unregistered []TransitionKind
	starts       []startCall
	listener     StartingWindowListener

	registerErr   error
	unregisterErr error
	startErr      error
}

type startCall struct {
	req     ActivityRequest
	adapter *Adapter
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{runners: make(map[TransitionKind]Runner)}
}

func (f *fakeRemote) RegisterTransition(_ context.Context, kind TransitionKind, r Runner) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.registerErr != nil {
		return f.registerErr
	}
	f.runners[kind] = r
	return nil
}

func (f *fakeRemote) UnregisterTransition(_ context.Context, kind TransitionKind) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.runners, kind)
	f.unregistered = append(f.unregistered, kind)
	return f.unregisterErr
}

func (f *fakeRemote) StartActivity(_ context.Context, req ActivityRequest, adapter *Adapter) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts = append(f.starts, startCall{req: req, adapter: adapter})
	return f.startErr
}

func (f *fakeRemote) SetStartingWindowListener(l StartingWindowListener) {
	f.mu.Lock()
	f.listener = l
	f.mu.Unlock()
}

func (f *fakeRemote) runner(kind TransitionKind) Runner {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.runners[kind]
}

func (f *fakeRemote) startCalls() []startCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]startCall(nil), f.starts...)
}

// fakeHost is a home activity whose lifecycle the test controls.
type fakeHost struct {
	mu        sync.Mutex
	destroyed bool
	resumed   bool
	onResume  []func()
}

func newFakeHost() *fakeHost { return &fakeHost{resumed: true} }

func (h *fakeHost) IsDestroyed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.destroyed
}

func (h *fakeHost) HasBeenResumed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.resumed
}

func (h *fakeHost) TaskID() int { return 1 }

func (h *fakeHost) AddOnResumeCallback(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onResume = append(h.onResume, fn)
}

func (h *fakeHost) pause() {
	h.mu.Lock()
	h.resumed = false
	h.mu.Unlock()
}

func (h *fakeHost) destroy() {
	h.mu.Lock()
	h.destroyed = true
	h.mu.Unlock()
}

func (h *fakeHost) resume() {
	h.mu.Lock()
	h.resumed = true
	fns := h.onResume
	h.onResume = nil
	h.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// manualClock only moves when told to.
type manualClock struct {
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time { return c.now }

func (c *manualClock) advance(d time.Duration) { c.now = c.now.Add(d) }

// fakeRecents is a visible overview.
type fakeRecents struct {
	tasks     int
	next      int
	shownNext int
	launched  []int
	wentHome  int
}

func (r *fakeRecents) ShowNextTask() { r.shownNext++ }
func (r *fakeRecents) NextPage() int { return r.next }
func (r *fakeRecents) TaskCount() int { return r.tasks }
func (r *fakeRecents) LaunchTask(page int) { r.launched = append(r.launched, page) }
func (r *fakeRecents) StartHome() { r.wentHome++ }

// fakeOverview is the home surface as the coordinator sees it.
type fakeOverview struct {
	recents     *fakeRecents
	homeVisible bool
	running     int
	shown       []bool
	prepared    []bool
	progress    float64
	switched    int
}

func (o *fakeOverview) VisibleRecents() RecentsView {
	if o.recents == nil {
		return nil
	}
	return o.recents
}

func (o *fakeOverview) SwitchToOverviewIfVisible() bool {
	if o.homeVisible {
		o.switched++
		return true
	}
	return false
}

func (o *fakeOverview) ShowOverview(animate bool) { o.shown = append(o.shown, animate) }
func (o *fakeOverview) PrepareOverview(wasVisible bool) { o.prepared = append(o.prepared, wasVisible) }
func (o *fakeOverview) SetRevealProgress(p float64) { o.progress = p }
func (o *fakeOverview) RunningTaskID() int { return o.running }

// pinning reports screen pinning.
type pinning bool

func (p pinning) IsScreenPinningActive() bool { return bool(p) }
