package seam

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Options configures an Engine. Remote, Host and Compositor are required.
type Options struct {
	Config     Config
	Remote     RemoteService
	Host       Host
	Overview   OverviewHost
	Device     DeviceState
	Compositor Compositor
	Logger     *slog.Logger
	Metrics    *Metrics
	Clock      Clock
}

// Engine is the top-level object for one home surface. It owns the control
// thread, the animation player, the transition registry and the overview
// coordinator.
//
// Drive it either from a frame loop by calling Update once per frame, or on
// its own goroutine with Run. All other methods except LaunchApp's remote
// call run on the control thread.
type Engine struct {
	cfg     Config
	log     *slog.Logger
	metrics *Metrics
	clock   Clock

	host     Host
	remote   RemoteService
	looper   *Looper
	player   *Player
	animator *WindowAnimator
	registry *Registry
	overview *Coordinator

	ctx     context.Context
	cancel  context.CancelFunc
	goAsync func(func())

	script *ScriptRunner
	debug  bool
}

// NewEngine validates opts and wires the engine's components.
func NewEngine(opts Options) (*Engine, error) {
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	if opts.Remote == nil || opts.Host == nil || opts.Compositor == nil {
		return nil, errors.New("seam: engine needs a remote service, a host and a compositor")
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	clock := opts.Clock
	if clock == nil {
		clock = SystemClock
	}

	e := &Engine{
		cfg:     opts.Config,
		log:     log,
		metrics: opts.Metrics,
		clock:   clock,
		host:    opts.Host,
		remote:  opts.Remote,
		looper:  NewLooper(log),
		player:  NewPlayer(opts.Config.Timings.Frame),
		goAsync: func(fn func()) { go fn() },
	}
	e.ctx, e.cancel = context.WithCancel(context.Background())

	e.animator = NewWindowAnimator(opts.Config, opts.Compositor, log)
	e.animator.metrics = opts.Metrics
	e.animator.SetLiveness(func() bool { return !e.host.IsDestroyed() })

	e.registry = NewRegistry(RegistryOptions{
		Remote:   opts.Remote,
		Looper:   e.looper,
		Host:     opts.Host,
		Player:   e.player,
		Animator: e.animator,
		Config:   opts.Config,
		Logger:   log,
		Metrics:  opts.Metrics,
	})
	e.animator.SetPresentationSource(e.registry)

	if opts.Overview != nil {
		e.overview = NewCoordinator(CoordinatorOptions{
			Looper:   e.looper,
			Clock:    clock,
			Host:     opts.Overview,
			Device:   opts.Device,
			Registry: e.registry,
			Animator: e.animator,
			Remote:   opts.Remote,
			Player:   e.player,
			Config:   opts.Config,
			Logger:   log,
			Metrics:  opts.Metrics,
		})
		e.overview.ctx = e.ctx
	}
	e.SetDebugMode(opts.Config.Debug)
	return e, nil
}

// Start registers the home-return and unlock transitions.
func (e *Engine) Start(ctx context.Context) error {
	for _, kind := range []TransitionKind{TransitionHomeReturn, TransitionUnlock} {
		if _, err := e.registry.Register(ctx, kind); err != nil {
			return err
		}
	}
	e.log.Info("transition engine started", "width", e.cfg.Geometry.WidthPx, "height", e.cfg.Geometry.HeightPx)
	return nil
}

// Looper returns the control thread.
func (e *Engine) Looper() *Looper { return e.looper }

// Player returns the animation player.
func (e *Engine) Player() *Player { return e.player }

// Animator returns the window animator.
func (e *Engine) Animator() *WindowAnimator { return e.animator }

// Registry returns the transition registry.
func (e *Engine) Registry() *Registry { return e.registry }

// Overview returns the overview coordinator, or nil without an overview
// host.
func (e *Engine) Overview() *Coordinator { return e.overview }

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// SetDebugMode enables per-commit debug logging.
func (e *Engine) SetDebugMode(enabled bool) {
	e.debug = enabled
	e.animator.debug = enabled
}

// SetScript attaches a script runner stepped at the start of every Update.
func (e *Engine) SetScript(r *ScriptRunner) { e.script = r }

// Update runs one frame: script step, queued control tasks, then
// animations advanced by dt.
func (e *Engine) Update(dt time.Duration) {
	if e.script != nil {
		e.script.step(e)
	}
	e.looper.RunPending()
	e.player.Advance(dt)
}

// Run drives the engine on the calling goroutine until ctx is done,
// advancing animations once per configured frame.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.cfg.Timings.Frame)
	defer ticker.Stop()
	last := e.clock.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.looper.Wake():
			e.looper.RunPending()
		case <-ticker.C:
			now := e.clock.Now()
			e.Update(now.Sub(last))
			last = now
		}
	}
}

// LaunchRequest describes an icon tap that launches an app.
type LaunchRequest struct {
	Component     string
	TaskID        int
	Anchor        Rect
	AnchorOrigin  Vec2
	IconScale     float64
	DifferentIcon bool
	OnIcon        func(bounds Rect, alpha float64)
}

// LaunchApp starts an activity with the icon-to-window animation. The
// remote call runs in the background; a failure is logged and no
// animation plays. Control thread only.
func (e *Engine) LaunchApp(lr LaunchRequest) *TransitionRequest {
	req := NewTransitionRequest(lr.Component, lr.TaskID, lr.Anchor, lr.AnchorOrigin, e.clock.Now())
	if lr.IconScale != 0 {
		req.IconScale = lr.IconScale
	}
	req.DifferentIcon = lr.DifferentIcon
	req.OnIcon = lr.OnIcon

	factory := FactoryFunc(func(_ StartMessage, targets *TargetSet) *Animation {
		return e.animator.Opening(req, targets)
	})
	adapter := e.registry.NewAdapter(TransitionAppLaunch, factory, e.cfg.Timings.AppLaunch, true)
	ar := ActivityRequest{Component: lr.Component, TaskID: lr.TaskID}
	e.goAsync(func() {
		if err := e.remote.StartActivity(e.ctx, ar, adapter); err != nil {
			e.log.Warn("app launch failed", "request", req.ID, "component", lr.Component, "error", err)
			e.looper.Post(func() { e.registry.DiscardAdapter(adapter) })
		}
	})
	return req
}

// Destroy tears the engine down: registrations and activity-start adapters
// are removed, deferred transitions flushed through the fallback, a pending
// overview launch abandoned, and running animations ended so every pending
// result finishes. Control thread only.
func (e *Engine) Destroy(ctx context.Context) {
	if e.overview != nil {
		e.overview.destroy()
	}
	e.registry.Destroy(ctx)
	e.player.EndAll()
	e.cancel()
	e.log.Info("transition engine destroyed")
}
