package seam

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// RecentsView is the visible overview surface.
type RecentsView interface {
	ShowNextTask()
	NextPage() int
	TaskCount() int
	LaunchTask(page int)
	StartHome()
}

// OverviewHost is the home surface as seen by the overview coordinator.
// Every method is called on the control thread.
type OverviewHost interface {
	// VisibleRecents returns the overview if it is on screen, else nil.
	VisibleRecents() RecentsView
	// SwitchToOverviewIfVisible switches to overview without an activity
	// launch when the home surface is already showing. It reports whether
	// it did.
	SwitchToOverviewIfVisible() bool
	// ShowOverview shows overview immediately, optionally animated.
	ShowOverview(animate bool)
	// PrepareOverview readies the overview UI once its activity is up.
	PrepareOverview(wasVisible bool)
	// SetRevealProgress drives the overview reveal animation, 0 to 1.
	SetRevealProgress(progress float64)
	// RunningTaskID returns the task currently in the foreground.
	RunningTaskID() int
}

// DeviceState reports system modes that gate overview commands.
type DeviceState interface {
	IsScreenPinningActive() bool
}

// CommandType is the kind of overview command.
type CommandType uint8

const (
	CommandToggle CommandType = iota
	CommandShow
	CommandHide
)

var commandTypeNames = [...]string{"toggle", "show", "hide"}

// String returns the command name.
func (c CommandType) String() string {
	if int(c) < len(commandTypeNames) {
		return commandTypeNames[c]
	}
	return fmt.Sprintf("CommandType(%d)", uint8(c))
}

// CoordinatorState is the overview coordinator's state.
type CoordinatorState uint8

const (
	StateIdle CoordinatorState = iota
	StateCommandPending
	StateLaunchingActivity
)

var coordinatorStateNames = [...]string{"idle", "command-pending", "launching-activity"}

// String returns the state name.
func (s CoordinatorState) String() string {
	if int(s) < len(coordinatorStateNames) {
		return coordinatorStateNames[s]
	}
	return fmt.Sprintf("CoordinatorState(%d)", uint8(s))
}

// Resolution is how a command ended.
type Resolution uint8

const (
	ResolutionRejected Resolution = iota
	ResolutionHandled
	ResolutionSwitchedVisible
	ResolutionLaunching
	ResolutionLaunched
)

var resolutionNames = [...]string{"rejected", "handled", "switched-visible", "launching", "launched"}

// String returns the resolution name.
func (r Resolution) String() string {
	if int(r) < len(resolutionNames) {
		return resolutionNames[r]
	}
	return fmt.Sprintf("Resolution(%d)", uint8(r))
}

// Outcome reports the resolution of one command to listeners.
type Outcome struct {
	Command    CommandType
	Resolution Resolution
	Latency    time.Duration
	Err        error
}

type command struct {
	typ     CommandType
	created time.Time
}

// overviewLaunch is an in-flight overview activity start. armed is the
// one-shot activity-ready listener.
type overviewLaunch struct {
	cmd     *command
	token   *CancelToken
	adapter *Adapter
	armed   bool
}

// CoordinatorOptions holds the collaborators of a Coordinator.
type CoordinatorOptions struct {
	Looper   *Looper
	Clock    Clock
	Host     OverviewHost
	Device   DeviceState
	Registry *Registry
	Animator *WindowAnimator
	Remote   RemoteService
	Player   *Player
	Config   Config
	Logger   *slog.Logger
	Metrics  *Metrics
}

// Coordinator serializes overview toggle, show and hide commands. Commands
// may be issued from any goroutine; they execute on the control thread in
// order. Quick double toggles are debounced.
type Coordinator struct {
	looper   *Looper
	clock    Clock
	host     OverviewHost
	device   DeviceState
	registry *Registry
	animator *WindowAnimator
	remote   RemoteService
	player   *Player
	cfg      Config
	log      *slog.Logger
	metrics  *Metrics

	ctx     context.Context
	goAsync func(func())

	state      CoordinatorState
	lastToggle time.Time
	pending    *overviewLaunch
	destroyed  bool
	listeners  []func(Outcome)
}

// NewCoordinator creates a coordinator.
func NewCoordinator(opts CoordinatorOptions) *Coordinator {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	clock := opts.Clock
	if clock == nil {
		clock = SystemClock
	}
	return &Coordinator{
		looper:   opts.Looper,
		clock:    clock,
		host:     opts.Host,
		device:   opts.Device,
		registry: opts.Registry,
		animator: opts.Animator,
		remote:   opts.Remote,
		player:   opts.Player,
		cfg:      opts.Config,
		log:      log,
		metrics:  opts.Metrics,
		ctx:      context.Background(),
		goAsync:  func(fn func()) { go fn() },
	}
}

// State returns the current state. Control thread only.
func (c *Coordinator) State() CoordinatorState { return c.state }

// OnOutcome registers fn to receive every command resolution on the
// control thread.
func (c *Coordinator) OnOutcome(fn func(Outcome)) {
	c.listeners = append(c.listeners, fn)
}

// Toggle queues a toggle command. It returns false when the command is
// rejected outright because screen pinning is active.
func (c *Coordinator) Toggle() bool { return c.enqueue(CommandToggle) }

// Show queues a show command.
func (c *Coordinator) Show() bool { return c.enqueue(CommandShow) }

// Hide queues a hide command.
func (c *Coordinator) Hide() bool { return c.enqueue(CommandHide) }

func (c *Coordinator) enqueue(typ CommandType) bool {
	if c.device != nil && c.device.IsScreenPinningActive() {
		c.log.Debug("overview command rejected, screen pinning active", "command", typ.String())
		c.metrics.command(ResolutionRejected)
		return false
	}
	cmd := &command{typ: typ, created: c.clock.Now()}
	c.looper.Post(func() { c.execute(cmd) })
	return true
}

func (c *Coordinator) execute(cmd *command) {
	if c.destroyed {
		c.emit(Outcome{Command: cmd.typ, Resolution: ResolutionHandled})
		return
	}
	if c.pending != nil {
		// The launch in flight stays the current state; a toggle still
		// restarts the debounce window.
		if cmd.typ == CommandToggle {
			c.lastToggle = cmd.created
		}
		c.emit(Outcome{Command: cmd.typ, Resolution: ResolutionHandled})
		return
	}
	c.state = StateCommandPending

	switch cmd.typ {
	case CommandToggle:
		elapsed := cmd.created.Sub(c.lastToggle)
		c.lastToggle = cmd.created
		if rv := c.host.VisibleRecents(); rv != nil {
			rv.ShowNextTask()
			c.resolve(cmd, ResolutionHandled, 0, nil)
			return
		}
		if elapsed < c.cfg.Timings.DoubleTapTimeout {
			c.resolve(cmd, ResolutionHandled, 0, nil)
			return
		}
	case CommandShow:
		if c.host.VisibleRecents() != nil {
			c.resolve(cmd, ResolutionHandled, 0, nil)
			return
		}
	case CommandHide:
		rv := c.host.VisibleRecents()
		if rv != nil {
			if page := rv.NextPage(); page >= 0 && page < rv.TaskCount() {
				rv.LaunchTask(page)
			} else {
				rv.StartHome()
			}
		}
		c.resolve(cmd, ResolutionHandled, 0, nil)
		return
	}

	if c.host.SwitchToOverviewIfVisible() {
		c.resolve(cmd, ResolutionSwitchedVisible, 0, nil)
		return
	}
	c.launch(cmd)
}

// launch starts the overview activity. The window animation is supplied
// by a one-shot provider installed in the registry's slot.
func (c *Coordinator) launch(cmd *command) {
	taskID := c.host.RunningTaskID()
	thumbnail := c.cfg.Geometry.OverviewThumbnail

	l := &overviewLaunch{cmd: cmd, armed: true}
	var token *CancelToken
	token = c.registry.SetProvider(ProviderFunc(func(targets *TargetSet) *Animation {
		token.Cancel()
		c.log.Debug("overview window animation requested",
			"task", taskID, "since_command", c.clock.Now().Sub(cmd.created))
		return c.animator.ToOverview(targets, taskID, thumbnail)
	}))
	l.token = token
	c.pending = l
	c.state = StateLaunchingActivity

	adapter := c.registry.NewAdapter(TransitionOverview, c.registry.HomeReturnFactory(), c.cfg.Timings.RecentsLaunch, false)
	l.adapter = adapter
	req := ActivityRequest{TaskID: taskID, Overview: true}
	c.emit(Outcome{Command: cmd.typ, Resolution: ResolutionLaunching})
	c.goAsync(func() {
		if err := c.remote.StartActivity(c.ctx, req, adapter); err != nil {
			c.looper.Post(func() { c.launchFailed(l, err) })
		}
	})
}

// launchFailed degrades to an instant, unanimated switch.
func (c *Coordinator) launchFailed(l *overviewLaunch, err error) {
	c.log.Warn("overview activity start failed", "error", err)
	if c.pending != l {
		return
	}
	l.armed = false
	l.token.Cancel()
	c.registry.DiscardAdapter(l.adapter)
	c.pending = nil
	c.host.ShowOverview(false)
	c.resolve(l.cmd, ResolutionHandled, 0, fmt.Errorf("start overview: %w", err))
}

// destroy abandons a pending launch. Later commands and activity-ready
// signals have no effect.
func (c *Coordinator) destroy() {
	c.destroyed = true
	if l := c.pending; l != nil {
		l.armed = false
		l.token.Cancel()
		c.pending = nil
	}
	c.state = StateIdle
}

// OnActivityReady reports that the overview activity is up. It may be
// called from any goroutine.
func (c *Coordinator) OnActivityReady(wasVisible bool) {
	c.looper.Post(func() { c.activityReady(wasVisible) })
}

func (c *Coordinator) activityReady(wasVisible bool) {
	l := c.pending
	if l == nil || !l.armed {
		return
	}
	l.armed = false
	l.token.Cancel()
	c.host.PrepareOverview(wasVisible)
	c.player.Play(c.revealAnimation(wasVisible))

	latency := c.clock.Now().Sub(l.cmd.created)
	c.metrics.launchLatency(latency)
	c.log.Debug("overview ready", "was_visible", wasVisible, "latency", latency)
	c.pending = nil
	c.resolve(l.cmd, ResolutionLaunched, latency, nil)
}

// revealAnimation animates the overview UI in. When overview was already
// visible it is shown at full progress immediately.
func (c *Coordinator) revealAnimation(wasVisible bool) *Animation {
	duration := c.cfg.Timings.RecentsLaunch
	start := 0.0
	if wasVisible {
		start = 1
	}
	reveal := NewInterpolator(Property{Name: "reveal", Start: start, End: 1, Duration: duration, Curve: CurveTouchResponse})
	content := NewAnimation("overview-content", duration).OnUpdate(func(elapsed time.Duration, _ float64) {
		c.host.SetRevealProgress(reveal.Sample(elapsed))
	})
	return Together("overview-reveal", content)
}

func (c *Coordinator) resolve(cmd *command, r Resolution, latency time.Duration, err error) {
	if c.pending == nil {
		c.state = StateIdle
	}
	c.emit(Outcome{Command: cmd.typ, Resolution: r, Latency: latency, Err: err})
}

func (c *Coordinator) emit(o Outcome) {
	c.metrics.command(o.Resolution)
	for _, fn := range c.listeners {
		fn(o)
	}
}
