package seam

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Token identifies one registration of a transition kind.
type Token string

type registration struct {
	token      Token
	dispatcher *Dispatcher
}

// RegistryOptions holds the collaborators of a Registry.
type RegistryOptions struct {
	Remote   RemoteService
	Looper   *Looper
	Host     Host
	Player   *Player
	Animator *WindowAnimator
	Config   Config
	Logger   *slog.Logger
	Metrics  *Metrics
}

// Registry owns the remote transition registrations of one host: one
// dispatcher per kind, the provider slot, and the presentation cache.
// Except for the starting-window callback, its methods run on the control
// thread.
type Registry struct {
	remote   RemoteService
	looper   *Looper
	host     Host
	player   *Player
	animator *WindowAnimator
	cfg      Config
	log      *slog.Logger
	metrics  *Metrics

	registrations map[TransitionKind]*registration
	adapters      map[*Dispatcher]struct{}
	slot          providerSlot
	cache         *PresentationCache
	destroyed     bool
}

// NewRegistry creates a registry and subscribes to starting-window events.
func NewRegistry(opts RegistryOptions) *Registry {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	r := &Registry{
		remote:        opts.Remote,
		looper:        opts.Looper,
		host:          opts.Host,
		player:        opts.Player,
		animator:      opts.Animator,
		cfg:           opts.Config,
		log:           log,
		metrics:       opts.Metrics,
		registrations: make(map[TransitionKind]*registration),
		adapters:      make(map[*Dispatcher]struct{}),
		cache:         NewPresentationCache(opts.Config.PresentationCacheSize),
	}
	r.remote.SetStartingWindowListener(r.onTaskLaunching)
	return r
}

// factoryFor returns the factory for a registrable kind.
func (r *Registry) factoryFor(kind TransitionKind) (Factory, bool) {
	switch kind {
	case TransitionHomeReturn:
		return FactoryFunc(r.createHomeReturn), true
	case TransitionUnlock:
		return FactoryFunc(func(_ StartMessage, targets *TargetSet) *Animation {
			return r.animator.Unlock(targets)
		}), true
	}
	return nil, false
}

// createHomeReturn reads the provider slot once. A provider animation wins
// over the default closing animation.
func (r *Registry) createHomeReturn(_ StartMessage, targets *TargetSet) *Animation {
	if provider := r.slot.get(); provider != nil {
		if anim := provider.CreateWindowAnimation(targets); anim != nil {
			return anim
		}
	}
	return r.animator.Closing(targets)
}

func (r *Registry) newDispatcher(kind TransitionKind, factory Factory, skipFirstFrame bool, idle func()) *Dispatcher {
	return newDispatcher(dispatcherConfig{
		kind:           kind,
		looper:         r.looper,
		host:           r.host,
		player:         r.player,
		factory:        factory,
		fallback:       r.animator.FallbackClosing,
		skipFirstFrame: skipFirstFrame,
		log:            r.log,
		metrics:        r.metrics,
		idle:           idle,
	})
}

// Register installs a dispatcher for kind with the window manager. A kind
// registered before is replaced. Register makes a remote call; it is meant
// for setup and teardown, not for use while transitions are in flight.
func (r *Registry) Register(ctx context.Context, kind TransitionKind) (Token, error) {
	if r.destroyed {
		return "", fmt.Errorf("register %s: %w", kind, ErrDestroyed)
	}
	factory, ok := r.factoryFor(kind)
	if !ok {
		return "", fmt.Errorf("register %s: %w", kind, ErrUnknownKind)
	}
	d := r.newDispatcher(kind, factory, false, nil)
	if err := r.remote.RegisterTransition(ctx, kind, d); err != nil {
		r.log.Warn("remote transition registration failed", "kind", kind.String(), "error", err)
		return "", fmt.Errorf("register %s: %w", kind, err)
	}
	if old, ok := r.registrations[kind]; ok {
		old.dispatcher.release()
	}
	token := Token(uuid.NewString())
	r.registrations[kind] = &registration{token: token, dispatcher: d}
	r.log.Debug("transition registered", "kind", kind.String(), "token", string(token))
	return token, nil
}

// Unregister removes the dispatcher for kind. On a remote failure the
// error is logged and returned and the registration stays in place.
func (r *Registry) Unregister(ctx context.Context, kind TransitionKind) error {
	reg, ok := r.registrations[kind]
	if !ok {
		return nil
	}
	if err := r.remote.UnregisterTransition(ctx, kind); err != nil {
		r.log.Warn("remote transition unregistration failed", "kind", kind.String(), "error", err)
		return fmt.Errorf("unregister %s: %w", kind, err)
	}
	delete(r.registrations, kind)
	reg.dispatcher.release()
	return nil
}

// Destroy tears down every registration. Deferred starts are flushed
// through the fallback animation. Remote failures are only logged.
func (r *Registry) Destroy(ctx context.Context) {
	if r.destroyed {
		return
	}
	r.destroyed = true
	kinds := make([]TransitionKind, 0, len(r.registrations))
	for kind := range r.registrations {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	for _, kind := range kinds {
		r.registrations[kind].dispatcher.release()
		if err := r.remote.UnregisterTransition(ctx, kind); err != nil {
			r.log.Warn("remote transition unregistration failed", "kind", kind.String(), "error", err)
		}
	}
	r.registrations = make(map[TransitionKind]*registration)

	adapters := make([]*Dispatcher, 0, len(r.adapters))
	for d := range r.adapters {
		adapters = append(adapters, d)
	}
	r.adapters = make(map[*Dispatcher]struct{})
	for _, d := range adapters {
		d.release()
	}
	r.slot.reset()
	r.cache.Reset()
	r.remote.SetStartingWindowListener(nil)
}

// Destroyed reports whether Destroy has run.
func (r *Registry) Destroyed() bool { return r.destroyed }

// Registered reports whether kind currently has a dispatcher.
func (r *Registry) Registered(kind TransitionKind) bool {
	_, ok := r.registrations[kind]
	return ok
}

// Dispatcher returns the dispatcher registered for kind.
func (r *Registry) Dispatcher(kind TransitionKind) *Dispatcher {
	if reg, ok := r.registrations[kind]; ok {
		return reg.dispatcher
	}
	return nil
}

// SetProvider installs p for the next return-to-home transition,
// replacing any earlier provider.
func (r *Registry) SetProvider(p Provider) *CancelToken {
	return r.slot.set(p)
}

// HasProvider reports whether a provider is installed.
func (r *Registry) HasProvider() bool { return r.slot.get() != nil }

// NewAdapter wraps factory in a one-shot dispatcher for an activity start.
// The dispatcher is tracked until it goes idle so Destroy can flush it. An
// adapter created after Destroy only ever plays the fallback.
func (r *Registry) NewAdapter(kind TransitionKind, factory Factory, duration time.Duration, skipFirstFrame bool) *Adapter {
	var d *Dispatcher
	d = r.newDispatcher(kind, factory, skipFirstFrame, func() { delete(r.adapters, d) })
	if r.destroyed {
		d.release()
	} else {
		r.adapters[d] = struct{}{}
	}
	return &Adapter{
		Kind:           kind,
		Runner:         d,
		Duration:       duration,
		StatusBarDelay: r.cfg.Timings.StatusBarDelay(duration),
	}
}

// DiscardAdapter stops tracking an adapter whose activity start failed.
func (r *Registry) DiscardAdapter(a *Adapter) {
	if d, ok := a.Runner.(*Dispatcher); ok {
		delete(r.adapters, d)
	}
}

// Adapters returns the number of activity-start dispatchers still tracked.
func (r *Registry) Adapters() int { return len(r.adapters) }

// HomeReturnFactory returns the factory used for the home-return kind, for
// adapters that animate into the home surface.
func (r *Registry) HomeReturnFactory() Factory { return FactoryFunc(r.createHomeReturn) }

func (r *Registry) onTaskLaunching(taskID int, p Presentation) {
	r.looper.Post(func() {
		if r.destroyed {
			return
		}
		r.cache.Put(taskID, p)
	})
}

// TakePresentation implements PresentationSource.
func (r *Registry) TakePresentation(taskID int) (Presentation, bool) {
	return r.cache.Take(taskID)
}
