package seam

import (
	"context"
	"fmt"
	"time"
)

// Host is the owner whose lifecycle gates transitions: typically the home
// screen activity.
type Host interface {
	IsDestroyed() bool
	HasBeenResumed() bool
	TaskID() int
	// AddOnResumeCallback runs fn once the host next resumes. It may be
	// called from any goroutine.
	AddOnResumeCallback(fn func())
}

// TransitionKind names a remote transition type.
type TransitionKind uint8

const (
	TransitionHomeReturn TransitionKind = iota
	TransitionUnlock
	TransitionAppLaunch
	TransitionOverview
)

var transitionKindNames = [...]string{"home-return", "unlock", "app-launch", "overview"}

// String returns the kind name.
func (k TransitionKind) String() string {
	if int(k) < len(transitionKindNames) {
		return transitionKindNames[k]
	}
	return fmt.Sprintf("TransitionKind(%d)", uint8(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k TransitionKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *TransitionKind) UnmarshalText(b []byte) error {
	for i, n := range transitionKindNames {
		if n == string(b) {
			*k = TransitionKind(i)
			return nil
		}
	}
	return fmt.Errorf("%w %q", ErrUnknownKind, b)
}

// StartMessage is one remote transition start: the three target arrays in
// the order the window manager sent them and the result to complete.
type StartMessage struct {
	Kind       TransitionKind
	Apps       []WindowTarget
	Wallpapers []WindowTarget
	NonApps    []WindowTarget
	Result     *Result
}

// Runner receives remote transition callbacks. Implementations must accept
// calls from any goroutine.
type Runner interface {
	OnAnimationStart(msg StartMessage)
	OnAnimationCancelled()
}

// Adapter attaches a one-shot runner to an activity start.
type Adapter struct {
	Kind           TransitionKind
	Runner         Runner
	Duration       time.Duration
	StatusBarDelay time.Duration
}

// ActivityRequest asks the window manager to start an activity.
type ActivityRequest struct {
	Component string `json:"component"`
	TaskID    int    `json:"task_id"`
	Overview  bool   `json:"overview"`
}

// StartingWindowListener is told how a launching task will first present.
// It may be called from any goroutine.
type StartingWindowListener func(taskID int, p Presentation)

// RemoteService is the window manager as seen by the engine.
type RemoteService interface {
	RegisterTransition(ctx context.Context, kind TransitionKind, runner Runner) error
	UnregisterTransition(ctx context.Context, kind TransitionKind) error
	StartActivity(ctx context.Context, req ActivityRequest, adapter *Adapter) error
	SetStartingWindowListener(l StartingWindowListener)
}
