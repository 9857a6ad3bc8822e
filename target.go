package seam

import (
	"fmt"
	"sync"
)

// Mode is the direction a window takes part in a transition.
type Mode uint8

const (
	ModeOpening Mode = iota
	ModeClosing
)

var modeNames = [...]string{"opening", "closing"}

// String returns "opening" or "closing".
func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("Mode(%d)", uint8(m))
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(b []byte) error {
	for i, n := range modeNames {
		if n == string(b) {
			*m = Mode(i)
			return nil
		}
	}
	return fmt.Errorf("seam: unknown mode %q", b)
}

// TargetKind classifies a window target.
type TargetKind uint8

const (
	KindApp TargetKind = iota
	KindWallpaper
	KindNavigationBar
	KindOther
)

var targetKindNames = [...]string{"app", "wallpaper", "navigation-bar", "other"}

// String returns the kind name.
func (k TargetKind) String() string {
	if int(k) < len(targetKindNames) {
		return targetKindNames[k]
	}
	return fmt.Sprintf("TargetKind(%d)", uint8(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k TargetKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *TargetKind) UnmarshalText(b []byte) error {
	for i, n := range targetKindNames {
		if n == string(b) {
			*k = TargetKind(i)
			return nil
		}
	}
	return fmt.Errorf("seam: unknown target kind %q", b)
}

// WindowTarget describes one window surface participating in a transition.
type WindowTarget struct {
	ID             int        `json:"id"`
	TaskID         int        `json:"task_id"`
	Mode           Mode       `json:"mode"`
	Kind           TargetKind `json:"kind"`
	ScreenBounds   Rect       `json:"screen_bounds"`
	LocalBounds    *Rect      `json:"local_bounds,omitempty"`
	Position       Vec2       `json:"position"`
	Leash          Leash      `json:"leash"`
	Translucent    bool       `json:"translucent"`
	RotationChange int        `json:"rotation_change"`
}

// RestPosition returns where the surface sits when untransformed: the local
// bounds origin when known, otherwise the reported position.
func (t WindowTarget) RestPosition() Vec2 {
	if t.LocalBounds != nil {
		return Vec2{X: t.LocalBounds.X, Y: t.LocalBounds.Y}
	}
	return t.Position
}

// TargetSet groups the windows of one transition. It is released exactly
// once, when the transition finishes.
type TargetSet struct {
	Apps       []WindowTarget
	Wallpapers []WindowTarget
	NonApps    []WindowTarget

	dropped int

	mu        sync.Mutex
	released  bool
	onRelease []func()
}

// NewTargetSet builds a set from the three target arrays. A target whose ID
// already appeared in an earlier array is dropped.
func NewTargetSet(apps, wallpapers, nonApps []WindowTarget) *TargetSet {
	s := &TargetSet{}
	seen := make(map[int]bool, len(apps)+len(wallpapers)+len(nonApps))
	filter := func(in []WindowTarget) []WindowTarget {
		out := make([]WindowTarget, 0, len(in))
		for _, t := range in {
			if seen[t.ID] {
				s.dropped++
				continue
			}
			seen[t.ID] = true
			out = append(out, t)
		}
		return out
	}
	s.Apps = filter(apps)
	s.Wallpapers = filter(wallpapers)
	s.NonApps = filter(nonApps)
	return s
}

// Dropped returns how many duplicate targets were discarded.
func (s *TargetSet) Dropped() int { return s.dropped }

// ByMode returns the app targets with the given mode.
func (s *TargetSet) ByMode(mode Mode) []WindowTarget {
	var out []WindowTarget
	for _, t := range s.Apps {
		if t.Mode == mode {
			out = append(out, t)
		}
	}
	return out
}

// HasMode reports whether any app target has the given mode.
func (s *TargetSet) HasMode(mode Mode) bool {
	for _, t := range s.Apps {
		if t.Mode == mode {
			return true
		}
	}
	return false
}

// FirstTaskID returns the task of the first app target with the given mode.
func (s *TargetSet) FirstTaskID(mode Mode) (int, bool) {
	for _, t := range s.Apps {
		if t.Mode == mode {
			return t.TaskID, true
		}
	}
	return 0, false
}

// FindTask returns the app target belonging to taskID.
func (s *TargetSet) FindTask(taskID int) (WindowTarget, bool) {
	for _, t := range s.Apps {
		if t.TaskID == taskID {
			return t, true
		}
	}
	return WindowTarget{}, false
}

// NavBar returns the navigation bar target, if present.
func (s *TargetSet) NavBar() (WindowTarget, bool) {
	for _, t := range s.NonApps {
		if t.Kind == KindNavigationBar {
			return t, true
		}
	}
	return WindowTarget{}, false
}

// AnyTranslucent reports whether an app target with the given mode is
// translucent.
func (s *TargetSet) AnyTranslucent(mode Mode) bool {
	for _, t := range s.Apps {
		if t.Mode == mode && t.Translucent {
			return true
		}
	}
	return false
}

// AllTranslucent reports whether every app target with the given mode is
// translucent. It returns false when there are none.
func (s *TargetSet) AllTranslucent(mode Mode) bool {
	found := false
	for _, t := range s.Apps {
		if t.Mode != mode {
			continue
		}
		if !t.Translucent {
			return false
		}
		found = true
	}
	return found
}

// OnRelease registers fn to run when the set is released. If the set is
// already released fn runs immediately.
func (s *TargetSet) OnRelease(fn func()) {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		fn()
		return
	}
	s.onRelease = append(s.onRelease, fn)
	s.mu.Unlock()
}

// Release marks the set's leashes as no longer owned by the engine.
// Only the first call has any effect.
func (s *TargetSet) Release() {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return
	}
	s.released = true
	fns := s.onRelease
	s.onRelease = nil
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Released reports whether Release has been called.
func (s *TargetSet) Released() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}
