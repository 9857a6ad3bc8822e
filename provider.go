package seam

import "sync"

// Provider supplies a custom animation for the next return-to-home
// transition. Returning nil falls back to the default closing animation.
type Provider interface {
	CreateWindowAnimation(targets *TargetSet) *Animation
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(targets *TargetSet) *Animation

// CreateWindowAnimation calls f.
func (f ProviderFunc) CreateWindowAnimation(targets *TargetSet) *Animation { return f(targets) }

// CancelToken withdraws a registered provider. Cancel must be called on the
// control thread; it only clears the slot if the provider it was issued for
// is still installed.
type CancelToken struct {
	once     sync.Once
	clear    func()
	canceled bool
}

// Cancel withdraws the provider. Later calls do nothing.
func (t *CancelToken) Cancel() {
	if t == nil {
		return
	}
	t.once.Do(func() {
		t.canceled = true
		t.clear()
	})
}

// Canceled reports whether Cancel has been called.
func (t *CancelToken) Canceled() bool { return t != nil && t.canceled }

// providerSlot holds at most one provider. Generations identify which
// registration a token belongs to.
type providerSlot struct {
	provider Provider
	gen      uint64
}

func (s *providerSlot) set(p Provider) *CancelToken {
	s.gen++
	gen := s.gen
	s.provider = p
	return &CancelToken{clear: func() {
		if s.gen == gen {
			s.provider = nil
		}
	}}
}

// get returns the installed provider, if any.
func (s *providerSlot) get() Provider { return s.provider }

func (s *providerSlot) reset() {
	s.gen++
	s.provider = nil
}
