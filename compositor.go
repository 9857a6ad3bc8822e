package seam

import (
	"fmt"
	"sync"
)

// SurfaceState is the committed state of one leash.
type SurfaceState struct {
	Matrix       Matrix
	Alpha        float64
	Crop         Rect
	HasCrop      bool
	CornerRadius float64
	ShadowRadius float64
}

// MemoryCompositor is an in-process Compositor that records surface state.
// It backs the headless runner and tests.
type MemoryCompositor struct {
	mu       sync.Mutex
	surfaces map[Leash]SurfaceState
	released map[Leash]bool
	history  []Transaction
	keep     int
}

// NewMemoryCompositor creates a compositor that keeps the last keep
// transactions for inspection. keep <= 0 keeps none.
func NewMemoryCompositor(keep int) *MemoryCompositor {
	return &MemoryCompositor{
		surfaces: make(map[Leash]SurfaceState),
		released: make(map[Leash]bool),
		keep:     keep,
	}
}

// Release marks leash as gone. Later transactions touching it are rejected.
func (c *MemoryCompositor) Release(leash Leash) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.released[leash] = true
	delete(c.surfaces, leash)
}

// Apply implements Compositor. Every record is validated before any state
// changes, so a rejected transaction leaves all surfaces untouched.
func (c *MemoryCompositor) Apply(tx Transaction) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range tx.Params {
		if p.Leash == 0 {
			return fmt.Errorf("seam: transaction %d: zero leash", tx.Seq)
		}
		if c.released[p.Leash] {
			return fmt.Errorf("seam: transaction %d: leash %d: %w", tx.Seq, p.Leash, ErrReleasedLeash)
		}
	}
	for _, p := range tx.Params {
		s, ok := c.surfaces[p.Leash]
		if !ok {
			s = SurfaceState{Matrix: IdentityMatrix, Alpha: 1}
		}
		if m, ok := p.Matrix(); ok {
			s.Matrix = m
		}
		if a, ok := p.Alpha(); ok {
			s.Alpha = a
		}
		if r, ok := p.WindowCrop(); ok {
			s.Crop = r
			s.HasCrop = true
		}
		if r, ok := p.CornerRadius(); ok {
			s.CornerRadius = r
		}
		if r, ok := p.ShadowRadius(); ok {
			s.ShadowRadius = r
		}
		c.surfaces[p.Leash] = s
	}
	if c.keep > 0 {
		c.history = append(c.history, tx)
		if len(c.history) > c.keep {
			c.history = c.history[len(c.history)-c.keep:]
		}
	}
	return nil
}

// Surface returns the committed state of leash.
func (c *MemoryCompositor) Surface(leash Leash) (SurfaceState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.surfaces[leash]
	return s, ok
}

// History returns a copy of the retained transactions, oldest first.
func (c *MemoryCompositor) History() []Transaction {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Transaction(nil), c.history...)
}
