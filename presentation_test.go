package seam

import "testing"

func TestPresentationCacheTake(t *testing.T) {
	c := NewPresentationCache(3)
	c.Put(1, PresentationSplash)
	c.Put(2, PresentationSnapshot)

	p, ok := c.Take(1)
	if !ok || p != PresentationSplash {
		t.Errorf("Take(1) = %v, %v; want splash, true", p, ok)
	}
	if _, ok := c.Take(1); ok {
		t.Error("Take should remove the entry")
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
}

func TestPresentationCacheEvictsOldest(t *testing.T) {
	c := NewPresentationCache(3)
	for task := 1; task <= 4; task++ {
		c.Put(task, PresentationSplash)
	}
	if c.Len() != 3 {
		t.Fatalf("Len = %d, want 3", c.Len())
	}
	if _, ok := c.Take(1); ok {
		t.Error("oldest task should have been evicted")
	}
	for task := 2; task <= 4; task++ {
		if _, ok := c.Take(task); !ok {
			t.Errorf("task %d missing", task)
		}
	}
}

func TestPresentationCacheUpdateKeepsAge(t *testing.T) {
	c := NewPresentationCache(2)
	c.Put(1, PresentationSplash)
	c.Put(2, PresentationSplash)
	c.Put(1, PresentationSnapshot)
	c.Put(3, PresentationSplash)

	if _, ok := c.Take(1); ok {
		t.Error("updated task 1 should still be the oldest and evicted")
	}
	if p, ok := c.Take(2); !ok || p != PresentationSplash {
		t.Errorf("Take(2) = %v, %v", p, ok)
	}
}

func TestPresentationCacheTakeMiddleThenWrap(t *testing.T) {
	c := NewPresentationCache(3)
	c.Put(1, PresentationSplash)
	c.Put(2, PresentationSnapshot)
	c.Put(3, PresentationSplash)
	c.Take(2)
	c.Put(4, PresentationSnapshot)
	c.Put(5, PresentationSplash)

	if _, ok := c.Take(1); ok {
		t.Error("task 1 should have been evicted")
	}
	for _, task := range []int{3, 4, 5} {
		if _, ok := c.Take(task); !ok {
			t.Errorf("task %d missing", task)
		}
	}
}

func TestPresentationCacheReset(t *testing.T) {
	c := NewPresentationCache(2)
	c.Put(1, PresentationSplash)
	c.Reset()
	if c.Len() != 0 {
		t.Error("Reset should empty the cache")
	}
}

func TestPresentationText(t *testing.T) {
	var p Presentation
	if err := p.UnmarshalText([]byte("snapshot")); err != nil || p != PresentationSnapshot {
		t.Errorf("UnmarshalText = %v, %v", p, err)
	}
	if err := p.UnmarshalText([]byte("hologram")); err == nil {
		t.Error("expected error for unknown presentation")
	}
}

// --- provider slot ---

func TestProviderSlotCancel(t *testing.T) {
	var s providerSlot
	tok := s.set(ProviderFunc(func(*TargetSet) *Animation { return nil }))
	if s.get() == nil {
		t.Fatal("provider not installed")
	}
	tok.Cancel()
	if s.get() != nil {
		t.Error("Cancel should clear the slot")
	}
	if !tok.Canceled() {
		t.Error("Canceled should be true")
	}
}

func TestProviderSlotStaleTokenKeepsNewer(t *testing.T) {
	var s providerSlot
	old := s.set(ProviderFunc(func(*TargetSet) *Animation { return nil }))
	s.set(ProviderFunc(func(*TargetSet) *Animation { return NewAnimation("newer", 0) }))
	old.Cancel()
	p := s.get()
	if p == nil {
		t.Fatal("stale token cleared the newer provider")
	}
	if a := p.CreateWindowAnimation(nil); a == nil || a.Name() != "newer" {
		t.Error("slot holds the wrong provider")
	}
}

func TestCancelTokenNil(t *testing.T) {
	var tok *CancelToken
	tok.Cancel()
	if tok.Canceled() {
		t.Error("nil token should not report canceled")
	}
}
