package seam

import "fmt"

// Presentation is how a launching task first appears on screen.
type Presentation uint8

const (
	PresentationNone Presentation = iota
	PresentationSplash
	PresentationSnapshot
)

var presentationNames = [...]string{"none", "splash", "snapshot"}

// String returns the presentation name.
func (p Presentation) String() string {
	if int(p) < len(presentationNames) {
		return presentationNames[p]
	}
	return fmt.Sprintf("Presentation(%d)", uint8(p))
}

// MarshalText implements encoding.TextMarshaler.
func (p Presentation) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Presentation) UnmarshalText(b []byte) error {
	for i, n := range presentationNames {
		if n == string(b) {
			*p = Presentation(i)
			return nil
		}
	}
	return fmt.Errorf("seam: unknown presentation %q", b)
}

type presentationEntry struct {
	taskID int
	p      Presentation
}

// PresentationCache is a fixed-capacity ring buffer of task presentations.
// When full, a new task evicts the oldest entry. Control thread only.
type PresentationCache struct {
	entries []presentationEntry
	head    int
	size    int
}

// NewPresentationCache creates a cache holding up to capacity tasks.
func NewPresentationCache(capacity int) *PresentationCache {
	if capacity < 1 {
		capacity = 1
	}
	return &PresentationCache{entries: make([]presentationEntry, capacity)}
}

func (c *PresentationCache) slot(i int) *presentationEntry {
	return &c.entries[(c.head+i)%len(c.entries)]
}

func (c *PresentationCache) find(taskID int) int {
	for i := 0; i < c.size; i++ {
		if c.slot(i).taskID == taskID {
			return i
		}
	}
	return -1
}

// Put records p for taskID. An existing entry keeps its age.
func (c *PresentationCache) Put(taskID int, p Presentation) {
	if i := c.find(taskID); i >= 0 {
		c.slot(i).p = p
		return
	}
	if c.size == len(c.entries) {
		c.head = (c.head + 1) % len(c.entries)
		c.size--
	}
	*c.slot(c.size) = presentationEntry{taskID: taskID, p: p}
	c.size++
}

// Take removes and returns the entry for taskID.
func (c *PresentationCache) Take(taskID int) (Presentation, bool) {
	i := c.find(taskID)
	if i < 0 {
		return PresentationNone, false
	}
	p := c.slot(i).p
	for ; i < c.size-1; i++ {
		*c.slot(i) = *c.slot(i + 1)
	}
	c.size--
	return p, true
}

// Len returns the number of cached tasks.
func (c *PresentationCache) Len() int { return c.size }

// Reset empties the cache.
func (c *PresentationCache) Reset() {
	c.head = 0
	c.size = 0
}
