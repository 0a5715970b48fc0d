package overlay

import "sync"

// MemoryHistory is an in-process History implementation: a stack of synthetic
// entries starting from one base entry with no fragment. It backs headless
// runtimes and tests; a browser-embedded build would substitute an adapter
// over the real history API.
type MemoryHistory struct {
	mu         sync.Mutex
	fragments  []string
	onNavigate func()
}

// NewMemoryHistory creates a history positioned at its fragment-less base entry.
func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{fragments: []string{""}}
}

// SetOnNavigate registers the navigation hook. Wire this to the stack's
// HandleFragmentChange.
func (h *MemoryHistory) SetOnNavigate(fn func()) {
	h.mu.Lock()
	h.onNavigate = fn
	h.mu.Unlock()
}

// Fragment returns the fragment of the current entry.
func (h *MemoryHistory) Fragment() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.fragments[len(h.fragments)-1]
}

// PushFragment pushes a new entry carrying the fragment.
func (h *MemoryHistory) PushFragment(fragment string) {
	h.mu.Lock()
	h.fragments = append(h.fragments, fragment)
	fn := h.onNavigate
	h.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Back pops the current entry. The base entry is never popped.
func (h *MemoryHistory) Back() {
	h.mu.Lock()
	if len(h.fragments) > 1 {
		h.fragments = h.fragments[:len(h.fragments)-1]
	}
	fn := h.onNavigate
	h.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Depth returns the number of history entries, base entry included.
func (h *MemoryHistory) Depth() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.fragments)
}
