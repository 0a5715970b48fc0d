// Package overlay implements the single-active-overlay navigation stack: at
// most one modal surface is open at a time, and its lifecycle is tied to one
// reserved synthetic history entry so programmatic close and the platform's
// back navigation stay consistent.
package overlay

import (
	"sync"

	"github.com/charmbracelet/log"

	"shopfront/internal/logger"
)

// FragmentToken is the reserved history fragment that marks an open overlay.
// The fragment is present if and only if an overlay is open; any drift is
// corrected on the next navigation event.
const FragmentToken = "overlay"

// State is the overlay lifecycle position.
type State string

// Overlay states.
const (
	StateClosed State = "closed"
	StateOpen   State = "open"
)

// Alignment positions the overlay content.
type Alignment string

// Supported alignments.
const (
	AlignCenter Alignment = "center"
	AlignTop    Alignment = "top"
	AlignBottom Alignment = "bottom"
)

// Options control presentation and dismissal of one overlay entry.
type Options struct {
	DismissOnBackdropClick bool
	DimBackground          bool
	Alignment              Alignment
}

// Entry is the active overlay: opaque renderable content plus its options.
// The stack never inspects Content.
type Entry struct {
	Content any
	Options Options
}

// History abstracts the platform's fragment-based history API. The stack is
// the only writer of the reserved fragment; the adapter must invoke
// HandleFragmentChange on every navigation it observes, including ones the
// stack itself caused.
type History interface {
	// Fragment returns the current fragment, empty when none.
	Fragment() string
	// PushFragment pushes a new history entry carrying the fragment.
	PushFragment(fragment string)
	// Back pops the current history entry.
	Back()
}

// Stack is the overlay state machine. Opening while another overlay is open
// replaces it without pushing a second history entry.
type Stack struct {
	mu        sync.Mutex
	history   History
	entry     *Entry
	listeners []func(State)
	logger    *log.Logger
}

// New creates a closed stack bound to the given history adapter.
func New(history History) *Stack {
	return &Stack{
		history: history,
		logger:  logger.NewStyledLogger("Overlay"),
	}
}

// State returns the current lifecycle state.
func (s *Stack) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entry != nil {
		return StateOpen
	}
	return StateClosed
}

// Active returns the open entry, or false when closed.
func (s *Stack) Active() (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entry == nil {
		return Entry{}, false
	}
	return *s.entry, true
}

// Open presents content as the active overlay. Nil content is an explicit
// close. When an overlay is already open the new one replaces it and the
// existing history entry is reused.
func (s *Stack) Open(content any, opts Options) {
	if content == nil {
		s.Close()
		return
	}

	s.mu.Lock()
	replaced := s.entry != nil
	s.entry = &Entry{Content: content, Options: opts}
	s.mu.Unlock()

	if replaced {
		s.logger.Debug("Replacing active overlay", "state", StateOpen)
	} else {
		s.logger.Debug("Opening overlay", "state", StateOpen)
	}

	// History mutations happen outside the lock: the adapter may call
	// HandleFragmentChange synchronously.
	if s.history.Fragment() != FragmentToken {
		s.history.PushFragment(FragmentToken)
	}
	s.notify(StateOpen)
}

// Close dismisses the active overlay and pops its history entry. Closing a
// closed stack is a no-op.
func (s *Stack) Close() {
	s.mu.Lock()
	if s.entry == nil {
		s.mu.Unlock()
		return
	}
	s.entry = nil
	s.mu.Unlock()

	s.logger.Debug("Closing overlay", "state", StateClosed)
	if s.history.Fragment() == FragmentToken {
		s.history.Back()
	}
	s.notify(StateClosed)
}

// BackdropClicked dismisses the overlay when its options allow it.
func (s *Stack) BackdropClicked() {
	s.mu.Lock()
	dismiss := s.entry != nil && s.entry.Options.DismissOnBackdropClick
	s.mu.Unlock()
	if dismiss {
		s.Close()
	}
}

// HandleFragmentChange forces overlay state to match fragment presence. It is
// the adapter's hook for every navigation event, which makes the back button a
// close and repairs drift in either direction.
func (s *Stack) HandleFragmentChange() {
	present := s.history.Fragment() == FragmentToken

	s.mu.Lock()
	open := s.entry != nil
	if !present && open {
		// Back navigation while open: the fragment is already gone,
		// drop the entry to match.
		s.entry = nil
		s.mu.Unlock()
		s.logger.Debug("Overlay closed by navigation", "state", StateClosed)
		s.notify(StateClosed)
		return
	}
	s.mu.Unlock()

	if present && !open {
		// Dangling fragment with no overlay: pop it.
		s.logger.Debug("Removing dangling overlay fragment")
		s.history.Back()
	}
}

// OnChange registers a listener invoked after every state transition.
func (s *Stack) OnChange(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// notify invokes listeners outside the lock.
func (s *Stack) notify(state State) {
	s.mu.Lock()
	listeners := make([]func(State), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(state)
	}
}
