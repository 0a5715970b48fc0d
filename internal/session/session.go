// Package session holds the auth session for one client runtime: an opaque
// bearer token plus a snapshot of the authenticated user's profile. The
// session is an explicitly constructed container injected into the components
// that need it, not an ambient global.
package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"shopfront/internal/logger"
	"shopfront/pkg/shoptypes"
)

// FileName is the session state file inside the state directory.
const FileName = "session.json"

// persistedSession is the on-disk schema. Unknown extra fields are ignored on
// read so the file stays backward-readable across deploys.
type persistedSession struct {
	Token string                 `json:"token,omitempty"`
	User  *shoptypes.UserProfile `json:"user,omitempty"`
}

// Session is the one process-wide auth session. The gateway reads it to attach
// tokens; the reconciliation engine and logout flow write it. It satisfies
// gateway.TokenSource.
type Session struct {
	mu         sync.RWMutex
	token      string
	user       *shoptypes.UserProfile
	path       string // empty means memory-only
	memoryOnly bool
	listeners  []func()
}

// New creates a session persisted under stateDir, rehydrating any previously
// saved state. A storage failure degrades to memory-only operation.
func New(stateDir string) *Session {
	s := &Session{path: filepath.Join(stateDir, FileName)}
	s.load()
	return s
}

// NewInMemory creates a session that is never persisted. Used by tests and by
// the platform-scoped surface when no durable session is wanted.
func NewInMemory() *Session {
	return &Session{memoryOnly: true}
}

// Token returns the current bearer token, empty when unauthenticated.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns the profile snapshot of the authenticated user, nil when guest.
func (s *Session) User() *shoptypes.UserProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// IsAuthenticated reports whether a token is present.
func (s *Session) IsAuthenticated() bool {
	return s.Token() != ""
}

// Set installs a new token and profile snapshot, persists, and notifies listeners.
func (s *Session) Set(token string, user *shoptypes.UserProfile) {
	s.mu.Lock()
	s.token = token
	s.user = user
	s.mu.Unlock()

	s.persist()
	s.notify()
}

// Clear drops the session (logout or terminal 401), persists, and notifies listeners.
func (s *Session) Clear() {
	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.mu.Unlock()

	s.persist()
	s.notify()
}

// OnChange registers a listener invoked after every Set or Clear.
func (s *Session) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// notify invokes listeners outside the lock.
func (s *Session) notify() {
	s.mu.RLock()
	listeners := make([]func(), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.RUnlock()

	for _, fn := range listeners {
		fn()
	}
}

// load rehydrates the session from disk. Missing or unreadable files leave the
// session empty; a corrupt file is logged and ignored.
func (s *Session) load() {
	if s.memoryOnly || s.path == "" {
		return
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("Failed to read session file, starting unauthenticated", "path", s.path, "error", err)
		}
		return
	}
	var stored persistedSession
	if err := json.Unmarshal(data, &stored); err != nil {
		logger.Warn("Session file is corrupt, starting unauthenticated", "path", s.path, "error", err)
		return
	}
	s.token = stored.Token
	s.user = stored.User
}

// persist writes the session to disk. Storage failures switch the session to
// memory-only operation rather than crashing.
func (s *Session) persist() {
	if s.memoryOnly || s.path == "" {
		return
	}

	s.mu.RLock()
	stored := persistedSession{Token: s.token, User: s.user}
	s.mu.RUnlock()

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		logger.Error("Failed to encode session state", "error", err)
		return
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		logger.Warn("Session storage unavailable, continuing in memory", "error", err)
		s.memoryOnly = true
		return
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		logger.Warn("Session storage unavailable, continuing in memory", "error", err)
		s.memoryOnly = true
	}
}
