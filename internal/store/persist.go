// Package store implements the durable client-side state used before
// authentication: the guest cart and the guest favorite set. Stores are pure
// data containers persisted on every mutation; they never call the network.
// Network orchestration lives in the reconciliation engine or in direct
// namespace calls.
package store

import (
	"encoding/json"
	"os"
	"path/filepath"

	"shopfront/internal/logger"
)

// persister writes a store's state file, degrading to memory-only operation
// when storage is unavailable rather than crashing.
type persister struct {
	path     string
	disabled bool // set after the first storage failure, or for in-memory stores
}

// newPersister creates a persister for a file inside the state directory.
// An empty stateDir yields a memory-only persister.
func newPersister(stateDir, fileName string) *persister {
	if stateDir == "" {
		return &persister{disabled: true}
	}
	return &persister{path: filepath.Join(stateDir, fileName)}
}

// load reads the state file into v. Returns false when no usable state exists;
// missing files are normal, corrupt files are logged and skipped.
func (p *persister) load(v any) bool {
	if p.disabled {
		return false
	}
	data, err := os.ReadFile(p.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("Failed to read state file, starting empty", "path", p.path, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		logger.Warn("State file is corrupt, starting empty", "path", p.path, "error", err)
		return false
	}
	return true
}

// save writes v to the state file. The first failure disables persistence for
// the rest of the process lifetime.
func (p *persister) save(v any) {
	if p.disabled {
		return
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		logger.Error("Failed to encode state", "path", p.path, "error", err)
		return
	}
	if err := os.MkdirAll(filepath.Dir(p.path), 0700); err != nil {
		logger.Warn("State storage unavailable, continuing in memory", "path", p.path, "error", err)
		p.disabled = true
		return
	}
	if err := os.WriteFile(p.path, data, 0600); err != nil {
		logger.Warn("State storage unavailable, continuing in memory", "path", p.path, "error", err)
		p.disabled = true
	}
}
