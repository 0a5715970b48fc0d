package store

import (
	"sync"

	"shopfront/internal/logger"
)

// FavoritesFileName is the guest favorites state file inside the state directory.
const FavoritesFileName = "favorites.json"

// persistedFavorites is the on-disk schema: {favoriteProductIds: [...]}.
// MergeAttempts tracks per-product reconciliation failures; older readers
// ignore it as an unknown field.
type persistedFavorites struct {
	FavoriteProductIDs []string       `json:"favoriteProductIds"`
	MergeAttempts      map[string]int `json:"mergeAttempts,omitempty"`
}

// FavoritesStore holds the guest favorite product ids, insertion-ordered and
// duplicate-free.
type FavoritesStore struct {
	mu            sync.RWMutex
	ids           []string
	mergeAttempts map[string]int
	persist       *persister
}

// NewFavoritesStore creates a favorites store persisted under stateDir,
// rehydrating any previously saved state before first use.
func NewFavoritesStore(stateDir string) *FavoritesStore {
	s := &FavoritesStore{
		mergeAttempts: make(map[string]int),
		persist:       newPersister(stateDir, FavoritesFileName),
	}
	var stored persistedFavorites
	if s.persist.load(&stored) {
		seen := make(map[string]bool, len(stored.FavoriteProductIDs))
		for _, id := range stored.FavoriteProductIDs {
			if id != "" && !seen[id] {
				seen[id] = true
				s.ids = append(s.ids, id)
			}
		}
		for id, attempts := range stored.MergeAttempts {
			s.mergeAttempts[id] = attempts
		}
	}
	return s
}

// NewFavoritesStoreInMemory creates a favorites store that is never persisted.
func NewFavoritesStoreInMemory() *FavoritesStore {
	return &FavoritesStore{
		mergeAttempts: make(map[string]int),
		persist:       newPersister("", FavoritesFileName),
	}
}

// Add marks a product as favorited. Adding an existing id is a no-op.
func (s *FavoritesStore) Add(productID string) {
	if productID == "" {
		return
	}

	s.mu.Lock()
	if !s.hasLocked(productID) {
		s.ids = append(s.ids, productID)
		s.saveLocked()
	}
	s.mu.Unlock()

	logger.StoreOperation("favorites", "add", "product", productID)
}

// Remove unmarks a product.
func (s *FavoritesStore) Remove(productID string) {
	s.mu.Lock()
	for i, id := range s.ids {
		if id == productID {
			s.ids = append(s.ids[:i], s.ids[i+1:]...)
			break
		}
	}
	delete(s.mergeAttempts, productID)
	s.saveLocked()
	s.mu.Unlock()

	logger.StoreOperation("favorites", "remove", "product", productID)
}

// Has reports whether the product is favorited locally.
func (s *FavoritesStore) Has(productID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hasLocked(productID)
}

// ReplaceAll swaps the whole favorite set, dropping merge bookkeeping for ids
// that are no longer present.
func (s *FavoritesStore) ReplaceAll(ids []string) {
	s.mu.Lock()
	s.ids = nil
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id != "" && !seen[id] {
			seen[id] = true
			s.ids = append(s.ids, id)
		}
	}
	for id := range s.mergeAttempts {
		if !seen[id] {
			delete(s.mergeAttempts, id)
		}
	}
	s.saveLocked()
	s.mu.Unlock()

	logger.StoreOperation("favorites", "replace_all", "count", len(ids))
}

// Clear empties the favorite set.
func (s *FavoritesStore) Clear() {
	s.ReplaceAll(nil)
}

// IDs returns a copy of the favorited product ids in insertion order.
func (s *FavoritesStore) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

// IsEmpty reports whether no products are favorited.
func (s *FavoritesStore) IsEmpty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids) == 0
}

// RecordMergeFailure increments the reconciliation failure count for a product
// and returns the new count. The engine drops ids whose count exceeds its cap.
func (s *FavoritesStore) RecordMergeFailure(productID string) int {
	s.mu.Lock()
	s.mergeAttempts[productID]++
	attempts := s.mergeAttempts[productID]
	s.saveLocked()
	s.mu.Unlock()
	return attempts
}

// MergeAttempts returns the recorded failure count for a product.
func (s *FavoritesStore) MergeAttempts(productID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mergeAttempts[productID]
}

// hasLocked reports membership. Caller holds a lock.
func (s *FavoritesStore) hasLocked(productID string) bool {
	for _, id := range s.ids {
		if id == productID {
			return true
		}
	}
	return false
}

// saveLocked persists the current state. Caller holds the write lock.
func (s *FavoritesStore) saveLocked() {
	attempts := s.mergeAttempts
	if len(attempts) == 0 {
		attempts = nil
	}
	s.persist.save(persistedFavorites{FavoriteProductIDs: s.ids, MergeAttempts: attempts})
}
