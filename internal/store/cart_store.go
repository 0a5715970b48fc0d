package store

import (
	"sync"

	"shopfront/internal/logger"
	"shopfront/pkg/shoptypes"
)

// CartFileName is the guest cart state file inside the state directory.
const CartFileName = "cart.json"

// persistedCart is the on-disk schema: {items: [...]}. Unknown extra fields
// are ignored on read; a missing items field means an empty cart.
type persistedCart struct {
	Items []shoptypes.CartLineItem `json:"items"`
}

// CartStore holds the guest cart. Items are keyed by (productId, binding)
// identity and kept in insertion order. An item with quantity zero never
// persists: setting quantity to zero removes it.
type CartStore struct {
	mu      sync.RWMutex
	items   []shoptypes.CartLineItem
	persist *persister
}

// NewCartStore creates a cart store persisted under stateDir, rehydrating any
// previously saved state before first use.
func NewCartStore(stateDir string) *CartStore {
	s := &CartStore{persist: newPersister(stateDir, CartFileName)}
	var stored persistedCart
	if s.persist.load(&stored) {
		for _, item := range stored.Items {
			// Quantity zero is equivalent to absence; drop on rehydrate too.
			if item.Quantity > 0 {
				s.items = append(s.items, item)
			}
		}
	}
	return s
}

// NewCartStoreInMemory creates a cart store that is never persisted.
func NewCartStoreInMemory() *CartStore {
	return &CartStore{persist: newPersister("", CartFileName)}
}

// AddOrIncrement adds the item, or increments the quantity of the existing
// line with the same (productId, binding) identity.
func (s *CartStore) AddOrIncrement(item shoptypes.CartLineItem) {
	if item.Quantity <= 0 {
		item.Quantity = 1
	}

	s.mu.Lock()
	key := item.Key()
	found := false
	for i := range s.items {
		if s.items[i].Key() == key {
			s.items[i].Quantity += item.Quantity
			found = true
			break
		}
	}
	if !found {
		s.items = append(s.items, item)
	}
	s.saveLocked()
	s.mu.Unlock()

	logger.StoreOperation("cart", "add_or_increment", "product", item.ProductID, "quantity", item.Quantity)
}

// SetQuantity sets the quantity for the identified line. Quantity zero (or
// negative) removes the line entirely.
func (s *CartStore) SetQuantity(key shoptypes.LineItemKey, quantity int) {
	s.mu.Lock()
	if quantity <= 0 {
		s.removeLocked(key)
	} else {
		for i := range s.items {
			if s.items[i].Key() == key {
				s.items[i].Quantity = quantity
				break
			}
		}
	}
	s.saveLocked()
	s.mu.Unlock()

	logger.StoreOperation("cart", "set_quantity", "key", string(key), "quantity", quantity)
}

// Remove deletes the identified line.
func (s *CartStore) Remove(key shoptypes.LineItemKey) {
	s.mu.Lock()
	s.removeLocked(key)
	s.saveLocked()
	s.mu.Unlock()

	logger.StoreOperation("cart", "remove", "key", string(key))
}

// ReplaceAll swaps the whole cart contents, used when adopting server truth.
// Zero-quantity items are dropped on the way in.
func (s *CartStore) ReplaceAll(items []shoptypes.CartLineItem) {
	s.mu.Lock()
	s.items = nil
	for _, item := range items {
		if item.Quantity > 0 {
			s.items = append(s.items, item)
		}
	}
	s.saveLocked()
	s.mu.Unlock()

	logger.StoreOperation("cart", "replace_all", "count", len(items))
}

// Clear empties the cart.
func (s *CartStore) Clear() {
	s.ReplaceAll(nil)
}

// Items returns a copy of the cart lines in insertion order.
func (s *CartStore) Items() []shoptypes.CartLineItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]shoptypes.CartLineItem, len(s.items))
	copy(out, s.items)
	return out
}

// Get returns the line with the given identity.
func (s *CartStore) Get(key shoptypes.LineItemKey) (shoptypes.CartLineItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.items {
		if item.Key() == key {
			return item, true
		}
	}
	return shoptypes.CartLineItem{}, false
}

// IsEmpty reports whether the cart has no lines.
func (s *CartStore) IsEmpty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items) == 0
}

// removeLocked deletes the identified line. Caller holds the write lock.
func (s *CartStore) removeLocked(key shoptypes.LineItemKey) {
	for i := range s.items {
		if s.items[i].Key() == key {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return
		}
	}
}

// saveLocked persists the current state. Caller holds the write lock.
func (s *CartStore) saveLocked() {
	s.persist.save(persistedCart{Items: s.items})
}
