// Package shoptypes defines the public domain types shared across the Shopfront client.
// This file contains cart line items and the option-binding identity model.
package shoptypes

import (
	"fmt"
	"sort"
	"strings"
)

// Binding maps a product option-group id to the chosen option-value id.
// A binding pins down the purchasable variant of a product (e.g. {"color": "red"}).
type Binding map[string]string

// Canonical returns a stable serialization of the binding with option-group
// keys sorted, so that two bindings with the same pairs always serialize
// identically regardless of insertion order.
func (b Binding) Canonical() string {
	if len(b) == 0 {
		return ""
	}
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, b[k]))
	}
	return strings.Join(parts, ";")
}

// Equal reports whether two bindings select the same option values.
func (b Binding) Equal(other Binding) bool {
	return b.Canonical() == other.Canonical()
}

// Clone returns a copy of the binding.
func (b Binding) Clone() Binding {
	if b == nil {
		return nil
	}
	out := make(Binding, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// LineItemKey identifies a cart line item by product and variant rather than by
// a server-issued id, because guest items have no server id yet.
type LineItemKey string

// NewLineItemKey derives the identity key for a (product, binding) pair.
func NewLineItemKey(productID string, binding Binding) LineItemKey {
	return LineItemKey(productID + "|" + binding.Canonical())
}

// CartLineItem is one entry in a shopping cart, guest-local or server-side.
// DisplayName, ImageURL and Currency are a non-authoritative cache of server
// data kept so a guest cart can render without a network round trip.
type CartLineItem struct {
	ServerID    string  `json:"serverId,omitempty"` // Set only once the item exists server-side
	ProductID   string  `json:"productId"`
	Binding     Binding `json:"binding,omitempty"`
	Quantity    int     `json:"quantity"`
	UnitPrice   string  `json:"unitPrice"` // Decimal string, server-formatted
	DisplayName string  `json:"displayName,omitempty"`
	ImageURL    string  `json:"imageUrl,omitempty"`
	Currency    string  `json:"currency,omitempty"`
}

// Key returns the variant identity of the line item.
func (i CartLineItem) Key() LineItemKey {
	return NewLineItemKey(i.ProductID, i.Binding)
}
