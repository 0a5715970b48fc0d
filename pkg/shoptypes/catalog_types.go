// Package shoptypes defines the public domain types shared across the Shopfront client.
// This file contains catalog types: products, option groups and categories.
package shoptypes

// Product represents a catalog product as returned by the store API.
type Product struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Description  string        `json:"description,omitempty"`
	Price        string        `json:"price"` // Decimal string, server-formatted
	Currency     string        `json:"currency"`
	ImageURL     string        `json:"imageUrl,omitempty"`
	GalleryURLs  []string      `json:"galleryUrls,omitempty"`
	CategoryIDs  []string      `json:"categoryIds,omitempty"`
	OptionGroups []OptionGroup `json:"optionGroups,omitempty"`
	InStock      bool          `json:"inStock"`
}

// OptionGroup is a set of mutually exclusive variant choices for a product,
// e.g. "color" with values red/blue.
type OptionGroup struct {
	ID     string        `json:"id"`
	Name   string        `json:"name"`
	Values []OptionValue `json:"values"`
}

// OptionValue is one selectable value inside an option group.
type OptionValue struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Extra string `json:"extra,omitempty"` // Price delta, server-formatted, empty when none
}

// Category is a catalog category node.
type Category struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ParentID string `json:"parentId,omitempty"`
}
