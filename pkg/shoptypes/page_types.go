// Package shoptypes defines the public domain types shared across the Shopfront client.
// This file contains the pagination envelope returned by every list endpoint.
package shoptypes

// PageMeta carries the pagination bookkeeping attached to list responses.
type PageMeta struct {
	Total           int     `json:"total"`
	PerPage         int     `json:"perPage"`
	CurrentPage     int     `json:"currentPage"`
	LastPage        int     `json:"lastPage"`
	NextPageURL     *string `json:"nextPageUrl"`
	PreviousPageURL *string `json:"previousPageUrl"`
}

// Page is the stable pagination envelope shared by the store and platform APIs.
type Page[T any] struct {
	List []T      `json:"list"`
	Meta PageMeta `json:"meta"`
}

// HasNext reports whether another page follows this one.
func (p Page[T]) HasNext() bool {
	return p.Meta.NextPageURL != nil
}
