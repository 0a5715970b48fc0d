package reconcile

import "shopfront/pkg/shoptypes"

// ItemFailure records one cart line that could not be merged. Its local copy
// is retained for the next reconciliation.
type ItemFailure struct {
	Key       shoptypes.LineItemKey
	ProductID string
	Err       error
}

// FavoriteFailure records one favorite create that failed. Dropped means the
// bounded retry budget is exhausted and the local marker was discarded.
type FavoriteFailure struct {
	ProductID string
	Attempts  int
	Dropped   bool
	Err       error
}

// PriceNotice flags a merged cart line whose server price differs from the
// price captured while browsing as a guest. The server price is authoritative;
// the notice exists so the UI can tell the user.
type PriceNotice struct {
	Key         shoptypes.LineItemKey
	ProductID   string
	LocalPrice  string
	ServerPrice string
}

// Report summarizes one reconciliation pass.
type Report struct {
	CartMerged   int
	CartFailures []ItemFailure
	ServerCart   []shoptypes.CartLineItem
	PriceNotices []PriceNotice

	FavoritesCreated         int
	FavoritesAlreadyOnServer int
	FavoriteFailures         []FavoriteFailure
	ServerFavorites          []shoptypes.FavoriteEntry

	// Errors holds batch-level failures (listing or refetching server state)
	// that prevented part of the pass from completing.
	Errors []error
}

// Clean reports whether the pass completed without any item or batch failure.
func (r *Report) Clean() bool {
	return len(r.CartFailures) == 0 && len(r.FavoriteFailures) == 0 && len(r.Errors) == 0
}
