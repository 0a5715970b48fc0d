package shoptypes

// FavoriteEntry marks a product as favorited. Guest entries carry only the
// product id; once synced, the server-issued favorite id is attached.
type FavoriteEntry struct {
	ID        string `json:"id,omitempty"` // Server favorite id, empty for guest entries
	ProductID string `json:"productId"`
}
