package shoptypes

import "time"

// Order is a placed order as returned by the store API.
type Order struct {
	ID        string         `json:"id"`
	Number    string         `json:"number"`
	Status    string         `json:"status"`
	Total     string         `json:"total"` // Decimal string, server-formatted
	Currency  string         `json:"currency"`
	Items     []CartLineItem `json:"items"`
	Shipping  *Address       `json:"shipping,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}
