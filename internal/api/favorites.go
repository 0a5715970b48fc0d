package api

import (
	"context"
	"net/http"

	"shopfront/internal/gateway"
	"shopfront/pkg/shoptypes"
)

// createFavoriteRequest marks one product as favorited.
type createFavoriteRequest struct {
	ProductID string `json:"productId"`
}

// ListFavorites fetches one page of the user's favorites.
func (a *StoreAPI) ListFavorites(ctx context.Context, page, perPage int) (*shoptypes.Page[shoptypes.FavoriteEntry], error) {
	var out shoptypes.Page[shoptypes.FavoriteEntry]
	err := a.gw.Do(ctx, gateway.Descriptor{
		Method:       http.MethodGet,
		Path:         "/favorites",
		Query:        gateway.Query{"page": page, "perPage": perPage},
		AuthRequired: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListAllFavorites walks every page and returns the full favorite set.
func (a *StoreAPI) ListAllFavorites(ctx context.Context) ([]shoptypes.FavoriteEntry, error) {
	const perPage = 100

	var all []shoptypes.FavoriteEntry
	for page := 1; ; page++ {
		p, err := a.ListFavorites(ctx, page, perPage)
		if err != nil {
			return nil, err
		}
		all = append(all, p.List...)
		if !p.HasNext() {
			return all, nil
		}
	}
}

// CreateFavorite marks a product as favorited and returns the server entry.
// Favoriting an already-favorited product succeeds and returns the existing entry.
func (a *StoreAPI) CreateFavorite(ctx context.Context, productID string) (*shoptypes.FavoriteEntry, error) {
	var out shoptypes.FavoriteEntry
	err := a.gw.Do(ctx, gateway.Descriptor{
		Method:       http.MethodPost,
		Path:         "/favorites",
		Body:         createFavoriteRequest{ProductID: productID},
		AuthRequired: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteFavorite removes a favorite by its server-issued id.
func (a *StoreAPI) DeleteFavorite(ctx context.Context, favoriteID string) error {
	return a.gw.Do(ctx, gateway.Descriptor{
		Method:       http.MethodDelete,
		Path:         "/favorites/" + favoriteID,
		AuthRequired: true,
	}, nil)
}
