package api

import (
	"context"
	"net/http"

	"shopfront/internal/gateway"
	"shopfront/pkg/shoptypes"
)

// UpsertCartItemRequest sets the quantity for one (product, binding) variant.
// Replaying the same request is idempotent: the server stores the quantity, it
// does not add to it.
type UpsertCartItemRequest struct {
	ProductID string            `json:"productId"`
	Binding   shoptypes.Binding `json:"binding,omitempty"`
	Quantity  int               `json:"quantity"`
}

// cartEnvelope is the server cart response shape.
type cartEnvelope struct {
	Items []shoptypes.CartLineItem `json:"items"`
}

// GetCart fetches the authoritative server cart.
func (a *StoreAPI) GetCart(ctx context.Context) ([]shoptypes.CartLineItem, error) {
	var out cartEnvelope
	err := a.gw.Do(ctx, gateway.Descriptor{
		Method:       http.MethodGet,
		Path:         "/cart",
		AuthRequired: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.Items, nil
}

// UpsertCartItem sets the quantity of a variant in the server cart, keyed by
// (productId, binding). Quantity zero removes the item.
func (a *StoreAPI) UpsertCartItem(ctx context.Context, req UpsertCartItemRequest) error {
	return a.gw.Do(ctx, gateway.Descriptor{
		Method:       http.MethodPut,
		Path:         "/cart/items",
		Body:         req,
		AuthRequired: true,
	}, nil)
}

// RemoveCartItem deletes a server cart line by its server-issued id.
func (a *StoreAPI) RemoveCartItem(ctx context.Context, serverID string) error {
	return a.gw.Do(ctx, gateway.Descriptor{
		Method:       http.MethodDelete,
		Path:         "/cart/items/" + serverID,
		AuthRequired: true,
	}, nil)
}

// ClearCart empties the server cart.
func (a *StoreAPI) ClearCart(ctx context.Context) error {
	return a.gw.Do(ctx, gateway.Descriptor{
		Method:       http.MethodDelete,
		Path:         "/cart",
		AuthRequired: true,
	}, nil)
}
