package api

import (
	"context"
	"net/http"

	"shopfront/internal/gateway"
	"shopfront/pkg/shoptypes"
)

// ListOrders fetches one page of the user's order history, newest first.
func (a *StoreAPI) ListOrders(ctx context.Context, page, perPage int) (*shoptypes.Page[shoptypes.Order], error) {
	var out shoptypes.Page[shoptypes.Order]
	err := a.gw.Do(ctx, gateway.Descriptor{
		Method:       http.MethodGet,
		Path:         "/orders",
		Query:        gateway.Query{"page": page, "perPage": perPage},
		AuthRequired: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetOrder fetches a single order with its line items.
func (a *StoreAPI) GetOrder(ctx context.Context, orderID string) (*shoptypes.Order, error) {
	var out shoptypes.Order
	err := a.gw.Do(ctx, gateway.Descriptor{
		Method:       http.MethodGet,
		Path:         "/orders/" + orderID,
		AuthRequired: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
