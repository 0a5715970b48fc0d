package api

import (
	"context"
	"net/http"

	"shopfront/internal/gateway"
	"shopfront/pkg/shoptypes"
)

// ProductFilter narrows a catalog listing. Zero values are omitted from the query.
type ProductFilter struct {
	Search      string
	CategoryIDs []string
	InStockOnly bool
	Page        int
	PerPage     int
}

// query translates the filter into query parameters, leaving out zero values.
func (f ProductFilter) query() gateway.Query {
	q := gateway.Query{}
	if f.Search != "" {
		q["search"] = f.Search
	}
	if len(f.CategoryIDs) > 0 {
		q["categoryIds"] = f.CategoryIDs
	}
	if f.InStockOnly {
		q["inStock"] = true
	}
	if f.Page > 0 {
		q["page"] = f.Page
	}
	if f.PerPage > 0 {
		q["perPage"] = f.PerPage
	}
	return q
}

// ListProducts fetches one page of catalog products matching the filter.
func (a *StoreAPI) ListProducts(ctx context.Context, filter ProductFilter) (*shoptypes.Page[shoptypes.Product], error) {
	var out shoptypes.Page[shoptypes.Product]
	err := a.gw.Do(ctx, gateway.Descriptor{
		Method: http.MethodGet,
		Path:   "/products",
		Query:  filter.query(),
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetProduct fetches a single product with its option groups.
func (a *StoreAPI) GetProduct(ctx context.Context, productID string) (*shoptypes.Product, error) {
	var out shoptypes.Product
	err := a.gw.Do(ctx, gateway.Descriptor{
		Method: http.MethodGet,
		Path:   "/products/" + productID,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListCategories fetches the category tree as a flat list.
func (a *StoreAPI) ListCategories(ctx context.Context) ([]shoptypes.Category, error) {
	var out []shoptypes.Category
	err := a.gw.Do(ctx, gateway.Descriptor{
		Method: http.MethodGet,
		Path:   "/categories",
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}
