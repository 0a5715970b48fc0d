package api

import (
	"context"
	"net/http"

	"shopfront/internal/gateway"
	"shopfront/pkg/shoptypes"
)

// PlatformAPI groups the platform-scoped operations: health, admin product
// management and admin user listings. It holds its own gateway client with its
// own token source; platform credentials never leak into store calls.
type PlatformAPI struct {
	gw *gateway.Client
}

// NewPlatformAPI creates the platform-scoped namespace over the given gateway client.
func NewPlatformAPI(gw *gateway.Client) *PlatformAPI {
	return &PlatformAPI{gw: gw}
}

// Gateway exposes the underlying client, used for wiring the unauthorized callback.
func (p *PlatformAPI) Gateway() *gateway.Client {
	return p.gw
}

// HealthResponse is the platform health probe payload.
type HealthResponse struct {
	Status           string `json:"status"`
	MinClientVersion string `json:"minClientVersion,omitempty"`
}

// Health probes the platform API and reports the minimum supported client version.
func (p *PlatformAPI) Health(ctx context.Context) (*HealthResponse, error) {
	var out HealthResponse
	err := p.gw.Do(ctx, gateway.Descriptor{
		Method: http.MethodGet,
		Path:   "/health",
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListUsers fetches one page of platform users (admin scope).
func (p *PlatformAPI) ListUsers(ctx context.Context, page, perPage int) (*shoptypes.Page[shoptypes.UserProfile], error) {
	var out shoptypes.Page[shoptypes.UserProfile]
	err := p.gw.Do(ctx, gateway.Descriptor{
		Method:       http.MethodGet,
		Path:         "/admin/users",
		Query:        gateway.Query{"page": page, "perPage": perPage},
		AuthRequired: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListStoreProducts fetches one page of products across the platform (admin scope).
func (p *PlatformAPI) ListStoreProducts(ctx context.Context, filter ProductFilter) (*shoptypes.Page[shoptypes.Product], error) {
	var out shoptypes.Page[shoptypes.Product]
	err := p.gw.Do(ctx, gateway.Descriptor{
		Method:       http.MethodGet,
		Path:         "/admin/products",
		Query:        filter.query(),
		AuthRequired: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ReplaceProductGallery uploads a product's gallery images in display order
// (admin scope). The file-array encoding lets the server reconstruct order.
func (p *PlatformAPI) ReplaceProductGallery(ctx context.Context, productID string, photos []gateway.FileField) error {
	files := make([]gateway.FileField, len(photos))
	for i, f := range photos {
		f.Field = "photos"
		f.Array = true
		files[i] = f
	}
	return p.gw.Do(ctx, gateway.Descriptor{
		Method:       http.MethodPost,
		Path:         "/admin/products/" + productID + "/gallery",
		Files:        files,
		AuthRequired: true,
	}, nil)
}
