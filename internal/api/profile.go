package api

import (
	"context"
	"net/http"

	"shopfront/internal/gateway"
	"shopfront/pkg/shoptypes"
)

// UpdateProfileRequest carries the editable profile fields.
type UpdateProfileRequest struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// GetProfile fetches the authenticated user's profile.
func (a *StoreAPI) GetProfile(ctx context.Context) (*shoptypes.UserProfile, error) {
	var out shoptypes.UserProfile
	err := a.gw.Do(ctx, gateway.Descriptor{
		Method:       http.MethodGet,
		Path:         "/profile",
		AuthRequired: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProfile updates the editable fields. When avatar is non-nil the call
// switches to multipart encoding so the image travels with the same request.
func (a *StoreAPI) UpdateProfile(ctx context.Context, req UpdateProfileRequest, avatar *gateway.FileField) (*shoptypes.UserProfile, error) {
	desc := gateway.Descriptor{
		Method:       http.MethodPost,
		Path:         "/profile",
		Body:         req,
		AuthRequired: true,
	}
	if avatar != nil {
		f := *avatar
		f.Field = "avatar"
		desc.Files = []gateway.FileField{f}
	}

	var out shoptypes.UserProfile
	if err := a.gw.Do(ctx, desc, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListAddresses fetches the user's saved addresses.
func (a *StoreAPI) ListAddresses(ctx context.Context) ([]shoptypes.Address, error) {
	var out []shoptypes.Address
	err := a.gw.Do(ctx, gateway.Descriptor{
		Method:       http.MethodGet,
		Path:         "/profile/addresses",
		AuthRequired: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SaveAddress creates or updates an address; an empty address id creates.
func (a *StoreAPI) SaveAddress(ctx context.Context, addr shoptypes.Address) (*shoptypes.Address, error) {
	desc := gateway.Descriptor{
		Method:       http.MethodPost,
		Path:         "/profile/addresses",
		Body:         addr,
		AuthRequired: true,
	}
	if addr.ID != "" {
		desc.Method = http.MethodPut
		desc.Path = "/profile/addresses/" + addr.ID
	}

	var out shoptypes.Address
	if err := a.gw.Do(ctx, desc, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteAddress removes a saved address.
func (a *StoreAPI) DeleteAddress(ctx context.Context, addressID string) error {
	return a.gw.Do(ctx, gateway.Descriptor{
		Method:       http.MethodDelete,
		Path:         "/profile/addresses/" + addressID,
		AuthRequired: true,
	}, nil)
}
