package api

import (
	"context"
	"net/http"

	"shopfront/internal/gateway"
	"shopfront/pkg/shoptypes"
)

// LoginRequest is the payload for password authentication.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the payload for account creation.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

// AuthResponse carries the session token and the user snapshot returned by
// login, registration and token refresh.
type AuthResponse struct {
	Token string                `json:"token"`
	User  shoptypes.UserProfile `json:"user"`
}

// Login authenticates with email and password.
func (a *StoreAPI) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	var out AuthResponse
	err := a.gw.Do(ctx, gateway.Descriptor{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Body:   req,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates a new account and returns a fresh session.
func (a *StoreAPI) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	var out AuthResponse
	err := a.gw.Do(ctx, gateway.Descriptor{
		Method: http.MethodPost,
		Path:   "/auth/register",
		Body:   req,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout invalidates the current session server-side.
func (a *StoreAPI) Logout(ctx context.Context) error {
	return a.gw.Do(ctx, gateway.Descriptor{
		Method:       http.MethodPost,
		Path:         "/auth/logout",
		AuthRequired: true,
	}, nil)
}

// RefreshToken exchanges the current token for a fresh one.
func (a *StoreAPI) RefreshToken(ctx context.Context) (*AuthResponse, error) {
	var out AuthResponse
	err := a.gw.Do(ctx, gateway.Descriptor{
		Method:       http.MethodPost,
		Path:         "/auth/refresh",
		AuthRequired: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
