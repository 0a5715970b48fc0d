// Package api provides the typed endpoint namespaces over the gateway client.
// Each operation is a pure mapping from a domain request to one transport
// call: no retries, no caching, no side effects beyond the call itself. Those
// concerns live in the query orchestrator.
//
// Two parallel surfaces exist: StoreAPI (store-scoped) and PlatformAPI
// (platform-scoped). They share the gateway implementation but are pointed at
// different base URLs with separate token sources, so credentials never
// cross-contaminate.
package api

import "shopfront/internal/gateway"

// StoreAPI groups the store-scoped operations: auth, cart, favorites, catalog,
// orders and profile.
type StoreAPI struct {
	gw *gateway.Client
}

// NewStoreAPI creates the store-scoped namespace over the given gateway client.
func NewStoreAPI(gw *gateway.Client) *StoreAPI {
	return &StoreAPI{gw: gw}
}

// Gateway exposes the underlying client, used for wiring the unauthorized callback.
func (a *StoreAPI) Gateway() *gateway.Client {
	return a.gw
}
