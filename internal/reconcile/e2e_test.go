package reconcile

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopfront/internal/api"
	"shopfront/internal/gateway"
	"shopfront/internal/session"
	"shopfront/internal/store"
	"shopfront/pkg/shoptypes"
)

// shopServer is a minimal in-memory store backend for full-stack tests: real
// gateway, real endpoint namespaces, real stores, fake HTTP server.
type shopServer struct {
	mu        sync.Mutex
	token     string
	cart      map[shoptypes.LineItemKey]shoptypes.CartLineItem
	cartOrder []shoptypes.LineItemKey
	favorites []shoptypes.FavoriteEntry
	rejected  map[string]int // productID -> status to fail upserts with
}

func newShopServer() *shopServer {
	return &shopServer{
		token:    "tok-1",
		cart:     make(map[shoptypes.LineItemKey]shoptypes.CartLineItem),
		rejected: make(map[string]int),
	}
}

func (s *shopServer) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"token": s.token,
			"user":  shoptypes.UserProfile{ID: "u1", Email: "ada@example.com"},
		})
	})

	mux.HandleFunc("PUT /cart/items", func(w http.ResponseWriter, r *http.Request) {
		if !s.authorized(w, r) {
			return
		}
		var req api.UpsertCartItemRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if status, bad := s.rejected[req.ProductID]; bad {
			w.WriteHeader(status)
			writeJSON(w, map[string]string{"message": "product unavailable"})
			return
		}
		key := shoptypes.NewLineItemKey(req.ProductID, req.Binding)
		if _, exists := s.cart[key]; !exists {
			s.cartOrder = append(s.cartOrder, key)
		}
		s.cart[key] = shoptypes.CartLineItem{
			ServerID:  "line-" + req.ProductID,
			ProductID: req.ProductID,
			Binding:   req.Binding,
			Quantity:  req.Quantity,
			UnitPrice: "19.90",
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("GET /cart", func(w http.ResponseWriter, r *http.Request) {
		if !s.authorized(w, r) {
			return
		}
		s.mu.Lock()
		items := make([]shoptypes.CartLineItem, 0, len(s.cartOrder))
		for _, key := range s.cartOrder {
			items = append(items, s.cart[key])
		}
		s.mu.Unlock()
		writeJSON(w, map[string]any{"items": items})
	})

	mux.HandleFunc("GET /favorites", func(w http.ResponseWriter, r *http.Request) {
		if !s.authorized(w, r) {
			return
		}
		s.mu.Lock()
		list := append([]shoptypes.FavoriteEntry(nil), s.favorites...)
		s.mu.Unlock()
		writeJSON(w, shoptypes.Page[shoptypes.FavoriteEntry]{
			List: list,
			Meta: shoptypes.PageMeta{Total: len(list), PerPage: 100, CurrentPage: 1, LastPage: 1},
		})
	})

	mux.HandleFunc("POST /favorites", func(w http.ResponseWriter, r *http.Request) {
		if !s.authorized(w, r) {
			return
		}
		var req struct {
			ProductID string `json:"productId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		for _, fav := range s.favorites {
			if fav.ProductID == req.ProductID {
				writeJSON(w, fav)
				return
			}
		}
		entry := shoptypes.FavoriteEntry{ID: "fav-" + req.ProductID, ProductID: req.ProductID}
		s.favorites = append(s.favorites, entry)
		writeJSON(w, entry)
	})

	return mux
}

func (s *shopServer) authorized(w http.ResponseWriter, r *http.Request) bool {
	if r.Header.Get("Authorization") != "Bearer "+s.token {
		w.WriteHeader(http.StatusUnauthorized)
		writeJSON(w, map[string]string{"message": "unauthenticated"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestEngine_GuestToAuthenticatedEndToEnd(t *testing.T) {
	backend := newShopServer()
	backend.favorites = []shoptypes.FavoriteEntry{
		{ID: "fav-p2", ProductID: "p2"},
		{ID: "fav-p3", ProductID: "p3"},
	}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	sess := session.NewInMemory()
	storeAPI := api.NewStoreAPI(gateway.NewClient(gateway.Config{
		BaseURL: srv.URL,
		Tokens:  sess,
	}))
	cart := store.NewCartStoreInMemory()
	favorites := store.NewFavoritesStoreInMemory()
	engine := New(Config{
		Session:   sess,
		Cart:      cart,
		Favorites: favorites,
		Store:     storeAPI,
	})

	// Guest activity: two red boots in the cart, one favorite the server
	// already happens to know about.
	cart.AddOrIncrement(shoptypes.CartLineItem{
		ProductID: "p1",
		Binding:   shoptypes.Binding{"color": "red"},
		Quantity:  2,
		UnitPrice: "19.90",
	})
	favorites.Add("p2")
	require.Equal(t, StateGuest, engine.State())

	ctx := context.Background()
	auth, err := storeAPI.Login(ctx, api.LoginRequest{Email: "ada@example.com", Password: "pw"})
	require.NoError(t, err)

	report, err := engine.OnLogin(ctx, auth.Token, &auth.User)
	require.NoError(t, err)

	assert.Equal(t, StateAuthenticated, engine.State())
	assert.True(t, sess.IsAuthenticated())
	assert.True(t, report.Clean())

	// Server cart is now authoritative and carries the merged line.
	require.Len(t, report.ServerCart, 1)
	assert.Equal(t, "p1", report.ServerCart[0].ProductID)
	assert.Equal(t, 2, report.ServerCart[0].Quantity)
	assert.Equal(t, shoptypes.Binding{"color": "red"}, report.ServerCart[0].Binding)

	// The local favorite was already on the server, so no create happened and
	// the server set is unchanged.
	assert.Equal(t, 0, report.FavoritesCreated)
	assert.Equal(t, 1, report.FavoritesAlreadyOnServer)
	require.Len(t, report.ServerFavorites, 2)

	// Local guest state is fully handed over.
	assert.True(t, cart.IsEmpty())
	assert.True(t, favorites.IsEmpty())
}

func TestUpsertReplayIsIdempotent(t *testing.T) {
	backend := newShopServer()
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	sess := session.NewInMemory()
	sess.Set("tok-1", nil)
	storeAPI := api.NewStoreAPI(gateway.NewClient(gateway.Config{
		BaseURL: srv.URL,
		Tokens:  sess,
	}))

	ctx := context.Background()
	req := api.UpsertCartItemRequest{
		ProductID: "p1",
		Binding:   shoptypes.Binding{"color": "red"},
		Quantity:  2,
	}
	require.NoError(t, storeAPI.UpsertCartItem(ctx, req))
	require.NoError(t, storeAPI.UpsertCartItem(ctx, req))

	items, err := storeAPI.GetCart(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity, "replaying an upsert must not add quantity")
}

func TestEngine_EndToEndRetainsRejectedCartLine(t *testing.T) {
	backend := newShopServer()
	backend.rejected["p2"] = http.StatusConflict
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	sess := session.NewInMemory()
	storeAPI := api.NewStoreAPI(gateway.NewClient(gateway.Config{
		BaseURL: srv.URL,
		Tokens:  sess,
	}))
	cart := store.NewCartStoreInMemory()
	engine := New(Config{
		Session:   sess,
		Cart:      cart,
		Favorites: store.NewFavoritesStoreInMemory(),
		Store:     storeAPI,
	})

	cart.AddOrIncrement(shoptypes.CartLineItem{ProductID: "p1", Quantity: 1})
	cart.AddOrIncrement(shoptypes.CartLineItem{ProductID: "p2", Quantity: 3})

	report, err := engine.OnLogin(context.Background(), "tok-1", nil)
	require.NoError(t, err)

	assert.Equal(t, 1, report.CartMerged)
	require.Len(t, report.CartFailures, 1)
	assert.Equal(t, "p2", report.CartFailures[0].ProductID)
	var gwErr *gateway.Error
	require.ErrorAs(t, report.CartFailures[0].Err, &gwErr)
	assert.Equal(t, gateway.KindClient, gwErr.Kind)

	// The rejected line survives locally for a later pass; the merged one is gone.
	items := cart.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "p2", items[0].ProductID)
	assert.Equal(t, 3, items[0].Quantity)
}
