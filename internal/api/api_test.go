package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopfront/internal/gateway"
	"shopfront/pkg/shoptypes"
)

type staticTokens string

func (s staticTokens) Token() string { return string(s) }

func newStoreAPI(t *testing.T, handler http.HandlerFunc, token string) *StoreAPI {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	gw := gateway.NewClient(gateway.Config{
		BaseURL: server.URL,
		Timeout: 5 * time.Second,
		Tokens:  staticTokens(token),
	})
	return NewStoreAPI(gw)
}

func TestStoreAPI_Login(t *testing.T) {
	var gotPath string
	api := newStoreAPI(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"token":"tok-1","user":{"id":"u1","email":"a@example.com"}}`))
	}, "")

	resp, err := api.Login(context.Background(), LoginRequest{Email: "a@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "/auth/login", gotPath)
	assert.Equal(t, "tok-1", resp.Token)
	assert.Equal(t, "u1", resp.User.ID)
}

func TestStoreAPI_ListProducts_PaginationEnvelope(t *testing.T) {
	api := newStoreAPI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, []string{"c1", "c2"}, r.URL.Query()["categoryIds"])
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"list": [{"id":"p1","name":"Boots","price":"59.90","currency":"EUR","inStock":true}],
			"meta": {"total":41,"perPage":20,"currentPage":1,"lastPage":3,"nextPageUrl":"/products?page=2","previousPageUrl":null}
		}`))
	}, "")

	page, err := api.ListProducts(context.Background(), ProductFilter{CategoryIDs: []string{"c1", "c2"}})
	require.NoError(t, err)
	require.Len(t, page.List, 1)
	assert.Equal(t, "p1", page.List[0].ID)
	assert.Equal(t, 41, page.Meta.Total)
	assert.True(t, page.HasNext())
	assert.Nil(t, page.Meta.PreviousPageURL)
}

func TestStoreAPI_GetCart(t *testing.T) {
	api := newStoreAPI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-9", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[{"serverId":"ci1","productId":"p1","binding":{"color":"red"},"quantity":2,"unitPrice":"10.00"}]}`))
	}, "tok-9")

	items, err := api.GetCart(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "ci1", items[0].ServerID)
	assert.Equal(t, shoptypes.Binding{"color": "red"}, items[0].Binding)
	assert.Equal(t, 2, items[0].Quantity)
}

func TestStoreAPI_UpsertCartItem_Payload(t *testing.T) {
	var gotMethod, gotBody string
	api := newStoreAPI(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		w.WriteHeader(http.StatusNoContent)
	}, "tok")

	err := api.UpsertCartItem(context.Background(), UpsertCartItemRequest{
		ProductID: "p1",
		Binding:   shoptypes.Binding{"color": "red"},
		Quantity:  2,
	})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.JSONEq(t, `{"productId":"p1","binding":{"color":"red"},"quantity":2}`, gotBody)
}

func TestStoreAPI_ListAllFavorites_WalksPages(t *testing.T) {
	calls := 0
	api := newStoreAPI(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("page") {
		case "1":
			_, _ = w.Write([]byte(`{"list":[{"id":"f1","productId":"p1"}],"meta":{"total":2,"perPage":1,"currentPage":1,"lastPage":2,"nextPageUrl":"/favorites?page=2","previousPageUrl":null}}`))
		default:
			_, _ = w.Write([]byte(`{"list":[{"id":"f2","productId":"p2"}],"meta":{"total":2,"perPage":1,"currentPage":2,"lastPage":2,"nextPageUrl":null,"previousPageUrl":"/favorites?page=1"}}`))
		}
	}, "tok")

	favorites, err := api.ListAllFavorites(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	require.Len(t, favorites, 2)
	assert.Equal(t, "p1", favorites[0].ProductID)
	assert.Equal(t, "p2", favorites[1].ProductID)
}

func TestPlatformAPI_Health(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok","minClientVersion":"1.2.0"}`))
	}))
	t.Cleanup(server.Close)

	platform := NewPlatformAPI(gateway.NewClient(gateway.Config{BaseURL: server.URL}))
	health, err := platform.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "1.2.0", health.MinClientVersion)
}

func TestAPISurfaces_TokensDoNotCrossContaminate(t *testing.T) {
	var storeAuth, platformAuth string
	storeServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		storeAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	platformServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		platformAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	t.Cleanup(storeServer.Close)
	t.Cleanup(platformServer.Close)

	store := NewStoreAPI(gateway.NewClient(gateway.Config{BaseURL: storeServer.URL, Tokens: staticTokens("store-token")}))
	platform := NewPlatformAPI(gateway.NewClient(gateway.Config{BaseURL: platformServer.URL, Tokens: staticTokens("platform-token")}))

	require.NoError(t, store.Logout(context.Background()))
	_, err := platform.Health(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Bearer store-token", storeAuth)
	assert.Equal(t, "Bearer platform-token", platformAuth)
}
