package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staticTokens is a TokenSource returning a fixed token.
type staticTokens string

func (s staticTokens) Token() string { return string(s) }

func newTestClient(t *testing.T, handler http.HandlerFunc, tokens TokenSource) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := NewClient(Config{BaseURL: server.URL, Timeout: 5 * time.Second, Tokens: tokens})
	return client, server
}

func TestClient_Do_DecodesJSON(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"p1","name":"Boots"}`))
	}, nil)

	var out struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	err := client.Do(context.Background(), Descriptor{Method: "GET", Path: "/products/p1"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "p1", out.ID)
	assert.Equal(t, "Boots", out.Name)
}

func TestClient_Do_AttachesBearerToken(t *testing.T) {
	var gotAuth string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}, staticTokens("tok-123"))

	err := client.Do(context.Background(), Descriptor{Method: "DELETE", Path: "/cart/1", AuthRequired: true}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-123", gotAuth)
}

func TestClient_Do_MissingTokenDoesNotFailLocally(t *testing.T) {
	var gotAuth string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}, staticTokens(""))

	// AuthRequired endpoints still go out without a token; the server decides.
	err := client.Do(context.Background(), Descriptor{Method: "GET", Path: "/profile", AuthRequired: true}, nil)
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestClient_Do_NoContent(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}, nil)

	out := map[string]string{"untouched": "yes"}
	err := client.Do(context.Background(), Descriptor{Method: "POST", Path: "/logout"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "yes", out["untouched"])
}

func TestClient_Do_NonJSONSuccessBody(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("pong"))
	}, nil)

	var out string
	err := client.Do(context.Background(), Descriptor{Method: "GET", Path: "/ping"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "pong", out)
}

func TestClient_Do_ServerErrorMessagePreferred(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"quantity exceeds stock","status":422}`))
	}, nil)

	err := client.Do(context.Background(), Descriptor{Method: "POST", Path: "/cart"}, nil)
	require.Error(t, err)

	gerr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnprocessableEntity, gerr.Status)
	assert.Equal(t, KindClient, gerr.Kind)
	assert.Equal(t, "quantity exceeds stock", gerr.Message)
	assert.False(t, gerr.Retryable())
}

func TestClient_Do_GenericMessageFallback(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}, nil)

	err := client.Do(context.Background(), Descriptor{Method: "GET", Path: "/products/missing"}, nil)
	gerr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, "resource not found", gerr.Message)
	assert.Equal(t, KindClient, gerr.Kind)
}

func TestClient_Do_ErrorKinds(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		kind      ErrorKind
		retryable bool
	}{
		{"bad request", http.StatusBadRequest, KindClient, false},
		{"unauthorized", http.StatusUnauthorized, KindUnauthorized, false},
		{"rate limited", http.StatusTooManyRequests, KindTransient, true},
		{"server error", http.StatusInternalServerError, KindTransient, true},
		{"bad gateway", http.StatusBadGateway, KindTransient, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}, nil)

			err := client.Do(context.Background(), Descriptor{Method: "GET", Path: "/x"}, nil)
			gerr, ok := AsError(err)
			require.True(t, ok)
			assert.Equal(t, tt.kind, gerr.Kind)
			assert.Equal(t, tt.retryable, gerr.Retryable())
		})
	}
}

func TestClient_Do_NetworkFailureIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	client := NewClient(Config{BaseURL: server.URL, Timeout: time.Second})
	server.Close()

	err := client.Do(context.Background(), Descriptor{Method: "GET", Path: "/x"}, nil)
	gerr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindTransient, gerr.Kind)
	assert.Zero(t, gerr.Status)
	assert.True(t, gerr.Retryable())
}

func TestClient_Do_ParseErrorOnMalformedSuccess(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{not json`))
	}, nil)

	var out map[string]any
	err := client.Do(context.Background(), Descriptor{Method: "GET", Path: "/x"}, &out)
	gerr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindParse, gerr.Kind)
	assert.False(t, gerr.Retryable())
}

func TestClient_Do_UnauthorizedCallbackFiresBeforeReturn(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}, staticTokens("expired"))

	fired := false
	client.SetUnauthorizedCallback(func() { fired = true })

	err := client.Do(context.Background(), Descriptor{Method: "GET", Path: "/profile"}, nil)
	require.Error(t, err)
	assert.True(t, fired)
	assert.True(t, IsUnauthorized(err))
}

func TestClient_Do_UnauthorizedCallbackFiresOncePerResponse(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}, nil)

	count := 0
	client.SetUnauthorizedCallback(func() { count++ })

	_ = client.Do(context.Background(), Descriptor{Method: "GET", Path: "/a"}, nil)
	_ = client.Do(context.Background(), Descriptor{Method: "GET", Path: "/b"}, nil)
	assert.Equal(t, 2, count)
}

func TestClient_Do_QueryParamsReachServer(t *testing.T) {
	var gotQuery map[string][]string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.WriteHeader(http.StatusNoContent)
	}, nil)

	err := client.Do(context.Background(), Descriptor{
		Method: "GET",
		Path:   "/products",
		Query:  Query{"categoryIds": []string{"a", "b"}, "page": 1, "empty": nil},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, gotQuery["categoryIds"])
	assert.Equal(t, []string{"1"}, gotQuery["page"])
	_, present := gotQuery["empty"]
	assert.False(t, present)
}

func TestClient_Do_RequestIDAttached(t *testing.T) {
	var gotID string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotID = r.Header.Get("X-Request-ID")
		w.WriteHeader(http.StatusNoContent)
	}, nil)

	err := client.Do(context.Background(), Descriptor{Method: "GET", Path: "/x"}, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, gotID)
}
