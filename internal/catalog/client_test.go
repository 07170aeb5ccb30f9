package catalog

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newUpstream starts a fake catalog that serves the given routes.
// Any other path answers 404.
func newUpstream(t *testing.T, routes map[string]func(w http.ResponseWriter, r *http.Request)) (*Client, *httptest.Server) {
	t.Helper()
	mux := http.NewServeMux()
	for path, h := range routes {
		mux.HandleFunc(path, h)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", 5*time.Second, slog.New(slog.NewTextHandler(io.Discard, nil))), srv
}

func body(s string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, s)
	}
}

func TestNewClient_TrimsTrailingSlash(t *testing.T) {
	c, srv := newUpstream(t, nil)
	assert.Equal(t, srv.URL, c.BaseURL())
}

func TestNewClient_DefaultBaseURL(t *testing.T) {
	c := NewClient("", time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Equal(t, DefaultBaseURL, c.BaseURL())
}

func TestProducts(t *testing.T) {
	c, _ := newUpstream(t, map[string]func(http.ResponseWriter, *http.Request){
		"/products": body(`[{"id":1,"title":"Backpack","price":109.95,"category":"men's clothing"},{"id":2,"title":"Shirt","price":22.3}]`),
	})

	got, err := c.Products(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].ID.String())
	assert.True(t, got[0].Price.Equal(decimal.RequireFromString("109.95")))
}

func TestProducts_UpstreamError(t *testing.T) {
	c, _ := newUpstream(t, map[string]func(http.ResponseWriter, *http.Request){
		"/products": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		},
	})

	_, err := c.Products(context.Background())
	assert.Error(t, err)
}

func TestProducts_InvalidJSON(t *testing.T) {
	c, _ := newUpstream(t, map[string]func(http.ResponseWriter, *http.Request){
		"/products": body(`<html>`),
	})

	_, err := c.Products(context.Background())
	assert.Error(t, err)
}

func TestProduct(t *testing.T) {
	tests := []struct {
		name    string
		handler func(http.ResponseWriter, *http.Request)
		wantErr error
		wantID  string
	}{
		{name: "found", handler: body(`{"id":7,"title":"Ring","price":9.99}`), wantID: "7"},
		{name: "empty body", handler: body(``), wantErr: ErrProductNotFound},
		{name: "null body", handler: body(`null`), wantErr: ErrProductNotFound},
		{name: "404", handler: http.NotFound, wantErr: ErrProductNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newUpstream(t, map[string]func(http.ResponseWriter, *http.Request){
				"/products/7": tt.handler,
			})

			got, err := c.Product(context.Background(), "7")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, got.ID.String())
		})
	}
}

func TestProduct_ServerErrorIsNotNotFound(t *testing.T) {
	c, _ := newUpstream(t, map[string]func(http.ResponseWriter, *http.Request){
		"/products/7": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
	})

	_, err := c.Product(context.Background(), "7")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrProductNotFound)
}

func TestCategories(t *testing.T) {
	c, _ := newUpstream(t, map[string]func(http.ResponseWriter, *http.Request){
		"/products/categories": body(`["electronics","jewelery"]`),
	})

	got, err := c.Categories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"electronics", "jewelery"}, got)
}

func TestProductsInCategory_EscapesCategory(t *testing.T) {
	var gotPath string
	c, _ := newUpstream(t, map[string]func(http.ResponseWriter, *http.Request){
		"/products/category/": func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.EscapedPath()
			io.WriteString(w, `[{"id":1,"title":"Backpack","price":109.95}]`)
		},
	})

	got, err := c.ProductsInCategory(context.Background(), "men's clothing")
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, "/products/category/men%27s%20clothing", gotPath)
}
