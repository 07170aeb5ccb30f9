// Package catalog talks to the upstream product catalog (a Fake Store style API).
//
// UPSTREAM ENDPOINTS:
//
//	GET {base}/products                      → all products
//	GET {base}/products/{id}                 → one product (404 or an empty body if unknown)
//	GET {base}/products/categories           → list of category names
//	GET {base}/products/category/{category}  → products in one category
//
// The client is deliberately thin: it fetches and decodes. Caching lives one
// layer up in service.CatalogService.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sakif/price-compare/internal/model"
)

// ErrProductNotFound is returned by Product when the upstream doesn't know the id.
var ErrProductNotFound = errors.New("catalog: product not found")

// DefaultBaseURL is used when no upstream is configured.
const DefaultBaseURL = "https://fakestoreapi.com"

// maxBodyBytes caps how much of an upstream response we are willing to read.
const maxBodyBytes = 8 << 20

// Client fetches products from the upstream catalog.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a catalog client.
//
// TRACED TRANSPORT:
// otelhttp.NewTransport wraps the pooled transport so every upstream call
// becomes a client span and carries the caller's trace context. Without a
// configured tracer provider it costs next to nothing.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     90 * time.Second,
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(transport),
			Timeout:   timeout,
		},
		logger: logger,
	}
}

// BaseURL returns the upstream base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Products fetches the full product list.
func (c *Client) Products(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	if _, err := c.getJSON(ctx, "/products", &products); err != nil {
		return nil, err
	}
	if products == nil {
		products = []model.Product{}
	}
	return products, nil
}

// Product fetches a single product.
//
// The Fake Store API answers unknown ids with 200 and an empty body (or null),
// other catalogs use 404. Both come back as ErrProductNotFound.
func (c *Client) Product(ctx context.Context, id string) (model.Product, error) {
	var p *model.Product
	status, err := c.getJSON(ctx, "/products/"+url.PathEscape(id), &p)
	if status == http.StatusNotFound {
		return model.Product{}, ErrProductNotFound
	}
	if err != nil {
		return model.Product{}, err
	}
	if p == nil {
		return model.Product{}, ErrProductNotFound
	}
	return *p, nil
}

// Categories fetches the category names.
func (c *Client) Categories(ctx context.Context) ([]string, error) {
	var categories []string
	if _, err := c.getJSON(ctx, "/products/categories", &categories); err != nil {
		return nil, err
	}
	if categories == nil {
		categories = []string{}
	}
	return categories, nil
}

// ProductsInCategory fetches the products of one category.
// The category is path-escaped, so "men's clothing" is sent as "men's%20clothing".
func (c *Client) ProductsInCategory(ctx context.Context, category string) ([]model.Product, error) {
	var products []model.Product
	if _, err := c.getJSON(ctx, "/products/category/"+url.PathEscape(category), &products); err != nil {
		return nil, err
	}
	if products == nil {
		products = []model.Product{}
	}
	return products, nil
}

// getJSON performs a GET and decodes a 2xx body into dst.
// It returns the status code even on error so callers can react to a 404.
// An empty 2xx body leaves dst untouched.
func (c *Client) getJSON(ctx context.Context, path string, dst any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return 0, fmt.Errorf("catalog: building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("catalog: GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("upstream request",
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("catalog: reading %s: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, fmt.Errorf("catalog: GET %s: unexpected status %d", path, resp.StatusCode)
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return resp.StatusCode, nil
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return resp.StatusCode, fmt.Errorf("catalog: decoding %s: %w", path, err)
	}
	return resp.StatusCode, nil
}
