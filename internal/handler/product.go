package handler

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/sakif/price-compare/internal/service"
)

// ProductHandler serves the catalog with synthesized offers.
type ProductHandler struct {
	catalog *service.CatalogService
	logger  *slog.Logger
}

// NewProductHandler creates a ProductHandler.
func NewProductHandler(catalog *service.CatalogService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{catalog: catalog, logger: logger}
}

// HandleList returns every product as a listing summary.
//
// HTTP: GET /products
//
//	[{"id":1,"title":"...","image":"...","category":"...","basePrice":109.95,
//	  "cheapestOffer":101.59,"offerCount":2}, ...]
func (h *ProductHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	listings, err := h.catalog.ListAll(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, listings)
}

// HandleGet returns one product with both vendor offers.
//
// HTTP: GET /products/{id}
func (h *ProductHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	detail, err := h.catalog.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// HandleCategories returns the category names.
//
// HTTP: GET /categories
func (h *ProductHandler) HandleCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.Categories(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

// HandleListByCategory returns listing summaries for one category.
//
// HTTP: GET /products/category/{category}
//
// PATH ESCAPING:
// When the request path carries escapes the router matches on the raw path, so
// "men's%20clothing" can arrive still escaped. Unescaping here is a no-op for
// an already decoded value without '%'.
func (h *ProductHandler) HandleListByCategory(w http.ResponseWriter, r *http.Request) {
	category := r.PathValue("category")
	if decoded, err := url.PathUnescape(category); err == nil {
		category = decoded
	}

	listings, err := h.catalog.ListByCategory(r.Context(), category)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, listings)
}

// HandleRefresh drops the product cache; the next GET /products refetches it.
//
// HTTP: POST /catalog/refresh
func (h *ProductHandler) HandleRefresh(w http.ResponseWriter, _ *http.Request) {
	h.catalog.Invalidate()
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
