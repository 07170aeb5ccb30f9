package handler

import (
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/sakif/price-compare/internal/model"
	"github.com/sakif/price-compare/internal/service"
)

// CartHandler serves per-user carts.
//
// The user id travels in the path (GET) or the body (POST), as the mobile
// client sends it. There is no ownership check: carts are keyed by an id the
// client already holds.
type CartHandler struct {
	carts  *service.CartService
	logger *slog.Logger
}

// NewCartHandler creates a CartHandler.
func NewCartHandler(carts *service.CartService, logger *slog.Logger) *CartHandler {
	return &CartHandler{carts: carts, logger: logger}
}

// HandleGet returns the user's cart, {"items": []} when there is none.
//
// HTTP: GET /cart/{userId}
func (h *CartHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.carts.Get(r.Context(), r.PathValue("userId")))
}

// addItemRequest uses pointers where "missing" and "zero" mean different
// things: a missing quantity defaults to 1, a zero quantity is rejected.
type addItemRequest struct {
	UserID     string           `json:"userId"`
	Product    *model.Product   `json:"product"`
	Quantity   *int             `json:"quantity"`
	Vendor     model.Vendor     `json:"vendor"`
	OfferPrice *decimal.Decimal `json:"offerPrice"`
}

// HandleAdd adds a line or bumps the quantity of a matching one.
//
// HTTP: POST /cart/add
// BODY: {"userId": "...", "product": {...}, "quantity": 1, "vendor": "amazon", "offerPrice": 106.98}
func (h *CartHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	cart, err := h.carts.Add(r.Context(), service.AddItemInput{
		UserID:     req.UserID,
		Product:    req.Product,
		Vendor:     req.Vendor,
		OfferPrice: req.OfferPrice,
		Quantity:   req.Quantity,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

type removeItemRequest struct {
	UserID     string           `json:"userId"`
	ProductID  model.ProductID  `json:"productId"`
	Vendor     model.Vendor     `json:"vendor"`
	OfferPrice *decimal.Decimal `json:"offerPrice"`
}

// HandleRemove drops matching lines.
//
// HTTP: POST /cart/remove
// BODY: {"userId": "...", "productId": 1, "vendor": "ebay", "offerPrice": 101.59}
// vendor and offerPrice are optional filters.
func (h *CartHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	var req removeItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	cart, err := h.carts.Remove(r.Context(), service.RemoveItemInput{
		UserID:     req.UserID,
		ProductID:  req.ProductID,
		Vendor:     req.Vendor,
		OfferPrice: req.OfferPrice,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

type clearCartRequest struct {
	UserID string `json:"userId"`
}

// HandleClear empties the user's cart.
//
// HTTP: POST /cart/clear
// BODY: {"userId": "..."}
func (h *CartHandler) HandleClear(w http.ResponseWriter, r *http.Request) {
	var req clearCartRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	cart, err := h.carts.Clear(r.Context(), req.UserID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}
