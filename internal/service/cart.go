package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/sakif/price-compare/internal/apperror"
	"github.com/sakif/price-compare/internal/model"
	"github.com/sakif/price-compare/internal/state"
)

// errNoCart aborts a removal on a user without a cart, so nothing is created or saved.
var errNoCart = errors.New("no cart")

// AddItemInput describes one POST /cart/add.
// Pointer fields distinguish "absent" from the zero value.
type AddItemInput struct {
	UserID     string
	Product    *model.Product
	Vendor     model.Vendor
	OfferPrice *decimal.Decimal
	Quantity   *int // nil means 1
}

// RemoveItemInput describes one POST /cart/remove.
// An empty Vendor or nil OfferPrice matches any value.
type RemoveItemInput struct {
	UserID     string
	ProductID  model.ProductID
	Vendor     model.Vendor
	OfferPrice *decimal.Decimal
}

// CartService manages one cart per user.
//
// Every mutation saves the snapshot before returning. The returned *model.Cart
// is a copy and safe to encode after the state lock is released.
type CartService struct {
	store  *state.Store
	logger *slog.Logger
}

// NewCartService creates a CartService.
func NewCartService(store *state.Store, logger *slog.Logger) *CartService {
	return &CartService{store: store, logger: logger}
}

// Get returns the user's cart, or an empty one. It never creates a cart.
func (s *CartService) Get(_ context.Context, userID string) *model.Cart {
	var cart *model.Cart
	s.store.Read(func(snap *model.Snapshot) {
		cart = snap.Carts[userID].Clone()
	})
	return cart
}

// Add puts a product line into the cart.
//
// MERGE RULE:
// A line is identified by (product id, vendor, offer price). Adding a matching
// line increases its quantity; anything else (same product at another vendor
// or another price) becomes a new line. New lines keep a copy of the product
// as it was when added.
func (s *CartService) Add(ctx context.Context, in AddItemInput) (*model.Cart, error) {
	if err := validateAdd(&in); err != nil {
		return nil, err
	}
	quantity := 1
	if in.Quantity != nil {
		quantity = *in.Quantity
	}

	var out *model.Cart
	err := s.store.Update(ctx, func(snap *model.Snapshot) error {
		cart, ok := snap.Carts[in.UserID]
		if !ok || cart == nil {
			cart = model.NewCart()
			snap.Carts[in.UserID] = cart
		}

		merged := false
		for i := range cart.Items {
			if cart.Items[i].Matches(in.Product.ID, in.Vendor, *in.OfferPrice) {
				if cart.Items[i].Quantity > math.MaxInt-quantity {
					return apperror.ValidationFailed("quantity", "quantity is too large")
				}
				cart.Items[i].Quantity += quantity
				merged = true
				break
			}
		}
		if !merged {
			cart.Items = append(cart.Items, model.CartItem{
				Product:    *in.Product,
				Quantity:   quantity,
				Vendor:     in.Vendor,
				OfferPrice: *in.OfferPrice,
			})
		}

		out = cart.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("cart item added",
		slog.String("user_id", in.UserID),
		slog.String("product_id", in.Product.ID.String()),
		slog.String("vendor", string(in.Vendor)),
		slog.Int("quantity", quantity),
	)
	return out, nil
}

func validateAdd(in *AddItemInput) error {
	in.UserID = strings.TrimSpace(in.UserID)
	if in.UserID == "" || in.Product == nil || in.Product.ID == "" || in.Vendor == "" || in.OfferPrice == nil {
		return apperror.ValidationFailed("", "Missing userId, product, vendor or offerPrice")
	}
	if !in.Vendor.Valid() {
		return apperror.ValidationFailed("vendor", fmt.Sprintf("unknown vendor %q", in.Vendor))
	}
	if in.OfferPrice.IsNegative() {
		return apperror.ValidationFailed("offerPrice", "offerPrice must not be negative")
	}
	if in.Quantity != nil && *in.Quantity <= 0 {
		return apperror.ValidationFailed("quantity", "quantity must be a positive integer")
	}
	return nil
}

// Remove deletes every line for the product, narrowed by vendor and/or offer
// price when given. A user without a cart gets an empty cart back and no cart
// is created.
func (s *CartService) Remove(ctx context.Context, in RemoveItemInput) (*model.Cart, error) {
	in.UserID = strings.TrimSpace(in.UserID)
	if in.UserID == "" || in.ProductID == "" {
		return nil, apperror.ValidationFailed("", "Missing userId or productId")
	}

	var (
		out     *model.Cart
		removed int
	)
	err := s.store.Update(ctx, func(snap *model.Snapshot) error {
		cart, ok := snap.Carts[in.UserID]
		if !ok || cart == nil {
			return errNoCart
		}

		kept := cart.Items[:0]
		for _, item := range cart.Items {
			if removes(item, in) {
				removed++
				continue
			}
			kept = append(kept, item)
		}
		cart.Items = kept

		out = cart.Clone()
		return nil
	})
	if errors.Is(err, errNoCart) {
		return model.NewCart(), nil
	}
	if err != nil {
		return nil, err
	}

	s.logger.Debug("cart items removed",
		slog.String("user_id", in.UserID),
		slog.String("product_id", in.ProductID.String()),
		slog.Int("removed", removed),
	)
	return out, nil
}

func removes(item model.CartItem, in RemoveItemInput) bool {
	if item.Product.ID != in.ProductID {
		return false
	}
	if in.Vendor != "" && item.Vendor != in.Vendor {
		return false
	}
	if in.OfferPrice != nil && !item.OfferPrice.Equal(*in.OfferPrice) {
		return false
	}
	return true
}

// Clear replaces the user's cart with an empty one, creating it if needed.
func (s *CartService) Clear(ctx context.Context, userID string) (*model.Cart, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperror.ValidationFailed("userId", "Missing userId")
	}

	err := s.store.Update(ctx, func(snap *model.Snapshot) error {
		snap.Carts[userID] = model.NewCart()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("cart cleared", slog.String("user_id", userID))
	return model.NewCart(), nil
}
