package model

import "github.com/shopspring/decimal"

// CartItem is one line in a cart.
//
// A line is identified by the triple (product id, vendor, offer price). The same
// product bought from two vendors, or at two prices, is two lines.
type CartItem struct {
	Product    Product         `json:"product"` // snapshot taken when the line was added
	Quantity   int             `json:"quantity"`
	Vendor     Vendor          `json:"vendor"`
	OfferPrice decimal.Decimal `json:"offerPrice"`
}

// Matches reports whether the line has the given identity triple.
func (i CartItem) Matches(productID ProductID, vendor Vendor, offerPrice decimal.Decimal) bool {
	return i.Product.ID == productID && i.Vendor == vendor && i.OfferPrice.Equal(offerPrice)
}

// Cart holds a user's line items in insertion order.
type Cart struct {
	Items []CartItem `json:"items"`
}

// NewCart returns an empty cart whose items encode as [] rather than null.
func NewCart() *Cart {
	return &Cart{Items: []CartItem{}}
}

// Clone returns a deep-enough copy for handing out of the state lock:
// the item slice is copied, products are values already.
func (c *Cart) Clone() *Cart {
	if c == nil {
		return NewCart()
	}
	items := make([]CartItem, len(c.Items))
	copy(items, c.Items)
	return &Cart{Items: items}
}
