package model

import "github.com/shopspring/decimal"

// Vendor identifies a marketplace that sells catalog products.
type Vendor string

const (
	VendorAmazon Vendor = "amazon"
	VendorEbay   Vendor = "ebay"
)

// Vendors lists every vendor an offer can come from, in display order.
var Vendors = []Vendor{VendorAmazon, VendorEbay}

// Valid reports whether v is one of the known vendors.
func (v Vendor) Valid() bool {
	for _, known := range Vendors {
		if v == known {
			return true
		}
	}
	return false
}

// Offer is a vendor-specific price quote for a product.
// Offers are derived on demand and never stored.
type Offer struct {
	Vendor       Vendor          `json:"vendor"`
	Price        decimal.Decimal `json:"price"`
	VendorURL    string          `json:"vendorUrl"`
	Shipping     string          `json:"shipping"`
	Condition    string          `json:"condition"`
	SellerRating float64         `json:"sellerRating"`
}
