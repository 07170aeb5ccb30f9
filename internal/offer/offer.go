// Package offer synthesizes per-vendor price quotes for catalog products.
//
// DETERMINISM:
// An offer price is a pure function of (product price, product id, vendor).
// There is no randomness and no clock involved, so two requests for the same
// product always agree. That matters because the offer price later becomes
// part of a cart line's identity: if GET /products/1 and POST /cart/add
// disagreed about the price, merging lines would silently break.
package offer

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/sakif/price-compare/internal/model"
)

// vendorRule describes how one vendor prices and ships a product.
//
// price = round(base * (Base + (idNum mod Modulus) * Step), 2)
type vendorRule struct {
	vendor       model.Vendor
	base         decimal.Decimal
	step         decimal.Decimal
	modulus      float64
	freeAbove    decimal.Decimal // shipping is free when the price is strictly greater
	shippingFee  string
	condition    string
	sellerRating float64
}

var rules = []vendorRule{
	{
		vendor:       model.VendorAmazon,
		base:         decimal.RequireFromString("0.97"),
		step:         decimal.RequireFromString("0.003"),
		modulus:      5,
		freeAbove:    decimal.NewFromInt(50),
		shippingFee:  "$4.99",
		condition:    "new",
		sellerRating: 4.6,
	},
	{
		vendor:       model.VendorEbay,
		base:         decimal.RequireFromString("0.92"),
		step:         decimal.RequireFromString("0.004"),
		modulus:      7,
		freeAbove:    decimal.NewFromInt(40),
		shippingFee:  "$5.99",
		condition:    "used - like new",
		sellerRating: 4.2,
	},
}

// FreeShipping is the shipping label used when the offer clears the vendor threshold.
const FreeShipping = "Free"

// Synthesizer builds offers. It only needs the catalog base URL, used to
// build vendor links.
type Synthesizer struct {
	baseURL string
}

// NewSynthesizer creates a Synthesizer for the given catalog base URL.
func NewSynthesizer(baseURL string) *Synthesizer {
	return &Synthesizer{baseURL: strings.TrimRight(baseURL, "/")}
}

// Synthesize returns exactly one offer per vendor, amazon first.
func (s *Synthesizer) Synthesize(p model.Product) []model.Offer {
	idNum := p.ID.Float()

	offers := make([]model.Offer, 0, len(rules))
	for _, r := range rules {
		price := p.Price.Mul(r.modifier(idNum)).Round(2)

		shipping := r.shippingFee
		if price.GreaterThan(r.freeAbove) {
			shipping = FreeShipping
		}

		offers = append(offers, model.Offer{
			Vendor:       r.vendor,
			Price:        price,
			VendorURL:    fmt.Sprintf("%s/products/%s?vendor=%s", s.baseURL, p.ID, r.vendor),
			Shipping:     shipping,
			Condition:    r.condition,
			SellerRating: r.sellerRating,
		})
	}
	return offers
}

// Listing condenses a product into a catalog summary with its cheapest offer.
func (s *Synthesizer) Listing(p model.Product) model.ListingSummary {
	offers := s.Synthesize(p)
	return model.ListingSummary{
		ID:            p.ID,
		Title:         p.Title,
		Image:         p.Image,
		Category:      p.Category,
		BasePrice:     p.Price,
		CheapestOffer: Cheapest(offers),
		OfferCount:    len(offers),
	}
}

// Listings maps Listing over a product slice. The result is never nil.
func (s *Synthesizer) Listings(products []model.Product) []model.ListingSummary {
	out := make([]model.ListingSummary, 0, len(products))
	for _, p := range products {
		out = append(out, s.Listing(p))
	}
	return out
}

// Detail returns the product with its offers attached.
func (s *Synthesizer) Detail(p model.Product) model.ProductDetail {
	return model.ProductDetail{
		Product: p,
		Offers:  s.Synthesize(p),
	}
}

// Cheapest returns the lowest offer price, or zero for no offers.
func Cheapest(offers []model.Offer) decimal.Decimal {
	if len(offers) == 0 {
		return decimal.Zero
	}
	low := offers[0].Price
	for _, o := range offers[1:] {
		if o.Price.LessThan(low) {
			low = o.Price
		}
	}
	return low
}

func (r vendorRule) modifier(idNum float64) decimal.Decimal {
	// math.Mod keeps the sign of idNum, same as the % operator on numbers.
	rem := math.Mod(idNum, r.modulus)
	if math.IsNaN(rem) {
		rem = 0
	}
	return r.base.Add(decimal.NewFromFloat(rem).Mul(r.step))
}
