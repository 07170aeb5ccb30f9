// Package model defines the data structures used throughout the application.
// Structs here are plain data; behaviour that needs collaborators lives in the
// offer and service packages.
//
// PRICES AS DECIMALS:
// Every money amount is a decimal.Decimal, never a float64. Offer prices are part
// of a cart line's identity, so two requests for the same product must agree to
// the cent. Binary floats can't represent 0.1 exactly, decimals can.
package model

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

func init() {
	// Mobile clients expect prices as JSON numbers (97.5), not strings ("97.5").
	decimal.MarshalJSONWithoutQuotes = true
}

// ProductID is the upstream catalog identifier.
//
// The catalog sends numeric ids (1, 2, 3...), but clients sometimes echo them back
// as strings ("1"). We store the string form so both compare equal, and encode
// integral ids as bare JSON numbers so the wire format matches the upstream one.
type ProductID string

// UnmarshalJSON accepts a JSON number, a JSON string or null.
func (id *ProductID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || string(data) == "null":
		*id = ""
		return nil
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ProductID(strings.TrimSpace(s))
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*id = ProductID(n.String())
		return nil
	}
}

// MarshalJSON writes ids that are valid JSON numbers ("42", "1.5") as bare
// numbers and everything else as strings.
func (id ProductID) MarshalJSON() ([]byte, error) {
	if isJSONNumber(string(id)) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// isJSONNumber reports whether s is a number literal in JSON grammar.
// strconv.ParseFloat is too lenient here: it accepts "Inf", "0x1p3" and "1_000".
func isJSONNumber(s string) bool {
	if s == "" || (s[0] != '-' && (s[0] < '0' || s[0] > '9')) {
		return false
	}
	var n json.Number
	return json.Unmarshal([]byte(s), &n) == nil
}

// Float coerces the id to a number. Non-numeric ids coerce to 0.
func (id ProductID) Float() float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(string(id)), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func (id ProductID) String() string { return string(id) }

// Rating is the upstream customer rating block. We carry it through untouched.
type Rating struct {
	Rate  float64 `json:"rate"`
	Count int     `json:"count"`
}

// Product is a catalog record as served by the upstream API.
type Product struct {
	ID          ProductID       `json:"id"`
	Title       string          `json:"title"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Image       string          `json:"image"`
	Rating      *Rating         `json:"rating,omitempty"`
}

// UnmarshalJSON decodes a product, coercing a missing or non-numeric price to 0
// instead of failing. Products arrive both from upstream and from client cart
// requests, and neither should be rejected just because the price is odd.
func (p *Product) UnmarshalJSON(data []byte) error {
	type alias Product
	aux := struct {
		*alias
		Price json.RawMessage `json:"price"`
	}{alias: (*alias)(p)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	p.Price = coercePrice(aux.Price)
	return nil
}

func coercePrice(raw json.RawMessage) decimal.Decimal {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return decimal.Zero
	}

	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return decimal.Zero
		}
		text = strings.TrimSpace(text)
	}

	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ListingSummary is the condensed product view used in catalog browsing.
type ListingSummary struct {
	ID            ProductID       `json:"id"`
	Title         string          `json:"title"`
	Image         string          `json:"image"`
	Category      string          `json:"category"`
	BasePrice     decimal.Decimal `json:"basePrice"`
	CheapestOffer decimal.Decimal `json:"cheapestOffer"`
	OfferCount    int             `json:"offerCount"`
}

// ProductDetail is a product plus its synthesized vendor offers.
type ProductDetail struct {
	Product
	Offers []Offer `json:"offers"`
}
