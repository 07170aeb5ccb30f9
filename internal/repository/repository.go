// Package repository defines how the application state is made durable.
//
// The whole state (carts, cached products, users) is one document, the
// Snapshot. Backends only know how to load and save that document; all the
// business rules live above them.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sakif/price-compare/internal/model"
)

// ErrNoSnapshot is returned by Load when nothing has been saved yet.
var ErrNoSnapshot = errors.New("repository: no snapshot")

// SnapshotRepository loads and saves the durable snapshot.
type SnapshotRepository interface {
	Load(ctx context.Context) (*model.Snapshot, error)
	Save(ctx context.Context, snap *model.Snapshot) error
	Close() error
}

// EncodeSnapshot serializes a snapshot the way every backend stores it:
// indented JSON with top-level "carts", "products" and "users".
func EncodeSnapshot(snap *model.Snapshot) ([]byte, error) {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("repository: encoding snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot parses a stored snapshot.
//
// Each top-level field is decoded on its own. A field that is missing or
// malformed falls back to empty and its name is reported in dropped, so one bad
// field never costs the others. Only a document that isn't a JSON object at all
// is an error.
func DecodeSnapshot(data []byte) (snap *model.Snapshot, dropped []string, err error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, nil, fmt.Errorf("repository: decoding snapshot: %w", err)
	}

	snap = model.NewSnapshot()

	if raw, ok := fields["carts"]; ok {
		var carts map[string]*model.Cart
		if err := json.Unmarshal(raw, &carts); err != nil {
			dropped = append(dropped, "carts")
		} else if carts != nil {
			snap.Carts = carts
		}
	}

	if raw, ok := fields["products"]; ok {
		var products []model.Product
		if err := json.Unmarshal(raw, &products); err != nil {
			dropped = append(dropped, "products")
		} else {
			snap.Products = products
		}
	}

	if raw, ok := fields["users"]; ok {
		var users []model.User
		if err := json.Unmarshal(raw, &users); err != nil {
			dropped = append(dropped, "users")
		} else if users != nil {
			snap.Users = users
		}
	}

	snap.Normalize()
	return snap, dropped, nil
}
