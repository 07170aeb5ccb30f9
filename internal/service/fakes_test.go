package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/sakif/price-compare/internal/catalog"
	"github.com/sakif/price-compare/internal/model"
	"github.com/sakif/price-compare/internal/repository"
	"github.com/sakif/price-compare/internal/state"
)

// =========================================================================
// FAKES
// =========================================================================
//
// memRepo stands in for the JSON file / sqlite backends. saveErr simulates a
// full disk; saves counts how often the services persisted.
type memRepo struct {
	mu      sync.Mutex
	stored  *model.Snapshot
	saves   int
	saveErr error
}

func (m *memRepo) Load(context.Context) (*model.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stored == nil {
		return nil, repository.ErrNoSnapshot
	}
	return m.stored, nil
}

func (m *memRepo) Save(_ context.Context, snap *model.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.stored = snap
	return nil
}

func (m *memRepo) Close() error { return nil }

func (m *memRepo) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func (m *memRepo) failSaves(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveErr = err
}

// fakeCatalog is an in-memory upstream. Set err to make every call fail.
// A non-nil gate holds Products until it is closed or the caller's ctx ends,
// like a slow upstream would.
type fakeCatalog struct {
	mu         sync.Mutex
	products   []model.Product
	categories []string
	err        error
	gate       chan struct{}

	productsCalls atomic.Int32
	productCalls  atomic.Int32
}

func (f *fakeCatalog) Products(ctx context.Context) ([]model.Product, error) {
	f.productsCalls.Add(1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]model.Product, len(f.products))
	copy(out, f.products)
	return out, nil
}

func (f *fakeCatalog) Product(_ context.Context, id string) (model.Product, error) {
	f.productCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return model.Product{}, f.err
	}
	for _, p := range f.products {
		if p.ID.String() == id {
			return p, nil
		}
	}
	return model.Product{}, catalog.ErrProductNotFound
}

func (f *fakeCatalog) Categories(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.categories, nil
}

func (f *fakeCatalog) ProductsInCategory(_ context.Context, category string) ([]model.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := []model.Product{}
	for _, p := range f.products {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeCatalog) setProducts(ps []model.Product) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.products = ps
}

func (f *fakeCatalog) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

var errUpstreamDown = errors.New("connection refused")

// =========================================================================
// HELPERS
// =========================================================================

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestStore opens a state.Store over an empty memRepo.
func newTestStore(t *testing.T) (*state.Store, *memRepo) {
	t.Helper()
	repo := &memRepo{}
	return state.Open(context.Background(), repo, discardLogger()), repo
}
