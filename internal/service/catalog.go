// Package service contains the business rules of the price-compare backend.
//
// LAYERS:
//
//	Handler (HTTP)   → parses requests, writes responses
//	Service          → validates input, enforces rules, orchestrates
//	state.Store      → in-memory snapshot, persisted after every mutation
//	catalog.Client   → upstream product catalog
//
// Services accept plain Go values and return domain values or *apperror.AppError.
// They never see an http.Request, so every rule here is testable with a plain
// function call and a fake upstream.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/sakif/price-compare/internal/apperror"
	"github.com/sakif/price-compare/internal/catalog"
	"github.com/sakif/price-compare/internal/model"
	"github.com/sakif/price-compare/internal/offer"
	"github.com/sakif/price-compare/internal/state"
)

// CatalogSource is the upstream catalog as the service needs it.
// *catalog.Client implements it; tests pass a fake.
type CatalogSource interface {
	Products(ctx context.Context) ([]model.Product, error)
	Product(ctx context.Context, id string) (model.Product, error)
	Categories(ctx context.Context) ([]string, error)
	ProductsInCategory(ctx context.Context, category string) ([]model.Product, error)
}

// CatalogService serves products with synthesized offers.
//
// CACHE POLICY:
// The full product list is cached in the snapshot (and so survives restarts).
//   - ttl == 0: the cache is filled once and then served forever, until
//     Invalidate is called
//   - ttl > 0:  a cache older than ttl is refetched on the next ListAll
//
// A failed refetch leaves the old cache in place and returns an upstream error.
// Category listings and the category list always go upstream.
type CatalogService struct {
	source CatalogSource
	offers *offer.Synthesizer
	store  *state.Store
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time

	// fills collapses concurrent cache fills into one upstream request.
	fills singleflight.Group

	mu        sync.Mutex // guards fetchedAt and stale
	fetchedAt time.Time
	stale     bool
}

// NewCatalogService creates a CatalogService. A cache loaded from disk counts as
// fetched at construction time.
func NewCatalogService(source CatalogSource, offers *offer.Synthesizer, store *state.Store, ttl time.Duration, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		source:    source,
		offers:    offers,
		store:     store,
		ttl:       ttl,
		logger:    logger,
		now:       time.Now,
		fetchedAt: time.Now(),
	}
}

// ListAll returns a summary with the cheapest offer for every product.
func (s *CatalogService) ListAll(ctx context.Context) ([]model.ListingSummary, error) {
	products, cached := s.cachedProducts()
	if !cached || s.expired() {
		var err error
		products, err = s.fill(ctx)
		if err != nil {
			return nil, err
		}
	}
	return s.offers.Listings(products), nil
}

// Get returns one product with both offers.
// The cache is consulted first; a miss goes upstream without touching the cache.
func (s *CatalogService) Get(ctx context.Context, id string) (model.ProductDetail, error) {
	var (
		found model.Product
		ok    bool
	)
	s.store.Read(func(snap *model.Snapshot) {
		for _, p := range snap.Products {
			if p.ID.String() == id {
				found, ok = p, true
				return
			}
		}
	})
	if ok {
		return s.offers.Detail(found), nil
	}

	p, err := s.source.Product(ctx, id)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			return model.ProductDetail{}, apperror.NotFound("product", id)
		}
		s.logger.Error("failed to fetch product", slog.String("id", id), slog.String("error", err.Error()))
		return model.ProductDetail{}, apperror.Upstream("Failed to fetch product", err)
	}
	return s.offers.Detail(p), nil
}

// ListByCategory returns listings for one category, fetched fresh.
func (s *CatalogService) ListByCategory(ctx context.Context, category string) ([]model.ListingSummary, error) {
	products, err := s.source.ProductsInCategory(ctx, category)
	if err != nil {
		s.logger.Error("failed to fetch category",
			slog.String("category", category),
			slog.String("error", err.Error()),
		)
		return nil, apperror.Upstream("Failed to fetch products by category", err)
	}
	return s.offers.Listings(products), nil
}

// Categories returns the upstream category names, fetched fresh.
func (s *CatalogService) Categories(ctx context.Context) ([]string, error) {
	categories, err := s.source.Categories(ctx)
	if err != nil {
		s.logger.Error("failed to fetch categories", slog.String("error", err.Error()))
		return nil, apperror.Upstream("Failed to fetch categories", err)
	}
	return categories, nil
}

// Invalidate marks the cache stale; the next ListAll refetches it.
// The cached products stay available to Get until then.
func (s *CatalogService) Invalidate() {
	s.mu.Lock()
	s.stale = true
	s.mu.Unlock()
	s.logger.Info("product cache invalidated")
}

// cachedProducts copies the cached list out of the state lock.
// ok is false when the cache has never been filled.
func (s *CatalogService) cachedProducts() (products []model.Product, ok bool) {
	s.store.Read(func(snap *model.Snapshot) {
		if snap.Products == nil {
			return
		}
		products = make([]model.Product, len(snap.Products))
		copy(products, snap.Products)
		ok = true
	})
	return products, ok
}

func (s *CatalogService) expired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stale {
		return true
	}
	return s.ttl > 0 && s.now().Sub(s.fetchedAt) >= s.ttl
}

// fill fetches the full product list and replaces the cache.
//
// SINGLEFLIGHT:
// Ten requests hitting an empty cache at once would otherwise send ten
// identical upstream requests. The flight runs the fetch once and hands the
// same result to every waiting caller.
//
// The flight belongs to no single request. It runs on a context that ignores
// the starter's cancellation (the upstream client timeout still bounds it),
// and each caller stops waiting when its own ctx is done.
func (s *CatalogService) fill(ctx context.Context) ([]model.Product, error) {
	flightCtx := context.WithoutCancel(ctx)
	ch := s.fills.DoChan("products", func() (any, error) {
		products, err := s.source.Products(flightCtx)
		if err != nil {
			return nil, err
		}

		// The upstream call happens outside the state lock; only the swap is inside.
		_ = s.store.Update(flightCtx, func(snap *model.Snapshot) error {
			snap.Products = products
			return nil
		})

		s.mu.Lock()
		s.fetchedAt = s.now()
		s.stale = false
		s.mu.Unlock()

		s.logger.Info("product cache filled", slog.Int("products", len(products)))
		return products, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, apperror.Upstream("Failed to fetch products", ctx.Err())
	case res = <-ch:
	}
	if res.Err != nil {
		s.logger.Error("failed to fetch products", slog.String("error", res.Err.Error()))
		return nil, apperror.Upstream("Failed to fetch products", res.Err)
	}

	// The slice is shared by every caller of this flight and by the snapshot;
	// callers only read it.
	return res.Val.([]model.Product), nil
}
