// Package server wires the price-compare API together and runs it.
//
// COMPOSITION ROOT:
// New is the only place that knows every concrete type:
//
//	config → repository (jsonfile | sqlite) → state.Store
//	       → catalog.Client → offer.Synthesizer → CatalogService
//	       → PasswordService (+ TokenService)   → AccountService
//	                                            → CartService
//	services → handlers → chi routes
//
// Every other package receives its dependencies instead of building them.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sakif/price-compare/internal/auth"
	"github.com/sakif/price-compare/internal/catalog"
	"github.com/sakif/price-compare/internal/config"
	"github.com/sakif/price-compare/internal/handler"
	"github.com/sakif/price-compare/internal/middleware"
	"github.com/sakif/price-compare/internal/offer"
	"github.com/sakif/price-compare/internal/repository"
	"github.com/sakif/price-compare/internal/repository/jsonfile"
	sqliteRepo "github.com/sakif/price-compare/internal/repository/sqlite"
	"github.com/sakif/price-compare/internal/service"
	"github.com/sakif/price-compare/internal/state"
)

const serviceName = "price-compare"

// Server owns the router and the state store (closed on shutdown).
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	store  *state.Store
}

// New builds the whole dependency graph from cfg.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	repo, err := openRepository(cfg, logger)
	if err != nil {
		return nil, err
	}

	var tokens *auth.TokenService
	if cfg.JWTSecret != "" {
		tokens, err = auth.NewTokenService(cfg.JWTSecret)
		if err != nil {
			repo.Close()
			return nil, fmt.Errorf("configuring session tokens: %w", err)
		}
	} else {
		logger.Info("JWT_SECRET not set, session tokens disabled")
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		store:  state.Open(ctx, repo, logger),
	}
	s.setupRoutes(catalog.NewClient(cfg.FakeStoreAPI, cfg.UpstreamTimeout, logger), tokens)
	return s, nil
}

// openRepository picks the snapshot backend and makes sure its directory exists.
func openRepository(cfg config.Config, logger *slog.Logger) (repository.SnapshotRepository, error) {
	path := cfg.StorePath()
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory %s: %w", dir, err)
		}
	}

	switch cfg.StoreDriver {
	case config.DriverSQLite:
		db, err := sqliteRepo.New(path, logger)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		return db, nil
	default:
		return jsonfile.New(path, logger), nil
	}
}

// setupRoutes registers middleware and routes.
//
// ROUTES:
//
//	GET    /                           liveness + upstream URL
//	GET    /docs                       API reference
//	POST   /auth/signup                create account
//	POST   /auth/login                 check credentials
//	GET    /auth/me                    current user (session tokens only)
//	GET    /products                   listings (cached)
//	GET    /products/{id}              product + offers
//	GET    /products/category/{cat}    listings for a category (fresh)
//	GET    /categories                 category names (fresh)
//	POST   /catalog/refresh            drop the product cache
//	GET    /users/{id}                 public profile
//	PUT    /users/{id}                 set profile picture
//	GET    /cart/{userId}              cart
//	POST   /cart/add | /cart/remove | /cart/clear
//
// MIDDLEWARE ORDER:
// RequestID → RealIP → Logger → Recoverer → CORS. Recoverer sits inside Logger
// so a recovered panic is still logged with its 500.
func (s *Server) setupRoutes(upstream *catalog.Client, tokens *auth.TokenService) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	cors := middleware.DefaultCORSConfig()
	if len(s.config.CORSOrigins) > 0 {
		cors.AllowedOrigins = s.config.CORSOrigins
	}
	s.router.Use(middleware.CORS(cors))

	passwords := auth.NewPasswordService()
	accounts := service.NewAccountService(s.store, passwords, tokens, s.logger)
	catalogSvc := service.NewCatalogService(upstream, offer.NewSynthesizer(upstream.BaseURL()), s.store, s.config.CatalogTTL, s.logger)
	carts := service.NewCartService(s.store, s.logger)

	authHandler := handler.NewAuthHandler(accounts, s.logger)
	productHandler := handler.NewProductHandler(catalogSvc, s.logger)
	userHandler := handler.NewUserHandler(accounts, s.logger)
	cartHandler := handler.NewCartHandler(carts, s.logger)
	docsHandler := handler.NewDocsHandler(s.config.DocsDir, s.logger)

	s.router.Get("/", handler.HandleRoot(upstream.BaseURL()))
	s.router.Get("/docs", docsHandler.HandleDocs)

	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/signup", authHandler.HandleSignup)
		r.Post("/login", authHandler.HandleLogin)
		if tokens != nil {
			r.With(handler.RequireAuth(tokens)).Get("/me", authHandler.HandleMe)
		}
	})

	s.router.Get("/products", productHandler.HandleList)
	s.router.Get("/products/category/{category}", productHandler.HandleListByCategory)
	s.router.Get("/products/{id}", productHandler.HandleGet)
	s.router.Get("/categories", productHandler.HandleCategories)
	s.router.Post("/catalog/refresh", productHandler.HandleRefresh)

	s.router.Get("/users/{id}", userHandler.HandleGet)
	s.router.Put("/users/{id}", userHandler.HandleUpdate)

	s.router.Route("/cart", func(r chi.Router) {
		r.Get("/{userId}", cartHandler.HandleGet)
		r.Post("/add", cartHandler.HandleAdd)
		r.Post("/remove", cartHandler.HandleRemove)
		r.Post("/clear", cartHandler.HandleClear)
	})
}

// Handler returns the root handler, wrapped in an otelhttp server span per request.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.router, serviceName)
}

// Close releases the state store's repository.
func (s *Server) Close() error {
	return s.store.Close()
}

// Start serves until SIGINT/SIGTERM, then shuts down gracefully.
//
// SHUTDOWN ORDER:
//  1. stop accepting connections, let in-flight requests finish (30s)
//  2. close the repository (sqlite flushes its WAL)
//
// Every mutation has already been saved by the time its request returns, so
// there is no final flush of state.
func (s *Server) Start() error {
	defer func() {
		if err := s.Close(); err != nil {
			s.logger.Error("failed to close store", slog.String("error", err.Error()))
		}
	}()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("upstream", s.config.FakeStoreAPI),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
