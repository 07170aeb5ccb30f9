// Package main is the entry point of the price-compare API server.
//
// main stays small: load config, build the logger, hand both to the server.
// All behaviour lives in internal/.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/sakif/price-compare/internal/config"
	"github.com/sakif/price-compare/internal/server"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded", slog.Any("config", cfg))

	srv, err := server.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until SIGINT/SIGTERM.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
