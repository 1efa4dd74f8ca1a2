// CoursePilot - Personalized Course Recommendations
// Copyright 2026 CoursePilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursepilot/coursepilot

// CoursePilot server. Serves personalized course recommendations over
// HTTP, blending vector-similarity search with content-based filtering.
//
// Configuration is loaded from built-in defaults, an optional YAML file
// (COURSEPILOT_CONFIG or ./coursepilot.yaml), and COURSEPILOT_* environment
// variables, in that order of precedence.
//
// Usage:
//
//	coursepilot-server
//
// Docker:
//
//	docker run -d \
//	  -e COURSEPILOT_VECTOR__BASE_URL=http://vectorindex:8090 \
//	  -e COURSEPILOT_REASONING__ENABLED=true \
//	  -p 8080:8080 \
//	  ghcr.io/coursepilot/coursepilot
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coursepilot/coursepilot/internal/api"
	"github.com/coursepilot/coursepilot/internal/catalog"
	"github.com/coursepilot/coursepilot/internal/config"
	"github.com/coursepilot/coursepilot/internal/logging"
	"github.com/coursepilot/coursepilot/internal/reasoning"
	"github.com/coursepilot/coursepilot/internal/recommend"
	"github.com/coursepilot/coursepilot/internal/userstate"
	"github.com/coursepilot/coursepilot/internal/vectorindex"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(cfg.Log)

	logging.Info().
		Str("version", version).
		Str("addr", cfg.Server.Addr).
		Str("catalog_path", cfg.Catalog.Path).
		Bool("reasoning_enabled", cfg.Reasoning.Enabled).
		Msg("Starting CoursePilot")

	catalogStore, err := catalog.Open(cfg.Catalog.Path, logging.WithComponent("catalog"))
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open catalog store")
	}
	defer func() {
		if err := catalogStore.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing catalog store")
		}
	}()

	provider := catalog.NewProvider(catalogStore)

	userStore, err := userstate.Open(cfg.UserState.Path, provider, logging.WithComponent("userstate"))
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open user state store")
	}
	defer func() {
		if err := userStore.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing user state store")
		}
	}()

	vectorClient := vectorindex.NewClient(cfg.Vector, logging.WithComponent("vectorindex"))
	if err := vectorClient.Health(context.Background()); err != nil {
		logging.Warn().Err(err).Msg("Vector index unreachable, recommendations degrade to content filtering")
	}

	engine, err := recommend.NewEngine(cfg.Engine, logging.WithComponent("engine"), provider, vectorClient)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create recommendation engine")
	}

	// The explainer stays nil unless reasoning is enabled; handlers then
	// skip the reasoning step entirely.
	var explainer api.Explainer
	if cfg.Reasoning.Enabled {
		explainer = reasoning.NewClient(cfg.Reasoning.Client, logging.WithComponent("reasoning"))
		logging.Info().Str("model", cfg.Reasoning.Client.Model).Msg("Reasoning client enabled")
	}

	router := api.NewRouter(
		&api.MiddlewareConfig{
			CORSAllowedOrigins: cfg.Server.CORSOrigins,
			CORSMaxAge:         86400,
			RateLimitRequests:  cfg.Server.RateLimit,
			RateLimitWindow:    cfg.Server.RateWindow,
		},
		api.NewRecommendHandler(engine, userStore, vectorClient, explainer),
		api.NewCatalogHandler(catalogStore),
		api.NewUserStateHandler(userStore, catalogStore),
		api.NewHealthHandler(catalogStore, vectorClient, version),
	)

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		errCh <- server.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("HTTP server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("Graceful shutdown incomplete")
	}

	logging.Info().Msg("Application stopped gracefully")
}
