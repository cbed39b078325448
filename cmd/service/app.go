// cmd/service/app.go
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github-repo-search/internal/api"
	"github-repo-search/internal/catalog"
	"github-repo-search/internal/config"
	"github-repo-search/internal/database"
	"github-repo-search/internal/database/postgres"
	"github-repo-search/internal/database/sqlite"
	"github-repo-search/internal/github"
	"github-repo-search/internal/history"
	"github-repo-search/internal/id"
	"github-repo-search/internal/syncer"
)

// migratingStore is a store that can also apply and revert its schema.
type migratingStore interface {
	database.Store
	MigrateUp() error
	MigrateDown() error
}

// app holds the wired application components.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   migratingStore
	syncer  *syncer.Syncer
	catalog *catalog.Service
	history *history.Aggregator
}

func openStore(ctx context.Context, cfg *config.Config) (migratingStore, error) {
	switch cfg.DBDriver {
	case config.DriverSQLite:
		return sqlite.Open(ctx, sqlite.Config{Path: cfg.DBURL})
	default:
		return postgres.Open(ctx, postgres.Config{DSN: cfg.DBURL, MaxConns: cfg.DBMaxConns})
	}
}

// newApp opens the store and builds every component on top of it. The caller owns app.close.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	if err := id.Init(cfg.NodeID); err != nil {
		return nil, fmt.Errorf("initializing id generator: %w", err)
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	logger.Info("Database connection established", "driver", cfg.DBDriver)

	ghCfg := github.Config{
		Token:   cfg.GithubToken,
		BaseURL: cfg.GithubBaseURL,
		Timeout: cfg.GithubTimeout,
	}
	if cfg.OtelEnabled {
		ghCfg.Transport = otelhttp.NewTransport(http.DefaultTransport)
	}
	ghClient, err := github.NewClient(ghCfg, logger)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to create github client: %w", err)
	}

	return &app{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		syncer:  syncer.NewSyncer(ghClient, store, logger, cfg.SyncConcurrency),
		catalog: catalog.NewService(store, logger),
		history: history.NewAggregator(store, logger),
	}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.logger.Error("Failed to close database", "error", err)
	}
}

// handler returns the HTTP API, traced when telemetry is enabled.
func (a *app) handler() http.Handler {
	router := api.NewRouter(api.Services{
		Search:  a.syncer,
		Catalog: a.catalog,
		History: a.history,
		Store:   a.store,
	}, a.logger, api.Options{
		SearchRateLimit:  a.cfg.SearchRateLimit,
		GeneralRateLimit: a.cfg.GeneralRateLimit,
		RateLimitWindow:  a.cfg.RateLimitWindow,
		RequestTimeout:   a.cfg.RequestTimeout,
	})
	if !a.cfg.OtelEnabled {
		return router
	}
	return otelhttp.NewHandler(router, "http.server")
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
