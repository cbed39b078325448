//go:build integration

// cmd/service/integration_test.go
package main

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github-repo-search/internal/config"
)

func setupTestDatabase(ctx context.Context, t *testing.T) string {
	t.Helper()

	// Start a postgres container
	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test-db"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, pgContainer.Terminate(context.Background()))
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return connStr
}

func TestApp_Postgres_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	dsn := setupTestDatabase(ctx, t)
	github, calls := newFakeGitHub(t)

	cfg := &config.Config{
		LogLevel:         "debug",
		DBDriver:         config.DriverPostgres,
		DBURL:            dsn,
		DBMaxConns:       5,
		GithubBaseURL:    github.URL,
		GithubTimeout:    5 * time.Second,
		SyncConcurrency:  5,
		SearchRateLimit:  100,
		GeneralRateLimit: 200,
		RateLimitWindow:  15 * time.Minute,
		NodeID:           1,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	a, err := newApp(ctx, cfg, logger)
	require.NoError(t, err)
	t.Cleanup(a.close)
	require.NoError(t, a.store.MigrateUp())

	exerciseAPI(t, a, calls)

	// Rolling back and re-applying leaves an empty, usable schema.
	require.NoError(t, a.store.MigrateDown())
	require.NoError(t, a.store.MigrateUp())
	count, err := a.catalog.Count(ctx)
	require.NoError(t, err)
	require.Zero(t, count)
}
