// cmd/service/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github-repo-search/internal/config"
	"github-repo-search/internal/history"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("Application error", "error", err)
		os.Exit(1)
	}
}

// cli carries the flags shared by every command.
type cli struct {
	configDir string
	logLevel  string
	addr      string

	level  *slog.LevelVar
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{level: new(slog.LevelVar)}

	root := &cobra.Command{
		Use:           "github-repo-search",
		Short:         "Search GitHub repositories and keep the results",
		SilenceUsage:  true,
		SilenceErrors: true,
		// The server logs to stdout; one-shot commands keep stdout for their JSON output.
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			out := cmd.ErrOrStderr()
			if cmd.Name() == "serve" {
				out = cmd.OutOrStdout()
			}
			c.logger = slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: c.level}))
			slog.SetDefault(c.logger)
		},
	}
	root.PersistentFlags().StringVar(&c.configDir, "config-dir", ".", "Directory holding an optional .env file")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "Log level (debug, info, warn, error). Overrides LOG_LEVEL")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  c.runServe,
	}
	serve.Flags().StringVar(&c.addr, "addr", "", "Listen address (host:port). Overrides HTTP_ADDR")

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migrations",
	}
	migrateCmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE:  c.runMigrate(true),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Revert all applied migrations",
			Args:  cobra.NoArgs,
			RunE:  c.runMigrate(false),
		},
	)

	var page, limit int
	search := &cobra.Command{
		Use:   "search <keyword>",
		Short: "Search GitHub once, store the results and print them as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSearch(cmd, args[0], page, limit)
		},
	}
	search.Flags().IntVar(&page, "page", 1, "Result page")
	search.Flags().IntVar(&limit, "limit", 10, "Results per page")

	var historyLimit int
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Print the most recently searched keywords as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runHistory(cmd, historyLimit)
		},
	}
	historyCmd.Flags().IntVar(&historyLimit, "limit", history.DefaultLimit, "Number of keywords")

	root.AddCommand(serve, migrateCmd, search, historyCmd)
	return root
}

// loadConfig reads configuration and applies flag overrides and the log level.
func (c *cli) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(c.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}
	if c.addr != "" {
		cfg.HTTPAddr = c.addr
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid flag override: %w", err)
	}
	c.level.Set(parseLogLevel(cfg.LogLevel))
	c.logger.Info("Configuration loaded successfully", "db_driver", cfg.DBDriver, "github_token_set", cfg.GithubToken != "")
	return cfg, nil
}

func (c *cli) runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdownTelemetry, err := config.SetupTelemetry(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to set up telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			c.logger.Error("Failed to flush telemetry", "error", err)
		}
	}()

	a, err := newApp(ctx, cfg, c.logger)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.store.MigrateUp(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}
	c.logger.Info("Database migrations applied successfully")

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           a.handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		c.logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	case <-ctx.Done():
		c.logger.Info("Shutdown signal received, draining connections")
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	c.logger.Info("Server stopped")
	return nil
}

func (c *cli) runMigrate(up bool) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cfg, err := c.loadConfig()
		if err != nil {
			return err
		}
		store, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer store.Close()

		direction := "up"
		if up {
			err = store.MigrateUp()
		} else {
			direction = "down"
			err = store.MigrateDown()
		}
		if err != nil {
			return fmt.Errorf("migration %s failed: %w", direction, err)
		}
		c.logger.Info("Migrations finished", "direction", direction)
		return nil
	}
}

func (c *cli) runSearch(cmd *cobra.Command, keyword string, page, limit int) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), cfg, c.logger)
	if err != nil {
		return err
	}
	defer a.close()
	if err := a.store.MigrateUp(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	result, err := a.syncer.SearchAndSync(cmd.Context(), keyword, page, limit)
	if err != nil {
		return err
	}
	return printJSON(cmd, result)
}

func (c *cli) runHistory(cmd *cobra.Command, limit int) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), cfg, c.logger)
	if err != nil {
		return err
	}
	defer a.close()

	entries, err := a.history.TopKeywords(cmd.Context(), limit)
	if err != nil {
		return err
	}
	return printJSON(cmd, entries)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
