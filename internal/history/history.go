// internal/history/history.go
package history

import (
	"context"
	"log/slog"

	custom_errors "github-repo-search/internal/errors"
	"github-repo-search/internal/model"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Store is the read side of the repository store the aggregator needs.
type Store interface {
	ListKeywordHistory(ctx context.Context, limit int) ([]model.SearchHistoryEntry, error)
}

// Aggregator derives keyword history from stored repositories. Results are never cached.
type Aggregator struct {
	store  Store
	logger *slog.Logger
}

func NewAggregator(store Store, logger *slog.Logger) *Aggregator {
	return &Aggregator{store: store, logger: logger}
}

// TopKeywords returns up to limit keywords, most recently searched first.
func (a *Aggregator) TopKeywords(ctx context.Context, limit int) ([]model.SearchHistoryEntry, error) {
	if limit < 1 || limit > MaxLimit {
		return nil, custom_errors.InvalidInput("limit", "must be between 1 and 100")
	}

	entries, err := a.store.ListKeywordHistory(ctx, limit)
	if err != nil {
		a.logger.Error("Failed to load keyword history", "error", err)
		return nil, err
	}
	if entries == nil {
		entries = []model.SearchHistoryEntry{}
	}
	a.logger.Debug("Keyword history loaded", "entries", len(entries), "limit", limit)
	return entries, nil
}
