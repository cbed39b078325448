// internal/syncer/syncer.go
package syncer

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github-repo-search/internal/database"
	custom_errors "github-repo-search/internal/errors"
	"github-repo-search/internal/model"
	"github-repo-search/internal/pagination"
)

// DefaultConcurrency is the number of repositories upserted in parallel.
const DefaultConcurrency = 5

// Searcher runs a single GitHub repository search.
type Searcher interface {
	SearchRepositories(ctx context.Context, keyword string, page, perPage int) (*model.SearchPage, error)
}

// Upserter persists a single repository.
type Upserter interface {
	UpsertRepository(ctx context.Context, arg database.UpsertRepositoryParams) (model.Repository, error)
}

// SearchResult is what a search returns to the caller.
type SearchResult struct {
	Items      []model.Repository  `json:"repositories"`
	Pagination pagination.Metadata `json:"pagination"`
	RateLimit  model.RateLimit     `json:"rateLimit"`
}

// Syncer orchestrates searching GitHub and storing the results.
type Syncer struct {
	searcher    Searcher
	store       Upserter
	logger      *slog.Logger
	concurrency int
}

// NewSyncer creates a new Syncer instance. A concurrency below 1 falls back to DefaultConcurrency.
func NewSyncer(searcher Searcher, store Upserter, logger *slog.Logger, concurrency int) *Syncer {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	return &Syncer{
		searcher:    searcher,
		store:       store,
		logger:      logger,
		concurrency: concurrency,
	}
}

// SearchAndSync searches GitHub for keyword and upserts every returned repository.
// Repositories that fail to store are logged and left out of the result; remote failures are returned unchanged.
// Pagination reflects the remote totals.
func (s *Syncer) SearchAndSync(ctx context.Context, keyword string, page, perPage int) (*SearchResult, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, custom_errors.InvalidInput("keyword", "must not be empty")
	}

	logger := s.logger.With("keyword", keyword, "page", page)
	remote, err := s.searcher.SearchRepositories(ctx, keyword, page, perPage)
	if err != nil {
		return nil, err
	}

	stored := s.upsertAll(ctx, logger, remote.Items, strings.ToLower(keyword))
	logger.Info("Search synced",
		"remote_items", len(remote.Items),
		"stored_items", len(stored),
		"total_count", remote.TotalCount,
	)

	return &SearchResult{
		Items:      stored,
		Pagination: pagination.Paginate(remote.Page, remote.PerPage, remote.TotalCount),
		RateLimit:  remote.RateLimit,
	}, nil
}

// upsertAll stores items concurrently and returns the successes in their original order.
func (s *Syncer) upsertAll(ctx context.Context, logger *slog.Logger, items []model.RemoteRepository, keyword string) []model.Repository {
	results := make([]*model.Repository, len(items))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, item := range items {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			repo, err := s.store.UpsertRepository(ctx, upsertParams(item, keyword))
			if err != nil {
				logger.Error("Failed to store repository", "github_id", item.GithubID, "full_name", item.FullName, "error", err)
				return nil
			}
			results[i] = &repo
			return nil
		})
	}
	_ = g.Wait()

	stored := make([]model.Repository, 0, len(items))
	for _, r := range results {
		if r != nil {
			stored = append(stored, *r)
		}
	}
	return stored
}

func upsertParams(r model.RemoteRepository, keyword string) database.UpsertRepositoryParams {
	return database.UpsertRepositoryParams{
		GithubID:        r.GithubID,
		Name:            r.Name,
		FullName:        r.FullName,
		Description:     r.Description,
		HTMLURL:         r.HTMLURL,
		StargazersCount: r.StargazersCount,
		ForksCount:      r.ForksCount,
		Language:        r.Language,
		Owner:           r.Owner,
		SearchKeyword:   keyword,
	}
}
