// internal/catalog/catalog.go
package catalog

import (
	"context"
	"log/slog"

	"github-repo-search/internal/database"
	custom_errors "github-repo-search/internal/errors"
	"github-repo-search/internal/model"
	"github-repo-search/internal/pagination"
)

// Store is the subset of database.Store used to browse and prune saved repositories.
type Store interface {
	ListRepositories(ctx context.Context, arg database.ListParams) ([]model.Repository, int, error)
	DeleteRepository(ctx context.Context, id int64) (bool, error)
	CountAll(ctx context.Context) (int, error)
}

// ListResult is one page of saved repositories.
type ListResult struct {
	Repositories []model.Repository  `json:"repositories"`
	Pagination   pagination.Metadata `json:"pagination"`
}

type Service struct {
	store  Store
	logger *slog.Logger
}

func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// List returns a filtered, sorted page of saved repositories.
func (s *Service) List(ctx context.Context, params database.ListParams) (*ListResult, error) {
	repos, total, err := s.store.ListRepositories(ctx, params)
	if err != nil {
		return nil, err
	}
	if repos == nil {
		repos = []model.Repository{}
	}
	return &ListResult{
		Repositories: repos,
		Pagination:   pagination.Paginate(params.Page, params.PerPage, total),
	}, nil
}

// Delete removes a saved repository by its local ID.
// A missing repository is reported as *errors.ErrNotFound.
func (s *Service) Delete(ctx context.Context, id int64) error {
	deleted, err := s.store.DeleteRepository(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return custom_errors.NotFound("repository", id)
	}
	s.logger.Info("Repository deleted", "id", id)
	return nil
}

// Count returns the number of saved repositories.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.store.CountAll(ctx)
}
