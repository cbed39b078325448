// internal/database/database.go
package database

import (
	"context"
	"strings"

	custom_errors "github-repo-search/internal/errors"
	"github-repo-search/internal/model"
)

// Store is the persisted collection of repositories seen in past searches, shared by the Postgres and
// SQLite backends.
// Every driver or connection failure is returned as *errors.ErrStoreUnavailable.
type Store interface {
	// UpsertRepository inserts the repository or, when GithubID is already stored,
	// overwrites its mutable fields. The local ID and CreatedAt never change.
	UpsertRepository(ctx context.Context, arg UpsertRepositoryParams) (model.Repository, error)
	// ListRepositories returns one page of repositories and the total number matching the filter.
	ListRepositories(ctx context.Context, arg ListParams) ([]model.Repository, int, error)
	// DeleteRepository reports whether a repository with the given local ID was removed.
	DeleteRepository(ctx context.Context, id int64) (bool, error)
	CountAll(ctx context.Context) (int, error)
	CountByFilter(ctx context.Context, filter Filter) (int, error)
	// ListKeywordHistory groups repositories by search keyword, most recently searched first.
	ListKeywordHistory(ctx context.Context, limit int) ([]model.SearchHistoryEntry, error)
	Ping(ctx context.Context) error
	Close() error
}

// UpsertRepositoryParams is the write model for a single repository.
type UpsertRepositoryParams struct {
	GithubID        int64
	Name            string
	FullName        string
	Description     *string
	HTMLURL         string
	StargazersCount int
	ForksCount      int
	Language        *string
	Owner           model.Owner
	SearchKeyword   string
}

// Validate rejects params that would violate the repositories schema.
func (p UpsertRepositoryParams) Validate() error {
	switch {
	case p.GithubID <= 0:
		return custom_errors.InvalidInput("githubId", "must be positive")
	case strings.TrimSpace(p.Name) == "":
		return custom_errors.InvalidInput("name", "must not be empty")
	case strings.TrimSpace(p.FullName) == "":
		return custom_errors.InvalidInput("fullName", "must not be empty")
	case strings.TrimSpace(p.HTMLURL) == "":
		return custom_errors.InvalidInput("htmlUrl", "must not be empty")
	case strings.TrimSpace(p.SearchKeyword) == "":
		return custom_errors.InvalidInput("searchKeyword", "must not be empty")
	case p.StargazersCount < 0:
		return custom_errors.InvalidInput("stargazersCount", "must not be negative")
	case p.ForksCount < 0:
		return custom_errors.InvalidInput("forksCount", "must not be negative")
	}
	return nil
}

// Filter narrows a listing. An empty Keyword matches everything.
type Filter struct {
	Keyword string
}

// LikePattern returns the case-insensitive substring pattern for the keyword,
// with LIKE wildcards escaped using a backslash.
func (f Filter) LikePattern() (string, bool) {
	kw := strings.ToLower(strings.TrimSpace(f.Keyword))
	if kw == "" {
		return "", false
	}
	return "%" + EscapeLike(kw) + "%", true
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike escapes LIKE metacharacters so they match literally under ESCAPE '\'.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// SortField names a sortable repository attribute.
type SortField string

const (
	SortByCreatedAt       SortField = "createdAt"
	SortByStargazersCount SortField = "stargazersCount"
	SortByName            SortField = "name"
)

// ParseSortField accepts the API names of the sortable fields. Empty means createdAt.
func ParseSortField(s string) (SortField, error) {
	switch SortField(s) {
	case "":
		return SortByCreatedAt, nil
	case SortByCreatedAt, SortByStargazersCount, SortByName:
		return SortField(s), nil
	}
	return "", custom_errors.InvalidInput("sortBy", "must be one of createdAt, stargazersCount, name")
}

// Column is the SQL column backing the field. Unknown fields fall back to created_at.
func (f SortField) Column() string {
	switch f {
	case SortByStargazersCount:
		return "stargazers_count"
	case SortByName:
		return "name"
	default:
		return "created_at"
	}
}

// SortOrder is the listing direction.
type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// ParseSortOrder accepts asc or desc in any case. Empty means desc.
func ParseSortOrder(s string) (SortOrder, error) {
	switch strings.ToLower(s) {
	case "":
		return Desc, nil
	case string(Asc):
		return Asc, nil
	case string(Desc):
		return Desc, nil
	}
	return "", custom_errors.InvalidInput("sortOrder", "must be asc or desc")
}

// SQL is the keyword used in ORDER BY clauses.
func (o SortOrder) SQL() string {
	if o == Asc {
		return "ASC"
	}
	return "DESC"
}

// Sort orders a listing. Ties are broken by local ID in the same direction.
type Sort struct {
	Field SortField
	Order SortOrder
}

// OrderBy renders the ORDER BY expression for s.
func (s Sort) OrderBy() string {
	dir := s.Order.SQL()
	return s.Field.Column() + " " + dir + ", id " + dir
}

// ListParams selects a page of repositories.
type ListParams struct {
	Filter  Filter
	Sort    Sort
	Page    int
	PerPage int
}

// Validate checks the paging bounds.
func (p ListParams) Validate() error {
	if p.Page < 1 {
		return custom_errors.InvalidInput("page", "must be at least 1")
	}
	if p.PerPage < 1 {
		return custom_errors.InvalidInput("limit", "must be at least 1")
	}
	return nil
}
