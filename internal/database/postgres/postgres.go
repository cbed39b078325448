// internal/database/postgres/postgres.go
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github-repo-search/internal/database"
	custom_errors "github-repo-search/internal/errors"
	"github-repo-search/internal/id"
	"github-repo-search/internal/model"
)

var _ database.Store = (*Store)(nil)

type Config struct {
	DSN      string
	MaxConns int32
	MinConns int32
	// Now stamps created_at and updated_at. Defaults to time.Now in UTC.
	Now func() time.Time
}

// Store is the Postgres-backed repository store on a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// Open creates the connection pool and verifies that the database is reachable.
// It does not apply migrations; call MigrateUp for that.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, custom_errors.StoreUnavailable("ping", err)
	}

	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Store{pool: pool, now: now}, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return custom_errors.StoreUnavailable("ping", s.pool.Ping(ctx))
}

const repositoryColumns = `id, github_id, name, full_name, description, html_url, stargazers_count, forks_count,
	language, owner_login, owner_avatar_url, owner_html_url, search_keyword, created_at, updated_at`

const upsertRepository = `
INSERT INTO repositories (
	id, github_id, name, full_name, description, html_url, stargazers_count, forks_count,
	language, owner_login, owner_avatar_url, owner_html_url, search_keyword, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)
ON CONFLICT (github_id) DO UPDATE SET
	name = EXCLUDED.name,
	full_name = EXCLUDED.full_name,
	description = EXCLUDED.description,
	html_url = EXCLUDED.html_url,
	stargazers_count = EXCLUDED.stargazers_count,
	forks_count = EXCLUDED.forks_count,
	language = EXCLUDED.language,
	owner_login = EXCLUDED.owner_login,
	owner_avatar_url = EXCLUDED.owner_avatar_url,
	owner_html_url = EXCLUDED.owner_html_url,
	search_keyword = EXCLUDED.search_keyword,
	updated_at = EXCLUDED.updated_at
RETURNING ` + repositoryColumns

func (s *Store) UpsertRepository(ctx context.Context, arg database.UpsertRepositoryParams) (model.Repository, error) {
	if err := arg.Validate(); err != nil {
		return model.Repository{}, err
	}

	row := s.pool.QueryRow(ctx, upsertRepository,
		id.New(),
		arg.GithubID,
		arg.Name,
		arg.FullName,
		arg.Description,
		arg.HTMLURL,
		arg.StargazersCount,
		arg.ForksCount,
		arg.Language,
		arg.Owner.Login,
		arg.Owner.AvatarURL,
		arg.Owner.HTMLURL,
		arg.SearchKeyword,
		s.now(),
	)
	repo, err := scanRepository(row)
	if err != nil {
		return model.Repository{}, custom_errors.StoreUnavailable("upsert repository", err)
	}
	return repo, nil
}

func (s *Store) ListRepositories(ctx context.Context, arg database.ListParams) ([]model.Repository, int, error) {
	if err := arg.Validate(); err != nil {
		return nil, 0, err
	}

	where, args := whereClause(arg.Filter)
	total, err := s.count(ctx, where, args)
	if err != nil {
		return nil, 0, custom_errors.StoreUnavailable("list repositories", err)
	}

	query := fmt.Sprintf("SELECT %s FROM repositories%s ORDER BY %s LIMIT $%d OFFSET $%d",
		repositoryColumns, where, arg.Sort.OrderBy(), len(args)+1, len(args)+2)
	args = append(args, arg.PerPage, (arg.Page-1)*arg.PerPage)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, custom_errors.StoreUnavailable("list repositories", err)
	}
	repos, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Repository, error) {
		return scanRepository(row)
	})
	if err != nil {
		return nil, 0, custom_errors.StoreUnavailable("list repositories", err)
	}
	return repos, total, nil
}

func (s *Store) DeleteRepository(ctx context.Context, id int64) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM repositories WHERE id = $1`, id)
	if err != nil {
		return false, custom_errors.StoreUnavailable("delete repository", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) CountAll(ctx context.Context) (int, error) {
	n, err := s.count(ctx, "", nil)
	return n, custom_errors.StoreUnavailable("count repositories", err)
}

func (s *Store) CountByFilter(ctx context.Context, filter database.Filter) (int, error) {
	where, args := whereClause(filter)
	n, err := s.count(ctx, where, args)
	return n, custom_errors.StoreUnavailable("count repositories", err)
}

const listKeywordHistory = `
SELECT search_keyword, COUNT(*), MAX(created_at)
FROM repositories
GROUP BY search_keyword
ORDER BY MAX(created_at) DESC, search_keyword ASC
LIMIT $1`

func (s *Store) ListKeywordHistory(ctx context.Context, limit int) ([]model.SearchHistoryEntry, error) {
	if limit < 1 {
		return nil, custom_errors.InvalidInput("limit", "must be at least 1")
	}

	rows, err := s.pool.Query(ctx, listKeywordHistory, limit)
	if err != nil {
		return nil, custom_errors.StoreUnavailable("list keyword history", err)
	}
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.SearchHistoryEntry, error) {
		var e model.SearchHistoryEntry
		err := row.Scan(&e.Keyword, &e.Count, &e.LastSearchedAt)
		e.LastSearchedAt = e.LastSearchedAt.UTC()
		return e, err
	})
	if err != nil {
		return nil, custom_errors.StoreUnavailable("list keyword history", err)
	}
	return entries, nil
}

func (s *Store) count(ctx context.Context, where string, args []any) (int, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM repositories"+where, args...).Scan(&n); err != nil {
		return 0, err
	}
	return int(n), nil
}

func whereClause(filter database.Filter) (string, []any) {
	pattern, ok := filter.LikePattern()
	if !ok {
		return "", nil
	}
	return ` WHERE lower(search_keyword) LIKE $1 ESCAPE '\'`, []any{pattern}
}

func scanRepository(row pgx.Row) (model.Repository, error) {
	var r model.Repository
	err := row.Scan(
		&r.ID,
		&r.GithubID,
		&r.Name,
		&r.FullName,
		&r.Description,
		&r.HTMLURL,
		&r.StargazersCount,
		&r.ForksCount,
		&r.Language,
		&r.Owner.Login,
		&r.Owner.AvatarURL,
		&r.Owner.HTMLURL,
		&r.SearchKeyword,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	r.CreatedAt = r.CreatedAt.UTC()
	r.UpdatedAt = r.UpdatedAt.UTC()
	return r, err
}
