// internal/database/sqlite/sqlite.go
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github-repo-search/internal/database"
	custom_errors "github-repo-search/internal/errors"
	"github-repo-search/internal/id"
	"github-repo-search/internal/model"
)

var _ database.Store = (*Store)(nil)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type Config struct {
	// Path is a database file or ":memory:".
	Path string
	Now  func() time.Time
}

// Store is the SQLite-backed repository store.
// Access is serialised through a single connection, which also keeps ":memory:" databases alive for the
// lifetime of the store. Timestamps are stored as Unix nanoseconds.
type Store struct {
	conn *sql.DB
	now  func() time.Time
}

// Open opens the database and applies all migrations.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	conn, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, custom_errors.StoreUnavailable("ping", err)
	}
	if _, err := conn.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	s := &Store{conn: conn, now: now}

	if err := s.MigrateUp(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return custom_errors.StoreUnavailable("ping", s.conn.PingContext(ctx))
}

// MigrateUp applies every pending migration.
func (s *Store) MigrateUp() error {
	return s.migrate(func(m *migrate.Migrate) error { return m.Up() })
}

// MigrateDown reverts every applied migration.
func (s *Store) MigrateDown() error {
	return s.migrate(func(m *migrate.Migrate) error { return m.Down() })
}

// migrate never closes the migrate instance because its driver would close s.conn with it.
func (s *Store) migrate(step func(*migrate.Migrate) error) error {
	driver, err := sqlitemigrate.WithInstance(s.conn, &sqlitemigrate.Config{})
	if err != nil {
		return fmt.Errorf("creating migration driver: %w", err)
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}
	defer src.Close()

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	if err := step(m); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

const repositoryColumns = `id, github_id, name, full_name, description, html_url, stargazers_count, forks_count,
	language, owner_login, owner_avatar_url, owner_html_url, search_keyword, created_at, updated_at`

const upsertRepository = `
INSERT INTO repositories (
	id, github_id, name, full_name, description, html_url, stargazers_count, forks_count,
	language, owner_login, owner_avatar_url, owner_html_url, search_keyword, created_at, updated_at
) VALUES (?1, ?2, ?3, ?4, ?5, ?6, ?7, ?8, ?9, ?10, ?11, ?12, ?13, ?14, ?14)
ON CONFLICT (github_id) DO UPDATE SET
	name = excluded.name,
	full_name = excluded.full_name,
	description = excluded.description,
	html_url = excluded.html_url,
	stargazers_count = excluded.stargazers_count,
	forks_count = excluded.forks_count,
	language = excluded.language,
	owner_login = excluded.owner_login,
	owner_avatar_url = excluded.owner_avatar_url,
	owner_html_url = excluded.owner_html_url,
	search_keyword = excluded.search_keyword,
	updated_at = excluded.updated_at
RETURNING ` + repositoryColumns

func (s *Store) UpsertRepository(ctx context.Context, arg database.UpsertRepositoryParams) (model.Repository, error) {
	if err := arg.Validate(); err != nil {
		return model.Repository{}, err
	}

	row := s.conn.QueryRowContext(ctx, upsertRepository,
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
		s.now().UnixNano(),
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

	query := fmt.Sprintf("SELECT %s FROM repositories%s ORDER BY %s LIMIT ? OFFSET ?",
		repositoryColumns, where, arg.Sort.OrderBy())
	args = append(args, arg.PerPage, (arg.Page-1)*arg.PerPage)

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, custom_errors.StoreUnavailable("list repositories", err)
	}
	defer rows.Close()

	repos := make([]model.Repository, 0, arg.PerPage)
	for rows.Next() {
		r, err := scanRepository(rows)
		if err != nil {
			return nil, 0, custom_errors.StoreUnavailable("list repositories", err)
		}
		repos = append(repos, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, custom_errors.StoreUnavailable("list repositories", err)
	}
	return repos, total, nil
}

func (s *Store) DeleteRepository(ctx context.Context, id int64) (bool, error) {
	result, err := s.conn.ExecContext(ctx, `DELETE FROM repositories WHERE id = ?`, id)
	if err != nil {
		return false, custom_errors.StoreUnavailable("delete repository", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, custom_errors.StoreUnavailable("delete repository", err)
	}
	return n > 0, nil
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
LIMIT ?`

func (s *Store) ListKeywordHistory(ctx context.Context, limit int) ([]model.SearchHistoryEntry, error) {
	if limit < 1 {
		return nil, custom_errors.InvalidInput("limit", "must be at least 1")
	}

	rows, err := s.conn.QueryContext(ctx, listKeywordHistory, limit)
	if err != nil {
		return nil, custom_errors.StoreUnavailable("list keyword history", err)
	}
	defer rows.Close()

	var entries []model.SearchHistoryEntry
	for rows.Next() {
		var (
			e    model.SearchHistoryEntry
			last int64
		)
		if err := rows.Scan(&e.Keyword, &e.Count, &last); err != nil {
			return nil, custom_errors.StoreUnavailable("list keyword history", err)
		}
		e.LastSearchedAt = fromUnixNano(last)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, custom_errors.StoreUnavailable("list keyword history", err)
	}
	return entries, nil
}

func (s *Store) count(ctx context.Context, where string, args []any) (int, error) {
	var n int
	if err := s.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM repositories"+where, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func whereClause(filter database.Filter) (string, []any) {
	pattern, ok := filter.LikePattern()
	if !ok {
		return "", nil
	}
	return ` WHERE lower(search_keyword) LIKE ? ESCAPE '\'`, []any{pattern}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRepository(row scanner) (model.Repository, error) {
	var (
		r                    model.Repository
		description, lang    sql.NullString
		createdAt, updatedAt int64
	)
	err := row.Scan(
		&r.ID,
		&r.GithubID,
		&r.Name,
		&r.FullName,
		&description,
		&r.HTMLURL,
		&r.StargazersCount,
		&r.ForksCount,
		&lang,
		&r.Owner.Login,
		&r.Owner.AvatarURL,
		&r.Owner.HTMLURL,
		&r.SearchKeyword,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return model.Repository{}, err
	}
	if description.Valid {
		r.Description = &description.String
	}
	if lang.Valid {
		r.Language = &lang.String
	}
	r.CreatedAt = fromUnixNano(createdAt)
	r.UpdatedAt = fromUnixNano(updatedAt)
	return r, nil
}

func fromUnixNano(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
