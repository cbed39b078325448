// internal/database/sqlite/sqlite_test.go
package sqlite

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github-repo-search/internal/database"
	custom_errors "github-repo-search/internal/errors"
	"github-repo-search/internal/model"
)

// fakeClock hands out strictly increasing timestamps, one minute apart.
type fakeClock struct {
	mu  sync.Mutex
	cur time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = c.cur.Add(time.Minute)
	return c.cur
}

func newTestStore(t *testing.T) (*Store, *fakeClock) {
	t.Helper()
	clock := &fakeClock{cur: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	store, err := Open(context.Background(), Config{Path: ":memory:", Now: clock.Now})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, clock
}

func repoParams(githubID int64, name, keyword string, stars int) database.UpsertRepositoryParams {
	return database.UpsertRepositoryParams{
		GithubID:        githubID,
		Name:            name,
		FullName:        "owner/" + name,
		HTMLURL:         "https://github.com/owner/" + name,
		StargazersCount: stars,
		Owner:           model.Owner{Login: "owner", HTMLURL: "https://github.com/owner"},
		SearchKeyword:   keyword,
	}
}

func mustUpsert(t *testing.T, s *Store, p database.UpsertRepositoryParams) model.Repository {
	t.Helper()
	repo, err := s.UpsertRepository(context.Background(), p)
	require.NoError(t, err)
	return repo
}

func TestStore_UpsertRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("inserts a new repository", func(t *testing.T) {
		s, _ := newTestStore(t)
		desc := "A JavaScript library"
		p := repoParams(100, "react", "react", 42)
		p.Description = &desc

		repo := mustUpsert(t, s, p)

		assert.NotZero(t, repo.ID)
		assert.Equal(t, int64(100), repo.GithubID)
		assert.Equal(t, "owner/react", repo.FullName)
		require.NotNil(t, repo.Description)
		assert.Equal(t, desc, *repo.Description)
		assert.Nil(t, repo.Language)
		assert.Equal(t, "owner", repo.Owner.Login)
		assert.Equal(t, repo.CreatedAt, repo.UpdatedAt)
	})

	t.Run("is idempotent on github id", func(t *testing.T) {
		s, _ := newTestStore(t)

		first := mustUpsert(t, s, repoParams(100, "react", "react", 42))
		second := mustUpsert(t, s, repoParams(100, "react", "react", 43))

		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, first.CreatedAt, second.CreatedAt)
		assert.True(t, second.UpdatedAt.After(first.UpdatedAt))
		assert.Equal(t, 43, second.StargazersCount)

		count, err := s.CountAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("overwrites the search keyword", func(t *testing.T) {
		s, _ := newTestStore(t)

		mustUpsert(t, s, repoParams(100, "react", "react", 42))
		updated := mustUpsert(t, s, repoParams(100, "react", "frontend", 42))

		assert.Equal(t, "frontend", updated.SearchKeyword)
	})

	t.Run("concurrent upserts never duplicate a github id", func(t *testing.T) {
		s, _ := newTestStore(t)

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := s.UpsertRepository(ctx, repoParams(int64(i%3+1), fmt.Sprintf("repo-%d", i%3), "go", i))
				assert.NoError(t, err)
			}(i)
		}
		wg.Wait()

		count, err := s.CountAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, count)
	})

	t.Run("rejects invalid params", func(t *testing.T) {
		s, _ := newTestStore(t)

		_, err := s.UpsertRepository(ctx, repoParams(0, "react", "react", 1))

		var invalid *custom_errors.ErrInvalidInput
		require.ErrorAs(t, err, &invalid)
	})
}

func TestStore_ListRepositories(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	mustUpsert(t, s, repoParams(1, "bravo", "react", 30))
	mustUpsert(t, s, repoParams(2, "alpha", "react hooks", 10))
	mustUpsert(t, s, repoParams(3, "charlie", "vue", 20))
	mustUpsert(t, s, repoParams(4, "delta", "100%_real", 5))

	names := func(repos []model.Repository) []string {
		out := make([]string, 0, len(repos))
		for _, r := range repos {
			out = append(out, r.Name)
		}
		return out
	}

	t.Run("defaults to newest first", func(t *testing.T) {
		repos, total, err := s.ListRepositories(ctx, database.ListParams{Page: 1, PerPage: 10})
		require.NoError(t, err)
		assert.Equal(t, 4, total)
		assert.Equal(t, []string{"delta", "charlie", "alpha", "bravo"}, names(repos))
	})

	t.Run("sorts by stars ascending", func(t *testing.T) {
		repos, _, err := s.ListRepositories(ctx, database.ListParams{
			Sort: database.Sort{Field: database.SortByStargazersCount, Order: database.Asc},
			Page: 1, PerPage: 10,
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"delta", "alpha", "charlie", "bravo"}, names(repos))
	})

	t.Run("filters by keyword substring case-insensitively", func(t *testing.T) {
		repos, total, err := s.ListRepositories(ctx, database.ListParams{
			Filter: database.Filter{Keyword: "REACT"},
			Sort:   database.Sort{Field: database.SortByName, Order: database.Asc},
			Page:   1, PerPage: 10,
		})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		assert.Equal(t, []string{"alpha", "bravo"}, names(repos))
	})

	t.Run("treats like wildcards literally", func(t *testing.T) {
		repos, total, err := s.ListRepositories(ctx, database.ListParams{
			Filter: database.Filter{Keyword: "%_"},
			Page:   1, PerPage: 10,
		})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		assert.Equal(t, []string{"delta"}, names(repos))
	})

	t.Run("paginates", func(t *testing.T) {
		params := database.ListParams{
			Sort: database.Sort{Field: database.SortByName, Order: database.Asc},
			Page: 2, PerPage: 3,
		}
		repos, total, err := s.ListRepositories(ctx, params)
		require.NoError(t, err)
		assert.Equal(t, 4, total)
		assert.Equal(t, []string{"delta"}, names(repos))

		params.Page = 3
		repos, total, err = s.ListRepositories(ctx, params)
		require.NoError(t, err)
		assert.Equal(t, 4, total)
		assert.Empty(t, repos)
	})

	t.Run("orders ties by local id", func(t *testing.T) {
		tied, _ := newTestStore(t)
		a := mustUpsert(t, tied, repoParams(10, "same", "tie", 1))
		b := mustUpsert(t, tied, repoParams(11, "same", "tie", 1))

		repos, _, err := tied.ListRepositories(ctx, database.ListParams{
			Sort: database.Sort{Field: database.SortByName, Order: database.Desc},
			Page: 1, PerPage: 10,
		})
		require.NoError(t, err)
		require.Len(t, repos, 2)
		assert.Equal(t, b.ID, repos[0].ID)
		assert.Equal(t, a.ID, repos[1].ID)
	})

	t.Run("counts by filter", func(t *testing.T) {
		n, err := s.CountByFilter(ctx, database.Filter{Keyword: "vue"})
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})
}

func TestStore_DeleteRepository(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	kept := mustUpsert(t, s, repoParams(1, "kept", "go", 1))
	gone := mustUpsert(t, s, repoParams(2, "gone", "go", 2))

	deleted, err := s.DeleteRepository(ctx, gone.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = s.DeleteRepository(ctx, gone.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	repos, total, err := s.ListRepositories(ctx, database.ListParams{Page: 1, PerPage: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, repos, 1)
	assert.Equal(t, kept.ID, repos[0].ID)
}

func TestStore_ListKeywordHistory(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore(t)

	react1 := mustUpsert(t, s, repoParams(1, "react", "react", 1))
	mustUpsert(t, s, repoParams(2, "vue", "vue", 1))
	react2 := mustUpsert(t, s, repoParams(3, "preact", "react", 1))

	history, err := s.ListKeywordHistory(ctx, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "react", history[0].Keyword)
	assert.Equal(t, int64(2), history[0].Count)
	assert.Equal(t, react2.CreatedAt, history[0].LastSearchedAt)
	assert.True(t, history[0].LastSearchedAt.After(react1.CreatedAt))
	assert.Equal(t, "vue", history[1].Keyword)
	assert.Equal(t, int64(1), history[1].Count)
	assert.True(t, history[0].LastSearchedAt.Before(clock.Now()))

	limited, err := s.ListKeywordHistory(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	_, err = s.ListKeywordHistory(ctx, 0)
	var invalid *custom_errors.ErrInvalidInput
	assert.ErrorAs(t, err, &invalid)
}

func TestStore_StoreUnavailableAfterClose(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.Close())

	_, err := s.CountAll(context.Background())

	var unavailable *custom_errors.ErrStoreUnavailable
	require.ErrorAs(t, err, &unavailable)
	assert.Error(t, s.Ping(context.Background()))
}

func TestStore_MigrateDownThenUp(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	mustUpsert(t, s, repoParams(1, "react", "react", 1))

	require.NoError(t, s.MigrateDown())
	require.NoError(t, s.MigrateUp())

	count, err := s.CountAll(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}
