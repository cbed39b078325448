// internal/history/history_test.go
package history

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	custom_errors "github-repo-search/internal/errors"
	"github-repo-search/internal/model"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) ListKeywordHistory(ctx context.Context, limit int) ([]model.SearchHistoryEntry, error) {
	args := m.Called(ctx, limit)
	entries, _ := args.Get(0).([]model.SearchHistoryEntry)
	return entries, args.Error(1)
}

func TestAggregator_TopKeywords(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("returns store entries in order", func(t *testing.T) {
		store := new(MockStore)
		want := []model.SearchHistoryEntry{
			{Keyword: "react", Count: 2, LastSearchedAt: t1.Add(2 * time.Hour)},
			{Keyword: "vue", Count: 1, LastSearchedAt: t1.Add(time.Hour)},
		}
		store.On("ListKeywordHistory", ctx, 10).Return(want, nil).Once()

		got, err := NewAggregator(store, logger).TopKeywords(ctx, DefaultLimit)

		require.NoError(t, err)
		assert.Equal(t, want, got)
		store.AssertExpectations(t)
	})

	t.Run("returns an empty slice rather than nil", func(t *testing.T) {
		store := new(MockStore)
		store.On("ListKeywordHistory", ctx, 5).Return(nil, nil).Once()

		got, err := NewAggregator(store, logger).TopKeywords(ctx, 5)

		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("rejects out of range limits", func(t *testing.T) {
		store := new(MockStore)
		agg := NewAggregator(store, logger)

		for _, limit := range []int{0, -1, MaxLimit + 1} {
			_, err := agg.TopKeywords(ctx, limit)
			var invalid *custom_errors.ErrInvalidInput
			assert.ErrorAs(t, err, &invalid, "limit %d", limit)
		}
		store.AssertNotCalled(t, "ListKeywordHistory")
	})

	t.Run("propagates store failures", func(t *testing.T) {
		store := new(MockStore)
		storeErr := &custom_errors.ErrStoreUnavailable{Op: "list keyword history", Err: errors.New("connection refused")}
		store.On("ListKeywordHistory", ctx, 10).Return(nil, storeErr).Once()

		_, err := NewAggregator(store, logger).TopKeywords(ctx, 10)

		var unavailable *custom_errors.ErrStoreUnavailable
		assert.ErrorAs(t, err, &unavailable)
	})
}
