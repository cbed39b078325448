// internal/pagination/pagination_test.go
package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaginate(t *testing.T) {
	tests := []struct {
		name                    string
		page, perPage, totalCnt int
		want                    Metadata
	}{
		{"last partial page", 3, 10, 25, Metadata{CurrentPage: 3, TotalPages: 3, TotalCount: 25, PerPage: 10}},
		{"empty result set", 1, 10, 0, Metadata{CurrentPage: 1, TotalPages: 0, TotalCount: 0, PerPage: 10}},
		{"exact multiple", 2, 10, 20, Metadata{CurrentPage: 2, TotalPages: 2, TotalCount: 20, PerPage: 10}},
		{"single item", 1, 50, 1, Metadata{CurrentPage: 1, TotalPages: 1, TotalCount: 1, PerPage: 50}},
		{"github search cap", 1, 30, 1000, Metadata{CurrentPage: 1, TotalPages: 34, TotalCount: 1000, PerPage: 30}},
		{"zero page size", 1, 0, 10, Metadata{CurrentPage: 1, TotalPages: 0, TotalCount: 10, PerPage: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Paginate(tt.page, tt.perPage, tt.totalCnt))
		})
	}
}

func TestOffset(t *testing.T) {
	assert.Equal(t, 0, Offset(1, 10))
	assert.Equal(t, 20, Offset(3, 10))
	assert.Equal(t, 0, Offset(0, 10))
	assert.Equal(t, 0, Offset(2, 0))
}

func TestDisplayRange(t *testing.T) {
	tests := []struct {
		name                    string
		page, perPage, totalCnt int
		wantStart, wantEnd      int
		wantOK                  bool
	}{
		{"first page", 1, 10, 25, 1, 10, true},
		{"last partial page", 3, 10, 25, 21, 25, true},
		{"no results", 1, 10, 0, 0, 0, false},
		{"page beyond results", 4, 10, 25, 0, 0, false},
		{"invalid page", 0, 10, 25, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, ok := DisplayRange(tt.page, tt.perPage, tt.totalCnt)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantStart, start)
			assert.Equal(t, tt.wantEnd, end)
		})
	}
}
