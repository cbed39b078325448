// internal/pagination/pagination.go
package pagination

// Metadata describes where a page sits within a result set.
type Metadata struct {
	CurrentPage int `json:"currentPage"`
	TotalPages  int `json:"totalPages"`
	TotalCount  int `json:"totalCount"`
	PerPage     int `json:"perPage"`
}

// Paginate computes the metadata for page within totalCount items split into pages of perPage.
func Paginate(page, perPage, totalCount int) Metadata {
	return Metadata{
		CurrentPage: page,
		TotalPages:  TotalPages(perPage, totalCount),
		TotalCount:  totalCount,
		PerPage:     perPage,
	}
}

// TotalPages returns ceil(totalCount / perPage), or 0 when there is nothing to page through.
func TotalPages(perPage, totalCount int) int {
	if totalCount <= 0 || perPage <= 0 {
		return 0
	}
	return (totalCount + perPage - 1) / perPage
}

// Offset returns how many items precede page.
func Offset(page, perPage int) int {
	if page < 1 || perPage < 1 {
		return 0
	}
	return (page - 1) * perPage
}

// DisplayRange returns the 1-based positions of the first and last item shown on page.
// ok is false when there is no range to show.
func DisplayRange(page, perPage, totalCount int) (start, end int, ok bool) {
	if totalCount <= 0 || page < 1 || perPage < 1 {
		return 0, 0, false
	}
	start = Offset(page, perPage) + 1
	if start > totalCount {
		return 0, 0, false
	}
	end = min(page*perPage, totalCount)
	return start, end, true
}
