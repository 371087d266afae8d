package shared

// Filter carries list query options shared by the product and promo repositories.
// Filters holds repository-specific keys such as "status" or "kind".
type Filter struct {
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
	Search   string
	Filters  map[string]interface{}
}

// Paged reports whether the filter asks for a single page
func (f Filter) Paged() bool {
	return f.Page > 0 && f.PageSize > 0
}

// Offset is the number of rows skipped before the requested page
func (f Filter) Offset() int {
	if !f.Paged() {
		return 0
	}
	return (f.Page - 1) * f.PageSize
}

// Window returns the [start, end) bounds of the requested page within n items.
// Unpaged filters cover everything.
func (f Filter) Window(n int) (int, int) {
	if !f.Paged() {
		return 0, n
	}
	start := min(f.Offset(), n)
	return start, min(start+f.PageSize, n)
}

// Paginated is a page of list results
type Paginated[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

func NewPaginated[T any](items []T, total int64, page, pageSize int) Paginated[T] {
	if pageSize <= 0 {
		pageSize = 1
	}
	return Paginated[T]{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: int((total + int64(pageSize) - 1) / int64(pageSize)),
	}
}
