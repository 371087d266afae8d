package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPaginated(t *testing.T) {
	tests := []struct {
		name       string
		total      int64
		pageSize   int
		totalPages int
	}{
		{"exact pages", 40, 20, 2},
		{"partial last page", 41, 20, 3},
		{"empty", 0, 20, 0},
		{"zero page size", 3, 0, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPaginated([]string{}, tt.total, 1, tt.pageSize)
			assert.Equal(t, tt.totalPages, p.TotalPages)
			assert.Equal(t, tt.total, p.Total)
		})
	}
}

func TestFilterWindow(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		n      int
		start  int
		end    int
		offset int
	}{
		{"unpaged", Filter{}, 7, 0, 7, 0},
		{"first page", Filter{Page: 1, PageSize: 3}, 7, 0, 3, 0},
		{"last partial page", Filter{Page: 3, PageSize: 3}, 7, 6, 7, 6},
		{"past the end", Filter{Page: 5, PageSize: 3}, 7, 7, 7, 12},
		{"page without size", Filter{Page: 2}, 7, 0, 7, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := tt.filter.Window(tt.n)
			assert.Equal(t, tt.start, start)
			assert.Equal(t, tt.end, end)
			assert.Equal(t, tt.offset, tt.filter.Offset())
		})
	}
}
