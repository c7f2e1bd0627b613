package grid

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 3, TotalPages(25, 10))
	assert.Equal(t, 2, TotalPages(20, 10))
	assert.Equal(t, 0, TotalPages(0, 10))
	assert.Equal(t, 1, TotalPages(25, AllRows))
}

func TestPagerClampsWithoutCallback(t *testing.T) {
	p := NewPager(10)
	p.SetTotal(25)
	var fired []Pagination
	p.OnChange(func(s Pagination) { fired = append(fired, s) })

	require.Equal(t, 3, p.TotalPages())
	assert.True(t, p.GoToPage(4))
	assert.Equal(t, 3, p.Page())
	require.Len(t, fired, 1)
	assert.Equal(t, 3, fired[0].Page)

	assert.False(t, p.GoToPage(4), "already on the last page")
	assert.False(t, p.GoToPage(3))
	assert.Len(t, fired, 1)
	for _, s := range fired {
		assert.GreaterOrEqual(t, s.Page, 1)
		assert.LessOrEqual(t, s.Page, s.TotalPages)
	}
}

func TestPagerNavigation(t *testing.T) {
	p := NewPager(10)
	p.SetTotal(45)
	assert.False(t, p.HasPrev())
	assert.True(t, p.Next())
	assert.Equal(t, 2, p.Page())
	assert.True(t, p.Last())
	assert.Equal(t, 5, p.Page())
	assert.False(t, p.HasNext())
	assert.False(t, p.Next())
	assert.True(t, p.Prev())
	assert.True(t, p.First())
	assert.Equal(t, 1, p.Page())
	assert.False(t, p.GoToPage(-3))
}

func TestPagerSetPageSizeResetsPage(t *testing.T) {
	p := NewPager(10)
	p.SetTotal(100)
	p.GoToPage(7)
	calls := 0
	p.OnChange(func(Pagination) { calls++ })

	p.SetPageSize(25)
	assert.Equal(t, 1, p.Page())
	assert.Equal(t, 25, p.PageSize())
	assert.Equal(t, 1, calls)
}

func TestPagerSetTotalPullsPageBack(t *testing.T) {
	p := NewPager(10)
	p.SetTotal(100)
	p.GoToPage(10)
	p.SetTotal(15)
	assert.Equal(t, 2, p.Page())
	p.SetTotal(0)
	assert.Equal(t, 1, p.Page())
}

func TestPagerPagesPartitionRows(t *testing.T) {
	for _, total := range []int{0, 1, 9, 10, 11, 25, 100} {
		for _, size := range []int{1, 3, 10, 25} {
			t.Run(fmt.Sprintf("%d/%d", total, size), func(t *testing.T) {
				rows := make([]Row, total)
				for i := range rows {
					rows[i] = Row{"id": i}
				}
				p := NewPager(size)
				p.SetTotal(total)

				seen := make(map[string]bool)
				for n := 1; n <= p.TotalPages(); n++ {
					p.GoToPage(n)
					page := p.Slice(rows)
					assert.Len(t, page, min(size, total-(n-1)*size))
					for _, r := range page {
						assert.False(t, seen[r.Key()], "duplicate row %s", r.Key())
						seen[r.Key()] = true
					}
				}
				assert.Len(t, seen, total)
			})
		}
	}
}

func TestPagerAllRowsMode(t *testing.T) {
	p := NewPager(AllRows)
	p.SetTotal(42)
	calls := 0
	p.OnChange(func(Pagination) { calls++ })

	assert.True(t, p.AllRowsMode())
	assert.Equal(t, 1, p.TotalPages())
	assert.False(t, p.GoToPage(2))
	assert.False(t, p.HasNext())
	assert.Nil(t, p.Window())
	assert.Equal(t, "Showing all 42 rows", p.Summary())
	start, end := p.Bounds()
	assert.Equal(t, 0, start)
	assert.Equal(t, 42, end)
	assert.Zero(t, calls)
}

func TestPagerSummary(t *testing.T) {
	p := NewPager(10)
	assert.Equal(t, "Showing 0 of 0 rows", p.Summary())
	p.SetTotal(25)
	assert.Equal(t, "Showing 1-10 of 25 rows", p.Summary())
	p.Last()
	assert.Equal(t, "Showing 21-25 of 25 rows", p.Summary())
}

func TestPageWindow(t *testing.T) {
	tests := []struct {
		current, total int
		want           string
	}{
		{1, 1, "[1]"},
		{1, 5, "[1] 2 3 4 5"},
		{1, 10, "[1] 2 3 … 10"},
		{5, 10, "1 2 3 4 [5] 6 7 … 10"},
		{6, 10, "1 … 4 5 [6] 7 8 9 10"},
		{10, 10, "1 … 8 9 [10]"},
		{50, 100, "1 … 48 49 [50] 51 52 … 100"},
		{4, 7, "1 2 3 [4] 5 6 7"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatWindow(PageWindow(tt.current, tt.total)))
		})
	}
	assert.Empty(t, PageWindow(1, 0))
}

func TestPageWindowHasNoDuplicates(t *testing.T) {
	for total := 1; total <= 30; total++ {
		for cur := 1; cur <= total; cur++ {
			seen := make(map[int]bool)
			for _, it := range PageWindow(cur, total) {
				if it.Ellipsis {
					continue
				}
				require.False(t, seen[it.Page], "page %d repeated for %d/%d", it.Page, cur, total)
				seen[it.Page] = true
			}
			assert.True(t, seen[1])
			assert.True(t, seen[total])
			assert.True(t, seen[cur])
		}
	}
}

func TestPageInputCommit(t *testing.T) {
	p := NewPager(10)
	p.SetTotal(50)
	in := NewPageInput(p)
	assert.Equal(t, "1", in.Text)

	in.Text = " 3 "
	assert.True(t, in.Commit())
	assert.Equal(t, 3, p.Page())
	assert.Equal(t, "3", in.Text)

	for _, bad := range []string{"abc", "0", "6", "3", "-1", ""} {
		in.Text = bad
		assert.False(t, in.Commit(), bad)
		assert.Equal(t, "3", in.Text, "input %q should revert", bad)
		assert.Equal(t, 3, p.Page())
	}
}
