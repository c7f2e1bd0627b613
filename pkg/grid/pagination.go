package grid

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// AllRows is the page size that disables paging.
const AllRows = 0

// pageWindowDelta is how many page numbers surround the current page.
const pageWindowDelta = 2

// DefaultPageSizes are the page sizes offered by the page-size selector.
var DefaultPageSizes = []int{10, 25, 50, 100, AllRows}

// Pagination is a snapshot of pager state.
type Pagination struct {
	Page       int `json:"page" yaml:"page"`
	PageSize   int `json:"pageSize" yaml:"pageSize"`
	TotalRows  int `json:"totalRows" yaml:"totalRows"`
	TotalPages int `json:"totalPages" yaml:"totalPages"`
}

// TotalPages returns ceil(total/pageSize), or 1 in all-rows mode.
func TotalPages(total, pageSize int) int {
	if pageSize <= 0 {
		return 1
	}
	if total <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}

// Pager is the page/page-size state machine.
type Pager struct {
	page     int
	pageSize int
	total    int
	onChange func(Pagination)
}

// NewPager returns a pager on page 1.
func NewPager(pageSize int) *Pager {
	if pageSize < 0 {
		pageSize = AllRows
	}
	return &Pager{page: 1, pageSize: pageSize}
}

// OnChange registers the callback fired when page or page size changes.
func (p *Pager) OnChange(fn func(Pagination)) {
	p.onChange = fn
}

// State returns the current pagination snapshot.
func (p *Pager) State() Pagination {
	return Pagination{
		Page:       p.page,
		PageSize:   p.pageSize,
		TotalRows:  p.total,
		TotalPages: p.TotalPages(),
	}
}

// Page is the current 1-based page.
func (p *Pager) Page() int { return p.page }

// PageSize is the rows per page; AllRows disables paging.
func (p *Pager) PageSize() int { return p.pageSize }

// Total is the row count being paged.
func (p *Pager) Total() int { return p.total }

// AllRowsMode reports whether paging is disabled.
func (p *Pager) AllRowsMode() bool {
	return p.pageSize == AllRows
}

// TotalPages is the number of pages for the current total and page size.
func (p *Pager) TotalPages() int {
	return TotalPages(p.total, p.pageSize)
}

func (p *Pager) lastPage() int {
	if n := p.TotalPages(); n > 1 {
		return n
	}
	return 1
}

// SetTotal updates the row count and pulls the page back into range without
// firing the change callback.
func (p *Pager) SetTotal(total int) {
	if total < 0 {
		total = 0
	}
	p.total = total
	if p.page > p.lastPage() {
		p.page = p.lastPage()
	}
}

// rewind returns to page 1 without firing; used when the row set changes
// underneath the pager.
func (p *Pager) rewind() {
	p.page = 1
}

// GoToPage moves to page n clamped to [1, totalPages]. It returns false and
// fires nothing when the clamped page equals the current page.
func (p *Pager) GoToPage(n int) bool {
	if p.AllRowsMode() {
		return false
	}
	if n < 1 {
		n = 1
	}
	if last := p.lastPage(); n > last {
		n = last
	}
	if n == p.page {
		return false
	}
	p.page = n
	p.fire()
	return true
}

// SetPageSize changes the page size and always resets to page 1.
func (p *Pager) SetPageSize(n int) {
	if n < 0 {
		n = AllRows
	}
	p.pageSize = n
	p.page = 1
	p.fire()
}

// First goes to page 1 and reports whether the page changed.
func (p *Pager) First() bool { return p.GoToPage(1) }

// Prev goes back one page, stopping at page 1.
func (p *Pager) Prev() bool { return p.GoToPage(p.page - 1) }

// Next goes forward one page, stopping at the last page.
func (p *Pager) Next() bool { return p.GoToPage(p.page + 1) }

// Last goes to the final page.
func (p *Pager) Last() bool { return p.GoToPage(p.lastPage()) }

// HasPrev reports whether a previous page exists.
func (p *Pager) HasPrev() bool {
	return !p.AllRowsMode() && p.page > 1
}

// HasNext reports whether a next page exists.
func (p *Pager) HasNext() bool {
	return !p.AllRowsMode() && p.page < p.lastPage()
}

// Bounds returns the [start, end) row offsets of the current page within total rows.
func (p *Pager) Bounds() (start, end int) {
	if p.AllRowsMode() {
		return 0, p.total
	}
	start = (p.page - 1) * p.pageSize
	if start > p.total {
		start = p.total
	}
	end = start + p.pageSize
	if end > p.total {
		end = p.total
	}
	return start, end
}

// Slice returns the rows of the current page.
func (p *Pager) Slice(rows []Row) []Row {
	start, end := p.Bounds()
	if end > len(rows) {
		end = len(rows)
	}
	if start > end {
		start = end
	}
	return rows[start:end]
}

// Summary is the record-count line shown next to the pager.
func (p *Pager) Summary() string {
	if p.AllRowsMode() {
		return fmt.Sprintf("Showing all %d rows", p.total)
	}
	if p.total == 0 {
		return "Showing 0 of 0 rows"
	}
	start, end := p.Bounds()
	return fmt.Sprintf("Showing %d-%d of %d rows", start+1, end, p.total)
}

func (p *Pager) fire() {
	if p.onChange != nil {
		p.onChange(p.State())
	}
}

// PageItem is one entry of the page-number window: a page number or an ellipsis.
type PageItem struct {
	Page     int
	Ellipsis bool
	Current  bool
}

func (i PageItem) String() string {
	if i.Ellipsis {
		return "…"
	}
	return strconv.Itoa(i.Page)
}

// Window returns the page-number window for the current page.
func (p *Pager) Window() []PageItem {
	if p.AllRowsMode() {
		return nil
	}
	return PageWindow(p.page, p.TotalPages())
}

// PageWindow always includes the first and last page and pageWindowDelta
// pages on each side of current. A gap of exactly one page shows that page;
// larger gaps collapse into a single ellipsis.
func PageWindow(current, totalPages int) []PageItem {
	if totalPages <= 0 {
		return nil
	}
	pages := make([]int, 0, 2*pageWindowDelta+3)
	seen := make(map[int]bool)
	add := func(n int) {
		if n >= 1 && n <= totalPages && !seen[n] {
			seen[n] = true
			pages = append(pages, n)
		}
	}
	add(1)
	for i := current - pageWindowDelta; i <= current+pageWindowDelta; i++ {
		add(i)
	}
	add(totalPages)
	sort.Ints(pages)
	items := make([]PageItem, 0, len(pages)+2)
	last := 0
	for _, n := range pages {
		if last > 0 {
			switch gap := n - last; {
			case gap == 2:
				items = append(items, PageItem{Page: last + 1, Current: last+1 == current})
			case gap > 2:
				items = append(items, PageItem{Ellipsis: true})
			}
		}
		items = append(items, PageItem{Page: n, Current: n == current})
		last = n
	}
	return items
}

// FormatWindow renders a window as "1 … 4 [5] 6 … 10".
func FormatWindow(items []PageItem) string {
	parts := make([]string, len(items))
	for i, it := range items {
		if it.Current {
			parts[i] = "[" + it.String() + "]"
		} else {
			parts[i] = it.String()
		}
	}
	return strings.Join(parts, " ")
}

// PageInput is the free-text page-number box.
type PageInput struct {
	pager *Pager
	Text  string
}

// NewPageInput binds an input box to a pager, showing the current page.
func NewPageInput(p *Pager) *PageInput {
	return &PageInput{pager: p, Text: strconv.Itoa(p.Page())}
}

// Commit applies the typed page when it is an integer within range that
// differs from the current page. Anything else silently reverts the text.
func (in *PageInput) Commit() bool {
	n, err := strconv.Atoi(strings.TrimSpace(in.Text))
	committed := false
	if err == nil && n >= 1 && n <= in.pager.TotalPages() && n != in.pager.Page() {
		committed = in.pager.GoToPage(n)
	}
	in.Text = strconv.Itoa(in.pager.Page())
	return committed
}
