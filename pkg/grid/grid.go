// Package grid is a headless data grid: column definitions, row data, sort,
// filter, pagination, selection and column state, with a deterministic view
// computed from those inputs. Hosts render the view and route user input
// back into the grid.
package grid

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/text/language"
)

// Mode selects who computes the visible rows.
type Mode int

const (
	// ClientMode sorts, filters and pages the supplied rows locally.
	ClientMode Mode = iota
	// ServerMode displays the supplied rows as the current page and only relays state changes.
	ServerMode
)

func (m Mode) String() string {
	if m == ServerMode {
		return "server"
	}
	return "client"
}

// FilterChange carries the complete set of active filters after a change.
type FilterChange struct {
	Conditions   []Condition   `json:"conditions"`
	ValueFilters []ValueFilter `json:"valueFilters"`
}

// Callbacks are the optional notifications a grid raises. A nil callback
// makes that interaction local only.
type Callbacks struct {
	OnSort             func(*SortState)
	OnFilterChange     func(FilterChange)
	OnSearch           func(string)
	OnPageChange       func(Pagination)
	OnRowSelect        func([]string)
	OnColumnVisibility func(field string, visible bool)
	OnColumnsChange    func([]ColumnState)
	OnExport           func(ExportFormat)
	OnImport           func(path string)
}

// Option configures a Grid.
type Option func(*Grid)

// WithMode selects client or server mode.
func WithMode(m Mode) Option {
	return func(g *Grid) { g.mode = m }
}

// WithPageSize sets the initial page size (AllRows for no paging).
func WithPageSize(n int) Option {
	return func(g *Grid) { g.pageSize = n }
}

// WithCallbacks registers notification callbacks.
func WithCallbacks(cb Callbacks) Option {
	return func(g *Grid) { g.cb = cb }
}

// WithLocale sets the collation locale for string sorting.
func WithLocale(tag language.Tag) Option {
	return func(g *Grid) { g.locale = tag }
}

// WithOptionLoader makes filter popovers fetch their options asynchronously.
func WithOptionLoader(l OptionLoader) Option {
	return func(g *Grid) { g.loader = l }
}

// WithManualOptionLoads leaves scheduling of option loads to the host
// (Popover.BeginLoad / Popover.Load), for hosts with their own event loop.
func WithManualOptionLoads() Option {
	return func(g *Grid) { g.manualLoads = true }
}

// WithSearchDebounce overrides the search debounce delay.
func WithSearchDebounce(d time.Duration) Option {
	return func(g *Grid) { g.searchDelay = d }
}

// WithOptionDebounce overrides the popover search debounce delay.
func WithOptionDebounce(d time.Duration) Option {
	return func(g *Grid) { g.optionDelay = d }
}

// WithPredicate adds a client-side row predicate combined with AND.
func WithPredicate(p Predicate) Option {
	return func(g *Grid) {
		if p != nil {
			g.predicates = append(g.predicates, p)
		}
	}
}

// WithContext sets the parent context handed to option loaders.
func WithContext(ctx context.Context) Option {
	return func(g *Grid) { g.parent = ctx }
}

// WithPointerHub shares a pointer hub with the host.
func WithPointerHub(h *PointerHub) Option {
	return func(g *Grid) { g.hub = h }
}

// Grid is the grid core. It is driven from a single goroutine; only popover
// option loads complete asynchronously.
type Grid struct {
	parent context.Context
	ctx    context.Context
	cancel context.CancelFunc

	mode         Mode
	pageSize     int
	locale       language.Tag
	loader       OptionLoader
	manualLoads  bool
	searchDelay  time.Duration
	optionDelay  time.Duration
	predicates   []Predicate
	pointerScale int
	cb           Callbacks

	columns   *ColumnSet
	rows      []Row
	loading   bool
	total     int
	sort      *SortState
	filters   FilterSet
	selection *Selection
	pager     *Pager
	toolbar   *Toolbar
	cmp       *comparator

	hub     *PointerHub
	scope   scope
	popover *Popover
	editor  *ConditionEditor
	drag    string

	derived      []Row
	derivedValid bool
	closed       bool
}

// New builds a grid over columns. Column fields must be unique.
func New(columns []Column, opts ...Option) (*Grid, error) {
	cs, err := newColumnSet(columns)
	if err != nil {
		return nil, err
	}
	g := &Grid{
		parent:       context.Background(),
		pageSize:     DefaultPageSizes[0],
		locale:       language.English,
		searchDelay:  DefaultSearchDebounce,
		optionDelay:  DefaultOptionDebounce,
		pointerScale: 1,
		columns:      cs,
		selection:    NewSelection(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.ctx, g.cancel = context.WithCancel(g.parent)
	if g.hub == nil {
		g.hub = NewPointerHub()
	}
	g.cmp = newComparator(g.locale)
	g.pager = NewPager(g.pageSize)
	g.pager.OnChange(func(p Pagination) {
		if g.cb.OnPageChange != nil {
			g.cb.OnPageChange(p)
		}
	})
	g.toolbar = newToolbar(g.cb, g.searchDelay)
	return g, nil
}

// Mode reports the grid mode.
func (g *Grid) Mode() Mode { return g.mode }

// Context is cancelled by Close.
func (g *Grid) Context() context.Context { return g.ctx }

// Pointer is the hub hosts dispatch pointer events into.
func (g *Grid) Pointer() *PointerHub { return g.hub }

// Pager exposes the pagination controller.
func (g *Grid) Pager() *Pager { return g.pager }

// Toolbar exposes the search box and export/import triggers.
func (g *Grid) Toolbar() *Toolbar { return g.toolbar }

// Columns returns all columns with state applied.
func (g *Grid) Columns() []Column { return g.columns.Columns() }

// ColumnSet exposes column state management.
func (g *Grid) ColumnSet() *ColumnSet { return g.columns }

// VisibleColumns returns the columns to render, pinned groups at the edges.
func (g *Grid) VisibleColumns() []Column { return g.columns.Visible() }

// Column returns one column with state applied.
func (g *Grid) Column(field string) (Column, bool) { return g.columns.Column(field) }

// SetRows replaces the row data. In client mode the pager total follows the
// filtered row count; in server mode use SetTotalRows.
func (g *Grid) SetRows(rows []Row) {
	g.rows = rows
	g.invalidate()
}

// Rows returns the rows supplied by the host.
func (g *Grid) Rows() []Row { return g.rows }

// SetLoading toggles the loading state.
func (g *Grid) SetLoading(loading bool) { g.loading = loading }

// Loading reports the loading state.
func (g *Grid) Loading() bool { return g.loading }

// SetTotalRows records the server-side row count used for paging in server mode.
func (g *Grid) SetTotalRows(n int) {
	g.total = n
	if g.mode == ServerMode {
		g.pager.SetTotal(n)
	}
}

// Sort returns the active sort, or nil.
func (g *Grid) Sort() *SortState {
	if g.sort == nil {
		return nil
	}
	s := *g.sort
	return &s
}

// sortsLocally reports whether the grid orders rows itself.
func (g *Grid) sortsLocally() bool {
	return g.mode == ClientMode && g.cb.OnSort == nil
}

// SetSort replaces the active sort without the tri-state cycle.
func (g *Grid) SetSort(s *SortState) error {
	if s != nil {
		if !g.columns.Has(s.Field) {
			return fmt.Errorf("%w: %s", ErrUnknownField, s.Field)
		}
		if s.Direction != Asc && s.Direction != Desc {
			return fmt.Errorf("invalid sort direction %q", s.Direction)
		}
		c := *s
		s = &c
	}
	g.sort = s
	g.columns.setSort(s)
	g.invalidate()
	if g.cb.OnSort != nil {
		g.cb.OnSort(g.Sort())
	}
	return nil
}

// AddPredicate adds a client-side row predicate.
func (g *Grid) AddPredicate(p Predicate) {
	if p == nil {
		return
	}
	g.predicates = append(g.predicates, p)
	g.invalidate()
}

// Refilter recomputes the view after the inputs of a host predicate changed,
// for example a client-side search box, and silently returns to page 1.
func (g *Grid) Refilter() {
	g.pager.rewind()
	g.invalidate()
}

// invalidate drops the cached derived rows and pulls the page back into range.
func (g *Grid) invalidate() {
	g.derivedValid = false
	if g.mode == ClientMode {
		g.pager.SetTotal(len(g.derivedRows()))
	}
}

// derivedRows is the filtered and sorted row set (client mode) or the rows as supplied.
func (g *Grid) derivedRows() []Row {
	if g.derivedValid {
		return g.derived
	}
	rows := g.rows
	if g.mode == ClientMode {
		rows = g.filters.Apply(rows, g.predicates...)
		if g.sort != nil && g.sortsLocally() {
			if col, ok := g.columns.Column(g.sort.Field); ok {
				rows = g.cmp.sortRows(rows, col, g.sort.Direction)
			}
		}
	}
	g.derived = rows
	g.derivedValid = true
	return rows
}

// FilteredRows returns every row that passes the filters, in display order,
// before paging.
func (g *Grid) FilteredRows() []Row {
	return append([]Row(nil), g.derivedRows()...)
}

// PageRows returns the rows of the current page.
func (g *Grid) PageRows() []Row {
	rows := g.derivedRows()
	if g.mode == ServerMode {
		return rows
	}
	return g.pager.Slice(rows)
}

// TotalRows is the row count the pager works with.
func (g *Grid) TotalRows() int {
	if g.mode == ServerMode {
		return g.total
	}
	return len(g.derivedRows())
}

// Cell renders one cell through the column renderer or the default
// formatter. Renderer panics propagate to the caller.
func (g *Grid) Cell(row Row, col Column) string {
	v := row.Value(col.Field)
	if col.Renderer != nil {
		return col.Renderer(v, row)
	}
	return FormatValue(col.Type, v)
}

// Selection

// IsSelected reports whether the row key is selected.
func (g *Grid) IsSelected(key string) bool { return g.selection.Has(key) }

// Selected returns the selected keys in selection order.
func (g *Grid) Selected() []string { return g.selection.Keys() }

// ToggleRow flips the selection of one row key.
func (g *Grid) ToggleRow(key string) bool {
	on := g.selection.Toggle(key)
	g.fireSelect()
	return on
}

// SelectAll selects every row of the current page of the visible view.
func (g *Grid) SelectAll() {
	for _, r := range g.PageRows() {
		g.selection.Add(r.Key())
	}
	g.fireSelect()
}

// ToggleAll selects the current page, or deselects it when it is fully selected.
func (g *Grid) ToggleAll() {
	rows := g.PageRows()
	all := len(rows) > 0
	for _, r := range rows {
		if !g.selection.Has(r.Key()) {
			all = false
			break
		}
	}
	if !all {
		g.SelectAll()
		return
	}
	for _, r := range rows {
		g.selection.Remove(r.Key())
	}
	g.fireSelect()
}

// ClearSelection deselects everything.
func (g *Grid) ClearSelection() {
	g.selection.Clear()
	g.fireSelect()
}

func (g *Grid) fireSelect() {
	if g.cb.OnRowSelect != nil {
		g.cb.OnRowSelect(g.selection.Keys())
	}
}

// Paging shortcuts that keep cached state consistent.

// GoToPage moves to page n (clamped).
func (g *Grid) GoToPage(n int) bool { return g.pager.GoToPage(n) }

// SetPageSize changes the page size and returns to page 1.
func (g *Grid) SetPageSize(n int) { g.pager.SetPageSize(n) }

// View is the deterministic render input for hosts.
type View struct {
	Columns    []Column
	Rows       []Row
	TotalRows  int
	Pagination Pagination
	Summary    string
	Window     []PageItem
	Sort       *SortState
	Chips      []Chip
	Search     string
	Selected   int
	Loading    bool
	Empty      bool
	Mode       Mode
}

// View computes what to render now.
func (g *Grid) View() View {
	rows := g.PageRows()
	return View{
		Columns:    g.VisibleColumns(),
		Rows:       rows,
		TotalRows:  g.TotalRows(),
		Pagination: g.pager.State(),
		Summary:    g.pager.Summary(),
		Window:     g.pager.Window(),
		Sort:       g.Sort(),
		Chips:      g.Chips(),
		Search:     g.toolbar.Text(),
		Selected:   g.selection.Len(),
		Loading:    g.loading,
		Empty:      !g.loading && len(rows) == 0,
		Mode:       g.mode,
	}
}

// Closed reports whether Close ran.
func (g *Grid) Closed() bool { return g.closed }

// Close tears the grid down: it closes the popover, releases every pointer
// subscription still held, stops debouncers and cancels the loader context.
func (g *Grid) Close() {
	if g.closed {
		return
	}
	g.closed = true
	if g.popover != nil {
		g.popover.Close()
		g.popover = nil
	}
	g.editor = nil
	g.drag = ""
	g.scope.releaseAll()
	g.toolbar.stop()
	g.cancel()
}
