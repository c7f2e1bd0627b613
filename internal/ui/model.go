// Package ui is the interactive terminal grid. It drives a pkg/grid Grid
// from keyboard and mouse input and, in server mode, pages against a Backend.
package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"github.com/go-logr/logr"
	"golang.org/x/text/language"

	"github.com/oakwood-commons/fleetgrid/internal/api"
	"github.com/oakwood-commons/fleetgrid/internal/resources"
	"github.com/oakwood-commons/fleetgrid/internal/ui/table"
	"github.com/oakwood-commons/fleetgrid/pkg/grid"
	"github.com/oakwood-commons/fleetgrid/pkg/logger"
)

// ErrSessionExpired is returned by Run when the backend rejected the
// credentials mid-session.
var ErrSessionExpired = errors.New("session expired, log in again")

const (
	// DefaultPointerScale is how many grid width units one terminal cell spans.
	DefaultPointerScale = 8

	selectWidth  = 2
	minCellWidth = 4
	toastTTL     = 4 * time.Second

	// screen rows above the table
	titleY   = 0
	toolbarY = 1
	chipsY   = 2
	headerY  = 3

	// title, toolbar, chips, pager and status lines
	chromeLines = 5
)

type mode int

const (
	modeNormal mode = iota
	modeSearch
	modePopover
	modeEditor
	modePageInput
	modeChips
	modeColumns
	modeDetail
	modeExport
	modeImport
	modeHelp
)

// Options configures a Model.
type Options struct {
	Resource resources.Resource

	// Backend switches the grid to server mode. Without one the grid works
	// over Rows in memory.
	Backend Backend
	Rows    []grid.Row

	// PageSize 0 shows all rows.
	PageSize       int
	PageSizes      []int
	SearchDebounce time.Duration
	OptionDebounce time.Duration
	OptionLimit    int
	Locale         language.Tag
	PointerScale   int
	NoColor        bool

	ExportDir    string
	ExportFormat grid.ExportFormat

	ColumnStates    []grid.ColumnState
	OnColumnsChange func([]grid.ColumnState)

	// Width and Height fix the screen size until the terminal reports one.
	Width  int
	Height int

	Now func() time.Time
}

type toast struct {
	text  string
	isErr bool
}

// Model is the bubbletea model for one resource grid.
type Model struct {
	ctx  context.Context
	log  *logr.Logger
	opts Options
	res  resources.Resource

	grid   *grid.Grid
	view   grid.View
	table  *table.Model[grid.Row]
	search textinput.Model
	input  textinput.Model
	spin   spinner.Model
	styles Styles

	mode      mode
	col       int
	chip      int
	columnSel int
	popCursor int
	editor    *grid.ConditionEditor
	pageInput *grid.PageInput
	resize    *grid.ResizeGesture
	cols      []grid.Column
	filtered  map[string]bool

	gen           uint64
	dirty         bool
	spinning      bool
	searchSeq     int
	optionSeq     int
	toast         toast
	toastSeq      int
	pendingExport grid.ExportFormat
	pendingImport string

	broken   error
	expired  bool
	quitting bool
	width    int
	height   int
}

// New builds the model and its grid. ctx bounds every backend call and
// carries the logger.
func New(ctx context.Context, opts Options) (*Model, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.PointerScale <= 0 {
		opts.PointerScale = DefaultPointerScale
	}
	if len(opts.PageSizes) == 0 {
		opts.PageSizes = grid.DefaultPageSizes
	}
	if opts.ExportFormat == "" {
		opts.ExportFormat = grid.FormatCSV
	}
	if opts.ExportDir == "" {
		opts.ExportDir = "."
	}
	m := &Model{
		ctx:       ctx,
		log:       logger.WithValues(logger.FromContext(ctx), logger.ResourceKey, opts.Resource.Name),
		opts:      opts,
		res:       opts.Resource,
		styles:    NewStyles(DefaultPalette(), opts.NoColor),
		popCursor: -1,
		width:     100,
		height:    30,
	}
	if opts.Width > 0 {
		m.width = opts.Width
	}
	if opts.Height > 0 {
		m.height = opts.Height
	}

	gopts := []grid.Option{
		grid.WithPageSize(opts.PageSize),
		grid.WithLocale(opts.Locale),
		grid.WithContext(ctx),
		grid.WithSearchDebounce(0),
		grid.WithManualOptionLoads(),
		grid.WithPointerScale(opts.PointerScale),
		grid.WithCallbacks(m.callbacks()),
	}
	if opts.Backend != nil {
		gopts = append(gopts,
			grid.WithMode(grid.ServerMode),
			grid.WithOptionLoader(opts.Backend.OptionLoader(m.res.Name, opts.OptionLimit)),
		)
	} else {
		gopts = append(gopts, grid.WithPredicate(m.matchesSearch))
	}
	g, err := grid.New(m.res.Columns, gopts...)
	if err != nil {
		return nil, fmt.Errorf("building %s grid: %w", m.res.Name, err)
	}
	m.grid = g
	if len(opts.ColumnStates) > 0 {
		g.ApplyColumnStates(opts.ColumnStates)
	}
	if opts.Backend == nil {
		g.SetRows(opts.Rows)
	}

	m.table = table.NewModel(nil, m.toRow, grid.Row.Key)
	m.table.SetNoColor(opts.NoColor)
	if !opts.NoColor {
		p := DefaultPalette()
		m.table.SetColors(p.HeaderFG, p.HeaderBG, p.SelectedFG, p.SelectedBG)
	}
	m.search = newInput("search: ", "name, id, ...")
	m.input = newInput("", "")
	m.spin = spinner.New(spinner.WithSpinner(spinner.MiniDot))

	m.layout()
	m.sync()
	return m, nil
}

func newInput(prompt, placeholder string) textinput.Model {
	ti := textinput.New()
	ti.Prompt = prompt
	ti.Placeholder = placeholder
	ti.CharLimit = 256
	return ti
}

// Grid exposes the underlying grid.
func (m *Model) Grid() *grid.Grid { return m.grid }

// Expired reports whether the backend rejected the session.
func (m *Model) Expired() bool { return m.expired }

// Broken returns the render failure shown in place of the grid, if any.
func (m *Model) Broken() error { return m.broken }

// callbacks wires grid events to the model. OnSort is only installed against
// a backend: with it set the grid leaves row order to the handler.
func (m *Model) callbacks() grid.Callbacks {
	cb := grid.Callbacks{
		OnFilterChange: func(f grid.FilterChange) {
			m.log.V(1).Info("filters changed", "conditions", len(f.Conditions), "valueFilters", len(f.ValueFilters))
			m.dirty = true
		},
		OnSearch: func(text string) {
			m.log.V(1).Info("search changed", "search", text)
			m.dirty = true
		},
		OnPageChange: func(p grid.Pagination) {
			m.log.V(1).Info("page changed", "page", p.Page, "pageSize", p.PageSize)
			m.dirty = true
		},
		OnColumnsChange: func(states []grid.ColumnState) {
			if m.opts.OnColumnsChange != nil {
				m.opts.OnColumnsChange(states)
			}
		},
		OnExport: func(f grid.ExportFormat) { m.pendingExport = f },
		OnImport: func(path string) { m.pendingImport = path },
	}
	if m.serverMode() {
		cb.OnSort = func(s *grid.SortState) {
			m.log.V(1).Info("sort changed", "sort", s.String())
			m.dirty = true
		}
	}
	return cb
}

func (m *Model) matchesSearch(r grid.Row) bool {
	if m.grid == nil {
		return true
	}
	return m.res.Matches(r, m.grid.Toolbar().Text())
}

func (m *Model) serverMode() bool { return m.opts.Backend != nil }

// Init starts the first fetch in server mode.
func (m *Model) Init() tea.Cmd {
	if m.serverMode() {
		return m.fetch()
	}
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
	case tea.KeyPressMsg:
		cmds = append(cmds, m.handleKey(msg))
		m.sync()
	case tea.MouseClickMsg:
		cmds = append(cmds, m.handleClick(msg.Mouse()))
		m.sync()
	case tea.MouseMotionMsg:
		if m.resize != nil {
			mouse := msg.Mouse()
			m.grid.Pointer().Dispatch(grid.PointerEvent{Kind: grid.PointerMove, X: mouse.X, Y: mouse.Y})
			m.sync()
		}
	case tea.MouseReleaseMsg:
		mouse := msg.Mouse()
		m.grid.Pointer().Dispatch(grid.PointerEvent{Kind: grid.PointerUp, X: mouse.X, Y: mouse.Y})
		m.resize = nil
		m.sync()
	case rowsMsg:
		cmds = append(cmds, m.handleRows(msg))
		m.sync()
	case optionsMsg:
		if p := m.grid.ActivePopover(); p != nil && p.Field() == msg.field {
			m.popCursor = min(m.popCursor, len(p.Options()))
		}
	case searchTickMsg:
		if msg.seq == m.searchSeq {
			m.applySearch()
			m.sync()
		}
	case optionTickMsg:
		if msg.seq == m.optionSeq {
			cmds = append(cmds, m.loadOptions())
		}
	case toastExpiredMsg:
		if msg.seq == m.toastSeq {
			m.toast = toast{}
		}
	case exportedMsg:
		if msg.err != nil {
			cmds = append(cmds, m.fail(msg.err))
		} else {
			m.log.Info("export written", "path", msg.path)
			cmds = append(cmds, m.notify("exported to "+msg.path, false))
		}
	case importedMsg:
		cmds = append(cmds, m.handleImported(msg))
		m.sync()
	case spinner.TickMsg:
		if !m.busy() {
			m.spinning = false
			break
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		cmds = append(cmds, cmd)
	}
	if m.quitting {
		m.grid.Close()
		return m, tea.Quit
	}
	cmds = append(cmds, m.flush())
	return m, tea.Batch(cmds...)
}

func (m *Model) busy() bool {
	if m.grid.Loading() {
		return true
	}
	p := m.grid.ActivePopover()
	return p != nil && p.Loading()
}

func (m *Model) startSpinner() tea.Cmd {
	if m.spinning {
		return nil
	}
	m.spinning = true
	return m.spin.Tick
}

// flush turns state left behind by grid callbacks into commands.
func (m *Model) flush() tea.Cmd {
	var cmds []tea.Cmd
	if m.dirty && m.serverMode() {
		cmds = append(cmds, m.fetch())
	}
	m.dirty = false
	if f := m.pendingExport; f != "" {
		m.pendingExport = ""
		cmds = append(cmds, m.exportCmd(f))
	}
	if path := m.pendingImport; path != "" {
		m.pendingImport = ""
		cmds = append(cmds, m.importCmd(path))
	}
	return tea.Batch(cmds...)
}

// fetch requests the page the grid currently describes. Responses for older
// generations are dropped.
func (m *Model) fetch() tea.Cmd {
	m.gen++
	gen := m.gen
	q := api.QueryFromGrid(m.grid)
	m.grid.SetLoading(true)
	m.log.V(1).Info("fetching page", "page", q.Page, "limit", q.Limit, "generation", gen)
	backend, ctx, name := m.opts.Backend, m.ctx, m.res.Name
	return tea.Batch(m.startSpinner(), func() tea.Msg {
		res, err := backend.List(ctx, name, q)
		return rowsMsg{gen: gen, result: res, err: err}
	})
}

func (m *Model) handleRows(msg rowsMsg) tea.Cmd {
	if msg.gen != m.gen {
		m.log.V(1).Info("dropping stale page", "generation", msg.gen, "current", m.gen)
		return nil
	}
	m.grid.SetLoading(false)
	if msg.err != nil {
		return m.fail(msg.err)
	}
	m.grid.SetRows(msg.result.Rows)
	m.grid.SetTotalRows(msg.result.Pagination.Total)
	return nil
}

// fail reports err. A rejected session ends the program.
func (m *Model) fail(err error) tea.Cmd {
	if errors.Is(err, api.ErrUnauthorized) {
		m.log.Info("session rejected by backend")
		m.expired = true
		m.quitting = true
		return nil
	}
	m.log.Error(err, "request failed")
	return m.notify(err.Error(), true)
}

func (m *Model) notify(text string, isErr bool) tea.Cmd {
	m.toastSeq++
	seq := m.toastSeq
	m.toast = toast{text: text, isErr: isErr}
	return tea.Tick(toastTTL, func(time.Time) tea.Msg { return toastExpiredMsg{seq: seq} })
}

func (m *Model) notifyErr(err error) tea.Cmd {
	return m.notify(err.Error(), true)
}

// reload clears a render failure and, in server mode, fetches again.
func (m *Model) reload() tea.Cmd {
	if m.broken != nil {
		m.log.Info("reloading after render failure")
	}
	m.broken = nil
	m.col = 0
	if m.serverMode() {
		m.dirty = true
	}
	return nil
}

func (m *Model) layout() {
	m.search.SetWidth(max(m.width-len(m.search.Prompt)-4, 10))
	m.input.SetWidth(max(m.width/3, 16))
	m.table.SetSize(m.width, max(m.height-chromeLines, 3))
}

// sync copies the grid's view into the table widget. A panic from a cell
// renderer leaves the grid marked broken instead of taking the program down.
func (m *Model) sync() {
	if m.broken != nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			m.broken = fmt.Errorf("rendering %s: %v", m.res.Name, r)
			m.log.Error(m.broken, "grid render failed")
			m.table.SetRows(nil)
		}
	}()
	key := m.table.SelectedKey()
	m.view = m.grid.View()
	m.cols = m.view.Columns
	m.col = max(min(m.col, len(m.cols)-1), 0)
	m.filtered = make(map[string]bool)
	for _, c := range m.view.Chips {
		m.filtered[c.Field] = true
	}
	m.table.SetColumns(m.tableColumns())
	m.table.SetRows(m.view.Rows)
	if key != "" {
		m.table.SetCursorByKey(key)
	}
	if p := m.grid.ActivePopover(); p != nil {
		p.SetBounds(m.popoverBounds(p))
	}
}

var cellReplacer = strings.NewReplacer("\r\n", " ", "\n", " ", "\t", " ")

func (m *Model) toRow(r grid.Row) table.Row {
	cells := make(table.Row, 0, len(m.cols)+1)
	mark := " "
	if m.grid.IsSelected(r.Key()) {
		mark = "✓"
	}
	cells = append(cells, mark)
	for _, c := range m.cols {
		if c.Type == grid.TypeActions {
			cells = append(cells, "↵ view")
			continue
		}
		cells = append(cells, cellReplacer.Replace(m.grid.Cell(r, c)))
	}
	return cells
}

func (m *Model) tableColumns() []table.Column {
	cols := make([]table.Column, 0, len(m.cols)+1)
	cols = append(cols, table.Column{Title: "", Width: selectWidth})
	s := m.view.Sort
	for i, c := range m.cols {
		title := c.Title()
		if s != nil && s.Field == c.Field {
			if s.Direction == grid.Asc {
				title += " ▲"
			} else {
				title += " ▼"
			}
		}
		if m.filtered[c.Field] {
			title += " ●"
		}
		if i == m.col {
			title = "›" + title
		}
		cols = append(cols, table.Column{Title: title, Width: m.cellWidth(c.Field)})
	}
	return cols
}

func (m *Model) cellWidth(field string) int {
	return max(m.grid.ColumnSet().Width(field)/m.opts.PointerScale, minCellWidth)
}

// columnSpan is the screen x and width of visible column i. Every cell is
// followed by one column of padding.
func (m *Model) columnSpan(i int) (x, w int) {
	x = selectWidth + 1
	for j := 0; j < i && j < len(m.cols); j++ {
		x += m.cellWidth(m.cols[j].Field) + 1
	}
	if i >= 0 && i < len(m.cols) {
		w = m.cellWidth(m.cols[i].Field)
	}
	return x, w
}

func (m *Model) focused() (grid.Column, bool) {
	if m.col < 0 || m.col >= len(m.cols) {
		return grid.Column{}, false
	}
	return m.cols[m.col], true
}
