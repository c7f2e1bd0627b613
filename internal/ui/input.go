package ui

import (
	"fmt"
	"slices"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/oakwood-commons/fleetgrid/internal/export"
	"github.com/oakwood-commons/fleetgrid/pkg/grid"
)

func (m *Model) handleKey(msg tea.KeyPressMsg) tea.Cmd {
	if msg.String() == "ctrl+c" {
		m.quitting = true
		return nil
	}
	switch m.mode {
	case modeSearch:
		return m.keySearch(msg)
	case modePopover:
		return m.keyPopover(msg)
	case modeEditor:
		return m.keyEditor(msg)
	case modePageInput, modeExport, modeImport:
		return m.keyPrompt(msg)
	case modeChips:
		return m.keyChips(msg)
	case modeColumns:
		return m.keyColumns(msg)
	case modeDetail, modeHelp:
		switch msg.String() {
		case "esc", "q", "enter", "?", "f1":
			m.mode = modeNormal
		}
		return nil
	}
	return m.keyNormal(msg)
}

func (m *Model) keyNormal(msg tea.KeyPressMsg) tea.Cmd {
	k := msg.String()
	if m.broken != nil {
		switch actionFor(k) {
		case ActionReload:
			return m.reload()
		case ActionQuit:
			m.quitting = true
		}
		return nil
	}
	pager := m.grid.Pager()
	switch actionFor(k) {
	case ActionQuit:
		m.quitting = true
	case ActionColumnLeft:
		m.col = max(m.col-1, 0)
	case ActionColumnRight:
		m.col = min(m.col+1, len(m.cols)-1)
	case ActionSort:
		if c, ok := m.focused(); ok {
			if _, err := m.grid.CycleSort(c.Field); err != nil {
				return m.notifyErr(err)
			}
		}
	case ActionFilter:
		return m.openFilter()
	case ActionCondition:
		if c, ok := m.focused(); ok {
			ed, err := m.grid.EditCondition(c.Field)
			if err != nil {
				return m.notifyErr(err)
			}
			return m.startEditor(ed)
		}
	case ActionSearch:
		m.mode = modeSearch
		return m.search.Focus()
	case ActionNextPage:
		pager.Next()
	case ActionPrevPage:
		pager.Prev()
	case ActionFirstPage:
		pager.First()
	case ActionLastPage:
		pager.Last()
	case ActionGoToPage:
		if pager.AllRowsMode() {
			return nil
		}
		m.pageInput = grid.NewPageInput(pager)
		return m.prompt(modePageInput, "go to page: ", m.pageInput.Text)
	case ActionPageSize:
		m.cyclePageSize()
	case ActionHideColumn:
		if c, ok := m.focused(); ok {
			if len(m.cols) == 1 {
				return m.notify("the last visible column cannot be hidden", true)
			}
			if err := m.grid.ToggleColumn(c.Field); err != nil {
				return m.notifyErr(err)
			}
		}
	case ActionColumns:
		m.mode = modeColumns
		m.columnSel = 0
	case ActionResetColumns:
		m.grid.ResetColumns()
	case ActionPin:
		return m.cyclePin()
	case ActionMoveLeft:
		m.moveColumn(-1)
	case ActionMoveRight:
		m.moveColumn(1)
	case ActionShrink:
		return m.nudgeWidth(-1)
	case ActionGrow:
		return m.nudgeWidth(1)
	case ActionToggleRow:
		if key := m.table.SelectedKey(); key != "" {
			m.grid.ToggleRow(key)
		}
	case ActionToggleAll:
		m.grid.ToggleAll()
	case ActionChips:
		if len(m.view.Chips) > 0 {
			m.mode = modeChips
			m.chip = 0
		}
	case ActionClearFilters:
		m.grid.ClearFilters()
	case ActionDetail:
		if m.table.SelectedRow() != nil {
			m.mode = modeDetail
		}
	case ActionExport:
		return m.prompt(modeExport, "export as (csv, xlsx, pdf, html, json): ", string(m.opts.ExportFormat))
	case ActionImport:
		return m.prompt(modeImport, "import file: ", "")
	case ActionReload:
		return m.reload()
	case ActionHelp:
		m.mode = modeHelp
	default:
		_, cmd := m.table.Update(msg)
		return cmd
	}
	return nil
}

func (m *Model) prompt(md mode, label, value string) tea.Cmd {
	m.mode = md
	m.input.Prompt = label
	m.input.SetValue(value)
	m.input.CursorEnd()
	return m.input.Focus()
}

func (m *Model) keyPrompt(msg tea.KeyPressMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		m.mode = modeNormal
		m.pageInput = nil
		m.input.Blur()
		return nil
	case "enter":
		value := strings.TrimSpace(m.input.Value())
		md := m.mode
		m.mode = modeNormal
		m.input.Blur()
		switch md {
		case modePageInput:
			m.pageInput.Text = value
			m.pageInput.Commit()
			m.pageInput = nil
		case modeExport:
			return m.requestExport(value)
		case modeImport:
			if err := m.grid.Toolbar().RequestImport(value); err != nil {
				return m.notifyErr(err)
			}
		}
		return nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *Model) keySearch(msg tea.KeyPressMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		m.search.SetValue("")
		fallthrough
	case "enter":
		m.search.Blur()
		m.mode = modeNormal
		m.applySearch()
		return nil
	}
	before := m.search.Value()
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if m.search.Value() == before {
		return cmd
	}
	m.searchSeq++
	seq := m.searchSeq
	return tea.Batch(cmd, tea.Tick(m.opts.SearchDebounce, func(time.Time) tea.Msg {
		return searchTickMsg{seq: seq}
	}))
}

// applySearch hands the search box to the toolbar and returns to page 1. In
// client mode the search predicate reads the toolbar text, so Refilter also
// recomputes the view.
func (m *Model) applySearch() {
	m.searchSeq++
	text := strings.TrimSpace(m.search.Value())
	tb := m.grid.Toolbar()
	if text == tb.Text() {
		return
	}
	tb.Search(text)
	m.grid.Refilter()
}

func (m *Model) openFilter() tea.Cmd {
	c, ok := m.focused()
	if !ok {
		return nil
	}
	x, w := m.columnSpan(m.col)
	p, err := m.grid.OpenFilter(c.Field, grid.Rect{X: x, Y: headerY, Width: w, Height: 1})
	if err != nil {
		return m.notifyErr(err)
	}
	return m.startPopover(p)
}

func (m *Model) startPopover(p *grid.Popover) tea.Cmd {
	m.mode = modePopover
	m.popCursor = -1
	m.input.Prompt = "find: "
	m.input.SetValue("")
	p.SetBounds(m.popoverBounds(p))
	focus := m.input.Focus()
	if !p.Remote() {
		return focus
	}
	return tea.Batch(focus, m.loadOptions())
}

// loadOptions starts a remote option load for the open popover. Loads that
// finish after a newer one began are discarded by the popover.
func (m *Model) loadOptions() tea.Cmd {
	p := m.grid.ActivePopover()
	if p == nil || !p.Remote() {
		return nil
	}
	gen, search := p.BeginLoad()
	return tea.Batch(m.startSpinner(), func() tea.Msg {
		p.Load(gen, search)
		return optionsMsg{field: p.Field()}
	})
}

func (m *Model) keyPopover(msg tea.KeyPressMsg) tea.Cmd {
	p := m.grid.ActivePopover()
	if p == nil {
		m.mode = modeNormal
		return nil
	}
	opts := p.Options()
	switch msg.String() {
	case "esc":
		m.grid.ClosePopover()
		m.mode = modeNormal
		m.input.Blur()
		return nil
	case "enter":
		p.Apply()
		m.mode = modeNormal
		m.input.Blur()
		return nil
	case "up":
		m.popCursor = max(m.popCursor-1, -1)
		return nil
	case "down":
		m.popCursor = min(m.popCursor+1, len(opts))
		return nil
	case "ctrl+a":
		p.ToggleAll()
		return nil
	case "space":
		switch {
		case m.popCursor == 0:
			p.ToggleAll()
			return nil
		case m.popCursor > 0 && m.popCursor <= len(opts):
			p.Toggle(opts[m.popCursor-1].Value)
			return nil
		}
	}
	m.popCursor = -1
	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() == before {
		return cmd
	}
	p.SetSearch(m.input.Value())
	if !p.Remote() {
		return cmd
	}
	m.optionSeq++
	seq := m.optionSeq
	return tea.Batch(cmd, tea.Tick(m.opts.OptionDebounce, func(time.Time) tea.Msg {
		return optionTickMsg{seq: seq}
	}))
}

func (m *Model) startEditor(ed *grid.ConditionEditor) tea.Cmd {
	m.editor = ed
	m.mode = modeEditor
	m.input.Prompt = ""
	m.input.SetValue(ed.Value)
	m.input.CursorEnd()
	return m.input.Focus()
}

func (m *Model) keyEditor(msg tea.KeyPressMsg) tea.Cmd {
	ed := m.editor
	if ed == nil {
		m.mode = modeNormal
		return nil
	}
	switch msg.String() {
	case "esc":
		ed.Cancel()
	case "tab":
		ed.CycleOperator(1)
		return nil
	case "shift+tab":
		ed.CycleOperator(-1)
		return nil
	case "enter":
		ed.Value = strings.TrimSpace(m.input.Value())
		if err := ed.Commit(); err != nil {
			m.editor, m.mode = nil, modeNormal
			return m.notifyErr(err)
		}
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return cmd
	}
	m.editor, m.mode = nil, modeNormal
	m.input.Blur()
	return nil
}

func (m *Model) keyChips(msg tea.KeyPressMsg) tea.Cmd {
	chips := m.view.Chips
	if len(chips) == 0 {
		m.mode = modeNormal
		return nil
	}
	m.chip = max(min(m.chip, len(chips)-1), 0)
	switch msg.String() {
	case "esc", "tab":
		m.mode = modeNormal
	case "left", "h", "shift+tab":
		m.chip = max(m.chip-1, 0)
	case "right", "l":
		m.chip = min(m.chip+1, len(chips)-1)
	case "x", "delete", "backspace":
		m.grid.RemoveChip(chips[m.chip])
		if len(chips) == 1 {
			m.mode = modeNormal
		}
	case "enter":
		m.mode = modeNormal
		return m.clickChip(chips[m.chip], chipRects(chips)[m.chip])
	}
	return nil
}

func (m *Model) clickChip(c grid.Chip, at grid.Rect) tea.Cmd {
	p, ed, err := m.grid.ClickChip(c, at)
	switch {
	case err != nil:
		return m.notifyErr(err)
	case p != nil:
		return m.startPopover(p)
	case ed != nil:
		return m.startEditor(ed)
	}
	return nil
}

func (m *Model) keyColumns(msg tea.KeyPressMsg) tea.Cmd {
	cols := m.grid.Columns()
	switch msg.String() {
	case "esc", "o", "q":
		m.mode = modeNormal
	case "up", "k":
		m.columnSel = max(m.columnSel-1, 0)
	case "down", "j":
		m.columnSel = min(m.columnSel+1, len(cols)-1)
	case "space", "enter", "x":
		if m.columnSel < len(cols) {
			if err := m.grid.ToggleColumn(cols[m.columnSel].Field); err != nil {
				return m.notifyErr(err)
			}
		}
	case "R":
		m.grid.ResetColumns()
	}
	return nil
}

func (m *Model) cyclePageSize() {
	sizes := m.opts.PageSizes
	i := slices.Index(sizes, m.grid.Pager().PageSize())
	m.grid.SetPageSize(sizes[(i+1)%len(sizes)])
}

var pinCycle = map[grid.Pin]grid.Pin{
	grid.PinNone:  grid.PinLeft,
	grid.PinLeft:  grid.PinRight,
	grid.PinRight: grid.PinNone,
}

func (m *Model) cyclePin() tea.Cmd {
	c, ok := m.focused()
	if !ok {
		return nil
	}
	cur := c.Pinned
	if cur == "" {
		cur = grid.PinNone
	}
	next := pinCycle[cur]
	if err := m.grid.PinColumn(c.Field, next); err != nil {
		return m.notifyErr(err)
	}
	// follow the column to its new group
	for i, v := range m.grid.VisibleColumns() {
		if v.Field == c.Field {
			m.col = i
		}
	}
	return nil
}

// moveColumn drags the focused column onto its neighbour in direction step.
func (m *Model) moveColumn(step int) {
	c, ok := m.focused()
	target := m.col + step
	if !ok || target < 0 || target >= len(m.cols) {
		return
	}
	if m.cols[target].Pinned != c.Pinned {
		return
	}
	if m.grid.BeginDrag(c.Field) && m.grid.Drop(m.cols[target].Field) {
		m.col = target
	}
}

// nudgeWidth resizes the focused column by one terminal cell through the same
// gesture a header drag uses.
func (m *Model) nudgeWidth(cells int) tea.Cmd {
	c, ok := m.focused()
	if !ok {
		return nil
	}
	r, err := m.grid.BeginResize(c.Field, 0)
	if err != nil {
		return m.notifyErr(err)
	}
	r.Move(cells)
	r.Commit()
	return nil
}

func (m *Model) requestExport(value string) tea.Cmd {
	f, err := export.ParseFormat(value)
	if err != nil {
		return m.notifyErr(err)
	}
	if slices.Contains(grid.ExportFormats, f) {
		if err := m.grid.Toolbar().RequestExport(string(f)); err != nil {
			return m.notifyErr(err)
		}
		return nil
	}
	m.pendingExport = f
	return nil
}

func pinLabel(p grid.Pin) string {
	if !p.Edge() {
		return ""
	}
	return fmt.Sprintf(" [%s]", p)
}
