package ui

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/x/ansi"

	"github.com/oakwood-commons/fleetgrid/internal/formatter"
	"github.com/oakwood-commons/fleetgrid/pkg/grid"
)

const (
	popoverMinWidth   = 30
	popoverMaxOptions = 8
)

// View implements tea.Model.
func (m *Model) View() tea.View {
	v := tea.NewView(m.render())
	v.AltScreen = true
	v.MouseMode = tea.MouseModeCellMotion
	v.KeyboardEnhancements.ReportEventTypes = true
	return v
}

func (m *Model) render() string {
	if m.quitting {
		return ""
	}
	body := m.bodyView()
	switch m.mode {
	case modeHelp:
		body = m.helpView()
	case modeDetail:
		body = m.detailView()
	case modeColumns:
		body = overlay(body, m.columnsView(), 2, 1)
	case modePopover:
		if p := m.grid.ActivePopover(); p != nil {
			b := m.popoverBounds(p)
			lines, _ := m.popoverContent(p)
			body = overlay(body, m.styles.Popover.Render(strings.Join(lines, "\n")), b.X, b.Y-headerY)
		}
	}
	return strings.Join([]string{
		m.titleLine(),
		m.toolbarLine(),
		m.chipsLine(),
		body,
		m.pagerLine(),
		m.statusLine(),
	}, "\n")
}

func (m *Model) titleLine() string {
	parts := []string{m.styles.Title.Render(" " + m.res.Title + " ")}
	if m.serverMode() {
		parts = append(parts, m.styles.Muted.Render("server"))
	} else {
		parts = append(parts, m.styles.Muted.Render("local"))
	}
	if s := m.view.Sort; s != nil {
		parts = append(parts, m.styles.Muted.Render("sorted by "+s.String()))
	}
	if n := m.view.Selected; n > 0 {
		parts = append(parts, m.styles.Key.Render(fmt.Sprintf("%d selected", n)))
	}
	if m.busy() {
		parts = append(parts, m.spin.View())
	}
	return strings.Join(parts, m.styles.Muted.Render(" · "))
}

func (m *Model) toolbarLine() string {
	return m.search.View()
}

func chipText(c grid.Chip) string {
	return " " + c.Label + " ✕ "
}

// chipRects lays the chips out left to right on the chips line.
func chipRects(chips []grid.Chip) []grid.Rect {
	rects := make([]grid.Rect, len(chips))
	x := 0
	for i, c := range chips {
		w := ansi.StringWidth(chipText(c))
		rects[i] = grid.Rect{X: x, Y: chipsY, Width: w, Height: 1}
		x += w + 1
	}
	return rects
}

func (m *Model) chipsLine() string {
	chips := m.view.Chips
	if len(chips) == 0 {
		return m.styles.Muted.Render("no filters (f value filter, c condition)")
	}
	out := make([]string, len(chips))
	for i, c := range chips {
		style := m.styles.Chip
		if m.mode == modeChips && i == m.chip {
			style = m.styles.ChipActive
		}
		out[i] = style.Render(chipText(c))
	}
	return strings.Join(out, " ")
}

func (m *Model) bodyView() string {
	if m.broken != nil {
		lines := []string{
			m.styles.Error.Render("grid unavailable – press r to reload"),
			m.styles.Muted.Render(m.broken.Error()),
		}
		for len(lines) < m.table.Height() {
			lines = append(lines, "")
		}
		return strings.Join(lines, "\n")
	}
	out := m.table.View()
	switch {
	case m.view.Loading && len(m.view.Rows) == 0:
		out += "\n" + m.styles.Muted.Render("  loading…")
	case m.view.Empty:
		out += "\n" + m.styles.Muted.Render("  no matching rows")
	}
	return out
}

func (m *Model) pagerLine() string {
	parts := []string{m.view.Summary}
	if w := m.view.Window; len(w) > 0 {
		parts = append(parts, grid.FormatWindow(w))
	}
	if size := m.view.Pagination.PageSize; size == grid.AllRows {
		parts = append(parts, "all rows")
	} else {
		parts = append(parts, fmt.Sprintf("%d/page", size))
	}
	return strings.Join(parts, m.styles.Muted.Render("  │  "))
}

func (m *Model) statusLine() string {
	switch m.mode {
	case modePageInput, modeExport, modeImport:
		return m.input.View()
	case modeEditor:
		if ed := m.editor; ed != nil {
			label := fmt.Sprintf("%s %s ", m.columnTitle(ed.Field), m.styles.Key.Render("["+string(ed.Operator)+"]"))
			hint := m.styles.Muted.Render("  tab operator · enter apply · esc cancel")
			if !ed.Operator.NeedsValue() {
				return label + hint
			}
			return label + m.input.View() + hint
		}
	case modeSearch:
		return m.styles.Muted.Render("enter apply · esc clear")
	}
	if t := m.toast; t.text != "" {
		if t.isErr {
			return m.styles.Error.Render(t.text)
		}
		return m.styles.Success.Render(t.text)
	}
	return m.styles.Muted.Render("? help · / search · f filter · s sort · q quit")
}

func (m *Model) columnTitle(field string) string {
	if c, ok := m.grid.Column(field); ok {
		return c.Title()
	}
	return field
}

// popoverContent renders the popover body. items maps each line to the
// option cursor it selects: 0 is "select all", k is option k-1, -1 is inert.
func (m *Model) popoverContent(p *grid.Popover) (lines []string, items []int) {
	opts := p.Options()
	width := m.popoverWidth(p)
	add := func(s string, item int) {
		lines = append(lines, padCell(s, width))
		items = append(items, item)
	}
	add(m.styles.Key.Render("Filter: "+m.columnTitle(p.Field())), -1)
	add(m.input.View(), -1)
	switch {
	case p.Loading():
		add(m.styles.Muted.Render("loading…"), -1)
	case p.Err() != nil:
		add(m.styles.Error.Render(p.Err().Error()), -1)
	case len(opts) == 0:
		add(m.styles.Muted.Render("no values"), -1)
	}
	add(m.optionLine("(select all)", p.AllSelected(), m.popCursor == 0), 0)

	start := 0
	if m.popCursor > popoverMaxOptions {
		start = m.popCursor - popoverMaxOptions
	}
	end := min(start+popoverMaxOptions, len(opts))
	for i := start; i < end; i++ {
		o := opts[i]
		label := o.Label
		if label == "" {
			label = o.Value
		}
		if o.Count > 0 {
			label = fmt.Sprintf("%s (%d)", label, o.Count)
		}
		add(m.optionLine(label, p.IsSelected(o.Value), m.popCursor == i+1), i+1)
	}
	if len(opts) > end {
		add(m.styles.Muted.Render(fmt.Sprintf("… %d more, type to narrow", len(opts)-end)), -1)
	}
	add(m.styles.Muted.Render("space toggle · enter apply · esc"), -1)
	return lines, items
}

func (m *Model) optionLine(label string, checked, cursor bool) string {
	box := "[ ] "
	if checked {
		box = "[x] "
	}
	line := box + label
	if cursor {
		return m.styles.Cursor.Render(line)
	}
	return line
}

func (m *Model) popoverWidth(p *grid.Popover) int {
	return max(p.Anchor().Width, popoverMinWidth)
}

// popoverBounds places the box under its anchor, shifted left when it would
// run off the screen.
func (m *Model) popoverBounds(p *grid.Popover) grid.Rect {
	lines, _ := m.popoverContent(p)
	w := m.popoverWidth(p) + 4
	h := len(lines) + 2
	x := p.Anchor().X
	if x+w > m.width {
		x = max(m.width-w, 0)
	}
	return grid.Rect{X: x, Y: headerY + 1, Width: w, Height: h}
}

func (m *Model) columnsView() string {
	cols := m.grid.Columns()
	lines := []string{m.styles.Key.Render("Columns")}
	for i, c := range cols {
		box := "[x] "
		if c.Hidden {
			box = "[ ] "
		}
		line := box + c.Title() + m.styles.Muted.Render(pinLabel(c.Pinned))
		if i == m.columnSel {
			line = m.styles.Cursor.Render(box + c.Title() + pinLabel(c.Pinned))
		}
		lines = append(lines, line)
	}
	lines = append(lines, m.styles.Muted.Render("space toggle · R reset · esc"))
	return m.styles.Popover.Render(strings.Join(lines, "\n"))
}

func (m *Model) helpView() string {
	width := 0
	for _, e := range helpEntries {
		width = max(width, ansi.StringWidth(e.keys))
	}
	lines := []string{m.styles.Key.Render("Keys"), ""}
	for _, e := range helpEntries {
		lines = append(lines, "  "+m.styles.Key.Render(padCell(e.keys, width))+"  "+e.desc)
	}
	lines = append(lines, "", m.styles.Muted.Render("esc to close"))
	return strings.Join(lines, "\n")
}

func (m *Model) detailView() string {
	row := m.table.SelectedRow()
	if row == nil {
		return ""
	}
	var headers, values []string
	for _, c := range m.grid.Columns() {
		if c.Type == grid.TypeActions {
			continue
		}
		headers = append(headers, c.Title())
		values = append(values, m.safeCell(*row, c))
	}
	title := m.styles.Key.Render(fmt.Sprintf("%s %s", m.res.Title, row.Key()))
	return title + "\n\n" + formatter.RenderRecord(headers, values, m.opts.NoColor, m.width) +
		"\n" + m.styles.Muted.Render("esc to close")
}

// safeCell falls back to the plain formatter when a renderer panics.
func (m *Model) safeCell(r grid.Row, c grid.Column) (s string) {
	defer func() {
		if recover() != nil {
			s = grid.FormatValue(c.Type, r.Value(c.Field))
		}
	}()
	return m.grid.Cell(r, c)
}

func padCell(s string, width int) string {
	s = ansi.Truncate(s, width, "…")
	if w := lipgloss.Width(s); w < width {
		s += strings.Repeat(" ", width-w)
	}
	return s
}

// overlay draws box over base with its top-left corner at (x, y).
func overlay(base, box string, x, y int) string {
	lines := strings.Split(base, "\n")
	for i, bl := range strings.Split(box, "\n") {
		row := y + i
		for len(lines) <= row {
			lines = append(lines, "")
		}
		line := lines[row]
		if w := ansi.StringWidth(line); w < x {
			line += strings.Repeat(" ", x-w)
		}
		left := ansi.Truncate(line, x, "")
		right := ansi.TruncateLeft(line, x+ansi.StringWidth(bl), "")
		lines[row] = left + bl + right
	}
	return strings.Join(lines, "\n")
}
