package table

import (
	"fmt"
	"image/color"

	"charm.land/bubbles/v2/key"
	bubtable "charm.land/bubbles/v2/table"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
)

// Re-export common table types so callers can construct columns/rows without
// importing bubbles directly.
type Column = bubtable.Column
type Row = bubtable.Row

// Model is a generic table component that displays rows of type V. Rows are
// identified by keyFunc so the cursor can follow a row across re-sorts.
type Model[V any] struct {
	table   bubtable.Model
	styles  bubtable.Styles
	rows    []V
	columns []Column

	toRow   func(V) Row
	keyFunc func(V) string

	width   int
	height  int
	focused bool
	noColor bool

	headerFG   color.Color
	headerBG   color.Color
	selectedFG color.Color
	selectedBG color.Color
}

// KeyMap binds only line movement and top/bottom. Letter keys are left to
// the host.
func KeyMap() bubtable.KeyMap {
	km := bubtable.DefaultKeyMap()
	km.LineUp = key.NewBinding(key.WithKeys("up", "k"))
	km.LineDown = key.NewBinding(key.WithKeys("down", "j"))
	km.GotoTop = key.NewBinding(key.WithKeys("home"))
	km.GotoBottom = key.NewBinding(key.WithKeys("end"))
	km.PageUp = key.NewBinding(key.WithDisabled())
	km.PageDown = key.NewBinding(key.WithDisabled())
	km.HalfPageUp = key.NewBinding(key.WithDisabled())
	km.HalfPageDown = key.NewBinding(key.WithDisabled())
	return km
}

// NewModel creates a table.
//
//	columns: table column definitions
//	toRow:   converts a value to cells
//	keyFunc: returns a stable identity for a value
func NewModel[V any](
	columns []Column,
	toRow func(V) Row,
	keyFunc func(V) string,
) *Model[V] {
	t := bubtable.New(
		bubtable.WithColumns(columns),
		bubtable.WithFocused(true),
		bubtable.WithHeight(5),
		bubtable.WithKeyMap(KeyMap()),
	)

	s := bubtable.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderTop(false).
		BorderLeft(false).
		BorderRight(false).
		Bold(true).
		Align(lipgloss.Left).
		PaddingLeft(0).
		PaddingRight(1)
	s.Selected = s.Selected.
		PaddingLeft(0).
		PaddingRight(0)
	s.Cell = lipgloss.NewStyle().
		Align(lipgloss.Left).
		PaddingLeft(0).
		PaddingRight(1)
	t.SetStyles(s)

	return &Model[V]{
		table:   t,
		styles:  s,
		columns: columns,
		toRow:   toRow,
		keyFunc: keyFunc,
		width:   80,
		height:  10,
		focused: true,
	}
}

// SetRows replaces the rows. The cursor stays on the previously selected row
// when it is still present, otherwise it is clamped to the rows.
func (m *Model[V]) SetRows(rows []V) {
	prev := m.SelectedKey()
	m.rows = rows
	m.table.SetRows(m.project())
	if prev != "" && m.SetCursorByKey(prev) {
		return
	}
	m.clampCursor(m.Cursor())
}

// SetColumns updates the columns, re-projects the rows onto them and
// reapplies styles.
func (m *Model[V]) SetColumns(columns []Column) {
	cursor := m.Cursor()
	m.columns = columns
	// Cells must never outnumber columns while bubbles renders.
	m.table.SetRows(nil)
	m.table.SetColumns(columns)
	m.table.SetRows(m.project())
	m.clampCursor(cursor)
	m.applyColorScheme()
}

// project converts the rows to cells, one per column.
func (m *Model[V]) project() []Row {
	out := make([]Row, len(m.rows))
	for i, r := range m.rows {
		cells := m.toRow(r)
		switch {
		case len(cells) > len(m.columns):
			cells = cells[:len(m.columns)]
		case len(cells) < len(m.columns):
			cells = append(cells, make(Row, len(m.columns)-len(cells))...)
		}
		out[i] = cells
	}
	return out
}

// clampCursor keeps the cursor on a row whenever there is one. Emptying the
// bubbles table leaves its cursor at -1.
func (m *Model[V]) clampCursor(pos int) {
	if len(m.rows) == 0 {
		return
	}
	m.table.SetCursor(min(max(pos, 0), len(m.rows)-1))
}

// Columns returns the current columns.
func (m *Model[V]) Columns() []Column {
	return m.columns
}

// Rows returns the current rows.
func (m *Model[V]) Rows() []V {
	return m.rows
}

// Cursor returns the current cursor position.
func (m *Model[V]) Cursor() int {
	return m.table.Cursor()
}

// SetCursor sets the cursor position.
func (m *Model[V]) SetCursor(pos int) {
	m.table.SetCursor(pos)
}

// SetCursorByKey moves the cursor to the row with key and reports whether it was found.
func (m *Model[V]) SetCursorByKey(k string) bool {
	for i, r := range m.rows {
		if m.keyFunc(r) == k {
			m.SetCursor(i)
			return true
		}
	}
	return false
}

// SelectedRow returns the row under the cursor, or nil if there are no rows.
func (m *Model[V]) SelectedRow() *V {
	cursor := m.Cursor()
	if cursor < 0 || cursor >= len(m.rows) {
		return nil
	}
	return &m.rows[cursor]
}

// SelectedKey is the key of the row under the cursor, or "".
func (m *Model[V]) SelectedKey() string {
	if r := m.SelectedRow(); r != nil {
		return m.keyFunc(*r)
	}
	return ""
}

// SetSize sets the table dimensions.
func (m *Model[V]) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.table.SetWidth(width)
	m.table.SetHeight(height)
}

// Focus sets the table focus state.
func (m *Model[V]) Focus() {
	m.focused = true
	m.table.Focus()
}

// Blur removes focus from the table.
func (m *Model[V]) Blur() {
	m.focused = false
	m.table.Blur()
}

// Focused returns true if the table has focus.
func (m *Model[V]) Focused() bool {
	return m.focused
}

// SetNoColor enables/disables color output.
func (m *Model[V]) SetNoColor(noColor bool) {
	m.noColor = noColor
	m.applyColorScheme()
}

// SetColors sets custom theme colors.
func (m *Model[V]) SetColors(headerFG, headerBG, selectedFG, selectedBG color.Color) {
	m.headerFG = headerFG
	m.headerBG = headerBG
	m.selectedFG = selectedFG
	m.selectedBG = selectedBG
	m.applyColorScheme()
}

func (m *Model[V]) applyColorScheme() {
	s := m.styles

	if m.noColor {
		s.Header = s.Header.UnsetForeground().UnsetBackground()
		s.Selected = s.Selected.UnsetForeground().UnsetBackground().Reverse(true)
		s.Cell = s.Cell.UnsetForeground().UnsetBackground()
	} else {
		if m.headerFG != nil {
			s.Header = s.Header.Foreground(m.headerFG)
		}
		if m.headerBG != nil {
			s.Header = s.Header.Background(m.headerBG)
		}
		if m.selectedFG != nil {
			s.Selected = s.Selected.Foreground(m.selectedFG)
		}
		if m.selectedBG != nil {
			s.Selected = s.Selected.Background(m.selectedBG)
		}
	}

	m.table.SetStyles(s)
	m.styles = s
}

// Update handles cursor movement.
func (m *Model[V]) Update(msg tea.Msg) (*Model[V], tea.Cmd) {
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View renders the table to a string.
func (m *Model[V]) View() string {
	return m.table.View()
}

// Height returns the rendered height of the table (including header).
func (m *Model[V]) Height() int {
	return lipgloss.Height(m.View())
}

// String returns a string representation for debugging.
func (m *Model[V]) String() string {
	return fmt.Sprintf("Table[rows=%d, cursor=%d, key=%q]", len(m.rows), m.Cursor(), m.SelectedKey())
}
