package ui

import (
	tea "charm.land/bubbletea/v2"

	"github.com/oakwood-commons/fleetgrid/pkg/grid"
)

// handleClick forwards the press to the pointer hub first so an open popover
// can close on outside clicks, then hit-tests chips and headers.
func (m *Model) handleClick(mouse tea.Mouse) tea.Cmd {
	m.grid.Pointer().Dispatch(grid.PointerEvent{Kind: grid.PointerDown, X: mouse.X, Y: mouse.Y})
	if m.mode == modePopover {
		p := m.grid.ActivePopover()
		if p == nil {
			m.mode = modeNormal
			m.input.Blur()
			return nil
		}
		m.clickPopover(p, mouse.X, mouse.Y)
		return nil
	}
	if m.mode != modeNormal || m.broken != nil || mouse.Button != tea.MouseLeft {
		return nil
	}
	switch mouse.Y {
	case chipsY:
		chips := m.view.Chips
		for i, r := range chipRects(chips) {
			if r.Contains(mouse.X, mouse.Y) {
				return m.clickChip(chips[i], r)
			}
		}
	case headerY:
		return m.clickHeader(mouse.X)
	}
	return nil
}

// clickHeader sorts on a title click. The padding cell after a title is the
// column's resize handle.
func (m *Model) clickHeader(x int) tea.Cmd {
	for i, c := range m.cols {
		cx, w := m.columnSpan(i)
		switch {
		case x == cx+w:
			if !c.Resizable {
				return nil
			}
			r, err := m.grid.BeginResize(c.Field, x)
			if err != nil {
				return m.notifyErr(err)
			}
			m.resize = r
			return nil
		case x >= cx && x < cx+w:
			m.col = i
			if _, err := m.grid.CycleSort(c.Field); err != nil {
				return m.notifyErr(err)
			}
			return nil
		}
	}
	return nil
}

func (m *Model) clickPopover(p *grid.Popover, x, y int) {
	b := m.popoverBounds(p)
	if !b.Contains(x, y) {
		return
	}
	_, items := m.popoverContent(p)
	line := y - b.Y - 1
	if line < 0 || line >= len(items) || items[line] < 0 {
		return
	}
	m.popCursor = items[line]
	opts := p.Options()
	if m.popCursor == 0 {
		p.ToggleAll()
	} else if m.popCursor <= len(opts) {
		p.Toggle(opts[m.popCursor-1].Value)
	}
}
