package grid

import (
	"fmt"
	"sync"
)

// WithPointerScale sets how many width units one pointer unit spans.
// Terminal hosts report cells, so they pass the cell width here.
func WithPointerScale(units int) Option {
	return func(g *Grid) {
		if units > 0 {
			g.pointerScale = units
		}
	}
}

// CycleSort advances field through none, asc, desc and back to none. Only
// one column is sorted at a time.
func (g *Grid) CycleSort(field string) (*SortState, error) {
	col, ok := g.columns.Definition(field)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	if !col.Sortable {
		return g.Sort(), nil
	}
	next := NextSort(g.sort, field)
	g.sort = next
	g.columns.setSort(next)
	g.invalidate()
	if g.cb.OnSort != nil {
		g.cb.OnSort(g.Sort())
	}
	return g.Sort(), nil
}

// OpenFilter opens the value popover for field anchored at anchor. Any other
// open popover is closed first.
func (g *Grid) OpenFilter(field string, anchor Rect) (*Popover, error) {
	col, ok := g.columns.Definition(field)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	if !col.Filterable {
		return nil, fmt.Errorf("column %q is not filterable", field)
	}
	if g.closed {
		return nil, fmt.Errorf("grid closed")
	}
	g.ClosePopover()

	var selected []string
	if f, ok := g.filters.Values(field); ok {
		selected = f.Values
	}
	delay := g.optionDelay
	cfg := popoverConfig{
		field:    field,
		anchor:   anchor,
		selected: selected,
		ctx:      g.ctx,
		loader:   g.loader,
		manual:   g.manualLoads,
		debounce: func() *Debouncer { return NewDebouncer(delay) },
		hub:      g.hub,
		scope:    &g.scope,
		onApply: func(f ValueFilter) {
			_ = g.SetValueFilter(f)
		},
		onClose: func(p *Popover) {
			if g.popover == p {
				g.popover = nil
			}
		},
	}
	if g.loader == nil {
		rows := g.rows
		cfg.local = func() []FilterOption { return DistinctOptions(rows, field) }
	}
	g.popover = openPopover(cfg)
	return g.popover, nil
}

// ActivePopover returns the open popover, if any.
func (g *Grid) ActivePopover() *Popover {
	if g.popover != nil && !g.popover.IsOpen() {
		g.popover = nil
	}
	return g.popover
}

// ClosePopover closes the open popover without applying it.
func (g *Grid) ClosePopover() {
	if p := g.popover; p != nil {
		g.popover = nil
		p.Close()
	}
}

func (g *Grid) columnsChanged() {
	if g.cb.OnColumnsChange != nil {
		g.cb.OnColumnsChange(g.columns.States())
	}
}

// SetColumnVisible shows or hides a column.
func (g *Grid) SetColumnVisible(field string, visible bool) error {
	changed, err := g.columns.SetVisible(field, visible)
	if err != nil || !changed {
		return err
	}
	if g.cb.OnColumnVisibility != nil {
		g.cb.OnColumnVisibility(field, visible)
	}
	g.columnsChanged()
	return nil
}

// ToggleColumn flips a column's visibility.
func (g *Grid) ToggleColumn(field string) error {
	col, ok := g.columns.Column(field)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	return g.SetColumnVisible(field, col.Hidden)
}

// PinColumn moves a column into the left, right or unpinned group.
func (g *Grid) PinColumn(field string, pin Pin) error {
	if err := g.columns.Pin(field, pin); err != nil {
		return err
	}
	g.columnsChanged()
	return nil
}

// ResizeColumn sets a column width directly, clamped to MinColumnWidth.
func (g *Grid) ResizeColumn(field string, width int) (int, error) {
	col, ok := g.columns.Definition(field)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	if !col.Resizable {
		return g.columns.Width(field), nil
	}
	w, err := g.columns.Resize(field, width)
	if err != nil {
		return 0, err
	}
	g.columnsChanged()
	return w, nil
}

// MoveColumn splices source out and reinserts it at target's index.
func (g *Grid) MoveColumn(source, target string) bool {
	if !g.columns.Move(source, target) {
		return false
	}
	g.columnsChanged()
	return true
}

// ResetColumns restores the column order and state captured by New. The
// active sort survives.
func (g *Grid) ResetColumns() {
	g.columns.Reset()
	g.columns.setSort(g.sort)
	g.columnsChanged()
}

// ApplyColumnStates restores saved column state.
func (g *Grid) ApplyColumnStates(states []ColumnState) {
	g.columns.ApplyStates(states)
	g.columnsChanged()
}

// BeginDrag starts a header drag for reordering.
func (g *Grid) BeginDrag(field string) bool {
	if !g.columns.Has(field) {
		return false
	}
	g.drag = field
	return true
}

// Dragging returns the field being dragged, or "".
func (g *Grid) Dragging() string { return g.drag }

// Drop finishes a drag over target. Dropping a column on itself is a no-op.
func (g *Grid) Drop(target string) bool {
	src := g.drag
	g.drag = ""
	if src == "" {
		return false
	}
	return g.MoveColumn(src, target)
}

// CancelDrag abandons a drag.
func (g *Grid) CancelDrag() { g.drag = "" }

// ResizeGesture is one drag on a column's trailing edge. It listens to the
// pointer hub from BeginResize until the pointer is released, the gesture is
// cancelled or the grid is closed.
type ResizeGesture struct {
	g          *Grid
	field      string
	startX     int
	startWidth int
	scale      int

	mu      sync.Mutex
	release func()
	done    bool
}

// BeginResize starts resizing field from pointer position startX.
func (g *Grid) BeginResize(field string, startX int) (*ResizeGesture, error) {
	col, ok := g.columns.Definition(field)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	if !col.Resizable {
		return nil, fmt.Errorf("column %q is not resizable", field)
	}
	if g.closed {
		return nil, fmt.Errorf("grid closed")
	}
	r := &ResizeGesture{
		g:          g,
		field:      field,
		startX:     startX,
		startWidth: g.columns.Width(field),
		scale:      g.pointerScale,
	}
	release := g.hub.Subscribe(r.handle)
	r.release = g.scope.hold(release)
	return r, nil
}

// Field is the column being resized.
func (r *ResizeGesture) Field() string { return r.field }

// Active reports whether the gesture still holds its listener.
func (r *ResizeGesture) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.done
}

func (r *ResizeGesture) handle(ev PointerEvent) {
	switch ev.Kind {
	case PointerMove:
		r.Move(ev.X)
	case PointerUp:
		r.Move(ev.X)
		r.end(true)
	}
}

// Move applies the width for pointer position x and returns it.
func (r *ResizeGesture) Move(x int) int {
	if !r.Active() {
		return r.g.columns.Width(r.field)
	}
	w, _ := r.g.columns.Resize(r.field, r.startWidth+(x-r.startX)*r.scale)
	return w
}

// Cancel restores the starting width and ends the gesture.
func (r *ResizeGesture) Cancel() {
	if !r.Active() {
		return
	}
	_, _ = r.g.columns.Resize(r.field, r.startWidth)
	r.end(false)
}

// Commit ends the gesture keeping the current width.
func (r *ResizeGesture) Commit() { r.end(true) }

func (r *ResizeGesture) end(commit bool) {
	r.mu.Lock()
	if r.done {
		r.mu.Unlock()
		return
	}
	r.done = true
	release := r.release
	r.mu.Unlock()
	release()
	if commit && r.g.columns.Width(r.field) != r.startWidth {
		r.g.columnsChanged()
	}
}
