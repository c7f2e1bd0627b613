package grid

import "fmt"

// ColumnState is the user-adjustable state of a column, kept apart from its definition.
type ColumnState struct {
	Field         string    `json:"field" yaml:"field"`
	Visible       bool      `json:"visible" yaml:"visible"`
	Pinned        Pin       `json:"pinned" yaml:"pinned"`
	SortDirection Direction `json:"sortDirection,omitempty" yaml:"sortDirection,omitempty"`
	Width         int       `json:"width" yaml:"width"`
}

// ColumnSet owns column definitions, their order and their state. Reset
// restores the snapshot taken at construction.
type ColumnSet struct {
	defs  map[string]Column
	order []string
	state map[string]*ColumnState

	initialOrder []string
	initial      map[string]ColumnState
}

func newColumnSet(columns []Column) (*ColumnSet, error) {
	if err := validateColumns(columns); err != nil {
		return nil, err
	}
	cs := &ColumnSet{
		defs:    make(map[string]Column, len(columns)),
		order:   make([]string, 0, len(columns)),
		state:   make(map[string]*ColumnState, len(columns)),
		initial: make(map[string]ColumnState, len(columns)),
	}
	for _, c := range columns {
		c = normalizeColumn(c)
		cs.defs[c.Field] = c
		cs.order = append(cs.order, c.Field)
		st := ColumnState{Field: c.Field, Visible: !c.Hidden, Pinned: c.Pinned, Width: c.Width}
		cs.state[c.Field] = &st
		cs.initial[c.Field] = st
	}
	cs.initialOrder = append([]string(nil), cs.order...)
	return cs, nil
}

// Has reports whether field names a column.
func (cs *ColumnSet) Has(field string) bool {
	_, ok := cs.defs[field]
	return ok
}

// Definition returns the column as declared, without state applied.
func (cs *ColumnSet) Definition(field string) (Column, bool) {
	c, ok := cs.defs[field]
	return c, ok
}

// Column returns the column with its current state applied.
func (cs *ColumnSet) Column(field string) (Column, bool) {
	c, ok := cs.defs[field]
	if !ok {
		return Column{}, false
	}
	st := cs.state[field]
	c.Hidden = !st.Visible
	c.Width = st.Width
	c.Pinned = st.Pinned
	return c, true
}

// Columns returns every column in the current order with state applied.
func (cs *ColumnSet) Columns() []Column {
	out := make([]Column, 0, len(cs.order))
	for _, f := range cs.order {
		c, _ := cs.Column(f)
		out = append(out, c)
	}
	return out
}

// Visible returns the non-hidden columns: left-pinned first, then unpinned,
// then right-pinned, each group in the current order.
func (cs *ColumnSet) Visible() []Column {
	var left, mid, right []Column
	for _, c := range cs.Columns() {
		if c.Hidden {
			continue
		}
		switch c.Pinned {
		case PinLeft:
			left = append(left, c)
		case PinRight:
			right = append(right, c)
		default:
			mid = append(mid, c)
		}
	}
	out := make([]Column, 0, len(left)+len(mid)+len(right))
	out = append(out, left...)
	out = append(out, mid...)
	return append(out, right...)
}

// Order returns the field order.
func (cs *ColumnSet) Order() []string {
	return append([]string(nil), cs.order...)
}

func (cs *ColumnSet) lookup(field string) (*ColumnState, error) {
	st, ok := cs.state[field]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	return st, nil
}

// SetVisible shows or hides a column. It reports whether anything changed.
func (cs *ColumnSet) SetVisible(field string, visible bool) (bool, error) {
	st, err := cs.lookup(field)
	if err != nil {
		return false, err
	}
	if st.Visible == visible {
		return false, nil
	}
	st.Visible = visible
	return true, nil
}

// Pin moves a column into a pinned group.
func (cs *ColumnSet) Pin(field string, pin Pin) error {
	st, err := cs.lookup(field)
	if err != nil {
		return err
	}
	switch pin {
	case PinLeft, PinRight, PinNone:
	case "":
		pin = PinNone
	default:
		return fmt.Errorf("invalid pin %q", pin)
	}
	st.Pinned = pin
	return nil
}

// Resize sets a column width, clamped to MinColumnWidth, and returns the applied width.
func (cs *ColumnSet) Resize(field string, width int) (int, error) {
	st, err := cs.lookup(field)
	if err != nil {
		return 0, err
	}
	if width < MinColumnWidth {
		width = MinColumnWidth
	}
	st.Width = width
	return width, nil
}

// Width returns the current width of field.
func (cs *ColumnSet) Width(field string) int {
	if st, ok := cs.state[field]; ok {
		return st.Width
	}
	return 0
}

func (cs *ColumnSet) index(field string) int {
	for i, f := range cs.order {
		if f == field {
			return i
		}
	}
	return -1
}

// Move splices source out of the order and reinserts it at target's index.
// It reports false when either field is unknown or both share an index.
func (cs *ColumnSet) Move(source, target string) bool {
	return cs.MoveIndex(cs.index(source), cs.index(target))
}

// MoveIndex moves the column at from to position to.
func (cs *ColumnSet) MoveIndex(from, to int) bool {
	if from < 0 || to < 0 || from >= len(cs.order) || to >= len(cs.order) || from == to {
		return false
	}
	f := cs.order[from]
	cs.order = append(cs.order[:from], cs.order[from+1:]...)
	cs.order = append(cs.order[:to], append([]string{f}, cs.order[to:]...)...)
	return true
}

// setSort records the active sort direction on one column and clears the rest.
func (cs *ColumnSet) setSort(s *SortState) {
	for f, st := range cs.state {
		if s != nil && f == s.Field {
			st.SortDirection = s.Direction
		} else {
			st.SortDirection = ""
		}
	}
}

// States returns the state of every column in the current order.
func (cs *ColumnSet) States() []ColumnState {
	out := make([]ColumnState, 0, len(cs.order))
	for _, f := range cs.order {
		out = append(out, *cs.state[f])
	}
	return out
}

// ApplyStates restores previously saved state. Unknown fields are ignored;
// columns missing from states keep their state and follow the listed ones.
func (cs *ColumnSet) ApplyStates(states []ColumnState) {
	order := make([]string, 0, len(cs.order))
	listed := make(map[string]bool, len(states))
	for _, s := range states {
		st, ok := cs.state[s.Field]
		if !ok || listed[s.Field] {
			continue
		}
		listed[s.Field] = true
		st.Visible = s.Visible
		if s.Pinned != "" {
			st.Pinned = s.Pinned
		}
		if s.Width > 0 {
			st.Width = max(s.Width, MinColumnWidth)
		}
		order = append(order, s.Field)
	}
	for _, f := range cs.order {
		if !listed[f] {
			order = append(order, f)
		}
	}
	cs.order = order
}

// Reset restores the order and state captured at construction.
func (cs *ColumnSet) Reset() {
	cs.order = append([]string(nil), cs.initialOrder...)
	for f, st := range cs.initial {
		s := st
		cs.state[f] = &s
	}
}
