package grid

import (
	"fmt"
)

// ChipKind tells which filter style a chip represents.
type ChipKind int

const (
	ConditionChip ChipKind = iota
	ValueChip
)

// Chip is one active filter rendered as a removable pill.
type Chip struct {
	Kind  ChipKind
	Field string
	Label string
}

// Filters returns the active filters.
func (g *Grid) Filters() FilterChange {
	return FilterChange{
		Conditions:   g.filters.Conditions(),
		ValueFilters: g.filters.ValueFilters(),
	}
}

// filtersChanged recomputes the view, rewinds to page 1 and raises OnFilterChange.
func (g *Grid) filtersChanged() {
	g.pager.rewind()
	g.invalidate()
	if g.cb.OnFilterChange != nil {
		g.cb.OnFilterChange(g.Filters())
	}
}

// SetCondition adds or replaces the toolbar condition for c.Field.
func (g *Grid) SetCondition(c Condition) error {
	col, ok := g.columns.Definition(c.Field)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, c.Field)
	}
	if !col.Filterable {
		return fmt.Errorf("column %q is not filterable", c.Field)
	}
	if _, err := ParseOperator(string(c.Operator)); err != nil {
		return err
	}
	if !c.Operator.NeedsValue() {
		c.Value = ""
	}
	g.filters.SetCondition(c)
	g.filtersChanged()
	return nil
}

// RemoveCondition drops the toolbar condition for field.
func (g *Grid) RemoveCondition(field string) bool {
	if !g.filters.RemoveCondition(field) {
		return false
	}
	g.filtersChanged()
	return true
}

// SetValueFilter replaces the popover filter for f.Field. Empty values remove it.
func (g *Grid) SetValueFilter(f ValueFilter) error {
	col, ok := g.columns.Definition(f.Field)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, f.Field)
	}
	if !col.Filterable {
		return fmt.Errorf("column %q is not filterable", f.Field)
	}
	g.filters.SetValues(f)
	g.filtersChanged()
	return nil
}

// RemoveValueFilter drops the popover filter for field.
func (g *Grid) RemoveValueFilter(field string) bool {
	if !g.filters.RemoveValues(field) {
		return false
	}
	g.filtersChanged()
	return true
}

// ClearFilters removes every filter of both styles.
func (g *Grid) ClearFilters() {
	if g.filters.Len() == 0 {
		return
	}
	g.filters.Clear()
	g.filtersChanged()
}

// Chips lists the active filters, conditions first, each in insertion order.
func (g *Grid) Chips() []Chip {
	out := make([]Chip, 0, g.filters.Len())
	for _, c := range g.filters.Conditions() {
		out = append(out, Chip{Kind: ConditionChip, Field: c.Field, Label: g.chipLabel(c.Field, c.String())})
	}
	for _, f := range g.filters.ValueFilters() {
		out = append(out, Chip{Kind: ValueChip, Field: f.Field, Label: g.chipLabel(f.Field, f.String())})
	}
	return out
}

// chipLabel swaps the field name for the column title.
func (g *Grid) chipLabel(field, s string) string {
	col, ok := g.columns.Definition(field)
	if !ok || col.Title() == field {
		return s
	}
	return col.Title() + s[len(field):]
}

// RemoveChip removes exactly the filter the chip stands for.
func (g *Grid) RemoveChip(c Chip) bool {
	if c.Kind == ValueChip {
		return g.RemoveValueFilter(c.Field)
	}
	return g.RemoveCondition(c.Field)
}

// ClickChip reopens the editor that created the chip. Value chips reopen the
// popover anchored at the chip's position; condition chips return an editor.
func (g *Grid) ClickChip(c Chip, at Rect) (*Popover, *ConditionEditor, error) {
	if c.Kind == ValueChip {
		p, err := g.OpenFilter(c.Field, at)
		return p, nil, err
	}
	ed, err := g.EditCondition(c.Field)
	return nil, ed, err
}

// ConditionEditor edits one toolbar condition inline.
type ConditionEditor struct {
	g        *Grid
	Field    string
	Operator Operator
	Value    string
}

// EditCondition starts an editor seeded with the field's current condition,
// or "contains" with no value.
func (g *Grid) EditCondition(field string) (*ConditionEditor, error) {
	col, ok := g.columns.Definition(field)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	if !col.Filterable {
		return nil, fmt.Errorf("column %q is not filterable", field)
	}
	ed := &ConditionEditor{g: g, Field: field, Operator: OpContains}
	if c, ok := g.filters.Condition(field); ok {
		ed.Operator, ed.Value = c.Operator, c.Value
	}
	g.editor = ed
	return ed, nil
}

// Editor returns the condition editor in progress, if any.
func (g *Grid) Editor() *ConditionEditor { return g.editor }

// CycleOperator steps through Operators.
func (e *ConditionEditor) CycleOperator(step int) {
	n := len(Operators)
	i := 0
	for j, op := range Operators {
		if op == e.Operator {
			i = j
			break
		}
	}
	e.Operator = Operators[((i+step)%n+n)%n]
}

// Commit applies the condition. An empty value on an operator that needs one
// removes the field's condition instead.
func (e *ConditionEditor) Commit() error {
	defer e.done()
	if e.Operator.NeedsValue() && e.Value == "" {
		e.g.RemoveCondition(e.Field)
		return nil
	}
	return e.g.SetCondition(Condition{Field: e.Field, Operator: e.Operator, Value: e.Value})
}

// Cancel drops the edit.
func (e *ConditionEditor) Cancel() { e.done() }

func (e *ConditionEditor) done() {
	if e.g.editor == e {
		e.g.editor = nil
	}
}
