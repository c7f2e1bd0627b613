package grid

import (
	"errors"
	"fmt"
)

// MinColumnWidth is the smallest width a column may have, in pixel-equivalent units.
const MinColumnWidth = 80

// DefaultColumnWidth is used when a column is declared without a width.
const DefaultColumnWidth = 150

var (
	// ErrDuplicateField is returned when two columns share the same field.
	ErrDuplicateField = errors.New("duplicate column field")
	// ErrUnknownField is returned when an operation names a field that is not a column.
	ErrUnknownField = errors.New("unknown column field")
)

// ColumnType selects the comparison and formatting rules for a column.
type ColumnType string

const (
	TypeString  ColumnType = "string"
	TypeNumber  ColumnType = "number"
	TypeBoolean ColumnType = "boolean"
	TypeDate    ColumnType = "date"
	TypeActions ColumnType = "actions"
)

// Pin places a column at the left or right edge of the grid.
type Pin string

const (
	PinNone  Pin = "none"
	PinLeft  Pin = "left"
	PinRight Pin = "right"
)

// Edge reports whether p pins to an edge. The zero value counts as PinNone.
func (p Pin) Edge() bool { return p == PinLeft || p == PinRight }

// Renderer turns a cell value into display text. A renderer that panics is not
// recovered by the grid.
type Renderer func(value any, row Row) string

// Column describes one grid column.
type Column struct {
	Field      string     `json:"field" yaml:"field"`
	HeaderName string     `json:"headerName" yaml:"headerName"`
	Width      int        `json:"width" yaml:"width"`
	Sortable   bool       `json:"sortable" yaml:"sortable"`
	Filterable bool       `json:"filterable" yaml:"filterable"`
	Resizable  bool       `json:"resizable" yaml:"resizable"`
	Type       ColumnType `json:"type" yaml:"type"`
	Hidden     bool       `json:"hidden" yaml:"hidden"`
	Pinned     Pin        `json:"pinned,omitempty" yaml:"pinned,omitempty"`
	Renderer   Renderer   `json:"-" yaml:"-"`
}

// Title returns the header text, falling back to the field name.
func (c Column) Title() string {
	if c.HeaderName != "" {
		return c.HeaderName
	}
	return c.Field
}

func normalizeColumn(c Column) Column {
	if c.Type == "" {
		c.Type = TypeString
	}
	if c.Width == 0 {
		c.Width = DefaultColumnWidth
	}
	if c.Width < MinColumnWidth {
		c.Width = MinColumnWidth
	}
	if c.Pinned == "" {
		c.Pinned = PinNone
	}
	if c.Type == TypeActions {
		c.Sortable = false
		c.Filterable = false
	}
	return c
}

func validateColumns(columns []Column) error {
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		if c.Field == "" {
			return fmt.Errorf("column %q: empty field", c.HeaderName)
		}
		if seen[c.Field] {
			return fmt.Errorf("%w: %s", ErrDuplicateField, c.Field)
		}
		seen[c.Field] = true
	}
	return nil
}
