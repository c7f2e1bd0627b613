package grid

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Direction is the sort direction of the active sort field.
type Direction string

const (
	// Asc orders smallest first.
	Asc Direction = "asc"
	// Desc orders largest first. Nulls still sort last.
	Desc Direction = "desc"
)

// ParseDirection accepts asc/ascending and desc/descending in any case.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asc", "ascending":
		return Asc, nil
	case "desc", "descending":
		return Desc, nil
	}
	return "", fmt.Errorf("invalid sort direction %q (expected asc or desc)", s)
}

// SortState is the single active sort. A nil *SortState means unsorted.
type SortState struct {
	Field     string    `json:"field" yaml:"field"`
	Direction Direction `json:"direction" yaml:"direction"`
}

func (s *SortState) String() string {
	if s == nil {
		return "none"
	}
	return s.Field + " " + string(s.Direction)
}

// NextSort advances the tri-state cycle none -> asc -> desc -> none for field.
// Activating a different field always starts at asc.
func NextSort(current *SortState, field string) *SortState {
	if current == nil || current.Field != field {
		return &SortState{Field: field, Direction: Asc}
	}
	if current.Direction == Asc {
		return &SortState{Field: field, Direction: Desc}
	}
	return nil
}

// comparator performs type-aware value comparison. Collators keep internal
// buffers, so access is serialized.
type comparator struct {
	mu       sync.Mutex
	collator *collate.Collator
}

func newComparator(tag language.Tag) *comparator {
	return &comparator{collator: collate.New(tag, collate.IgnoreCase, collate.Loose)}
}

// compare orders two non-null values of the given column type.
func (c *comparator) compare(t ColumnType, a, b any) int {
	switch t {
	case TypeNumber:
		fa, okA := toFloat(a)
		fb, okB := toFloat(b)
		if okA && okB {
			return compareFloat64s(fa, fb)
		}
	case TypeDate:
		ta, okA := toTime(a)
		tb, okB := toTime(b)
		if okA && okB {
			return ta.Compare(tb)
		}
	case TypeBoolean:
		ba, okA := toBool(a)
		bb, okB := toBool(b)
		if okA && okB {
			return compareBools(ba, bb)
		}
	}
	return c.compareStrings(stringify(a), stringify(b))
}

func (c *comparator) compareStrings(a, b string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if r := c.collator.CompareString(a, b); r != 0 {
		return r
	}
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

func compareFloat64s(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareBools(a, b bool) int {
	if a == b {
		return 0
	}
	if !a {
		return -1
	}
	return 1
}

// sortRows returns a stably sorted copy of rows. Null values sort last in
// both directions; desc negates the comparison of non-null values only.
func (c *comparator) sortRows(rows []Row, col Column, dir Direction) []Row {
	out := make([]Row, len(rows))
	copy(out, rows)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Value(col.Field), out[j].Value(col.Field)
		aNull, bNull := isNull(a), isNull(b)
		switch {
		case aNull && bNull:
			return false
		case aNull:
			return false
		case bNull:
			return true
		}
		cmp := c.compare(col.Type, a, b)
		if dir == Desc {
			cmp = -cmp
		}
		return cmp < 0
	})
	return out
}
