package grid

import (
	"fmt"
	"sort"
	"strings"
)

// Operator is a toolbar filter operator.
type Operator string

const (
	// OpContains matches a case-insensitive substring.
	OpContains Operator = "contains"
	// OpNotContains is the negation of OpContains.
	OpNotContains Operator = "notContains"
	// OpEquals matches the whole value, ignoring case.
	OpEquals Operator = "equals"
	// OpNotEquals is the negation of OpEquals.
	OpNotEquals Operator = "notEquals"
	// OpStartsWith matches a case-insensitive prefix.
	OpStartsWith Operator = "startsWith"
	// OpEndsWith matches a case-insensitive suffix.
	OpEndsWith Operator = "endsWith"
	// OpGreaterThan compares numerically, then as dates, then as text.
	OpGreaterThan Operator = "greaterThan"
	// OpLessThan compares like OpGreaterThan.
	OpLessThan Operator = "lessThan"
	// OpGreaterThanOrEqual compares like OpGreaterThan.
	OpGreaterThanOrEqual Operator = "greaterThanOrEqual"
	// OpLessThanOrEqual compares like OpGreaterThan.
	OpLessThanOrEqual Operator = "lessThanOrEqual"
	// OpIsEmpty matches nil and blank values. It takes no value.
	OpIsEmpty Operator = "isEmpty"
	// OpIsNotEmpty is the negation of OpIsEmpty.
	OpIsNotEmpty Operator = "isNotEmpty"
)

// Operators lists every supported operator in menu order.
var Operators = []Operator{
	OpContains, OpNotContains, OpEquals, OpNotEquals, OpStartsWith, OpEndsWith,
	OpGreaterThan, OpLessThan, OpGreaterThanOrEqual, OpLessThanOrEqual,
	OpIsEmpty, OpIsNotEmpty,
}

var operatorSymbols = map[Operator]string{
	OpContains:           "contains",
	OpNotContains:        "does not contain",
	OpEquals:             "=",
	OpNotEquals:          "!=",
	OpStartsWith:         "starts with",
	OpEndsWith:           "ends with",
	OpGreaterThan:        ">",
	OpLessThan:           "<",
	OpGreaterThanOrEqual: ">=",
	OpLessThanOrEqual:    "<=",
	OpIsEmpty:            "is empty",
	OpIsNotEmpty:         "is not empty",
}

// ParseOperator resolves an operator name case-insensitively.
func ParseOperator(s string) (Operator, error) {
	s = strings.TrimSpace(s)
	for _, op := range Operators {
		if strings.EqualFold(string(op), s) {
			return op, nil
		}
	}
	return "", fmt.Errorf("unknown filter operator %q", s)
}

// NeedsValue reports whether the operator compares against a value.
func (o Operator) NeedsValue() bool {
	return o != OpIsEmpty && o != OpIsNotEmpty
}

// Symbol is the short label used on chips.
func (o Operator) Symbol() string {
	if s, ok := operatorSymbols[o]; ok {
		return s
	}
	return string(o)
}

// Condition is a toolbar-style single-value filter.
type Condition struct {
	Field    string   `json:"field" yaml:"field"`
	Operator Operator `json:"operator" yaml:"operator"`
	Value    string   `json:"value,omitempty" yaml:"value,omitempty"`
}

// Match evaluates the condition against a cell value.
func (c Condition) Match(v any) bool {
	switch c.Operator {
	case OpIsEmpty:
		return isBlank(v)
	case OpIsNotEmpty:
		return !isBlank(v)
	}
	cell := strings.ToLower(stringify(v))
	want := strings.ToLower(c.Value)
	switch c.Operator {
	case OpContains:
		return strings.Contains(cell, want)
	case OpNotContains:
		return !strings.Contains(cell, want)
	case OpEquals:
		return cell == want
	case OpNotEquals:
		return cell != want
	case OpStartsWith:
		return strings.HasPrefix(cell, want)
	case OpEndsWith:
		return strings.HasSuffix(cell, want)
	case OpGreaterThan, OpLessThan, OpGreaterThanOrEqual, OpLessThanOrEqual:
		if isNull(v) {
			return false
		}
		cmp, ok := compareForFilter(v, c.Value)
		if !ok {
			return false
		}
		switch c.Operator {
		case OpGreaterThan:
			return cmp > 0
		case OpLessThan:
			return cmp < 0
		case OpGreaterThanOrEqual:
			return cmp >= 0
		default:
			return cmp <= 0
		}
	}
	return false
}

// compareForFilter coerces numerically first, then as dates, then compares
// the lowercased text.
func compareForFilter(cell any, value string) (int, bool) {
	if a, ok := toFloat(cell); ok {
		if b, ok := toFloat(value); ok {
			return compareFloat64s(a, b), true
		}
		return 0, false
	}
	if a, ok := toTime(cell); ok {
		if b, ok := toTime(value); ok {
			return a.Compare(b), true
		}
	}
	return strings.Compare(strings.ToLower(stringify(cell)), strings.ToLower(value)), true
}

func (c Condition) String() string {
	if !c.Operator.NeedsValue() {
		return fmt.Sprintf("%s %s", c.Field, c.Operator.Symbol())
	}
	return fmt.Sprintf("%s %s %q", c.Field, c.Operator.Symbol(), c.Value)
}

// ValueFilter is a popover-style IN filter over a set of distinct values.
type ValueFilter struct {
	Field  string   `json:"field" yaml:"field"`
	Values []string `json:"values" yaml:"values"`
}

// Match reports whether the cell's text is one of the selected values.
func (f ValueFilter) Match(v any) bool {
	cell := stringify(v)
	for _, want := range f.Values {
		if cell == want {
			return true
		}
	}
	return false
}

func (f ValueFilter) String() string {
	switch len(f.Values) {
	case 0:
		return f.Field + " in ()"
	case 1:
		return fmt.Sprintf("%s = %s", f.Field, f.Values[0])
	}
	return fmt.Sprintf("%s in (%d)", f.Field, len(f.Values))
}

// Predicate is an additional row filter composed with AND semantics.
type Predicate func(Row) bool

// FilterSet holds at most one Condition and one ValueFilter per field, in
// insertion order.
type FilterSet struct {
	conditions []Condition
	values     []ValueFilter
}

// SetCondition adds or replaces the condition for c.Field.
func (s *FilterSet) SetCondition(c Condition) {
	for i := range s.conditions {
		if s.conditions[i].Field == c.Field {
			s.conditions[i] = c
			return
		}
	}
	s.conditions = append(s.conditions, c)
}

// RemoveCondition drops the condition for field and reports whether one existed.
func (s *FilterSet) RemoveCondition(field string) bool {
	for i := range s.conditions {
		if s.conditions[i].Field == field {
			s.conditions = append(s.conditions[:i], s.conditions[i+1:]...)
			return true
		}
	}
	return false
}

// SetValues adds or replaces the value filter for f.Field. An empty value set removes it.
func (s *FilterSet) SetValues(f ValueFilter) {
	if len(f.Values) == 0 {
		s.RemoveValues(f.Field)
		return
	}
	vals := append([]string(nil), f.Values...)
	sort.Strings(vals)
	f.Values = vals
	for i := range s.values {
		if s.values[i].Field == f.Field {
			s.values[i] = f
			return
		}
	}
	s.values = append(s.values, f)
}

// RemoveValues drops the value filter for field and reports whether one existed.
func (s *FilterSet) RemoveValues(field string) bool {
	for i := range s.values {
		if s.values[i].Field == field {
			s.values = append(s.values[:i], s.values[i+1:]...)
			return true
		}
	}
	return false
}

// Condition returns the condition for field, if any.
func (s *FilterSet) Condition(field string) (Condition, bool) {
	for _, c := range s.conditions {
		if c.Field == field {
			return c, true
		}
	}
	return Condition{}, false
}

// Values returns the value filter for field, if any.
func (s *FilterSet) Values(field string) (ValueFilter, bool) {
	for _, f := range s.values {
		if f.Field == field {
			return f, true
		}
	}
	return ValueFilter{}, false
}

// Conditions returns a copy of the active conditions.
func (s *FilterSet) Conditions() []Condition {
	return append([]Condition(nil), s.conditions...)
}

// ValueFilters returns a copy of the active value filters.
func (s *FilterSet) ValueFilters() []ValueFilter {
	out := make([]ValueFilter, len(s.values))
	for i, f := range s.values {
		out[i] = ValueFilter{Field: f.Field, Values: append([]string(nil), f.Values...)}
	}
	return out
}

// Len is the number of active filters of both styles.
func (s *FilterSet) Len() int {
	return len(s.conditions) + len(s.values)
}

// Clear removes every filter.
func (s *FilterSet) Clear() {
	s.conditions = nil
	s.values = nil
}

// Match reports whether row satisfies every active filter.
func (s *FilterSet) Match(row Row) bool {
	for _, c := range s.conditions {
		if !c.Match(row.Value(c.Field)) {
			return false
		}
	}
	for _, f := range s.values {
		if !f.Match(row.Value(f.Field)) {
			return false
		}
	}
	return true
}

// Apply returns the rows matching every filter and every extra predicate.
func (s *FilterSet) Apply(rows []Row, extra ...Predicate) []Row {
	if s.Len() == 0 && len(extra) == 0 {
		return rows
	}
	out := make([]Row, 0, len(rows))
outer:
	for _, r := range rows {
		if !s.Match(r) {
			continue
		}
		for _, p := range extra {
			if p != nil && !p(r) {
				continue outer
			}
		}
		out = append(out, r)
	}
	return out
}
