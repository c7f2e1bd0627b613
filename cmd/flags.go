package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"github.com/oakwood-commons/fleetgrid/pkg/grid"
)

// conditionsFlag collects repeated --filter field:operator[:value] values.
type conditionsFlag struct {
	conds []grid.Condition
}

var _ pflag.Value = (*conditionsFlag)(nil)

func (f *conditionsFlag) String() string {
	parts := make([]string, len(f.conds))
	for i, c := range f.conds {
		parts[i] = c.Field + ":" + string(c.Operator)
		if c.Value != "" {
			parts[i] += ":" + c.Value
		}
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// Set parses one condition. The value may itself contain colons.
func (f *conditionsFlag) Set(s string) error {
	field, rest, ok := strings.Cut(s, ":")
	if !ok || strings.TrimSpace(field) == "" {
		return fmt.Errorf("filter %q: expected field:operator[:value]", s)
	}
	opName, value, _ := strings.Cut(rest, ":")
	op, err := grid.ParseOperator(opName)
	if err != nil {
		return err
	}
	if op.NeedsValue() && value == "" {
		return fmt.Errorf("filter %q: operator %s needs a value", s, op)
	}
	c := grid.Condition{Field: strings.TrimSpace(field), Operator: op, Value: value}
	// A later flag for the same field replaces the earlier one.
	for i := range f.conds {
		if f.conds[i].Field == c.Field {
			f.conds[i] = c
			return nil
		}
	}
	f.conds = append(f.conds, c)
	return nil
}

func (f *conditionsFlag) Type() string { return "field:op:value" }

// Conditions returns the parsed conditions in flag order.
func (f *conditionsFlag) Conditions() []grid.Condition { return f.conds }

// valuesFlag collects repeated --in field=a,b,c values.
type valuesFlag struct {
	filters []grid.ValueFilter
}

var _ pflag.Value = (*valuesFlag)(nil)

func (f *valuesFlag) String() string {
	parts := make([]string, len(f.filters))
	for i, v := range f.filters {
		parts[i] = v.Field + "=" + strings.Join(v.Values, ",")
	}
	return "[" + strings.Join(parts, ";") + "]"
}

func (f *valuesFlag) Set(s string) error {
	field, list, ok := strings.Cut(s, "=")
	field = strings.TrimSpace(field)
	if !ok || field == "" {
		return fmt.Errorf("in filter %q: expected field=value[,value...]", s)
	}
	var values []string
	for _, v := range strings.Split(list, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return fmt.Errorf("in filter %q: no values", s)
	}
	for i := range f.filters {
		if f.filters[i].Field == field {
			f.filters[i].Values = append(f.filters[i].Values, values...)
			return nil
		}
	}
	f.filters = append(f.filters, grid.ValueFilter{Field: field, Values: values})
	return nil
}

func (f *valuesFlag) Type() string { return "field=a,b" }

func (f *valuesFlag) Filters() []grid.ValueFilter { return f.filters }

// parseSort reads --sort field[:asc|desc] or -field.
func parseSort(s string) (*grid.SortState, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	field, dir, hasDir := strings.Cut(s, ":")
	st := &grid.SortState{Field: strings.TrimSpace(field), Direction: grid.Asc}
	if strings.HasPrefix(st.Field, "-") {
		st.Field = strings.TrimPrefix(st.Field, "-")
		st.Direction = grid.Desc
	}
	if hasDir {
		d, err := grid.ParseDirection(dir)
		if err != nil {
			return nil, err
		}
		st.Direction = d
	}
	if st.Field == "" {
		return nil, fmt.Errorf("sort %q: missing field", s)
	}
	return st, nil
}
