// Package expr compiles CEL row predicates such as `row.battery < 20 &&
// row.status == "online"` for client-side filtering.
package expr

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	celext "github.com/google/cel-go/ext"

	"github.com/oakwood-commons/fleetgrid/pkg/grid"
)

// RowVar is the variable a predicate reads the row through.
const RowVar = "row"

// Evaluator owns the CEL environment.
type Evaluator struct {
	env *cel.Env
}

// NewEvaluator creates an environment with the string, list and math
// extensions and a dynamic `row` map.
func NewEvaluator() (*Evaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable(RowVar, cel.MapType(cel.StringType, cel.DynType)),
		celext.Strings(),
		celext.Lists(),
		celext.Math(),
		cel.CrossTypeNumericComparisons(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return &Evaluator{env: env}, nil
}

// Predicate is a compiled boolean expression over one row.
type Predicate struct {
	source string
	prg    cel.Program
}

// Compile parses and type-checks src. The expression must yield a bool.
func (e *Evaluator) Compile(src string) (*Predicate, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, fmt.Errorf("empty expression")
	}
	ast, issues := e.env.Compile(src)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compilation error: %w", issues.Err())
	}
	if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("expression %q yields %s, want bool", src, ast.OutputType())
	}
	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %w", err)
	}
	return &Predicate{source: src, prg: prg}, nil
}

// String returns the expression source.
func (p *Predicate) String() string { return p.source }

// Eval runs the predicate against row. Missing keys, nulls in comparisons
// and non-bool results are errors.
func (p *Predicate) Eval(row grid.Row) (bool, error) {
	out, _, err := p.prg.Eval(map[string]any{RowVar: normalize(row)})
	if err != nil {
		return false, fmt.Errorf("eval error: %w", err)
	}
	b, ok := out.(types.Bool)
	if !ok {
		return false, fmt.Errorf("expression %q yielded %s, want bool", p.source, typeName(out))
	}
	return bool(b), nil
}

// Match is Eval with errors counted as a mismatch, so rows lacking a field
// drop out instead of failing the whole view.
func (p *Predicate) Match(row grid.Row) bool {
	ok, err := p.Eval(row)
	return err == nil && ok
}

// Func adapts the predicate for grid.WithPredicate.
func (p *Predicate) Func() grid.Predicate { return p.Match }

// All combines predicates with AND.
func All(preds ...*Predicate) grid.Predicate {
	return func(r grid.Row) bool {
		for _, p := range preds {
			if !p.Match(r) {
				return false
			}
		}
		return true
	}
}

func typeName(v ref.Val) string {
	if v == nil {
		return "null"
	}
	return v.Type().TypeName()
}

// normalize converts values CEL cannot adapt natively. Rows decoded with
// json.Number carry numbers as strings.
func normalize(row grid.Row) map[string]any {
	out := make(map[string]any, len(row))
	for k, v := range row {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalizeValue(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = normalizeValue(e)
		}
		return out
	case grid.Row:
		return normalize(t)
	}
	return v
}
