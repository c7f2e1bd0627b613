package grid

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// IDField is the row key used for selection and reconciliation.
const IDField = "id"

// Row is one record. The "id" value must be unique within the rows supplied to a grid.
type Row map[string]any

// ID returns the raw id value.
func (r Row) ID() any {
	return r[IDField]
}

// Key returns the id normalized to a string so numeric and string ids share one key space.
func (r Row) Key() string {
	return stringify(r[IDField])
}

// Value returns the value stored for field, or nil.
func (r Row) Value(field string) any {
	if r == nil {
		return nil
	}
	return r[field]
}

// isNull reports whether v counts as missing for sorting.
func isNull(v any) bool {
	if v == nil {
		return true
	}
	if f, ok := v.(float64); ok && math.IsNaN(f) {
		return true
	}
	return false
}

// isBlank reports whether v is missing or renders as whitespace only.
func isBlank(v any) bool {
	if isNull(v) {
		return true
	}
	return strings.TrimSpace(stringify(v)) == ""
}

// stringify renders a value as plain text without type-specific formatting.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case uint:
		return strconv.FormatUint(uint64(t), 10)
	case uint32:
		return strconv.FormatUint(uint64(t), 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	case time.Time:
		return t.Format(time.RFC3339)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// toFloat coerces v to a number. Strings are parsed after trimming.
func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, !math.IsNaN(t)
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case int32:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint32:
		return float64(t), true
	case uint64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// toTime coerces v to a time. Strings must use one of the ISO-like layouts.
func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, true
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range dateLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts, true
			}
		}
	}
	return time.Time{}, false
}

// toBool coerces v to a boolean.
func toBool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		return b, err == nil
	}
	if f, ok := toFloat(v); ok {
		return f != 0, true
	}
	return false, false
}

// FormatValue renders v using the default formatting for the column type.
func FormatValue(t ColumnType, v any) string {
	if isNull(v) {
		return ""
	}
	switch t {
	case TypeNumber:
		if f, ok := toFloat(v); ok {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
	case TypeBoolean:
		if b, ok := toBool(v); ok {
			if b {
				return "yes"
			}
			return "no"
		}
	case TypeDate:
		if ts, ok := toTime(v); ok {
			if ts.Hour() == 0 && ts.Minute() == 0 && ts.Second() == 0 {
				return ts.Format("2006-01-02")
			}
			return ts.Format("2006-01-02 15:04")
		}
	case TypeActions:
		return ""
	}
	return stringify(v)
}
