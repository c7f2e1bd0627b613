// Package api is the client for the fleet backend: every endpoint answers
// with a {success, statusCode, message, data} envelope.
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/oakwood-commons/fleetgrid/pkg/grid"
)

// Envelope is the response wrapper used by every backend endpoint.
type Envelope[T any] struct {
	Success    bool            `json:"success"`
	StatusCode int             `json:"statusCode"`
	Message    string          `json:"message"`
	Data       T               `json:"data"`
	Errors     json.RawMessage `json:"errors,omitempty"`
}

// PageInfo is the pagination block of list responses.
type PageInfo struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

// ListResult is the data of a list response.
type ListResult struct {
	Rows       []grid.Row `json:"data"`
	Pagination PageInfo   `json:"pagination"`
}

// OptionsResult is the data of a filter-options response.
type OptionsResult struct {
	Options []grid.FilterOption `json:"options"`
	Total   int           `json:"total"`
}

// ImportError is one rejected row of an import.
type ImportError struct {
	Row     int    `json:"row"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// ImportResult is the response of an import upload.
type ImportResult struct {
	Success  bool          `json:"success"`
	Message  string        `json:"message"`
	Imported int           `json:"imported"`
	Errors   []ImportError `json:"errors,omitempty"`
}

// Summary is the one-line outcome shown to the user.
func (r *ImportResult) Summary() string {
	switch {
	case len(r.Errors) == 0 && r.Message != "":
		return r.Message
	case len(r.Errors) == 0:
		return fmt.Sprintf("imported %d rows", r.Imported)
	}
	return fmt.Sprintf("imported %d rows, %d rejected", r.Imported, len(r.Errors))
}

// ErrUnauthorized is returned for 401 responses after the session is cleared.
var ErrUnauthorized = errors.New("session expired, log in again")

// Error is a normalized backend failure.
type Error struct {
	StatusCode int
	Message    string
	Errors     []string
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && len(e.Errors) > 0 {
		msg = strings.Join(e.Errors, "; ")
	}
	if msg == "" {
		msg = fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return msg
}

// Is makes errors.Is(err, ErrUnauthorized) hold for 401 responses.
func (e *Error) Is(target error) bool {
	return target == ErrUnauthorized && e.StatusCode == 401
}

// parseErrors accepts the shapes backends use for "errors": a string, a list
// of strings, or a list of objects with a message.
func parseErrors(raw json.RawMessage) []string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	var one string
	if json.Unmarshal(raw, &one) == nil {
		if one == "" {
			return nil
		}
		return []string{one}
	}
	var many []string
	if json.Unmarshal(raw, &many) == nil {
		return many
	}
	var objs []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &objs) == nil {
		out := make([]string, 0, len(objs))
		for _, o := range objs {
			if o.Field != "" {
				out = append(out, o.Field+": "+o.Message)
			} else {
				out = append(out, o.Message)
			}
		}
		return out
	}
	return []string{string(raw)}
}

// Filter is the wire form of one active filter: a condition carries Value,
// an "in" filter carries Values.
type Filter struct {
	Field    string   `json:"field"`
	Operator string   `json:"operator"`
	Value    string   `json:"value,omitempty"`
	Values   []string `json:"values,omitempty"`
}

// OperatorIn marks a value-set filter on the wire.
const OperatorIn = "in"

// EncodeFilters converts grid filters to their wire form.
func EncodeFilters(conds []grid.Condition, values []grid.ValueFilter) []Filter {
	out := make([]Filter, 0, len(conds)+len(values))
	for _, c := range conds {
		out = append(out, Filter{Field: c.Field, Operator: string(c.Operator), Value: c.Value})
	}
	for _, v := range values {
		out = append(out, Filter{Field: v.Field, Operator: OperatorIn, Values: v.Values})
	}
	return out
}

// DecodeFilters is the inverse of EncodeFilters.
func DecodeFilters(fs []Filter) ([]grid.Condition, []grid.ValueFilter, error) {
	var conds []grid.Condition
	var values []grid.ValueFilter
	for _, f := range fs {
		if f.Field == "" {
			return nil, nil, fmt.Errorf("filter without field")
		}
		if strings.EqualFold(f.Operator, OperatorIn) {
			values = append(values, grid.ValueFilter{Field: f.Field, Values: f.Values})
			continue
		}
		op, err := grid.ParseOperator(f.Operator)
		if err != nil {
			return nil, nil, err
		}
		conds = append(conds, grid.Condition{Field: f.Field, Operator: op, Value: f.Value})
	}
	return conds, values, nil
}

// ListQuery is the state a list request carries.
type ListQuery struct {
	Page    int
	Limit   int
	Sort    *grid.SortState
	Search  string
	Filters []Filter
	Extra   url.Values
}

// QueryFromGrid captures the grid's current page, sort, search and filters.
func QueryFromGrid(g *grid.Grid) ListQuery {
	p := g.Pager()
	f := g.Filters()
	return ListQuery{
		Page:    p.Page(),
		Limit:   p.PageSize(),
		Sort:    g.Sort(),
		Search:  g.Toolbar().Text(),
		Filters: EncodeFilters(f.Conditions, f.ValueFilters),
	}
}

// Values encodes the query string.
func (q ListQuery) Values() (url.Values, error) {
	v := url.Values{}
	for k, vals := range q.Extra {
		v[k] = append([]string(nil), vals...)
	}
	page := q.Page
	if page < 1 {
		page = 1
	}
	v.Set("page", strconv.Itoa(page))
	v.Set("limit", strconv.Itoa(max(q.Limit, 0)))
	if q.Sort != nil {
		v.Set("sortBy", q.Sort.Field)
		v.Set("sortOrder", string(q.Sort.Direction))
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		v.Set("search", s)
	}
	if len(q.Filters) > 0 {
		b, err := json.Marshal(q.Filters)
		if err != nil {
			return nil, fmt.Errorf("encode filters: %w", err)
		}
		v.Set("filters", string(b))
	}
	return v, nil
}

// ParseListQuery decodes a query string produced by ListQuery.Values.
func ParseListQuery(v url.Values) (ListQuery, error) {
	q := ListQuery{Page: 1}
	if s := v.Get("page"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return q, fmt.Errorf("invalid page %q", s)
		}
		q.Page = n
	}
	if s := v.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return q, fmt.Errorf("invalid limit %q", s)
		}
		q.Limit = n
	}
	if field := v.Get("sortBy"); field != "" {
		dir := grid.Asc
		if s := v.Get("sortOrder"); s != "" {
			d, err := grid.ParseDirection(s)
			if err != nil {
				return q, err
			}
			dir = d
		}
		q.Sort = &grid.SortState{Field: field, Direction: dir}
	}
	q.Search = v.Get("search")
	if s := v.Get("filters"); s != "" {
		if err := json.Unmarshal([]byte(s), &q.Filters); err != nil {
			return q, fmt.Errorf("invalid filters: %w", err)
		}
	}
	return q, nil
}
