package api_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakwood-commons/fleetgrid/internal/api"
	"github.com/oakwood-commons/fleetgrid/internal/demo"
	"github.com/oakwood-commons/fleetgrid/internal/resources"
	"github.com/oakwood-commons/fleetgrid/pkg/grid"
	"github.com/oakwood-commons/fleetgrid/pkg/session"
)

const token = "t0ken"

func newBackend(t *testing.T, rows int) (*api.Client, *demo.Store, *session.Store) {
	t.Helper()
	store := demo.NewStore(11, rows)
	srv := httptest.NewServer(demo.NewServer(store, demo.WithToken(token)).Handler())
	t.Cleanup(srv.Close)

	sess := session.NewStore(session.Credentials{AccessToken: token})
	c, err := api.NewClient(srv.URL, sess, api.WithClock(func() time.Time {
		return time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	}))
	require.NoError(t, err)
	return c, store, sess
}

func TestNewClientValidatesURL(t *testing.T) {
	for _, u := range []string{"", "ftp://x", "://bad"} {
		_, err := api.NewClient(u, nil)
		assert.Error(t, err, u)
	}
	c, err := api.NewClient("https://fleet.example/api/", nil)
	require.NoError(t, err)
	assert.Equal(t, "https://fleet.example/api", c.BaseURL())
	assert.False(t, c.Session().Authenticated())
}

func TestList(t *testing.T) {
	c, _, _ := newBackend(t, 45)

	res, err := c.List(context.Background(), "vehicles", api.ListQuery{Page: 2, Limit: 20})
	require.NoError(t, err)
	assert.Len(t, res.Rows, 20)
	assert.Equal(t, api.PageInfo{Page: 2, Limit: 20, Total: 45, TotalPages: 3, HasNext: true, HasPrev: true}, res.Pagination)
}

func TestListFromGridState(t *testing.T) {
	c, store, _ := newBackend(t, 60)
	res := resources.Get("drivers")

	var got []grid.Row
	g, err := grid.New(res.Columns, grid.WithMode(grid.ServerMode), grid.WithPageSize(10))
	require.NoError(t, err)
	defer g.Close()
	require.NoError(t, g.SetValueFilter(grid.ValueFilter{Field: "active", Values: []string{"true"}}))
	require.NoError(t, g.SetSort(&grid.SortState{Field: "name", Direction: grid.Asc}))

	page, err := c.List(context.Background(), "drivers", api.QueryFromGrid(g))
	require.NoError(t, err)
	got = page.Rows
	g.SetRows(got)
	g.SetTotalRows(page.Pagination.Total)

	want := 0
	for _, r := range store.Rows("drivers") {
		if r["active"] == true {
			want++
		}
	}
	assert.Equal(t, want, g.TotalRows())
	assert.Len(t, g.PageRows(), min(10, want))
	for i := 1; i < len(got); i++ {
		assert.LessOrEqual(t, strings.ToLower(got[i-1]["name"].(string)), strings.ToLower(got[i]["name"].(string)))
	}
}

func TestQueryRoundTrip(t *testing.T) {
	q := api.ListQuery{
		Page:   4,
		Limit:  25,
		Sort:   &grid.SortState{Field: "age", Direction: grid.Desc},
		Search: "ana",
		Filters: []api.Filter{
			{Field: "name", Operator: "contains", Value: "an"},
			{Field: "status", Operator: api.OperatorIn, Values: []string{"online", "offline"}},
		},
	}
	v, err := q.Values()
	require.NoError(t, err)
	back, err := api.ParseListQuery(v)
	require.NoError(t, err)
	assert.Equal(t, q, back)

	conds, values, err := api.DecodeFilters(back.Filters)
	require.NoError(t, err)
	assert.Equal(t, q.Filters, api.EncodeFilters(conds, values))
}

func TestFilterOptionsAndLoader(t *testing.T) {
	c, _, _ := newBackend(t, 30)

	res, err := c.FilterOptions(context.Background(), "alerts", "severity", "", 0)
	require.NoError(t, err)
	require.NotEmpty(t, res.Options)
	assert.Equal(t, len(res.Options), res.Total)

	load := c.OptionLoader("alerts", 2)
	opts, err := load(context.Background(), "severity", "crit")
	require.NoError(t, err)
	require.Len(t, opts, 1)
	assert.Equal(t, "critical", opts[0].Value)

	_, err = c.FilterOptions(context.Background(), "alerts", "id", "", 0)
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "not filterable")
}

func TestSaveExport(t *testing.T) {
	c, _, _ := newBackend(t, 12)
	dir := t.TempDir()

	p, err := c.SaveExport(context.Background(), "reports", grid.FormatCSV, url.Values{"search": {"fuel"}}, filepath.Join(dir, "out"), "reports")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "out", "reports_20250304_050607.csv"), p)

	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "ID,Name,Kind"))

	d, err := c.Export(context.Background(), "reports", grid.FormatPDF, nil)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", d.ContentType)
	assert.True(t, strings.HasSuffix(d.Filename, ".pdf"))
}

func TestExportFilename(t *testing.T) {
	at := time.Date(2024, 12, 31, 23, 59, 1, 0, time.UTC)
	assert.Equal(t, "devices_20241231_235901.xlsx", api.ExportFilename("devices", grid.FormatXLSX, at))
	assert.Equal(t, "export_20241231_235901.csv", api.ExportFilename(" ", grid.FormatCSV, at))
}

func TestImport(t *testing.T) {
	c, store, _ := newBackend(t, 0)

	res, err := c.Import(context.Background(), "groups", "groups.csv", strings.NewReader("name,devices\nNorth 9,12\n,3\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Imported)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, 3, res.Errors[0].Row)
	assert.Equal(t, "imported 1 rows, 1 rejected", res.Summary())
	assert.Len(t, store.Rows("groups"), 1)
}

func TestUnauthorizedClearsSession(t *testing.T) {
	c, _, sess := newBackend(t, 5)
	sess.Set(session.Credentials{AccessToken: "stale"})
	hooked := 0
	sess.OnClear(func() { hooked++ })

	_, err := c.List(context.Background(), "devices", api.ListQuery{Page: 1, Limit: 10})
	require.Error(t, err)
	assert.True(t, errors.Is(err, api.ErrUnauthorized))
	assert.Contains(t, err.Error(), "invalid or expired token")
	assert.False(t, sess.Authenticated())
	assert.Equal(t, 1, hooked)
}

func TestOnUnauthorizedHook(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	called := false
	c, err := api.NewClient(srv.URL, session.NewStore(session.Credentials{AccessToken: "x"}), api.WithOnUnauthorized(func() { called = true }))
	require.NoError(t, err)
	_, err = c.FilterOptions(context.Background(), "devices", "status", "", 0)
	assert.ErrorIs(t, err, api.ErrUnauthorized)
	assert.True(t, called)
}

func TestErrorNormalization(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
		errs   []string
	}{
		{"message", 500, `{"success":false,"statusCode":500,"message":"db down"}`, "db down", nil},
		{"string errors", 422, `{"success":false,"errors":"bad input"}`, "bad input", []string{"bad input"}},
		{"list errors", 422, `{"success":false,"errors":["a","b"]}`, "a; b", []string{"a", "b"}},
		{"object errors", 422, `{"success":false,"errors":[{"field":"name","message":"required"}]}`, "name: required", []string{"name: required"}},
		{"nested", 400, `{"success":false,"data":{"message":"nested","errors":["x"]}}`, "nested", []string{"x"}},
		{"plain text", 502, `Bad Gateway`, "Bad Gateway", nil},
		{"empty", 503, ``, "request failed with status 503", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()
			c, err := api.NewClient(srv.URL, nil)
			require.NoError(t, err)

			_, err = c.List(context.Background(), "devices", api.ListQuery{})
			var apiErr *api.Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.want, apiErr.Error())
			assert.Equal(t, tt.errs, apiErr.Errors)
			assert.False(t, errors.Is(err, api.ErrUnauthorized))
		})
	}
}

func TestSuccessFalseEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"statusCode":200,"message":"quota exceeded"}`))
	}))
	defer srv.Close()
	c, err := api.NewClient(srv.URL, nil)
	require.NoError(t, err)

	_, err = c.List(context.Background(), "devices", api.ListQuery{})
	assert.ErrorContains(t, err, "quota exceeded")
}

func TestRequestHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Write([]byte(`{"success":true,"data":{"options":[],"total":0}}`))
	}))
	defer srv.Close()
	c, err := api.NewClient(srv.URL, session.NewStore(session.Credentials{AccessToken: "abc", TokenType: "Token"}))
	require.NoError(t, err)

	_, err = c.FilterOptions(context.Background(), "devices", "status", "", 0)
	require.NoError(t, err)
	assert.Equal(t, "Token abc", got.Get("Authorization"))
	assert.Len(t, got.Get(api.RequestIDHeader), 36)
}
