package ui

import (
	"context"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakwood-commons/fleetgrid/internal/api"
	"github.com/oakwood-commons/fleetgrid/internal/demo"
	"github.com/oakwood-commons/fleetgrid/internal/resources"
	"github.com/oakwood-commons/fleetgrid/pkg/grid"
	"github.com/oakwood-commons/fleetgrid/pkg/logger"
	"github.com/oakwood-commons/fleetgrid/pkg/session"
)

var fixedNow = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

func testContext() context.Context {
	return logger.WithLogger(context.Background(), logger.GetNoopLogger())
}

func baseOptions(t *testing.T) Options {
	return Options{
		Resource:       resources.Get("devices"),
		PageSize:       25,
		SearchDebounce: time.Millisecond,
		OptionDebounce: time.Millisecond,
		NoColor:        true,
		Width:          200,
		Height:         40,
		ExportDir:      t.TempDir(),
		Now:            fixedNow,
	}
}

func clientModel(t *testing.T, configure ...func(*Options)) *Model {
	t.Helper()
	opts := baseOptions(t)
	opts.Rows = demo.NewStore(7, 60).Rows("devices")
	for _, fn := range configure {
		fn(&opts)
	}
	m, err := New(testContext(), opts)
	require.NoError(t, err)
	return m
}

func serverModel(t *testing.T, token string) *Model {
	t.Helper()
	srv := httptest.NewServer(demo.NewServer(demo.NewStore(3, 120), demo.WithToken("secret")).Handler())
	t.Cleanup(srv.Close)
	client, err := api.NewClient(srv.URL, session.NewStore(session.Credentials{AccessToken: token}))
	require.NoError(t, err)

	opts := baseOptions(t)
	opts.Backend = client
	opts.OptionLimit = 20
	m, err := New(testContext(), opts)
	require.NoError(t, err)
	drain(t, m, m.Init())
	return m
}

// runCmd executes one command, giving up on timers and cursor blinks that
// would not fire within the window.
func runCmd(c tea.Cmd) (tea.Msg, bool) {
	ch := make(chan tea.Msg, 1)
	go func() { ch <- c() }()
	select {
	case msg := <-ch:
		return msg, true
	case <-time.After(100 * time.Millisecond):
		return nil, false
	}
}

// drain feeds every message produced by cmd back into the model.
func drain(t *testing.T, m *Model, cmd tea.Cmd) {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0 && steps < 500; steps++ {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		msg, ok := runCmd(c)
		if !ok {
			continue
		}
		switch msg := msg.(type) {
		case tea.BatchMsg:
			queue = append(queue, msg...)
		case spinner.TickMsg, tea.QuitMsg, toastExpiredMsg:
		default:
			_, next := m.Update(msg)
			queue = append(queue, next)
		}
	}
}

func keyMsg(k string) tea.KeyPressMsg {
	switch k {
	case "enter":
		return tea.KeyPressMsg{Code: tea.KeyEnter}
	case "esc":
		return tea.KeyPressMsg{Code: tea.KeyEscape}
	case "space":
		return tea.KeyPressMsg{Code: tea.KeySpace, Text: " "}
	case "tab":
		return tea.KeyPressMsg{Code: tea.KeyTab}
	case "backspace":
		return tea.KeyPressMsg{Code: tea.KeyBackspace}
	case "up":
		return tea.KeyPressMsg{Code: tea.KeyUp}
	case "down":
		return tea.KeyPressMsg{Code: tea.KeyDown}
	case "ctrl+a":
		return tea.KeyPressMsg{Code: 'a', Mod: tea.ModCtrl}
	}
	r := []rune(k)
	return tea.KeyPressMsg{Code: r[0], Text: k}
}

func press(t *testing.T, m *Model, keys ...string) {
	t.Helper()
	for _, k := range keys {
		_, cmd := m.Update(keyMsg(k))
		drain(t, m, cmd)
	}
}

func typeText(t *testing.T, m *Model, s string) {
	t.Helper()
	for _, r := range s {
		press(t, m, string(r))
	}
}

func focusField(t *testing.T, m *Model, field string) {
	t.Helper()
	for i, c := range m.cols {
		if c.Field == field {
			m.col = i
			m.sync()
			return
		}
	}
	t.Fatalf("column %q not visible", field)
}

func TestModelClientSortAndPaging(t *testing.T) {
	m := clientModel(t)
	require.Equal(t, 60, m.grid.TotalRows())
	assert.Len(t, m.table.Rows(), 25)
	assert.Equal(t, grid.IDField, m.cols[0].Field)

	press(t, m, "l", "s")
	require.NotNil(t, m.grid.Sort())
	assert.Equal(t, "name", m.grid.Sort().Field)
	assert.Equal(t, grid.Asc, m.grid.Sort().Direction)
	assert.Contains(t, m.render(), "›Name ▲")
	assert.Equal(t, "Tracker 0001", m.table.Rows()[0]["name"])

	press(t, m, "s")
	assert.Equal(t, grid.Desc, m.grid.Sort().Direction)
	assert.Equal(t, "Tracker 0060", m.table.Rows()[0]["name"])
	press(t, m, "s")
	assert.Nil(t, m.grid.Sort())

	press(t, m, "]")
	assert.Equal(t, 2, m.grid.Pager().Page())
	assert.Contains(t, m.render(), "Showing 26-50 of 60 rows")
	press(t, m, "}")
	assert.Equal(t, 3, m.grid.Pager().Page())
	assert.Len(t, m.table.Rows(), 10)
	press(t, m, "{")
	assert.Equal(t, 1, m.grid.Pager().Page())

	press(t, m, "z")
	assert.Equal(t, 50, m.grid.Pager().PageSize())
	assert.Len(t, m.table.Rows(), 50)
}

func TestModelClientSortReordersRows(t *testing.T) {
	m := clientModel(t, func(o *Options) {
		o.Rows = []grid.Row{
			{"id": "b", "name": "Bravo", "battery": 40},
			{"id": "c", "name": "charlie", "battery": 90},
			{"id": "a", "name": "Alpha", "battery": nil},
		}
	})
	names := func() []string {
		var out []string
		for _, r := range m.table.Rows() {
			out = append(out, fmt.Sprint(r["name"]))
		}
		return out
	}
	require.Equal(t, []string{"Bravo", "charlie", "Alpha"}, names())

	focusField(t, m, "name")
	press(t, m, "s")
	assert.Equal(t, []string{"Alpha", "Bravo", "charlie"}, names())
	press(t, m, "s")
	assert.Equal(t, []string{"charlie", "Bravo", "Alpha"}, names())
	assert.Contains(t, m.render(), "Name ▼")

	focusField(t, m, "battery")
	press(t, m, "s")
	assert.Equal(t, []string{"Bravo", "charlie", "Alpha"}, names())
	press(t, m, "s")
	assert.Equal(t, []string{"charlie", "Bravo", "Alpha"}, names(), "missing battery stays last")
}

func TestModelCursorStartsOnFirstRow(t *testing.T) {
	m := clientModel(t)
	require.NotNil(t, m.table.SelectedRow())
	assert.Equal(t, 0, m.table.Cursor())

	press(t, m, "]")
	require.NotNil(t, m.table.SelectedRow(), "cursor lands on the new page")
	press(t, m, "space")
	assert.Len(t, m.grid.Selected(), 1)
}

func TestModelGoToPage(t *testing.T) {
	m := clientModel(t)
	press(t, m, ":")
	assert.Equal(t, "1", m.input.Value())
	press(t, m, "backspace", "3", "enter")
	assert.Equal(t, 3, m.grid.Pager().Page())

	press(t, m, ":", "backspace", "9", "9", "enter")
	assert.Equal(t, 3, m.grid.Pager().Page(), "out of range input reverts")
	assert.Equal(t, modeNormal, m.mode)
}

func TestModelSearch(t *testing.T) {
	m := clientModel(t)
	press(t, m, "]")

	press(t, m, "/")
	require.Equal(t, modeSearch, m.mode)
	typeText(t, m, "Tracker 000")
	press(t, m, "enter")
	assert.Equal(t, "Tracker 000", m.grid.Toolbar().Text())
	assert.Equal(t, 9, m.grid.TotalRows())
	assert.Equal(t, 1, m.grid.Pager().Page())

	// debounced without enter
	press(t, m, "/")
	for range len("Tracker 000") {
		press(t, m, "backspace")
	}
	typeText(t, m, "tracker 0042")
	assert.Equal(t, 1, m.grid.TotalRows())
	assert.Equal(t, "Tracker 0042", m.table.Rows()[0]["name"])

	press(t, m, "esc")
	assert.Empty(t, m.grid.Toolbar().Text())
	assert.Equal(t, 60, m.grid.TotalRows())
}

func TestModelValueFilterPopover(t *testing.T) {
	m := clientModel(t)
	focusField(t, m, "status")

	press(t, m, "f")
	require.Equal(t, modePopover, m.mode)
	p := m.grid.ActivePopover()
	require.NotNil(t, p)
	opts := p.Options()
	require.NotEmpty(t, opts)
	assert.Contains(t, m.render(), "Filter: Status")

	press(t, m, "down", "down", "space", "enter")
	assert.Equal(t, modeNormal, m.mode)
	assert.Nil(t, m.grid.ActivePopover())
	require.Len(t, m.grid.Chips(), 1)
	for _, r := range m.grid.FilteredRows() {
		assert.Equal(t, opts[0].Value, r["status"])
	}
	assert.Contains(t, m.render(), "Status ●")

	// narrowing then cancelling leaves the filter alone
	press(t, m, "f")
	typeText(t, m, "offl")
	p = m.grid.ActivePopover()
	require.Len(t, p.Options(), 1)
	assert.Equal(t, "offline", p.Options()[0].Value)
	press(t, m, "esc")
	assert.Nil(t, m.grid.ActivePopover())
	assert.Len(t, m.grid.Chips(), 1)

	press(t, m, "C")
	assert.Empty(t, m.grid.Chips())
	assert.Equal(t, 60, m.grid.TotalRows())
}

func TestModelConditionEditor(t *testing.T) {
	m := clientModel(t)
	focusField(t, m, "name")

	press(t, m, "c")
	require.Equal(t, modeEditor, m.mode)
	assert.Equal(t, grid.OpContains, m.editor.Operator)
	typeText(t, m, "Tracker 001")
	press(t, m, "enter")
	assert.Equal(t, modeNormal, m.mode)
	require.Len(t, m.grid.Chips(), 1)
	assert.Equal(t, 10, m.grid.TotalRows())

	// tab cycles the operator
	press(t, m, "c", "tab")
	assert.Equal(t, grid.OpNotContains, m.editor.Operator)
	press(t, m, "esc")
	cond := m.grid.Filters().Conditions
	require.Len(t, cond, 1)
	assert.Equal(t, grid.OpContains, cond[0].Operator)

	// an empty value removes the condition
	press(t, m, "c")
	for range len("Tracker 001") {
		press(t, m, "backspace")
	}
	press(t, m, "enter")
	assert.Empty(t, m.grid.Chips())
}

func TestModelChips(t *testing.T) {
	m := clientModel(t)
	require.NoError(t, m.grid.SetCondition(grid.Condition{Field: "name", Operator: grid.OpContains, Value: "1"}))
	require.NoError(t, m.grid.SetValueFilter(grid.ValueFilter{Field: "status", Values: []string{"online"}}))
	m.sync()
	assert.Contains(t, m.render(), "✕")

	press(t, m, "tab")
	require.Equal(t, modeChips, m.mode)
	press(t, m, "enter")
	assert.Equal(t, modeEditor, m.mode, "condition chips open the editor")
	press(t, m, "esc")

	press(t, m, "tab", "right", "enter")
	assert.Equal(t, modePopover, m.mode, "value chips open the popover")
	press(t, m, "esc")

	press(t, m, "tab", "x")
	require.Len(t, m.grid.Chips(), 1)
	assert.Equal(t, grid.ValueChip, m.grid.Chips()[0].Kind)
	press(t, m, "x")
	assert.Empty(t, m.grid.Chips())
	assert.Equal(t, modeNormal, m.mode)
}

func TestModelColumns(t *testing.T) {
	var saved [][]grid.ColumnState
	m := clientModel(t, func(o *Options) {
		o.OnColumnsChange = func(s []grid.ColumnState) { saved = append(saved, s) }
	})
	focusField(t, m, "name")

	press(t, m, "v")
	for _, c := range m.cols {
		assert.NotEqual(t, "name", c.Field)
	}
	require.NotEmpty(t, saved)

	press(t, m, "o", "down", "space", "esc")
	assert.Equal(t, "name", m.cols[1].Field)

	focusField(t, m, "name")
	press(t, m, "+")
	assert.Equal(t, 180+DefaultPointerScale, m.grid.ColumnSet().Width("name"))
	press(t, m, "-", "-")
	assert.Equal(t, 180-DefaultPointerScale, m.grid.ColumnSet().Width("name"))

	press(t, m, ">")
	assert.Equal(t, "imei", m.cols[1].Field)
	assert.Equal(t, "name", m.cols[2].Field)
	assert.Equal(t, 2, m.col)

	press(t, m, "p")
	assert.Equal(t, "name", m.cols[1].Field, "left pinned after id")
	press(t, m, "R")
	assert.Equal(t, "name", m.cols[1].Field)
	assert.Equal(t, 180, m.grid.ColumnSet().Width("name"))
}

func TestModelMouse(t *testing.T) {
	m := clientModel(t)
	x, w := m.columnSpan(1)

	_, cmd := m.Update(tea.MouseClickMsg{X: x + 1, Y: headerY, Button: tea.MouseLeft})
	drain(t, m, cmd)
	require.NotNil(t, m.grid.Sort())
	assert.Equal(t, "name", m.grid.Sort().Field)

	edge := x + w
	m.Update(tea.MouseClickMsg{X: edge, Y: headerY, Button: tea.MouseLeft})
	require.NotNil(t, m.resize)
	m.Update(tea.MouseMotionMsg{X: edge + 2, Y: headerY, Button: tea.MouseLeft})
	assert.Equal(t, 180+2*DefaultPointerScale, m.grid.ColumnSet().Width("name"))
	m.Update(tea.MouseReleaseMsg{X: edge + 3, Y: headerY, Button: tea.MouseLeft})
	assert.Nil(t, m.resize)
	assert.Equal(t, 180+3*DefaultPointerScale, m.grid.ColumnSet().Width("name"))
	assert.Zero(t, m.grid.Pointer().Len())

	// outside click closes the popover
	focusField(t, m, "status")
	press(t, m, "f")
	require.NotNil(t, m.grid.ActivePopover())
	m.Update(tea.MouseClickMsg{X: 0, Y: 35, Button: tea.MouseLeft})
	assert.Nil(t, m.grid.ActivePopover())
	assert.Equal(t, modeNormal, m.mode)
}

func TestModelSelectionDetailHelp(t *testing.T) {
	m := clientModel(t)
	press(t, m, "space")
	assert.Len(t, m.grid.Selected(), 1)
	assert.Contains(t, m.render(), "1 selected")
	press(t, m, "X")
	assert.Len(t, m.grid.Selected(), 25)

	press(t, m, "enter")
	require.Equal(t, modeDetail, m.mode)
	out := m.render()
	assert.Contains(t, out, "FIELD")
	assert.Contains(t, out, "IMEI")
	press(t, m, "esc", "?")
	assert.Contains(t, m.render(), "focus column")
	press(t, m, "esc")
	assert.Equal(t, modeNormal, m.mode)
}

func TestModelRendererPanicIsContained(t *testing.T) {
	var boom atomic.Bool
	boom.Store(true)
	res := resources.Resource{
		Name:  "things",
		Title: "Things",
		Columns: []grid.Column{
			{Field: grid.IDField, HeaderName: "ID", Sortable: true},
			{Field: "name", HeaderName: "Name", Sortable: true, Renderer: func(v any, _ grid.Row) string {
				if boom.Load() {
					panic("bad cell")
				}
				return fmt.Sprint(v)
			}},
		},
	}
	m := clientModel(t, func(o *Options) {
		o.Resource = res
		o.Rows = []grid.Row{{"id": "1", "name": "a"}, {"id": "2", "name": "b"}}
	})
	require.Error(t, m.Broken())
	assert.Contains(t, m.render(), "grid unavailable – press r to reload")

	press(t, m, "s")
	assert.Nil(t, m.grid.Sort(), "keys other than reload are ignored")

	boom.Store(false)
	press(t, m, "r")
	assert.NoError(t, m.Broken())
	assert.Len(t, m.table.Rows(), 2)
	assert.Contains(t, m.render(), "Name")
}

func TestModelClientExportImport(t *testing.T) {
	m := clientModel(t)
	dir := m.opts.ExportDir

	press(t, m, "E", "enter")
	path := filepath.Join(dir, "devices_20260102_030405.csv")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Name")
	assert.Contains(t, m.render(), "exported to")

	press(t, m, "E", "backspace", "backspace", "backspace")
	typeText(t, m, "json")
	press(t, m, "enter")
	assert.FileExists(t, filepath.Join(dir, "devices_20260102_030405.json"))

	press(t, m, "E")
	typeText(t, m, "x")
	press(t, m, "enter")
	assert.Contains(t, m.render(), "unsupported export format")

	in := filepath.Join(t.TempDir(), "more.json")
	require.NoError(t, os.WriteFile(in, []byte(`[{"id":"n1","name":"New 1"},{"id":"n2","name":"New 2"}]`), 0o600))
	press(t, m, "I")
	typeText(t, m, in)
	press(t, m, "enter")
	assert.Equal(t, 62, m.grid.TotalRows())
	assert.Contains(t, m.render(), "imported 2 rows")
}

func TestModelServerMode(t *testing.T) {
	m := serverModel(t, "secret")
	assert.Equal(t, grid.ServerMode, m.grid.Mode())
	assert.False(t, m.grid.Loading())
	assert.Equal(t, 120, m.grid.TotalRows())
	require.Len(t, m.table.Rows(), 25)
	first := m.table.Rows()[0].Key()

	press(t, m, "]")
	assert.Equal(t, 2, m.grid.Pager().Page())
	require.Len(t, m.table.Rows(), 25)
	assert.NotEqual(t, first, m.table.Rows()[0].Key())

	press(t, m, "/")
	typeText(t, m, "Tracker 0001")
	press(t, m, "enter")
	assert.Equal(t, 1, m.grid.Pager().Page())
	assert.Equal(t, 1, m.grid.TotalRows())

	press(t, m, "/", "esc")
	assert.Equal(t, 120, m.grid.TotalRows())

	focusField(t, m, "status")
	press(t, m, "f")
	p := m.grid.ActivePopover()
	require.NotNil(t, p)
	assert.True(t, p.Remote())
	assert.False(t, p.Loading())
	opts := p.Options()
	require.NotEmpty(t, opts)
	press(t, m, "down", "down", "space", "enter")
	require.NotEmpty(t, m.table.Rows())
	for _, r := range m.table.Rows() {
		assert.Equal(t, opts[0].Value, r["status"])
	}

	press(t, m, "E", "enter")
	matches, err := filepath.Glob(filepath.Join(m.opts.ExportDir, "devices_*.csv"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestModelDropsStalePages(t *testing.T) {
	m := serverModel(t, "secret")
	before := m.table.Rows()[0].Key()
	m.Update(rowsMsg{gen: m.gen - 1, result: &api.ListResult{Rows: []grid.Row{{"id": "stale"}}}})
	assert.Equal(t, before, m.table.Rows()[0].Key())
}

func TestModelSessionExpired(t *testing.T) {
	m := serverModel(t, "wrong")
	assert.True(t, m.Expired())
	assert.Empty(t, m.render())
}
