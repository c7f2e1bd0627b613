package formatter

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakwood-commons/fleetgrid/internal/export"
	"github.com/oakwood-commons/fleetgrid/pkg/grid"
)

func devicesTable() export.Table {
	return export.Table{
		Title:   "Devices",
		Headers: []string{"Name", "Status", "Battery"},
		Fields:  []string{"name", "status", "battery"},
		Cells: [][]string{
			{"Tracker 0001", "online", "85%"},
			{"Tracker 0002", "offline", ""},
		},
	}
}

func TestRenderTable(t *testing.T) {
	t.Run("basic render", func(t *testing.T) {
		out := RenderTable(devicesTable(), TableOptions{NoColor: true, Width: 120, RowNumbers: true, Footer: "1-2 of 2"})
		lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
		require.Len(t, lines, 5)

		assert.Contains(t, lines[0], "#")
		assert.Contains(t, lines[0], "Name")
		assert.Contains(t, lines[0], "Battery")
		assert.True(t, strings.HasPrefix(lines[1], "──"))
		assert.True(t, strings.HasPrefix(lines[2], " 1  Tracker 0001"))
		assert.Contains(t, lines[3], "offline")
		assert.Equal(t, "1-2 of 2", lines[4])
	})

	t.Run("offset numbering", func(t *testing.T) {
		out := RenderTable(devicesTable(), TableOptions{NoColor: true, Width: 120, RowNumbers: true, Offset: 25})
		assert.Contains(t, out, "26  Tracker 0001")
		assert.Contains(t, out, "27  Tracker 0002")
	})

	t.Run("right alignment", func(t *testing.T) {
		hints := map[string]ColumnHint{"battery": {Align: "right"}}
		out := RenderTable(devicesTable(), TableOptions{NoColor: true, Width: 120, Hints: hints})
		lines := strings.Split(out, "\n")
		assert.True(t, strings.HasSuffix(lines[2], "    85%"), "got %q", lines[2])
	})

	t.Run("empty", func(t *testing.T) {
		tbl := devicesTable()
		tbl.Cells = nil
		out := RenderTable(tbl, TableOptions{NoColor: true, Width: 80})
		assert.Contains(t, out, "no rows")
	})

	t.Run("no headers", func(t *testing.T) {
		assert.Empty(t, RenderTable(export.Table{}, TableOptions{NoColor: true}))
	})
}

func TestRenderTableFitsWidth(t *testing.T) {
	tbl := export.Table{
		Headers: []string{"ID", "Message"},
		Fields:  []string{"id", "message"},
		Cells:   [][]string{{"a1", strings.Repeat("battery low ", 10)}},
	}
	hints := map[string]ColumnHint{"id": {Priority: 10}}
	out := RenderTable(tbl, TableOptions{NoColor: true, Width: 30, Hints: hints})
	for _, line := range strings.Split(strings.TrimRight(out, "\n"), "\n") {
		assert.LessOrEqual(t, len([]rune(line)), 30, line)
	}
	assert.Contains(t, out, "...")
	assert.Contains(t, out, "a1")
}

func TestHintsFor(t *testing.T) {
	hints := HintsFor([]grid.Column{
		{Field: "id", Pinned: grid.PinLeft},
		{Field: "battery", Type: grid.TypeNumber},
		{Field: "name"},
		{Field: "status", Pinned: grid.PinNone},
		{Field: "actions", Pinned: grid.PinRight},
	})
	assert.Equal(t, 10, hints["id"].Priority)
	assert.Equal(t, 10, hints["actions"].Priority)
	assert.Equal(t, "right", hints["battery"].Align)
	assert.Equal(t, ColumnHint{}, hints["name"], "unset pin is not pinned")
	assert.Equal(t, ColumnHint{}, hints["status"])
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", truncate("hello", 10))
	assert.Equal(t, "hel...", truncate("hello world", 6))
	assert.Equal(t, "he", truncate("hello", 2))
	assert.Equal(t, "a b", truncate("a\nb", 10))
	assert.Equal(t, "日本...", truncate("日本語テキスト", 7))
}

func TestRenderRecord(t *testing.T) {
	out := RenderRecord([]string{"Name", "Battery"}, []string{"Tracker 0001", ""}, true, 0)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "FIELD    VALUE", lines[0])
	assert.Equal(t, "Name     Tracker 0001", lines[1])
	assert.Equal(t, "Battery  -", lines[2])
}

func TestFormatYAML(t *testing.T) {
	rows := []grid.Row{
		{"id": "a", "battery": json.Number("40"), "note": "line one\nline two", "extra": true},
		{"id": "b", "battery": nil},
	}
	out, err := FormatYAML(rows, []string{"id", "battery", "note"}, 2)
	require.NoError(t, err)
	assert.Equal(t, "- id: a\n  battery: 40\n  note: |-\n    line one\n    line two\n- id: b\n  battery: null\n  note: null\n", out)
}
