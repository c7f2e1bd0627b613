package loader

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakwood-commons/fleetgrid/pkg/grid"
)

func TestLoadRowsShapes(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		format Format
		want   int
	}{
		{"json array", `[{"id":1},{"id":2}]`, FormatAuto, 2},
		{"single object", `{"id":1,"name":"a"}`, FormatAuto, 1},
		{"list envelope", `{"success":true,"data":{"data":[{"id":1},{"id":2},{"id":3}],"pagination":{}}}`, FormatAuto, 3},
		{"flat envelope", `{"data":[{"id":1}]}`, FormatAuto, 1},
		{"ndjson", "{\"id\":1}\n\n{\"id\":2}\r\n{\"id\":3}\n", FormatAuto, 3},
		{"yaml list", "- id: 1\n  name: a\n- id: 2\n  name: b\n", FormatAuto, 2},
		{"yaml multi doc", "---\nid: 1\n---\nid: 2\n", FormatAuto, 2},
		{"toml tables", "[[devices]]\nid = 1\nname = \"a\"\n\n[[devices]]\nid = 2\nname = \"b\"\n", FormatAuto, 2},
		{"explicit yaml", "id: 1\nname: a\n", FormatYAML, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := LoadRows([]byte(tt.input), tt.format)
			require.NoError(t, err)
			assert.Len(t, rows, tt.want)
			assert.NotEmpty(t, rows[0].Key())
		})
	}
}

func TestLoadRowsKeepsJSONNumbers(t *testing.T) {
	rows, err := LoadRows([]byte(`[{"id":1,"battery":12.5}]`), FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, json.Number("12.5"), rows[0]["battery"])
	assert.Equal(t, "1", rows[0].Key())
}

func TestLoadRowsErrors(t *testing.T) {
	_, err := LoadRows([]byte("  "), FormatAuto)
	assert.ErrorContains(t, err, "empty input")

	_, err = LoadRows([]byte(`[1, 2]`), FormatJSON)
	assert.ErrorContains(t, err, "want an object")

	_, err = LoadRows([]byte(`{"id":`), FormatJSON)
	assert.ErrorContains(t, err, "invalid JSON")

	_, err = LoadRows([]byte("{\"id\":1}\nnot json\n{\"id\":2}"), FormatNDJSON)
	assert.ErrorContains(t, err, "line 2")

	_, err = LoadRows([]byte("x"), Format("csv"))
	assert.ErrorContains(t, err, "unknown format")
}

func TestFormatForPath(t *testing.T) {
	assert.Equal(t, FormatJSON, FormatForPath("a.JSON"))
	assert.Equal(t, FormatNDJSON, FormatForPath("a.jsonl"))
	assert.Equal(t, FormatYAML, FormatForPath("a.yml"))
	assert.Equal(t, FormatTOML, FormatForPath("a.toml"))
	assert.Equal(t, FormatAuto, FormatForPath("a.txt"))
}

func TestLoadFileFeedsGrid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devices.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- id: a\n  battery: 40\n- id: b\n  battery: 5\n- id: c\n"), 0o644))

	rows, err := LoadFile(path)
	require.NoError(t, err)

	g, err := grid.New([]grid.Column{{Field: "id"}, {Field: "battery", Type: grid.TypeNumber, Sortable: true}})
	require.NoError(t, err)
	defer g.Close()
	g.SetRows(rows)
	_, err = g.CycleSort("battery")
	require.NoError(t, err)

	var keys []string
	for _, r := range g.PageRows() {
		keys = append(keys, r.Key())
	}
	assert.Equal(t, []string{"b", "a", "c"}, keys)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
