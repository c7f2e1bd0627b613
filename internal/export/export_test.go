package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakwood-commons/fleetgrid/pkg/grid"
)

func sampleGrid(t *testing.T) *grid.Grid {
	t.Helper()
	g, err := grid.New([]grid.Column{
		{Field: "id", HeaderName: "ID", Sortable: true},
		{Field: "name", HeaderName: "Name", Sortable: true, Filterable: true},
		{Field: "battery", HeaderName: "Battery", Type: grid.TypeNumber, Renderer: func(v any, _ grid.Row) string {
			return grid.FormatValue(grid.TypeNumber, v) + "%"
		}},
		{Field: "notes", Hidden: true},
		{Field: "actions", Type: grid.TypeActions},
	}, grid.WithPageSize(2))
	require.NoError(t, err)
	t.Cleanup(g.Close)
	g.SetRows([]grid.Row{
		{"id": 1, "name": "Tracker | A", "battery": 80, "notes": "x"},
		{"id": 2, "name": "Tracker B", "battery": 15},
		{"id": 3, "name": "Tracker C", "battery": nil},
	})
	return g
}

func TestFromGrid(t *testing.T) {
	g := sampleGrid(t)

	page := FromGrid(g, "Devices", false)
	assert.Equal(t, []string{"ID", "Name", "Battery"}, page.Headers)
	assert.Equal(t, []string{"id", "name", "battery"}, page.Fields)
	assert.Len(t, page.Cells, 2)
	assert.Equal(t, []string{"1", "Tracker | A", "80%"}, page.Cells[0])

	all := FromGrid(g, "Devices", true)
	assert.Len(t, all.Cells, 3)
}

func TestFromGridRecoversRenderer(t *testing.T) {
	g, err := grid.New([]grid.Column{
		{Field: "id"},
		{Field: "v", Type: grid.TypeNumber, Renderer: func(any, grid.Row) string { panic("boom") }},
	})
	require.NoError(t, err)
	defer g.Close()
	g.SetRows([]grid.Row{{"id": 1, "v": 3}})

	tbl := FromGrid(g, "", true)
	assert.Equal(t, []string{"1", "3"}, tbl.Cells[0])
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"csv", "XLSX", " pdf ", "html", "json"} {
		_, err := ParseFormat(s)
		assert.NoError(t, err, s)
	}
	_, err := ParseFormat("docx")
	assert.ErrorContains(t, err, "unsupported export format")
}

func TestWriteCSVRoundTrip(t *testing.T) {
	tbl := FromGrid(sampleGrid(t), "Devices", true)
	data, err := Bytes(grid.FormatCSV, tbl)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "ID,Name,Battery\n"))

	headers, lines, err := ReadTable("devices.csv", bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, tbl.Headers, headers)
	assert.Equal(t, tbl.Cells, lines)
}

func TestWriteXLSXRoundTrip(t *testing.T) {
	tbl := FromGrid(sampleGrid(t), "Devices", true)
	data, err := Bytes(grid.FormatXLSX, tbl)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("PK")), "xlsx is a zip archive")

	headers, lines, err := ReadTable("devices.xlsx", bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, tbl.Headers, headers)
	require.Len(t, lines, 3)
	assert.Equal(t, "Tracker B", lines[1][1])
}

func TestWritePDF(t *testing.T) {
	tbl := FromGrid(sampleGrid(t), "Devices", true)
	for i := 0; i < 200; i++ {
		tbl.Cells = append(tbl.Cells, []string{"9", strings.Repeat("long name ", 20), "1%"})
	}
	data, err := Bytes(grid.FormatPDF, tbl)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestWriteHTMLEscapesPipes(t *testing.T) {
	tbl := FromGrid(sampleGrid(t), "Devices", true)
	data, err := Bytes(FormatHTML, tbl)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "<title>Devices</title>")
	assert.Contains(t, out, "<table>")
	assert.Contains(t, out, "Tracker | A")
	assert.Contains(t, out, "3 rows")
}

func TestWriteJSONKeepsTypes(t *testing.T) {
	tbl := FromGrid(sampleGrid(t), "Devices", true)
	data, err := Bytes(FormatJSON, tbl)
	require.NoError(t, err)

	var out []map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	require.Len(t, out, 3)
	assert.Equal(t, float64(80), out[0]["battery"])
	assert.Nil(t, out[2]["battery"])
	assert.NotContains(t, out[0], "notes")
}

func TestReadTableEmpty(t *testing.T) {
	_, _, err := ReadTable("x.csv", strings.NewReader(""))
	assert.ErrorContains(t, err, "file is empty")
}

func TestReadTableStripsByteOrderMark(t *testing.T) {
	headers, lines, err := ReadTable("devices.csv", strings.NewReader("\ufeffname, status\nTracker A,online\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "status"}, headers)
	assert.Equal(t, [][]string{{"Tracker A", "online"}}, lines)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/pdf", ContentType(grid.FormatPDF))
	assert.Equal(t, "application/octet-stream", ContentType("bin"))
}
