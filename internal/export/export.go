// Package export renders grid rows as downloadable files.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/oakwood-commons/fleetgrid/pkg/grid"
)

// Local-only formats. The backend offers grid.ExportFormats.
const (
	FormatHTML grid.ExportFormat = "html"
	FormatJSON grid.ExportFormat = "json"
)

// Formats lists every format Write accepts.
var Formats = append(append([]grid.ExportFormat(nil), grid.ExportFormats...), FormatHTML, FormatJSON)

// ParseFormat validates a format name against Formats.
func ParseFormat(s string) (grid.ExportFormat, error) {
	f := grid.ExportFormat(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	names := make([]string, len(Formats))
	for i, k := range Formats {
		names[i] = string(k)
	}
	return "", fmt.Errorf("unsupported export format %q (expected one of %s)", s, strings.Join(names, ", "))
}

// ContentType returns the MIME type served for format.
func ContentType(f grid.ExportFormat) string {
	switch f {
	case grid.FormatCSV:
		return "text/csv; charset=utf-8"
	case grid.FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case grid.FormatPDF:
		return "application/pdf"
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatJSON:
		return "application/json"
	}
	return "application/octet-stream"
}

// Table is the rendered content of an export: titled columns and text cells.
type Table struct {
	Title   string
	Headers []string
	Fields  []string
	Cells   [][]string
	// Raw keeps the source rows for formats that preserve types.
	Raw []grid.Row
}

// FromGrid snapshots the visible, non-action columns of g. With all set it
// takes every filtered row, otherwise only the current page.
func FromGrid(g *grid.Grid, title string, all bool) Table {
	rows := g.PageRows()
	if all {
		rows = g.FilteredRows()
	}
	var cols []grid.Column
	for _, c := range g.VisibleColumns() {
		if c.Type != grid.TypeActions {
			cols = append(cols, c)
		}
	}
	t := Table{Title: title, Raw: rows}
	for _, c := range cols {
		t.Headers = append(t.Headers, c.Title())
		t.Fields = append(t.Fields, c.Field)
	}
	t.Cells = make([][]string, len(rows))
	for i, r := range rows {
		line := make([]string, len(cols))
		for j, c := range cols {
			line[j] = safeCell(g, r, c)
		}
		t.Cells[i] = line
	}
	return t
}

func safeCell(g *grid.Grid, r grid.Row, c grid.Column) (s string) {
	defer func() {
		if recover() != nil {
			s = grid.FormatValue(c.Type, r.Value(c.Field))
		}
	}()
	return g.Cell(r, c)
}

// Write encodes t to w in format.
func Write(w io.Writer, f grid.ExportFormat, t Table) error {
	switch f {
	case grid.FormatCSV:
		return writeCSV(w, t)
	case grid.FormatXLSX:
		return writeXLSX(w, t)
	case grid.FormatPDF:
		return writePDF(w, t)
	case FormatHTML:
		return writeHTML(w, t)
	case FormatJSON:
		return writeJSON(w, t)
	}
	_, err := ParseFormat(string(f))
	return err
}

// Bytes is Write into a buffer.
func Bytes(f grid.ExportFormat, t Table) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, f, t); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Headers); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	if err := cw.WriteAll(t.Cells); err != nil {
		return fmt.Errorf("write csv rows: %w", err)
	}
	return nil
}

func writeJSON(w io.Writer, t Table) error {
	out := make([]map[string]any, len(t.Raw))
	for i, r := range t.Raw {
		m := make(map[string]any, len(t.Fields))
		for _, f := range t.Fields {
			m[f] = r.Value(f)
		}
		out[i] = m
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}
