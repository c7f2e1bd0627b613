package formatter

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/oakwood-commons/fleetgrid/internal/export"
	"github.com/oakwood-commons/fleetgrid/pkg/grid"
)

const (
	sepWidth    = 2
	minColWidth = 3
	maxColWidth = 40
)

// ColumnHint carries per-field display hints.
type ColumnHint struct {
	// MaxWidth caps the column width. 0 = no cap.
	MaxWidth int
	// Priority controls shrinking: lower values shrink first.
	Priority int
	// Align is "right" or "left" (default).
	Align string
}

// HintsFor derives hints from grid columns: numbers align right and pinned
// columns resist shrinking.
func HintsFor(cols []grid.Column) map[string]ColumnHint {
	out := make(map[string]ColumnHint, len(cols))
	for _, c := range cols {
		var h ColumnHint
		if c.Type == grid.TypeNumber {
			h.Align = "right"
		}
		if c.Pinned.Edge() {
			h.Priority = 10
		}
		out[c.Field] = h
	}
	return out
}

// TableOptions controls RenderTable.
type TableOptions struct {
	NoColor bool
	// Width is the total width available. 0 uses the terminal width.
	Width int
	// RowNumbers adds a leading "#" column counted from Offset+1.
	RowNumbers bool
	Offset     int
	Hints      map[string]ColumnHint
	// Footer is printed below the rows, e.g. a pagination summary.
	Footer string
}

// RenderTable renders t as aligned columns with a header and separator. An
// empty table renders its header followed by "no rows".
func RenderTable(t export.Table, opts TableOptions) string {
	if len(t.Headers) == 0 {
		return ""
	}
	width := opts.Width
	if width <= 0 {
		width = TerminalWidth()
	}

	rowNumWidth := 0
	if opts.RowNumbers {
		rowNumWidth = len(strconv.Itoa(opts.Offset+len(t.Cells))) + 1
		width -= rowNumWidth + sepWidth
	}

	hints := make([]ColumnHint, len(t.Headers))
	for i := range t.Headers {
		if i < len(t.Fields) {
			hints[i] = opts.Hints[t.Fields[i]]
		}
	}
	widths := columnWidths(t.Headers, t.Cells, width, hints)

	var b strings.Builder
	b.WriteString(renderHeader(t.Headers, widths, rowNumWidth, opts.NoColor) + "\n")

	total := rowNumWidth
	if opts.RowNumbers {
		total += sepWidth
	}
	for i, w := range widths {
		total += w
		if i < len(widths)-1 {
			total += sepWidth
		}
	}
	line := strings.Repeat("─", total)
	if !opts.NoColor {
		line = separatorStyle.Render(line)
	}
	b.WriteString(line + "\n")

	if len(t.Cells) == 0 {
		b.WriteString("no rows\n")
	}
	for i, row := range t.Cells {
		num := ""
		if opts.RowNumbers {
			num = strconv.Itoa(opts.Offset + i + 1)
		}
		b.WriteString(renderRow(num, row, widths, rowNumWidth, hints, opts.NoColor) + "\n")
	}
	if opts.Footer != "" {
		b.WriteString(opts.Footer + "\n")
	}
	return b.String()
}

// columnWidths sizes each column to its widest cell, capped by hints, then
// shrinks the lowest-priority columns until the row fits available.
func columnWidths(headers []string, rows [][]string, available int, hints []ColumnHint) []int {
	n := len(headers)
	widths := make([]int, n)
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i := 0; i < n && i < len(row); i++ {
			if w := lipgloss.Width(flatten(row[i])); w > widths[i] {
				widths[i] = w
			}
		}
	}
	for i := range widths {
		limit := maxColWidth
		if hints[i].MaxWidth > 0 {
			limit = hints[i].MaxWidth
		}
		if widths[i] > limit {
			widths[i] = limit
		}
	}

	usable := available - (n-1)*sepWidth
	total := 0
	for _, w := range widths {
		total += w
	}
	excess := total - usable
	if excess <= 0 || usable <= 0 {
		return widths
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	// Lowest priority first; among equals, widest first.
	sort.SliceStable(order, func(a, b int) bool {
		pa, pb := hints[order[a]].Priority, hints[order[b]].Priority
		if pa != pb {
			return pa < pb
		}
		return widths[order[a]] > widths[order[b]]
	})
	for _, i := range order {
		if excess <= 0 {
			break
		}
		shrink := min(widths[i]-minColWidth, excess)
		if shrink <= 0 {
			continue
		}
		widths[i] -= shrink
		excess -= shrink
	}
	return widths
}

func renderHeader(headers []string, widths []int, rowNumWidth int, noColor bool) string {
	parts := make([]string, 0, len(headers)+1)
	if rowNumWidth > 0 {
		parts = append(parts, padRight("#", rowNumWidth))
	}
	for i, h := range headers {
		parts = append(parts, padRight(truncate(h, widths[i]), widths[i]))
	}
	if noColor {
		return strings.Join(parts, strings.Repeat(" ", sepWidth))
	}
	for i := range parts {
		parts[i] = headerStyle.Render(parts[i])
	}
	return strings.Join(parts, headerStyle.Render(strings.Repeat(" ", sepWidth)))
}

func renderRow(num string, values []string, widths []int, rowNumWidth int, hints []ColumnHint, noColor bool) string {
	parts := make([]string, 0, len(widths)+1)
	if rowNumWidth > 0 {
		n := padLeft(num, rowNumWidth)
		if !noColor {
			n = keyStyle.Render(n)
		}
		parts = append(parts, n)
	}
	for i, w := range widths {
		val := ""
		if i < len(values) {
			val = truncate(values[i], w)
		}
		if hints[i].Align == "right" {
			val = padLeft(val, w)
		} else {
			val = padRight(val, w)
		}
		if !noColor {
			val = valueStyle.Render(val)
		}
		parts = append(parts, val)
	}
	return strings.TrimRight(strings.Join(parts, strings.Repeat(" ", sepWidth)), " ")
}

// RenderRecord renders one row as FIELD/VALUE lines, for detail views.
func RenderRecord(headers, values []string, noColor bool, maxWidth int) string {
	keyWidth := 5
	for _, h := range headers {
		keyWidth = max(keyWidth, lipgloss.Width(h))
	}
	valWidth := 0
	if maxWidth > 0 {
		valWidth = max(maxWidth-keyWidth-sepWidth, minColWidth)
	}
	sep := strings.Repeat(" ", sepWidth)

	var b strings.Builder
	head := padRight("FIELD", keyWidth) + sep + "VALUE"
	if !noColor {
		head = headerStyle.Render(head)
	}
	b.WriteString(head + "\n")
	for i, h := range headers {
		v := ""
		if i < len(values) {
			v = values[i]
		}
		if v == "" {
			v = "-"
		}
		k := padRight(h, keyWidth)
		v = truncate(v, valWidth)
		if !noColor {
			k = keyStyle.Render(k)
			v = valueStyle.Render(v)
		}
		fmt.Fprintf(&b, "%s%s%s\n", k, sep, v)
	}
	return b.String()
}
