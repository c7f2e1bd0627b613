package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/mattn/go-runewidth"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Export"

func writeXLSX(w io.Writer, t Table) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("xlsx: %w", err)
	}
	header := make([]any, len(t.Headers))
	for i, h := range t.Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("xlsx header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDE4EE"}},
	})
	if err != nil {
		return fmt.Errorf("xlsx style: %w", err)
	}
	if err := f.SetRowStyle(sheetName, 1, 1, bold); err != nil {
		return fmt.Errorf("xlsx style: %w", err)
	}

	widths := columnWidths(t)
	for i, line := range t.Cells {
		vals := make([]any, len(line))
		for j, s := range line {
			vals[j] = s
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("xlsx: %w", err)
		}
		if err := f.SetSheetRow(sheetName, cell, &vals); err != nil {
			return fmt.Errorf("xlsx row %d: %w", i+1, err)
		}
	}
	for i, wd := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("xlsx: %w", err)
		}
		if err := f.SetColWidth(sheetName, col, col, float64(min(wd, 60)+2)); err != nil {
			return fmt.Errorf("xlsx: %w", err)
		}
	}
	if len(t.Headers) > 0 {
		if err := f.SetPanes(sheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
			return fmt.Errorf("xlsx: %w", err)
		}
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

// columnWidths measures the widest display text per column.
func columnWidths(t Table) []int {
	widths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, line := range t.Cells {
		for j, s := range line {
			if j < len(widths) {
				widths[j] = max(widths[j], runewidth.StringWidth(s))
			}
		}
	}
	return widths
}

const (
	pdfFontSize   = 8
	pdfLineHeight = 6
	pdfMaxCol     = 70
)

func writePDF(w io.Writer, t Table) error {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(false, 10)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, pageH := pdf.GetPageSize()
	left, _, right, bottom := pdf.GetMargins()
	usable := pageW - left - right

	widths := columnWidths(t)
	total := 0
	for i := range widths {
		widths[i] = min(max(widths[i], 4), pdfMaxCol)
		total += widths[i]
	}
	mm := make([]float64, len(widths))
	for i, wd := range widths {
		if total > 0 {
			mm[i] = usable * float64(wd) / float64(total)
		}
	}

	header := func() {
		pdf.SetFont("Helvetica", "B", pdfFontSize)
		pdf.SetFillColor(221, 228, 238)
		for i, h := range t.Headers {
			pdf.CellFormat(mm[i], pdfLineHeight, tr(fit(pdf, h, mm[i])), "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", pdfFontSize)
	}

	pdf.AddPage()
	if t.Title != "" {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(usable, 8, tr(t.Title), "", 1, "L", false, 0, "")
	}
	header()
	for _, line := range t.Cells {
		if pdf.GetY()+pdfLineHeight > pageH-bottom {
			pdf.AddPage()
			header()
		}
		for j, s := range line {
			if j < len(mm) {
				pdf.CellFormat(mm[j], pdfLineHeight, tr(fit(pdf, s, mm[j])), "1", 0, "L", false, 0, "")
			}
		}
		pdf.Ln(-1)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// fit truncates s with an ellipsis so it fits width mm in the current font.
func fit(pdf *fpdf.Fpdf, s string, width float64) string {
	limit := width - 2
	if pdf.GetStringWidth(s) <= limit {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && pdf.GetStringWidth(string(r)+"...") > limit {
		r = r[:len(r)-1]
	}
	return string(r) + "..."
}

var mdEscaper = strings.NewReplacer(
	`\`, `\\`, "|", `\|`, "*", `\*`, "_", `\_`, "`", "\\`",
	"[", `\[`, "]", `\]`, "<", "&lt;", "\n", " ", "\r", "",
)

// markdownTable builds a pipe table for t.
func markdownTable(t Table) string {
	var b strings.Builder
	if t.Title != "" {
		fmt.Fprintf(&b, "# %s\n\n", mdEscaper.Replace(t.Title))
	}
	if len(t.Headers) == 0 {
		return b.String()
	}
	row := func(cells []string) {
		b.WriteString("|")
		for _, c := range cells {
			b.WriteString(" " + mdEscaper.Replace(c) + " |")
		}
		b.WriteString("\n")
	}
	row(t.Headers)
	b.WriteString("|")
	for range t.Headers {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")
	for _, line := range t.Cells {
		row(line)
	}
	fmt.Fprintf(&b, "\n%d rows\n", len(t.Cells))
	return b.String()
}

func writeHTML(w io.Writer, t Table) error {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.NoEmptyLineBeforeBlock)
	doc := p.Parse([]byte(markdownTable(t)))
	renderer := html.NewRenderer(html.RendererOptions{
		Title: t.Title,
		Flags: html.CommonFlags | html.CompletePage,
	})
	if _, err := w.Write(markdown.Render(doc, renderer)); err != nil {
		return fmt.Errorf("write html: %w", err)
	}
	return nil
}
