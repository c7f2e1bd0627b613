package grid

import (
	"fmt"
	"strings"
	"time"
)

// ExportFormat is a file format the backend can export.
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatXLSX ExportFormat = "xlsx"
	FormatPDF  ExportFormat = "pdf"
)

// ExportFormats lists the formats offered by the export menu.
var ExportFormats = []ExportFormat{FormatCSV, FormatXLSX, FormatPDF}

// ParseExportFormat validates a format name.
func ParseExportFormat(s string) (ExportFormat, error) {
	f := ExportFormat(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range ExportFormats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unsupported export format %q (expected csv, xlsx or pdf)", s)
}

// Toolbar holds the search box and the export/import triggers.
type Toolbar struct {
	text     string
	debounce *Debouncer
	onSearch func(string)
	onExport func(ExportFormat)
	onImport func(string)
}

func newToolbar(cb Callbacks, searchDelay time.Duration) *Toolbar {
	return &Toolbar{
		debounce: NewDebouncer(searchDelay),
		onSearch: cb.OnSearch,
		onExport: cb.OnExport,
		onImport: cb.OnImport,
	}
}

// Text is the search box content.
func (t *Toolbar) Text() string {
	return t.text
}

// Search updates the search box and schedules OnSearch after the debounce
// delay. Without OnSearch only the displayed text changes.
func (t *Toolbar) Search(text string) {
	t.text = text
	if t.onSearch == nil {
		return
	}
	cb := t.onSearch
	t.debounce.Trigger(func() { cb(text) })
}

// SearchPending reports whether a debounced OnSearch has not fired yet.
func (t *Toolbar) SearchPending() bool {
	return t.debounce.Pending()
}

// RequestExport fires OnExport for a validated format.
func (t *Toolbar) RequestExport(format string) error {
	f, err := ParseExportFormat(format)
	if err != nil {
		return err
	}
	if t.onExport != nil {
		t.onExport(f)
	}
	return nil
}

// RequestImport fires OnImport with the chosen file path.
func (t *Toolbar) RequestImport(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("import: no file selected")
	}
	if t.onImport != nil {
		t.onImport(path)
	}
	return nil
}

func (t *Toolbar) stop() {
	t.debounce.Stop()
}
