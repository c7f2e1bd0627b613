package ui

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	tea "charm.land/bubbletea/v2"

	"github.com/oakwood-commons/fleetgrid/internal/api"
	"github.com/oakwood-commons/fleetgrid/internal/export"
	"github.com/oakwood-commons/fleetgrid/internal/loader"
	"github.com/oakwood-commons/fleetgrid/pkg/grid"
)

// exportCmd writes the current result set. Server mode asks the backend for
// the formats it serves so the file covers every matching row, not just the
// loaded page. Everything else is rendered from the grid.
func (m *Model) exportCmd(f grid.ExportFormat) tea.Cmd {
	dir, name := m.opts.ExportDir, m.res.Name
	if m.serverMode() && slices.Contains(grid.ExportFormats, f) {
		params, err := api.QueryFromGrid(m.grid).Values()
		if err != nil {
			return m.notifyErr(err)
		}
		params.Del("page")
		params.Del("limit")
		backend, ctx := m.opts.Backend, m.ctx
		m.log.Info("requesting export", "format", f)
		return func() tea.Msg {
			path, err := backend.SaveExport(ctx, name, f, params, dir, name)
			return exportedMsg{path: path, err: err}
		}
	}
	t := export.FromGrid(m.grid, m.res.Title, !m.serverMode())
	path := filepath.Join(dir, api.ExportFilename(name, f, m.opts.Now()))
	return func() tea.Msg {
		return exportedMsg{path: path, err: writeExport(path, f, t)}
	}
}

func writeExport(path string, f grid.ExportFormat, t export.Table) error {
	var buf bytes.Buffer
	if err := export.Write(&buf, f, t); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}

// importCmd uploads path in server mode. In client mode structured files are
// decoded and appended to the loaded rows.
func (m *Model) importCmd(path string) tea.Cmd {
	if m.serverMode() {
		backend, ctx, name := m.opts.Backend, m.ctx, m.res.Name
		m.log.Info("uploading import", "path", path)
		return func() tea.Msg {
			res, err := backend.ImportFile(ctx, name, path)
			if err != nil {
				return importedMsg{err: err}
			}
			return importedMsg{summary: res.Summary()}
		}
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".xlsx":
		return m.notify("spreadsheet import needs a backend (--api-url)", true)
	}
	return func() tea.Msg {
		rows, err := loader.LoadFile(path)
		if err != nil {
			return importedMsg{err: err}
		}
		return importedMsg{rows: rows, summary: fmt.Sprintf("imported %d rows", len(rows))}
	}
}

func (m *Model) handleImported(msg importedMsg) tea.Cmd {
	if msg.err != nil {
		return m.fail(msg.err)
	}
	if m.serverMode() {
		m.dirty = true
	} else {
		rows := append(slices.Clone(m.grid.Rows()), msg.rows...)
		m.grid.SetRows(rows)
	}
	m.log.Info("import finished", "summary", msg.summary)
	return m.notify(msg.summary, false)
}
