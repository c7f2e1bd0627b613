package ui

import (
	"context"
	"net/url"

	"github.com/oakwood-commons/fleetgrid/internal/api"
	"github.com/oakwood-commons/fleetgrid/pkg/grid"
)

// Backend is the server the grid pages against. *api.Client implements it.
type Backend interface {
	List(ctx context.Context, resource string, q api.ListQuery) (*api.ListResult, error)
	OptionLoader(resource string, limit int) grid.OptionLoader
	SaveExport(ctx context.Context, resource string, format grid.ExportFormat, params url.Values, dir, base string) (string, error)
	ImportFile(ctx context.Context, resource, path string) (*api.ImportResult, error)
}

var _ Backend = (*api.Client)(nil)

// rowsMsg carries a page fetched for generation gen.
type rowsMsg struct {
	gen    uint64
	result *api.ListResult
	err    error
}

// optionsMsg reports that a popover load finished. The popover applied or
// dropped the result itself.
type optionsMsg struct {
	field string
}

type searchTickMsg struct{ seq int }

type optionTickMsg struct{ seq int }

type toastExpiredMsg struct{ seq int }

type exportedMsg struct {
	path string
	err  error
}

type importedMsg struct {
	summary string
	rows    []grid.Row
	err     error
}
