package cmd

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/oakwood-commons/fleetgrid/internal/api"
	"github.com/oakwood-commons/fleetgrid/internal/export"
	"github.com/oakwood-commons/fleetgrid/internal/resources"
	"github.com/oakwood-commons/fleetgrid/pkg/grid"
	"github.com/oakwood-commons/fleetgrid/pkg/logger"
)

var now = time.Now

var (
	exportFlags   queryFlags
	exportFormats []string
	exportDir     string
)

var exportCmd = &cobra.Command{
	Use:   "export <resource>",
	Short: "Download every row matching a query in one or more formats",
	Example: `  fleetgrid export devices --format csv,xlsx,pdf --in status=offline
  fleetgrid export devices --demo 200 --where 'row.battery < 20' --format html`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeResources,
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := lookupResource(args)
		if err != nil {
			return err
		}
		formats, err := parseFormats(exportFormats, cfg.Export.Format)
		if err != nil {
			return err
		}
		dir := exportDir
		if dir == "" {
			dir = cfg.Export.Directory
		}
		paths, err := runExport(cmd.Context(), res, &exportFlags, formats, dir)
		for _, p := range paths {
			fmt.Fprintln(cmd.OutOrStdout(), p)
		}
		return err
	},
}

func init() { //nolint:gochecknoinits
	fs := exportCmd.Flags()
	exportFlags.register(fs, grid.AllRows)
	fs.StringSliceVar(&exportFormats, "format", nil, "formats to write: csv,xlsx,pdf,html,json (default export.format)")
	fs.StringVarP(&exportDir, "dir", "d", "", "output directory (default export.directory)")
}

func parseFormats(names []string, fallback string) ([]grid.ExportFormat, error) {
	if len(names) == 0 {
		names = []string{fallback}
	}
	var out []grid.ExportFormat
	for _, n := range names {
		f, err := export.ParseFormat(n)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	return out, nil
}

// runExport writes one file per format concurrently. Backend formats are
// downloaded with the query applied server-side; local rows and the
// local-only formats are rendered from a grid holding every matching row.
// Paths of the files written are returned in format order, even when some
// formats failed.
func runExport(ctx context.Context, res resources.Resource, q *queryFlags, formats []grid.ExportFormat, dir string) ([]string, error) {
	lgr := logger.WithValues(logger.FromContext(ctx), logger.ResourceKey, res.Name)
	paths := make([]string, len(formats))

	var remote, local []int
	for i, f := range formats {
		if !q.local() && slices.Contains(grid.ExportFormats, f) {
			remote = append(remote, i)
		} else {
			local = append(local, i)
		}
	}

	var table export.Table
	if len(local) > 0 {
		all := *q
		all.page, all.limit = 1, grid.AllRows
		g, err := all.buildGrid(ctx, res)
		if err != nil {
			return nil, err
		}
		table = export.FromGrid(g, res.Title, true)
		g.Close()
	}

	var (
		client *api.Client
		params url.Values
	)
	if len(remote) > 0 {
		lq, err := q.listQuery()
		if err != nil {
			return nil, err
		}
		v, err := lq.Values()
		if err != nil {
			return nil, err
		}
		v.Del("page")
		v.Del("limit")
		params = v
		if client, err = newClient(ctx); err != nil {
			return nil, err
		}
	}

	eg, egCtx := errgroup.WithContext(ctx)
	for _, i := range remote {
		f := formats[i]
		eg.Go(func() error {
			p, err := client.SaveExport(egCtx, res.Name, f, params, dir, res.Name)
			if err != nil {
				return fmt.Errorf("export %s: %w", f, err)
			}
			paths[i] = p
			return nil
		})
	}
	at := now()
	for _, i := range local {
		f := formats[i]
		eg.Go(func() error {
			p := filepath.Join(dir, api.ExportFilename(res.Name, f, at))
			if err := writeFile(p, f, table); err != nil {
				return fmt.Errorf("export %s: %w", f, err)
			}
			paths[i] = p
			return nil
		})
	}
	err := eg.Wait()
	written := slices.DeleteFunc(paths, func(p string) bool { return p == "" })
	lgr.V(1).Info("export finished", "files", strings.Join(written, ","), "failed", err != nil)
	return written, err
}

func writeFile(path string, f grid.ExportFormat, t export.Table) error {
	var buf bytes.Buffer
	if err := export.Write(&buf, f, t); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
