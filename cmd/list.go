package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oakwood-commons/fleetgrid/internal/api"
	"github.com/oakwood-commons/fleetgrid/internal/export"
	"github.com/oakwood-commons/fleetgrid/internal/formatter"
	"github.com/oakwood-commons/fleetgrid/internal/resources"
	"github.com/oakwood-commons/fleetgrid/pkg/grid"
	"github.com/oakwood-commons/fleetgrid/pkg/settings"
)

var (
	listFlags  queryFlags
	listOutput string
	listExport string
	listWidth  int
)

var listCmd = &cobra.Command{
	Use:   "list <resource>",
	Short: "Print one page of a resource",
	Example: `  fleetgrid list devices --sort -lastSeen --in status=offline,maintenance
  fleetgrid list devices --demo 500 --where 'row.battery < 20' -o yaml
  fleetgrid list devices --filter name:contains:north --limit 0 -o csv > devices.csv`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeResources,
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := lookupResource(args)
		if err != nil {
			return err
		}
		g, err := listFlags.buildGrid(cmd.Context(), res)
		if err != nil {
			return err
		}
		defer g.Close()

		run := settings.FromContextOrDefault(cmd.Context())
		if listExport != "" {
			path, err := exportLocal(g, res, listExport, !listFlags.local())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "wrote", path)
		}
		return printGrid(cmd.OutOrStdout(), g, res, listOutput, run.NoColor, listWidth)
	},
}

func init() { //nolint:gochecknoinits
	fs := listCmd.Flags()
	listFlags.register(fs, 25)
	fs.StringVarP(&listOutput, "output", "o", "table", "output format: table|yaml|csv|json|html")
	fs.StringVar(&listExport, "export", "", "also write the matching rows to a file: csv|xlsx|pdf|html|json")
	fs.IntVar(&listWidth, "width", 0, "table width in columns (default: terminal width)")
}

// printGrid writes the current page of g to w.
func printGrid(w io.Writer, g *grid.Grid, res resources.Resource, output string, noColor bool, width int) error {
	t := export.FromGrid(g, res.Title, false)
	switch strings.ToLower(output) {
	case "", "table":
		start, _ := g.Pager().Bounds()
		_, err := io.WriteString(w, formatter.RenderTable(t, formatter.TableOptions{
			NoColor:    noColor,
			Width:      width,
			RowNumbers: true,
			Offset:     start,
			Hints:      formatter.HintsFor(g.VisibleColumns()),
			Footer:     g.Pager().Summary(),
		}))
		return err
	case "yaml", "yml":
		out, err := formatter.FormatYAML(t.Raw, t.Fields, 2)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out)
		return err
	}
	f, err := export.ParseFormat(output)
	if err != nil {
		return err
	}
	if f == grid.FormatXLSX || f == grid.FormatPDF {
		return fmt.Errorf("output %s is binary; use --export %s", f, f)
	}
	return export.Write(w, f, t)
}

// exportLocal writes the rows of g to the configured export directory. With
// pageOnly set only the loaded page is written, which is all a backend-paged
// grid holds.
func exportLocal(g *grid.Grid, res resources.Resource, format string, pageOnly bool) (string, error) {
	f, err := export.ParseFormat(format)
	if err != nil {
		return "", err
	}
	path := filepath.Join(cfg.Export.Directory, api.ExportFilename(res.Name, f, now()))
	if err := writeFile(path, f, export.FromGrid(g, res.Title, !pageOnly)); err != nil {
		return "", err
	}
	return path, nil
}
