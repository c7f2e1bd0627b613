package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oakwood-commons/fleetgrid/internal/export"
	"github.com/oakwood-commons/fleetgrid/internal/formatter"
	"github.com/oakwood-commons/fleetgrid/internal/resources"
	"github.com/oakwood-commons/fleetgrid/pkg/grid"
	"github.com/oakwood-commons/fleetgrid/pkg/settings"
)

var resourcesCmd = &cobra.Command{
	Use:   "resources [resource]",
	Short: "List the browsable resources, or the columns of one",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		run := settings.FromContextOrDefault(cmd.Context())
		var t export.Table
		if len(args) == 0 {
			t = export.Table{Headers: []string{"Name", "Title", "Columns", "Search"}}
			for _, r := range resources.All() {
				t.Cells = append(t.Cells, []string{r.Name, r.Title, strconv.Itoa(len(r.Columns)), strings.Join(r.Search, ", ")})
			}
		} else {
			res, err := lookupResource(args)
			if err != nil {
				return err
			}
			t = export.Table{Headers: []string{"Field", "Header", "Type", "Width", "Pinned", "Features"}}
			for _, c := range res.Columns {
				typ, width := c.Type, c.Width
				if typ == "" {
					typ = grid.TypeString
				}
				if width == 0 {
					width = grid.DefaultColumnWidth
				}
				t.Cells = append(t.Cells, []string{c.Field, c.Title(), string(typ), strconv.Itoa(width), pinName(c.Pinned), features(c)})
			}
		}
		_, err := fmt.Fprint(cmd.OutOrStdout(), formatter.RenderTable(t, formatter.TableOptions{NoColor: run.NoColor}))
		return err
	},
}

func pinName(p grid.Pin) string {
	if !p.Edge() {
		return "-"
	}
	return string(p)
}

func features(c grid.Column) string {
	var out []string
	if c.Sortable {
		out = append(out, "sort")
	}
	if c.Filterable {
		out = append(out, "filter")
	}
	if c.Resizable {
		out = append(out, "resize")
	}
	if c.Hidden {
		out = append(out, "hidden")
	}
	return strings.Join(out, ",")
}
