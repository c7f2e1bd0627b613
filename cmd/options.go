package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oakwood-commons/fleetgrid/pkg/grid"
)

var (
	optionsSource sourceFlags
	optionsSearch string
	optionsLimit  int
)

var filterOptionsCmd = &cobra.Command{
	Use:               "filter-options <resource> <column>",
	Short:             "List the distinct values a column can be filtered by",
	Example:           "  fleetgrid filter-options devices status\n  fleetgrid filter-options devices model --search pro --demo 300",
	Args:              cobra.ExactArgs(2),
	ValidArgsFunction: completeResources,
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := lookupResource(args)
		if err != nil {
			return err
		}
		field := args[1]
		col, ok := res.Column(field)
		if !ok {
			return fmt.Errorf("%w: %s", grid.ErrUnknownField, field)
		}
		if !col.Filterable {
			return fmt.Errorf("column %q is not filterable", field)
		}

		var opts []grid.FilterOption
		if optionsSource.local() {
			rows, err := optionsSource.rows(res)
			if err != nil {
				return err
			}
			opts = narrowOptions(grid.DistinctOptions(rows, field), optionsSearch, optionsLimit)
		} else {
			client, err := newClient(cmd.Context())
			if err != nil {
				return err
			}
			result, err := client.FilterOptions(cmd.Context(), res.Name, field, optionsSearch, optionsLimit)
			if err != nil {
				return err
			}
			opts = result.Options
		}

		out := cmd.OutOrStdout()
		for _, o := range opts {
			label := o.Label
			if label == "" {
				label = o.Value
			}
			if o.Count > 0 {
				fmt.Fprintf(out, "%s\t%d\n", label, o.Count)
			} else {
				fmt.Fprintln(out, label)
			}
		}
		return nil
	},
}

func init() { //nolint:gochecknoinits
	fs := filterOptionsCmd.Flags()
	optionsSource.register(fs)
	fs.StringVarP(&optionsSearch, "search", "s", "", "only values containing this text")
	fs.IntVar(&optionsLimit, "limit", 50, "maximum number of values (0 for no limit)")
}

// narrowOptions applies the search and limit the backend would apply.
func narrowOptions(opts []grid.FilterOption, search string, limit int) []grid.FilterOption {
	search = strings.ToLower(strings.TrimSpace(search))
	out := opts[:0:0]
	for _, o := range opts {
		if search == "" || strings.Contains(strings.ToLower(o.Value), search) || strings.Contains(strings.ToLower(o.Label), search) {
			out = append(out, o)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
