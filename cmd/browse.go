package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oakwood-commons/fleetgrid/internal/config"
	"github.com/oakwood-commons/fleetgrid/internal/ui"
	"github.com/oakwood-commons/fleetgrid/pkg/grid"
	"github.com/oakwood-commons/fleetgrid/pkg/logger"
	"github.com/oakwood-commons/fleetgrid/pkg/settings"
)

var (
	browseSource   sourceFlags
	browsePageSize int
	browseWidth    int
	browseHeight   int
)

var browseCmd = &cobra.Command{
	Use:   "browse <resource>",
	Short: "Open the interactive grid for a resource",
	Long: `Open the interactive grid for a resource. Rows are paged, sorted and
filtered by the backend unless --file or --demo supplies them locally.
Press ? inside the grid for the key map.`,
	Example: `  fleetgrid browse devices
  fleetgrid browse devices --demo 2000 --columns-file ~/.config/fleetgrid/columns.yaml
  curl -s $URL/devices | fleetgrid browse devices --file -`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeResources,
	Annotations:       map[string]string{tuiAnnotation: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := lookupResource(args)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		lgr := logger.WithValues(logger.FromContext(ctx), logger.ResourceKey, res.Name)
		opts, err := browseOptions(cmd, res.Name)
		if err != nil {
			return err
		}
		opts.Resource = res

		if browseSource.local() {
			if opts.Rows, err = browseSource.rows(res); err != nil {
				return err
			}
		} else {
			client, err := newClient(ctx)
			if err != nil {
				return err
			}
			opts.Backend = client
		}

		progOpts, cleanup := getProgramOptions(ctx)
		defer cleanup()
		lgr.V(1).Info("opening grid", "local", browseSource.local(), "rows", len(opts.Rows))
		err = ui.Run(logger.WithLogger(ctx, lgr), opts, progOpts...)
		if errors.Is(err, ui.ErrSessionExpired) {
			return fmt.Errorf("%w (set $%s or pass --token)", err, config.EnvToken)
		}
		return err
	},
}

func init() { //nolint:gochecknoinits
	fs := browseCmd.Flags()
	browseSource.register(fs)
	fs.IntVar(&browsePageSize, "page-size", -1, "rows per page, 0 for all rows (default grid.page_size)")
	fs.IntVar(&browseWidth, "width", 0, "initial screen width until the terminal reports one")
	fs.IntVar(&browseHeight, "height", 0, "initial screen height until the terminal reports one")
}

// browseOptions maps the merged configuration onto grid options and wires
// column layout persistence to --columns-file.
func browseOptions(cmd *cobra.Command, resource string) (ui.Options, error) {
	run := settings.FromContextOrDefault(cmd.Context())
	opts := ui.Options{
		PageSize:       cfg.Grid.PageSize,
		PageSizes:      cfg.PageSizes(),
		SearchDebounce: cfg.Grid.SearchDebounce,
		OptionDebounce: cfg.Grid.OptionDebounce,
		OptionLimit:    cfg.Grid.OptionLimit,
		Locale:         cfg.Locale(),
		PointerScale:   cfg.UI.PointerScale,
		NoColor:        run.NoColor,
		ExportDir:      cfg.Export.Directory,
		ExportFormat:   grid.ExportFormat(cfg.Export.Format),
		Width:          browseWidth,
		Height:         browseHeight,
	}
	if browsePageSize >= 0 {
		opts.PageSize = browsePageSize
	}
	if path := browseSource.columnsFile; path != "" {
		states, err := config.LoadColumnStates(path, resource)
		if err != nil {
			return opts, err
		}
		opts.ColumnStates = states
		lgr := logger.FromContext(cmd.Context())
		opts.OnColumnsChange = func(states []grid.ColumnState) {
			if err := config.SaveColumnStates(path, resource, states); err != nil {
				lgr.Error(err, "saving column layout", "path", path)
			}
		}
	}
	return opts, nil
}
