package cmd

import (
	"fmt"
	"net"

	"github.com/spf13/cobra"

	"github.com/oakwood-commons/fleetgrid/internal/demo"
	"github.com/oakwood-commons/fleetgrid/pkg/logger"
)

var (
	demoAddr  string
	demoRows  int
	demoSeedF uint64
	demoToken string
)

var demoServerCmd = &cobra.Command{
	Use:   "demo-server",
	Short: "Serve generated fleet data over the backend API",
	Long: `Serve generated data for every resource with server-side sort, filter,
search, paging, filter options, export and import. Point browse or list at
it with --api-url.`,
	Example: "  fleetgrid demo-server --addr 127.0.0.1:8080 --rows 5000",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		lgr := logger.FromContext(ctx)
		opts := []demo.ServerOption{demo.WithLogger(*lgr)}
		if demoToken != "" {
			opts = append(opts, demo.WithToken(demoToken))
		}
		srv := demo.NewServer(demo.NewStore(demoSeedF, demoRows), opts...)
		return srv.ListenAndServe(ctx, demoAddr, func(a net.Addr) {
			fmt.Fprintf(cmd.OutOrStdout(), "serving %d rows per resource on http://%s\n", demoRows, a)
			lgr.Info("demo server listening", "addr", a.String(), "rows", demoRows)
		})
	},
}

func init() { //nolint:gochecknoinits
	fs := demoServerCmd.Flags()
	fs.StringVar(&demoAddr, "addr", "127.0.0.1:8080", "listen address")
	fs.IntVar(&demoRows, "rows", 1000, "rows generated per resource")
	fs.Uint64Var(&demoSeedF, "seed", demoSeed, "seed for the generated data")
	fs.StringVar(&demoToken, "require-token", "", "reject requests without this bearer token")
}
