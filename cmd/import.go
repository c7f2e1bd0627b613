package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oakwood-commons/fleetgrid/pkg/logger"
)

var importCmd = &cobra.Command{
	Use:   "import <resource> <file>",
	Short: "Upload a CSV or XLSX file to the backend",
	Long: `Upload a CSV or XLSX file to the backend. Rows the backend rejects are
listed with their row number and the command exits non-zero.`,
	Example:           "  fleetgrid import devices devices.csv",
	Args:              cobra.ExactArgs(2),
	ValidArgsFunction: completeResources,
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := lookupResource(args)
		if err != nil {
			return err
		}
		client, err := newClient(cmd.Context())
		if err != nil {
			return err
		}
		lgr := logger.WithValues(logger.FromContext(cmd.Context()), logger.ResourceKey, res.Name)
		lgr.V(1).Info("uploading import", "path", args[1])
		result, err := client.ImportFile(cmd.Context(), res.Name, args[1])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, result.Summary())
		for _, e := range result.Errors {
			if e.Field != "" {
				fmt.Fprintf(out, "  row %d %s: %s\n", e.Row, e.Field, e.Message)
			} else {
				fmt.Fprintf(out, "  row %d: %s\n", e.Row, e.Message)
			}
		}
		if n := len(result.Errors); n > 0 {
			return fmt.Errorf("%d of %d rows rejected", n, n+result.Imported)
		}
		return nil
	},
}
