package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oakwood-commons/fleetgrid/internal/config"
	"github.com/oakwood-commons/fleetgrid/pkg/settings"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage fleetgrid configuration",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

var configViewCmd = &cobra.Command{
	Use:     "view",
	Aliases: []string{"get"},
	Short:   "Show the merged configuration (token masked)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		data, err := cfg.Marshal()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file in use",
	RunE: func(cmd *cobra.Command, _ []string) error {
		run := settings.FromContextOrDefault(cmd.Context())
		if run.ConfigFile == "" {
			fmt.Fprintln(cmd.OutOrStdout(), "(built-in defaults)")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), run.ConfigFile)
		return nil
	},
}

var configDefaultCmd = &cobra.Command{
	Use:   "default",
	Short: "Print the built-in default configuration",
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, err := cmd.OutOrStdout().Write(config.DefaultConfigYAML())
		return err
	},
}

func init() { //nolint:gochecknoinits
	configCmd.AddCommand(configViewCmd, configPathCmd, configDefaultCmd)
}
