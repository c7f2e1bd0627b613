package cmd

import (
	"context"
	"fmt"
	"image/color"
	"os"
	"os/signal"
	"runtime"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/oakwood-commons/fleetgrid/internal/api"
	"github.com/oakwood-commons/fleetgrid/internal/config"
	"github.com/oakwood-commons/fleetgrid/internal/formatter"
	"github.com/oakwood-commons/fleetgrid/internal/resources"
	"github.com/oakwood-commons/fleetgrid/pkg/logger"
	"github.com/oakwood-commons/fleetgrid/pkg/session"
	"github.com/oakwood-commons/fleetgrid/pkg/settings"
)

// tuiAnnotation marks commands that take over the terminal. Their logs go to
// --log-file or nowhere.
const tuiAnnotation = "fleetgrid/tui"

var (
	configFile string
	logFile    string
	debug      bool
	noColor    bool
	apiURL     string
	token      string

	// cfg is the merged configuration, loaded before any subcommand runs.
	cfg config.Config

	getenv = os.Getenv
)

var rootCmd = &cobra.Command{
	Use:           settings.CliBinaryName,
	Short:         "Terminal data grid for the fleet admin console",
	Long:          helpHeader(),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		run := settings.NewCliParams()
		if debug {
			run.MinLogLevel = -1
		}
		run.LogFile = logFile
		run.ConfigFile = config.Path(configFile, getenv)

		lgr, err := setupLogger(cmd, run)
		if err != nil {
			return err
		}
		lgr = logger.WithValues(lgr, logger.RootCommandKey, settings.CliBinaryName, logger.SubCommandKey, cmd.Name())

		loaded, err := config.Load(run.ConfigFile, getenv)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if apiURL != "" {
			loaded.API.BaseURL = apiURL
		}
		if token != "" {
			loaded.Session.Token = token
		}
		cfg = loaded
		run.NoColor = noColor || cfg.UI.NoColor
		formatter.SetTableTheme(tableColors(cfg.UI.Table))

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		ctx = logger.WithLogger(ctx, lgr)
		ctx = settings.IntoContext(ctx, run)
		ctx = session.IntoContext(ctx, session.NewStore(session.Credentials{
			AccessToken: cfg.Session.Token,
			TokenType:   cfg.Session.TokenType,
		}))
		cmd.SetContext(ctx)
		lgr.V(1).Info("config loaded", "file", run.ConfigFile, "api", cfg.API.BaseURL)
		return nil
	},
}

func setupLogger(cmd *cobra.Command, run *settings.Run) (*logr.Logger, error) {
	if run.LogToFile() {
		return logger.SetupFile(run.MinLogLevel, run.LogFile)
	}
	if _, ok := cmd.Annotations[tuiAnnotation]; ok {
		return logger.GetNoopLogger(), nil
	}
	return logger.Get(run.MinLogLevel), nil
}

func tableColors(t config.TableTheme) formatter.TableColors {
	c := func(s string) color.Color {
		if s == "" {
			return nil
		}
		return lipgloss.Color(s)
	}
	return formatter.TableColors{
		HeaderFG:       c(t.HeaderFG),
		HeaderBG:       c(t.HeaderBG),
		KeyColor:       c(t.Key),
		ValueColor:     c(t.Value),
		SeparatorColor: c(t.Separator),
	}
}

func init() { //nolint:gochecknoinits
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config-file", "", "path to a YAML config file (default $XDG_CONFIG_HOME/fleetgrid/config.yaml)")
	pf.StringVar(&logFile, "log-file", "", "write JSON logs to this file instead of stderr")
	pf.BoolVar(&debug, "debug", false, "enable debug logging")
	pf.BoolVar(&noColor, "no-color", false, "disable color output")
	pf.StringVar(&apiURL, "api-url", "", "backend base URL (overrides api.base_url and $"+config.EnvAPIURL+")")
	pf.StringVar(&token, "token", "", "bearer token for the backend (overrides $"+config.EnvToken+")")

	rootCmd.Version = versionString()
	rootCmd.SetVersionTemplate("{{.Version}}\n")
	rootCmd.AddCommand(
		browseCmd,
		listCmd,
		exportCmd,
		importCmd,
		filterOptionsCmd,
		resourcesCmd,
		demoServerCmd,
		configCmd,
		versionCmd,
	)
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func helpHeader() string {
	def, err := config.Default()
	if err != nil {
		return ""
	}
	return def.HelpHeader(settings.VersionInformation)
}

func versionString() string {
	v := settings.VersionInformation
	return fmt.Sprintf("%s %s (commit %s, built %s, %s)", settings.CliBinaryName, v.BuildVersion, v.Commit, v.BuildTime, runtime.Version())
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print fleetgrid version",
	RunE: func(cmd *cobra.Command, _ []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), versionString())
		return nil
	},
}

// lookupResource resolves the single resource argument of a command.
func lookupResource(args []string) (resources.Resource, error) {
	if len(args) == 0 {
		return resources.Resource{}, fmt.Errorf("missing resource (expected one of %s)", strings.Join(resources.Names(), ", "))
	}
	return resources.Lookup(args[0])
}

// newClient builds an API client from the merged configuration.
// newClient builds a backend client around the session stored in ctx. A JWT
// whose exp has passed is rejected before any request goes out.
func newClient(ctx context.Context) (*api.Client, error) {
	store, ok := session.FromContext(ctx)
	if !ok {
		store = session.NewStore(session.Credentials{
			AccessToken: cfg.Session.Token,
			TokenType:   cfg.Session.TokenType,
		})
	}
	creds := store.Credentials()
	if creds.Expired(now()) {
		store.Clear()
		return nil, fmt.Errorf("%w: access token expired (set $%s or pass --token)", api.ErrUnauthorized, config.EnvToken)
	}
	if claims, err := session.DecodeClaims(creds.AccessToken); err == nil {
		logger.FromContext(ctx).V(1).Info("using session", "subject", claims.Subject())
	}
	return api.NewClient(cfg.API.BaseURL, store, api.WithTimeout(cfg.API.Timeout))
}

func completeResources(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return resources.Names(), cobra.ShellCompDirectiveNoFileComp
}
