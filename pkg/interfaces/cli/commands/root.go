// Package commands implements the ordercalc command line.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vsinha/ordercalc/internal/config"
	"github.com/vsinha/ordercalc/internal/logger"
)

type rootOptions struct {
	configFile  string
	envFiles    []string
	source      string
	snapshotDir string
	logLevel    string
	logFormat   string

	app *App
}

// NewRootCommand builds the ordercalc command tree
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "ordercalc",
		Short: "Calculate what to order and what to build for a set of assemblies",
		Long: `ordercalc explodes the bills of materials of the selected target assemblies,
nets the demand against stock, open builds and open purchase orders, and
prints the parts to order and the sub-assemblies to build.

Inventory data comes from an InvenTree server (INVENTREE_URL, INVENTREE_TOKEN)
or from a CSV snapshot directory (--source csv --snapshot <dir>).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.app != nil {
				opts.app.Close()
			}
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "Path to a YAML config file")
	flags.StringSliceVar(&opts.envFiles, "env-file", []string{".env"}, "Dotenv files to load (missing files are skipped)")
	flags.StringVar(&opts.source, "source", "", "Inventory source: inventree or csv")
	flags.StringVar(&opts.snapshotDir, "snapshot", "", "CSV snapshot directory (implies --source csv)")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.StringVar(&opts.logFormat, "log-format", "", "Log format: console, json")

	cmd.AddCommand(
		newCalculateCommand(opts),
		newPartsCommand(opts),
		newSelectionsCommand(opts),
		newValidateCommand(opts),
		newServeCommand(opts),
		newCacheCommand(opts),
	)

	return cmd
}

func (o *rootOptions) setup(cmd *cobra.Command) error {
	if err := config.LoadDotEnv(o.envFiles...); err != nil {
		return err
	}

	cfg, err := config.Load(o.configFile, func(c *config.Config) {
		if o.snapshotDir != "" {
			c.SnapshotDir = o.snapshotDir
			c.Source = config.SourceCSV
		}
		if o.source != "" {
			c.Source = o.source
		}
		if o.logLevel != "" {
			c.Logging.Level = o.logLevel
		}
		if o.logFormat != "" {
			c.Logging.Format = o.logFormat
		}
	})
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	log, err := logger.NewLogger(cfg.Logging)
	if err != nil {
		return err
	}
	o.app = NewApp(cfg, log)
	return nil
}
