package commands

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vsinha/ordercalc/pkg/domain/entities"
	"github.com/vsinha/ordercalc/pkg/infrastructure/events"
	"github.com/vsinha/ordercalc/pkg/infrastructure/selections"
	"github.com/vsinha/ordercalc/pkg/interfaces/cli/output"
)

type calculateOptions struct {
	targets              []string
	targetsFile          string
	selection            string
	saveAs               string
	format               string
	outputDir            string
	includeConsumables   bool
	excludeSuppliers     []string
	excludeManufacturers []string
	verbose              bool
}

func newCalculateCommand(root *rootOptions) *cobra.Command {
	var opts calculateOptions

	cmd := &cobra.Command{
		Use:   "calculate",
		Short: "Calculate parts to order and sub-assemblies to build",
		Example: `  ordercalc calculate --target 1021=5 --target 1022=2
  ordercalc calculate --selection spring-batch --format csv --output results/
  ordercalc --snapshot ./snapshot calculate --targets-file targets.yaml --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCalculate(cmd, root.app, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringArrayVarP(&opts.targets, "target", "t", nil, "Target assembly as ID or ID=QTY (repeatable)")
	flags.StringVar(&opts.targetsFile, "targets-file", "", "YAML file listing targets as {part_id, quantity}")
	flags.StringVar(&opts.selection, "selection", "", "Use the targets of a saved selection")
	flags.StringVar(&opts.saveAs, "save-as", "", "Save the targets as a selection with this name")
	flags.StringVarP(&opts.format, "format", "f", "text", "Output format: text, json, csv, html")
	flags.StringVarP(&opts.outputDir, "output", "o", "", "Output directory (required for csv)")
	flags.BoolVar(&opts.includeConsumables, "include-consumables", true, "Count consumable parts and BOM lines")
	flags.StringSliceVar(&opts.excludeSuppliers, "exclude-supplier", nil, "Drop parts sourced from these suppliers")
	flags.StringSliceVar(&opts.excludeManufacturers, "exclude-manufacturer", nil, "Drop parts made by these manufacturers")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Print progress and details")

	return cmd
}

func runCalculate(cmd *cobra.Command, app *App, opts calculateOptions) error {
	ctx := cmd.Context()

	targets, err := collectTargets(app, opts)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return errors.New("no targets given: use --target, --targets-file or --selection")
	}

	if opts.saveAs != "" {
		if err := app.Selections().Save(selections.Selection{Name: opts.saveAs, Targets: targets}); err != nil {
			return fmt.Errorf("failed to save selection: %w", err)
		}
		app.Logger.Info("selection saved", zap.String("name", opts.saveAs), zap.Int("targets", len(targets)))
	}

	gw, err := app.Gateway(ctx)
	if err != nil {
		return err
	}

	calcOpts := app.Options()
	if cmd.Flags().Changed("include-consumables") {
		calcOpts.IncludeConsumables = opts.includeConsumables
	}
	if cmd.Flags().Changed("exclude-supplier") {
		calcOpts.ExcludeSuppliers = opts.excludeSuppliers
	}
	if cmd.Flags().Changed("exclude-manufacturer") {
		calcOpts.ExcludeManufacturers = opts.excludeManufacturers
	}

	store := events.NewInMemoryEventStore(app.Logger)
	if opts.verbose {
		printer := progressPrinter(cmd.ErrOrStderr())
		if err := store.Subscribe([]string{events.ProgressUpdatedEvent}, printer); err != nil {
			return err
		}
	}
	calcOpts.Events = store

	result, err := app.Calculator(gw).Calculate(ctx, targets, calcOpts)
	store.Close()
	if err != nil {
		return fmt.Errorf("calculation failed: %w", err)
	}

	return output.Generate(result, output.Config{
		Format:    opts.format,
		OutputDir: opts.outputDir,
		Verbose:   opts.verbose,
		Writer:    cmd.OutOrStdout(),
	})
}

// collectTargets merges --selection, --targets-file and --target in that order
func collectTargets(app *App, opts calculateOptions) ([]entities.TargetRequest, error) {
	var targets []entities.TargetRequest

	if opts.selection != "" {
		sel, err := app.Selections().Load(opts.selection)
		if err != nil {
			return nil, err
		}
		targets = append(targets, sel.Targets...)
	}

	if opts.targetsFile != "" {
		fromFile, err := loadTargetsFile(opts.targetsFile)
		if err != nil {
			return nil, err
		}
		targets = append(targets, fromFile...)
	}

	fromFlags, err := parseTargets(opts.targets)
	if err != nil {
		return nil, err
	}
	return append(targets, fromFlags...), nil
}

func progressPrinter(w io.Writer) events.HandlerFunc {
	start := time.Now()
	return func(event events.Event) error {
		p, ok := event.Data().(events.ProgressUpdated)
		if !ok {
			return nil
		}
		_, err := fmt.Fprintf(w, "[%3d%%] %-16s %s (%v)\n", p.Percent, p.Stage, p.Message, time.Since(start).Round(time.Millisecond))
		return err
	}
}
