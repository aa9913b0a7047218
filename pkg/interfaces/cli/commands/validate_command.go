package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vsinha/ordercalc/internal/config"
	"github.com/vsinha/ordercalc/pkg/domain/services"
	"github.com/vsinha/ordercalc/pkg/infrastructure/repositories/csv"
)

func newValidateCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check a CSV snapshot for BOM cycles, duplicate lines and unknown parts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := root.app.Config
			if cfg.Source != config.SourceCSV {
				return errors.New("validate needs a CSV snapshot: pass --snapshot <dir>")
			}

			gw, err := csv.NewLoader().LoadGateway(cfg.SnapshotDir)
			if err != nil {
				return fmt.Errorf("failed to load snapshot: %w", err)
			}

			parts, lines := gw.Parts(), gw.BOMLines()
			result := services.NewBOMValidator().ValidateBOM(parts, lines)

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Parts: %d, BOM lines: %d\n", len(parts), len(lines))
			if result.Valid() {
				fmt.Fprintln(w, "✅ BOM is consistent")
				return nil
			}
			for _, msg := range result.Errors {
				fmt.Fprintf(w, "❌ %s\n", msg)
			}
			return fmt.Errorf("snapshot has %d BOM problem(s)", len(result.Errors))
		},
	}
}
