package commands

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/vsinha/ordercalc/pkg/interfaces/cli/output"
)

func newPartsCommand(root *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "parts [category-id]",
		Short: "List the parts of a category (default: the target category)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := root.app
			categoryID := app.Config.Calculation.TargetCategoryID
			if len(args) == 1 {
				id, err := strconv.Atoi(args[0])
				if err != nil || id <= 0 {
					return fmt.Errorf("invalid category id %q", args[0])
				}
				categoryID = id
			}

			gw, err := app.Gateway(cmd.Context())
			if err != nil {
				return err
			}
			parts, err := gw.GetPartsInCategory(cmd.Context(), categoryID)
			if err != nil {
				return fmt.Errorf("failed to list category %d: %w", categoryID, err)
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(parts)
			}
			output.PrintParts(cmd.OutOrStdout(), parts)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}
