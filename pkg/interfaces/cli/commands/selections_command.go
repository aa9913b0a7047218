package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vsinha/ordercalc/pkg/infrastructure/selections"
)

func newSelectionsCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "selections",
		Aliases: []string{"sel"},
		Short:   "Manage saved target selections",
	}

	var targets []string
	save := &cobra.Command{
		Use:   "save NAME",
		Short: "Save targets under a name, replacing an existing selection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := parseTargets(targets)
			if err != nil {
				return err
			}
			if err := root.app.Selections().Save(selections.Selection{Name: args[0], Targets: parsed}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved selection %q with %d target(s)\n", strings.TrimSpace(args[0]), len(parsed))
			return nil
		},
	}
	save.Flags().StringArrayVarP(&targets, "target", "t", nil, "Target assembly as ID or ID=QTY (repeatable)")
	_ = save.MarkFlagRequired("target")

	show := &cobra.Command{
		Use:     "show NAME",
		Aliases: []string{"load"},
		Short:   "Print the targets of a selection",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, err := root.app.Selections().Load(args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s (saved %s)\n", sel.Name, sel.CreatedAt.Local().Format("2006-01-02 15:04"))
			for _, t := range sel.Targets {
				fmt.Fprintf(w, "  %d=%s\n", t.PartID, t.Quantity)
			}
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List saved selections, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			all, err := root.app.Selections().List()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(all) == 0 {
				fmt.Fprintln(w, "No saved selections")
				return nil
			}
			fmt.Fprintf(w, "%-24s %-8s %s\n", "Name", "Targets", "Saved")
			for _, sel := range all {
				fmt.Fprintf(w, "%-24s %-8d %s\n", sel.Name, len(sel.Targets), sel.CreatedAt.Local().Format("2006-01-02 15:04"))
			}
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a saved selection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := root.app.Selections().Delete(args[0])
			if errors.Is(err, selections.ErrNotFound) {
				return fmt.Errorf("no selection named %q", args[0])
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted selection %q\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(save, show, list, del)
	return cmd
}
