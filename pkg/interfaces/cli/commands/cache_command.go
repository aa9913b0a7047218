package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCacheCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Maintain the Redis read cache",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "flush",
		Short: "Drop every cached part, BOM and category entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			gw, err := root.app.CacheGateway(cmd.Context())
			if err != nil {
				return err
			}
			n, err := gw.Flush(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to flush cache: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cached entries\n", n)
			return nil
		},
	})

	return cmd
}
