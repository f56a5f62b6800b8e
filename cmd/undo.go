package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newUndoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "undo <subgraph-id>",
		Short: "Revert the most recent change to a subgraph.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			subgraphID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid subgraph id %q: %w", args[0], err)
			}

			c, err := NewComponents(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Shutdown(cmd.Context())

			if err := c.API.Undo(cmd.Context(), subgraphID); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "reverted last change")
			return nil
		},
	}
	return cmd
}
