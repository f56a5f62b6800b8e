package cmd

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newSubgraphCmd() *cobra.Command {
	var userID int64

	cmd := &cobra.Command{
		Use:   "subgraph",
		Short: "Manage a user's knowledge subgraphs.",
	}
	cmd.PersistentFlags().Int64VarP(&userID, "user", "u", 0, "owning user id (required)")
	_ = cmd.MarkPersistentFlagRequired("user")

	list := &cobra.Command{
		Use:   "list",
		Short: "List subgraphs for the user.",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := NewComponents(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Shutdown(cmd.Context())

			subgraphs, err := c.API.ListSubgraphs(cmd.Context(), userID)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tDESCRIPTION\tCREATED")
			for _, sg := range subgraphs {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", sg.ID, sg.Name, sg.Description, sg.CreatedAt.Format("2006-01-02"))
			}
			return w.Flush()
		},
	}

	var description string
	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a subgraph and select it.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := NewComponents(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Shutdown(cmd.Context())

			if err := c.Subgraphs.SelectUser(cmd.Context(), userID); err != nil {
				return err
			}
			created, err := c.Subgraphs.Create(cmd.Context(), args[0], description)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created subgraph %d (%s)\n", created.ID, created.Name)
			return nil
		},
	}
	create.Flags().StringVarP(&description, "description", "d", "", "optional description")

	var renameDescription string
	rename := &cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Rename a subgraph in place.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid subgraph id %q: %w", args[0], err)
			}
			c, err := NewComponents(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Shutdown(cmd.Context())

			if err := c.Subgraphs.SelectUser(cmd.Context(), userID); err != nil {
				return err
			}
			if err := c.Subgraphs.Rename(cmd.Context(), id, args[1], renameDescription); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed subgraph %d to %s\n", id, args[1])
			return nil
		},
	}
	rename.Flags().StringVarP(&renameDescription, "description", "d", "", "optional description")

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a subgraph and its graph data.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid subgraph id %q: %w", args[0], err)
			}
			c, err := NewComponents(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Shutdown(cmd.Context())

			if err := c.Subgraphs.SelectUser(cmd.Context(), userID); err != nil {
				return err
			}
			if err := c.Subgraphs.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted subgraph %d\n", id)
			return nil
		},
	}

	cmd.AddCommand(list, create, rename, deleteCmd)
	return cmd
}
