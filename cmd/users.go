package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newUsersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List the users whose knowledge graphs can be explored.",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := NewComponents(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Shutdown(cmd.Context())

			users, err := c.API.ListUsers(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tROLE\tDOMAIN")
			for _, u := range users {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", u.ID, u.Name, u.Role, u.Domain)
			}
			return w.Flush()
		},
	}
}
