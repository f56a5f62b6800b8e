package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maolala233/smart-brain/api/schemas"
)

const mainViewContainer = "graph-main"

func newGraphCmd() *cobra.Command {
	var (
		userID     int64
		subgraphID int64
	)

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Inspect and edit a subgraph's nodes and relationships.",
	}
	cmd.PersistentFlags().Int64VarP(&userID, "user", "u", 0, "owning user id (required)")
	cmd.PersistentFlags().Int64VarP(&subgraphID, "subgraph", "s", 0, "subgraph id")
	_ = cmd.MarkPersistentFlagRequired("user")

	var renderView bool
	show := &cobra.Command{
		Use:   "show",
		Short: "Fetch the subgraph snapshot and optionally render it.",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := NewComponents(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Shutdown(cmd.Context())

			if renderView {
				if err := c.AttachMainView(mainViewContainer); err != nil {
					return err
				}
			}

			snapshot, err := c.Store.Load(cmd.Context(), userID, subgraphID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d nodes, %d relationships\n",
				len(snapshot.Nodes), len(snapshot.Relationships))
			for _, n := range snapshot.Nodes {
				fmt.Fprintf(cmd.OutOrStdout(), "  [%s] %s (%s)\n", n.Label, n.Name, n.ID)
			}
			for _, e := range snapshot.Relationships {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s -%s-> %s\n", e.From, e.Type, e.To)
			}

			if renderView {
				if handle := c.MainHandle(); handle != nil {
					defer func() { _ = c.Render.Detach(handle) }()
					if engine := handle.Engine(); engine != nil {
						nodes, edges := engine.Counts()
						fmt.Fprintf(cmd.OutOrStdout(), "Rendered %d nodes and %d edges\n", nodes, edges)
					}
				}
			}
			return nil
		},
	}
	show.Flags().BoolVar(&renderView, "render", false, "push the snapshot through the rendering engine")

	clear := &cobra.Command{
		Use:   "clear",
		Short: "Delete the user's whole graph (every subgraph's data).",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := NewComponents(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Shutdown(cmd.Context())

			if err := c.API.ClearGraph(cmd.Context(), userID); err != nil {
				return err
			}
			c.Store.Clear()
			fmt.Fprintln(cmd.OutOrStdout(), "Graph cleared")
			return nil
		},
	}

	var nodeLabel, nodeName string
	nodeAdd := &cobra.Command{
		Use:   "node-add <id>",
		Short: "Add one node to the subgraph.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := NewComponents(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Shutdown(cmd.Context())

			node := schemas.NodeInput{
				ID:         args[0],
				Label:      nodeLabel,
				Name:       nodeName,
				SubgraphID: subgraphID,
			}
			if err := c.API.CreateNode(cmd.Context(), userID, node); err != nil {
				return err
			}
			_, err = c.Store.Load(cmd.Context(), userID, subgraphID)
			return err
		},
	}
	nodeAdd.Flags().StringVar(&nodeLabel, "label", "Concept", "node type tag")
	nodeAdd.Flags().StringVar(&nodeName, "name", "", "display name (defaults to id)")

	nodeDelete := &cobra.Command{
		Use:   "node-delete <id>",
		Short: "Delete one node from the subgraph.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := NewComponents(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Shutdown(cmd.Context())

			if err := c.API.DeleteNode(cmd.Context(), userID, args[0], subgraphID); err != nil {
				return err
			}
			_, err = c.Store.Load(cmd.Context(), userID, subgraphID)
			return err
		},
	}

	var relType string
	relAdd := &cobra.Command{
		Use:   "rel-add <from> <to>",
		Short: "Add one relationship between two nodes.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := NewComponents(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Shutdown(cmd.Context())

			edge := schemas.EdgeInput{
				From:       args[0],
				To:         args[1],
				Type:       relType,
				SubgraphID: subgraphID,
			}
			if err := c.API.CreateRelationship(cmd.Context(), userID, edge); err != nil {
				return err
			}
			_, err = c.Store.Load(cmd.Context(), userID, subgraphID)
			return err
		},
	}
	relAdd.Flags().StringVar(&relType, "type", "RELATED_TO", "relationship type")

	relDelete := &cobra.Command{
		Use:   "rel-delete <from> <to>",
		Short: "Delete one relationship between two nodes.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := NewComponents(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Shutdown(cmd.Context())

			edge := schemas.EdgeInput{
				From:       args[0],
				To:         args[1],
				Type:       relType,
				SubgraphID: subgraphID,
			}
			if err := c.API.DeleteRelationship(cmd.Context(), userID, edge); err != nil {
				return err
			}
			_, err = c.Store.Load(cmd.Context(), userID, subgraphID)
			return err
		},
	}
	relDelete.Flags().StringVar(&relType, "type", "RELATED_TO", "relationship type")

	cmd.AddCommand(show, clear, nodeAdd, nodeDelete, relAdd, relDelete)
	return cmd
}
