package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/maolala233/smart-brain/internal/ingest"
)

func newUploadCmd() *cobra.Command {
	var (
		userID     int64
		subgraphID int64
		text       string
	)

	cmd := &cobra.Command{
		Use:   "upload [files...]",
		Short: "Extract knowledge from documents or raw text into a subgraph.",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := NewComponents(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Shutdown(cmd.Context())

			for _, path := range args {
				f, err := os.Open(path)
				if err != nil {
					return fmt.Errorf("open %s: %w", path, err)
				}
				stageErr := c.Ingest.StageFile(filepath.Base(path), f)
				f.Close()
				if stageErr != nil {
					return fmt.Errorf("stage %s: %w", path, stageErr)
				}
			}
			if text != "" {
				c.Ingest.StageText(text)
			}

			target := ingest.Target{UserID: userID, SubgraphID: subgraphID}
			if err := c.Ingest.Submit(cmd.Context(), target); err != nil {
				return err
			}

			snapshot := c.Store.Snapshot()
			fmt.Fprintf(cmd.OutOrStdout(), "extraction complete: %d nodes, %d relationships\n",
				len(snapshot.Nodes), len(snapshot.Relationships))
			return nil
		},
	}
	cmd.Flags().Int64VarP(&userID, "user", "u", 0, "owning user id (required)")
	cmd.Flags().Int64VarP(&subgraphID, "subgraph", "s", 0, "target subgraph id (required)")
	cmd.Flags().StringVarP(&text, "text", "t", "", "raw text to extract from instead of, or alongside, files")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("subgraph")
	return cmd
}
