package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/maolala233/smart-brain/api/schemas"
)

const evidenceContainer = "qa-evidence"

func newAskCmd() *cobra.Command {
	var (
		userID       int64
		subgraphIDs  []int64
		interactive  bool
		showEvidence bool
	)

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question against one or more subgraphs.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !interactive && len(args) == 0 {
				return fmt.Errorf("a question argument is required unless --interactive is set")
			}

			c, err := NewComponents(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Shutdown(cmd.Context())

			c.QA.SelectUser(userID)
			c.QA.SetSubgraphs(subgraphIDs)

			if !interactive {
				return askOnce(cmd, c, args[0], showEvidence)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "interactive session, empty line to exit")
			scanner := bufio.NewScanner(cmd.InOrStdin())
			for {
				fmt.Fprint(cmd.OutOrStdout(), "> ")
				if !scanner.Scan() {
					break
				}
				question := strings.TrimSpace(scanner.Text())
				if question == "" {
					break
				}
				if err := askOnce(cmd, c, question, showEvidence); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
				}
			}
			return scanner.Err()
		},
	}
	cmd.Flags().Int64VarP(&userID, "user", "u", 0, "asking user id (required)")
	cmd.Flags().Int64SliceVarP(&subgraphIDs, "subgraph", "s", nil, "subgraph ids to search (required)")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "keep a conversation going across questions")
	cmd.Flags().BoolVar(&showEvidence, "evidence", false, "render the answer's supporting subgraph")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("subgraph")
	return cmd
}

func askOnce(cmd *cobra.Command, c *Components, question string, showEvidence bool) error {
	answer, err := c.QA.Ask(cmd.Context(), question)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, answer.Content)
	if len(answer.SearchStrategies) > 0 {
		fmt.Fprintf(out, "strategies: %s\n", strings.Join(answer.SearchStrategies, ", "))
	}
	if answer.Evidence != nil {
		fmt.Fprintf(out, "evidence: %d nodes, %d relationships\n",
			len(answer.Evidence.Nodes), len(answer.Evidence.Relationships))
		if showEvidence {
			if _, err := c.QA.OpenEvidence(answer.ID, evidenceContainer); err != nil {
				return err
			}
			printEvidence(out, answer.Evidence)
		}
	}
	return nil
}

func printEvidence(out io.Writer, snapshot *schemas.GraphSnapshot) {
	for _, n := range snapshot.Nodes {
		fmt.Fprintf(out, "  node %s [%s] %s\n", n.ID, n.Label, n.Name)
	}
	for _, e := range snapshot.Relationships {
		fmt.Fprintf(out, "  %s -%s-> %s\n", e.From, e.Type, e.To)
	}
}

