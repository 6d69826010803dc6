package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// showCommand creates the show command for printing a config's render graph.
func (c *CLI) showCommand() *cobra.Command {
	var (
		repo   string
		output string
	)

	cmd := &cobra.Command{
		Use:   "show <config-id>",
		Short: "Print a config's render graph as JSON",
		Long: `Print a config's render graph as JSON.

The graph carries resolved geometry and styles for every node and edge:
fill and stroke priority chains are already applied, default dimensions
filled in, and edge styles resolved from the document's edge types.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runShow(cmd, repo, args[0], output)
		},
	}

	cmd.Flags().StringVarP(&repo, "repo", "r", ".", "repository root to scan")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	return cmd
}

func (c *CLI) runShow(cmd *cobra.Command, repo, configID, output string) error {
	ctx := cmd.Context()
	p, cleanup, err := c.newPanel(ctx, repo, true)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := p.Select(ctx, configID); err != nil {
		return err
	}
	g, err := p.Graph()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return fmt.Errorf("encode graph: %w", err)
	}
	data = append(data, '\n')

	if output == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(output, data, 0644); err != nil {
		return fmt.Errorf("write output %s: %w", output, err)
	}
	printSuccess("Graph written")
	printFile(output)
	printStats(len(g.Nodes), len(g.Edges), false)
	return nil
}
