package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/flowcanvas/flowcanvas/pkg/reconcile"
)

// applyCommand creates the apply command for applying change batches.
func (c *CLI) applyCommand() *cobra.Command {
	var repo string

	cmd := &cobra.Command{
		Use:   "apply <config-id> <changes.json>",
		Short: "Apply a change batch file to a config",
		Long: `Apply a change batch file to a config.

The changes file uses the same JSON shape the HTTP API accepts: position
and dimension changes, node updates and deletions, and edge deletions and
creations. Changes are reconciled into the document in a fixed order and
the result is written back; the document is re-validated before the write.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runApply(cmd, repo, args[0], args[1])
		},
	}

	cmd.Flags().StringVarP(&repo, "repo", "r", ".", "repository root to scan")
	return cmd
}

func (c *CLI) runApply(cmd *cobra.Command, repo, configID, changesPath string) error {
	data, err := os.ReadFile(changesPath)
	if err != nil {
		return fmt.Errorf("read changes %s: %w", changesPath, err)
	}
	var changes reconcile.Changes
	if err := json.Unmarshal(data, &changes); err != nil {
		return fmt.Errorf("decode changes %s: %w", changesPath, err)
	}
	if changes.Empty() {
		printInfo("change batch is empty, nothing to do")
		return nil
	}

	ctx := cmd.Context()
	p, cleanup, err := c.newPanel(ctx, repo, true)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := p.Select(ctx, configID); err != nil {
		return err
	}
	if err := p.Edit(changes); err != nil {
		return err
	}
	if err := p.Save(ctx); err != nil {
		return err
	}

	doc := p.Document()
	printSuccess("Changes applied")
	printStats(len(doc.Nodes), len(doc.Edges), false)
	return nil
}
