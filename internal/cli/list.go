package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// listCommand creates the list command for discovering config files.
func (c *CLI) listCommand() *cobra.Command {
	var repo string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Discover canvas config files in a repository",
		Long: `Discover canvas config files in a repository.

Scans the repository for .canvas and vvf.config.yaml documents under the
.flowcanvas/ folder, per-package traces/ folders, and the repository root,
and prints them in their stable display order.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runList(cmd, repo)
		},
	}

	cmd.Flags().StringVarP(&repo, "repo", "r", ".", "repository root to scan")
	return cmd
}

func (c *CLI) runList(cmd *cobra.Command, repo string) error {
	p, cleanup, err := c.newPanel(cmd.Context(), repo, true)
	if err != nil {
		return err
	}
	defer cleanup()

	configs := p.Configs()
	if len(configs) == 0 {
		printInfo("no config files found")
		return nil
	}

	for _, cfg := range configs {
		name := cfg.Name
		if cfg.Namespace != "" {
			name = cfg.Namespace + " / " + name
		}
		fmt.Println(StyleValue.Render(name) + " " + StyleDim.Render(fmt.Sprintf("(%s, %s)", cfg.ID, cfg.Source)))
	}
	printNewline()
	printNextStep("Inspect one", appName+" show <id>")
	return nil
}
