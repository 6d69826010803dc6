package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/flowcanvas/flowcanvas/pkg/discovery"
)

var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// browseCommand creates the browse command for interactive config selection.
func (c *CLI) browseCommand() *cobra.Command {
	var repo string

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Interactively browse configs in the terminal",
		Long: `Interactively browse configs in the terminal.

Shows the discovered config files in a navigable list. Selecting one
prints its render graph statistics and the commands to work with it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runBrowse(cmd, repo)
		},
	}

	cmd.Flags().StringVarP(&repo, "repo", "r", ".", "repository root to scan")
	return cmd
}

func (c *CLI) runBrowse(cmd *cobra.Command, repo string) error {
	ctx := cmd.Context()
	p, cleanup, err := c.newPanel(ctx, repo, true)
	if err != nil {
		return err
	}
	defer cleanup()

	configs := p.Configs()
	if len(configs) == 0 {
		printInfo("no config files found")
		return nil
	}

	model := newConfigListModel(configs)
	final, err := tea.NewProgram(model, tea.WithContext(ctx)).Run()
	if err != nil {
		return fmt.Errorf("run browser: %w", err)
	}

	result, ok := final.(configListModel)
	if !ok || result.selected == nil {
		return nil
	}

	cfg := *result.selected
	if err := p.Select(ctx, cfg.ID); err != nil {
		return err
	}
	g, err := p.Graph()
	if err != nil {
		return err
	}

	printSuccess("%s", cfg.Name)
	printStats(len(g.Nodes), len(g.Edges), false)
	printNewline()
	printNextStep("Show graph", appName+" show "+cfg.ID)
	printNextStep("Auto-layout", appName+" layout "+cfg.ID)
	printNextStep("Render", appName+" render "+cfg.ID+" -f svg")
	return nil
}

// configListModel is the bubbletea model for interactive config selection.
type configListModel struct {
	configs  []discovery.ConfigFile
	cursor   int
	offset   int
	height   int
	selected *discovery.ConfigFile
}

func newConfigListModel(configs []discovery.ConfigFile) configListModel {
	return configListModel{
		configs: configs,
		height:  15,
	}
}

func (m configListModel) Init() tea.Cmd {
	return nil
}

func (m configListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
				if m.cursor < m.offset {
					m.offset = m.cursor
				}
			}
		case "down", "j":
			if m.cursor < len(m.configs)-1 {
				m.cursor++
				if m.cursor >= m.offset+m.height {
					m.offset = m.cursor - m.height + 1
				}
			}
		case "enter":
			cfg := m.configs[m.cursor]
			m.selected = &cfg
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.height = msg.Height - 6
		if m.height < 5 {
			m.height = 5
		}
	}
	return m, nil
}

func (m configListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Config"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ select  q quit"))
	b.WriteString("\n\n")

	end := m.offset + m.height
	if end > len(m.configs) {
		end = len(m.configs)
	}

	for i := m.offset; i < end; i++ {
		cfg := m.configs[i]

		cursor := "  "
		if i == m.cursor {
			cursor = "▸ "
		}

		namespace := cfg.Namespace
		if namespace == "" {
			namespace = "—"
		}

		line := fmt.Sprintf("%s%-30s %-16s %s", cursor, cfg.Name, namespace, listDimStyle.Render(cfg.Source))

		if i == m.cursor {
			b.WriteString(listSelectedStyle.Render(line))
		} else {
			b.WriteString(listNormalStyle.Render(line))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.cursor+1, len(m.configs))))

	return b.String()
}
