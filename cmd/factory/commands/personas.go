package commands

import (
	"os"
	"strings"

	"github.com/biodoia/contentfactory/internal/agents"
	"github.com/biodoia/contentfactory/internal/factory"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// PersonasCmd rappresenta il comando personas
var PersonasCmd = &cobra.Command{
	Use:   "personas",
	Short: "List personas and pipeline stages",
	Long: `Show the built-in personas and the stages the configured platform and
tone selection produces.`,
	Example: `  # Show personas and the default stages
  factory personas

  # Show the stages for a custom config
  factory personas -c config.yaml`,
	RunE: runPersonas,
}

func runPersonas(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	pt := table.NewWriter()
	pt.SetOutputMirror(os.Stdout)
	pt.SetTitle("Personas")
	pt.AppendHeader(table.Row{"Key", "Role", "Goal", "Capabilities"})
	for _, p := range agents.ViralPersonas() {
		pt.AppendRow(table.Row{p.Key, p.Role, p.Goal, strings.Join(p.Capabilities, ", ")})
	}
	pt.SetStyle(table.StyleRounded)
	pt.Render()

	opts, err := factory.PipelineOptions(cfg.Pipeline)
	if err != nil {
		return err
	}
	tasks, err := opts.Tasks()
	if err != nil {
		return err
	}

	tt := table.NewWriter()
	tt.SetOutputMirror(os.Stdout)
	tt.SetTitle("Stages")
	tt.AppendHeader(table.Row{"#", "Name", "Persona", "Description"})
	for i, t := range tasks {
		tt.AppendRow(table.Row{i + 1, t.Name, t.Persona, t.Description})
	}
	tt.SetStyle(table.StyleRounded)
	tt.Render()

	return nil
}
