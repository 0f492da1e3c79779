package cli

import (
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// actionJSON is one row of the --json output of the actions command.
type actionJSON struct {
	Command string `json:"command"`
	Mode    string `json:"mode,omitempty"`
	Action  string `json:"action"`
	Summary string `json:"summary"`
}

// NewActionsCommand creates the "actions" command, which lists every
// registered operation. It needs no configuration.
func NewActionsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "actions",
		Short: "List every stack operation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ops := a.registry.Operations()
			w := cmd.OutOrStdout()

			if a.flags.jsonOutput {
				rows := make([]actionJSON, 0, len(ops))
				for _, op := range ops {
					rows = append(rows, actionJSON{
						Command: "stackrun " + op.Target.String(),
						Mode:    op.Target.Mode.String(),
						Action:  op.Target.Action.String(),
						Summary: op.Summary,
					})
				}
				return writeJSON(w, rows)
			}

			table := tablewriter.NewWriter(w)
			table.Header("Command", "Summary")
			for _, op := range ops {
				if err := table.Append([]string{"stackrun " + op.Target.String(), op.Summary}); err != nil {
					return fmt.Errorf("failed to render actions table: %w", err)
				}
			}
			return table.Render()
		},
	}
}
