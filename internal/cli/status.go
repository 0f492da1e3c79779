// status.go implements "stackrun status", which lists the composition's
// containers through the Docker Engine API. Containers are found by the
// compose project label, so the command also sees containers started by
// hand with "docker compose up".
package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shinji-kodama/stackrun/internal/docker"
	"github.com/shinji-kodama/stackrun/internal/model"
)

// NewStatusCommand creates the "status" command.
func NewStatusCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the containers of the composition",
		Long: `Show every container docker compose created for the project, running or
not, with its state and published ports.

Examples:
  stackrun status
  stackrun status --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runStatus(cmd.Context(), cmd.OutOrStdout())
		},
	}
	return requireConfig(cmd)
}

func (a *app) runStatus(ctx context.Context, w io.Writer) error {
	eng, err := a.newEngine()
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	if err := eng.Ping(ctx); err != nil {
		return err
	}

	containers, err := docker.ListProjectContainers(ctx, eng, a.cfg.ProjectName)
	if err != nil {
		return err
	}
	a.logger.Debug("listed project containers",
		zap.String("project", a.cfg.ProjectName),
		zap.Int("count", len(containers)))

	if a.flags.jsonOutput {
		return writeJSON(w, statusJSON{
			Project:    a.cfg.ProjectName,
			Containers: append(make([]model.ContainerInfo, 0, len(containers)), containers...),
		})
	}

	if len(containers) == 0 {
		fmt.Fprintf(w, "No containers found for project %q. Start them with \"stackrun all on\" or \"stackrun up\".\n",
			a.cfg.ProjectName)
		return nil
	}
	return renderStatusTable(w, containers)
}

// statusJSON is the --json output of the status command.
type statusJSON struct {
	Project    string                `json:"project"`
	Containers []model.ContainerInfo `json:"containers"`
}

func renderStatusTable(w io.Writer, containers []model.ContainerInfo) error {
	table := tablewriter.NewWriter(w)
	table.Header("Service", "Container", "Image", "State", "Status", "Ports")
	for _, c := range containers {
		if err := table.Append([]string{
			c.ServiceName,
			c.ContainerName,
			c.Image,
			c.State,
			c.Status,
			strings.Join(c.Ports, ", "),
		}); err != nil {
			return fmt.Errorf("failed to render status table: %w", err)
		}
	}
	return table.Render()
}
