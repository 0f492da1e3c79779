// doctor.go implements "stackrun doctor", a preflight check of everything
// the stack commands depend on. Unlike the other commands it does not stop
// at the first problem: every check runs and is reported.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/shinji-kodama/stackrun/internal/config"
	"github.com/shinji-kodama/stackrun/internal/docker"
	"github.com/shinji-kodama/stackrun/internal/model"
	"github.com/shinji-kodama/stackrun/internal/port"
)

type checkStatus string

const (
	checkOK   checkStatus = "ok"
	checkWarn checkStatus = "warn"
	checkFail checkStatus = "fail"
)

type checkResult struct {
	Name   string      `json:"name"`
	Status checkStatus `json:"status"`
	Detail string      `json:"detail"`
}

// doctorReport collects check results in the order they ran.
type doctorReport struct {
	Checks []checkResult `json:"checks"`

	dockerFailed bool
}

func (r *doctorReport) add(name string, status checkStatus, format string, args ...any) {
	r.Checks = append(r.Checks, checkResult{Name: name, Status: status, Detail: fmt.Sprintf(format, args...)})
}

func (r *doctorReport) failures() int {
	n := 0
	for _, c := range r.Checks {
		if c.Status == checkFail {
			n++
		}
	}
	return n
}

// NewDoctorCommand creates the "doctor" command.
func NewDoctorCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the configuration, the compose file, Docker and host ports",
		Long: `Run every preflight check and report all problems at once:

  - the configuration resolves and the compose file exists and parses
  - the database service and volume are declared in the compose file
  - the backend directory exists
  - the Docker daemon is reachable
  - no other process holds a host port the composition publishes

Exits 0 when every check passes, 3 when Docker is not reachable, and 1 for
any other failure.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report := a.runDoctor(cmd)

			var err error
			if a.flags.jsonOutput {
				err = writeJSON(cmd.OutOrStdout(), report)
			} else {
				printDoctorReport(cmd.OutOrStdout(), report)
			}
			if err != nil {
				return err
			}
			return doctorResult(report)
		},
	}
}

func (a *app) runDoctor(cmd *cobra.Command) *doctorReport {
	report := &doctorReport{}

	if err := a.loadConfig(cmd); err != nil {
		report.add("configuration", checkFail, "%s", err)
	} else {
		checkDescriptor(report, a.cfg)
	}

	running := a.checkDocker(cmd.Context(), report)

	if a.cfg != nil {
		checkPorts(report, a.cfg, running)
	}
	return report
}

func checkDescriptor(report *doctorReport, cfg *config.Config) {
	desc := cfg.Descriptor
	source := "defaults"
	if cfg.File != "" {
		source = cfg.File
	}
	report.add("configuration", checkOK, "loaded from %s", source)
	report.add("compose file", checkOK, "%s (%d services, project %q)",
		cfg.ComposeFile, len(desc.Services), cfg.ProjectName)

	svc, ok := desc.Services[cfg.Database.Service]
	switch {
	case !ok:
		report.add("database service", checkFail, "service %q is not declared in the compose file", cfg.Database.Service)
	case svc.ContainerName != "" && svc.ContainerName != cfg.Database.Container:
		report.add("database service", checkWarn, "compose names the container %q but db stop and db clear use %q",
			svc.ContainerName, cfg.Database.Container)
	default:
		report.add("database service", checkOK, "service %q, container %q", cfg.Database.Service, cfg.Database.Container)
	}

	checkDatabaseVolume(report, cfg)

	if services := desc.BuildServices(); len(services) == 0 {
		report.add("build services", checkWarn, "no service declares a build section; all build only runs the backend build")
	} else {
		report.add("build services", checkOK, "all build rebuilds %s", strings.Join(services, ", "))
	}

	if info, err := os.Stat(cfg.Backend.Dir); err != nil || !info.IsDir() {
		report.add("backend directory", checkFail, "%s is not a directory", cfg.Backend.Dir)
	} else {
		report.add("backend directory", checkOK, "%s", cfg.Backend.Dir)
	}
}

// checkDatabaseVolume reports the volume db clear acts on. An external
// volume is shared beyond this composition: down -v leaves it in place, and
// removing it by name wipes data other projects may use, so it is always a
// warning.
func checkDatabaseVolume(report *doctorReport, cfg *config.Config) {
	desc := cfg.Descriptor
	volume := cfg.Database.Volume

	if desc.IsExternalVolume(volume) {
		name := desc.VolumeName(cfg.ProjectName, volume)
		if cfg.Database.ClearStrategy == model.ClearRemoveVolume {
			report.add("database volume", checkWarn, "volume %q is external; db clear removes %s, which compose does not manage", volume, name)
		} else {
			report.add("database volume", checkWarn, "volume %q is external; db clear (down -v) leaves %s in place", volume, name)
		}
		return
	}

	if cfg.Database.ClearStrategy != model.ClearRemoveVolume {
		return
	}
	if _, declared := desc.Volumes[volume]; !declared {
		report.add("database volume", checkWarn, "volume %q is not declared in the compose file", volume)
		return
	}
	report.add("database volume", checkOK, "db clear removes %s", desc.VolumeName(cfg.ProjectName, volume))
}

// checkDocker pings the daemon and returns the services whose containers
// are running, which hold their own published ports.
func (a *app) checkDocker(ctx context.Context, report *doctorReport) map[string]bool {
	eng, err := a.newEngine()
	if err == nil {
		defer func() { _ = eng.Close() }()
		err = eng.Ping(ctx)
	}
	if err != nil {
		report.dockerFailed = true
		report.add("docker", checkFail, "%s", err)
		return nil
	}

	version, err := eng.ServerVersion(ctx)
	if err != nil {
		report.dockerFailed = true
		report.add("docker", checkFail, "%s", err)
		return nil
	}
	report.add("docker", checkOK, "Docker Engine %s (API %s)", version.Version, version.APIVersion)

	if a.cfg == nil {
		return nil
	}
	containers, err := docker.ListProjectContainers(ctx, eng, a.cfg.ProjectName)
	if err != nil {
		report.add("containers", checkWarn, "%s", err)
		return nil
	}
	running := make(map[string]bool)
	for _, c := range containers {
		if c.IsRunning() {
			running[c.ServiceName] = true
		}
	}
	return running
}

func checkPorts(report *doctorReport, cfg *config.Config, running map[string]bool) {
	conflicts := port.NewScanner().Conflicts(cfg.Descriptor, running)
	if len(conflicts) == 0 {
		report.add("host ports", checkOK, "all published ports are free")
		return
	}
	for _, c := range conflicts {
		report.add("host ports", checkFail, "port %s of service %q is already in use", c.Mapping, c.Service)
	}
}

func printDoctorReport(w io.Writer, report *doctorReport) {
	marks := map[checkStatus]string{
		checkOK:   color.GreenString("✓"),
		checkWarn: color.YellowString("!"),
		checkFail: color.RedString("✗"),
	}
	for _, c := range report.Checks {
		fmt.Fprintf(w, "%s %-18s %s\n", marks[c.Status], c.Name, c.Detail)
	}
}

func doctorResult(report *doctorReport) error {
	n := report.failures()
	if n == 0 {
		return nil
	}
	code := model.ExitUsageError
	if report.dockerFailed {
		code = model.ExitDockerNotRunning
	}
	return model.NewCLIError(code, fmt.Sprintf("doctor found %d problem(s)", n))
}
