// Package cli implements the cobra-based CLI commands for stackrun.
//
// The stack commands (db, all, pull, up, down) are defined in stack.go and
// all go through the stack dispatcher. The read-only commands (status,
// doctor, config, actions) each live in their own file. This file defines
// the root command, the global flags, and the mapping from errors to exit
// codes.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/docker/docker/api/types"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shinji-kodama/stackrun/internal/config"
	"github.com/shinji-kodama/stackrun/internal/docker"
	"github.com/shinji-kodama/stackrun/internal/logging"
	"github.com/shinji-kodama/stackrun/internal/model"
	"github.com/shinji-kodama/stackrun/internal/runner"
	"github.com/shinji-kodama/stackrun/internal/stack"
)

// Version, Commit, and Date are set at build time via ldflags from the
// main package.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// annotationRequiresConfig marks commands that need the resolved
// configuration before they run.
const annotationRequiresConfig = "stackrun/requires-config"

// globalFlags are the persistent flags of the root command.
type globalFlags struct {
	configFile  string
	composeFile string
	projectName string

	verbose      bool
	jsonOutput   bool
	dryRun       bool
	pullFrontend bool
	noColor      bool
}

// app is the state shared by every command of one root command instance.
// It is filled in by the root's PersistentPreRunE.
type app struct {
	flags    globalFlags
	workDir  string
	registry *stack.Registry

	cfg    *config.Config
	logger *zap.Logger

	// runner overrides the command runner; nil selects runner.Exec.
	runner runner.Runner

	// newEngine connects to the Docker Engine API.
	newEngine func() (engine, error)
}

// engine is the part of the Docker client used by status and doctor.
type engine interface {
	docker.ContainerLister
	Ping(ctx context.Context) error
	ServerVersion(ctx context.Context) (types.Version, error)
	Close() error
}

// Option customizes a root command. Options exist for tests and embedding;
// the stackrun binary uses none.
type Option func(*app)

// WithRunner replaces the process runner used by the stack commands.
func WithRunner(r runner.Runner) Option {
	return func(a *app) { a.runner = r }
}

// WithWorkDir sets the directory configuration paths are resolved against.
func WithWorkDir(dir string) Option {
	return func(a *app) { a.workDir = dir }
}

// withEngine replaces the Docker Engine API connection.
func withEngine(newEngine func() (engine, error)) Option {
	return func(a *app) { a.newEngine = newEngine }
}

// NewRootCommand creates the root command with every subcommand attached.
//
// The root command itself only prints usage; invoking it without a
// subcommand is a usage error.
func NewRootCommand(opts ...Option) *cobra.Command {
	a := &app{
		registry:  stack.DefaultRegistry(),
		newEngine: newDockerEngine,
	}
	for _, opt := range opts {
		opt(a)
	}

	rootCmd := &cobra.Command{
		Use:   "stackrun",
		Short: "Run the database, backend and frontend stack with docker compose",
		Long: `stackrun drives the project's docker compose stack: it starts and stops
the database or the whole composition, builds the backend, and builds,
pushes and pulls the backend and frontend images.

Every external command is echoed as a "▶ Running:" line before it runs.`,

		// Usage is printed by Run for usage errors only.
		SilenceUsage:  true,
		SilenceErrors: true,

		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),

		PersistentPreRunE: a.preRun,
		RunE: func(cmd *cobra.Command, args []string) error {
			return model.NewUsageError("a command is required")
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&a.flags.configFile, "config", "", "Config file (default: ./stackrun.{yaml,yml,json,jsonc,toml})")
	pf.StringVar(&a.flags.composeFile, "compose-file", config.DefaultComposeFile, "Docker compose file")
	pf.StringVar(&a.flags.projectName, "project-name", "", "Compose project name (default: derived like docker compose)")
	pf.BoolVarP(&a.flags.verbose, "verbose", "v", false, "Enable verbose output")
	pf.BoolVar(&a.flags.jsonOutput, "json", false, "Output in JSON format")
	pf.BoolVar(&a.flags.dryRun, "dry-run", false, "Print the commands without running them")
	pf.BoolVar(&a.flags.pullFrontend, "pull-frontend", false, "Make pull fetch the frontend image instead of the backend image twice")
	pf.BoolVar(&a.flags.noColor, "no-color", false, "Disable colored output")

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return model.NewUsageError(err.Error())
	})

	rootCmd.AddCommand(newModeCommand(a, model.ModeDB, "Manage the database service"))
	rootCmd.AddCommand(newModeCommand(a, model.ModeAll, "Manage the whole composition"))
	rootCmd.AddCommand(newSingleCommand(a, model.ActionPull))
	rootCmd.AddCommand(newSingleCommand(a, model.ActionUp))
	rootCmd.AddCommand(newSingleCommand(a, model.ActionDown))
	rootCmd.AddCommand(NewStatusCommand(a))
	rootCmd.AddCommand(NewDoctorCommand(a))
	rootCmd.AddCommand(NewConfigCommand(a))
	rootCmd.AddCommand(NewActionsCommand(a))

	return rootCmd
}

// preRun sets up logging and, for commands that need it, loads the
// configuration. cobra validates positional arguments before this runs.
func (a *app) preRun(cmd *cobra.Command, _ []string) error {
	if a.flags.noColor {
		color.NoColor = true
	}
	a.logger = logging.New(cmd.ErrOrStderr(), logging.Options{
		Verbose: a.flags.verbose,
		Color:   !color.NoColor,
	})

	if cmd.Annotations[annotationRequiresConfig] != "true" {
		return nil
	}
	return a.loadConfig(cmd)
}

func (a *app) loadConfig(cmd *cobra.Command) error {
	cfg, err := config.Load(config.Options{
		WorkDir:    a.workDir,
		ConfigFile: a.flags.configFile,
		Flags:      cmd.Flags(),
	})
	if err != nil {
		return err
	}
	a.cfg = cfg

	a.logger.Debug("configuration resolved",
		zap.String("configFile", cfg.File),
		zap.String("composeFile", cfg.ComposeFile),
		zap.String("project", cfg.ProjectName),
		zap.String("imagesVersion", cfg.Images.Version))
	return nil
}

// commandRunner returns the runner the stack commands use.
func (a *app) commandRunner(cmd *cobra.Command) runner.Runner {
	switch {
	case a.flags.dryRun:
		return runner.DryRun{}
	case a.runner != nil:
		return a.runner
	default:
		e := runner.NewExec(cmd.OutOrStdout(), cmd.ErrOrStderr(), a.logger)
		e.Stdin = cmd.InOrStdin()
		return e
	}
}

func newDockerEngine() (engine, error) {
	c, err := docker.NewClient()
	if err != nil {
		return nil, err
	}
	return c, nil
}

func requireConfig(cmd *cobra.Command) *cobra.Command {
	if cmd.Annotations == nil {
		cmd.Annotations = map[string]string{}
	}
	cmd.Annotations[annotationRequiresConfig] = "true"
	return cmd
}

// Execute runs the root command and exits the process with the resulting
// exit code. SIGINT and SIGTERM cancel the command's context.
func Execute(rootCmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := Run(ctx, rootCmd)
	stop()
	os.Exit(int(code))
}

// Run executes rootCmd, reports any error on its error writer, and returns
// the exit code. CLIError values carry their own code; cobra's own errors
// (unknown command, bad flag) are usage errors.
func Run(ctx context.Context, rootCmd *cobra.Command) model.ExitCode {
	cmd, err := rootCmd.ExecuteContextC(ctx)
	if err == nil {
		return model.ExitSuccess
	}
	if cmd == nil {
		cmd = rootCmd
	}

	var cliErr *model.CLIError
	switch {
	case errors.As(err, &cliErr):
	case ctx.Err() != nil:
		cliErr = model.WrapCLIError(model.ExitInterrupted, "interrupted", err)
	default:
		cliErr = &model.CLIError{Code: model.ExitUsageError, Message: err.Error(), ShowUsage: true}
	}

	jsonOutput, _ := rootCmd.PersistentFlags().GetBool("json")
	printError(cmd, cliErr, jsonOutput)
	return cliErr.Code
}

// printError writes the error to the command's error writer, as text
// followed by the usage for usage errors, or as a JSON object.
func printError(cmd *cobra.Command, cliErr *model.CLIError, jsonOutput bool) {
	w := cmd.ErrOrStderr()

	if jsonOutput {
		detail := ""
		if cliErr.Err != nil {
			detail = cliErr.Err.Error()
		}
		writeJSON(w, map[string]any{
			"error": map[string]any{
				"code":    int(cliErr.Code),
				"message": cliErr.Message,
				"detail":  detail,
			},
		})
		return
	}

	fmt.Fprintf(w, "Error: %s\n", cliErr.Error())
	if cliErr.ShowUsage {
		fmt.Fprintln(w)
		fmt.Fprint(w, cmd.UsageString())
	}
}

// writeJSON writes v as indented JSON followed by a newline.
func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
