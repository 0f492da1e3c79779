// stack.go defines the commands that run stack operations: the two-token
// "db <action>" and "all <action>" forms and the single-token pull, up and
// down commands. Every one of them resolves to a model.Target and hands it
// to the stack dispatcher.
package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/stackrun/internal/model"
	"github.com/shinji-kodama/stackrun/internal/stack"
)

// newModeCommand creates the "db" or "all" command. It takes exactly one
// positional action, which must be registered for mode.
func newModeCommand(a *app, mode model.Mode, short string) *cobra.Command {
	actions := a.registry.Actions(mode)

	var examples []string
	for _, action := range actions {
		examples = append(examples, fmt.Sprintf("  stackrun %s %s", mode, action))
	}

	cmd := &cobra.Command{
		Use:       fmt.Sprintf("%s <%s>", mode, strings.Join(actions, "|")),
		Short:     short,
		Long:      short + ".\n\nExamples:\n" + strings.Join(examples, "\n"),
		ValidArgs: actions,
		Args:      modeArgs(a, mode),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.dispatch(cmd, model.NewTarget(string(mode), args[0]))
		},
	}
	return requireConfig(cmd)
}

// modeArgs checks the action count and the action itself before any
// configuration is loaded, so a bad invocation never runs a command.
func modeArgs(a *app, mode model.Mode) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		actions := a.registry.Actions(mode)
		if len(args) != 1 {
			return model.NewUsageError(fmt.Sprintf("%q takes exactly one action (%s), got %d",
				mode, strings.Join(actions, ", "), len(args)))
		}
		if _, ok := a.registry.Lookup(model.NewTarget(string(mode), args[0])); !ok {
			return model.NewUsageError(fmt.Sprintf("unknown action %q for %q (valid: %s)",
				args[0], mode, strings.Join(actions, ", ")))
		}
		return nil
	}
}

// newSingleCommand creates a single-token command such as "pull".
func newSingleCommand(a *app, action model.Action) *cobra.Command {
	target := model.Target{Mode: model.ModeNone, Action: action}
	op, _ := a.registry.Lookup(target)

	cmd := &cobra.Command{
		Use:   string(action),
		Short: capitalize(op.Summary),
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return model.NewUsageError(fmt.Sprintf("%q takes no arguments, got %d", action, len(args)))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.dispatch(cmd, target)
		},
	}
	return requireConfig(cmd)
}

// dispatch runs target through a dispatcher bound to the command's output.
func (a *app) dispatch(cmd *cobra.Command, target model.Target) error {
	d := stack.NewDispatcher(a.cfg, a.registry, a.commandRunner(cmd), stack.DispatcherOptions{
		Out:     cmd.OutOrStdout(),
		Logger:  a.logger,
		NoColor: a.flags.noColor,
	})
	return d.Dispatch(cmd.Context(), target)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
