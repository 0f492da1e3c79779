package stack

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/shinji-kodama/stackrun/internal/config"
	"github.com/shinji-kodama/stackrun/internal/model"
	"github.com/shinji-kodama/stackrun/internal/runner"
)

// TracePrefix starts the line printed before every external command.
const TracePrefix = "▶ Running: "

// Dispatcher runs registry operations through a Runner.
//
// Steps run strictly one after another. The first failing mandatory step
// aborts the operation; nothing already applied is rolled back.
type Dispatcher struct {
	cfg      *config.Config
	registry *Registry
	runner   runner.Runner
	out      io.Writer
	logger   *zap.Logger

	trace *color.Color
	done  *color.Color
}

// DispatcherOptions configure NewDispatcher.
type DispatcherOptions struct {
	// Out receives announcements, trace lines and done messages.
	Out io.Writer

	Logger *zap.Logger

	// NoColor disables ANSI colors regardless of the terminal.
	NoColor bool
}

// NewDispatcher returns a Dispatcher for cfg.
func NewDispatcher(cfg *config.Config, registry *Registry, r runner.Runner, opts DispatcherOptions) *Dispatcher {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	out := opts.Out
	if out == nil {
		out = io.Discard
	}

	trace := color.New(color.FgCyan)
	done := color.New(color.FgGreen)
	if opts.NoColor {
		trace.DisableColor()
		done.DisableColor()
	}

	return &Dispatcher{
		cfg:      cfg,
		registry: registry,
		runner:   r,
		out:      out,
		logger:   logger,
		trace:    trace,
		done:     done,
	}
}

// Dispatch runs the operation registered for t.
//
// Errors are *model.CLIError values: a usage error for an unknown target
// (no command is run), ExitCommandFailed when a mandatory step fails, and
// ExitInterrupted when ctx was cancelled.
func (d *Dispatcher) Dispatch(ctx context.Context, t model.Target) error {
	op, ok := d.registry.Lookup(t)
	if !ok {
		return d.unknownTarget(t)
	}

	steps := op.Plan(d.cfg)
	d.logger.Debug("dispatching operation",
		zap.Stringer("target", t),
		zap.Int("steps", len(steps)))

	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			return model.WrapCLIError(model.ExitInterrupted, fmt.Sprintf("%s interrupted", t), err)
		}

		if step.Announce != "" {
			fmt.Fprintln(d.out, step.Announce)
		}
		d.trace.Fprintln(d.out, TracePrefix+step.Command.String())

		err := d.runner.Run(ctx, step.Command)
		if err == nil {
			continue
		}

		if ctx.Err() != nil {
			return model.WrapCLIError(model.ExitInterrupted, fmt.Sprintf("%s interrupted", t), err)
		}

		if step.BestEffort {
			d.logger.Warn("best-effort step failed, continuing",
				zap.Int("step", i+1),
				zap.String("cmd", step.Command.String()),
				zap.Error(err))
			continue
		}

		return model.WrapCLIError(model.ExitCommandFailed, fmt.Sprintf("%s failed", t), err)
	}

	if op.Done != "" {
		d.done.Fprintln(d.out, op.Done)
	}
	return nil
}

func (d *Dispatcher) unknownTarget(t model.Target) error {
	actions := d.registry.Actions(t.Mode)
	if t.Mode == model.ModeNone || len(actions) == 0 {
		return model.NewUsageError(fmt.Sprintf("unknown command %q", t.String()))
	}
	return model.NewUsageError(fmt.Sprintf("unknown action %q for %q (valid: %s)",
		t.Action, t.Mode, strings.Join(actions, ", ")))
}
