// Package runnertest provides a recording runner.Runner for tests.
package runnertest

import (
	"context"

	"github.com/shinji-kodama/stackrun/internal/runner"
)

// Recorder records every command it is asked to run. Commands are never
// executed. FailOn decides per command whether the run fails.
type Recorder struct {
	Calls []runner.Command

	// FailOn returns the exit status to simulate for cmd; zero means success.
	FailOn func(cmd runner.Command) int
}

// Run records cmd and reports the simulated outcome.
func (r *Recorder) Run(_ context.Context, cmd runner.Command) error {
	r.Calls = append(r.Calls, cmd)
	if r.FailOn == nil {
		return nil
	}
	if status := r.FailOn(cmd); status != 0 {
		return &runner.CommandError{Command: cmd, ExitCode: status}
	}
	return nil
}

// Lines returns the recorded commands rendered with Command.String.
func (r *Recorder) Lines() []string {
	lines := make([]string, 0, len(r.Calls))
	for _, c := range r.Calls {
		lines = append(lines, c.String())
	}
	return lines
}

// FailWhen returns a FailOn func that fails with status for commands whose
// rendered line equals line.
func FailWhen(line string, status int) func(runner.Command) int {
	return func(cmd runner.Command) int {
		if cmd.String() == line {
			return status
		}
		return 0
	}
}
