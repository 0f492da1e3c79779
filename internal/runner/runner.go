// Package runner executes external commands on behalf of stack operations.
//
// Every operation in stackrun is a sequence of invocations of external
// programs (docker, npm). This package hides os/exec behind the narrow
// Runner interface so the dispatcher can be exercised with a fake in tests.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Command describes a single external invocation.
type Command struct {
	// Name is the program to execute, resolved through PATH.
	Name string

	// Args are passed to the program verbatim, without shell expansion.
	Args []string

	// Dir is the working directory. Empty means the current directory.
	Dir string

	// Env holds extra KEY=VALUE pairs appended to the inherited environment.
	Env []string
}

// String renders the command as a shell-like line for trace output.
// A non-empty Dir is rendered as a "cd <dir> && " prefix.
func (c Command) String() string {
	var b strings.Builder
	if c.Dir != "" {
		b.WriteString("cd ")
		b.WriteString(quote(c.Dir))
		b.WriteString(" && ")
	}
	for _, kv := range c.Env {
		b.WriteString(quote(kv))
		b.WriteByte(' ')
	}
	b.WriteString(quote(c.Name))
	for _, a := range c.Args {
		b.WriteByte(' ')
		b.WriteString(quote(a))
	}
	return b.String()
}

// quote wraps s in single quotes when it contains characters a POSIX
// shell would interpret. Plain words are returned unchanged.
func quote(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, " \t\n'\"\\$`|&;<>()*?[]{}!#~") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// Runner runs a command to completion.
//
// Implementations must not return before the child process has exited.
// A non-zero exit status is reported as *CommandError.
type Runner interface {
	Run(ctx context.Context, cmd Command) error
}

// CommandError reports an external command that could not be started
// or exited with a non-zero status.
type CommandError struct {
	Command Command

	// ExitCode is the child's exit status, or -1 when it never started
	// or was killed by a signal.
	ExitCode int

	Err error
}

// Error satisfies the error interface.
func (e *CommandError) Error() string {
	if e.ExitCode >= 0 {
		return fmt.Sprintf("command %q exited with status %d", e.Command.String(), e.ExitCode)
	}
	return fmt.Sprintf("command %q failed: %v", e.Command.String(), e.Err)
}

// Unwrap returns the underlying os/exec error.
func (e *CommandError) Unwrap() error {
	return e.Err
}

// waitDelay bounds how long Run waits for the child's stdio to drain after
// the context kills it.
const waitDelay = 5 * time.Second

// Exec runs commands as child processes with os/exec. The child's stdout
// and stderr are streamed to Stdout and Stderr as they are produced.
type Exec struct {
	// Stdin is connected to the child's standard input. Nil gives the
	// child an empty input (the null device).
	Stdin io.Reader

	Stdout io.Writer
	Stderr io.Writer
	Logger *zap.Logger
}

// NewExec returns an Exec that streams child output to the given writers.
func NewExec(stdout, stderr io.Writer, logger *zap.Logger) *Exec {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exec{Stdout: stdout, Stderr: stderr, Logger: logger}
}

// Run starts the command and waits for it to exit.
//
// The child is killed if ctx is cancelled; Run still waits for it before
// returning, so no process outlives the call.
func (e *Exec) Run(ctx context.Context, c Command) error {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	// An *os.File such as os.Stdin is handed to the child directly, so
	// prompts from docker login or npm reach the terminal.
	cmd.Stdin = e.Stdin
	cmd.Stdout = e.Stdout
	cmd.Stderr = e.Stderr
	cmd.WaitDelay = waitDelay
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}

	start := time.Now()
	err := cmd.Run()
	e.Logger.Debug("command finished",
		zap.String("cmd", c.String()),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err))
	if err == nil {
		return nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return &CommandError{Command: c, ExitCode: -1, Err: errors.Join(ctxErr, err)}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &CommandError{Command: c, ExitCode: exitErr.ExitCode(), Err: err}
	}
	return &CommandError{Command: c, ExitCode: -1, Err: err}
}

// DryRun accepts every command without executing anything.
// The dispatcher still prints its trace lines, which makes DryRun useful
// for previewing what an operation would do.
type DryRun struct{}

// Run returns nil immediately.
func (DryRun) Run(context.Context, Command) error {
	return nil
}
