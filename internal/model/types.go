// Package model defines the domain types for the stackrun CLI.
//
// Everything here is a plain value: targets addressed on the command line,
// the database clear strategies, runtime container information fetched from
// the Docker API, and the exit-code contract shared by every command.
package model

import (
	"fmt"
	"strings"
)

// Mode is the first token of the two-token grammar ("db" or "all").
// Single-token invocations (pull, up, down) use ModeNone.
//
// Mode is a string type rather than an int enum so values read naturally
// in JSON output and log fields, and so the command-line token converts to
// a Mode without a lookup table.
type Mode string

const (
	// ModeNone addresses the single-token commands.
	ModeNone Mode = ""

	// ModeDB scopes an action to the database service only.
	ModeDB Mode = "db"

	// ModeAll scopes an action to the whole composition.
	ModeAll Mode = "all"
)

// String returns the string representation of Mode. It implements
// fmt.Stringer so a Mode can be passed to zap.Stringer.
func (m Mode) String() string {
	return string(m)
}

// Action is the verb of an invocation, e.g. "on", "clear" or "pull".
//
// Which actions exist for which mode is decided by the operation registry,
// not here: an Action on its own is only a name.
type Action string

const (
	// Actions of the two-token grammar. "db" accepts on, stop and clear;
	// "all" accepts on, stop, build, push and build-push.
	ActionOn        Action = "on"
	ActionStop      Action = "stop"
	ActionClear     Action = "clear"
	ActionBuild     Action = "build"
	ActionPush      Action = "push"
	ActionBuildPush Action = "build-push"

	// Actions invoked as a single token, paired with ModeNone.
	ActionPull Action = "pull"
	ActionUp   Action = "up"
	ActionDown Action = "down"
)

// String returns the string representation of Action.
func (a Action) String() string {
	return string(a)
}

// Target identifies one operation in the registry.
// Targets are comparable and used directly as map keys.
type Target struct {
	// Mode is ModeNone for single-token commands.
	Mode Mode

	// Action is the verb; it is never empty for a registered target.
	Action Action
}

// NewTarget builds a Target from raw command-line tokens.
// Tokens are matched literally; no case folding is applied.
//
// "DB on" therefore yields a target the registry does not know, which the
// dispatcher reports as a usage error.
func NewTarget(mode, action string) Target {
	return Target{Mode: Mode(mode), Action: Action(action)}
}

// String renders the target the way a user would type it,
// e.g. "db clear" or "pull".
func (t Target) String() string {
	// Single-token commands have no mode to print.
	if t.Mode == ModeNone {
		return string(t.Action)
	}
	return string(t.Mode) + " " + string(t.Action)
}

// ClearStrategy selects how "db clear" wipes the database's data.
//
//   - ClearRemoveVolume stops the database container (best-effort) and
//     removes its named volume.
//   - ClearRecreate tears the whole composition down with its volumes and
//     brings it back up.
type ClearStrategy string

const (
	// ClearRemoveVolume is the default. Other services keep running, but
	// the volume removal fails while any container still uses the volume.
	ClearRemoveVolume ClearStrategy = "volume"

	// ClearRecreate restarts every service, and works whatever mounts the
	// database volume.
	ClearRecreate ClearStrategy = "recreate"
)

// String returns the string representation of ClearStrategy.
func (s ClearStrategy) String() string {
	return string(s)
}

// IsValid reports whether s is one of the predefined strategies. Values
// are compared exactly; ParseClearStrategy lowercases user input first.
func (s ClearStrategy) IsValid() bool {
	switch s {
	case ClearRemoveVolume, ClearRecreate:
		return true
	default:
		return false
	}
}

// ParseClearStrategy converts a string to a ClearStrategy.
// An empty string selects ClearRemoveVolume.
//
// Returns an error naming the valid values when s is not a known strategy.
// The config layer wraps it as a usage error.
func ParseClearStrategy(s string) (ClearStrategy, error) {
	// An unset config key arrives as "".
	if s == "" {
		return ClearRemoveVolume, nil
	}

	// Config values are case-insensitive: "Recreate" is accepted.
	strategy := ClearStrategy(strings.ToLower(s))
	if !strategy.IsValid() {
		return "", fmt.Errorf("invalid clear strategy: %q (valid: volume, recreate)", s)
	}
	return strategy, nil
}

// ContainerInfo holds runtime information about a Docker container
// belonging to the composition. It is fetched from the Docker API on
// demand and never persisted.
type ContainerInfo struct {
	// ContainerID is the Docker container identifier.
	ContainerID string `json:"containerId"`

	// ContainerName is the container name without the API's leading "/".
	ContainerName string `json:"containerName"`

	// ServiceName is the compose service the container was created for.
	ServiceName string `json:"serviceName,omitempty"`

	// Image is the image reference the container runs.
	Image string `json:"image"`

	// State is the short Docker state ("running", "exited", "created").
	State string `json:"state"`

	// Status is Docker's human-readable status ("Up 3 minutes").
	Status string `json:"status"`

	// Ports lists published ports as "hostPort->containerPort/proto".
	Ports []string `json:"ports,omitempty"`
}

// IsRunning reports whether the container's main process is running.
// Paused and restarting containers report false.
func (c ContainerInfo) IsRunning() bool {
	return c.State == "running"
}

// ExitCode defines the CLI exit-code contract. Scripts rely on these
// values to tell usage mistakes apart from failing external commands.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitUsageError covers malformed invocations and configuration
	// errors (missing compose descriptor, unreadable config file).
	ExitUsageError ExitCode = 1

	// ExitCommandFailed indicates an external command exited non-zero
	// or could not be started.
	ExitCommandFailed ExitCode = 2

	// ExitDockerNotRunning indicates the Docker daemon is not accessible.
	// Only commands that talk to the Engine API return it.
	ExitDockerNotRunning ExitCode = 3

	// ExitInterrupted is returned when SIGINT or SIGTERM cancelled the run.
	ExitInterrupted ExitCode = 130
)

// CLIError is an error that carries the exit code the process should
// terminate with.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error

	// ShowUsage asks the CLI layer to print the usage text after the message.
	ShowUsage bool
}

// Error satisfies the error interface. The underlying error, when present,
// is appended after a colon so the root cause reaches the user.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}

// NewUsageError creates a usage CLIError that prints the usage text. It is
// used for malformed invocations only; configuration problems use
// WrapCLIError with ExitUsageError and print no usage.
func NewUsageError(message string) *CLIError {
	return &CLIError{Code: ExitUsageError, Message: message, ShowUsage: true}
}
