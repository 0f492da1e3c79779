// Package model defines the domain types and value objects for the
// stackrun CLI.
//
// This package contains pure data structures with no external dependencies:
// operation targets (Mode, Action, Target), database clear strategies,
// container information reconstructed from the Docker API, and the exit
// codes (ExitCode) carried by the custom error type (CLIError).
package model
