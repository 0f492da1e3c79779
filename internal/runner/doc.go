// Package runner provides the external command execution layer for the
// stackrun CLI.
//
// This package handles:
//   - Rendering commands as shell-like trace lines (Command.String)
//   - Running child processes with inherited stdio (Exec)
//   - Mapping non-zero exit statuses to CommandError
//   - Previewing operations without side effects (DryRun)
package runner
