// Package stack implements the command dispatcher of the stackrun CLI.
//
// This package handles:
//   - The static operation registry (DefaultRegistry), mapping every
//     mode/action target to exactly one Operation
//   - Per-target command plans computed from the resolved configuration
//   - Sequential execution with "▶ Running:" trace lines, best-effort
//     steps, and abort on the first failing mandatory step (Dispatcher)
package stack
