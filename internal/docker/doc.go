// Package docker talks to the Docker Engine API on behalf of the read-only
// stackrun commands.
//
// This package handles:
//   - Docker client initialization with automatic socket detection
//     (DOCKER_HOST, then the platform's default socket)
//   - Daemon reachability checks for the doctor command
//   - Listing the composition's containers by their compose project label
//
// Mutating operations never go through the API; they shell out to the
// docker CLI via internal/runner so the trace output shows exactly what ran.
package docker
