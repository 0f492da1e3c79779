package docker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"

	"github.com/shinji-kodama/stackrun/internal/model"
)

// defaultPingTimeout is the maximum duration to wait for the Docker daemon
// to answer a single Ping. Docker Desktop on macOS can take a few seconds
// to respond after the machine wakes up, so the bound is kept generous.
const defaultPingTimeout = 5 * time.Second

// Client wraps the Docker Engine SDK client. It detects the Docker socket
// on Linux, macOS and Windows, and exposes only the calls stackrun makes:
// Ping, ServerVersion and ContainerList.
//
// Usage:
//
//	c, err := docker.NewClient()
//	if err != nil { /* exit 3 */ }
//	defer c.Close()
//	if err := c.Ping(ctx); err != nil { /* daemon down */ }
type Client struct {
	// inner is the underlying Docker SDK client. It is wrapped rather than
	// embedded so the exposed API stays limited to the methods above.
	inner *client.Client
}

// NewClient creates a client for DOCKER_HOST when it is set, otherwise for
// the first default socket that exists on this platform.
//
// The detection order is:
//  1. DOCKER_HOST, used as-is
//  2. /var/run/docker.sock on every unix platform
//  3. ~/.docker/run/docker.sock on macOS
//  4. $XDG_RUNTIME_DIR/docker.sock and ~/.docker/desktop/docker.sock on
//     Linux (rootless Docker and Docker Desktop for Linux)
//  5. npipe:////./pipe/docker_engine on Windows
//
// Returns a model.CLIError with ExitDockerNotRunning when no socket is
// found or the client cannot be created.
func NewClient() (*Client, error) {
	// Step 1: an explicit DOCKER_HOST always wins. The SDK parses the
	// connection string, so tcp://, ssh:// and unix:// all work.
	if host := os.Getenv("DOCKER_HOST"); host != "" {
		return newClientWithHost(host)
	}

	// Step 2: look for a socket file in the platform's default locations.
	host, err := detectDockerHost(runtime.GOOS)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitDockerNotRunning, "Docker socket not found", err)
	}
	return newClientWithHost(host)
}

// newClientWithHost creates a Docker client connected to host, which must
// be a Docker connection string such as "unix:///var/run/docker.sock" or
// "npipe:////./pipe/docker_engine".
//
// Creating the client does not contact the daemon. A missing or stopped
// daemon is only noticed by the first API call, usually Ping.
func newClientWithHost(host string) (*Client, error) {
	// client.WithHost sets the daemon address. WithAPIVersionNegotiation
	// lowers the client's API version to whatever the daemon supports on
	// the first request, so older engines keep working.
	c, err := client.NewClientWithOpts(
		client.WithHost(host),
		client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("failed to create Docker client for host %q", host),
			err,
		)
	}
	return &Client{inner: c}, nil
}

// socketCandidates lists the unix socket paths checked for goos, most
// preferred first. home is the user's home directory; when it is empty
// only the system socket is returned.
//
// goos and home are parameters so every platform's list can be tested on
// any machine.
func socketCandidates(goos, home string) []string {
	// The system-wide socket comes first on every platform. Docker Desktop
	// on macOS also links its socket here when allowed to.
	paths := []string{"/var/run/docker.sock"}
	if home == "" {
		return paths
	}

	switch goos {
	case "darwin":
		// Newer Docker Desktop releases keep the socket in the user's home
		// when the /var/run symlink was not created.
		paths = append(paths, filepath.Join(home, ".docker", "run", "docker.sock"))
	case "linux":
		// Rootless Docker listens under the user's runtime directory.
		if xdg := os.Getenv("XDG_RUNTIME_DIR"); xdg != "" {
			paths = append(paths, filepath.Join(xdg, "docker.sock"))
		}
		// Docker Desktop for Linux runs its own VM with a per-user socket.
		paths = append(paths, filepath.Join(home, ".docker", "desktop", "docker.sock"))
	}
	return paths
}

// detectDockerHost returns the Docker host URI for goos.
//
// On unix platforms it returns the first candidate socket that exists on
// the filesystem. Existence is checked with os.Stat rather than by
// connecting: whether the daemon actually answers is Ping's job.
//
// On Windows it returns the fixed Docker Desktop named pipe without
// checking it, since os.Stat cannot see named pipes. A missing pipe
// surfaces as a Ping failure instead.
func detectDockerHost(goos string) (string, error) {
	if goos == "windows" {
		return "npipe:////./pipe/docker_engine", nil
	}

	// A missing home directory only drops the per-user candidates.
	home, _ := os.UserHomeDir()
	paths := socketCandidates(goos, home)
	for _, path := range paths {
		// A successful Stat means the socket file exists, not that a daemon
		// is listening on it.
		if _, err := os.Stat(path); err == nil {
			return "unix://" + path, nil
		}
	}
	return "", fmt.Errorf("no Docker socket at any of %v; is Docker running?", paths)
}

// Ping verifies that the Docker daemon is reachable. It sends a lightweight
// ping request and waits at most defaultPingTimeout for the answer, even
// when ctx has no deadline.
//
// Returns a model.CLIError with ExitDockerNotRunning when the daemon does
// not respond or returns an error.
func (c *Client) Ping(ctx context.Context) error {
	// A paused Docker Desktop accepts the connection but never answers, so
	// the request needs its own deadline.
	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()

	if _, err := c.inner.Ping(pingCtx); err != nil {
		return model.WrapCLIError(
			model.ExitDockerNotRunning,
			"Docker daemon is not responding; is Docker running?",
			err,
		)
	}
	return nil
}

// ServerVersion returns the Engine version reported by the daemon. doctor
// shows it next to the API version the client negotiated.
//
// Returns a model.CLIError with ExitDockerNotRunning on failure.
func (c *Client) ServerVersion(ctx context.Context) (types.Version, error) {
	v, err := c.inner.ServerVersion(ctx)
	if err != nil {
		return types.Version{}, model.WrapCLIError(
			model.ExitDockerNotRunning,
			"failed to query Docker version",
			err,
		)
	}
	return v, nil
}

// ContainerList implements ContainerLister by passing the request straight
// to the SDK. Errors are returned unwrapped; ListProjectContainers adds the
// context.
func (c *Client) ContainerList(ctx context.Context, options container.ListOptions) ([]container.Summary, error) {
	return c.inner.ContainerList(ctx, options)
}

// Close releases the resources held by the client, typically via defer
// right after NewClient. It is safe to call on a Client whose inner
// client was never created.
func (c *Client) Close() error {
	if c.inner != nil {
		return c.inner.Close()
	}
	return nil
}
