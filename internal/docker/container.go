// container.go lists the containers of the composition. Compose labels every
// container it creates with its project and service names, so the running
// state of the stack can be read back from the Engine API without parsing
// "docker compose ps" output.
package docker

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/go-connections/nat"

	"github.com/shinji-kodama/stackrun/internal/model"
)

// Compose labels set on every container created by docker compose.
const (
	LabelComposeProject = "com.docker.compose.project"
	LabelComposeService = "com.docker.compose.service"
)

// ContainerLister is the part of the Engine API ListProjectContainers needs.
// *client.Client satisfies it.
type ContainerLister interface {
	ContainerList(ctx context.Context, options container.ListOptions) ([]container.Summary, error)
}

// ListProjectContainers returns every container, stopped ones included,
// that compose created for project. Results are sorted by service name,
// then container name.
func ListProjectContainers(ctx context.Context, api ContainerLister, project string) ([]model.ContainerInfo, error) {
	containers, err := api.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("label", LabelComposeProject+"="+project)),
	})
	if err != nil {
		return nil, model.WrapCLIError(
			model.ExitDockerNotRunning,
			"failed to list Docker containers",
			err,
		)
	}

	result := make([]model.ContainerInfo, 0, len(containers))
	for _, c := range containers {
		result = append(result, containerToInfo(c))
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].ServiceName != result[j].ServiceName {
			return result[i].ServiceName < result[j].ServiceName
		}
		return result[i].ContainerName < result[j].ContainerName
	})
	return result, nil
}

// containerToInfo maps an API summary to the domain model. The API reports
// names with a leading "/", which is stripped.
func containerToInfo(c container.Summary) model.ContainerInfo {
	name := ""
	if len(c.Names) > 0 {
		name = strings.TrimPrefix(c.Names[0], "/")
	}

	var ports []string
	seen := make(map[string]bool)
	for _, p := range c.Ports {
		s := formatPort(p.PublicPort, p.PrivatePort, p.Type)
		// Docker lists a binding once per address family.
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		ports = append(ports, s)
	}
	sort.Strings(ports)

	return model.ContainerInfo{
		ContainerID:   c.ID,
		ContainerName: name,
		ServiceName:   c.Labels[LabelComposeService],
		Image:         c.Image,
		State:         string(c.State),
		Status:        c.Status,
		Ports:         ports,
	}
}

// formatPort renders a binding as "8080->80/tcp", or "80/tcp" when the
// port is exposed but not published.
func formatPort(public, private uint16, proto string) string {
	port, err := nat.NewPort(proto, strconv.Itoa(int(private)))
	if err != nil {
		return ""
	}
	if public == 0 {
		return string(port)
	}
	return fmt.Sprintf("%d->%s", public, port)
}
