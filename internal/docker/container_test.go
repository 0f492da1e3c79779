package docker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/docker/docker/api/types/container"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/stackrun/internal/model"
)

type fakeLister struct {
	containers []container.Summary
	err        error

	gotOptions container.ListOptions
}

func (f *fakeLister) ContainerList(_ context.Context, options container.ListOptions) ([]container.Summary, error) {
	f.gotOptions = options
	return f.containers, f.err
}

// apiContainers decodes a ContainerList response body.
func apiContainers(t *testing.T, body string) []container.Summary {
	t.Helper()
	var out []container.Summary
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	return out
}

func TestListProjectContainers(t *testing.T) {
	lister := &fakeLister{containers: apiContainers(t, `[
		{
			"Id": "bbb222",
			"Names": ["/deploy-frontend-1"],
			"Image": "idoshahar/tahash-frontend:v0.1",
			"State": "exited",
			"Status": "Exited (0) 2 hours ago",
			"Labels": {"com.docker.compose.project": "deploy", "com.docker.compose.service": "frontend"}
		},
		{
			"Id": "aaa111",
			"Names": ["/mongodb"],
			"Image": "mongo:7",
			"State": "running",
			"Status": "Up 3 minutes",
			"Labels": {"com.docker.compose.project": "deploy", "com.docker.compose.service": "mongo"},
			"Ports": [
				{"IP": "0.0.0.0", "PrivatePort": 27017, "PublicPort": 27017, "Type": "tcp"},
				{"IP": "::", "PrivatePort": 27017, "PublicPort": 27017, "Type": "tcp"}
			]
		},
		{
			"Id": "ccc333",
			"Names": ["/deploy-backend-1"],
			"Image": "idoshahar/tahash-backend:v0.1",
			"State": "running",
			"Status": "Up 3 minutes",
			"Labels": {"com.docker.compose.project": "deploy", "com.docker.compose.service": "backend"},
			"Ports": [{"PrivatePort": 3000, "Type": "tcp"}]
		}
	]`)}

	infos, err := ListProjectContainers(context.Background(), lister, "deploy")
	require.NoError(t, err)

	assert.True(t, lister.gotOptions.All)
	assert.Equal(t, []string{LabelComposeProject + "=deploy"}, lister.gotOptions.Filters.Get("label"))

	require.Len(t, infos, 3)
	assert.Equal(t, []string{"backend", "frontend", "mongo"},
		[]string{infos[0].ServiceName, infos[1].ServiceName, infos[2].ServiceName})

	mongo := infos[2]
	assert.Equal(t, "mongodb", mongo.ContainerName)
	assert.Equal(t, "mongo:7", mongo.Image)
	assert.True(t, mongo.IsRunning())
	assert.Equal(t, []string{"27017->27017/tcp"}, mongo.Ports)

	assert.Equal(t, []string{"3000/tcp"}, infos[0].Ports)
	assert.False(t, infos[1].IsRunning())
	assert.Empty(t, infos[1].Ports)
}

func TestListProjectContainers_APIError(t *testing.T) {
	lister := &fakeLister{err: errors.New("Cannot connect to the Docker daemon")}

	_, err := ListProjectContainers(context.Background(), lister, "deploy")
	require.Error(t, err)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitDockerNotRunning, cliErr.Code)
}

func TestContainerToInfo_NoNames(t *testing.T) {
	info := containerToInfo(container.Summary{ID: "ddd444", State: "created"})
	assert.Equal(t, "ddd444", info.ContainerID)
	assert.Empty(t, info.ContainerName)
	assert.Empty(t, info.ServiceName)
}

func TestFormatPort(t *testing.T) {
	assert.Equal(t, "8080->80/tcp", formatPort(8080, 80, "tcp"))
	assert.Equal(t, "53/udp", formatPort(0, 53, "udp"))
	assert.Empty(t, formatPort(80, 80, "sctp-bogus/x"))
}
