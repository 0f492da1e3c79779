package compose

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shinji-kodama/stackrun/internal/runner"
)

func TestCommandBuilders(t *testing.T) {
	file := File{Path: "/srv/deploy/docker_compose.yml"}
	named := File{Path: "/srv/deploy/docker_compose.yml", Project: "tahash"}

	tests := []struct {
		name     string
		cmd      runner.Command
		expected string
	}{
		{"up service", Up(file, "mongo"), "docker compose -f /srv/deploy/docker_compose.yml up -d mongo"},
		{"up all", Up(file), "docker compose -f /srv/deploy/docker_compose.yml up -d"},
		{"up build", UpBuild(file), "docker compose -f /srv/deploy/docker_compose.yml up -d --build"},
		{"down", Down(file, false), "docker compose -f /srv/deploy/docker_compose.yml down"},
		{"down volumes", Down(file, true), "docker compose -f /srv/deploy/docker_compose.yml down -v"},
		{"build", Build(file), "docker compose -f /srv/deploy/docker_compose.yml build"},
		{"up with project", Up(named, "mongo"), "docker compose -f /srv/deploy/docker_compose.yml -p tahash up -d mongo"},
		{"up build with project", UpBuild(named), "docker compose -f /srv/deploy/docker_compose.yml -p tahash up -d --build"},
		{"down with project", Down(named, true), "docker compose -f /srv/deploy/docker_compose.yml -p tahash down -v"},
		{"build with project", Build(named), "docker compose -f /srv/deploy/docker_compose.yml -p tahash build"},
		{"stop", StopContainer("mongodb"), "docker stop mongodb"},
		{"volume rm", RemoveVolume("deploy_mongo-data"), "docker volume rm deploy_mongo-data"},
		{"push", Push("idoshahar/tahash-backend:v0.1"), "docker push idoshahar/tahash-backend:v0.1"},
		{"pull", Pull("idoshahar/tahash-frontend:v0.1"), "docker pull idoshahar/tahash-frontend:v0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, DockerBinary, tt.cmd.Name)
			assert.Equal(t, tt.expected, tt.cmd.String())
		})
	}
}

// TestUp_DoesNotAliasArgs guards against builders sharing a backing array
// between calls.
func TestUp_DoesNotAliasArgs(t *testing.T) {
	a := Up(File{Path: "f.yml"}, "mongo")
	b := Up(File{Path: "f.yml"}, "backend")
	assert.Equal(t, "mongo", a.Args[len(a.Args)-1])
	assert.Equal(t, "backend", b.Args[len(b.Args)-1])
}
