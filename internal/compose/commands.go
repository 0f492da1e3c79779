package compose

import (
	"github.com/shinji-kodama/stackrun/internal/runner"
)

// DockerBinary is the docker CLI executable. Compose is invoked as the
// "docker compose" plugin subcommand, not the legacy docker-compose binary.
const DockerBinary = "docker"

// File addresses one compose project: the descriptor path and, when it
// was set explicitly, the project name passed with -p. An empty Project
// lets docker compose derive the name itself.
type File struct {
	Path    string
	Project string
}

// composeArgs builds "compose -f <file> [-p <project>] <sub...>".
//
// The project name must reach docker compose whenever stackrun derives
// resource names from it; otherwise "db clear" would target a volume
// compose never created.
func composeArgs(f File, sub ...string) []string {
	args := make([]string, 0, len(sub)+5)
	args = append(args, "compose", "-f", f.Path)
	if f.Project != "" {
		args = append(args, "-p", f.Project)
	}
	return append(args, sub...)
}

// Up brings services up in detached mode. With no services the whole
// composition is started.
func Up(file File, services ...string) runner.Command {
	args := composeArgs(file, "up", "-d")
	return runner.Command{Name: DockerBinary, Args: append(args, services...)}
}

// UpBuild rebuilds images and brings the whole composition up.
func UpBuild(file File) runner.Command {
	return runner.Command{Name: DockerBinary, Args: composeArgs(file, "up", "-d", "--build")}
}

// Down stops and removes the composition's containers and networks.
// With removeVolumes the named volumes declared in the file go too.
func Down(file File, removeVolumes bool) runner.Command {
	args := composeArgs(file, "down")
	if removeVolumes {
		args = append(args, "-v")
	}
	return runner.Command{Name: DockerBinary, Args: args}
}

// Build builds the images of every service with a build section.
func Build(file File) runner.Command {
	return runner.Command{Name: DockerBinary, Args: composeArgs(file, "build")}
}

// StopContainer stops a container by name.
func StopContainer(name string) runner.Command {
	return runner.Command{Name: DockerBinary, Args: []string{"stop", name}}
}

// RemoveVolume removes a named volume.
func RemoveVolume(name string) runner.Command {
	return runner.Command{Name: DockerBinary, Args: []string{"volume", "rm", name}}
}

// Push pushes an image reference to its registry.
func Push(image string) runner.Command {
	return runner.Command{Name: DockerBinary, Args: []string{"push", image}}
}

// Pull pulls an image reference from its registry.
func Pull(image string) runner.Command {
	return runner.Command{Name: DockerBinary, Args: []string{"pull", image}}
}
