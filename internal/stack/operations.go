// operations.go holds the static operation table. An Operation is a named,
// ordered list of Steps; each Step wraps one external command. Plans are
// computed from the immutable configuration, so the exact command sequence
// of every target can be inspected without running anything.

package stack

import (
	"sort"

	"github.com/shinji-kodama/stackrun/internal/compose"
	"github.com/shinji-kodama/stackrun/internal/config"
	"github.com/shinji-kodama/stackrun/internal/model"
	"github.com/shinji-kodama/stackrun/internal/runner"
)

// Step is one external command of an operation.
type Step struct {
	// Announce is printed before the step when non-empty.
	Announce string

	Command runner.Command

	// BestEffort steps log their failure and let the operation continue.
	BestEffort bool
}

// Operation is a named sequence of steps.
type Operation struct {
	Target  model.Target
	Summary string

	// Done is printed after every step succeeded.
	Done string

	Plan func(cfg *config.Config) []Step
}

// Registry is the static table of operations, keyed by target.
type Registry struct {
	ops map[model.Target]Operation
}

// NewRegistry builds a registry from ops. It panics on a duplicate target,
// since every target must map to exactly one operation.
func NewRegistry(ops ...Operation) *Registry {
	r := &Registry{ops: make(map[model.Target]Operation, len(ops))}
	for _, op := range ops {
		if _, dup := r.ops[op.Target]; dup {
			panic("stack: duplicate operation for " + op.Target.String())
		}
		r.ops[op.Target] = op
	}
	return r
}

// Lookup returns the operation registered for t.
func (r *Registry) Lookup(t model.Target) (Operation, bool) {
	op, ok := r.ops[t]
	return op, ok
}

// Actions returns the actions registered for mode, sorted.
func (r *Registry) Actions(mode model.Mode) []string {
	var actions []string
	for t := range r.ops {
		if t.Mode == mode {
			actions = append(actions, string(t.Action))
		}
	}
	sort.Strings(actions)
	return actions
}

// Operations returns every registered operation ordered by mode, then
// action.
func (r *Registry) Operations() []Operation {
	ops := make([]Operation, 0, len(r.ops))
	for _, op := range r.ops {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool {
		if ops[i].Target.Mode != ops[j].Target.Mode {
			return ops[i].Target.Mode < ops[j].Target.Mode
		}
		return ops[i].Target.Action < ops[j].Target.Action
	})
	return ops
}

// DefaultRegistry returns the registry of the stack's operations.
func DefaultRegistry() *Registry {
	return NewRegistry(
		Operation{
			Target:  model.Target{Mode: model.ModeDB, Action: model.ActionOn},
			Summary: "start the database service",
			Done:    "Database is working!",
			Plan: func(cfg *config.Config) []Step {
				return []Step{{
					Announce: "Starting database...",
					Command:  compose.Up(cfg.Compose(), cfg.Database.Service),
				}}
			},
		},
		Operation{
			Target:  model.Target{Mode: model.ModeDB, Action: model.ActionStop},
			Summary: "stop the database container",
			Done:    "Stopped database successfully.",
			Plan: func(cfg *config.Config) []Step {
				return []Step{{
					Announce: "Stopping database...",
					Command:  compose.StopContainer(cfg.Database.Container),
				}}
			},
		},
		Operation{
			Target:  model.Target{Mode: model.ModeDB, Action: model.ActionClear},
			Summary: "wipe the database's persistent data",
			Done:    "Database cleared!",
			Plan:    planClearDatabase,
		},
		Operation{
			Target:  model.Target{Mode: model.ModeAll, Action: model.ActionOn},
			Summary: "build the backend, then build and start the composition",
			Done:    "Started database and website successfully.",
			Plan: func(cfg *config.Config) []Step {
				return []Step{
					buildBackend(cfg),
					{Announce: "Building and running all...", Command: compose.UpBuild(cfg.Compose())},
				}
			},
		},
		Operation{
			Target:  model.Target{Mode: model.ModeAll, Action: model.ActionStop},
			Summary: "tear down the composition",
			Done:    "Stopped running.",
			Plan: func(cfg *config.Config) []Step {
				return []Step{{
					Announce: "Stopping current composition...",
					Command:  compose.Down(cfg.Compose(), false),
				}}
			},
		},
		Operation{
			Target:  model.Target{Mode: model.ModeAll, Action: model.ActionBuild},
			Summary: "build the backend and the composition's images",
			Done:    "Built images successfully.",
			Plan:    planBuild,
		},
		Operation{
			Target:  model.Target{Mode: model.ModeAll, Action: model.ActionPush},
			Summary: "push the backend and frontend images",
			Done:    "Pushed images successfully.",
			Plan:    planPush,
		},
		Operation{
			Target:  model.Target{Mode: model.ModeAll, Action: model.ActionBuildPush},
			Summary: "build everything, then push the images",
			Done:    "Built and pushed images successfully.",
			Plan: func(cfg *config.Config) []Step {
				return append(planBuild(cfg), planPush(cfg)...)
			},
		},
		Operation{
			Target:  model.Target{Mode: model.ModeNone, Action: model.ActionPull},
			Summary: "pull the backend and frontend images",
			Done:    "Pulled images successfully.",
			Plan:    planPull,
		},
		Operation{
			Target:  model.Target{Mode: model.ModeNone, Action: model.ActionUp},
			Summary: "start the composition from pulled images",
			Done:    "Composition is up.",
			Plan: func(cfg *config.Config) []Step {
				return []Step{{Command: compose.Up(cfg.Compose())}}
			},
		},
		Operation{
			Target:  model.Target{Mode: model.ModeNone, Action: model.ActionDown},
			Summary: "tear down the composition",
			Done:    "Composition is down.",
			Plan: func(cfg *config.Config) []Step {
				return []Step{{Command: compose.Down(cfg.Compose(), false)}}
			},
		},
	)
}

func buildBackend(cfg *config.Config) Step {
	return Step{
		Announce: "Building backend...",
		Command: runner.Command{
			Name: cfg.Backend.BuildCommand[0],
			Args: cfg.Backend.BuildCommand[1:],
			Dir:  cfg.Backend.Dir,
		},
	}
}

func planClearDatabase(cfg *config.Config) []Step {
	if cfg.Database.ClearStrategy == model.ClearRecreate {
		return []Step{
			{Announce: "Tearing down composition with its volumes...", Command: compose.Down(cfg.Compose(), true)},
			{Announce: "Bringing composition back up...", Command: compose.Up(cfg.Compose())},
		}
	}

	volume := cfg.Descriptor.VolumeName(cfg.ProjectName, cfg.Database.Volume)
	return []Step{
		{
			Announce: "Stopping database...",
			Command:  compose.StopContainer(cfg.Database.Container),
			// The container may already be stopped; the volume removal
			// below is what matters.
			BestEffort: true,
		},
		{Announce: "Clearing database data...", Command: compose.RemoveVolume(volume)},
	}
}

func planBuild(cfg *config.Config) []Step {
	return []Step{
		buildBackend(cfg),
		{Announce: "Building images...", Command: compose.Build(cfg.Compose())},
	}
}

func planPush(cfg *config.Config) []Step {
	return []Step{
		{Announce: "Pushing backend image...", Command: compose.Push(cfg.Images.BackendRef())},
		{Announce: "Pushing frontend image...", Command: compose.Push(cfg.Images.FrontendRef())},
	}
}

// planPull pulls the backend image, then the frontend image. Unless
// PullFrontend is set, the second step pulls the backend image again,
// matching the behavior deployment hosts have relied on so far.
func planPull(cfg *config.Config) []Step {
	second := cfg.Images.BackendRef()
	if cfg.PullFrontend {
		second = cfg.Images.FrontendRef()
	}
	return []Step{
		{Announce: "Pulling backend image...", Command: compose.Pull(cfg.Images.BackendRef())},
		{Announce: "Pulling frontend image...", Command: compose.Pull(second)},
	}
}
