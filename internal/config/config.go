// Package config builds the immutable stackrun configuration.
//
// Values are layered with spf13/viper, highest priority first: command-line
// flags, STACKRUN_* environment variables (a .env file in the working
// directory is loaded into the environment first), an optional config file,
// and built-in defaults matching the stack's repository layout.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"

	"github.com/shinji-kodama/stackrun/internal/compose"
	"github.com/shinji-kodama/stackrun/internal/model"
)

// EnvPrefix is the prefix of every environment variable stackrun reads.
const EnvPrefix = "STACKRUN"

// DefaultComposeFile is the descriptor location relative to the working
// directory.
const DefaultComposeFile = "./deploy/docker_compose.yml"

// configFileNames are looked up in the working directory when no --config
// flag is given. The first one that exists wins.
var configFileNames = []string{
	"stackrun.yaml",
	"stackrun.yml",
	"stackrun.json",
	"stackrun.jsonc",
	"stackrun.toml",
}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"compose-file":  "compose_file",
	"project-name":  "project_name",
	"pull-frontend": "pull.frontend",
}

// Config is the resolved configuration. It is built once by Load and only
// read afterwards.
type Config struct {
	// WorkDir is the directory relative paths were resolved against.
	WorkDir string `json:"workDir" yaml:"work_dir"`

	// File is the config file that was read, empty when none was found.
	File string `json:"configFile,omitempty" yaml:"config_file,omitempty"`

	// ComposeFile is the absolute path of the orchestration descriptor.
	ComposeFile string `json:"composeFile" yaml:"compose_file"`

	// ProjectName is the compose project name, used to derive volume names
	// and to find the composition's containers.
	ProjectName string `json:"projectName" yaml:"project_name"`

	// ProjectNameSet records that ProjectName came from project_name or
	// --project-name rather than being derived. Only then is it passed to
	// docker compose with -p.
	ProjectNameSet bool `json:"projectNameSet" yaml:"project_name_set"`

	Database Database `json:"database" yaml:"database"`
	Backend  Backend  `json:"backend" yaml:"backend"`
	Images   Images   `json:"images" yaml:"images"`

	// PullFrontend makes "pull" fetch the frontend image as its second
	// step. When false the backend image is pulled twice, which is what
	// existing deployment scripts expect.
	PullFrontend bool `json:"pullFrontend" yaml:"pull_frontend"`

	// Descriptor is the parsed compose file.
	Descriptor *compose.Descriptor `json:"-" yaml:"-"`
}

// Compose returns the compose project the stack operations address.
func (c *Config) Compose() compose.File {
	f := compose.File{Path: c.ComposeFile}
	if c.ProjectNameSet {
		f.Project = c.ProjectName
	}
	return f
}

// Database names the database service and its resources.
type Database struct {
	Service       string              `json:"service" yaml:"service"`
	Container     string              `json:"container" yaml:"container"`
	Volume        string              `json:"volume" yaml:"volume"`
	ClearStrategy model.ClearStrategy `json:"clearStrategy" yaml:"clear_strategy"`
}

// Backend describes the local backend build step.
type Backend struct {
	// Dir is the absolute backend source directory.
	Dir string `json:"dir" yaml:"dir"`

	// BuildCommand is the program and arguments run inside Dir.
	BuildCommand []string `json:"buildCommand" yaml:"build_command"`
}

// Images holds the registry coordinates of the stack's images.
type Images struct {
	Registry string `json:"registry" yaml:"registry"`
	Backend  string `json:"backend" yaml:"backend"`
	Frontend string `json:"frontend" yaml:"frontend"`
	Version  string `json:"version" yaml:"version"`
}

// BackendRef returns the backend image reference, e.g.
// "idoshahar/tahash-backend:v0.1".
func (i Images) BackendRef() string {
	return i.ref(i.Backend)
}

// FrontendRef returns the frontend image reference.
func (i Images) FrontendRef() string {
	return i.ref(i.Frontend)
}

func (i Images) ref(name string) string {
	tag := "v" + strings.TrimPrefix(i.Version, "v")
	if i.Registry == "" {
		return name + ":" + tag
	}
	return i.Registry + "/" + name + ":" + tag
}

// rawConfig is the shape viper unmarshals into.
type rawConfig struct {
	ComposeFile string `mapstructure:"compose_file"`
	ProjectName string `mapstructure:"project_name"`

	Database struct {
		Service       string `mapstructure:"service"`
		Container     string `mapstructure:"container"`
		Volume        string `mapstructure:"volume"`
		ClearStrategy string `mapstructure:"clear_strategy"`
	} `mapstructure:"database"`

	Backend struct {
		Dir          string   `mapstructure:"dir"`
		BuildCommand []string `mapstructure:"build_command"`
	} `mapstructure:"backend"`

	Images struct {
		Registry string `mapstructure:"registry"`
		Backend  string `mapstructure:"backend"`
		Frontend string `mapstructure:"frontend"`
		Version  string `mapstructure:"version"`
	} `mapstructure:"images"`

	Pull struct {
		Frontend bool `mapstructure:"frontend"`
	} `mapstructure:"pull"`
}

// Options control where Load looks for its inputs.
type Options struct {
	// WorkDir defaults to the process working directory.
	WorkDir string

	// ConfigFile is an explicit config file path. When set the file must
	// exist.
	ConfigFile string

	// Flags, when non-nil, are bound on top of every other source.
	Flags *pflag.FlagSet
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("compose_file", DefaultComposeFile)
	v.SetDefault("project_name", "")
	v.SetDefault("database.service", "mongo")
	v.SetDefault("database.container", "mongodb")
	v.SetDefault("database.volume", "mongo-data")
	v.SetDefault("database.clear_strategy", string(model.ClearRemoveVolume))
	v.SetDefault("backend.dir", "./backend")
	v.SetDefault("backend.build_command", []string{"npm", "run", "build"})
	v.SetDefault("images.registry", "idoshahar")
	v.SetDefault("images.backend", "tahash-backend")
	v.SetDefault("images.frontend", "tahash-frontend")
	v.SetDefault("images.version", "0.1")
	v.SetDefault("pull.frontend", false)
}

// Load resolves the configuration and validates the compose descriptor.
//
// Every failure is returned as a *model.CLIError with ExitUsageError, so a
// missing descriptor stops the process before any operation runs.
func Load(opts Options) (*Config, error) {
	workDir := opts.WorkDir
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, model.WrapCLIError(model.ExitUsageError, "cannot determine working directory", err)
		}
		workDir = wd
	}

	if err := loadDotEnv(filepath.Join(workDir, ".env")); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// STACKRUN_VERSION is the short form used by release scripts.
	_ = v.BindEnv("images.version", EnvPrefix+"_IMAGES_VERSION", EnvPrefix+"_VERSION")

	file, err := readConfigFile(v, workDir, opts.ConfigFile)
	if err != nil {
		return nil, err
	}

	if opts.Flags != nil {
		if err := bindFlags(v, opts.Flags); err != nil {
			return nil, model.WrapCLIError(model.ExitUsageError, "failed to bind flags", err)
		}
	}

	var raw rawConfig
	if err := v.Unmarshal(&raw); err != nil {
		return nil, model.WrapCLIError(model.ExitUsageError, "unable to decode configuration", err)
	}

	return resolve(raw, workDir, file)
}

// resolve turns the raw values into a validated Config.
func resolve(raw rawConfig, workDir, file string) (*Config, error) {
	composePath := absPath(workDir, raw.ComposeFile)
	info, err := os.Stat(composePath)
	if err != nil || !info.Mode().IsRegular() {
		return nil, model.NewCLIError(model.ExitUsageError,
			fmt.Sprintf("invalid docker compose path: %s", composePath))
	}

	desc, err := compose.LoadDescriptor(composePath)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitUsageError, "invalid docker compose file", err)
	}

	strategy, err := model.ParseClearStrategy(raw.Database.ClearStrategy)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitUsageError, "invalid database.clear_strategy", err)
	}

	if len(raw.Backend.BuildCommand) == 0 {
		return nil, model.NewCLIError(model.ExitUsageError, "backend.build_command must not be empty")
	}
	if raw.Images.Version == "" {
		return nil, model.NewCLIError(model.ExitUsageError, "images.version must not be empty")
	}

	return &Config{
		WorkDir:        workDir,
		File:           file,
		ComposeFile:    composePath,
		ProjectName:    compose.ProjectName(raw.ProjectName, desc, composePath),
		ProjectNameSet: raw.ProjectName != "",
		Database: Database{
			Service:       raw.Database.Service,
			Container:     raw.Database.Container,
			Volume:        raw.Database.Volume,
			ClearStrategy: strategy,
		},
		Backend: Backend{
			Dir:          absPath(workDir, raw.Backend.Dir),
			BuildCommand: raw.Backend.BuildCommand,
		},
		Images: Images{
			Registry: raw.Images.Registry,
			Backend:  raw.Images.Backend,
			Frontend: raw.Images.Frontend,
			Version:  raw.Images.Version,
		},
		PullFrontend: raw.Pull.Frontend,
		Descriptor:   desc,
	}, nil
}

// bindFlags binds the known flags present in fs to their config keys.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("flag --%s: %w", name, err)
		}
	}
	return nil
}

// loadDotEnv loads KEY=VALUE pairs from path into the process environment.
// Variables that are already set keep their value. A missing file is fine.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := gotenv.Load(path); err != nil {
		return model.WrapCLIError(model.ExitUsageError, fmt.Sprintf("failed to load %s", path), err)
	}
	return nil
}

func absPath(base, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}
