package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/stackrun/internal/model"
)

const testCompose = `
services:
  mongo:
    image: mongo:7
    container_name: mongodb
    ports:
      - "27017:27017"
    volumes:
      - mongo-data:/data/db
volumes:
  mongo-data:
`

// setupWorkDir creates a temporary working directory containing the
// default deploy/docker_compose.yml.
func setupWorkDir(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "deploy", "docker_compose.yml"), testCompose)
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// clearEnv isolates a test from STACKRUN_* and COMPOSE_PROJECT_NAME
// variables set in the developer's shell.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"STACKRUN_VERSION", "STACKRUN_IMAGES_VERSION", "STACKRUN_COMPOSE_FILE",
		"STACKRUN_PULL_FRONTEND", "STACKRUN_DATABASE_CLEAR_STRATEGY", "COMPOSE_PROJECT_NAME",
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func requireUsageError(t *testing.T, err error) *model.CLIError {
	t.Helper()
	require.Error(t, err)
	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr), "expected *model.CLIError, got %T", err)
	assert.Equal(t, model.ExitUsageError, cliErr.Code)
	return cliErr
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	dir := setupWorkDir(t)

	cfg, err := Load(Options{WorkDir: dir})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "deploy", "docker_compose.yml"), cfg.ComposeFile)
	assert.Equal(t, "deploy", cfg.ProjectName)
	assert.False(t, cfg.ProjectNameSet)
	assert.Empty(t, cfg.Compose().Project, "a derived project name is left to compose")
	assert.Empty(t, cfg.File)
	assert.Equal(t, Database{
		Service:       "mongo",
		Container:     "mongodb",
		Volume:        "mongo-data",
		ClearStrategy: model.ClearRemoveVolume,
	}, cfg.Database)
	assert.Equal(t, filepath.Join(dir, "backend"), cfg.Backend.Dir)
	assert.Equal(t, []string{"npm", "run", "build"}, cfg.Backend.BuildCommand)
	assert.Equal(t, "idoshahar/tahash-backend:v0.1", cfg.Images.BackendRef())
	assert.Equal(t, "idoshahar/tahash-frontend:v0.1", cfg.Images.FrontendRef())
	assert.False(t, cfg.PullFrontend)
	require.NotNil(t, cfg.Descriptor)
	assert.True(t, cfg.Descriptor.HasService("mongo"))
}

// TestLoad_MissingComposeFile verifies the fail-fast check on the
// descriptor path.
func TestLoad_MissingComposeFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	_, err := Load(Options{WorkDir: dir})
	cliErr := requireUsageError(t, err)
	assert.Contains(t, cliErr.Message, "invalid docker compose path")
	assert.Contains(t, cliErr.Message, filepath.Join(dir, "deploy", "docker_compose.yml"))
}

// TestLoad_ComposePathIsDirectory verifies that a directory at the
// descriptor path is rejected like a missing file.
func TestLoad_ComposePathIsDirectory(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "deploy", "docker_compose.yml"), 0755))

	_, err := Load(Options{WorkDir: dir})
	cliErr := requireUsageError(t, err)
	assert.Contains(t, cliErr.Message, "invalid docker compose path")
}

func TestLoad_InvalidComposeYAML(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "deploy", "docker_compose.yml"), "services: [")

	_, err := Load(Options{WorkDir: dir})
	requireUsageError(t, err)
}

func TestLoad_YAMLConfigFile(t *testing.T) {
	clearEnv(t)
	dir := setupWorkDir(t)
	writeFile(t, filepath.Join(dir, "stackrun.yaml"), `
project_name: tahash
database:
  clear_strategy: recreate
images:
  registry: ghcr.io/tahash
  version: "1.2"
backend:
  build_command: [make, build]
`)

	cfg, err := Load(Options{WorkDir: dir})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "stackrun.yaml"), cfg.File)
	assert.Equal(t, "tahash", cfg.ProjectName)
	assert.True(t, cfg.ProjectNameSet)
	assert.Equal(t, "tahash", cfg.Compose().Project)
	assert.Equal(t, model.ClearRecreate, cfg.Database.ClearStrategy)
	assert.Equal(t, "ghcr.io/tahash/tahash-backend:v1.2", cfg.Images.BackendRef())
	assert.Equal(t, []string{"make", "build"}, cfg.Backend.BuildCommand)
	// Untouched keys keep their defaults.
	assert.Equal(t, "mongodb", cfg.Database.Container)
}

// TestLoad_JSONCConfigFile verifies comments and trailing commas are
// accepted in .jsonc config files.
func TestLoad_JSONCConfigFile(t *testing.T) {
	clearEnv(t)
	dir := setupWorkDir(t)
	writeFile(t, filepath.Join(dir, "stackrun.jsonc"), `{
  // the database container differs on the CI host
  "database": {
    "container": "ci-mongo",
  },
  /* pull the real frontend image */
  "pull": {"frontend": true},
}`)

	cfg, err := Load(Options{WorkDir: dir})
	require.NoError(t, err)
	assert.Equal(t, "ci-mongo", cfg.Database.Container)
	assert.True(t, cfg.PullFrontend)
}

func TestLoad_ExplicitConfigFileMissing(t *testing.T) {
	clearEnv(t)
	dir := setupWorkDir(t)

	_, err := Load(Options{WorkDir: dir, ConfigFile: "nope.yaml"})
	cliErr := requireUsageError(t, err)
	assert.Contains(t, cliErr.Message, "not found")
}

func TestLoad_InvalidClearStrategy(t *testing.T) {
	clearEnv(t)
	dir := setupWorkDir(t)
	writeFile(t, filepath.Join(dir, "stackrun.yaml"), "database:\n  clear_strategy: wipe\n")

	_, err := Load(Options{WorkDir: dir})
	requireUsageError(t, err)
}

// TestLoad_VersionFromEnvironment verifies both spellings of the version
// variable, and that the .env file is honored.
func TestLoad_VersionFromEnvironment(t *testing.T) {
	t.Run("STACKRUN_VERSION", func(t *testing.T) {
		clearEnv(t)
		dir := setupWorkDir(t)
		t.Setenv("STACKRUN_VERSION", "0.2")

		cfg, err := Load(Options{WorkDir: dir})
		require.NoError(t, err)
		assert.Equal(t, "idoshahar/tahash-backend:v0.2", cfg.Images.BackendRef())
	})

	t.Run("STACKRUN_IMAGES_VERSION", func(t *testing.T) {
		clearEnv(t)
		dir := setupWorkDir(t)
		t.Setenv("STACKRUN_IMAGES_VERSION", "v0.3")

		cfg, err := Load(Options{WorkDir: dir})
		require.NoError(t, err)
		assert.Equal(t, "idoshahar/tahash-frontend:v0.3", cfg.Images.FrontendRef())
	})

	t.Run(".env file", func(t *testing.T) {
		clearEnv(t)
		dir := setupWorkDir(t)
		writeFile(t, filepath.Join(dir, ".env"), "STACKRUN_VERSION=0.4\n")
		// gotenv sets the variable in the process environment; restore it.
		t.Cleanup(func() { _ = os.Unsetenv("STACKRUN_VERSION") })

		cfg, err := Load(Options{WorkDir: dir})
		require.NoError(t, err)
		assert.Equal(t, "0.4", cfg.Images.Version)
	})
}

// TestLoad_FlagsOverride verifies that changed flags win over the config
// file and that unchanged flags do not clobber it.
func TestLoad_FlagsOverride(t *testing.T) {
	clearEnv(t)
	dir := setupWorkDir(t)
	writeFile(t, filepath.Join(dir, "other", "compose.yml"), testCompose)
	writeFile(t, filepath.Join(dir, "stackrun.yaml"), "pull:\n  frontend: true\n")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("compose-file", "", "")
	fs.Bool("pull-frontend", false, "")
	require.NoError(t, fs.Parse([]string{"--compose-file", "other/compose.yml"}))

	cfg, err := Load(Options{WorkDir: dir, Flags: fs})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "other", "compose.yml"), cfg.ComposeFile)
	assert.Equal(t, "other", cfg.ProjectName)
	assert.True(t, cfg.PullFrontend, "unchanged flag must not override the config file")
}

func TestImages_Ref(t *testing.T) {
	assert.Equal(t, "app:v1", Images{Backend: "app", Version: "1"}.BackendRef())
	assert.Equal(t, "r/app:v1", Images{Registry: "r", Frontend: "app", Version: "v1"}.FrontendRef())
}
