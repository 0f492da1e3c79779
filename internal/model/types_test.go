package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTarget_String verifies that targets render the way users type them.
func TestTarget_String(t *testing.T) {
	tests := []struct {
		target   Target
		expected string
	}{
		{Target{Mode: ModeDB, Action: ActionOn}, "db on"},
		{Target{Mode: ModeAll, Action: ActionBuildPush}, "all build-push"},
		{Target{Mode: ModeNone, Action: ActionPull}, "pull"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.target.String())
		})
	}
}

// TestNewTarget verifies tokens are taken literally and are comparable
// with the predefined constants.
func TestNewTarget(t *testing.T) {
	assert.Equal(t, Target{Mode: ModeDB, Action: ActionClear}, NewTarget("db", "clear"))
	assert.Equal(t, Target{Mode: ModeNone, Action: ActionDown}, NewTarget("", "down"))

	// Matching is exact: "DB" is not the db mode.
	assert.NotEqual(t, Target{Mode: ModeDB, Action: ActionOn}, NewTarget("DB", "on"))
}

// TestClearStrategy_IsValid checks that only defined strategies pass validation.
func TestClearStrategy_IsValid(t *testing.T) {
	assert.True(t, ClearRemoveVolume.IsValid())
	assert.True(t, ClearRecreate.IsValid())
	assert.False(t, ClearStrategy("wipe").IsValid())
	assert.False(t, ClearStrategy("").IsValid())
}

// TestParseClearStrategy verifies string-to-strategy conversion,
// including the empty default and case normalization.
func TestParseClearStrategy(t *testing.T) {
	tests := []struct {
		input    string
		expected ClearStrategy
		hasError bool
	}{
		{"volume", ClearRemoveVolume, false},
		{"recreate", ClearRecreate, false},
		{"Recreate", ClearRecreate, false},
		{"", ClearRemoveVolume, false},
		{"wipe", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, err := ParseClearStrategy(tt.input)
			if tt.hasError {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expected, result)
			}
		})
	}
}

func TestContainerInfo_IsRunning(t *testing.T) {
	assert.True(t, ContainerInfo{State: "running"}.IsRunning())
	assert.False(t, ContainerInfo{State: "exited"}.IsRunning())
}

// TestCLIError verifies the custom error type used for exit code mapping.
func TestCLIError(t *testing.T) {
	t.Run("simple error", func(t *testing.T) {
		err := NewCLIError(ExitDockerNotRunning, "Docker daemon is not running")
		assert.Equal(t, ExitDockerNotRunning, err.Code)
		assert.Equal(t, "Docker daemon is not running", err.Error())
		assert.Nil(t, err.Unwrap())
		assert.False(t, err.ShowUsage)
	})

	t.Run("wrapped error", func(t *testing.T) {
		inner := errors.New("exit status 1")
		err := WrapCLIError(ExitCommandFailed, "db on failed", inner)
		assert.Equal(t, ExitCommandFailed, err.Code)
		assert.Equal(t, "db on failed: exit status 1", err.Error())
		assert.Equal(t, inner, err.Unwrap())
	})

	t.Run("usage error", func(t *testing.T) {
		err := NewUsageError("unknown action \"fly\"")
		assert.Equal(t, ExitUsageError, err.Code)
		assert.True(t, err.ShowUsage)
	})

	// errors.As must find the CLIError through additional wrapping layers.
	t.Run("errors.As chain", func(t *testing.T) {
		inner := errors.New("connection refused")
		wrapped := WrapCLIError(ExitDockerNotRunning, "Docker daemon is not running", inner)
		outer := errors.Join(errors.New("status"), wrapped)

		var cliErr *CLIError
		require.True(t, errors.As(outer, &cliErr))
		assert.Equal(t, ExitDockerNotRunning, cliErr.Code)
		assert.True(t, errors.Is(outer, inner))
	})
}
