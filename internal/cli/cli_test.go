package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("positional scenario path", func(t *testing.T) {
		var out bytes.Buffer
		cfg, exit, err := Parse([]string{"run.hcl"}, &out)
		require.NoError(t, err)
		require.False(t, exit)
		assert.Equal(t, "run.hcl", cfg.ScenarioPath)
		assert.Equal(t, "json", cfg.LogFormat)
		assert.Equal(t, "info", cfg.LogLevel)
	})

	t.Run("scenario flag wins over positional", func(t *testing.T) {
		var out bytes.Buffer
		cfg, exit, err := Parse([]string{"-scenario", "a.hcl", "b.hcl"}, &out)
		require.NoError(t, err)
		require.False(t, exit)
		assert.Equal(t, "a.hcl", cfg.ScenarioPath)
	})

	t.Run("shorthand flag", func(t *testing.T) {
		var out bytes.Buffer
		cfg, exit, err := Parse([]string{"-s", "a.hcl"}, &out)
		require.NoError(t, err)
		require.False(t, exit)
		assert.Equal(t, "a.hcl", cfg.ScenarioPath)
	})

	t.Run("overrides are carried through", func(t *testing.T) {
		var out bytes.Buffer
		cfg, _, err := Parse([]string{
			"-timestep", "0.0005",
			"-duration", "2",
			"-frequency", "60",
			"-log-format", "text",
			"-log-level", "debug",
			"run.hcl",
		}, &out)
		require.NoError(t, err)
		assert.Equal(t, 0.0005, cfg.TimeStep)
		assert.Equal(t, 2.0, cfg.Duration)
		assert.Equal(t, 60.0, cfg.Frequency)
		assert.Equal(t, "text", cfg.LogFormat)
		assert.Equal(t, "debug", cfg.LogLevel)
	})

	t.Run("no path prints usage and exits cleanly", func(t *testing.T) {
		var out bytes.Buffer
		cfg, exit, err := Parse(nil, &out)
		require.NoError(t, err)
		assert.True(t, exit)
		assert.Nil(t, cfg)
		assert.Contains(t, out.String(), "Usage:")
	})

	t.Run("help exits cleanly", func(t *testing.T) {
		var out bytes.Buffer
		_, exit, err := Parse([]string{"-h"}, &out)
		require.NoError(t, err)
		assert.True(t, exit)
	})

	t.Run("invalid log format", func(t *testing.T) {
		var out bytes.Buffer
		_, _, err := Parse([]string{"-log-format", "yaml", "run.hcl"}, &out)
		var exitErr *ExitError
		require.ErrorAs(t, err, &exitErr)
		assert.Equal(t, 2, exitErr.Code)
	})

	t.Run("invalid log level", func(t *testing.T) {
		var out bytes.Buffer
		_, _, err := Parse([]string{"-log-level", "loud", "run.hcl"}, &out)
		var exitErr *ExitError
		require.ErrorAs(t, err, &exitErr)
		assert.Equal(t, 2, exitErr.Code)
	})

	t.Run("unknown flag", func(t *testing.T) {
		var out bytes.Buffer
		_, _, err := Parse([]string{"-bogus"}, &out)
		var exitErr *ExitError
		require.ErrorAs(t, err, &exitErr)
		assert.Equal(t, 2, exitErr.Code)
	})
}
