package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_FullFlagSet(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	args := []string{
		"-data", "order.yaml",
		"-export", "out.yaml",
		"-commands", "-",
		"-log-level", "DEBUG",
		"-log-format", "json",
		"-log-file", "formrun.log",
		"-log-journal",
		"-no-calc",
		"-answer", "yes",
		"-signal-url", "socketio://localhost:3000/layout",
		"-submit-url", "https://forms.example.com/submit",
		"-status-port", "8080",
		"order.hcl",
	}
	var out bytes.Buffer

	// --- Act ---
	cfg, shouldExit, err := Parse(args, &out)

	// --- Assert ---
	require.NoError(t, err)
	assert.False(t, shouldExit)
	assert.Equal(t, "order.hcl", cfg.FormPath)
	assert.Equal(t, "order.yaml", cfg.DataPath)
	assert.Equal(t, "out.yaml", cfg.ExportPath)
	assert.Equal(t, "-", cfg.CommandsPath)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "formrun.log", cfg.LogFile)
	assert.True(t, cfg.LogJournal)
	assert.True(t, cfg.NoCalculate)
	assert.False(t, cfg.NoValidate)
	assert.Equal(t, "yes", cfg.Answer)
	assert.Equal(t, "socketio://localhost:3000/layout", cfg.SignalURL)
	assert.Equal(t, "https://forms.example.com/submit", cfg.SubmitURL)
	assert.Equal(t, 8080, cfg.StatusPort)
	assert.Empty(t, out.String())
}

func TestParse_FormFlagWins(t *testing.T) {
	t.Parallel()

	cfg, _, err := Parse([]string{"-f", "short.hcl", "positional.hcl"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "short.hcl", cfg.FormPath)

	cfg, _, err = Parse([]string{"-form", "long.hcl", "-f", "short.hcl"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "long.hcl", cfg.FormPath)
}

func TestParse_HelpAndMissingForm(t *testing.T) {
	t.Parallel()

	for _, args := range [][]string{{"-h"}, {}} {
		var out bytes.Buffer
		cfg, shouldExit, err := Parse(args, &out)

		require.NoError(t, err)
		assert.True(t, shouldExit)
		assert.Nil(t, cfg)
		assert.Contains(t, out.String(), "Usage:")
	}
}

func TestParse_UsageErrors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		args []string
		want string
	}{
		{"unknown flag", []string{"-workers", "3", "f.hcl"}, "flag provided but not defined"},
		{"log format", []string{"-log-format", "xml", "f.hcl"}, "invalid log-format"},
		{"log level", []string{"-log-level", "trace", "f.hcl"}, "invalid log-level"},
		{"answer", []string{"-answer", "maybe", "f.hcl"}, "invalid answer"},
		{"status port", []string{"-status-port", "-1", "f.hcl"}, "invalid status port"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, _, err := Parse(tc.args, &bytes.Buffer{})

			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, 2, exitErr.Code)
			assert.Contains(t, exitErr.Message, tc.want)
		})
	}
}
