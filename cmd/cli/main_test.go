package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRun_PanicRecovery(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	// An HCL syntax error makes app.NewApp panic while loading the form.
	invalidHCL := `
		form "order" {
			field "name" {
		// Missing closing braces here
	`
	tempDir := t.TempDir()
	filePath := filepath.Join(tempDir, "order.hcl")
	err := os.WriteFile(filePath, []byte(invalidHCL), 0600)
	require.NoError(t, err, "failed to set up test file")

	args := []string{filePath}
	out := &bytes.Buffer{}

	// --- Act ---
	runErr := run(context.Background(), out, args)

	// --- Assert ---
	require.Error(t, runErr, "run() should have returned an error after recovering from a panic")

	errStr := runErr.Error()
	require.True(t, strings.Contains(errStr, "application startup panicked"), "The error message should indicate that a panic was recovered.")
	require.True(t, strings.Contains(errStr, "failed to parse"), "The error message should contain the underlying reason for the panic.")
}

func TestRun_ShouldExit(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	// The "-h" (help) flag should cause cli.Parse to return `shouldExit=true`.
	args := []string{"-h"}
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(context.Background(), out, args)

	// --- Assert ---
	require.NoError(t, err, "run() should return a nil error when shouldExit is true")
	require.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	args := []string{"--this-is-not-a-valid-flag"}
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(context.Background(), out, args)

	// --- Assert ---
	require.Error(t, err, "run() should return an error when argument parsing fails")
	require.Contains(t, err.Error(), "flag provided but not defined: -this-is-not-a-valid-flag")
}

func TestRun_ExportsData(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	dir := t.TempDir()
	form := filepath.Join(dir, "order.hcl")
	require.NoError(t, os.WriteFile(form, []byte(`
form "order" {
  field "qty" { value = "2" }
  field "total" {
    calculate { expr = qty * 3 }
  }
}
`), 0600))
	export := filepath.Join(dir, "out.yaml")
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(context.Background(), out, []string{"-export", export, form})

	// --- Assert ---
	require.NoError(t, err)
	raw, err := os.ReadFile(export)
	require.NoError(t, err)
	require.Contains(t, string(raw), `total: "6"`)
}

func TestRun_CheckDirectory(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.hcl"), []byte(`form "alpha" {}`), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.hcl"), []byte(`form "beta" { widget "x" {} }`), 0600))
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(context.Background(), out, []string{"-check", dir})

	// --- Assert ---
	require.Error(t, err)
	require.Contains(t, err.Error(), "form check failed")
	require.Contains(t, err.Error(), "b.hcl")
	require.Contains(t, out.String(), "ok  alpha")
}
