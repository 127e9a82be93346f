package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, nil, 0o600))
}

func TestFindFiles(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	root := t.TempDir()
	touch(t, filepath.Join(root, "b.hcl"))
	touch(t, filepath.Join(root, "a.hcl"))
	touch(t, filepath.Join(root, "notes.txt"))
	touch(t, filepath.Join(root, "nested", "c.hcl"))
	touch(t, filepath.Join(root, ".git", "d.hcl"))

	// --- Act ---
	files, err := FindFiles(root, ".hcl")

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a.hcl"),
		filepath.Join(root, "b.hcl"),
		filepath.Join(root, "nested", "c.hcl"),
	}, files)
}

func TestFindFiles_SingleFile(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	form := filepath.Join(root, "order.hcl")
	touch(t, form)
	touch(t, filepath.Join(root, "order.yaml"))

	files, err := FindFiles(form, ".hcl")
	require.NoError(t, err)
	assert.Equal(t, []string{form}, files)

	_, err = FindFiles(filepath.Join(root, "order.yaml"), ".hcl")
	assert.ErrorContains(t, err, "not a .hcl file")

	_, err = FindFiles(filepath.Join(root, "missing"), ".hcl")
	assert.ErrorIs(t, err, os.ErrNotExist)

	assert.Panics(t, func() { _, _ = FindFiles(root, "") })
}
