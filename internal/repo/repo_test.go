package repo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFind(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	nested := filepath.Join(root, "cmd", "tool")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	got, err := Find(nested)
	require.NoError(t, err)
	assert.Equal(t, root, got)

	got, err = Find(root)
	require.NoError(t, err)
	assert.Equal(t, root, got)
}

func TestFind_GitFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".git"), []byte("gitdir: ../main/.git/worktrees/wt\n"), 0o644))

	got, err := Find(root)
	require.NoError(t, err)
	assert.Equal(t, root, got)
}

func TestFind_NotFound(t *testing.T) {
	dir := t.TempDir()
	if _, err := Find(dir); err == nil {
		t.Skip("temporary directory is inside a git repository")
	}

	_, err := Find(dir)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRelPath(t *testing.T) {
	root := t.TempDir()
	rel, err := RelPath(root, filepath.Join(root, "internal", "blame", "source.go"))
	require.NoError(t, err)
	assert.Equal(t, "internal/blame/source.go", rel)
}
