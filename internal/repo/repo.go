// Package repo locates the git repository that contains a path.
package repo

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// ErrNotFound is returned when no enclosing repository exists.
var ErrNotFound = errors.New("git repository not found")

// Find returns the root of the repository containing path by walking up
// until a directory holding a .git entry is found. The .git entry may be a
// directory or a gitdir file, as in worktrees and submodules.
func Find(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", errors.Wrap(err, "abs path")
	}

	current := abs
	for {
		if _, err := os.Stat(filepath.Join(current, ".git")); err == nil {
			return current, nil
		}

		parent := filepath.Dir(current)
		if parent == current {
			return "", errors.Wrapf(ErrNotFound, "search from %s", abs)
		}
		current = parent
	}
}

// RelPath returns path relative to the repository root, with forward
// slashes as git prints them.
func RelPath(root, path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", errors.Wrap(err, "abs path")
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return "", errors.Wrapf(err, "relative to %s", root)
	}
	return filepath.ToSlash(rel), nil
}
