package tui

import (
	"path/filepath"

	"github.com/cj3636/gblame/internal/repo"
)

// Target names the file being blamed and where it lives.
type Target struct {
	// Path is the file as given on the command line.
	Path string
	// RepoRoot is the enclosing repository, empty if unknown.
	RepoRoot string
	// RelPath is Path relative to RepoRoot, for display.
	RelPath string
	// Revision is the initial revision; empty means the working copy.
	Revision string
}

// NewTarget resolves the repository context of path. Outside a repository
// the target still works; git itself reports the problem.
func NewTarget(path, revision string) Target {
	t := Target{Path: path, Revision: revision, RelPath: filepath.Base(path)}

	root, err := repo.Find(filepath.Dir(path))
	if err != nil {
		return t
	}
	t.RepoRoot = root
	if rel, err := repo.RelPath(root, path); err == nil {
		t.RelPath = rel
	}
	return t
}
