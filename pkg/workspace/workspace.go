// Package workspace manages the scratch directory exclusively owned by one
// pipeline invocation (§3.1, §4.1).
package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/reposcore/reposcore/pkg/logger"
	"github.com/reposcore/reposcore/pkg/repoutil"
)

var log = logger.New("workspace")

// Workspace is a scratch directory created before clone and guaranteed to
// be released on every exit path.
type Workspace struct {
	Path string
}

// Acquire creates a fresh scratch directory for the given repository slug
// (used only to make the directory name legible; it carries no other
// meaning). Acquisition failure is fatal — the ambient temp area being
// unwritable is unrecoverable for this run.
func Acquire(slug string) (*Workspace, error) {
	name := fmt.Sprintf("reposcore-%s-*", repoutil.SanitizeForFilename(slug))
	dir, err := os.MkdirTemp("", name)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire workspace: %w", err)
	}
	log.Printf("acquired workspace %s", dir)
	return &Workspace{Path: dir}, nil
}

// Release removes the workspace directory and everything under it.
// Release errors are logged, never returned as fatal — the pipeline must
// not fail a run solely because cleanup failed.
func (w *Workspace) Release() {
	if w == nil || w.Path == "" {
		return
	}
	if err := os.RemoveAll(w.Path); err != nil {
		log.Printf("failed to release workspace %s: %v", w.Path, err)
		return
	}
	log.Printf("released workspace %s", w.Path)
}

// Join is a convenience wrapper around filepath.Join against the workspace root.
func (w *Workspace) Join(elem ...string) string {
	return filepath.Join(append([]string{w.Path}, elem...)...)
}
