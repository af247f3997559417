package execution

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// ScratchRoot is the single process-wide scratch directory every node's
// State is created under for one pipeline run, named with a random UUID
// so concurrent `radiome run` invocations against the same machine never
// collide - the Go equivalent of the original's per-run temp directory,
// given a stable, greppable prefix for operators clearing stale runs.
type ScratchRoot struct {
	Dir string
}

// NewScratchRoot creates a fresh scratch root under baseDir (the OS temp
// directory when baseDir is empty).
func NewScratchRoot(baseDir string) (*ScratchRoot, error) {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	dir := filepath.Join(baseDir, "radiome-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &ScratchRoot{Dir: dir}, nil
}

// Close removes the entire scratch root, including every job's scratch
// directory created under it.
func (r *ScratchRoot) Close() error {
	return os.RemoveAll(r.Dir)
}
