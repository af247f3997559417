package execution

import (
	"os"
	"path/filepath"
)

// State owns one node's private scratch directory for the duration of a
// single job invocation - the Go port of
// radiome/execution/__init__.py's State class, minus the
// pickling-for-distributed-workers machinery (__getstate__/__setstate__),
// which has no counterpart here since this port's ParallelExecutor
// dispatches in-process goroutines rather than serializing state across
// worker processes.
//
// Master distinguishes the State instance that created the scratch
// directory from any alias of it: only the master removes the directory
// on Close, mirroring the original's `self._master` flag that guards
// `__del__`'s cleanup so a worker-side deserialized State doesn't delete
// a directory a different process still owns.
type State struct {
	Dir    string
	Master bool
}

// NewState creates (if absent) and returns a master State rooted at
// filepath.Join(baseDir, hash) - hash is normally the node's finalized
// content hash, giving every distinct job invocation a stable, collision-
// free scratch directory.
func NewState(baseDir, hash string) (*State, error) {
	dir := filepath.Join(baseDir, hash)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &State{Dir: dir, Master: true}, nil
}

// Close removes the scratch directory if this State is its master.
func (s *State) Close() error {
	if !s.Master {
		return nil
	}
	return os.RemoveAll(s.Dir)
}
