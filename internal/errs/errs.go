// Package errs collects the typed error values raised across the
// pipeline-execution stack, grounded on the small exception hierarchy
// radiome's own modules define (ResourcePool's KeyError/ValueError
// subclasses, DependencySolver's cycle detection, job failures bubbling
// out of Execution.execute). Go has no exception hierarchy to mirror
// directly, so this package instead gives each failure mode its own
// comparable sentinel or wrapped struct type that callers can test for
// with errors.Is/errors.As.
package errs

import "fmt"

// ConfigError wraps a failure loading or validating a pipeline
// configuration file.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// CycleError reports a dependency cycle found while building a
// DependencySolver graph, naming one resource reference on the cycle -
// the Go equivalent of the ValueError radiome.execution.__init__'s
// DependencySolver.graph raises via nx.find_cycle.
type CycleError struct {
	Reference string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("execution: dependency cycle detected at %q", e.Reference)
}

// BroadKeyError reports a resourcekey.Key that was too broad (no
// entities and a wildcard suffix) for the operation attempting to use
// it - returned by Pool.Extract for such a query key.
type BroadKeyError struct {
	Key string
}

func (e *BroadKeyError) Error() string {
	return fmt.Sprintf("resourcekey: key too broad for this operation: %s", e.Key)
}

// FilterInsertError reports an attempt to store a resource under a
// filter key (one carrying a wildcard or absent quantifier), which is
// never a valid storage location.
type FilterInsertError struct {
	Key string
}

func (e *FilterInsertError) Error() string {
	return fmt.Sprintf("resourcepool: cannot store a resource under filter key: %s", e.Key)
}

// JobError wraps a failure returned by a Job's Run method, naming the
// job's reference label for logging.
type JobError struct {
	Reference string
	Err       error
}

func (e *JobError) Error() string {
	return fmt.Sprintf("job: %s failed: %v", e.Reference, e.Err)
}

func (e *JobError) Unwrap() error { return e.Err }

// MissingDependencyError reports that a job could not run because one of
// its upstream dependencies failed or was itself missing a dependency -
// the execution-graph equivalent of radiome's gatherer substituting an
// InvalidResource for a failed node's dependents.
type MissingDependencyError struct {
	Reference string
	Err       error
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("execution: %s skipped, missing dependency: %v", e.Reference, e.Err)
}

func (e *MissingDependencyError) Unwrap() error { return e.Err }

// IOError wraps a failure reading, writing, or materializing a file
// resource (local filesystem or remote upload/download).
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("io: %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
