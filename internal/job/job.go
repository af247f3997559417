// Package job implements the unit of computation (Job) that a pipeline
// graph is built from, and the resource handle (ComputedResource) that
// exposes one of a job's named outputs back into a resourcepool.Pool.
package job

import (
	"context"
	"fmt"
	"sort"

	"github.com/radiome-lab/radiome/internal/hashing"
	"github.com/radiome-lab/radiome/internal/resourcepool"
)

// ResourceEstimate is the per-job resource budget consulted by the
// parallel executor's admission control.
type ResourceEstimate struct {
	CPU     float64
	Memory  float64
	Storage float64
}

// DefaultEstimate is the estimate every job kind starts from unless it
// overrides specific fields, mirroring radiome.execution.job.Job's
// hardcoded default `_estimates`.
var DefaultEstimate = ResourceEstimate{CPU: 1, Memory: 3, Storage: 5.0 / 1024}

// Job is one node of the dependency graph: an operation with named
// resource inputs that produces named outputs when Run.
type Job interface {
	hashing.Hashable

	// Run executes the job given the resolved values of its bound
	// inputs (keyed the same way Dependencies() keys them), returning
	// its named outputs. workDir is the job's private scratch
	// directory, already created by the caller - the Go equivalent of
	// the `with cwd(resource_dir):` context manager
	// execution/__init__.py's State wraps every job invocation in.
	// Passing it explicitly rather than mutating the process's current
	// directory is a deliberate deviation from the original (see
	// DESIGN.md): Go's parallel executor runs jobs concurrently across
	// goroutines, and a shared mutable process CWD would be a data
	// race.
	Run(ctx context.Context, workDir string, inputs map[string]any) (map[string]any, error)

	// Dependencies returns the resources this job's inputs are bound
	// to, keyed by input name.
	Dependencies() map[string]resourcepool.Resource

	// Resources returns the job's resource budget estimate.
	Resources() ResourceEstimate

	// Reference is a human-readable label (e.g. a pipeline step name),
	// used for logging and error messages; may be empty. Scratch
	// directories are named by content hash, not by reference.
	Reference() string
}

// BaseJob provides the shared bookkeeping every concrete job kind
// embeds: a reference label, named input bindings, a resource estimate,
// and hash memoization invalidated on bind - ported from
// radiome.execution.job.Job.
type BaseJob struct {
	hashing.Memo
	reference string
	inputs    map[string]resourcepool.Resource
	estimate  ResourceEstimate
}

// NewBaseJob constructs a BaseJob with the default resource estimate.
func NewBaseJob(reference string) BaseJob {
	return BaseJob{reference: reference, inputs: map[string]resourcepool.Resource{}, estimate: DefaultEstimate}
}

// Reference returns the job's label.
func (b *BaseJob) Reference() string { return b.reference }

// Resources returns the job's resource estimate.
func (b *BaseJob) Resources() ResourceEstimate { return b.estimate }

// SetResources overrides the default resource estimate.
func (b *BaseJob) SetResources(e ResourceEstimate) { b.estimate = e }

// Dependencies returns a copy of the job's named input bindings.
func (b *BaseJob) Dependencies() map[string]resourcepool.Resource {
	out := make(map[string]resourcepool.Resource, len(b.inputs))
	for k, v := range b.inputs {
		out[k] = v
	}
	return out
}

// Bind records that input name is satisfied by r, invalidating any
// memoized hash - the Go equivalent of radiome.execution.job.Job's
// dynamic __setattr__ input binding. Passing a bare Go value instead of
// a Resource is a compile error here rather than the runtime
// AttributeError the Python original raises; callers with a plain value
// should wrap it with resourcepool.NewLiteral or resourcepool.AsResource
// first.
func (b *BaseJob) Bind(name string, r resourcepool.Resource) {
	b.inputs[name] = r
	b.Invalidate()
}

// HashContent folds the job's reference and its sorted input bindings
// into a canonical tree. Inputs that are themselves Jobs (i.e. another
// job's ComputedResource) are folded through shadowOf rather than
// recursed into directly, so a job's hash depends on its upstream
// jobs' finalized hashes rather than re-serializing the whole transitive
// subgraph every time - ported from Job.__hashcontent__'s
// `FakeJob(v) if isinstance(v, Job) else v` substitution.
func (b *BaseJob) HashContent() any {
	names := make([]string, 0, len(b.inputs))
	for n := range b.inputs {
		names = append(names, n)
	}
	sort.Strings(names)

	pairs := make([]any, 0, len(names))
	for _, n := range names {
		r := b.inputs[n]
		var content any
		if j, ok := r.(Job); ok {
			content = shadowOf(j).HashContent()
		} else {
			content = r.HashContent()
		}
		pairs = append(pairs, []any{n, content})
	}
	return []any{b.reference, pairs}
}

// shadowJob is the Go equivalent of radiome.execution.job.FakeJob: a
// lightweight stand-in for a job carrying only its reference, finalized
// hash, and display form, used whenever a job must appear as another
// job's input without dragging its entire transitive dependency graph
// along. Its Run and Dependencies are never meant to be called - doing
// so is a programming error, so they panic rather than silently
// returning zero values.
type shadowJob struct {
	reference string
	hash      string
	display   string
}

func shadowOf(j Job) shadowJob {
	var h string
	if m, ok := j.(interface{ Cached() (string, bool) }); ok {
		if cached, set := m.Cached(); set {
			h = cached
		}
	}
	if h == "" {
		h = hashing.Hash(j.HashContent())
	}
	return shadowJob{reference: j.Reference(), hash: h, display: fmt.Sprintf("%T(%s)", j, h)}
}

func (s shadowJob) HashContent() any { return s.hash }
func (s shadowJob) Reference() string { return s.reference }
func (s shadowJob) String() string    { return s.display }

func (s shadowJob) Run(context.Context, string, map[string]any) (map[string]any, error) {
	panic("job: shadowJob must never be run; it is a hash/display stand-in only")
}

func (s shadowJob) Dependencies() map[string]resourcepool.Resource {
	panic("job: shadowJob has no dependencies; it is a hash/display stand-in only")
}

func (s shadowJob) Resources() ResourceEstimate {
	panic("job: shadowJob carries no resource estimate; it is a hash/display stand-in only")
}

var _ Job = shadowJob{}
