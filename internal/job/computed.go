package job

import (
	"context"
	"fmt"

	"github.com/radiome-lab/radiome/internal/hashing"
	"github.com/radiome-lab/radiome/internal/resourcepool"
)

// stateInputName is the fixed dependency-field name under which a
// ComputedResource binds the job whose output it projects, mirroring
// ComputedResource's `self._inputs = {'state': job}` in
// radiome/execution/job.py.
const stateInputName = "state"

// ComputedResource is a resource handle onto one named output field of
// a Job (or the job's entire output map, if field is empty) - ported
// from radiome.execution.job.ComputedResource, which subclasses both
// Job and Resource. It implements resourcepool.Resource directly and
// Job through the same embedded BaseJob every other job kind uses, so a
// ComputedResource can itself be bound as another job's input (the
// common "output of job A feeds job B" pipeline wiring) or stored
// directly in a resourcepool.Pool.
type ComputedResource struct {
	BaseJob
	Job   Job
	Field string // empty means "the whole output map"
}

// Output returns a Resource exposing job's named output field - the
// static equivalent of the Python original's dynamic `job.field`
// attribute access (Job.__getattr__), since Go has no analogous
// mechanism. Output does not check field against the job's outputs; a
// field the job does not produce surfaces as an error from
// ComputedResource.Run.
func Output(j Job, field string) *ComputedResource {
	cr := &ComputedResource{BaseJob: NewBaseJob(j.Reference()), Job: j, Field: field}
	cr.Bind(stateInputName, cr.stateDependency())
	return cr
}

// stateDependency wraps Job in the resourcepool.Resource interface via
// a thin adapter, since Job itself only implements hashing.Hashable,
// not Resolve/Dependencies in the Resource sense (Job.Run takes two
// extra parameters a generic Resource can't plumb through).
func (cr *ComputedResource) stateDependency() resourcepool.Resource {
	return jobResource{cr.Job}
}

// Wrapper is implemented by resourcepool.Resource adapters (jobResource
// below is the only one) that stand in for a Job that Go's stricter
// interfaces can't let satisfy resourcepool.Resource directly.
// internal/execution's graph builder unwraps through it so the graph
// node for a ComputedResource's "state" input is the wrapped Job itself
// (with its own Run), not the inert adapter.
type Wrapper interface {
	WrappedJob() Job
}

// jobResource adapts a Job to resourcepool.Resource so DependencySolver
// can walk a ComputedResource's single "state" dependency edge the same
// way it walks any other resource dependency. Resolve is never actually
// called on it: internal/execution drives Job.Run directly (it needs
// the workDir and context Job.Run requires, which Resource.Resolve's
// narrower signature has no room for) and only uses jobResource to
// surface the job as a graph node via Dependencies(), unwrapping it back
// to the real Job via WrappedJob.
type jobResource struct{ job Job }

func (r jobResource) HashContent() any                               { return r.job.HashContent() }
func (r jobResource) Dependencies() map[string]resourcepool.Resource { return r.job.Dependencies() }
func (r jobResource) WrappedJob() Job                                { return r.job }

func (r jobResource) Resolve(map[string]any) (any, error) {
	return nil, fmt.Errorf("job: jobResource.Resolve must not be called; internal/execution drives Job.Run directly")
}

var _ Wrapper = jobResource{}

func (cr *ComputedResource) HashContent() any {
	return []any{cr.Reference(), shadowOf(cr.Job).HashContent(), cr.Field}
}

// Dependencies implements Job by exposing the job as a single "state"
// dependency. It also satisfies the resourcepool.Resource contract
// (which additionally needs a no-field-name Dependencies; both agree
// here since a ComputedResource only ever has the one bound input).
func (cr *ComputedResource) Dependencies() map[string]resourcepool.Resource {
	return cr.BaseJob.Dependencies()
}

// Run implements Job by projecting Field out of the resolved job state
// map, or returning the whole map when Field is empty - the Go
// equivalent of ComputedResource.__call__(state).
func (cr *ComputedResource) Run(ctx context.Context, workDir string, inputs map[string]any) (map[string]any, error) {
	state, ok := inputs[stateInputName].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("job: ComputedResource expected a %q input map, got %T", stateInputName, inputs[stateInputName])
	}
	if cr.Field == "" {
		return state, nil
	}
	v, ok := state[cr.Field]
	if !ok {
		return nil, fmt.Errorf("job: output field %q not produced by %s", cr.Field, cr.Job.Reference())
	}
	return map[string]any{cr.Field: v}, nil
}

// Resolve implements resourcepool.Resource. Like jobResource.Resolve,
// this is never meant to be invoked by the executor, which drives
// ComputedResource through Job.Run (needing ctx/workDir it doesn't
// have); it exists so ComputedResource satisfies resourcepool.Resource
// for storage in a Pool and for being Bind-able as another job's input.
func (cr *ComputedResource) Resolve(map[string]any) (any, error) {
	return nil, fmt.Errorf("job: ComputedResource.Resolve must not be called; internal/execution drives Job.Run directly")
}

var _ Job = (*ComputedResource)(nil)
var _ resourcepool.Resource = (*ComputedResource)(nil)
var _ hashing.Hashable = (*ComputedResource)(nil)
