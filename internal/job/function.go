package job

import (
	"context"
	"fmt"

	"github.com/radiome-lab/radiome/internal/hashing"
)

// Func is the signature a FunctionJob wraps: a plain Go function from
// resolved named inputs to named outputs, run with workDir as its
// private scratch directory.
type Func func(ctx context.Context, workDir string, inputs map[string]any) (map[string]any, error)

// FunctionJob runs an in-process Go function - the Go analogue of
// radiome.execution.job.PythonJob, which wraps an arbitrary Python
// callable with cloudpickle. Go has no safe equivalent of pickling a
// closure, so callers must supply a stable FuncID identifying the
// function's identity for hashing purposes (e.g. a registry name); two
// FunctionJobs with the same FuncID and the same bound inputs hash
// equal, exactly as two PythonJobs wrapping byte-identical pickled
// functions would.
type FunctionJob struct {
	BaseJob
	FuncID string
	fn     Func
}

// NewFunctionJob builds a FunctionJob. reference is a human-readable
// label; funcID is the stable identity folded into the hash; fn is the
// function actually invoked by Run.
func NewFunctionJob(reference, funcID string, fn Func) *FunctionJob {
	return &FunctionJob{BaseJob: NewBaseJob(reference), FuncID: funcID, fn: fn}
}

func (f *FunctionJob) HashContent() any {
	return []any{"function", f.FuncID, f.BaseJob.HashContent()}
}

func (f *FunctionJob) Run(ctx context.Context, workDir string, inputs map[string]any) (map[string]any, error) {
	if f.fn == nil {
		return nil, fmt.Errorf("job: FunctionJob %q has no function bound", f.FuncID)
	}
	return f.fn(ctx, workDir, inputs)
}

var _ Job = (*FunctionJob)(nil)
var _ hashing.Hashable = (*FunctionJob)(nil)
