package execution

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/radiome-lab/radiome/internal/errs"
	"github.com/radiome-lab/radiome/internal/job"
	"github.com/radiome-lab/radiome/internal/resourcepool"
)

// NodeTiming reports one graph node's wall-clock execution duration,
// fed to an executor's optional OnNodeDone hook - the structured-field
// equivalent of the original's ad hoc print() timing statements around
// pipeline execution (radiome/core/pipeline.py's
// "Executing pipeline......."/"Execution Completed."), used to back the
// --diagnostics report.
type NodeTiming struct {
	Label    string
	Duration time.Duration
	Err      error
}

// resolveInputs resolves a node's own dependency map against already
// computed results, returning an error for a failed or missing
// dependency rather than panicking, so both job and plain-resource
// nodes can share the same gathering logic. The returned error names the
// failed input only; it does not wrap the upstream node's own error.
func resolveInputs(deps map[string]resourcepool.Resource, get func(any) (Result, bool)) (map[string]any, error) {
	inputs := make(map[string]any, len(deps))
	var firstErr error
	for field, dep := range deps {
		item := unwrap(dep)
		res, ok := get(item)
		if !ok {
			return nil, fmt.Errorf("execution: dependency %q was never computed", field)
		}
		if res.Failed() {
			if firstErr == nil {
				firstErr = fmt.Errorf("execution: dependency %q failed", field)
			}
			continue
		}
		inputs[field] = res.Value
	}
	return inputs, firstErr
}

// computeNode runs a single node given its already-computed dependency
// results: a Job node gets a fresh scratch directory and its Run
// invoked; a plain resource node has Resolve called directly. Mirrors
// radiome/execution/__init__.py's State.__call__ branching on
// isinstance(resource, Job).
func computeNode(ctx context.Context, workDir string, node *Node, get func(any) (Result, bool)) Result {
	deps := node.dependencies()
	inputs, depErr := resolveInputs(deps, get)
	if depErr != nil {
		return Result{Err: &errs.MissingDependencyError{Reference: refLabel(node), Err: depErr}, MissingDeps: true}
	}

	if node.AsJob != nil {
		state, err := NewState(workDir, node.Hash)
		if err != nil {
			return Result{Err: err}
		}
		out, err := node.AsJob.Run(ctx, state.Dir, inputs)
		if err != nil {
			return Result{Err: &errs.JobError{Reference: refLabel(node), Err: err}}
		}
		return Result{Value: out}
	}

	v, err := node.AsResource.Resolve(inputs)
	if err != nil {
		return Result{Err: err}
	}
	return Result{Value: v}
}

// SequentialExecutor runs every graph node, one at a time, on the calling
// goroutine, walking each weakly connected component in turn and the
// nodes of a component in topological order - the direct port of
// radiome/execution/executor.py's Execution.execute.
type SequentialExecutor struct {
	// OnNodeDone, if set, is called after every node finishes (whether
	// it succeeded, failed, or was skipped for missing dependencies).
	OnNodeDone func(NodeTiming)
}

// Execute runs every node in g, returning a Result per node keyed by the
// node's (unwrapped) Item. A node whose dependencies failed is recorded
// as MissingDeps rather than aborting the remaining graph, matching the
// original's per-job try/except around each job(**dependencies) call.
func (e SequentialExecutor) Execute(ctx context.Context, g *Graph, workDir string) (map[any]Result, error) {
	results := make(map[any]Result, len(g.order))
	get := func(item any) (Result, bool) {
		r, ok := results[item]
		return r, ok
	}
	for _, component := range g.WeaklyConnectedComponents() {
		for _, node := range component {
			if err := ctx.Err(); err != nil {
				return results, err
			}
			start := time.Now()
			res := computeNode(ctx, workDir, node, get)
			if e.OnNodeDone != nil {
				e.OnNodeDone(NodeTiming{Label: refLabel(node), Duration: time.Since(start), Err: res.Err})
			}
			results[node.Item] = res
		}
	}
	return results, nil
}

// ParallelExecutor runs graph nodes concurrently, dispatching each
// weakly-connected component as a single scheduling unit (so
// a component's nodes share one scratch-space reservation) and, within
// a component, admission-controlling individual jobs against both a
// cpu and a memory budget - the goroutine/errgroup/semaphore
// translation of radiome/execution/executor.py's DaskExecution, which
// submits each job to a Dask worker pool with `resources={'cpu': ...,
// 'memory': ...}` and gathers futures back per component. Concurrency
// defaults to runtime.NumCPU if unset; MemoryBudget and StorageBudget
// default to the largest aggregate demand of any single component (see
// dimensionCapacity), so a component never waits on its own demand for
// those dimensions, while several components can still wait for one
// another.
type ParallelExecutor struct {
	Concurrency   int64
	MemoryBudget  float64 // GB; <=0 sizes memory capacity to the busiest component
	StorageBudget float64 // GB; <=0 sizes storage capacity to the busiest component
	// OnNodeDone, if set, is called after every node finishes, from
	// whichever goroutine ran it - callers must make it safe for
	// concurrent use.
	OnNodeDone func(NodeTiming)
}

// dimensionWeight converts a job.ResourceEstimate field into a
// semaphore.Weighted unit: fractional or zero estimates still reserve
// at least one unit, and a request exceeding the dimension's whole
// capacity is clamped to it rather than erroring, matching the prior
// single-dimension behavior.
func dimensionWeight(v float64, capacity int64) int64 {
	w := int64(math.Ceil(v))
	if w < 1 {
		w = 1
	}
	if w > capacity {
		w = capacity
	}
	return w
}

// Execute runs every node in g, returning the same Result map shape as
// SequentialExecutor.Execute. Components run concurrently with each
// other; within a component, a node starts as soon as every one of its
// direct dependencies has finished (success or not) and the node's
// cpu+memory requirement has been admitted. A dependency that failed or
// was itself skipped propagates as MissingDeps rather than blocking
// forever.
func (e ParallelExecutor) Execute(ctx context.Context, g *Graph, workDir string) (map[any]Result, error) {
	cpuCapacity := e.Concurrency
	if cpuCapacity <= 0 {
		cpuCapacity = int64(runtime.NumCPU())
	}
	cpuSem := semaphore.NewWeighted(cpuCapacity)

	components := g.WeaklyConnectedComponents()

	memCapacity := int64(math.Ceil(e.MemoryBudget))
	if memCapacity <= 0 {
		memCapacity = dimensionCapacity(components, func(r job.ResourceEstimate) float64 { return r.Memory })
	}
	memSem := semaphore.NewWeighted(memCapacity)

	storageCapacity := int64(math.Ceil(e.StorageBudget))
	if storageCapacity <= 0 {
		storageCapacity = dimensionCapacity(components, func(r job.ResourceEstimate) float64 { return r.Storage })
	}
	storageSem := semaphore.NewWeighted(storageCapacity)

	var mu sync.Mutex
	results := make(map[any]Result, len(g.order))
	done := make(map[any]chan struct{}, len(g.order))
	for _, item := range g.order {
		done[item] = make(chan struct{})
	}

	get := func(item any) (Result, bool) {
		mu.Lock()
		defer mu.Unlock()
		r, ok := results[item]
		return r, ok
	}
	set := func(item any, r Result) {
		mu.Lock()
		results[item] = r
		mu.Unlock()
	}

	outer, outerCtx := errgroup.WithContext(ctx)
	for _, component := range components {
		component := component

		componentStorage := int64(0)
		for _, n := range component {
			if n.AsJob != nil {
				componentStorage += dimensionWeight(n.AsJob.Resources().Storage, storageCapacity)
			}
		}
		if componentStorage == 0 {
			componentStorage = 1
		}
		if componentStorage > storageCapacity {
			componentStorage = storageCapacity
		}

		outer.Go(func() error {
			if err := storageSem.Acquire(outerCtx, componentStorage); err != nil {
				return err
			}
			defer storageSem.Release(componentStorage)

			inner, innerCtx := errgroup.WithContext(outerCtx)
			for _, node := range component {
				node := node
				item := node.Item
				deps := node.dependencies()

				inner.Go(func() error {
					for _, dep := range deps {
						depItem := unwrap(dep)
						select {
						case <-done[depItem]:
						case <-innerCtx.Done():
							return innerCtx.Err()
						}
					}

					cpuWeight, memWeight := int64(1), int64(1)
					if node.AsJob != nil {
						r := node.AsJob.Resources()
						cpuWeight = dimensionWeight(r.CPU, cpuCapacity)
						memWeight = dimensionWeight(r.Memory, memCapacity)
					}
					if err := cpuSem.Acquire(innerCtx, cpuWeight); err != nil {
						return err
					}
					if err := memSem.Acquire(innerCtx, memWeight); err != nil {
						cpuSem.Release(cpuWeight)
						return err
					}

					start := time.Now()
					res := computeNode(innerCtx, workDir, node, get)
					cpuSem.Release(cpuWeight)
					memSem.Release(memWeight)
					if e.OnNodeDone != nil {
						e.OnNodeDone(NodeTiming{Label: refLabel(node), Duration: time.Since(start), Err: res.Err})
					}

					set(item, res)
					close(done[item])
					return nil
				})
			}
			return inner.Wait()
		})
	}

	if err := outer.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// dimensionCapacity picks an unconstrained-but-still-enforced capacity
// for a resource dimension when the caller leaves its budget unset: the
// largest single component's aggregate demand on that dimension, so
// admission control still runs (and still serializes oversubscribed
// components) without an unconfigured run ever deadlocking on a budget
// nobody set.
func dimensionCapacity(components [][]*Node, field func(job.ResourceEstimate) float64) int64 {
	var max int64 = 1
	for _, component := range components {
		var total int64
		for _, n := range component {
			if n.AsJob == nil {
				continue
			}
			w := int64(math.Ceil(field(n.AsJob.Resources())))
			if w < 1 {
				w = 1
			}
			total += w
		}
		if total > max {
			max = total
		}
	}
	return max
}
