package execution

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radiome-lab/radiome/internal/job"
	"github.com/radiome-lab/radiome/internal/resourcekey"
	"github.com/radiome-lab/radiome/internal/resourcepool"
)

func mustKey(t *testing.T, raw string) resourcekey.Key {
	t.Helper()
	k, err := resourcekey.New(raw)
	require.NoError(t, err, "New(%q)", raw)
	return k
}

func buildLinearPool(t *testing.T) (*resourcepool.Pool, *job.ComputedResource) {
	t.Helper()
	pool := resourcepool.New()

	greet := job.NewFunctionJob("greet", "greet-v1", func(_ context.Context, _ string, inputs map[string]any) (map[string]any, error) {
		return map[string]any{"message": "hello " + inputs["name"].(string)}, nil
	})
	greet.Bind("name", resourcepool.NewLiteral("world"))

	cr := job.Output(greet, "message")
	require.NoError(t, pool.Set(mustKey(t, "sub-001_mask"), cr))
	return pool, cr
}

func TestBuildTopologicalOrderAndHash(t *testing.T) {
	pool, _ := buildLinearPool(t)
	g, err := Build(pool)
	require.NoError(t, err)

	nodes := g.Nodes()
	require.NotEmpty(t, nodes, "expected at least one node")
	for _, n := range nodes {
		assert.NotEmpty(t, n.Hash, "node %v missing finalized hash", n.Item)
	}

	// The ComputedResource node must come after the greet FunctionJob
	// node it wraps (jobResource unwrapped to the job itself).
	var crIdx, jobIdx = -1, -1
	for i, n := range nodes {
		if n.AsJob != nil && n.AsJob.Reference() == "greet" {
			if _, isCR := n.Item.(*job.ComputedResource); isCR {
				crIdx = i
			} else {
				jobIdx = i
			}
		}
	}
	require.NotEqual(t, -1, jobIdx, "expected the upstream job in the graph")
	require.NotEqual(t, -1, crIdx, "expected the ComputedResource in the graph")
	assert.Less(t, jobIdx, crIdx, "expected upstream job to precede ComputedResource in topological order")
}

func TestBuildDetectsCycle(t *testing.T) {
	pool := resourcepool.New()
	a := job.NewFunctionJob("a", "a-v1", nil)
	b := job.NewFunctionJob("b", "b-v1", nil)
	a.Bind("input", job.Output(b, ""))
	b.Bind("input", job.Output(a, ""))

	require.NoError(t, pool.Set(mustKey(t, "sub-001_mask"), job.Output(a, "")))
	_, err := Build(pool)
	assert.Error(t, err, "expected a cycle error")
}

func TestSequentialExecutorRunsLinearPipeline(t *testing.T) {
	pool, cr := buildLinearPool(t)
	g, err := Build(pool)
	require.NoError(t, err)

	results, err := (SequentialExecutor{}).Execute(context.Background(), g, t.TempDir())
	require.NoError(t, err)

	res, ok := results[cr]
	require.True(t, ok, "no result recorded for the ComputedResource node")
	require.False(t, res.Failed(), "unexpected failure: %v", res.Err)

	out, ok := res.Value.(map[string]any)
	require.True(t, ok, "unexpected output: %#v", res.Value)
	assert.Equal(t, "hello world", out["message"])
}

func TestParallelExecutorRunsLinearPipeline(t *testing.T) {
	pool, cr := buildLinearPool(t)
	g, err := Build(pool)
	require.NoError(t, err)

	results, err := (ParallelExecutor{Concurrency: 4}).Execute(context.Background(), g, t.TempDir())
	require.NoError(t, err)
	assert.False(t, results[cr].Failed(), "unexpected failure: %v", results[cr].Err)
}

func TestGatherProducesLiteralAndInvalid(t *testing.T) {
	pool := resourcepool.New()

	ok := job.NewFunctionJob("ok", "ok-v1", func(_ context.Context, _ string, _ map[string]any) (map[string]any, error) {
		return map[string]any{"value": 42}, nil
	})
	okCR := job.Output(ok, "value")
	require.NoError(t, pool.Set(mustKey(t, "sub-001_mask"), okCR))

	failing := job.NewMockJob("bad", nil)
	failing.Err = errFixture
	badCR := job.Output(failing, "value")
	require.NoError(t, pool.Set(mustKey(t, "sub-002_bold"), badCR))

	g, err := Build(pool)
	require.NoError(t, err)
	results, err := (SequentialExecutor{}).Execute(context.Background(), g, t.TempDir())
	require.NoError(t, err)

	gathered, err := Gather(pool, g, results)
	require.NoError(t, err)

	okResource, _, err := gathered.Get(mustKey(t, "sub-001_mask"))
	require.NoError(t, err, "Get ok")
	v, err := okResource.Resolve(nil)
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	badResource, _, err := gathered.Get(mustKey(t, "sub-002_bold"))
	require.NoError(t, err, "Get bad")
	_, ok := badResource.(*resourcepool.Invalid)
	assert.True(t, ok, "expected an Invalid tombstone, got %T", badResource)
}

// TestParallelExecutorOverlapsIndependentJobs covers spec scenario 3:
// two independent sleeping jobs on a 2-worker parallel executor finish
// within a wall-clock delta less than their combined duration, while
// the same workload on the sequential executor takes at least that
// long.
func TestParallelExecutorOverlapsIndependentJobs(t *testing.T) {
	const sleepDur = 150 * time.Millisecond

	build := func(t *testing.T) *resourcepool.Pool {
		t.Helper()
		pool := resourcepool.New()
		for i, label := range []string{"sub-001_mask", "sub-002_mask"} {
			sleeper := job.NewFunctionJob(fmt.Sprintf("sleeper-%d", i), "sleeper-v1", func(ctx context.Context, _ string, _ map[string]any) (map[string]any, error) {
				select {
				case <-time.After(sleepDur):
				case <-ctx.Done():
					return nil, ctx.Err()
				}
				return map[string]any{"done": true}, nil
			})
			require.NoError(t, pool.Set(mustKey(t, label), job.Output(sleeper, "done")))
		}
		return pool
	}

	parallelPool := build(t)
	g, err := Build(parallelPool)
	require.NoError(t, err)

	start := time.Now()
	_, err = (ParallelExecutor{Concurrency: 2, MemoryBudget: 100, StorageBudget: 100}).Execute(context.Background(), g, t.TempDir())
	require.NoError(t, err)
	parallelElapsed := time.Since(start)
	assert.Less(t, parallelElapsed, 2*sleepDur, "two independent jobs should overlap under a 2-worker parallel executor")

	sequentialPool := build(t)
	g2, err := Build(sequentialPool)
	require.NoError(t, err)

	start = time.Now()
	_, err = (SequentialExecutor{}).Execute(context.Background(), g2, t.TempDir())
	require.NoError(t, err)
	sequentialElapsed := time.Since(start)
	assert.GreaterOrEqual(t, sequentialElapsed, 2*sleepDur, "independent jobs run one at a time under the sequential executor")
}

// TestFailureIsolationPropagatesMissingDependency covers spec scenario
// 4: job A fails, job B succeeds, and they share no edges; a consumer
// downstream of A gathers as Invalid while a consumer downstream of B
// gathers as a valid result.
func TestFailureIsolationPropagatesMissingDependency(t *testing.T) {
	pool := resourcepool.New()

	projectUpstream := func(inputs map[string]any) any {
		if m, ok := inputs["upstream"].(map[string]any); ok {
			return m["value"]
		}
		return inputs["upstream"]
	}

	failing := job.NewMockJob("a", nil)
	failing.Err = errFixture
	aOut := job.Output(failing, "value")

	downstreamOfA := job.NewFunctionJob("downstream-a", "downstream-v1", func(_ context.Context, _ string, inputs map[string]any) (map[string]any, error) {
		return map[string]any{"value": projectUpstream(inputs)}, nil
	})
	downstreamOfA.Bind("upstream", aOut)
	downstreamOfACR := job.Output(downstreamOfA, "value")

	succeeding := job.NewMockJob("b", map[string]any{"value": "ok"})
	bOut := job.Output(succeeding, "value")

	downstreamOfB := job.NewFunctionJob("downstream-b", "downstream-v1", func(_ context.Context, _ string, inputs map[string]any) (map[string]any, error) {
		return map[string]any{"value": projectUpstream(inputs)}, nil
	})
	downstreamOfB.Bind("upstream", bOut)
	downstreamOfBCR := job.Output(downstreamOfB, "value")

	require.NoError(t, pool.Set(mustKey(t, "sub-001_mask"), downstreamOfACR))
	require.NoError(t, pool.Set(mustKey(t, "sub-002_mask"), downstreamOfBCR))

	g, err := Build(pool)
	require.NoError(t, err)

	results, err := (SequentialExecutor{}).Execute(context.Background(), g, t.TempDir())
	require.NoError(t, err)

	gathered, err := Gather(pool, g, results)
	require.NoError(t, err)

	aResource, _, err := gathered.Get(mustKey(t, "sub-001_mask"))
	require.NoError(t, err)
	_, isInvalid := aResource.(*resourcepool.Invalid)
	assert.True(t, isInvalid, "expected downstream of a failed job to gather as Invalid, got %T", aResource)

	bResource, _, err := gathered.Get(mustKey(t, "sub-002_mask"))
	require.NoError(t, err)
	v, err := bResource.Resolve(nil)
	require.NoError(t, err)
	out, ok := v.(string)
	require.True(t, ok, "unexpected value %#v for downstream of a successful job", v)
	assert.Equal(t, "ok", out)
}

var errFixture = fmtErrorf("boom")

func fmtErrorf(s string) error { return &fixtureErr{s} }

type fixtureErr struct{ msg string }

func (e *fixtureErr) Error() string { return e.msg }
