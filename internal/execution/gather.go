package execution

import (
	"fmt"

	"github.com/radiome-lab/radiome/internal/job"
	"github.com/radiome-lab/radiome/internal/resourcepool"
)

// Gather rebuilds a fresh resourcepool.Pool from an executed graph's
// results: every key originally bound in pool gets its resolved value
// (or, for a ComputedResource, its projected output field) wrapped as a
// Literal, and every key whose node failed or was skipped gets an
// Invalid tombstone instead - the Go port of
// radiome/execution/__init__.py's DependencySolver.execute final
// gathering loop, which substitutes an InvalidResource for any resource
// whose job raised or whose own dependency chain failed.
func Gather(pool *resourcepool.Pool, g *Graph, results map[any]Result) (*resourcepool.Pool, error) {
	out := resourcepool.New()
	for _, e := range pool.Entries() {
		item := unwrap(e.Resource)
		res, ok := results[item]
		if !ok {
			return nil, fmt.Errorf("execution: no result computed for %s", e.Key.String())
		}

		var resource resourcepool.Resource
		switch {
		case res.Failed():
			resource = resourcepool.NewInvalid(e.Resource, res.Err)
		default:
			resource = resourcepool.NewLiteral(projectValue(e.Resource, res.Value))
		}
		if err := out.Set(e.Key, resource); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// projectValue narrows a node's raw result to the single value a pool
// entry should carry. A ComputedResource's Run already projects its own
// Field out of the upstream job's output map (see job.ComputedResource.Run),
// so its result map always has exactly the one relevant entry; everything
// else (plain resources, and jobs stored directly without a
// ComputedResource wrapper) is carried through unchanged.
func projectValue(resource resourcepool.Resource, value any) any {
	cr, ok := resource.(*job.ComputedResource)
	if !ok || cr.Field == "" {
		return value
	}
	state, ok := value.(map[string]any)
	if !ok {
		return value
	}
	return state[cr.Field]
}
