// Package execution wires a resourcepool.Pool into a dependency graph and
// drives it to completion, job by job - grounded on
// radiome/execution/__init__.py's DependencySolver and
// radiome/execution/executor.py's Execution/DaskExecution.
package execution

import (
	"fmt"
	"sort"

	"github.com/radiome-lab/radiome/internal/errs"
	"github.com/radiome-lab/radiome/internal/hashing"
	"github.com/radiome-lab/radiome/internal/job"
	"github.com/radiome-lab/radiome/internal/resourcepool"
)

// Node is one item in the graph: either a job.Job or a plain
// resourcepool.Resource (a node can be both at once, as
// *job.ComputedResource is), identified by Go object identity - every
// concrete type this package draws from is always stored behind a
// pointer, so interface-value equality coincides with radiome's
// id(resource)-keyed graph construction.
type Node struct {
	Item any // the resourcepool.Resource or job.Job this node wraps

	AsJob      job.Job              // non-nil iff Item is runnable as a job
	AsResource resourcepool.Resource // non-nil iff Item can also be resolved as a plain resource

	// References holds every pool key (rendered form) this node is
	// directly bound to, mirroring the original graph node's reverse
	// mapping back to resource_pool entries. Empty for nodes only
	// reachable as a transitive dependency.
	References map[string]bool

	// Hash is this node's finalized content hash, set during Build's
	// topological pass - empty until Build returns successfully.
	Hash string
}

// dependencies returns the node's own dependency edges, in the common
// map[string]resourcepool.Resource shape both Job and Resource expose.
func (n *Node) dependencies() map[string]resourcepool.Resource {
	if n.AsJob != nil {
		return n.AsJob.Dependencies()
	}
	if n.AsResource != nil {
		return n.AsResource.Dependencies()
	}
	return nil
}

// Graph is a built, cycle-checked, topologically-ordered dependency graph
// over a resourcepool.Pool's entries and their transitive dependencies.
type Graph struct {
	nodes map[any]*Node
	// order lists every node's Item in dependency-before-dependent order
	// (a node's dependencies() all precede it).
	order []any
}

// Nodes returns every node in topological order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.order))
	for _, item := range g.order {
		out = append(out, g.nodes[item])
	}
	return out
}

// WeaklyConnectedComponents partitions the graph into weakly connected
// components - the scheduling unit both executors dispatch as a whole,
// per spec.md's executor description ("partitions the graph into weakly
// connected components; dispatches each component to a worker pool as a
// single unit"). Each component lists its nodes in the same relative
// order as Nodes(), so component-internal topological order is
// preserved; components themselves are ordered by the position of their
// earliest node, for deterministic dispatch order.
func (g *Graph) WeaklyConnectedComponents() [][]*Node {
	parent := make(map[any]any, len(g.nodes))
	var find func(x any) any
	find = func(x any) any {
		for parent[x] != x {
			x = parent[x]
		}
		return x
	}
	union := func(a, b any) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[ra] = rb
		}
	}
	for item := range g.nodes {
		parent[item] = item
	}
	for item, n := range g.nodes {
		for _, dep := range n.dependencies() {
			union(item, unwrap(dep))
		}
	}

	members := map[any][]*Node{}
	var roots []any
	for _, item := range g.order {
		root := find(item)
		if _, seen := members[root]; !seen {
			roots = append(roots, root)
		}
		members[root] = append(members[root], g.nodes[item])
	}

	components := make([][]*Node, len(roots))
	for i, root := range roots {
		components[i] = members[root]
	}
	return components
}

// NodeFor returns the node for a given item (a resourcepool.Resource or a
// job.Job), or nil if it is not part of the graph.
func (g *Graph) NodeFor(item any) *Node {
	return g.nodes[unwrap(item)]
}

// unwrap follows job.Wrapper adapters back to the Job they stand in for,
// so the graph node for e.g. a ComputedResource's "state" input is the
// upstream Job itself, not the inert resourcepool.Resource adapter that
// only exists to satisfy Go's stricter interface boundary.
func unwrap(item any) any {
	if w, ok := item.(job.Wrapper); ok {
		return w.WrappedJob()
	}
	return item
}

// Build walks every entry in pool plus their transitive dependencies,
// assembling one Node per distinct item instance, checking for
// dependency cycles, and computing a topological execution order with
// each node's hash finalized bottom-up. It is the Go port of
// DependencySolver.graph's property: the original builds an nx.DiGraph by
// walking resource_pool.values() and then a worklist of
// `extra_dependencies` discovered from each item's own .dependencies(),
// exactly as done here with nodes/queue.
func Build(pool *resourcepool.Pool) (*Graph, error) {
	nodes := map[any]*Node{}
	var queue []any

	getOrCreate := func(item any) *Node {
		item = unwrap(item)
		if n, ok := nodes[item]; ok {
			return n
		}
		n := &Node{Item: item, References: map[string]bool{}}
		if j, ok := item.(job.Job); ok {
			n.AsJob = j
		}
		if r, ok := item.(resourcepool.Resource); ok {
			n.AsResource = r
		}
		nodes[item] = n
		queue = append(queue, item)
		return n
	}

	for _, e := range pool.Entries() {
		n := getOrCreate(e.Resource)
		n.References[e.Key.String()] = true
	}
	for i := 0; i < len(queue); i++ {
		n := nodes[queue[i]]
		for _, dep := range n.dependencies() {
			getOrCreate(dep)
		}
	}

	g := &Graph{nodes: nodes}
	order, err := g.topoSort()
	if err != nil {
		return nil, err
	}
	g.order = order

	for _, item := range order {
		n := nodes[item]
		n.Hash = finalizeHash(n)
	}
	return g, nil
}

// topoSort performs a DFS-based topological sort over the dependency
// relation (a node's dependencies() must all be visited, and finished,
// before the node itself is appended), detecting cycles via the standard
// white/gray/black coloring - the hand-rolled equivalent of
// nx.find_cycle / nx.topological_sort, since no graph library is present
// anywhere in the corpus this module draws from.
func (g *Graph) topoSort() ([]any, error) {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[any]int, len(g.nodes))
	var order []any

	// Stable iteration order over the node set, so that a graph built
	// from the same pool always yields the same order when there is no
	// cycle and no dependency ordering constraint between two nodes.
	roots := make([]any, 0, len(g.nodes))
	for item := range g.nodes {
		roots = append(roots, item)
	}
	sort.Slice(roots, func(i, j int) bool {
		return refLabel(g.nodes[roots[i]]) < refLabel(g.nodes[roots[j]])
	})

	var visit func(item any) error
	visit = func(item any) error {
		switch color[item] {
		case black:
			return nil
		case gray:
			return &errs.CycleError{Reference: refLabel(g.nodes[item])}
		}
		color[item] = gray
		n := g.nodes[item]
		deps := make([]any, 0, len(n.dependencies()))
		for _, dep := range n.dependencies() {
			deps = append(deps, unwrap(dep))
		}
		sort.Slice(deps, func(i, j int) bool { return refLabel(g.nodes[deps[i]]) < refLabel(g.nodes[deps[j]]) })
		for _, dep := range deps {
			if err := visit(dep); err != nil {
				return err
			}
		}
		color[item] = black
		order = append(order, item)
		return nil
	}

	for _, item := range roots {
		if err := visit(item); err != nil {
			return nil, err
		}
	}
	return order, nil
}

func refLabel(n *Node) string {
	if n.AsJob != nil {
		return n.AsJob.Reference()
	}
	if s, ok := n.Item.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%p", n.Item)
}

// finalizeHash computes (and, where the item memoizes, caches) n's
// content hash. Calling this in topological order means any downstream
// node that folds the item through job.shadowOf-style caching picks up
// an already-memoized hash instead of recomputing one - the Go stand-in
// for radiome's implicit bottom-up memoization via Python's object
// identity and lru_cache on __hash__.
func finalizeHash(n *Node) string {
	h, ok := n.Item.(hashing.Hashable)
	if !ok {
		return ""
	}
	if m, ok := n.Item.(interface{ Get(func() any) string }); ok {
		return m.Get(func() any { return h.HashContent() })
	}
	return hashing.Hash(h.HashContent())
}
