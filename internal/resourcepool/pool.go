package resourcepool

import (
	"fmt"
	"sort"

	"github.com/radiome-lab/radiome/internal/errs"
	"github.com/radiome-lab/radiome/internal/hashing"
	"github.com/radiome-lab/radiome/internal/resourcekey"
)

// entry is a stored (key, resource) pair. Key is kept alongside its hash
// because resourcekey.Key embeds maps and cannot itself be a Go map key.
type entry struct {
	key      resourcekey.Key
	resource Resource
}

// Pool is a keyed container of resources addressed by resourcekey.Key,
// with auxiliary indexes by suffix, by tag, and by branching entity -
// mirroring the four dict indexes radiome's ResourcePool maintains
// alongside its primary map.
type Pool struct {
	items map[string]entry

	bySuffix map[string]map[string]bool // suffix -> set of item hashes
	byTag    map[string]map[string]bool // tag -> set of item hashes

	branchValues      map[string]map[string]bool            // branching entity -> set of values seen
	branchedResources map[string]map[string]resourcekey.Key  // branching entity -> hash -> key with that entity stripped
}

// New returns an empty Pool.
func New() *Pool {
	p := &Pool{
		items:             map[string]entry{},
		bySuffix:          map[string]map[string]bool{},
		byTag:             map[string]map[string]bool{},
		branchValues:      map[string]map[string]bool{},
		branchedResources: map[string]map[string]resourcekey.Key{},
	}
	for _, b := range resourcekey.BranchingEntities {
		p.branchValues[b] = map[string]bool{}
		p.branchedResources[b] = map[string]resourcekey.Key{}
	}
	return p
}

func hashOf(k resourcekey.Key) string {
	return hashing.Hash(k.HashContent())
}

// ErrNotFound is returned by Get when no stored key matches the query.
var ErrNotFound = fmt.Errorf("resourcepool: resource not found")

// Set binds resource to key. key must not be a filter (no quantifiers),
// and must not already be bound.
func (p *Pool) Set(key resourcekey.Key, resource Resource) error {
	if key.IsFilter() {
		return fmt.Errorf("resourcepool: resource key cannot be a filter: %s", key.String())
	}
	h := hashOf(key)
	if _, exists := p.items[h]; exists {
		return fmt.Errorf("resourcepool: resource key %s already exists in the pool", key.String())
	}
	p.items[h] = entry{key: key, resource: resource}

	suffix := key.Suffix()
	if p.bySuffix[suffix] == nil {
		p.bySuffix[suffix] = map[string]bool{}
	}
	p.bySuffix[suffix][h] = true

	stripAll := map[string]string{}
	for _, b := range resourcekey.BranchingEntities {
		if _, ok := key.Entity(b); ok {
			stripAll[b] = resourcekey.Unset
		}
	}
	clean, err := key.With(stripAll)
	if err != nil {
		return err
	}
	for _, b := range resourcekey.BranchingEntities {
		if v, ok := key.Entity(b); ok {
			p.branchValues[b][v] = true
			p.branchedResources[b][hashOf(clean)] = clean
		}
	}

	for t := range key.Tags() {
		if p.byTag[t] == nil {
			p.byTag[t] = map[string]bool{}
		}
		p.byTag[t][h] = true
	}
	return nil
}

// Contains reports whether any stored key satisfies filter.
func (p *Pool) Contains(filter resourcekey.Key) bool {
	for _, e := range p.items {
		if filter.Matches(e.key) {
			return true
		}
	}
	return false
}

// Get resolves query against the pool: an exact match is returned
// directly; otherwise every stored key that query (as a filter) matches
// is collected and the greatest one under Key.Compare is returned. This
// mirrors the fallback lookup radiome's ResourcePool.__getitem__
// performs for a non-filter key that is not itself a pool entry.
func (p *Pool) Get(query resourcekey.Key) (Resource, resourcekey.Key, error) {
	if e, ok := p.items[hashOf(query)]; ok {
		return e.resource, e.key, nil
	}

	var candidates []entry
	for _, e := range p.items {
		if query.Matches(e.key) {
			candidates = append(candidates, e)
		}
	}
	if len(candidates) == 0 {
		return nil, resourcekey.Key{}, ErrNotFound
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		cmp, err := c.key.Compare(best.key)
		if err != nil {
			return nil, resourcekey.Key{}, fmt.Errorf("resourcepool: ambiguous lookup for %s: %w", query.String(), err)
		}
		if cmp > 0 {
			best = c
		}
	}
	return best.resource, best.key, nil
}

// Select returns a new Pool containing every entry that filter matches -
// the sub-pool view produced when indexing a ResourcePool with a filter
// key.
func (p *Pool) Select(filter resourcekey.Key) (*Pool, error) {
	out := New()
	for _, e := range p.items {
		if !filter.Matches(e.key) {
			continue
		}
		if err := out.Set(e.key, e.resource); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// BySuffix returns every entry with the given suffix.
func (p *Pool) BySuffix(suffix string) []resourcekey.Key {
	var out []resourcekey.Key
	for h := range p.bySuffix[suffix] {
		out = append(out, p.items[h].key)
	}
	return out
}

// ByTag returns every entry carrying the given tag.
func (p *Pool) ByTag(tag string) []resourcekey.Key {
	var out []resourcekey.Key
	for h := range p.byTag[tag] {
		out = append(out, p.items[h].key)
	}
	return out
}

// Keys returns every key currently stored, in no particular order.
func (p *Pool) Keys() []resourcekey.Key {
	out := make([]resourcekey.Key, 0, len(p.items))
	for _, e := range p.items {
		out = append(out, e.key)
	}
	return out
}

// Len returns the number of stored entries.
func (p *Pool) Len() int { return len(p.items) }

// Entry is one stored (key, resource) pair, exposed read-only for callers
// (internal/execution's DependencySolver) that need to walk every pool
// binding rather than look one up by key.
type Entry struct {
	Key      resourcekey.Key
	Resource Resource
}

// Entries returns every stored (key, resource) pair, in no particular
// order.
func (p *Pool) Entries() []Entry {
	out := make([]Entry, 0, len(p.items))
	for _, e := range p.items {
		out = append(out, Entry{Key: e.key, Resource: e.resource})
	}
	return out
}

// ExtractResult is one element of Pool.Extract's result: a strategy
// descriptor key (carrying the branching-entity and strategy-fork
// values pinned for this combination) paired with a view over the
// originating pool scoped to that combination.
type ExtractResult struct {
	Strategy resourcekey.Key
	Pool     *StrategyPool
}

// Extract enumerates every consistent combination of branching-entity
// values and strategy forks that satisfies every query key, yielding one
// ExtractResult per combination. It is a direct port of
// ResourcePool.extract's Cartesian-product search: broaden queries are
// rejected outright, branching entities that no query wildcards are
// expanded across every concrete value seen in the pool, and strategy
// forks referenced anywhere among the matches are expanded across every
// value bound to that fork name. A combination under which two
// different matches would address the same key with different resources
// is a hard error; a combination under which some query has no match is
// silently skipped.
func (p *Pool) Extract(queries ...resourcekey.Key) ([]ExtractResult, error) {
	for _, q := range queries {
		if q.IsBroad() {
			return nil, &errs.BroadKeyError{Key: q.String()}
		}
	}

	matches := make([][]resourcekey.Key, len(queries))
	strategyValues := map[string]map[string]bool{}
	for i, q := range queries {
		var m []resourcekey.Key
		for _, e := range p.items {
			if q.Matches(e.key) {
				m = append(m, e.key)
			}
		}
		matches[i] = m
		for _, candidate := range m {
			for _, f := range candidate.Strategy().Forks() {
				if strategyValues[f.Name] == nil {
					strategyValues[f.Name] = map[string]bool{}
				}
				strategyValues[f.Name][f.Value] = true
			}
		}
	}

	var branchingKeys []string
	for _, b := range resourcekey.BranchingEntities {
		if len(p.branchValues[b]) == 0 {
			continue
		}
		noWildcard := true
		for _, q := range queries {
			if v, ok := q.Entity(b); ok && v == resourcekey.Any {
				noWildcard = false
				break
			}
		}
		if !noWildcard {
			continue
		}
		used := false
		for _, clean := range p.branchedResources[b] {
			for _, q := range queries {
				if clean.Matches(q) {
					used = true
					break
				}
			}
			if used {
				break
			}
		}
		if used {
			branchingKeys = append(branchingKeys, b)
		}
	}

	branchingValueSets := make([][]string, len(branchingKeys))
	for i, b := range branchingKeys {
		branchingValueSets[i] = sortedKeys(p.branchValues[b])
	}

	strategyKeys := sortedKeys(strategyValues)
	strategyValueSets := make([][]string, len(strategyKeys))
	for i, name := range strategyKeys {
		strategyValueSets[i] = sortedKeys(strategyValues[name])
	}

	combos := cartesianProduct(append(append([][]string{}, branchingValueSets...), strategyValueSets...))

	var results []ExtractResult
	for _, combo := range combos {
		branchingValues := combo[:len(branchingKeys)]
		forkValues := combo[len(branchingKeys):]

		expectedBranching := map[string]string{}
		for i, b := range branchingKeys {
			expectedBranching[b] = branchingValues[i]
		}

		var forks []resourcekey.Fork
		for i, name := range strategyKeys {
			forks = append(forks, resourcekey.Fork{Name: name, Value: forkValues[i]})
		}
		combination := resourcekey.NewStrategy(forks...)

		strategyKeyOverrides := map[string]string{"suffix": resourcekey.Any}
		for k, v := range expectedBranching {
			strategyKeyOverrides[k] = v
		}
		if combination.Len() > 0 {
			strategyKeyOverrides["strategy"] = combination.String()
		}
		strategyKey, err := resourcekey.FromMap(strategyKeyOverrides)
		if err != nil {
			return nil, err
		}

		ok := true
		seen := map[string]resourcekey.Key{}
		for i, q := range queries {
			unbranching := map[string]string{}
			for _, b := range resourcekey.BranchingEntities {
				if v, present := q.Entity(b); present && v == resourcekey.Any {
					unbranching[b] = resourcekey.Any
				}
			}

			overrides := map[string]string{}
			if combination.Len() > 0 {
				overrides["strategy"] = combination.String()
			}
			for k, v := range expectedBranching {
				overrides[k] = v
			}
			for k, v := range unbranching {
				overrides[k] = v
			}
			filter, err := q.With(overrides)
			if err != nil {
				return nil, err
			}

			var matched []resourcekey.Key
			for _, candidate := range matches[i] {
				if filter.Matches(candidate) {
					matched = append(matched, candidate)
				}
			}
			if len(matched) == 0 {
				ok = false
				break
			}
			for _, ck := range matched {
				h := hashOf(ck)
				if prior, exists := seen[h]; exists {
					if !prior.Equal(ck) {
						return nil, fmt.Errorf("resourcepool: conflicting extraction for key %s", ck.String())
					}
					continue
				}
				seen[h] = ck
			}
		}
		if !ok {
			continue
		}
		results = append(results, ExtractResult{Strategy: strategyKey, Pool: NewStrategyPool(strategyKey, p)})
	}
	return results, nil
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// cartesianProduct returns the Cartesian product of the given lists, in
// the same sense as itertools.product: a single empty combination when
// given zero lists, never an empty result set.
func cartesianProduct(lists [][]string) [][]string {
	result := [][]string{{}}
	for _, list := range lists {
		var next [][]string
		for _, prefix := range result {
			for _, v := range list {
				combo := make([]string, len(prefix)+1)
				copy(combo, prefix)
				combo[len(prefix)] = v
				next = append(next, combo)
			}
		}
		result = next
	}
	return result
}

// StrategyPool is a read/write view over a Pool scoped to a fixed
// strategy key: every key passed through it has the strategy's entities
// and strategy forks merged in before touching the underlying pool, so
// callers can address resources without repeating the branching/fork
// values pinned by Pool.Extract.
type StrategyPool struct {
	strategy resourcekey.Key
	ref      *Pool
}

// NewStrategyPool builds a StrategyPool scoped to strategy over ref.
func NewStrategyPool(strategy resourcekey.Key, ref *Pool) *StrategyPool {
	return &StrategyPool{strategy: strategy, ref: ref}
}

// Map merges key into the pool's pinned strategy key: key's own suffix,
// entities, and strategy forks win over the pinned ones, except that the
// two strategies are additively combined rather than one replacing the
// other.
func (sp *StrategyPool) Map(key resourcekey.Key) (resourcekey.Key, error) {
	overrides := map[string]string{"suffix": sp.strategy.Suffix()}
	for e, v := range sp.strategy.Entities() {
		overrides[e] = v
	}
	overrides["suffix"] = key.Suffix()
	for e, v := range key.Entities() {
		overrides[e] = v
	}
	combined := sp.strategy.Strategy().Plus(key.Strategy())
	if combined.Len() > 0 {
		overrides["strategy"] = combined.String()
	}
	return resourcekey.FromMap(overrides)
}

// Contains reports whether the mapped key is bound in the underlying pool.
func (sp *StrategyPool) Contains(key resourcekey.Key) (bool, error) {
	mapped, err := sp.Map(key)
	if err != nil {
		return false, err
	}
	return sp.ref.Contains(mapped), nil
}

// Get resolves the mapped key against the underlying pool.
func (sp *StrategyPool) Get(key resourcekey.Key) (Resource, resourcekey.Key, error) {
	mapped, err := sp.Map(key)
	if err != nil {
		return nil, resourcekey.Key{}, err
	}
	return sp.ref.Get(mapped)
}

// Set binds resource to the mapped key in the underlying pool.
func (sp *StrategyPool) Set(key resourcekey.Key, resource Resource) error {
	mapped, err := sp.Map(key)
	if err != nil {
		return err
	}
	return sp.ref.Set(mapped, resource)
}

// Keys returns every key in the underlying pool that the pinned strategy
// matches.
func (sp *StrategyPool) Keys() []resourcekey.Key {
	var out []resourcekey.Key
	for _, k := range sp.ref.Keys() {
		if sp.strategy.Matches(k) {
			out = append(out, k)
		}
	}
	return out
}
