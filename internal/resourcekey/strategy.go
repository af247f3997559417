// Package resourcekey implements the structured resource identifier
// (ResourceKey) and pipeline-branch descriptor (Strategy) used to
// address values in a ResourcePool, including the filter/match algebra
// described in the resource-pool specification.
package resourcekey

import (
	"fmt"
	"sort"
	"strings"

	"github.com/radiome-lab/radiome/internal/hashing"
)

const (
	keyValSep = "-"
	forkSep   = "+"
)

// Fork is a single (fork-name, fork-value) pair of a Strategy, e.g.
// skullstrip->afni.
type Fork struct {
	Name  string
	Value string
}

// Strategy is an ordered mapping from fork-name to fork-value
// representing a pipeline branch choice (e.g. skullstrip=afni,
// nuisance=gsr). Order is insertion order and only affects String(),
// never equality or hashing.
type Strategy struct {
	forks []Fork
}

// NewStrategy builds a Strategy from an ordered list of forks. Later
// entries with a repeated name overwrite earlier ones, matching the
// dict-update semantics of the Python original.
func NewStrategy(forks ...Fork) Strategy {
	s := Strategy{}
	for _, f := range forks {
		s = s.With(f.Name, f.Value)
	}
	return s
}

// ParseStrategy parses the `name-value+name2-value2` wire form used
// inside a desc entity's `#...` suffix.
func ParseStrategy(raw string) (Strategy, error) {
	if raw == "" {
		return Strategy{}, nil
	}
	var s Strategy
	for _, chunk := range strings.Split(raw, forkSep) {
		kv := strings.SplitN(chunk, keyValSep, 2)
		if len(kv) != 2 || kv[0] == "" || kv[1] == "" {
			return Strategy{}, fmt.Errorf("resourcekey: invalid strategy fragment %q in %q", chunk, raw)
		}
		s = s.With(kv[0], kv[1])
	}
	return s, nil
}

// With returns a copy of s with fork name set to value (overwriting any
// existing value for that name in place, to preserve its original
// position - matching OrderedDict assignment semantics).
func (s Strategy) With(name, value string) Strategy {
	out := Strategy{forks: make([]Fork, len(s.forks))}
	copy(out.forks, s.forks)
	for i, f := range out.forks {
		if f.Name == name {
			out.forks[i].Value = value
			return out
		}
	}
	out.forks = append(out.forks, Fork{Name: name, Value: value})
	return out
}

// Value returns the value bound to name, if any.
func (s Strategy) Value(name string) (string, bool) {
	for _, f := range s.forks {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// Forks returns a copy of the ordered fork list.
func (s Strategy) Forks() []Fork {
	out := make([]Fork, len(s.forks))
	copy(out, s.forks)
	return out
}

// Len returns the number of forks.
func (s Strategy) Len() int { return len(s.forks) }

// IsZero reports whether the strategy has no forks.
func (s Strategy) IsZero() bool { return len(s.forks) == 0 }

// Plus merges other into s, with other's values winning on conflicting
// names, preserving s's ordering for shared keys and appending other's
// new keys afterwards.
func (s Strategy) Plus(other Strategy) Strategy {
	out := s
	for _, f := range other.forks {
		out = out.With(f.Name, f.Value)
	}
	return out
}

// Subsumes reports whether filter is satisfied by s: every fork in
// filter is either absent from s or has the same value in s. This is
// the subset-matching rule from the resource-key matching algebra -
// x.strategy must be a subset of y.strategy for x to match y, tested as
// y.Subsumes(x).
func (s Strategy) Subsumes(filter Strategy) bool {
	for _, f := range filter.forks {
		if v, ok := s.Value(f.Name); ok && v != f.Value {
			return false
		}
	}
	return true
}

// Keys returns the set of fork names, used by the total-ordering
// comparator to detect when two strategies are not nested subsets of
// one another.
func (s Strategy) Keys() map[string]bool {
	out := make(map[string]bool, len(s.forks))
	for _, f := range s.forks {
		out[f.Name] = true
	}
	return out
}

// HashContent implements hashing.Hashable: an unordered hashing.Set of
// (name, value) pairs, since fork order is semantically significant for
// display but not for identity, so equal strategies hash equal
// regardless of insertion order.
func (s Strategy) HashContent() any {
	pairs := make(hashing.Set, len(s.forks))
	for i, f := range s.forks {
		pairs[i] = []any{f.Name, f.Value}
	}
	return pairs
}

// String renders the `name-value+name2-value2` wire form, in insertion
// order.
func (s Strategy) String() string {
	parts := make([]string, len(s.forks))
	for i, f := range s.forks {
		parts[i] = f.Name + keyValSep + f.Value
	}
	return strings.Join(parts, forkSep)
}

// Less provides the total ordering over strategies used to break ties
// deterministically: fewer forks first, then lexicographic over
// (name, value) pairs.
func (s Strategy) Less(other Strategy) bool {
	if len(s.forks) != len(other.forks) {
		return len(s.forks) < len(other.forks)
	}
	a := s.sortedForks()
	b := other.sortedForks()
	for i := range a {
		if a[i].Name != b[i].Name {
			return a[i].Name < b[i].Name
		}
		if a[i].Value != b[i].Value {
			return a[i].Value < b[i].Value
		}
	}
	return false
}

func (s Strategy) sortedForks() []Fork {
	out := s.Forks()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Value < out[j].Value
	})
	return out
}

// Equal reports whether two strategies bind the same set of forks to
// the same values, regardless of insertion order.
func (s Strategy) Equal(other Strategy) bool {
	if len(s.forks) != len(other.forks) {
		return false
	}
	a, b := s.sortedForks(), other.sortedForks()
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
