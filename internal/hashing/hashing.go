// Package hashing provides the deterministic, order-insensitive content
// hash used to give every resource and job a stable, content-addressed
// identity.
package hashing

import (
	"encoding/hex"
	"fmt"
	"sort"

	"golang.org/x/crypto/blake2s"
)

// Hashable is implemented by every value that participates in the
// content-addressing scheme. HashContent must return a tree built only
// from strings, numbers, bools, nil, Set, []any (ordered), and
// map[string]any (unordered) - or other Hashables, which are recursed
// into. Anything else makes the hash non-deterministic and is a bug.
type Hashable interface {
	HashContent() any
}

// Set represents an unordered collection for hashing purposes. Unlike a
// plain slice, its members are sorted (after canonicalization) before
// being folded into the hash so that insertion order never affects the
// result.
type Set []any

// canonical renders obj into a string that is stable under map-key
// reordering and set-member reordering, but sensitive to slice order -
// mirroring radiome.utils._nested_repr.
func canonical(obj any) string {
	switch v := obj.(type) {
	case Hashable:
		return canonical(v.HashContent())
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := "{"
		for i, k := range keys {
			if i > 0 {
				out += ","
			}
			out += fmt.Sprintf("%q:%s", k, canonical(v[k]))
		}
		return out + "}"
	case Set:
		parts := make([]string, len(v))
		for i, e := range v {
			parts[i] = canonical(e)
		}
		sort.Strings(parts)
		out := "["
		for i, p := range parts {
			if i > 0 {
				out += ","
			}
			out += p
		}
		return out + "]"
	case []any:
		out := "("
		for i, e := range v {
			if i > 0 {
				out += ","
			}
			out += canonical(e)
		}
		return out + ")"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%#v", v)
	}
}

// Canonicalize returns the canonical string form of a hash-content tree,
// exported mainly so other packages (and tests) can reason about it
// without recomputing the digest.
func Canonicalize(content any) string {
	return canonical(content)
}

// Hash computes the deterministic content digest of content: an 8-byte
// BLAKE2s sum of its canonical string form, rendered as lowercase hex.
func Hash(content any) string {
	h, err := blake2s.New256(nil)
	if err != nil {
		// blake2s.New256 with a nil key cannot fail.
		panic(err)
	}
	_, _ = h.Write([]byte(canonical(content)))
	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:8])
}

// Short returns the trailing 8 hex characters of a long hash - the
// human-readable identifier form used in logs and scratch directory
// names.
func Short(longHash string) string {
	if len(longHash) <= 8 {
		return longHash
	}
	return longHash[len(longHash)-8:]
}

// Memo is an embeddable cache for a Hashable's own long hash. Types that
// embed Memo get lazy memoization and explicit invalidation for free,
// mirroring radiome.utils.Hashable's _hash/__longhash__/__update_hash__.
type Memo struct {
	hash string
	set  bool
}

// Get returns the memoized hash, computing and caching it via compute if
// it is not already cached.
func (m *Memo) Get(compute func() any) string {
	if !m.set {
		m.hash = Hash(compute())
		m.set = true
	}
	return m.hash
}

// Invalidate clears the memoized hash, forcing recomputation on the next
// call to Get. Called whenever a job's input bindings change.
func (m *Memo) Invalidate() {
	m.set = false
	m.hash = ""
}

// Cached returns the memoized hash without computing it, and whether one
// is present. Used by shadow-job folding to prefer an already-finalized
// upstream hash over recomputing it from scratch.
func (m *Memo) Cached() (string, bool) {
	return m.hash, m.set
}

// Set installs a precomputed hash, as done by a topological finalization
// pass that resolves hashes bottom-up through a dependency graph.
func (m *Memo) Set(hash string) {
	m.hash = hash
	m.set = true
}
