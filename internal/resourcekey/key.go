package resourcekey

import (
	"fmt"
	"sort"
	"strings"

	"github.com/radiome-lab/radiome/internal/hashing"
)

// Quantifiers usable in any entity value or the suffix.
const (
	Any     = "*" // matches any value
	Absent  = "^" // matches only when the entity is not present
	entSep  = "_"
	stratSp = "#"
)

// SupportedEntities is the closed, BIDS-derived entity vocabulary, in
// canonical rendering order (desc is rendered last, just before the
// suffix, via its dedicated desc/strategy block - see String).
var SupportedEntities = []string{
	"sub", "ses", "run", "task", "acq",
	"space", "atlas", "roi", "label",
	"hemi", "from", "to", "desc",
}

// BranchingEntities expand the Cartesian product during Pool.Extract.
var BranchingEntities = []string{"sub", "ses", "run", "task"}

// ValidSuffixes is the closed suffix vocabulary, including the wildcard.
var ValidSuffixes = map[string]bool{
	Any: true, "mask": true, "bold": true, "brain": true, "T1w": true,
}

func isSupportedEntity(e string) bool {
	for _, s := range SupportedEntities {
		if s == e {
			return true
		}
	}
	return false
}

// Key is an immutable, structured resource identifier: a suffix, a set
// of named entities, an optional Strategy, and a set of free-form tags.
type Key struct {
	suffix   string
	entities map[string]string
	strategy Strategy
	tags     map[string]bool
}

// Unset is passed as an entity value in With to remove that entity.
const Unset = "\x00unset\x00"

// New builds a Key from a BIDS-style string (`k1-v1_k2-v2_..._suffix`,
// optionally with a `desc-name#s1-v1+s2-v2` strategy block).
func New(raw string) (Key, error) {
	k := Key{suffix: Any, entities: map[string]string{}, tags: map[string]bool{}}

	if raw == "" {
		return k, nil
	}

	parts := strings.Split(raw, entSep)
	suffix := Any
	entityParts := parts
	if !strings.Contains(parts[len(parts)-1], keyValSep) {
		suffix = parts[len(parts)-1]
		entityParts = parts[:len(parts)-1]
	}

	rawEntities := map[string]string{}
	for _, p := range entityParts {
		kv := strings.SplitN(p, keyValSep, 2)
		if len(kv) != 2 || kv[0] == "" || kv[1] == "" {
			return Key{}, fmt.Errorf("resourcekey: malformed entity %q in %q", p, raw)
		}
		rawEntities[kv[0]] = kv[1]
	}

	if err := k.setSuffix(suffix); err != nil {
		return Key{}, err
	}
	if err := k.applyEntities(rawEntities); err != nil {
		return Key{}, err
	}
	return k, nil
}

// MustNew is New but panics on error, for use with constant literals.
func MustNew(raw string) Key {
	k, err := New(raw)
	if err != nil {
		panic(err)
	}
	return k
}

// FromMap builds a Key from a plain mapping of entity->value, with the
// optional "suffix" and "strategy" pseudo-entities.
func FromMap(m map[string]string) (Key, error) {
	k := Key{suffix: Any, entities: map[string]string{}, tags: map[string]bool{}}
	suffix := Any
	if s, ok := m["suffix"]; ok {
		suffix = s
	}
	entities := map[string]string{}
	for kk, v := range m {
		if kk == "suffix" || kk == "strategy" {
			continue
		}
		entities[kk] = v
	}
	if err := k.setSuffix(suffix); err != nil {
		return Key{}, err
	}
	if err := k.applyEntities(entities); err != nil {
		return Key{}, err
	}
	if s, ok := m["strategy"]; ok {
		strat, err := ParseStrategy(s)
		if err != nil {
			return Key{}, err
		}
		k.strategy = strat
	}
	return k, nil
}

func (k *Key) setSuffix(suffix string) error {
	if !ValidSuffixes[suffix] {
		return fmt.Errorf("resourcekey: invalid suffix %q", suffix)
	}
	k.suffix = suffix
	return nil
}

// applyEntities parses the desc/strategy encoding and validates the
// remaining entities against the supported vocabulary.
func (k *Key) applyEntities(entities map[string]string) error {
	if desc, ok := entities["desc"]; ok {
		if idx := strings.Index(desc, stratSp); idx >= 0 {
			literal, stratRaw := desc[:idx], desc[idx+1:]
			strat, err := ParseStrategy(stratRaw)
			if err != nil {
				return err
			}
			k.strategy = strat
			if literal != "" {
				entities["desc"] = literal
			} else {
				delete(entities, "desc")
			}
		} else if strat, err := ParseStrategy(desc); err == nil {
			// The whole desc value parses as a strategy on its own
			// (desc-skullstrip-afni+nuis-gsr with no literal name) -
			// mirrors the Python fallback in ResourceKey.__init__.
			k.strategy = strat
			delete(entities, "desc")
		}
	}

	for name, value := range entities {
		if !isSupportedEntity(name) {
			return fmt.Errorf("resourcekey: entity %q is not supported", name)
		}
		if value == "" {
			return fmt.Errorf("resourcekey: entity %q value cannot be empty", name)
		}
		k.entities[name] = value
	}
	return nil
}

// With returns a copy of k with the given entity overrides applied.
// Passing Unset for a value removes that entity. "suffix" and
// "strategy" are accepted as pseudo-entity names.
func (k Key) With(overrides map[string]string) (Key, error) {
	out := Key{
		suffix:   k.suffix,
		entities: make(map[string]string, len(k.entities)),
		strategy: k.strategy,
		tags:     make(map[string]bool, len(k.tags)),
	}
	for e, v := range k.entities {
		out.entities[e] = v
	}
	for t := range k.tags {
		out.tags[t] = true
	}

	for name, value := range overrides {
		switch name {
		case "suffix":
			if err := out.setSuffix(value); err != nil {
				return Key{}, err
			}
		case "strategy":
			strat, err := ParseStrategy(value)
			if err != nil {
				return Key{}, err
			}
			out.strategy = strat
		default:
			if value == Unset {
				delete(out.entities, name)
				continue
			}
			if !isSupportedEntity(name) {
				return Key{}, fmt.Errorf("resourcekey: entity %q is not supported", name)
			}
			out.entities[name] = value
		}
	}
	return out, nil
}

// WithStrategy returns a copy of k with its strategy replaced.
func (k Key) WithStrategy(s Strategy) Key {
	out := k
	out.entities = cloneMap(out.entities)
	out.tags = cloneBoolMap(out.tags)
	out.strategy = s
	return out
}

// WithTags returns a copy of k with the given tags added.
func (k Key) WithTags(tags ...string) Key {
	out := k
	out.entities = cloneMap(out.entities)
	out.tags = cloneBoolMap(out.tags)
	for _, t := range tags {
		out.tags[t] = true
	}
	return out
}

func cloneMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneBoolMap(m map[string]bool) map[string]bool {
	out := make(map[string]bool, len(m))
	for k := range m {
		out[k] = true
	}
	return out
}

// Suffix returns the key's suffix.
func (k Key) Suffix() string { return k.suffix }

// Strategy returns the key's strategy (zero value if unset).
func (k Key) Strategy() Strategy { return k.strategy }

// Tags returns a copy of the key's tag set.
func (k Key) Tags() map[string]bool { return cloneBoolMap(k.tags) }

// Entities returns a copy of the key's entity map.
func (k Key) Entities() map[string]string { return cloneMap(k.entities) }

// Entity returns the value of entity e and whether it is present.
func (k Key) Entity(e string) (string, bool) {
	v, ok := k.entities[e]
	return v, ok
}

// IsFilter reports whether the key contains a quantifier (`*` or `^`)
// anywhere, making it usable only as a read-only selector, never as a
// pool insertion key.
func (k Key) IsFilter() bool {
	if k.suffix == Any {
		return true
	}
	for _, v := range k.entities {
		if v == Any || v == Absent {
			return true
		}
	}
	return false
}

// IsBroad reports whether the key has no entities and a wildcard
// suffix - the degenerate "match everything" filter that Pool.Extract
// rejects.
func (k Key) IsBroad() bool {
	return len(k.entities) == 0 && k.suffix == Any
}

// Matches reports whether k (as a filter) is satisfied by candidate -
// i.e. `k in candidate` in the Python original.
func (k Key) Matches(candidate Key) bool {
	if k.suffix != Any && k.suffix != candidate.suffix {
		return false
	}
	for entity, value := range k.entities {
		switch value {
		case Absent:
			if _, ok := candidate.entities[entity]; ok {
				return false
			}
		case Any:
			// satisfied regardless, as long as the entity concept
			// applies - no further check needed.
		default:
			cv, ok := candidate.entities[entity]
			if !ok || cv != value {
				return false
			}
		}
	}
	if !candidate.strategy.Subsumes(k.strategy) {
		return false
	}
	if len(k.tags) > 0 {
		if len(candidate.tags) == 0 {
			return false
		}
		for t := range k.tags {
			if !candidate.tags[t] {
				return false
			}
		}
	}
	return true
}

// ErrIncomparable is returned by Compare (and Less panics with it) when two keys' entities or
// strategy forks are not nested subsets of one another, mirroring the
// ValueError the Python original raises from ResourceKey.__lt__.
var ErrIncomparable = fmt.Errorf("resourcekey: keys are not comparable (entities/strategy are not nested subsets)")

// Compare implements the total ordering over keys: by suffix, then
// strategy, then number of entities (fewer first), then entity values in
// entity-name order - used to deterministically break ties
// when multiple pool entries satisfy a non-filter lookup. Returns
// ErrIncomparable if the two keys' entity (or strategy-fork) sets are
// not nested subsets of one another.
func (k Key) Compare(other Key) (int, error) {
	if k.suffix != other.suffix {
		return strings.Compare(k.suffix, other.suffix), nil
	}

	if !k.strategy.Equal(other.strategy) {
		selfKeys, otherKeys := k.strategy.Keys(), other.strategy.Keys()
		if !isSubsetOf(selfKeys, otherKeys) && !isSubsetOf(otherKeys, selfKeys) {
			return 0, ErrIncomparable
		}
		if k.strategy.Less(other.strategy) {
			return -1, nil
		}
		return 1, nil
	}

	selfKeys := entityKeySet(k.entities)
	otherKeys := entityKeySet(other.entities)
	if !isSubsetOf(selfKeys, otherKeys) && !isSubsetOf(otherKeys, selfKeys) {
		return 0, ErrIncomparable
	}

	if len(k.entities) != len(other.entities) {
		if len(k.entities) < len(other.entities) {
			return -1, nil
		}
		return 1, nil
	}

	// Same size and nested, so both keys carry the same entity names.
	names := make([]string, 0, len(k.entities))
	for e := range k.entities {
		names = append(names, e)
	}
	sort.Strings(names)
	for _, e := range names {
		if ov := other.entities[e]; k.entities[e] != ov {
			return strings.Compare(k.entities[e], ov), nil
		}
	}
	return 0, nil
}

// Less reports k < other under Compare's ordering. Panics if the keys
// are incomparable; callers needing the error should call Compare
// directly.
func (k Key) Less(other Key) bool {
	c, err := k.Compare(other)
	if err != nil {
		panic(err)
	}
	return c < 0
}

func entityKeySet(m map[string]string) map[string]bool {
	out := make(map[string]bool, len(m))
	for k := range m {
		out[k] = true
	}
	return out
}

func isSubsetOf(a, b map[string]bool) bool {
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

// String renders the canonical BIDS-compatible wire form of the key.
func (k Key) String() string {
	var parts []string
	for _, e := range SupportedEntities {
		if e == "desc" {
			continue
		}
		if v, ok := k.entities[e]; ok {
			parts = append(parts, e+keyValSep+v)
		}
	}

	descLiteral := k.entities["desc"]
	stratStr := k.strategy.String()
	var descParts []string
	if descLiteral != "" {
		descParts = append(descParts, descLiteral)
	}
	if stratStr != "" {
		descParts = append(descParts, stratStr)
	}
	if len(descParts) > 0 {
		parts = append(parts, "desc"+keyValSep+strings.Join(descParts, stratSp))
	}

	parts = append(parts, k.suffix)
	return strings.Join(parts, entSep)
}

// HashContent implements hashing.Hashable.
func (k Key) HashContent() any {
	entities := make([]any, 0, len(k.entities))
	for _, e := range SupportedEntities {
		if v, ok := k.entities[e]; ok {
			entities = append(entities, []any{e, v})
		}
	}
	tags := make(hashing.Set, 0, len(k.tags))
	for t := range k.tags {
		tags = append(tags, t)
	}
	return []any{
		k.suffix,
		k.strategy.HashContent(),
		entities,
		tags,
	}
}

// Equal reports whether two keys have the same hash content.
func (k Key) Equal(other Key) bool {
	return hashing.Hash(k.HashContent()) == hashing.Hash(other.HashContent())
}
