package resourcekey

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	cases := []string{
		"sub-001_T1w",
		"sub-001_ses-001_T1w",
		"space-orig_desc-skullstrip-afni+nuis-gsr_bold",
		"T1w",
	}
	for _, raw := range cases {
		k, err := New(raw)
		require.NoError(t, err, "New(%q)", raw)
		rendered := k.String()
		k2, err := New(rendered)
		require.NoError(t, err, "New(render(%q)=%q)", raw, rendered)
		assert.True(t, k.Equal(k2), "round trip mismatch for %q: rendered %q, hash %s != %s", raw, rendered, k.HashContent(), k2.HashContent())
	}
}

func TestMatchesWildcardAndAbsent(t *testing.T) {
	acqFilter := MustNew("acq-*_T1w")
	assert.True(t, acqFilter.Matches(MustNew("acq-mprage_T1w")), "expected acq-* to match acq-mprage_T1w")

	notAcqFilter := MustNew("acq-^_T1w")
	assert.False(t, notAcqFilter.Matches(MustNew("acq-mprage_T1w")), "expected acq-^ to not match when acq present")
	assert.True(t, notAcqFilter.Matches(MustNew("T1w")), "expected acq-^ to match when acq absent")
}

func TestMatchesSuffixMismatch(t *testing.T) {
	assert.False(t, MustNew("sub-001_T1w").Matches(MustNew("sub-001_mask")), "different suffixes should not match")
}

func TestMatchesSubsetFiltering(t *testing.T) {
	// sub-*_ses-^_T1w should not match sub-001_ses-001_T1w because
	// ses is present but the filter demands absence.
	filter := MustNew("sub-*_ses-^_T1w")
	assert.False(t, filter.Matches(MustNew("sub-001_ses-001_T1w")), "filter requiring absent ses should not match a key with ses present")
}

func TestStrategyMatching(t *testing.T) {
	candidate, err := New("desc-skullstrip-afni+nuis-gsr_bold")
	require.NoError(t, err)

	filterKey, err := FromMap(map[string]string{"suffix": "bold", "strategy": "skullstrip-afni"})
	require.NoError(t, err)
	assert.True(t, filterKey.Matches(candidate), "expected strategy subset filter to match")

	mismatchFilter, err := FromMap(map[string]string{"suffix": "bold", "strategy": "skullstrip-bet"})
	require.NoError(t, err)
	assert.False(t, mismatchFilter.Matches(candidate), "expected conflicting strategy fork to not match")
}

func TestIsFilterAndIsBroad(t *testing.T) {
	assert.True(t, MustNew("sub-*_T1w").IsFilter(), "wildcard entity should be a filter")
	assert.False(t, MustNew("sub-001_T1w").IsFilter(), "concrete key should not be a filter")

	broad, _ := New("")
	assert.True(t, broad.IsBroad(), "empty key with wildcard suffix should be broad")
}

func TestWithUnset(t *testing.T) {
	k := MustNew("sub-001_ses-002_T1w")
	k2, err := k.With(map[string]string{"ses": Unset})
	require.NoError(t, err)

	_, ok := k2.Entity("ses")
	assert.False(t, ok, "expected ses entity removed")

	_, ok = k.Entity("ses")
	assert.True(t, ok, "original key should be unmodified")
}

func TestCompareOrdering(t *testing.T) {
	a := MustNew("sub-001_T1w")
	b := MustNew("sub-001_ses-001_T1w")
	c, err := a.Compare(b)
	require.NoError(t, err)
	assert.Less(t, c, 0, "key with fewer entities should sort before the more specific one")
}

func TestInvalidEntity(t *testing.T) {
	_, err := New("bogus-1_T1w")
	assert.Error(t, err, "expected error for unsupported entity")
}

func TestInvalidSuffix(t *testing.T) {
	_, err := New("sub-001_notasuffix")
	assert.Error(t, err, "expected error for invalid suffix")
}
