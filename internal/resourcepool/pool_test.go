package resourcepool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radiome-lab/radiome/internal/resourcekey"
)

func mustKey(t *testing.T, raw string) resourcekey.Key {
	t.Helper()
	k, err := resourcekey.New(raw)
	require.NoError(t, err, "New(%q)", raw)
	return k
}

func TestSetRejectsFilterKeys(t *testing.T) {
	p := New()
	err := p.Set(mustKey(t, "sub-*_T1w"), NewLiteral("x"))
	assert.Error(t, err, "expected error setting a filter key")
}

func TestSetRejectsDuplicate(t *testing.T) {
	p := New()
	k := mustKey(t, "sub-001_T1w")
	require.NoError(t, p.Set(k, NewLiteral("a")))
	assert.Error(t, p.Set(k, NewLiteral("b")), "expected error on duplicate key")
}

func TestGetExactAndFallback(t *testing.T) {
	p := New()
	k1 := mustKey(t, "sub-001_T1w")
	k2 := mustKey(t, "sub-001_ses-001_T1w")
	require.NoError(t, p.Set(k1, NewLiteral("broad")))
	require.NoError(t, p.Set(k2, NewLiteral("specific")))

	r, got, err := p.Get(mustKey(t, "sub-001_ses-001_T1w"))
	require.NoError(t, err)
	assert.True(t, got.Equal(k2), "expected exact match on k2, got %s", got.String())
	assert.Equal(t, "specific", r.(*Literal).Value)

	r, got, err = p.Get(mustKey(t, "ses-001_T1w"))
	require.NoError(t, err)
	assert.True(t, got.Equal(k2), "expected fallback match on k2, got %s", got.String())
	assert.Equal(t, "specific", r.(*Literal).Value)
}

func TestContainsAndSelect(t *testing.T) {
	p := New()
	require.NoError(t, p.Set(mustKey(t, "sub-001_T1w"), NewLiteral("a")))
	require.NoError(t, p.Set(mustKey(t, "sub-002_T1w"), NewLiteral("b")))

	assert.True(t, p.Contains(mustKey(t, "sub-*_T1w")), "expected pool to contain a match for sub-*_T1w")

	sub, err := p.Select(mustKey(t, "sub-001_T1w"))
	require.NoError(t, err)
	assert.Equal(t, 1, sub.Len(), "expected exactly one entry in the selection")
}

func TestExtractBranchesOverSubjects(t *testing.T) {
	p := New()
	for _, sub := range []string{"001", "002"} {
		require.NoError(t, p.Set(mustKey(t, "sub-"+sub+"_T1w"), NewLiteral("t1-"+sub)))
		require.NoError(t, p.Set(mustKey(t, "sub-"+sub+"_bold"), NewLiteral("bold-"+sub)))
	}

	results, err := p.Extract(mustKey(t, "T1w"), mustKey(t, "bold"))
	require.NoError(t, err)
	require.Len(t, results, 2, "expected one combination per subject")

	seenSubs := map[string]bool{}
	for _, res := range results {
		sub, ok := res.Strategy.Entity("sub")
		require.True(t, ok, "expected strategy key to carry a sub entity")
		seenSubs[sub] = true

		t1, _, err := res.Pool.Get(mustKey(t, "T1w"))
		require.NoError(t, err, "sub=%s", sub)
		assert.Equal(t, "t1-"+sub, t1.(*Literal).Value, "sub=%s", sub)
	}
	assert.Len(t, seenSubs, 2, "expected both subjects represented")
}

func TestExtractBranchesOverStrategy(t *testing.T) {
	p := New()
	require.NoError(t, p.Set(mustKey(t, "desc-skullstrip-afni_brain"), NewLiteral("afni")))
	require.NoError(t, p.Set(mustKey(t, "desc-skullstrip-bet_brain"), NewLiteral("bet")))

	results, err := p.Extract(mustKey(t, "brain"))
	require.NoError(t, err)
	assert.Len(t, results, 2, "expected one combination per skullstrip fork value")
}

func TestExtractBranchesOverStrategyForkCombinations(t *testing.T) {
	p := New()
	require.NoError(t, p.Set(mustKey(t, "space-orig_T1w"), NewLiteral("t1")))
	require.NoError(t, p.Set(mustKey(t, "space-orig_mask"), NewLiteral("mask")))
	for _, skullstrip := range []string{"afni", "bet"} {
		for _, nuis := range []string{"gsr", "nogsr"} {
			raw := "space-orig_desc-skullstrip-" + skullstrip + "+nuis-" + nuis + "_bold"
			require.NoError(t, p.Set(mustKey(t, raw), NewLiteral("bold-"+skullstrip+"-"+nuis)))
		}
	}

	results, err := p.Extract(mustKey(t, "space-orig_T1w"), mustKey(t, "space-orig_mask"), mustKey(t, "space-orig_bold"))
	require.NoError(t, err)
	require.Len(t, results, 4, "expected one combination per skullstrip x nuis pair")

	seen := map[string]bool{}
	for _, res := range results {
		skullstrip, ok := res.Strategy.Strategy().Value("skullstrip")
		require.True(t, ok, "expected a skullstrip fork on the strategy key")
		nuis, ok := res.Strategy.Strategy().Value("nuis")
		require.True(t, ok, "expected a nuis fork on the strategy key")
		seen[skullstrip+"/"+nuis] = true

		bold, _, err := res.Pool.Get(mustKey(t, "bold"))
		require.NoError(t, err)
		assert.Equal(t, "bold-"+skullstrip+"-"+nuis, bold.(*Literal).Value)

		t1, _, err := res.Pool.Get(mustKey(t, "T1w"))
		require.NoError(t, err)
		assert.Equal(t, "t1", t1.(*Literal).Value, "a non-branching sister resource should be shared across every combination")
	}
	assert.Len(t, seen, 4, "expected all four skullstrip x nuis combinations represented")
}

func TestExtractBranchesOverSubjectSessionRun(t *testing.T) {
	p := New()
	subs := []string{"001", "002", "003", "004"}
	sessions := []string{"001", "002", "003"}
	runs := []string{"01", "02"}
	for _, sub := range subs {
		for _, ses := range sessions {
			for _, run := range runs {
				base := "sub-" + sub + "_ses-" + ses + "_run-" + run + "_"
				label := sub + "-" + ses + "-" + run
				require.NoError(t, p.Set(mustKey(t, base+"T1w"), NewLiteral("t1-"+label)))
				require.NoError(t, p.Set(mustKey(t, base+"mask"), NewLiteral("mask-"+label)))
				require.NoError(t, p.Set(mustKey(t, base+"bold"), NewLiteral("bold-"+label)))
			}
		}
	}

	results, err := p.Extract(mustKey(t, "T1w"), mustKey(t, "mask"), mustKey(t, "bold"))
	require.NoError(t, err)
	require.Len(t, results, len(subs)*len(sessions)*len(runs), "expected one combination per sub x ses x run")

	seen := map[string]bool{}
	for _, res := range results {
		sub, ok := res.Strategy.Entity("sub")
		require.True(t, ok)
		ses, ok := res.Strategy.Entity("ses")
		require.True(t, ok)
		run, ok := res.Strategy.Entity("run")
		require.True(t, ok)
		seen[sub+"/"+ses+"/"+run] = true

		bold, _, err := res.Pool.Get(mustKey(t, "bold"))
		require.NoError(t, err)
		assert.Equal(t, "bold-"+sub+"-"+ses+"-"+run, bold.(*Literal).Value)
	}
	assert.Len(t, seen, 24, "expected 24 distinct sub/ses/run combinations")
}

func TestExtractRejectsBroadKey(t *testing.T) {
	p := New()
	_, err := p.Extract(mustKey(t, ""))
	assert.Error(t, err, "expected error extracting a broad key")
}

func TestExtractSkipsUnsatisfiedCombination(t *testing.T) {
	p := New()
	require.NoError(t, p.Set(mustKey(t, "sub-001_T1w"), NewLiteral("t1")))
	require.NoError(t, p.Set(mustKey(t, "sub-002_bold"), NewLiteral("bold")))

	results, err := p.Extract(mustKey(t, "T1w"), mustKey(t, "bold"))
	require.NoError(t, err)
	assert.Len(t, results, 0, "expected no combination since T1w and bold never share a subject")
}
