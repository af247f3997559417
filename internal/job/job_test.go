package job

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radiome-lab/radiome/internal/hashing"
	"github.com/radiome-lab/radiome/internal/resourcepool"
)

func TestFunctionJobRun(t *testing.T) {
	fj := NewFunctionJob("greet", "greet-v1", func(_ context.Context, _ string, inputs map[string]any) (map[string]any, error) {
		return map[string]any{"msg": "hello " + inputs["name"].(string)}, nil
	})
	fj.Bind("name", resourcepool.NewLiteral("world"))

	out, err := fj.Run(context.Background(), t.TempDir(), map[string]any{"name": "world"})
	require.NoError(t, err)
	assert.Equal(t, "hello world", out["msg"])
}

func TestHashChangesOnBind(t *testing.T) {
	fj := NewFunctionJob("greet", "greet-v1", nil)
	h1 := hashing.Hash(fj.HashContent())
	fj.Bind("name", resourcepool.NewLiteral("world"))
	h2 := hashing.Hash(fj.HashContent())
	assert.NotEqual(t, h1, h2, "expected hash to change after binding an input")
}

func TestSameInputsSameHash(t *testing.T) {
	a := NewFunctionJob("greet", "greet-v1", nil)
	a.Bind("name", resourcepool.NewLiteral("world"))
	b := NewFunctionJob("greet", "greet-v1", nil)
	b.Bind("name", resourcepool.NewLiteral("world"))

	assert.Equal(t, hashing.Hash(a.HashContent()), hashing.Hash(b.HashContent()), "expected identical jobs to hash equal")
}

func TestComputedResourceProjectsField(t *testing.T) {
	upstream := NewFunctionJob("segment", "segment-v1", func(_ context.Context, _ string, _ map[string]any) (map[string]any, error) {
		return map[string]any{"mask": "/out/mask.nii.gz", "report": "ok"}, nil
	})
	cr := Output(upstream, "mask")

	state, err := upstream.Run(context.Background(), t.TempDir(), nil)
	require.NoError(t, err)
	out, err := cr.Run(context.Background(), t.TempDir(), map[string]any{"state": state})
	require.NoError(t, err)
	assert.Equal(t, "/out/mask.nii.gz", out["mask"])
}

func TestComputedResourceMissingFieldErrors(t *testing.T) {
	upstream := NewMockJob("segment", map[string]any{"mask": "x"})
	cr := Output(upstream, "report")
	state, _ := upstream.Run(context.Background(), t.TempDir(), nil)
	_, err := cr.Run(context.Background(), t.TempDir(), map[string]any{"state": state})
	assert.Error(t, err, "expected error for missing output field")
}

func TestBindingComputedResourceShadowsUpstream(t *testing.T) {
	upstream := NewMockJob("segment", map[string]any{"mask": "x"})
	cr := Output(upstream, "mask")

	downstream := NewFunctionJob("use-mask", "use-mask-v1", nil)
	downstream.Bind("mask", cr)

	// Binding must not panic or recurse infinitely even though cr is
	// itself a Job whose own "state" input is the upstream job.
	_ = hashing.Hash(downstream.HashContent())
}
