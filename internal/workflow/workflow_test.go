package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radiome-lab/radiome/internal/resourcepool"
)

func stubWorkflow(cfg map[string]any, pool *resourcepool.Pool, ctx Context) error {
	return nil
}

func TestRegisterAndLookup(t *testing.T) {
	Register("test.stub", stubWorkflow)

	fn, err := Lookup("test.stub")
	require.NoError(t, err)
	assert.NoError(t, fn(nil, resourcepool.New(), Context{}), "stub workflow returned error")
}

func TestLookupUnregisteredReturnsErrNotRegistered(t *testing.T) {
	_, err := Lookup("test.does-not-exist")
	assert.ErrorIs(t, err, ErrNotRegistered, "expected ErrNotRegistered for an unregistered workflow name")
}

func TestResolvePrefersRegisteredWorkflow(t *testing.T) {
	Register("test.resolve-me", stubWorkflow)

	fn, err := Resolve("test.resolve-me")
	require.NoError(t, err)
	assert.NotNil(t, fn, "expected a non-nil CreateWorkflowFunc")
}

func TestIsGitLocator(t *testing.T) {
	cases := map[string]bool{
		"gh://radiome-lab/anatomical":  true,
		"GH://radiome-lab/anatomical":  true,
		"radiome.workflows.anatomical": false,
		"/local/path/to/workflow":      false,
	}
	for ref, want := range cases {
		assert.Equal(t, want, isGitLocator(ref), "isGitLocator(%q)", ref)
	}
}
