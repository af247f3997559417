package command

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAcceptsWellFormedPipeline(t *testing.T) {
	td := t.TempDir()
	path := filepath.Join(td, "pipeline.yml")
	require.NoError(t, os.WriteFile(path, []byte(testPipelineYAML), 0o600))

	stdout, stderr, err := executeAndResetCommand(context.Background(), rootCmd, []string{"validate", "--file", path})
	assert.NoError(t, err)
	assert.Contains(t, stdout, "is valid")
	assert.Equal(t, "", stderr)
}

func TestValidateRejectsMalformedPipeline(t *testing.T) {
	td := t.TempDir()
	path := filepath.Join(td, "pipeline.yml")
	require.NoError(t, os.WriteFile(path, []byte("class: pipeline\nname: demo\n"), 0o600))

	_, _, err := executeAndResetCommand(context.Background(), rootCmd, []string{"validate", "--file", path})
	assert.Error(t, err)
}
