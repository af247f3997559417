package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRootHelp(t *testing.T) {
	stdout, stderr, err := executeAndResetCommand(context.Background(), rootCmd, []string{"--help"})
	assert.NoError(t, err)
	assert.Contains(t, stdout, "Usage:\n  radiome [command]")
	assert.Contains(t, stdout, "run")
	assert.Contains(t, stdout, "validate")
	assert.Contains(t, stdout, "describe")
	assert.Equal(t, "", stderr)
}

func TestRootVersion(t *testing.T) {
	stdout, stderr, err := executeAndResetCommand(context.Background(), rootCmd, []string{"--version"})
	assert.NoError(t, err)
	assert.Contains(t, stdout, "radiome")
	assert.Equal(t, "", stderr)
}

func TestRootUnknown(t *testing.T) {
	stdout, stderr, err := executeAndResetCommand(context.Background(), rootCmd, []string{"unknown"})
	assert.EqualError(t, err, "unknown command \"unknown\" for \"radiome\"")
	assert.Equal(t, "", stdout)
	assert.Equal(t, "", stderr)
}
