package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/radiome-lab/radiome/internal/resourcepool"
	"github.com/radiome-lab/radiome/internal/workflow"
)

func TestDescribeUnregisteredWorkflowFails(t *testing.T) {
	_, _, err := executeAndResetCommand(context.Background(), rootCmd, []string{"describe", "test.describe.does-not-exist"})
	assert.Error(t, err)
}

func TestDescribeRegisteredWorkflowWithoutSpecFile(t *testing.T) {
	workflow.Register("test.describe.registered", func(cfg map[string]any, pool *resourcepool.Pool, ctx workflow.Context) error {
		return nil
	})

	stdout, _, err := executeAndResetCommand(context.Background(), rootCmd, []string{"describe", "test.describe.registered"})
	assert.NoError(t, err)
	assert.Contains(t, stdout, "no declared inputs")
}
