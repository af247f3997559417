package command

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/radiome-lab/radiome/internal/config"
	"github.com/radiome-lab/radiome/internal/util"
	"github.com/radiome-lab/radiome/internal/workflow"
)

func init() {
	rootCmd.AddCommand(describeCmd)
}

var describeCmd = &cobra.Command{
	Use:   "describe <workflow>",
	Args:  cobra.ExactArgs(1),
	Short: "Show the declared inputs of a registered, plugin, or git-hosted workflow",
	RunE:  describeWorkflow,
}

func describeWorkflow(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	ref := args[0]

	if _, err := workflow.Resolve(ref); err != nil {
		return fmt.Errorf("describing %q: %w", ref, err)
	}

	specPath, err := workflow.SpecPath(ref)
	if err != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "%s has no spec.yml; no declared inputs to describe\n", ref)
		return nil
	}

	spec, err := config.Load(specPath)
	if err != nil {
		return fmt.Errorf("loading spec for %q: %w", ref, err)
	}
	specs, err := config.DecodeInputSpecs(spec)
	if err != nil {
		return fmt.Errorf("decoding declared inputs for %q: %w", ref, err)
	}

	rows := make([][]string, 0, len(specs))
	for _, s := range specs {
		rows = append(rows, []string{s.Name, s.Type})
	}
	table := util.TableOutputFormatter{
		Headers: []string{"Input", "Type"},
		Rows:    rows,
		Out:     cmd.OutOrStdout(),
	}
	table.Display()
	return nil
}
