package command

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/radiome-lab/radiome/internal/config"
)

var validateFile string

func init() {
	validateCmd.Flags().StringVarP(&validateFile, "file", "f", "pipeline.yml", "Pipeline or workflow configuration file")
	rootCmd.AddCommand(validateCmd)
}

var validateCmd = &cobra.Command{
	Use:   "validate [--file=pipeline.yml]",
	Args:  cobra.NoArgs,
	Short: "Validate a pipeline or workflow configuration without running it",
	RunE:  validatePipeline,
}

func validatePipeline(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	if _, err := config.Load(validateFile); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s is valid\n", validateFile)
	return nil
}
