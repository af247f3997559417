package command

import (
	"github.com/spf13/cobra"

	"github.com/radiome-lab/radiome/internal/version"
)

var checkVersionCmd = &cobra.Command{
	Use:   "check-version [constraint]",
	Short: "Assert that the version of radiome matches the required constraint",
	Long: `radiome is commonly used in Makefiles and CI pipelines that may depend on a particular
executor feature or job kind added in a given release. This command provides a common way to
check that the version of radiome matches a required version.
`,
	Example: `
  # check that the version is exactly 1.2.3
  radiome check-version =v1.2.3

  # check that the version is greater than 1.2.0
  radiome check-version >1.2

  # check that the version is equal or greater to 1.2.3
  radiome check-version >=1.2.3`,
	Args:              cobra.ExactArgs(1),
	SilenceErrors:     true,
	CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return version.AssertVersion(args[0], version.Version)
	},
}

func init() {
	rootCmd.AddCommand(checkVersionCmd)
}
