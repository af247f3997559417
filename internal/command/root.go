package command

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/radiome-lab/radiome/internal/logging"
	"github.com/radiome-lab/radiome/internal/version"
)

var (
	verboseCount int
	quiet        bool
)

var rootCmd = &cobra.Command{
	Use:   "radiome",
	Short: "Content-addressed computation graph pipeline runner",
	Long: `radiome executes neuroimaging pipelines described as a graph of resource-producing
jobs, giving every job a content hash that names its scratch directory.`,
	Version:           version.BuildVersionString(),
	SilenceErrors:     true,
	PersistentPreRunE: setupLogging,
}

func init() {
	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "%s" .Version}}
`)
	rootCmd.PersistentFlags().CountVarP(&verboseCount, "verbose", "v", "Increase log verbosity and detail by specifying this flag one or more times")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Mute any logging output")
}

func setupLogging(cmd *cobra.Command, args []string) error {
	level := slog.LevelInfo
	switch {
	case quiet:
		level = slog.LevelError + 1
	case verboseCount >= 2:
		level = slog.LevelDebug
	case verboseCount == 1:
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(&logging.SimpleHandler{Writer: cmd.ErrOrStderr(), Level: level}))
	return nil
}

// Execute runs the radiome CLI, returning the error of whichever
// subcommand ran.
func Execute() error {
	return rootCmd.Execute()
}

// Main is the full CLI entry point: run Execute and print a failure to
// stderr with a non-zero exit, matching the process-exit contract
// described for radiome run/validate/describe.
func Main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
