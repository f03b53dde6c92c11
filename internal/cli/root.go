// Package cli provides the Cobra commands for the pageweight CLI.
package cli

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"

	// Global flags
	debug bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "pageweight",
	Short: "Pageweight - asset collection and bandwidth estimation for design projects",
	Long: `Pageweight walks a visual-design project, collects its image and vector
assets across device classes, estimates the transfer size of the published
site and recommends the optimizations with the largest payoff.

Get started:
  pageweight analyze --snapshot project.json    Analyze a design snapshot
  pageweight serve                              Run the HTTP analysis API`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		if debug {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		} else {
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
		}
	},
}

// Execute runs the CLI
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}
