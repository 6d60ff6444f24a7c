package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	version string
	commit  string
	date    string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "casewire",
	Short: "Casewire - blackboard engine for incident tip analysis",
	Long: `Casewire ingests incident tip reports and maintains a live knowledge
graph per case. A blackboard scheduler watches every graph mutation and runs
analysis agents by priority: clustering related reports across cases, media
forensics, claim extraction and fact-checking, role classification, and case
synthesis.

The graph is deliberately volatile and in-memory; graph updates stream to
live viewers over Redis pub/sub when configured.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}
