// Package cli implements the Quit Vipe command-line interface using Cobra.
// Data commands open the local store directly; serve runs the HTTP daemon.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "quitvipe",
	Short: "Quit Vipe puff tracker",
	Long: `Quit Vipe is a self-hosted puff tracker.
Log puffs over the HTTP API, follow daily totals, rolling stats and streaks,
set a cap and unlock badges along the way.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
