// Package commands holds the advisor CLI.
package commands

import (
	"github.com/spf13/cobra"
)

var verbose bool

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "advisor",
	Short: "Equity allocation recommendation service",
	Long: `Advisor builds equity allocation recommendations: it classifies an
investor onto a risk tier, screens the universe by fundamentals, solves a
max-Sharpe mean-variance problem under the tier's constraints, and falls
back to a deterministic allocation when price history is too thin.

Examples:
  advisor serve
  advisor recommend --risk neutral
  advisor recommend --risk 85 --mode conservative`,
}

// Execute runs the CLI. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose log output")
}
