package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	strategyFile string
	verbose      bool
)

// rootCmd is the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "capella",
	Short: "Capella - small-cap low-P/E equity strategy",
	Long: `Capella Unified CLI

Runs a two-stage universe selection (small caps in the lowest P/E
percentile), a constant-direction alpha model and equal-weighted
portfolio construction over daily market data.

Usage:
  go run ./cmd/capella [command]

Examples:
  go run ./cmd/capella backtest run --from 2015-01-05 --to 2015-12-31
  go run ./cmd/capella universe --date 2015-01-05
  go run ./cmd/capella fetch
  go run ./cmd/capella api`,
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&strategyFile, "strategy", "", "strategy YAML file (default from STRATEGY_FILE)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
