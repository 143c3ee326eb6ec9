package commands

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/capellaquant/capella/internal/universe"
)

// universeCmd runs the two-stage selection for one day and prints it
var universeCmd = &cobra.Command{
	Use:   "universe",
	Short: "Run universe selection for a date",
	Long: `Runs the coarse and fine selection stages against the stored
snapshot for a date and prints the surviving symbols together with the
exclusion reason for every dropped symbol.

Example:
  go run ./cmd/capella universe --date 2015-01-05`,
	RunE: runUniverse,
}

var universeDate string

func init() {
	rootCmd.AddCommand(universeCmd)

	universeCmd.Flags().StringVar(&universeDate, "date", "", "snapshot date (YYYY-MM-DD, required)")
	universeCmd.MarkFlagRequired("date")
}

func runUniverse(cmd *cobra.Command, args []string) error {
	date, err := time.Parse("2006-01-02", universeDate)
	if err != nil {
		return fmt.Errorf("invalid date: %w", err)
	}

	a, err := initApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()

	coarse, err := a.store.CoarseSnapshot(ctx, date)
	if err != nil {
		return fmt.Errorf("load coarse snapshot: %w", err)
	}

	selector := universe.NewSmallCapsLowPE(a.strategy.UniverseConfig(), a.log)

	selection, err := selector.SelectCoarse(ctx, date, coarse)
	if err != nil {
		return fmt.Errorf("coarse selection: %w", err)
	}

	excluded := selection.Excluded

	if selector.FilterFineData() {
		fine, err := a.store.FineSnapshot(ctx, date, selection.Symbols)
		if err != nil {
			return fmt.Errorf("load fine snapshot: %w", err)
		}
		selection, err = selector.SelectFine(ctx, date, fine)
		if err != nil {
			return fmt.Errorf("fine selection: %w", err)
		}
		for symbol, reason := range selection.Excluded {
			excluded[symbol] = reason
		}
	}

	printSeparator()
	fmt.Printf("Universe for %s: %d symbols of %d candidates\n",
		date.Format("2006-01-02"), len(selection.Symbols), len(coarse))
	printSeparator()

	for _, symbol := range selection.Symbols {
		fmt.Printf("  %s\n", symbol)
	}

	if verbose && len(excluded) > 0 {
		fmt.Println("\nExcluded:")
		symbols := make([]string, 0, len(excluded))
		for symbol := range excluded {
			symbols = append(symbols, symbol)
		}
		sort.Strings(symbols)
		for _, symbol := range symbols {
			fmt.Printf("  %-8s %s\n", symbol, excluded[symbol])
		}
	}

	return nil
}
