package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/capellaquant/capella/internal/alpha"
	"github.com/capellaquant/capella/internal/contracts"
	"github.com/capellaquant/capella/internal/engine"
	"github.com/capellaquant/capella/internal/portfolio"
	"github.com/capellaquant/capella/internal/universe"
)

// targetsCmd computes the portfolio targets the strategy would hold on a
// date, starting from an empty book
var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "Compute portfolio targets for a date",
	Long: `Runs the full selection, alpha and construction chain for one
date against an empty portfolio and prints the resulting targets.

Example:
  go run ./cmd/capella targets --date 2015-01-05 --capital 100000`,
	RunE: runTargets,
}

var (
	targetsDate    string
	targetsCapital float64
)

func init() {
	rootCmd.AddCommand(targetsCmd)

	targetsCmd.Flags().StringVar(&targetsDate, "date", "", "snapshot date (YYYY-MM-DD, required)")
	targetsCmd.Flags().Float64Var(&targetsCapital, "capital", 100_000, "capital for dollar sizing (USD)")
	targetsCmd.MarkFlagRequired("date")
}

func runTargets(cmd *cobra.Command, args []string) error {
	date, err := time.Parse("2006-01-02", targetsDate)
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
	if selector.FilterFineData() {
		fine, err := a.store.FineSnapshot(ctx, date, selection.Symbols)
		if err != nil {
			return fmt.Errorf("load fine snapshot: %w", err)
		}
		if selection, err = selector.SelectFine(ctx, date, fine); err != nil {
			return fmt.Errorf("fine selection: %w", err)
		}
	}

	prices, err := a.store.ClosePrices(ctx, date, selection.Symbols)
	if err != nil {
		return fmt.Errorf("load close prices: %w", err)
	}

	sim := engine.NewSimulator(a.log)
	sim.Initialize(targetsCapital, 0, 0)
	sim.MarkToMarket(prices)

	changes := contracts.SecurityChanges{Added: selection.Symbols}

	alphaModel := alpha.NewConstant(a.strategy.AlphaConfig(), a.log)
	alphaModel.OnSecuritiesChanged(changes)

	insights, err := alphaModel.Update(ctx, contracts.Bar{Date: date, Prices: prices})
	if err != nil {
		return fmt.Errorf("alpha update: %w", err)
	}

	port := portfolio.NewEqualWeighting(a.strategy.PortfolioConfig(), sim, a.log)
	port.OnSecuritiesChanged(changes)

	targets, err := port.CreateTargets(ctx, date, insights)
	if err != nil {
		return fmt.Errorf("create targets: %w", err)
	}

	printSeparator()
	fmt.Printf("Targets for %s (%d symbols, capital %s)\n",
		date.Format("2006-01-02"), len(targets), formatMoney(targetsCapital))
	printSeparator()

	for _, target := range targets {
		price := prices[target.Symbol]
		fmt.Printf("  %-8s %7.2f%%  @ %10.2f  ≈ %s\n",
			target.Symbol,
			target.Percent*100,
			price,
			formatMoney(target.Percent*targetsCapital))
	}

	printSeparator()
	fmt.Printf("Gross exposure: %.2f%%\n", contracts.TotalPercent(targets)*100)

	return nil
}
