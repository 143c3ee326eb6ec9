package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/capellaquant/capella/internal/engine"
)

// backtestCmd groups backtesting subcommands
var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Backtesting framework",
	Long: `Simulates the strategy over historical data.

Reports strategy returns, risk metrics (Sharpe, Sortino, max drawdown),
win rate and trading costs.

Example:
  go run ./cmd/capella backtest run --from 2015-01-05 --to 2015-12-31
  go run ./cmd/capella backtest run --from 2015-01-05 --capital 250000`,
}

var backtestRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a backtest",
	RunE:  runBacktest,
}

var (
	backtestFrom    string
	backtestTo      string
	backtestCapital float64
)

func init() {
	rootCmd.AddCommand(backtestCmd)
	backtestCmd.AddCommand(backtestRunCmd)

	backtestRunCmd.Flags().StringVar(&backtestFrom, "from", "", "start date (YYYY-MM-DD, required)")
	backtestRunCmd.Flags().StringVar(&backtestTo, "to", "", "end date (YYYY-MM-DD, default: today)")
	backtestRunCmd.Flags().Float64Var(&backtestCapital, "capital", 100_000, "initial capital (USD)")

	backtestRunCmd.MarkFlagRequired("from")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	startDate, err := time.Parse("2006-01-02", backtestFrom)
	if err != nil {
		return fmt.Errorf("invalid start date: %w", err)
	}

	endDate := time.Now()
	if backtestTo != "" {
		endDate, err = time.Parse("2006-01-02", backtestTo)
		if err != nil {
			return fmt.Errorf("invalid end date: %w", err)
		}
	}

	a, err := initApp()
	if err != nil {
		return err
	}
	defer a.close()

	fmt.Printf("Period:   %s ~ %s\n", startDate.Format("2006-01-02"), endDate.Format("2006-01-02"))
	fmt.Printf("Capital:  %s\n", formatMoney(backtestCapital))
	fmt.Printf("Strategy: %s (%s)\n\n", a.strategy.Meta.StrategyID, a.configHash[:12])

	result, err := a.newEngine().Run(cmd.Context(), engine.Config{
		StartDate:      startDate,
		EndDate:        endDate,
		InitialCapital: backtestCapital,
		Commission:     a.strategy.CommissionRate(),
		Slippage:       a.strategy.SlippageRate(),
		ConfigHash:     a.configHash,
	}, nil)
	if err != nil {
		return fmt.Errorf("backtest failed: %w", err)
	}

	printBacktestResult(result)
	return nil
}

func printBacktestResult(result *engine.Result) {
	printSeparator()
	fmt.Println("Backtest Result")
	printSeparator()

	printKeyValue("Period", fmt.Sprintf("%s ~ %s (%d trading days)",
		result.StartDate.Format("2006-01-02"),
		result.EndDate.Format("2006-01-02"),
		result.TradingDays))
	printKeyValue("Universe", fmt.Sprintf("%d symbols, %d refreshes",
		result.FinalUniverseSize, result.UniverseRefreshes))
	printKeyValue("Duration", fmt.Sprintf("%.2fs", result.Duration.Seconds()))
	fmt.Println()

	printKeyValue("Initial Capital", formatMoney(result.InitialCapital))
	printKeyValue("Final Equity", formatMoney(result.FinalEquity))
	printKeyValue("P&L", fmt.Sprintf("%s (%+.2f%%)",
		formatMoney(result.FinalEquity-result.InitialCapital),
		result.TotalReturn*100))
	printKeyValue("CAGR", fmt.Sprintf("%+.2f%%", result.CAGR*100))
	printKeyValue("Volatility", fmt.Sprintf("%.2f%%", result.Volatility*100))
	fmt.Println()

	printKeyValue("Sharpe Ratio", fmt.Sprintf("%.2f", result.SharpeRatio))
	printKeyValue("Sortino Ratio", fmt.Sprintf("%.2f", result.SortinoRatio))
	printKeyValue("Max Drawdown", fmt.Sprintf("%.2f%%", result.MaxDrawdown*100))
	fmt.Println()

	printKeyValue("Total Trades", fmt.Sprintf("%d", result.TotalTrades))
	printKeyValue("Win Rate", fmt.Sprintf("%.1f%% (%d W / %d L)",
		result.WinRate*100, result.WinningTrades, result.LosingTrades))
	printKeyValue("Commission", formatMoney(result.TotalCommission))
	printKeyValue("Slippage", formatMoney(result.TotalSlippage))
	fmt.Println()

	// Last days of the equity curve
	fmt.Println("Equity Curve (last 10 days)")
	startIdx := len(result.EquityCurve) - 10
	if startIdx < 0 {
		startIdx = 0
	}
	for _, point := range result.EquityCurve[startIdx:] {
		fmt.Printf("  %s  %14s  %+7.2f%%\n",
			point.Date.Format("2006-01-02"),
			formatMoney(point.Equity),
			point.Return*100)
	}
}
