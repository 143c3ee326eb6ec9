package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// fetchCmd pulls a screener snapshot and stores it
var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch a fundamentals snapshot from the screener",
	Long: `Fetches the daily fundamentals snapshot (prices, market caps,
P/E ratios) from the screener site and stores it for selection and
backtesting.

Example:
  go run ./cmd/capella fetch
  go run ./cmd/capella fetch --date 2015-01-05`,
	RunE: runFetch,
}

var fetchDate string

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringVar(&fetchDate, "date", "", "snapshot date (YYYY-MM-DD, default: today)")
}

func runFetch(cmd *cobra.Command, args []string) error {
	date := time.Now().UTC().Truncate(24 * time.Hour)
	if fetchDate != "" {
		var err error
		date, err = time.Parse("2006-01-02", fetchDate)
		if err != nil {
			return fmt.Errorf("invalid date: %w", err)
		}
	}

	a, err := initApp()
	if err != nil {
		return err
	}
	defer a.close()

	client, err := a.newScreenerClient()
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	snapshot, err := client.FetchSnapshot(ctx, date)
	if err != nil {
		return fmt.Errorf("fetch snapshot: %w", err)
	}

	if err := a.store.SaveCoarse(ctx, date, snapshot.Coarse); err != nil {
		return fmt.Errorf("save coarse: %w", err)
	}
	if err := a.store.SaveFine(ctx, date, snapshot.Fine); err != nil {
		return fmt.Errorf("save fine: %w", err)
	}

	prices := make(map[string]float64, len(snapshot.Coarse))
	for _, c := range snapshot.Coarse {
		prices[c.Symbol] = c.Price
	}
	if err := a.store.SaveClosePrices(ctx, date, prices); err != nil {
		return fmt.Errorf("save close prices: %w", err)
	}

	fmt.Printf("Stored snapshot for %s: %d securities, %d with fundamentals\n",
		date.Format("2006-01-02"), len(snapshot.Coarse), len(snapshot.Fine))

	return nil
}
