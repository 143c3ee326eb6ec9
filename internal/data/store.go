package data

import (
	"context"
	"errors"
	"time"

	"github.com/capellaquant/capella/internal/contracts"
)

// ErrNotFound is returned when the store has no data for the requested
// date or symbol.
var ErrNotFound = errors.New("data: not found")

// Store provides the market data a backtest consumes: the trading
// calendar, daily fundamental snapshots for universe selection, and
// closing prices for execution and mark-to-market.
type Store interface {
	// TradingDates returns the trading days in [from, to], ascending.
	TradingDates(ctx context.Context, from, to time.Time) ([]time.Time, error)

	// CoarseSnapshot returns the coarse fundamentals for every listed
	// security on the given trading day.
	CoarseSnapshot(ctx context.Context, date time.Time) ([]contracts.CoarseFundamental, error)

	// FineSnapshot returns fine fundamentals for the given symbols on the
	// given trading day. Symbols without fundamental data are omitted.
	FineSnapshot(ctx context.Context, date time.Time, symbols []string) ([]contracts.FineFundamental, error)

	// ClosePrices returns the closing price per symbol for the given
	// trading day. Symbols that did not trade are absent from the map.
	ClosePrices(ctx context.Context, date time.Time, symbols []string) (map[string]float64, error)
}

// Writer persists snapshots fetched from external sources.
type Writer interface {
	SaveCoarse(ctx context.Context, date time.Time, rows []contracts.CoarseFundamental) error
	SaveFine(ctx context.Context, date time.Time, rows []contracts.FineFundamental) error
	SaveClosePrices(ctx context.Context, date time.Time, prices map[string]float64) error
}
