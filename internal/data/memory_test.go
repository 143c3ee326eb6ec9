package data

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capellaquant/capella/internal/contracts"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestMemoryStore_TradingDates(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	for _, d := range []time.Time{day(2015, 1, 7), day(2015, 1, 5), day(2015, 1, 6), day(2015, 2, 2)} {
		require.NoError(t, store.SaveClosePrices(ctx, d, map[string]float64{"AAPL": 106}))
	}

	dates, err := store.TradingDates(ctx, day(2015, 1, 1), day(2015, 1, 31))
	require.NoError(t, err)
	require.Len(t, dates, 3)
	assert.True(t, dates[0].Equal(day(2015, 1, 5)))
	assert.True(t, dates[1].Equal(day(2015, 1, 6)))
	assert.True(t, dates[2].Equal(day(2015, 1, 7)))
}

func TestMemoryStore_CoarseSnapshotMissing(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.CoarseSnapshot(context.Background(), day(2015, 1, 5))
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMemoryStore_FineSnapshotFiltersSymbols(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.SaveFine(ctx, day(2015, 1, 5), []contracts.FineFundamental{
		{Symbol: "MSFT", MarketCap: 4e8, PERatio: 12},
		{Symbol: "AAPL", MarketCap: 6e8, PERatio: 15},
		{Symbol: "GE", MarketCap: 9e8, PERatio: 18},
	}))

	fine, err := store.FineSnapshot(ctx, day(2015, 1, 5), []string{"AAPL", "GE", "XOM"})
	require.NoError(t, err)
	require.Len(t, fine, 2)
	assert.Equal(t, "AAPL", fine[0].Symbol)
	assert.Equal(t, "GE", fine[1].Symbol)
}

func TestMemoryStore_ClosePricesOmitsUntraded(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.SaveClosePrices(ctx, day(2015, 1, 5), map[string]float64{
		"AAPL": 106.25,
		"MSFT": 46.76,
	}))

	prices, err := store.ClosePrices(ctx, day(2015, 1, 5), []string{"AAPL", "HALT"})
	require.NoError(t, err)
	require.Len(t, prices, 1)
	assert.Equal(t, 106.25, prices["AAPL"])
}

func TestMemoryStore_SaveFineMerges(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.SaveFine(ctx, day(2015, 1, 5), []contracts.FineFundamental{
		{Symbol: "AAPL", MarketCap: 6e8, PERatio: 15},
	}))
	require.NoError(t, store.SaveFine(ctx, day(2015, 1, 5), []contracts.FineFundamental{
		{Symbol: "AAPL", MarketCap: 6e8, PERatio: 14}, // restated
		{Symbol: "MSFT", MarketCap: 4e8, PERatio: 12},
	}))

	fine, err := store.FineSnapshot(ctx, day(2015, 1, 5), []string{"AAPL", "MSFT"})
	require.NoError(t, err)
	require.Len(t, fine, 2)
	assert.Equal(t, 14.0, fine[0].PERatio)
}
