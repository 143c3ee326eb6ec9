package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capellaquant/capella/internal/alpha"
	"github.com/capellaquant/capella/internal/contracts"
	"github.com/capellaquant/capella/internal/data"
	"github.com/capellaquant/capella/internal/portfolio"
	"github.com/capellaquant/capella/internal/universe"
	"github.com/capellaquant/capella/pkg/logger"
)

func day(d int) time.Time {
	return time.Date(2015, 1, d, 0, 0, 0, 0, time.UTC)
}

// seedStore loads three trading days where ALFA is the only security that
// survives both selection stages, then rises 10% per day.
func seedStore(t *testing.T) *data.MemoryStore {
	t.Helper()
	ctx := context.Background()
	store := data.NewMemoryStore()

	require.NoError(t, store.SaveCoarse(ctx, day(5), []contracts.CoarseFundamental{
		{Symbol: "ALFA", Price: 10, DollarVolume: 2e6, HasFundamentalData: true},
		{Symbol: "BETA", Price: 12, DollarVolume: 3e6, HasFundamentalData: true},
		{Symbol: "PENY", Price: 3, DollarVolume: 1e5, HasFundamentalData: true},
		{Symbol: "NOFD", Price: 50, DollarVolume: 9e6, HasFundamentalData: false},
	}))
	require.NoError(t, store.SaveFine(ctx, day(5), []contracts.FineFundamental{
		{Symbol: "ALFA", MarketCap: 5e8, PERatio: 10},
		{Symbol: "BETA", MarketCap: 8e8, PERatio: 20},
	}))

	prices := map[int]float64{5: 100, 6: 110, 7: 121}
	for d, alfa := range prices {
		require.NoError(t, store.SaveClosePrices(ctx, day(d), map[string]float64{
			"ALFA": alfa,
			"BETA": 50,
		}))
	}
	return store
}

func newTestEngine(store data.Store) (*Engine, *Simulator) {
	return newTestEngineWithUniverse(store, universe.DefaultConfig())
}

func newTestEngineWithUniverse(store data.Store, cfg universe.Config) (*Engine, *Simulator) {
	log := logger.Nop()
	sim := NewSimulator(log)

	uni := universe.NewSmallCapsLowPE(cfg, log)
	alphaModel := alpha.NewConstant(alpha.DefaultConfig(), log)
	port := portfolio.NewEqualWeighting(portfolio.Config{}, sim, log)

	return NewEngine(store, uni, alphaModel, port, sim, log), sim
}

func TestEngine_Run(t *testing.T) {
	store := seedStore(t)
	engine, _ := newTestEngine(store)

	result, err := engine.Run(context.Background(), Config{
		StartDate:      day(5),
		EndDate:        day(7),
		InitialCapital: 100_000,
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, result.TradingDays)
	assert.Equal(t, 1, result.UniverseRefreshes, "selection runs once per year")
	assert.Equal(t, 1, result.FinalUniverseSize, "only the lowest-P/E small cap survives")

	// Fully invested in ALFA from day one: equity tracks its 21% run
	require.Len(t, result.EquityCurve, 3)
	assert.InDelta(t, 100_000, result.EquityCurve[0].Equity, 1e-6)
	assert.InDelta(t, 110_000, result.EquityCurve[1].Equity, 1e-6)
	assert.InDelta(t, 121_000, result.EquityCurve[2].Equity, 1e-6)

	assert.InDelta(t, 0.21, result.TotalReturn, 1e-9)
	assert.Equal(t, 1, result.TotalTrades, "buy once, then hold while insights agree")
	assert.Equal(t, 0.0, result.MaxDrawdown)
}

func TestEngine_RunCoarseOnly(t *testing.T) {
	ctx := context.Background()
	store := data.NewMemoryStore()

	// No fine rows at all: with the fine stage disabled the coarse
	// survivors are the universe
	require.NoError(t, store.SaveCoarse(ctx, day(5), []contracts.CoarseFundamental{
		{Symbol: "ALFA", Price: 10, DollarVolume: 2e6, HasFundamentalData: true},
		{Symbol: "BETA", Price: 12, DollarVolume: 3e6, HasFundamentalData: true},
		{Symbol: "PENY", Price: 3, DollarVolume: 1e5, HasFundamentalData: true},
	}))
	for d, prices := range map[int]map[string]float64{
		5: {"ALFA": 100, "BETA": 50},
		6: {"ALFA": 110, "BETA": 55},
	} {
		require.NoError(t, store.SaveClosePrices(ctx, day(d), prices))
	}

	cfg := universe.DefaultConfig()
	cfg.FilterFineData = false
	engine, sim := newTestEngineWithUniverse(store, cfg)

	result, err := engine.Run(ctx, Config{
		StartDate:      day(5),
		EndDate:        day(6),
		InitialCapital: 100_000,
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, result.FinalUniverseSize, "priced, fundamental-bearing stocks pass through")
	assert.Equal(t, 1, result.UniverseRefreshes)

	// Equal-weighted across both survivors
	assert.True(t, sim.Invested("ALFA"))
	assert.True(t, sim.Invested("BETA"))
}

func TestEngine_FineStageFailureRetriesNextBar(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t)

	// A coarse snapshot on the second day gives the retry something to
	// select from
	require.NoError(t, store.SaveCoarse(ctx, day(6), []contracts.CoarseFundamental{
		{Symbol: "ALFA", Price: 11, DollarVolume: 2e6, HasFundamentalData: true},
		{Symbol: "BETA", Price: 13, DollarVolume: 3e6, HasFundamentalData: true},
	}))
	require.NoError(t, store.SaveFine(ctx, day(6), []contracts.FineFundamental{
		{Symbol: "ALFA", MarketCap: 5e8, PERatio: 10},
		{Symbol: "BETA", MarketCap: 8e8, PERatio: 20},
	}))

	flaky := &flakyFineStore{MemoryStore: store, failures: 1}
	engine, _ := newTestEngine(flaky)

	result, err := engine.Run(ctx, Config{
		StartDate:      day(5),
		EndDate:        day(7),
		InitialCapital: 100_000,
	}, nil)
	require.NoError(t, err)

	// Day one's fine load fails and resets the yearly guard, so day two
	// retries and the universe is built within the same year
	assert.Equal(t, 1, result.UniverseRefreshes)
	assert.Equal(t, 1, result.FinalUniverseSize)
}

// flakyFineStore fails the first fine snapshot loads, then recovers.
type flakyFineStore struct {
	*data.MemoryStore
	failures int
}

func (s *flakyFineStore) FineSnapshot(ctx context.Context, date time.Time, symbols []string) ([]contracts.FineFundamental, error) {
	if s.failures > 0 {
		s.failures--
		return nil, errors.New("fine snapshot unavailable")
	}
	return s.MemoryStore.FineSnapshot(ctx, date, symbols)
}

func TestEngine_RunCallback(t *testing.T) {
	store := seedStore(t)
	engine, _ := newTestEngine(store)

	var points []EquityPoint
	_, err := engine.Run(context.Background(), Config{
		StartDate:      day(5),
		EndDate:        day(7),
		InitialCapital: 100_000,
	}, func(p EquityPoint) {
		points = append(points, p)
	})
	require.NoError(t, err)

	require.Len(t, points, 3)
	assert.True(t, points[0].Date.Equal(day(5)))
	assert.InDelta(t, 0.21, points[2].Return, 1e-9)
}

func TestEngine_RunNoData(t *testing.T) {
	engine, _ := newTestEngine(data.NewMemoryStore())

	_, err := engine.Run(context.Background(), Config{
		StartDate:      day(5),
		EndDate:        day(7),
		InitialCapital: 100_000,
	}, nil)
	assert.Error(t, err)
}

func TestEngine_RunCancelled(t *testing.T) {
	store := seedStore(t)
	engine, _ := newTestEngine(store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.Run(ctx, Config{
		StartDate:      day(5),
		EndDate:        day(7),
		InitialCapital: 100_000,
	}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDiffUniverse(t *testing.T) {
	current := map[string]bool{"ALFA": true, "BETA": true}

	changes := diffUniverse(current, []string{"BETA", "GAMA"})
	assert.Equal(t, []string{"GAMA"}, changes.Added)
	assert.Equal(t, []string{"ALFA"}, changes.Removed)

	changes = diffUniverse(current, []string{"ALFA", "BETA"})
	assert.True(t, changes.IsEmpty())
}

func TestMaxDrawdown(t *testing.T) {
	curve := []EquityPoint{
		{Equity: 100},
		{Equity: 120},
		{Equity: 90},
		{Equity: 130},
		{Equity: 104},
	}

	assert.InDelta(t, 0.25, maxDrawdown(curve), 1e-9) // 120 -> 90
	assert.Equal(t, 0.0, maxDrawdown(nil))
}
