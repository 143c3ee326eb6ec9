package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capellaquant/capella/internal/contracts"
	"github.com/capellaquant/capella/internal/data"
	"github.com/capellaquant/capella/internal/engine"
	"github.com/capellaquant/capella/internal/strategyconfig"
	"github.com/capellaquant/capella/pkg/logger"
)

const strategyYAML = `
meta:
  strategy_id: smallcap_lowpe_v1
  version: "1.0.0"
universe:
  min_price_usd: 5
  min_market_cap: 300000000
  max_market_cap: 2000000000
  pe_percentile: 1
  filter_fine_data: true
alpha:
  direction: up
  insight_days: 1
portfolio:
  rebalance_days: 0
backtest_costs:
  commission_bps: 0
  slippage_bps: 0
`

func seedStore(t *testing.T) *data.MemoryStore {
	t.Helper()
	ctx := context.Background()
	store := data.NewMemoryStore()

	date := time.Date(2015, 1, 5, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveCoarse(ctx, date, []contracts.CoarseFundamental{
		{Symbol: "ALFA", Price: 10, DollarVolume: 2e6, HasFundamentalData: true},
		{Symbol: "BETA", Price: 12, DollarVolume: 3e6, HasFundamentalData: true},
		{Symbol: "PENY", Price: 3, DollarVolume: 1e5, HasFundamentalData: true},
	}))
	require.NoError(t, store.SaveFine(ctx, date, []contracts.FineFundamental{
		{Symbol: "ALFA", MarketCap: 5e8, PERatio: 10},
		{Symbol: "BETA", MarketCap: 8e8, PERatio: 20},
	}))

	prices := map[int]float64{5: 100, 6: 110, 7: 121}
	for d, alfa := range prices {
		day := time.Date(2015, 1, d, 0, 0, 0, 0, time.UTC)
		require.NoError(t, store.SaveClosePrices(ctx, day, map[string]float64{"ALFA": alfa, "BETA": 50}))
	}
	return store
}

func newHandlers(t *testing.T) (*StrategyHandler, *BacktestHandler) {
	t.Helper()

	strategy, err := strategyconfig.Parse([]byte(strategyYAML))
	require.NoError(t, err)
	hash, err := strategyconfig.Hash(strategy)
	require.NoError(t, err)

	store := seedStore(t)
	log := logger.Nop()
	return NewStrategyHandler(store, strategy, hash, log),
		NewBacktestHandler(store, strategy, hash, log)
}

func TestGetStrategy(t *testing.T) {
	strategyHandler, _ := newHandlers(t)

	rec := httptest.NewRecorder()
	strategyHandler.GetStrategy(rec, httptest.NewRequest("GET", "/api/strategy", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body, "config_hash")
	assert.Contains(t, body, "config")
}

func TestGetUniverse(t *testing.T) {
	strategyHandler, _ := newHandlers(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/strategy/universe?date=2015-01-05", nil)
	strategyHandler.GetUniverse(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Date     string            `json:"date"`
		Symbols  []string          `json:"symbols"`
		Excluded map[string]string `json:"excluded"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, "2015-01-05", body.Date)
	assert.Equal(t, []string{"ALFA"}, body.Symbols)
	assert.Contains(t, body.Excluded, "PENY")
}

func TestGetUniverse_BadDate(t *testing.T) {
	strategyHandler, _ := newHandlers(t)

	rec := httptest.NewRecorder()
	strategyHandler.GetUniverse(rec, httptest.NewRequest("GET", "/api/strategy/universe?date=nope", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetUniverse_NoSnapshot(t *testing.T) {
	strategyHandler, _ := newHandlers(t)

	rec := httptest.NewRecorder()
	strategyHandler.GetUniverse(rec, httptest.NewRequest("GET", "/api/strategy/universe?date=2014-06-02", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRunBacktest(t *testing.T) {
	_, backtestHandler := newHandlers(t)

	payload, _ := json.Marshal(BacktestRequest{
		StartDate:      "2015-01-05",
		EndDate:        "2015-01-07",
		InitialCapital: 100_000,
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/backtest", bytes.NewReader(payload))
	backtestHandler.Run(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result engine.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 3, result.TradingDays)
	assert.InDelta(t, 0.21, result.TotalReturn, 1e-9)
	assert.NotEmpty(t, result.ConfigHash)
}

func TestRunBacktest_BadBody(t *testing.T) {
	_, backtestHandler := newHandlers(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/backtest", strings.NewReader("{"))
	backtestHandler.Run(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStreamBacktest(t *testing.T) {
	_, backtestHandler := newHandlers(t)

	r := mux.NewRouter()
	r.HandleFunc("/api/backtest/stream", backtestHandler.Stream)
	server := httptest.NewServer(r)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") +
		"/api/backtest/stream?start=2015-01-05&end=2015-01-07&capital=100000"

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	var equity, result int
	for {
		var msg struct {
			Type   string              `json:"type"`
			Point  *engine.EquityPoint `json:"point"`
			Result *engine.Result      `json:"result"`
			Error  string              `json:"error"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}

		switch msg.Type {
		case "equity":
			equity++
			require.NotNil(t, msg.Point)
		case "result":
			result++
			require.NotNil(t, msg.Result)
			assert.InDelta(t, 0.21, msg.Result.TotalReturn, 1e-9)
		case "error":
			t.Fatalf("stream error: %s", msg.Error)
		}

		if result > 0 {
			break
		}
	}

	assert.Equal(t, 3, equity, "one frame per trading day")
	assert.Equal(t, 1, result)
}
