package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/capellaquant/capella/internal/alpha"
	"github.com/capellaquant/capella/internal/data"
	"github.com/capellaquant/capella/internal/engine"
	"github.com/capellaquant/capella/internal/portfolio"
	"github.com/capellaquant/capella/internal/strategyconfig"
	"github.com/capellaquant/capella/internal/universe"
	"github.com/capellaquant/capella/pkg/logger"
)

// BacktestHandler runs backtests over the configured strategy.
type BacktestHandler struct {
	store      data.Store
	strategy   *strategyconfig.Config
	configHash string
	logger     *logger.Logger
	upgrader   websocket.Upgrader
}

// NewBacktestHandler creates a backtest handler.
func NewBacktestHandler(store data.Store, strategy *strategyconfig.Config, configHash string, log *logger.Logger) *BacktestHandler {
	return &BacktestHandler{
		store:      store,
		strategy:   strategy,
		configHash: configHash,
		logger:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// BacktestRequest is the POST /api/backtest body.
type BacktestRequest struct {
	StartDate      string  `json:"start_date"` // YYYY-MM-DD
	EndDate        string  `json:"end_date"`   // YYYY-MM-DD
	InitialCapital float64 `json:"initial_capital"`
}

func (req *BacktestRequest) engineConfig(strategy *strategyconfig.Config, configHash string) (engine.Config, error) {
	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return engine.Config{}, err
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return engine.Config{}, err
	}

	capital := req.InitialCapital
	if capital <= 0 {
		capital = 100_000
	}

	return engine.Config{
		StartDate:      start,
		EndDate:        end,
		InitialCapital: capital,
		Commission:     strategy.CommissionRate(),
		Slippage:       strategy.SlippageRate(),
		ConfigHash:     configHash,
	}, nil
}

// newEngine wires a fresh model chain. Models carry per-run state, so
// every backtest gets its own instances.
func (h *BacktestHandler) newEngine() *engine.Engine {
	sim := engine.NewSimulator(h.logger)
	uni := universe.NewSmallCapsLowPE(h.strategy.UniverseConfig(), h.logger)
	alphaModel := alpha.NewConstant(h.strategy.AlphaConfig(), h.logger)
	port := portfolio.NewEqualWeighting(h.strategy.PortfolioConfig(), sim, h.logger)

	return engine.NewEngine(h.store, uni, alphaModel, port, sim, h.logger)
}

// Run executes a backtest and returns the full result.
// POST /api/backtest
func (h *BacktestHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req BacktestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	cfg, err := req.engineConfig(h.strategy, h.configHash)
	if err != nil {
		respondError(w, http.StatusBadRequest, "dates must be YYYY-MM-DD")
		return
	}

	result, err := h.newEngine().Run(r.Context(), cfg, nil)
	if err != nil {
		h.logger.WithError(err).Error("Backtest failed")
		respondError(w, http.StatusInternalServerError, "Backtest failed")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// streamMessage is one websocket frame of a streamed backtest.
type streamMessage struct {
	Type   string              `json:"type"` // "equity", "result" or "error"
	Point  *engine.EquityPoint `json:"point,omitempty"`
	Result *engine.Result      `json:"result,omitempty"`
	Error  string              `json:"error,omitempty"`
}

// Stream runs a backtest and streams the equity curve over a websocket,
// finishing with the full result.
// GET /api/backtest/stream?start=YYYY-MM-DD&end=YYYY-MM-DD&capital=100000
func (h *BacktestHandler) Stream(w http.ResponseWriter, r *http.Request) {
	req := BacktestRequest{
		StartDate: r.URL.Query().Get("start"),
		EndDate:   r.URL.Query().Get("end"),
	}
	if raw := r.URL.Query().Get("capital"); raw != "" {
		capital, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "capital must be a number")
			return
		}
		req.InitialCapital = capital
	}

	cfg, err := req.engineConfig(h.strategy, h.configHash)
	if err != nil {
		respondError(w, http.StatusBadRequest, "start and end must be YYYY-MM-DD")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	result, err := h.newEngine().Run(r.Context(), cfg, func(point engine.EquityPoint) {
		p := point
		if err := conn.WriteJSON(streamMessage{Type: "equity", Point: &p}); err != nil {
			h.logger.WithError(err).Debug("Websocket write failed")
		}
	})
	if err != nil {
		conn.WriteJSON(streamMessage{Type: "error", Error: err.Error()})
		return
	}

	conn.WriteJSON(streamMessage{Type: "result", Result: result})
}
