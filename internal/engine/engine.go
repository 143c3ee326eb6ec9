package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/capellaquant/capella/internal/contracts"
	"github.com/capellaquant/capella/internal/data"
	"github.com/capellaquant/capella/pkg/logger"
)

// Engine drives a strategy through historical data day by day: universe
// selection, alpha insights, portfolio targets, simulated execution.
type Engine struct {
	store     data.Store
	universe  contracts.UniverseSelector
	alpha     contracts.AlphaModel
	portfolio contracts.PortfolioConstructor
	simulator *Simulator
	logger    *logger.Logger
}

// Config holds backtest configuration.
type Config struct {
	StartDate      time.Time
	EndDate        time.Time
	InitialCapital float64
	Commission     float64 // rate, e.g. 0.001 for 0.1%
	Slippage       float64 // rate, e.g. 0.0005 for 0.05%
	ConfigHash     string  // strategy config fingerprint, carried into the result
}

// Result holds backtest results.
type Result struct {
	Config      Config
	StartDate   time.Time
	EndDate     time.Time
	Duration    time.Duration
	TradingDays int
	ConfigHash  string

	// Universe activity
	UniverseRefreshes int
	FinalUniverseSize int

	// Performance metrics
	InitialCapital   float64
	FinalEquity      float64
	TotalReturn      float64
	AnnualizedReturn float64
	CAGR             float64
	Volatility       float64
	SharpeRatio      float64
	SortinoRatio     float64
	MaxDrawdown      float64
	WinRate          float64

	// Trading metrics
	TotalTrades     int
	WinningTrades   int
	LosingTrades    int
	TotalCommission float64
	TotalSlippage   float64

	EquityCurve []EquityPoint
}

// EquityPoint is one day on the equity curve.
type EquityPoint struct {
	Date   time.Time `json:"date"`
	Equity float64   `json:"equity"`
	Return float64   `json:"return"`
}

// NewEngine creates a backtest engine. The simulator passed here must be
// the same Holdings instance the portfolio constructor was built with.
func NewEngine(
	store data.Store,
	universe contracts.UniverseSelector,
	alpha contracts.AlphaModel,
	portfolio contracts.PortfolioConstructor,
	simulator *Simulator,
	log *logger.Logger,
) *Engine {
	return &Engine{
		store:     store,
		universe:  universe,
		alpha:     alpha,
		portfolio: portfolio,
		simulator: simulator,
		logger:    log,
	}
}

// Run executes the backtest over the configured date range. The optional
// onDay callback receives each equity point as it is produced.
func (e *Engine) Run(ctx context.Context, config Config, onDay func(EquityPoint)) (*Result, error) {
	e.logger.WithFields(map[string]interface{}{
		"start_date":      config.StartDate.Format("2006-01-02"),
		"end_date":        config.EndDate.Format("2006-01-02"),
		"initial_capital": config.InitialCapital,
	}).Info("Starting backtest")

	startTime := time.Now()

	dates, err := e.store.TradingDates(ctx, config.StartDate, config.EndDate)
	if err != nil {
		return nil, fmt.Errorf("load trading dates: %w", err)
	}
	if len(dates) == 0 {
		return nil, fmt.Errorf("no trading dates between %s and %s",
			config.StartDate.Format("2006-01-02"), config.EndDate.Format("2006-01-02"))
	}

	result := &Result{
		Config:         config,
		StartDate:      config.StartDate,
		EndDate:        config.EndDate,
		ConfigHash:     config.ConfigHash,
		InitialCapital: config.InitialCapital,
		EquityCurve:    make([]EquityPoint, 0, len(dates)),
	}

	e.simulator.Initialize(config.InitialCapital, config.Commission, config.Slippage)

	universe := make(map[string]bool)

	for _, date := range dates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if err := e.selectUniverse(ctx, date, universe, result); err != nil {
			e.logger.WithFields(map[string]interface{}{
				"date":  date.Format("2006-01-02"),
				"error": err.Error(),
			}).Warn("Universe selection failed")
		}

		prices, err := e.store.ClosePrices(ctx, date, e.trackedSymbols(universe))
		if err != nil {
			return nil, fmt.Errorf("load close prices for %s: %w", date.Format("2006-01-02"), err)
		}
		e.simulator.MarkToMarket(prices)

		insights, err := e.alpha.Update(ctx, contracts.Bar{Date: date, Prices: prices})
		if err != nil {
			return nil, fmt.Errorf("alpha update for %s: %w", date.Format("2006-01-02"), err)
		}

		targets, err := e.portfolio.CreateTargets(ctx, date, insights)
		if err != nil {
			return nil, fmt.Errorf("create targets for %s: %w", date.Format("2006-01-02"), err)
		}

		if len(targets) > 0 {
			e.logger.WithFields(map[string]interface{}{
				"date":    date.Format("2006-01-02"),
				"targets": len(targets),
				"gross":   contracts.TotalPercent(targets),
			}).Debug("Rebalancing")
		}
		e.executeTargets(targets)

		equity, _ := e.simulator.Equity().Float64()
		point := EquityPoint{
			Date:   date,
			Equity: equity,
			Return: (equity - config.InitialCapital) / config.InitialCapital,
		}
		result.EquityCurve = append(result.EquityCurve, point)
		if onDay != nil {
			onDay(point)
		}

		result.TradingDays++
	}

	result.Duration = time.Since(startTime)
	result.FinalUniverseSize = len(universe)
	result.FinalEquity, _ = e.simulator.Equity().Float64()

	calculateMetrics(result, e.simulator.GetStats())

	e.logger.WithFields(map[string]interface{}{
		"duration":     result.Duration.Seconds(),
		"trading_days": result.TradingDays,
		"total_return": fmt.Sprintf("%.2f%%", result.TotalReturn*100),
		"sharpe_ratio": fmt.Sprintf("%.2f", result.SharpeRatio),
		"max_drawdown": fmt.Sprintf("%.2f%%", result.MaxDrawdown*100),
	}).Info("Backtest completed")

	return result, nil
}

// selectUniverse runs the two-stage selection for the day and, when the
// membership changes, notifies the alpha and portfolio models.
func (e *Engine) selectUniverse(ctx context.Context, date time.Time, universe map[string]bool, result *Result) error {
	coarse, err := e.store.CoarseSnapshot(ctx, date)
	if err != nil {
		if errors.Is(err, data.ErrNotFound) {
			return nil // no snapshot for this day, keep the current universe
		}
		return err
	}

	selection, err := e.universe.SelectCoarse(ctx, date, coarse)
	if err != nil {
		return err
	}
	if selection.Unchanged {
		return nil
	}

	if e.universe.FilterFineData() {
		fine, err := e.store.FineSnapshot(ctx, date, selection.Symbols)
		if err != nil {
			// The coarse pass already advanced the refresh guard; drop it
			// so the next bar retries the whole round
			e.universe.Invalidate()
			return err
		}
		selection, err = e.universe.SelectFine(ctx, date, fine)
		if err != nil {
			e.universe.Invalidate()
			return err
		}
		if selection.Unchanged {
			return nil
		}
	}

	changes := diffUniverse(universe, selection.Symbols)
	if changes.IsEmpty() {
		return nil
	}

	e.alpha.OnSecuritiesChanged(changes)
	e.portfolio.OnSecuritiesChanged(changes)

	for _, symbol := range changes.Removed {
		delete(universe, symbol)
	}
	for _, symbol := range changes.Added {
		universe[symbol] = true
	}

	result.UniverseRefreshes++

	e.logger.WithFields(map[string]interface{}{
		"date":    date.Format("2006-01-02"),
		"added":   len(changes.Added),
		"removed": len(changes.Removed),
		"size":    len(universe),
	}).Info("Universe changed")

	return nil
}

// executeTargets fills targets, flattening positions first so the freed
// cash is available for new allocations.
func (e *Engine) executeTargets(targets []contracts.Target) {
	for _, target := range targets {
		if !target.IsFlatten() {
			continue
		}
		e.executeTarget(target)
	}
	for _, target := range targets {
		if target.IsFlatten() {
			continue
		}
		e.executeTarget(target)
	}
}

func (e *Engine) executeTarget(target contracts.Target) {
	if err := e.simulator.ExecuteTarget(target.Symbol, target.Percent); err != nil {
		e.logger.WithFields(map[string]interface{}{
			"symbol": target.Symbol,
			"error":  err.Error(),
		}).Warn("Target execution failed")
	}
}

// trackedSymbols returns the union of the current universe and all open
// positions, sorted for deterministic queries.
func (e *Engine) trackedSymbols(universe map[string]bool) []string {
	seen := make(map[string]bool, len(universe))
	for symbol := range universe {
		seen[symbol] = true
	}
	for symbol := range e.simulator.Positions() {
		seen[symbol] = true
	}

	symbols := make([]string, 0, len(seen))
	for symbol := range seen {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}

// diffUniverse compares the current membership against a new symbol list.
func diffUniverse(current map[string]bool, selected []string) contracts.SecurityChanges {
	next := make(map[string]bool, len(selected))
	for _, symbol := range selected {
		next[symbol] = true
	}

	var changes contracts.SecurityChanges
	for _, symbol := range selected {
		if !current[symbol] {
			changes.Added = append(changes.Added, symbol)
		}
	}
	for symbol := range current {
		if !next[symbol] {
			changes.Removed = append(changes.Removed, symbol)
		}
	}
	sort.Strings(changes.Added)
	sort.Strings(changes.Removed)
	return changes
}
