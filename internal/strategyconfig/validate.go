package strategyconfig

import (
	"fmt"
	"strings"
)

// ValidationError reports a config constraint violation.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning is a recommended-constraint violation. Non-fatal.
type Warning struct {
	Code    string
	Message string
}

// Validate checks all required constraints.
func Validate(cfg *Config) error {
	if cfg.Meta.StrategyID == "" {
		return ValidationError{"meta.strategy_id", "required"}
	}

	if cfg.Universe.MinPriceUSD < 0 {
		return ValidationError{"universe.min_price_usd", "must be >= 0"}
	}
	if cfg.Universe.MinMarketCap <= 0 {
		return ValidationError{"universe.min_market_cap", "must be > 0"}
	}
	if cfg.Universe.MaxMarketCap <= cfg.Universe.MinMarketCap {
		return ValidationError{"universe.max_market_cap", "must be > min_market_cap"}
	}
	if cfg.Universe.PEPercentile <= 0 || cfg.Universe.PEPercentile > 100 {
		return ValidationError{"universe.pe_percentile", "must be in (0, 100]"}
	}

	switch strings.ToLower(cfg.Alpha.Direction) {
	case "up", "down", "flat":
	default:
		return ValidationError{"alpha.direction", "must be up, down or flat"}
	}
	if cfg.Alpha.InsightDays <= 0 {
		return ValidationError{"alpha.insight_days", "must be > 0"}
	}

	if cfg.Portfolio.RebalanceDays < 0 {
		return ValidationError{"portfolio.rebalance_days", "must be >= 0"}
	}

	if cfg.BacktestCost.CommissionBps < 0 {
		return ValidationError{"backtest_costs.commission_bps", "must be >= 0"}
	}
	if cfg.BacktestCost.SlippageBps < 0 {
		return ValidationError{"backtest_costs.slippage_bps", "must be >= 0"}
	}

	return nil
}

// Warn checks recommended constraints.
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	if cfg.BacktestCost.CommissionBps == 0 && cfg.BacktestCost.SlippageBps == 0 {
		warnings = append(warnings, Warning{
			Code:    "ZERO_COSTS",
			Message: "backtest assumes free execution, results will be optimistic",
		})
	}

	if strings.ToLower(cfg.Alpha.Direction) == "flat" {
		warnings = append(warnings, Warning{
			Code:    "FLAT_ALPHA",
			Message: "flat direction never opens positions",
		})
	}

	if cfg.Universe.MinPriceUSD < 1 {
		warnings = append(warnings, Warning{
			Code:    "PENNY_STOCKS",
			Message: "price floor below $1 admits illiquid penny stocks",
		})
	}

	return warnings
}
