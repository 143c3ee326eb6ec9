package strategyconfig

import (
	"strings"

	"github.com/capellaquant/capella/internal/alpha"
	"github.com/capellaquant/capella/internal/contracts"
	"github.com/capellaquant/capella/internal/portfolio"
	"github.com/capellaquant/capella/internal/universe"
)

// Config is the full strategy definition loaded from YAML.
type Config struct {
	Meta         Meta         `yaml:"meta" json:"meta"`
	Universe     Universe     `yaml:"universe" json:"universe"`
	Alpha        Alpha        `yaml:"alpha" json:"alpha"`
	Portfolio    Portfolio    `yaml:"portfolio" json:"portfolio"`
	BacktestCost BacktestCost `yaml:"backtest_costs" json:"backtest_costs"`
}

// Meta identifies the strategy.
type Meta struct {
	StrategyID string `yaml:"strategy_id" json:"strategy_id"`
	Version    string `yaml:"version" json:"version"`
}

// Universe configures the two-stage small-cap low-P/E selection.
type Universe struct {
	MinPriceUSD    float64 `yaml:"min_price_usd" json:"min_price_usd"`
	MinMarketCap   float64 `yaml:"min_market_cap" json:"min_market_cap"`
	MaxMarketCap   float64 `yaml:"max_market_cap" json:"max_market_cap"`
	PEPercentile   float64 `yaml:"pe_percentile" json:"pe_percentile"`
	FilterFineData bool    `yaml:"filter_fine_data" json:"filter_fine_data"`
}

// Alpha configures the constant-direction insight model.
type Alpha struct {
	Direction   string `yaml:"direction" json:"direction"` // up, down or flat
	InsightDays int    `yaml:"insight_days" json:"insight_days"`
}

// Portfolio configures equal-weighting construction.
type Portfolio struct {
	RebalanceDays int `yaml:"rebalance_days" json:"rebalance_days"`
}

// BacktestCost holds simulated trading cost assumptions.
type BacktestCost struct {
	CommissionBps float64 `yaml:"commission_bps" json:"commission_bps"`
	SlippageBps   float64 `yaml:"slippage_bps" json:"slippage_bps"`
}

// UniverseConfig converts the section into the selector's config.
func (c *Config) UniverseConfig() universe.Config {
	return universe.Config{
		MinPrice:       c.Universe.MinPriceUSD,
		MinMarketCap:   c.Universe.MinMarketCap,
		MaxMarketCap:   c.Universe.MaxMarketCap,
		PEPercentile:   c.Universe.PEPercentile,
		FilterFineData: c.Universe.FilterFineData,
	}
}

// AlphaConfig converts the section into the alpha model's config.
func (c *Config) AlphaConfig() alpha.Config {
	return alpha.Config{
		Direction:   parseDirection(c.Alpha.Direction),
		InsightDays: c.Alpha.InsightDays,
	}
}

// PortfolioConfig converts the section into the constructor's config.
func (c *Config) PortfolioConfig() portfolio.Config {
	return portfolio.Config{
		RebalanceDays: c.Portfolio.RebalanceDays,
	}
}

// CommissionRate returns the commission assumption as a rate.
func (c *Config) CommissionRate() float64 {
	return c.BacktestCost.CommissionBps / 10_000
}

// SlippageRate returns the slippage assumption as a rate.
func (c *Config) SlippageRate() float64 {
	return c.BacktestCost.SlippageBps / 10_000
}

func parseDirection(s string) contracts.Direction {
	switch strings.ToLower(s) {
	case "up":
		return contracts.DirectionUp
	case "down":
		return contracts.DirectionDown
	default:
		return contracts.DirectionFlat
	}
}
