package engine

import (
	"math"

	"github.com/montanaflynn/stats"
)

const tradingDaysPerYear = 252

// calculateMetrics fills the performance section of a result from its
// equity curve and the simulator's trade statistics.
func calculateMetrics(result *Result, simStats Stats) {
	result.TotalTrades = simStats.TotalTrades
	result.WinningTrades = simStats.WinningTrades
	result.LosingTrades = simStats.LosingTrades
	result.TotalCommission, _ = simStats.TotalCommission.Float64()
	result.TotalSlippage, _ = simStats.TotalSlippage.Float64()
	if result.TotalTrades > 0 {
		result.WinRate = float64(result.WinningTrades) / float64(result.TotalTrades)
	}

	if len(result.EquityCurve) == 0 || result.InitialCapital <= 0 {
		return
	}

	result.TotalReturn = (result.FinalEquity - result.InitialCapital) / result.InitialCapital

	years := float64(result.TradingDays) / tradingDaysPerYear
	if years > 0 {
		result.AnnualizedReturn = result.TotalReturn / years
		if result.FinalEquity > 0 {
			result.CAGR = math.Pow(result.FinalEquity/result.InitialCapital, 1.0/years) - 1.0
		}
	}

	dailyReturns := dailyReturns(result.EquityCurve)
	if len(dailyReturns) > 0 {
		if stdev, err := stats.StandardDeviation(dailyReturns); err == nil {
			result.Volatility = stdev * math.Sqrt(tradingDaysPerYear)
		}
	}
	if result.Volatility > 0 {
		result.SharpeRatio = result.AnnualizedReturn / result.Volatility
	}

	downside := make([]float64, 0, len(dailyReturns))
	for _, r := range dailyReturns {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	if len(downside) > 0 {
		if stdev, err := stats.StandardDeviation(downside); err == nil {
			if dd := stdev * math.Sqrt(tradingDaysPerYear); dd > 0 {
				result.SortinoRatio = result.AnnualizedReturn / dd
			}
		}
	}

	result.MaxDrawdown = maxDrawdown(result.EquityCurve)
}

// dailyReturns computes day-over-day percentage changes of the curve.
func dailyReturns(curve []EquityPoint) []float64 {
	if len(curve) < 2 {
		return nil
	}

	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev == 0 {
			continue
		}
		returns = append(returns, (curve[i].Equity-prev)/prev)
	}
	return returns
}

// maxDrawdown returns the largest peak-to-trough decline of the curve.
func maxDrawdown(curve []EquityPoint) float64 {
	if len(curve) == 0 {
		return 0
	}

	maxDD := 0.0
	peak := curve[0].Equity

	for _, point := range curve {
		if point.Equity > peak {
			peak = point.Equity
		}
		if peak <= 0 {
			continue
		}
		if dd := (peak - point.Equity) / peak; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}
