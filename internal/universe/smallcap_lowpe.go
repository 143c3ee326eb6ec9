package universe

import (
	"context"
	"fmt"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/capellaquant/capella/internal/contracts"
	"github.com/capellaquant/capella/pkg/logger"
)

// Config holds the selection thresholds
type Config struct {
	MinPrice       float64 `yaml:"min_price"`        // last price must exceed this
	MinMarketCap   float64 `yaml:"min_market_cap"`   // lower bound of the small-cap band (exclusive)
	MaxMarketCap   float64 `yaml:"max_market_cap"`   // upper bound of the small-cap band (exclusive)
	PEPercentile   float64 `yaml:"pe_percentile"`    // keep P/E at or below this percentile
	FilterFineData bool    `yaml:"filter_fine_data"` // disable to use the coarse selection as-is
}

// DefaultConfig returns the small-caps low-P/E selection parameters
func DefaultConfig() Config {
	return Config{
		MinPrice:       5,
		MinMarketCap:   300_000_000,
		MaxMarketCap:   2_000_000_000,
		PEPercentile:   1,
		FilterFineData: true,
	}
}

// SmallCapsLowPE selects small-cap stocks in the lowest P/E percentile.
// The coarse stage keeps priced, fundamental-bearing stocks; the fine stage
// keeps the small-cap band and cuts at the configured P/E percentile.
// Selection re-runs once per calendar year.
type SmallCapsLowPE struct {
	config Config
	logger *logger.Logger

	// year of the last coarse run; selection only changes when it rolls over
	lastYear int
}

// NewSmallCapsLowPE creates the selection model
func NewSmallCapsLowPE(config Config, log *logger.Logger) *SmallCapsLowPE {
	return &SmallCapsLowPE{
		config:   config,
		logger:   log,
		lastYear: -1,
	}
}

// FilterFineData reports whether the fine stage is enabled
func (s *SmallCapsLowPE) FilterFineData() bool {
	return s.config.FilterFineData
}

// Invalidate resets the yearly guard so the next coarse pass re-runs the
// selection
func (s *SmallCapsLowPE) Invalidate() {
	s.lastYear = -1
}

// SelectCoarse keeps stocks with fundamental data and price above the
// threshold. Runs at most once per calendar year.
func (s *SmallCapsLowPE) SelectCoarse(ctx context.Context, date time.Time, coarse []contracts.CoarseFundamental) (*contracts.UniverseSelection, error) {
	if date.Year() == s.lastYear {
		return contracts.UnchangedSelection(date), nil
	}
	s.lastYear = date.Year()

	selection := &contracts.UniverseSelection{
		Date:     date,
		Symbols:  make([]string, 0, len(coarse)),
		Excluded: make(map[string]string),
	}

	for _, c := range coarse {
		if !c.HasFundamentalData {
			// Filters out ETFs and other instruments without fundamentals
			selection.Excluded[c.Symbol] = "no fundamental data"
			continue
		}
		if c.Price <= s.config.MinPrice {
			selection.Excluded[c.Symbol] = fmt.Sprintf("price %.2f at or below %.2f", c.Price, s.config.MinPrice)
			continue
		}
		selection.Symbols = append(selection.Symbols, c.Symbol)
	}

	s.logger.WithFields(map[string]interface{}{
		"date":  date.Format("2006-01-02"),
		"count": len(selection.Symbols),
	}).Info("Coarse selection: stocks with fundamental data and price above threshold")

	return selection, nil
}

// SelectFine keeps small caps and cuts at the P/E percentile
func (s *SmallCapsLowPE) SelectFine(ctx context.Context, date time.Time, fine []contracts.FineFundamental) (*contracts.UniverseSelection, error) {
	selection := &contracts.UniverseSelection{
		Date:     date,
		Symbols:  make([]string, 0),
		Excluded: make(map[string]string),
	}

	smallCaps := make([]contracts.FineFundamental, 0, len(fine))
	for _, f := range fine {
		if f.MarketCap <= s.config.MinMarketCap || f.MarketCap >= s.config.MaxMarketCap {
			selection.Excluded[f.Symbol] = fmt.Sprintf("market cap %.0f outside (%.0f, %.0f)",
				f.MarketCap, s.config.MinMarketCap, s.config.MaxMarketCap)
			continue
		}
		if f.PERatio <= 0 {
			selection.Excluded[f.Symbol] = "non-positive P/E ratio"
			continue
		}
		smallCaps = append(smallCaps, f)
	}

	s.logger.WithFields(map[string]interface{}{
		"date":  date.Format("2006-01-02"),
		"count": len(smallCaps),
	}).Info("Fine selection: total number of small caps")

	if len(smallCaps) == 0 {
		return selection, nil
	}

	peRatios := make([]float64, len(smallCaps))
	for i, f := range smallCaps {
		peRatios[i] = f.PERatio
	}

	cutoff, err := stats.Percentile(peRatios, s.config.PEPercentile)
	if err != nil {
		// Too few values for this percentile; fall back to the minimum so
		// the lowest-P/E names still qualify
		cutoff, err = stats.Min(peRatios)
		if err != nil {
			return nil, fmt.Errorf("compute P/E percentile: %w", err)
		}
	}

	for _, f := range smallCaps {
		if f.PERatio > cutoff {
			selection.Excluded[f.Symbol] = fmt.Sprintf("P/E %.2f above percentile cutoff %.2f", f.PERatio, cutoff)
			continue
		}
		selection.Symbols = append(selection.Symbols, f.Symbol)

		s.logger.WithFields(map[string]interface{}{
			"symbol":   f.Symbol,
			"pe_ratio": f.PERatio,
		}).Info("Selected small cap in lowest P/E percentile")
	}

	s.logger.WithFields(map[string]interface{}{
		"date":      date.Format("2006-01-02"),
		"cutoff":    cutoff,
		"count":     len(selection.Symbols),
		"small_cap": len(smallCaps),
	}).Info("Fine selection complete")

	return selection, nil
}
