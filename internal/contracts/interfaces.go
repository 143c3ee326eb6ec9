package contracts

import (
	"context"
	"time"
)

// UniverseSelector picks the tradable universe in two stages: a coarse pass
// over price/volume data and a fine pass over fundamental data.
type UniverseSelector interface {
	// SelectCoarse filters the full market snapshot. A selection with
	// Unchanged set tells the engine to keep the previous universe.
	SelectCoarse(ctx context.Context, date time.Time, coarse []CoarseFundamental) (*UniverseSelection, error)

	// SelectFine further filters coarse survivors by fundamental data.
	SelectFine(ctx context.Context, date time.Time, fine []FineFundamental) (*UniverseSelection, error)

	// FilterFineData reports whether the fine stage is enabled. When false
	// the coarse selection is the universe.
	FilterFineData() bool

	// Invalidate discards any refresh guard so the next SelectCoarse call
	// re-runs the selection. The engine calls it when a selection round
	// fails partway, otherwise a transient error would freeze the stale
	// universe until the next scheduled refresh.
	Invalidate()
}

// AlphaModel turns market data into directional insights
type AlphaModel interface {
	// Update is called once per bar with prices for the active universe
	Update(ctx context.Context, bar Bar) ([]Insight, error)

	// OnSecuritiesChanged is fired when the universe adds or removes securities
	OnSecuritiesChanged(changes SecurityChanges)
}

// PortfolioConstructor turns insights into target allocations
type PortfolioConstructor interface {
	// CreateTargets builds portfolio targets from the insights generated
	// this bar plus any still-active insights from previous bars
	CreateTargets(ctx context.Context, now time.Time, insights []Insight) ([]Target, error)

	// OnSecuritiesChanged is fired when the universe adds or removes securities
	OnSecuritiesChanged(changes SecurityChanges)
}

// Holdings exposes the host's portfolio state to the constructor. The
// simulator implements it for backtests.
type Holdings interface {
	// Invested reports whether the portfolio holds any position in the symbol
	Invested(symbol string) bool

	// IsLong reports whether the position in the symbol is positive
	IsLong(symbol string) bool

	// IsShort reports whether the position in the symbol is negative
	IsShort(symbol string) bool

	// PriceOf returns the last known price for the symbol. A target cannot
	// be built for a symbol without a price.
	PriceOf(symbol string) (float64, bool)
}
