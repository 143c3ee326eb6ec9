package portfolio

import (
	"context"
	"time"

	"github.com/capellaquant/capella/internal/contracts"
	"github.com/capellaquant/capella/pkg/logger"
)

// Config holds the construction parameters
type Config struct {
	// RebalanceDays forces a periodic rebalance every N days. 0 disables it;
	// the portfolio still rebalances whenever a security is added, removed
	// or changes direction.
	RebalanceDays int `yaml:"rebalance_days"`
}

// EqualWeighting allocates 1/N of the portfolio to each security with an
// active non-flat insight, signed by the insight direction. Securities
// removed from the universe or whose insights expire get a zero target.
type EqualWeighting struct {
	config   Config
	holdings contracts.Holdings
	logger   *logger.Logger

	insights       *contracts.InsightCollection
	removedSymbols []string
	nextExpiry     time.Time // zero when the collection is empty
	rebalanceAt    time.Time
}

// NewEqualWeighting creates the equal-weighting constructor
func NewEqualWeighting(config Config, holdings contracts.Holdings, log *logger.Logger) *EqualWeighting {
	return &EqualWeighting{
		config:   config,
		holdings: holdings,
		logger:   log,
		insights: contracts.NewInsightCollection(),
	}
}

// CreateTargets builds portfolio targets from new and still-active insights
func (p *EqualWeighting) CreateTargets(ctx context.Context, now time.Time, insights []contracts.Insight) ([]contracts.Target, error) {
	targets := make([]contracts.Target, 0)

	// Nothing new, nothing expired, nothing removed: keep current targets
	if len(insights) == 0 && !now.After(p.nextExpiry) && len(p.removedSymbols) == 0 {
		return targets, nil
	}

	for _, in := range insights {
		p.insights.Add(in)
	}

	// Flatten everything the universe dropped
	flattened := make(map[string]bool)
	for _, symbol := range p.removedSymbols {
		if flattened[symbol] {
			continue
		}
		flattened[symbol] = true
		targets = append(targets, contracts.Target{Symbol: symbol, Percent: 0})
	}
	p.removedSymbols = nil

	lastActive := p.insights.LastActivePerSymbol(now)

	errorSymbols := make(map[string]bool)
	if p.shouldCreateTargets(now, lastActive) {
		percents := determineTargetPercents(lastActive)
		for _, in := range lastActive {
			// A symbol without a known price cannot be allocated; the host
			// sentinel is "no target this bar", logged and skipped
			if _, ok := p.holdings.PriceOf(in.Symbol); !ok {
				p.logger.WithField("symbol", in.Symbol).Warn("No price for insight symbol, skipping target")
				errorSymbols[in.Symbol] = true
				continue
			}
			targets = append(targets, contracts.Target{Symbol: in.Symbol, Percent: percents[in.Symbol]})
		}

		if p.config.RebalanceDays > 0 {
			p.rebalanceAt = now.AddDate(0, 0, p.config.RebalanceDays)
		}
	}

	// Flatten symbols whose insights all expired
	expired := p.insights.RemoveExpired(now)
	for _, in := range expired {
		if flattened[in.Symbol] || errorSymbols[in.Symbol] {
			continue
		}
		if p.insights.HasActiveFor(in.Symbol, now) {
			continue
		}
		flattened[in.Symbol] = true
		targets = append(targets, contracts.Target{Symbol: in.Symbol, Percent: 0})
	}

	if next, ok := p.insights.NextExpiry(); ok {
		p.nextExpiry = next
	} else {
		p.nextExpiry = time.Time{}
	}

	return targets, nil
}

// shouldCreateTargets decides whether the portfolio needs rebalancing: the
// periodic rebalance is due, a new security should be included, or an
// existing position disagrees with its insight direction.
func (p *EqualWeighting) shouldCreateTargets(now time.Time, lastActive []contracts.Insight) bool {
	if p.config.RebalanceDays > 0 && !now.Before(p.rebalanceAt) {
		return true
	}

	for _, in := range lastActive {
		switch {
		case !p.holdings.Invested(in.Symbol) && in.Direction != contracts.DirectionFlat:
			return true
		case p.holdings.IsLong(in.Symbol) && in.Direction != contracts.DirectionUp:
			return true
		case p.holdings.IsShort(in.Symbol) && in.Direction != contracts.DirectionDown:
			return true
		}
	}

	return false
}

// determineTargetPercents assigns direction * 1/N to each insight, where N
// is the number of non-flat insights
func determineTargetPercents(lastActive []contracts.Insight) map[string]float64 {
	count := 0
	for _, in := range lastActive {
		if in.Direction != contracts.DirectionFlat {
			count++
		}
	}

	percent := 0.0
	if count > 0 {
		percent = 1.0 / float64(count)
	}

	percents := make(map[string]float64, len(lastActive))
	for _, in := range lastActive {
		percents[in.Symbol] = float64(in.Direction) * percent
	}

	return percents
}

// OnSecuritiesChanged invalidates insights for removed securities and queues
// their positions for flattening on the next CreateTargets call
func (p *EqualWeighting) OnSecuritiesChanged(changes contracts.SecurityChanges) {
	if len(changes.Removed) == 0 {
		return
	}

	p.removedSymbols = append(p.removedSymbols, changes.Removed...)
	p.insights.Clear(changes.Removed)
}
