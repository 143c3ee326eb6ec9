package alpha

import (
	"context"
	"sort"
	"time"

	"github.com/capellaquant/capella/internal/contracts"
	"github.com/capellaquant/capella/pkg/logger"
)

// Config holds the constant alpha parameters
type Config struct {
	Direction   contracts.Direction `yaml:"direction"`    // emitted for every tracked security
	InsightDays int                 `yaml:"insight_days"` // insight lifetime in days
}

// DefaultConfig returns the long-only defaults: one Up insight per security
// per daily bar
func DefaultConfig() Config {
	return Config{
		Direction:   contracts.DirectionUp,
		InsightDays: 1,
	}
}

// Constant emits one insight with a fixed direction for every security in
// the universe on every bar. It carries no view on magnitude or timing; the
// signal is simply "hold the universe in this direction".
type Constant struct {
	config     Config
	logger     *logger.Logger
	securities map[string]struct{}
}

// NewConstant creates the constant alpha model
func NewConstant(config Config, log *logger.Logger) *Constant {
	return &Constant{
		config:     config,
		logger:     log,
		securities: make(map[string]struct{}),
	}
}

// Update emits one insight per tracked security for this bar
func (a *Constant) Update(ctx context.Context, bar contracts.Bar) ([]contracts.Insight, error) {
	if len(a.securities) == 0 {
		return nil, nil
	}

	lifetime := time.Duration(a.config.InsightDays) * 24 * time.Hour

	symbols := make([]string, 0, len(a.securities))
	for symbol := range a.securities {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	insights := make([]contracts.Insight, 0, len(symbols))
	for _, symbol := range symbols {
		insights = append(insights, contracts.Insight{
			Symbol:      symbol,
			Direction:   a.config.Direction,
			GeneratedAt: bar.Date,
			ExpiresAt:   bar.Date.Add(lifetime),
		})
	}

	a.logger.WithFields(map[string]interface{}{
		"date":      bar.Date.Format("2006-01-02"),
		"direction": a.config.Direction.String(),
		"count":     len(insights),
	}).Debug("Generated insights")

	return insights, nil
}

// OnSecuritiesChanged keeps the tracked security set in sync with the universe
func (a *Constant) OnSecuritiesChanged(changes contracts.SecurityChanges) {
	for _, symbol := range changes.Added {
		a.securities[symbol] = struct{}{}
	}
	for _, symbol := range changes.Removed {
		delete(a.securities, symbol)
	}
}

// TrackedSecurities returns the symbols currently producing insights
func (a *Constant) TrackedSecurities() []string {
	symbols := make([]string, 0, len(a.securities))
	for symbol := range a.securities {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}
