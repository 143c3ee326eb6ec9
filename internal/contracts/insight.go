package contracts

import (
	"sort"
	"time"
)

// Direction expresses the predicted move of a security
type Direction int

const (
	DirectionDown Direction = -1
	DirectionFlat Direction = 0
	DirectionUp   Direction = 1
)

// String returns the direction name
func (d Direction) String() string {
	switch d {
	case DirectionUp:
		return "up"
	case DirectionDown:
		return "down"
	default:
		return "flat"
	}
}

// Insight is a directional prediction for a security over a time window
type Insight struct {
	Symbol      string    `json:"symbol"`
	Direction   Direction `json:"direction"`
	GeneratedAt time.Time `json:"generated_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// IsActive reports whether the insight applies at the given time
func (i Insight) IsActive(now time.Time) bool {
	return !i.GeneratedAt.After(now) && !i.ExpiresAt.Before(now)
}

// IsExpired reports whether the insight has expired at the given time
func (i Insight) IsExpired(now time.Time) bool {
	return i.ExpiresAt.Before(now)
}

// InsightCollection accumulates insights per symbol and answers the queries
// the portfolio constructor needs: which insights are still active, which
// have expired, and when the next expiry happens.
type InsightCollection struct {
	bySymbol map[string][]Insight
}

// NewInsightCollection creates an empty collection
func NewInsightCollection() *InsightCollection {
	return &InsightCollection{
		bySymbol: make(map[string][]Insight),
	}
}

// Add appends an insight to the collection
func (c *InsightCollection) Add(in Insight) {
	c.bySymbol[in.Symbol] = append(c.bySymbol[in.Symbol], in)
}

// Len returns the total number of stored insights
func (c *InsightCollection) Len() int {
	n := 0
	for _, insights := range c.bySymbol {
		n += len(insights)
	}
	return n
}

// ActiveAt returns all insights active at the given time, ordered by symbol
func (c *InsightCollection) ActiveAt(now time.Time) []Insight {
	active := make([]Insight, 0)
	for _, symbol := range c.sortedSymbols() {
		for _, in := range c.bySymbol[symbol] {
			if in.IsActive(now) {
				active = append(active, in)
			}
		}
	}
	return active
}

// LastActivePerSymbol returns, for each symbol with active insights, the most
// recently generated one. Results are ordered by symbol for determinism.
func (c *InsightCollection) LastActivePerSymbol(now time.Time) []Insight {
	last := make([]Insight, 0)
	for _, symbol := range c.sortedSymbols() {
		var best *Insight
		for i := range c.bySymbol[symbol] {
			in := c.bySymbol[symbol][i]
			if !in.IsActive(now) {
				continue
			}
			if best == nil || in.GeneratedAt.After(best.GeneratedAt) {
				best = &in
			}
		}
		if best != nil {
			last = append(last, *best)
		}
	}
	return last
}

// HasActiveFor reports whether the symbol has at least one active insight
func (c *InsightCollection) HasActiveFor(symbol string, now time.Time) bool {
	for _, in := range c.bySymbol[symbol] {
		if in.IsActive(now) {
			return true
		}
	}
	return false
}

// RemoveExpired drops expired insights and returns them, ordered by symbol
func (c *InsightCollection) RemoveExpired(now time.Time) []Insight {
	expired := make([]Insight, 0)
	for _, symbol := range c.sortedSymbols() {
		keep := c.bySymbol[symbol][:0]
		for _, in := range c.bySymbol[symbol] {
			if in.IsExpired(now) {
				expired = append(expired, in)
			} else {
				keep = append(keep, in)
			}
		}
		if len(keep) == 0 {
			delete(c.bySymbol, symbol)
		} else {
			c.bySymbol[symbol] = keep
		}
	}
	return expired
}

// NextExpiry returns the earliest expiry among stored insights. The second
// return value is false when the collection is empty.
func (c *InsightCollection) NextExpiry() (time.Time, bool) {
	var next time.Time
	found := false
	for _, insights := range c.bySymbol {
		for _, in := range insights {
			if !found || in.ExpiresAt.Before(next) {
				next = in.ExpiresAt
				found = true
			}
		}
	}
	return next, found
}

// Clear removes all insights for the given symbols
func (c *InsightCollection) Clear(symbols []string) {
	for _, symbol := range symbols {
		delete(c.bySymbol, symbol)
	}
}

func (c *InsightCollection) sortedSymbols() []string {
	symbols := make([]string, 0, len(c.bySymbol))
	for symbol := range c.bySymbol {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}
