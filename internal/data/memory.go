package data

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/capellaquant/capella/internal/contracts"
)

// MemoryStore is an in-memory Store and Writer. It backs offline
// backtests loaded from files and the test suites.
type MemoryStore struct {
	mu     sync.RWMutex
	coarse map[string][]contracts.CoarseFundamental
	fine   map[string]map[string]contracts.FineFundamental
	prices map[string]map[string]float64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		coarse: make(map[string][]contracts.CoarseFundamental),
		fine:   make(map[string]map[string]contracts.FineFundamental),
		prices: make(map[string]map[string]float64),
	}
}

func dateKey(date time.Time) string {
	return date.Format("2006-01-02")
}

// TradingDates returns the days with price data in range, ascending.
func (s *MemoryStore) TradingDates(ctx context.Context, from, to time.Time) ([]time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var dates []time.Time
	for key := range s.prices {
		d, err := time.Parse("2006-01-02", key)
		if err != nil {
			return nil, err
		}
		if d.Before(from) || d.After(to) {
			continue
		}
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates, nil
}

// CoarseSnapshot returns the coarse fundamentals stored for a date.
func (s *MemoryStore) CoarseSnapshot(ctx context.Context, date time.Time) ([]contracts.CoarseFundamental, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, ok := s.coarse[dateKey(date)]
	if !ok {
		return nil, fmt.Errorf("coarse snapshot for %s: %w", dateKey(date), ErrNotFound)
	}
	out := make([]contracts.CoarseFundamental, len(rows))
	copy(out, rows)
	return out, nil
}

// FineSnapshot returns the stored fine fundamentals for the given symbols.
func (s *MemoryStore) FineSnapshot(ctx context.Context, date time.Time, symbols []string) ([]contracts.FineFundamental, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bySymbol, ok := s.fine[dateKey(date)]
	if !ok {
		return nil, nil
	}

	var fine []contracts.FineFundamental
	for _, symbol := range symbols {
		if f, exists := bySymbol[symbol]; exists {
			fine = append(fine, f)
		}
	}
	sort.Slice(fine, func(i, j int) bool { return fine[i].Symbol < fine[j].Symbol })
	return fine, nil
}

// ClosePrices returns the stored closing prices for the given symbols.
func (s *MemoryStore) ClosePrices(ctx context.Context, date time.Time, symbols []string) (map[string]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bySymbol, ok := s.prices[dateKey(date)]
	if !ok {
		return map[string]float64{}, nil
	}

	prices := make(map[string]float64, len(symbols))
	for _, symbol := range symbols {
		if price, exists := bySymbol[symbol]; exists {
			prices[symbol] = price
		}
	}
	return prices, nil
}

// SaveCoarse replaces the coarse snapshot for a date.
func (s *MemoryStore) SaveCoarse(ctx context.Context, date time.Time, rows []contracts.CoarseFundamental) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]contracts.CoarseFundamental, len(rows))
	copy(stored, rows)
	s.coarse[dateKey(date)] = stored
	return nil
}

// SaveFine merges fine fundamentals into the snapshot for a date.
func (s *MemoryStore) SaveFine(ctx context.Context, date time.Time, rows []contracts.FineFundamental) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := dateKey(date)
	if s.fine[key] == nil {
		s.fine[key] = make(map[string]contracts.FineFundamental, len(rows))
	}
	for _, f := range rows {
		s.fine[key][f.Symbol] = f
	}
	return nil
}

// SaveClosePrices merges closing prices into the snapshot for a date.
func (s *MemoryStore) SaveClosePrices(ctx context.Context, date time.Time, prices map[string]float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := dateKey(date)
	if s.prices[key] == nil {
		s.prices[key] = make(map[string]float64, len(prices))
	}
	for symbol, price := range prices {
		s.prices[key][symbol] = price
	}
	return nil
}
