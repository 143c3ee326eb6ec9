package data

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/capellaquant/capella/internal/contracts"
)

// PostgresStore implements Store and Writer on top of the market data
// schema.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a store backed by the given connection pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// TradingDates returns the distinct trading days with price data in range.
func (s *PostgresStore) TradingDates(ctx context.Context, from, to time.Time) ([]time.Time, error) {
	query := `
		SELECT DISTINCT trade_date
		FROM market.daily_prices
		WHERE trade_date BETWEEN $1 AND $2
		ORDER BY trade_date ASC
	`

	rows, err := s.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("query trading dates: %w", err)
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

// CoarseSnapshot returns coarse fundamentals for all securities on a date.
func (s *PostgresStore) CoarseSnapshot(ctx context.Context, date time.Time) ([]contracts.CoarseFundamental, error) {
	query := `
		SELECT symbol, price, dollar_volume, has_fundamental_data
		FROM market.coarse_fundamentals
		WHERE snapshot_date = $1
		ORDER BY symbol ASC
	`

	rows, err := s.pool.Query(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("query coarse snapshot: %w", err)
	}
	defer rows.Close()

	var coarse []contracts.CoarseFundamental
	for rows.Next() {
		var c contracts.CoarseFundamental
		if err := rows.Scan(&c.Symbol, &c.Price, &c.DollarVolume, &c.HasFundamentalData); err != nil {
			return nil, err
		}
		coarse = append(coarse, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(coarse) == 0 {
		return nil, fmt.Errorf("coarse snapshot for %s: %w", date.Format("2006-01-02"), ErrNotFound)
	}
	return coarse, nil
}

// FineSnapshot returns fine fundamentals for the given symbols on a date.
func (s *PostgresStore) FineSnapshot(ctx context.Context, date time.Time, symbols []string) ([]contracts.FineFundamental, error) {
	if len(symbols) == 0 {
		return nil, nil
	}

	query := `
		SELECT symbol, market_cap, pe_ratio
		FROM market.fine_fundamentals
		WHERE snapshot_date = $1 AND symbol = ANY($2)
		ORDER BY symbol ASC
	`

	rows, err := s.pool.Query(ctx, query, date, symbols)
	if err != nil {
		return nil, fmt.Errorf("query fine snapshot: %w", err)
	}
	defer rows.Close()

	var fine []contracts.FineFundamental
	for rows.Next() {
		var f contracts.FineFundamental
		if err := rows.Scan(&f.Symbol, &f.MarketCap, &f.PERatio); err != nil {
			return nil, err
		}
		fine = append(fine, f)
	}
	return fine, rows.Err()
}

// ClosePrices returns closing prices keyed by symbol for a trading day.
func (s *PostgresStore) ClosePrices(ctx context.Context, date time.Time, symbols []string) (map[string]float64, error) {
	if len(symbols) == 0 {
		return map[string]float64{}, nil
	}

	query := `
		SELECT symbol, close_price
		FROM market.daily_prices
		WHERE trade_date = $1 AND symbol = ANY($2)
	`

	rows, err := s.pool.Query(ctx, query, date, symbols)
	if err != nil {
		return nil, fmt.Errorf("query close prices: %w", err)
	}
	defer rows.Close()

	prices := make(map[string]float64, len(symbols))
	for rows.Next() {
		var symbol string
		var price float64
		if err := rows.Scan(&symbol, &price); err != nil {
			return nil, err
		}
		prices[symbol] = price
	}
	return prices, rows.Err()
}

// SaveCoarse upserts a coarse snapshot for a date.
func (s *PostgresStore) SaveCoarse(ctx context.Context, date time.Time, rows []contracts.CoarseFundamental) error {
	if len(rows) == 0 {
		return nil
	}

	query := `
		INSERT INTO market.coarse_fundamentals (snapshot_date, symbol, price, dollar_volume, has_fundamental_data)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (snapshot_date, symbol) DO UPDATE SET
			price = EXCLUDED.price,
			dollar_volume = EXCLUDED.dollar_volume,
			has_fundamental_data = EXCLUDED.has_fundamental_data
	`

	batch := &pgx.Batch{}
	for _, c := range rows {
		batch.Queue(query, date, c.Symbol, c.Price, c.DollarVolume, c.HasFundamentalData)
	}
	return s.pool.SendBatch(ctx, batch).Close()
}

// SaveFine upserts a fine snapshot for a date.
func (s *PostgresStore) SaveFine(ctx context.Context, date time.Time, rows []contracts.FineFundamental) error {
	if len(rows) == 0 {
		return nil
	}

	query := `
		INSERT INTO market.fine_fundamentals (snapshot_date, symbol, market_cap, pe_ratio)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (snapshot_date, symbol) DO UPDATE SET
			market_cap = EXCLUDED.market_cap,
			pe_ratio = EXCLUDED.pe_ratio
	`

	batch := &pgx.Batch{}
	for _, f := range rows {
		batch.Queue(query, date, f.Symbol, f.MarketCap, f.PERatio)
	}
	return s.pool.SendBatch(ctx, batch).Close()
}

// SaveClosePrices upserts closing prices for a date.
func (s *PostgresStore) SaveClosePrices(ctx context.Context, date time.Time, prices map[string]float64) error {
	if len(prices) == 0 {
		return nil
	}

	query := `
		INSERT INTO market.daily_prices (trade_date, symbol, close_price)
		VALUES ($1, $2, $3)
		ON CONFLICT (trade_date, symbol) DO UPDATE SET
			close_price = EXCLUDED.close_price
	`

	batch := &pgx.Batch{}
	for symbol, price := range prices {
		batch.Queue(query, date, symbol, price)
	}
	return s.pool.SendBatch(ctx, batch).Close()
}
